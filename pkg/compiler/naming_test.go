package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateName(t *testing.T) {
	tests := []struct {
		method, path, want string
	}{
		{"GET", "/widgets", "getWidgets"},
		{"GET", "/widgets/{id}", "getWidgetsById"},
		{"POST", "/widgets", "postWidgets"},
		{"DELETE", "/widgets/{widgetId}", "deleteWidgetsByWidgetId"},
		{"GET", "/users/{id}/posts", "getUsersPosts"},
		{"GET", "/users/{userId}/posts/{postId}", "getUsersPostsByPostId"},
		{"GET", "/user-profiles", "getUserProfiles"},
		{"GET", "/user_profiles/{profile_id}", "getUserProfilesByProfileId"},
		{"GET", "/", "get"},
		{"PUT", "/a/b/c", "putABC"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, generateName(tt.method, tt.path))
		})
	}
}

func TestGenerateNameIsDeterministic(t *testing.T) {
	first := generateName("GET", "/widgets/{id}")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, generateName("GET", "/widgets/{id}"))
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"getWidgets", "getWidgets"},
		{"get.widgets", "get_widgets"},
		{"get widgets", "get_widgets"},
		{"get/widgets!", "get_widgets_"},
		{"already_fine-123", "already_fine-123"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeName(tt.in))
	}
}

func TestNameRegistryClaim(t *testing.T) {
	names := nameRegistry{}

	assert.Equal(t, "getWidgets", names.claim("getWidgets"))
	assert.Equal(t, "getWidgets2", names.claim("getWidgets"))
	assert.Equal(t, "getWidgets3", names.claim("getWidgets"))
	assert.Equal(t, "other", names.claim("other"))
}

func TestNameRegistrySkipsTakenSuffix(t *testing.T) {
	names := nameRegistry{}

	assert.Equal(t, "tool2", names.claim("tool2"))
	assert.Equal(t, "tool", names.claim("tool"))
	// tool2 is taken by the literal claim above.
	assert.Equal(t, "tool3", names.claim("tool"))
}
