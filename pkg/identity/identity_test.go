package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHTTPCheckerAccepts(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewHTTPChecker(srv.URL, nil, zap.NewNop())
	require.NoError(t, c.Check(context.Background(), "tok-123"))
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestHTTPCheckerRejectsNonSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewHTTPChecker(srv.URL, nil, zap.NewNop())
	err := c.Check(context.Background(), "bad-token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestHTTPCheckerRejectsOnTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewHTTPChecker(srv.URL, nil, zap.NewNop())
	assert.Error(t, c.Check(context.Background(), "tok"))
}

func TestStaticAcceptsEverything(t *testing.T) {
	assert.NoError(t, Static{}.Check(context.Background(), ""))
	assert.NoError(t, Static{}.Check(context.Background(), "anything"))
}
