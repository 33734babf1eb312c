package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/toolgate/toolgate/pkg/catalog"
	"github.com/toolgate/toolgate/pkg/compiler"
	"github.com/toolgate/toolgate/pkg/protocol"
)

func newTestTransport(t *testing.T, upstreamURL string) *Transport {
	t.Helper()
	cat := catalog.Aggregate([]catalog.Service{
		{Name: "widgets", BaseURL: upstreamURL, Tools: []compiler.ToolDefinition{widgetTool()}},
	}, catalog.AccessPolicy{AllowWriteOperations: true})

	manager := NewSessionManager(&acceptChecker{}, nil, zap.NewNop())
	dispatcher := NewDispatcher(cat, nil, nil, nil, nil, zap.NewNop())
	return NewTransport(manager, dispatcher, zap.NewNop(),
		WithServerInfo("toolgate", "test"))
}

func postJSON(t *testing.T, handler http.Handler, sessionID string, req protocol.Request) (*httptest.ResponseRecorder, *protocol.Response) {
	t.Helper()
	req.JSONRPC = protocol.JSONRPCVersion
	raw, err := json.Marshal(req)
	require.NoError(t, err)

	httpReq := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader(raw))
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer tok-abc")
	if sessionID != "" {
		httpReq.Header.Set("Mcp-Session-Id", sessionID)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httpReq)

	var resp protocol.Response
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, &resp
}

func initializeSession(t *testing.T, tr *Transport) string {
	t.Helper()
	params, _ := json.Marshal(protocol.InitializeParams{
		ProtocolVersion: protocol.ProtocolVersion,
		ClientInfo:      protocol.ClientInfo{Name: "test-client", Version: "1.0"},
	})
	rec, resp := postJSON(t, tr, "", protocol.Request{
		ID:     1,
		Method: protocol.MethodInitialize,
		Params: params,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, resp.Error)

	id := rec.Header().Get("Mcp-Session-Id")
	require.True(t, strings.HasPrefix(id, "sess-"))
	return id
}

func TestTransportInitialize(t *testing.T) {
	tr := newTestTransport(t, "http://unused")

	params, _ := json.Marshal(protocol.InitializeParams{Category: ""})
	rec, resp := postJSON(t, tr, "", protocol.Request{
		ID:     1,
		Method: protocol.MethodInitialize,
		Params: params,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, protocol.ProtocolVersion, result["protocolVersion"])
	serverInfo := result["serverInfo"].(map[string]any)
	assert.Equal(t, "toolgate", serverInfo["name"])

	assert.True(t, strings.HasPrefix(rec.Header().Get("Mcp-Session-Id"), "sess-"))
}

func TestTransportInitializeWithoutToken(t *testing.T) {
	tr := newTestTransport(t, "http://unused")

	raw, _ := json.Marshal(protocol.Request{
		JSONRPC: protocol.JSONRPCVersion,
		ID:      1,
		Method:  protocol.MethodInitialize,
	})
	httpReq := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader(raw))
	httpReq.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	tr.ServeHTTP(rec, httpReq)

	var resp protocol.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.InvalidRequest, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "missing bearer credential")
	assert.Empty(t, rec.Header().Get("Mcp-Session-Id"))
}

func TestTransportRequiresSessionForOtherMethods(t *testing.T) {
	tr := newTestTransport(t, "http://unused")

	t.Run("missing header", func(t *testing.T) {
		_, resp := postJSON(t, tr, "", protocol.Request{ID: 2, Method: protocol.MethodToolsList})
		require.NotNil(t, resp.Error)
		assert.Equal(t, protocol.InvalidRequest, resp.Error.Code)
	})

	t.Run("unknown session", func(t *testing.T) {
		_, resp := postJSON(t, tr, "sess-bogus", protocol.Request{ID: 2, Method: protocol.MethodToolsList})
		require.NotNil(t, resp.Error)
		assert.Equal(t, protocol.InvalidRequest, resp.Error.Code)
	})
}

func TestTransportPing(t *testing.T) {
	tr := newTestTransport(t, "http://unused")
	id := initializeSession(t, tr)

	_, resp := postJSON(t, tr, id, protocol.Request{ID: 3, Method: protocol.MethodPing})
	assert.Nil(t, resp.Error)
}

func TestTransportToolsList(t *testing.T) {
	tr := newTestTransport(t, "http://unused")
	id := initializeSession(t, tr)

	_, resp := postJSON(t, tr, id, protocol.Request{ID: 4, Method: protocol.MethodToolsList})
	require.Nil(t, resp.Error)

	result := resp.Result.(map[string]any)
	tools := result["tools"].([]any)
	require.Len(t, tools, 1)
	first := tools[0].(map[string]any)
	assert.Equal(t, "getWidgetsById", first["name"])
	assert.Equal(t, "Fetch one widget.", first["description"])
	assert.NotNil(t, first["inputSchema"])
}

func TestTransportToolsCall(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/widgets/9", r.URL.Path)
		assert.Equal(t, "Bearer tok-abc", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":9}`))
	}))
	defer upstream.Close()

	tr := newTestTransport(t, upstream.URL)
	id := initializeSession(t, tr)

	params, _ := json.Marshal(protocol.CallToolParams{
		Name:      "getWidgetsById",
		Arguments: map[string]any{"id": 9},
	})
	_, resp := postJSON(t, tr, id, protocol.Request{ID: 5, Method: protocol.MethodToolsCall, Params: params})
	require.Nil(t, resp.Error)

	result := resp.Result.(map[string]any)
	content := result["content"].([]any)
	require.Len(t, content, 1)
	assert.Equal(t, `{"id":9}`, content[0].(map[string]any)["text"])
}

func TestTransportToolsCallUnknownTool(t *testing.T) {
	tr := newTestTransport(t, "http://unused")
	id := initializeSession(t, tr)

	params, _ := json.Marshal(protocol.CallToolParams{Name: "noSuchTool"})
	_, resp := postJSON(t, tr, id, protocol.Request{ID: 6, Method: protocol.MethodToolsCall, Params: params})
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.InvalidParams, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "tool not found")
}

func TestTransportUnknownMethod(t *testing.T) {
	tr := newTestTransport(t, "http://unused")
	id := initializeSession(t, tr)

	_, resp := postJSON(t, tr, id, protocol.Request{ID: 7, Method: "resources/list"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.MethodNotFound, resp.Error.Code)
}

func TestTransportInitializedNotification(t *testing.T) {
	tr := newTestTransport(t, "http://unused")

	rec, _ := postJSON(t, tr, "", protocol.Request{Method: protocol.MethodInitialized})
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestTransportMalformedJSON(t *testing.T) {
	tr := newTestTransport(t, "http://unused")

	httpReq := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader("{nope"))
	httpReq.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	tr.ServeHTTP(rec, httpReq)

	var resp protocol.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.ParseError, resp.Error.Code)
}

func TestTransportRejectsWrongContentType(t *testing.T) {
	tr := newTestTransport(t, "http://unused")

	httpReq := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader("{}"))
	httpReq.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	tr.ServeHTTP(rec, httpReq)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransportDeleteClosesSession(t *testing.T) {
	tr := newTestTransport(t, "http://unused")
	id := initializeSession(t, tr)

	httpReq := httptest.NewRequest(http.MethodDelete, "/mcp", nil)
	httpReq.Header.Set("Mcp-Session-Id", id)
	rec := httptest.NewRecorder()
	tr.ServeHTTP(rec, httpReq)
	assert.Equal(t, http.StatusOK, rec.Code)

	// The closed session no longer works.
	_, resp := postJSON(t, tr, id, protocol.Request{ID: 8, Method: protocol.MethodPing})
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.InvalidRequest, resp.Error.Code)

	// Deleting again is harmless.
	rec = httptest.NewRecorder()
	tr.ServeHTTP(rec, httpReq)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTransportDeleteWithoutSessionID(t *testing.T) {
	tr := newTestTransport(t, "http://unused")

	httpReq := httptest.NewRequest(http.MethodDelete, "/mcp", nil)
	rec := httptest.NewRecorder()
	tr.ServeHTTP(rec, httpReq)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransportRejectsGet(t *testing.T) {
	tr := newTestTransport(t, "http://unused")

	httpReq := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	rec := httptest.NewRecorder()
	tr.ServeHTTP(rec, httpReq)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
