package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/toolgate/toolgate/pkg/protocol"
	"go.uber.org/zap"
)

const headerSessionID = "Mcp-Session-Id"

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithEndpointPath sets the mount path announced in logs. Default "/mcp".
func WithEndpointPath(path string) TransportOption {
	return func(t *Transport) {
		t.endpointPath = "/" + strings.Trim(path, "/")
	}
}

// WithServerInfo sets the identity announced on initialize.
func WithServerInfo(name, version string) TransportOption {
	return func(t *Transport) {
		t.serverName = name
		t.serverVersion = version
	}
}

// Transport is the HTTP face of the gateway. One POST carries one
// JSON-RPC request; an initialize request opens a session whose id the
// client echoes back in the Mcp-Session-Id header; DELETE terminates the
// session. The protocol is request/response only, so GET is not a
// listening channel.
type Transport struct {
	manager    *SessionManager
	dispatcher *Dispatcher
	logger     *zap.Logger

	endpointPath  string
	serverName    string
	serverVersion string
}

func NewTransport(manager *SessionManager, dispatcher *Dispatcher, logger *zap.Logger, opts ...TransportOption) *Transport {
	t := &Transport{
		manager:       manager,
		dispatcher:    dispatcher,
		logger:        logger,
		endpointPath:  "/mcp",
		serverName:    "toolgate",
		serverVersion: "dev",
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// EndpointPath returns the configured mount path.
func (t *Transport) EndpointPath() string { return t.endpointPath }

func (t *Transport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		t.handlePost(w, r)
	case http.MethodDelete:
		t.handleDelete(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (t *Transport) handlePost(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		http.Error(w, "content type must be application/json", http.StatusBadRequest)
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeResponse(w, t.logger, protocol.NewError(nil, protocol.ParseError, fmt.Sprintf("read request body: %v", err)))
		return
	}
	var req protocol.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		writeResponse(w, t.logger, protocol.NewError(nil, protocol.ParseError, "request body is not valid JSON"))
		return
	}

	if req.Method == protocol.MethodInitialize {
		t.handleInitialize(w, r, &req)
		return
	}
	if req.Method == protocol.MethodInitialized {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	sess, ok := t.manager.Get(r.Header.Get(headerSessionID))
	if !ok {
		writeResponse(w, t.logger, protocol.NewError(req.ID, protocol.InvalidRequest, "invalid or missing session id"))
		return
	}

	switch req.Method {
	case protocol.MethodPing:
		writeResponse(w, t.logger, protocol.NewResult(req.ID, struct{}{}))
	case protocol.MethodToolsList:
		writeResponse(w, t.logger, protocol.NewResult(req.ID, protocol.ListToolsResult{
			Tools: t.dispatcher.List(sess),
		}))
	case protocol.MethodToolsCall:
		t.handleCall(w, r, &req, sess)
	default:
		writeResponse(w, t.logger, protocol.NewError(req.ID, protocol.MethodNotFound, fmt.Sprintf("unknown method %q", req.Method)))
	}
}

// handleInitialize validates the bearer credential and opens a session.
// A failed identity check discards the channel before it ever activates.
func (t *Transport) handleInitialize(w http.ResponseWriter, r *http.Request, req *protocol.Request) {
	var params protocol.InitializeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			writeResponse(w, t.logger, protocol.NewError(req.ID, protocol.InvalidParams, "malformed initialize params"))
			return
		}
	}

	sess, err := t.manager.Initialize(r.Context(), bearerToken(r), r.UserAgent(), params.Category)
	if err != nil {
		t.logger.Warn("initialization rejected", zap.Error(err))
		writeResponse(w, t.logger, protocol.NewError(req.ID, protocol.InvalidRequest, err.Error()))
		return
	}

	w.Header().Set(headerSessionID, sess.ID)
	writeResponse(w, t.logger, protocol.NewResult(req.ID, protocol.InitializeResult{
		ProtocolVersion: protocol.ProtocolVersion,
		ServerInfo:      protocol.ServerInfo{Name: t.serverName, Version: t.serverVersion},
		Capabilities:    protocol.Capabilities{},
	}))
}

func (t *Transport) handleCall(w http.ResponseWriter, r *http.Request, req *protocol.Request, sess *Session) {
	var params protocol.CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeResponse(w, t.logger, protocol.NewError(req.ID, protocol.InvalidParams, "malformed tools/call params"))
		return
	}
	result, err := t.dispatcher.Call(r.Context(), sess, params.Name, params.Arguments)
	if err != nil {
		code := protocol.InternalError
		if errors.Is(err, ErrToolNotFound) || errors.Is(err, ErrToolDisabled) {
			code = protocol.InvalidParams
		}
		writeResponse(w, t.logger, protocol.NewError(req.ID, code, err.Error()))
		return
	}
	writeResponse(w, t.logger, protocol.NewResult(req.ID, result))
}

func (t *Transport) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(headerSessionID)
	if id == "" {
		http.Error(w, "missing session id", http.StatusBadRequest)
		return
	}
	t.manager.Close(id)
	w.WriteHeader(http.StatusOK)
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(auth[len("Bearer "):])
	}
	return ""
}

func writeResponse(w http.ResponseWriter, logger *zap.Logger, resp *protocol.Response) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error("write response failed", zap.Error(err))
	}
}
