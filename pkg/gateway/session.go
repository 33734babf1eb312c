package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/toolgate/toolgate/pkg/catalog"
	"github.com/toolgate/toolgate/pkg/identity"
	"go.uber.org/zap"
)

const sessionIDPrefix = "sess-"

// Session is one bound, authenticated channel. A session only exists
// after its credential passed the identity check; it is removed from the
// registry on explicit termination or process shutdown and its identifier
// is never reused for lookups.
type Session struct {
	ID        string
	Token     string
	UserAgent string
	Category  string
	CreatedAt time.Time
}

// SessionManager owns the session registry. It is constructed by the
// top-level server and passed by reference to the transport and the
// dispatcher; there is no ambient global state.
type SessionManager struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	checker    identity.Checker
	categories catalog.CategoryMap
	logger     *zap.Logger
}

func NewSessionManager(checker identity.Checker, categories catalog.CategoryMap, logger *zap.Logger) *SessionManager {
	return &SessionManager{
		sessions:   make(map[string]*Session),
		checker:    checker,
		categories: categories,
		logger:     logger,
	}
}

// Initialize validates the credential against the identity collaborator
// and, on success, registers a new session bound to the requested
// category. An unknown category binds to the catch-all instead.
func (m *SessionManager) Initialize(ctx context.Context, token, userAgent, category string) (*Session, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	if err := m.checker.Check(ctx, token); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIdentityRejected, err)
	}

	if !m.categories.Has(category) {
		m.logger.Warn("unknown category requested; binding to catch-all",
			zap.String("category", category))
		category = catalog.CatchAll
	}

	sess := &Session{
		ID:        sessionIDPrefix + uuid.New().String(),
		Token:     token,
		UserAgent: userAgent,
		Category:  category,
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	m.logger.Info("session initialized",
		zap.String("session", sess.ID),
		zap.String("category", category),
		zap.String("userAgent", userAgent))
	return sess, nil
}

// Get looks up an active session.
func (m *SessionManager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

// Close terminates a session. Closing an unknown id is a no-op.
func (m *SessionManager) Close(id string) {
	m.mu.Lock()
	_, existed := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if existed {
		m.logger.Info("session closed", zap.String("session", id))
	}
}

// CloseAll discards every session; used on process shutdown.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	n := len(m.sessions)
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	if n > 0 {
		m.logger.Info("all sessions closed", zap.Int("count", n))
	}
}

// Len returns the number of active sessions.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
