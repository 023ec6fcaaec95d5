package session

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

type contextKey struct{}

// NewContext returns ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored by the registry's ConnContext hook.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok
}

// Registry follows the HAP server's connections through http.Server hooks.
type Registry struct {
	mu       sync.Mutex
	sessions map[net.Conn]*Session
	logger   *slog.Logger

	// onOpen is called for every new session before it is used.
	onOpen func(*Session)
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{sessions: make(map[net.Conn]*Session), logger: logger}
}

// OnOpen sets a hook run for each new session.
func (r *Registry) OnOpen(fn func(*Session)) {
	r.mu.Lock()
	r.onOpen = fn
	r.mu.Unlock()
}

// ConnContext is installed as http.Server.ConnContext.
func (r *Registry) ConnContext(ctx context.Context, c net.Conn) context.Context {
	s := New(c)
	r.mu.Lock()
	r.sessions[c] = s
	onOpen := r.onOpen
	r.mu.Unlock()

	s.OnClose(func() {
		r.mu.Lock()
		delete(r.sessions, c)
		r.mu.Unlock()
		r.logger.Debug("Session closed", "session", s.ID, "remote", s.RemoteAddr)
	})
	if onOpen != nil {
		onOpen(s)
	}
	r.logger.Debug("Session opened", "session", s.ID, "remote", s.RemoteAddr)
	return NewContext(ctx, s)
}

// ConnState is installed as http.Server.ConnState. Hijacked connections are
// left to whoever hijacked them.
func (r *Registry) ConnState(c net.Conn, state http.ConnState) {
	if state != http.StateClosed {
		return
	}
	r.mu.Lock()
	s := r.sessions[c]
	r.mu.Unlock()
	if s != nil {
		s.Close()
	}
}

// Count returns the number of open sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// ControllerSessions returns the open sessions verified as controller.
func (r *Registry) ControllerSessions(controller uuid.UUID) []*Session {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.mu.Unlock()

	var out []*Session
	for _, s := range all {
		if id, ok := s.ControllerID(); ok && id == controller {
			out = append(out, s)
		}
	}
	return out
}

// CloseController closes every connection of controller and returns how
// many were closed.
func (r *Registry) CloseController(controller uuid.UUID) int {
	sessions := r.ControllerSessions(controller)
	for _, s := range sessions {
		s.Close()
	}
	if len(sessions) > 0 {
		r.logger.Info("Closed controller sessions", "controller", controller, "count", len(sessions))
	}
	return len(sessions)
}

// CloseAll closes every session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.mu.Unlock()
	for _, s := range all {
		s.Close()
	}
}
