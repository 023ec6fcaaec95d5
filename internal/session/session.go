// Package session tracks HAP connections and the controller bound to each
// one after pair-verify.
package session

import (
	"net"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// ControlKeys are the session keys derived at the end of pair-verify.
type ControlKeys struct {
	Read  []byte
	Write []byte
}

// Session is the state of one controller connection.
type Session struct {
	ID         string
	RemoteAddr string

	conn net.Conn

	mu         sync.Mutex
	controller uuid.UUID
	verified   bool
	keys       ControlKeys
	values     map[any]any
	onClose    []func()
	closed     bool
	closeAfter bool
	closeOnce  sync.Once
}

// New creates a session for conn. conn may be nil in tests.
func New(conn net.Conn) *Session {
	s := &Session{ID: uuid.NewString(), conn: conn, values: make(map[any]any)}
	if conn != nil {
		s.RemoteAddr = conn.RemoteAddr().String()
	}
	return s
}

// ControllerID returns the verified controller, or false before pair-verify
// has completed.
func (s *Session) ControllerID() (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controller, s.verified
}

// IsVerified reports whether pair-verify completed on this connection.
func (s *Session) IsVerified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verified
}

// SetVerified binds a controller and its control channel keys.
func (s *Session) SetVerified(controller uuid.UUID, keys ControlKeys) {
	s.mu.Lock()
	s.controller = controller
	s.keys = keys
	s.verified = true
	s.mu.Unlock()
}

// Keys returns the control channel keys.
func (s *Session) Keys() ControlKeys {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys
}

// Value returns the per-connection value stored under key, creating it
// with factory on first use.
func (s *Session) Value(key any, factory func() any) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		v = factory()
		s.values[key] = v
	}
	return v
}

// OnClose registers fn to run when the session closes. Callbacks run in
// reverse registration order. Registering on a closed session runs fn
// immediately.
func (s *Session) OnClose(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		fn()
		return
	}
	s.onClose = append(s.onClose, fn)
	s.mu.Unlock()
}

// Close runs the close callbacks and closes the connection exactly once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		callbacks := slices.Clone(s.onClose)
		s.onClose = nil
		s.values = make(map[any]any)
		s.mu.Unlock()

		for i := len(callbacks) - 1; i >= 0; i-- {
			callbacks[i]()
		}
		if s.conn != nil {
			_ = s.conn.Close()
		}
	})
}

// MarkForClose asks for the connection to be closed once the response
// being written has been sent.
func (s *Session) MarkForClose() {
	s.mu.Lock()
	s.closeAfter = true
	s.mu.Unlock()
}

// ClosePending reports whether MarkForClose was called.
func (s *Session) ClosePending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeAfter
}

// Closed reports whether Close has run.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
