// Package dispatch runs HAP endpoints behind one Handler contract, whatever
// wire format they speak.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"

	"github.com/jmylchreest/hapd/internal/accessory"
	"github.com/jmylchreest/hapd/internal/config"
	"github.com/jmylchreest/hapd/internal/events"
	"github.com/jmylchreest/hapd/internal/pairing"
	"github.com/jmylchreest/hapd/internal/session"
	"github.com/jmylchreest/hapd/internal/storage"
	"github.com/jmylchreest/hapd/internal/subscription"
)

// Content types of the two endpoint families.
const (
	ContentTypeTLV  = "application/pairing+tlv8"
	ContentTypeJSON = "application/hap+json"
)

// MaxBodySize bounds request bodies on the HAP listener.
const MaxBodySize = 1 << 20

// Request is what an endpoint sees of an HTTP request.
type Request struct {
	Method string
	URI    *url.URL
	Header http.Header
	Body   []byte
}

// Response is written back verbatim.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// Handler is implemented by every endpoint. A returned error is a
// transport-level failure; protocol and application failures are encoded
// in the Response by the adapters.
type Handler interface {
	Handle(ctx context.Context, req *Request, h *Handles) (*Response, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req *Request, h *Handles) (*Response, error)

func (f HandlerFunc) Handle(ctx context.Context, req *Request, h *Handles) (*Response, error) {
	return f(ctx, req, h)
}

// Reentrant is implemented by handlers that may run concurrently with
// themselves. Serve serializes calls to every other handler.
type Reentrant interface {
	Reentrant() bool
}

// Shared holds the process-wide handles. Every referent synchronizes
// itself.
type Shared struct {
	Config        *config.Config
	Storage       storage.Store
	Accessories   *accessory.Database
	Subscriptions *subscription.Table
	Events        *events.Emitter
	Pairings      *pairing.Registry
	Identity      *pairing.Identity
	Setup         *pairing.SetupCoordinator
	Sessions      *session.Registry
	Logger        *slog.Logger
}

// Handles is the per-call view of Shared plus the calling connection.
type Handles struct {
	*Shared
	Session *session.Session
}

// ControllerID returns the controller verified on this connection.
func (h *Handles) ControllerID() (uuid.UUID, bool) {
	if h.Session == nil {
		return uuid.Nil, false
	}
	return h.Session.ControllerID()
}

// Serve turns a Handler into an http.HandlerFunc.
func Serve(name string, handler Handler, shared *Shared) http.HandlerFunc {
	logger := shared.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("handler", name)

	var mu sync.Mutex
	serialize := true
	if r, ok := handler.(Reentrant); ok && r.Reentrant() {
		serialize = false
	}

	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodySize))
		if err != nil {
			logger.Debug("Failed to read request body", "error", err)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		sess, ok := session.FromContext(r.Context())
		if !ok {
			sess = session.New(nil)
		}
		req := &Request{Method: r.Method, URI: r.URL, Header: r.Header, Body: body}
		handles := &Handles{Shared: shared, Session: sess}

		origin := events.Origin{Session: sess.ID}
		origin.Controller, _ = sess.ControllerID()
		ctx := events.WithOrigin(r.Context(), origin)

		var lock sync.Locker
		if serialize {
			lock = &mu
		}
		resp, err := invoke(ctx, handler, req, handles, lock)

		if sess.ClosePending() {
			// net/http closes the connection after this response
			w.Header().Set("Connection", "close")
		}

		if err != nil {
			logger.Error("Handler failed", "error", err, "session", sess.ID)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeResponse(w, resp)
	}
}

// invoke runs the handler under lock, if any, and turns a panic into an
// error so the lock is always released.
func invoke(ctx context.Context, handler Handler, req *Request, h *Handles, lock sync.Locker) (resp *Response, err error) {
	if lock != nil {
		lock.Lock()
		defer lock.Unlock()
	}
	defer func() {
		if r := recover(); r != nil {
			resp, err = nil, fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler.Handle(ctx, req, h)
}

func writeResponse(w http.ResponseWriter, resp *Response) {
	if resp == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if resp.ContentType != "" && len(resp.Body) > 0 {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.WriteHeader(resp.Status)
	if len(resp.Body) > 0 {
		_, _ = w.Write(resp.Body)
	}
}

// JSONResponse encodes v as a HAP JSON response.
func JSONResponse(status int, v any) (*Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &Response{Status: status, ContentType: ContentTypeJSON, Body: body}, nil
}

// NoContent is the empty 204 response.
func NoContent() *Response {
	return &Response{Status: http.StatusNoContent}
}

type perConnectionKey struct{ name string }

type perConnectionInstance struct {
	mu      sync.Mutex
	handler Handler
}

type perConnection struct {
	name    string
	factory func() Handler
}

// PerConnection keeps one handler instance per connection, created on
// first use. Calls on one connection are serialized; different connections
// run in parallel.
func PerConnection(name string, factory func() Handler) Handler {
	return &perConnection{name: name, factory: factory}
}

func (p *perConnection) Reentrant() bool { return true }

func (p *perConnection) Handle(ctx context.Context, req *Request, h *Handles) (*Response, error) {
	if h.Session == nil {
		return nil, errors.New("per-connection handler without a session")
	}
	inst := h.Session.Value(perConnectionKey{p.name}, func() any {
		return &perConnectionInstance{handler: p.factory()}
	}).(*perConnectionInstance)

	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.handler.Handle(ctx, req, h)
}
