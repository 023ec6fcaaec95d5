package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jmylchreest/hapd/internal/tlv"
)

// TLVEndpoint is the protocol logic behind a TLV route: Parse decodes the
// body into a step, Step runs it. Either may fail with a
// *tlv.ErrorContainer, which is sent to the controller as is.
type TLVEndpoint[S any] interface {
	Parse(ctx context.Context, body []byte) (S, error)
	Step(ctx context.Context, step S, h *Handles) (tlv.Encodable, error)
}

// ErrorStater is implemented by endpoints that know which response state
// an unclassified failure belongs to.
type ErrorStater interface {
	ErrorState() byte
}

// TLVHandler adapts a TLVEndpoint to Handler. The HTTP status is always 200.
type TLVHandler[S any] struct {
	endpoint TLVEndpoint[S]
}

// NewTLVHandler wraps endpoint.
func NewTLVHandler[S any](endpoint TLVEndpoint[S]) *TLVHandler[S] {
	return &TLVHandler[S]{endpoint: endpoint}
}

func (t *TLVHandler[S]) Handle(ctx context.Context, req *Request, h *Handles) (*Response, error) {
	var payload tlv.Encodable

	step, err := t.endpoint.Parse(ctx, req.Body)
	if err == nil {
		payload, err = t.endpoint.Step(ctx, step, h)
		if err == nil && payload == nil {
			err = errors.New("empty step result")
		}
	}
	if err != nil {
		payload = t.protocolError(err, h)
	}

	return &Response{Status: http.StatusOK, ContentType: ContentTypeTLV, Body: payload.Encode()}, nil
}

func (t *TLVHandler[S]) protocolError(err error, h *Handles) *tlv.ErrorContainer {
	var ec *tlv.ErrorContainer
	if errors.As(err, &ec) {
		return ec
	}

	state := byte(2)
	if s, ok := t.endpoint.(ErrorStater); ok {
		state = s.ErrorState()
	}
	logger := slog.Default()
	if h != nil && h.Logger != nil {
		logger = h.Logger
	}
	logger.Error("TLV endpoint failed", "error", err, "state", state)
	return tlv.NewError(state, tlv.ErrorUnknown)
}

// Reentrant reports whether the wrapped endpoint declared itself reentrant.
func (t *TLVHandler[S]) Reentrant() bool {
	r, ok := t.endpoint.(Reentrant)
	return ok && r.Reentrant()
}
