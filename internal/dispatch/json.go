package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	herrors "github.com/jmylchreest/hapd/internal/errors"
)

// JSONEndpoint is the logic behind a JSON route.
type JSONEndpoint interface {
	Handle(ctx context.Context, req *Request, h *Handles) (*Response, error)
}

// JSONHandler adapts a JSONEndpoint to Handler. Errors carrying a
// herrors.StatusError become that status; anything else is a 500 with an
// empty body.
type JSONHandler struct {
	endpoint JSONEndpoint
}

// NewJSONHandler wraps endpoint.
func NewJSONHandler(endpoint JSONEndpoint) *JSONHandler {
	return &JSONHandler{endpoint: endpoint}
}

func (j *JSONHandler) Handle(ctx context.Context, req *Request, h *Handles) (*Response, error) {
	resp, err := j.endpoint.Handle(ctx, req, h)
	if err == nil {
		return resp, nil
	}

	logger := slog.Default()
	if h != nil && h.Logger != nil {
		logger = h.Logger
	}

	if se, ok := herrors.StatusOf(err); ok {
		logger.Debug("JSON endpoint returned status", "status", se.Code, "error", err)
		out := &Response{Status: se.Code}
		if se.HAPStatus != 0 {
			out.ContentType = ContentTypeJSON
			out.Body = fmt.Appendf(nil, `{"status":%d}`, se.HAPStatus)
		}
		return out, nil
	}

	path := ""
	if req.URI != nil {
		path = req.URI.Path
	}
	logger.Error("JSON endpoint failed", "error", err, "path", path)
	return &Response{Status: http.StatusInternalServerError}, nil
}

// Reentrant reports whether the wrapped endpoint declared itself reentrant.
func (j *JSONHandler) Reentrant() bool {
	r, ok := j.endpoint.(Reentrant)
	return ok && r.Reentrant()
}
