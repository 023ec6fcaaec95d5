package handlers

import (
	"context"
	"net/http"

	"github.com/jmylchreest/hapd/internal/dispatch"
	herrors "github.com/jmylchreest/hapd/internal/errors"
)

// Accessories serves GET /accessories.
type Accessories struct{}

// Reentrant lets concurrent reads run in parallel.
func (Accessories) Reentrant() bool { return true }

func (Accessories) Handle(_ context.Context, _ *dispatch.Request, h *dispatch.Handles) (*dispatch.Response, error) {
	body, err := h.Accessories.AsSerializedJSON()
	if err != nil {
		return nil, herrors.WrapErrorf(err, "serializing accessory database")
	}
	return &dispatch.Response{
		Status:      http.StatusOK,
		ContentType: dispatch.ContentTypeJSON,
		Body:        body,
	}, nil
}
