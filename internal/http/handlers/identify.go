package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/jmylchreest/hapd/internal/dispatch"
	herrors "github.com/jmylchreest/hapd/internal/errors"
)

// Identify serves POST /identify. Only an unpaired accessory may be asked
// to identify itself this way; paired controllers write the identify
// characteristic instead.
type Identify struct{}

func (Identify) Handle(ctx context.Context, _ *dispatch.Request, h *dispatch.Handles) (*dispatch.Response, error) {
	paired, err := h.Pairings.IsPaired(ctx)
	if err != nil {
		return nil, herrors.WrapErrorf(err, "checking pairing state")
	}
	if paired {
		return nil, herrors.WithHAPStatus(http.StatusBadRequest, herrors.HAPStatusInsufficientPrivileges,
			errors.New("identify on a paired accessory"))
	}
	if err := h.Accessories.Identify(ctx); err != nil {
		return nil, err
	}
	return dispatch.NoContent(), nil
}
