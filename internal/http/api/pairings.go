package api

import (
	"context"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/hapd/internal/events"
	"github.com/jmylchreest/hapd/internal/pairing"
)

// --- List Pairings ---

// ListPairingsInput is the input for listing pairings.
type ListPairingsInput struct{}

// ListPairingsOutput is the output for listing pairings.
type ListPairingsOutput struct {
	Body []PairingResponse
}

// --- Delete Pairing ---

// DeletePairingInput is the input for removing a pairing.
type DeletePairingInput struct {
	ID string `path:"id" doc:"Controller pairing identifier (UUID)"`
}

// DeletePairingOutput is the output for removing a pairing (HTTP 204).
type DeletePairingOutput struct{}

// PairingHandler implements pairing management HTTP handlers.
type PairingHandler struct {
	Pairings *pairing.Registry
	Events   *events.Emitter
	Logger   *slog.Logger
}

// ListPairings returns every paired controller.
func (h *PairingHandler) ListPairings(ctx context.Context, _ *ListPairingsInput) (*ListPairingsOutput, error) {
	all, err := h.Pairings.List(ctx)
	if err != nil {
		return nil, humaError(err, "Failed to list pairings")
	}
	out := &ListPairingsOutput{Body: make([]PairingResponse, len(all))}
	for i, p := range all {
		out.Body[i] = PairingFromInternal(p)
	}
	return out, nil
}

// DeletePairing removes a controller. Its open connections are closed by the
// server once the unpaired event is delivered.
func (h *PairingHandler) DeletePairing(ctx context.Context, input *DeletePairingInput) (*DeletePairingOutput, error) {
	id, err := pairing.ParseControllerID([]byte(input.ID))
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	if err := h.Pairings.Delete(ctx, id); err != nil {
		return nil, humaError(err, "Error removing pairing")
	}
	h.Logger.Info("Pairing removed via API", "controller", id)
	h.Events.Emit(ctx, events.ControllerUnpaired{ID: id})
	return &DeletePairingOutput{}, nil
}

// Ensure PairingHandler implements the interface at compile time.
var _ PairingHandlers = (*PairingHandler)(nil)

// PairingHandlers defines the interface for pairing management operations.
type PairingHandlers interface {
	ListPairings(ctx context.Context, input *ListPairingsInput) (*ListPairingsOutput, error)
	DeletePairing(ctx context.Context, input *DeletePairingInput) (*DeletePairingOutput, error)
}
