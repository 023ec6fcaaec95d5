package handlers

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"strings"

	"github.com/google/uuid"

	"github.com/jmylchreest/hapd/internal/dispatch"
	herrors "github.com/jmylchreest/hapd/internal/errors"
	"github.com/jmylchreest/hapd/internal/events"
	"github.com/jmylchreest/hapd/internal/pairing"
	"github.com/jmylchreest/hapd/internal/tlv"
)

// Pairings serves POST /pairings: add, remove and list pairings on behalf
// of a verified admin controller.
type Pairings struct{}

// NewPairings returns the pairings handler.
func NewPairings() dispatch.Handler {
	return dispatch.NewTLVHandler[pairStep](Pairings{})
}

func (Pairings) Parse(ctx context.Context, body []byte) (pairStep, error) {
	return parseStep(ctx, body)
}

// ErrorState is always M2; every pairings exchange is a single round trip.
func (Pairings) ErrorState() byte { return 2 }

func (pp Pairings) Step(ctx context.Context, s pairStep, h *dispatch.Handles) (tlv.Encodable, error) {
	if s.state != 1 {
		return nil, tlv.NewError(2, tlv.ErrorUnknown)
	}

	caller, ok := h.ControllerID()
	if !ok {
		return nil, tlv.NewError(2, tlv.ErrorAuthentication)
	}
	p, err := h.Pairings.Load(ctx, caller)
	if err != nil || !p.IsAdmin() {
		h.Logger.Warn("Pairings request from non-admin controller", "controller", caller, "error", err)
		return nil, tlv.NewError(2, tlv.ErrorAuthentication)
	}

	switch s.method {
	case tlv.MethodAddPairing:
		return pp.add(ctx, s, h)
	case tlv.MethodRemovePairing:
		return pp.remove(ctx, s, h)
	case tlv.MethodListPairings:
		return pp.list(ctx, h)
	default:
		return nil, tlv.NewError(2, tlv.ErrorUnknown)
	}
}

func (Pairings) add(ctx context.Context, s pairStep, h *dispatch.Handles) (tlv.Encodable, error) {
	rawID, _ := s.body.Get(tlv.TypeIdentifier)
	ltpk, _ := s.body.Get(tlv.TypePublicKey)
	perms, okPerms := s.body.GetByte(tlv.TypePermissions)

	id, err := pairing.ParseControllerID(rawID)
	if err != nil || len(ltpk) != ed25519.PublicKeySize || !okPerms {
		return nil, tlv.NewError(2, tlv.ErrorUnknown)
	}

	existing, err := h.Pairings.Load(ctx, id)
	switch {
	case err == nil:
		if !bytes.Equal(existing.PublicKey, ltpk) {
			return nil, tlv.NewError(2, tlv.ErrorUnknown)
		}
		existing.Permissions = perms
		if err := h.Pairings.Save(ctx, existing); err != nil {
			return nil, err
		}
		h.Logger.Info("Pairing permissions updated", "controller", id, "permissions", perms)
	case herrors.IsNotFound(err):
		count, err := h.Pairings.Count(ctx)
		if err != nil {
			return nil, err
		}
		if count >= pairing.MaxPairings {
			return nil, tlv.NewError(2, tlv.ErrorMaxPeers)
		}
		if err := h.Pairings.Save(ctx, pairing.Pairing{ID: id, PublicKey: ed25519.PublicKey(ltpk), Permissions: perms}); err != nil {
			return nil, err
		}
		h.Logger.Info("Pairing added", "controller", id, "permissions", perms)
		h.Events.Emit(ctx, events.ControllerPaired{ID: id})
	default:
		return nil, err
	}

	return tlv.New().AppendByte(tlv.TypeState, 2), nil
}

func (Pairings) remove(ctx context.Context, s pairStep, h *dispatch.Handles) (tlv.Encodable, error) {
	rawID, _ := s.body.Get(tlv.TypeIdentifier)
	id, err := pairing.ParseControllerID(rawID)
	if err != nil {
		return nil, tlv.NewError(2, tlv.ErrorUnknown)
	}

	var removed []uuid.UUID
	switch err := h.Pairings.Delete(ctx, id); {
	case err == nil:
		removed = append(removed, id)
	case !herrors.IsNotFound(err):
		return nil, err
	}

	hasAdmin, err := h.Pairings.HasAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if !hasAdmin {
		rest, err := h.Pairings.DeleteAll(ctx)
		if err != nil {
			return nil, err
		}
		removed = append(removed, rest...)
	}

	for _, r := range removed {
		h.Logger.Info("Pairing removed", "controller", r)
		h.Events.Emit(ctx, events.ControllerUnpaired{ID: r})
	}
	return tlv.New().AppendByte(tlv.TypeState, 2), nil
}

func (Pairings) list(ctx context.Context, h *dispatch.Handles) (tlv.Encodable, error) {
	all, err := h.Pairings.List(ctx)
	if err != nil {
		return nil, err
	}
	out := tlv.New().AppendByte(tlv.TypeState, 2)
	for i, p := range all {
		if i > 0 {
			out.Separator()
		}
		out.Append(tlv.TypeIdentifier, []byte(strings.ToUpper(p.ID.String()))).
			Append(tlv.TypePublicKey, p.PublicKey).
			AppendByte(tlv.TypePermissions, p.Permissions)
	}
	return out, nil
}
