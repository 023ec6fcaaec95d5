package handlers

import (
	"context"
	"crypto/ed25519"

	"github.com/jmylchreest/hapd/internal/dispatch"
	herrors "github.com/jmylchreest/hapd/internal/errors"
	"github.com/jmylchreest/hapd/internal/hapcrypto"
	"github.com/jmylchreest/hapd/internal/pairing"
	"github.com/jmylchreest/hapd/internal/session"
	"github.com/jmylchreest/hapd/internal/tlv"
)

// PairVerify runs the M1 to M4 exchange that authenticates a paired
// controller on one connection. Each connection gets its own instance.
type PairVerify struct {
	state      byte
	accPub     []byte
	ctrlPub    []byte
	shared     []byte
	sessionKey []byte

	errorState byte
}

// NewPairVerify returns a fresh pair-verify state machine; register it
// through dispatch.PerConnection.
func NewPairVerify() dispatch.Handler {
	return dispatch.NewTLVHandler[pairStep](&PairVerify{})
}

func (v *PairVerify) Parse(ctx context.Context, body []byte) (pairStep, error) {
	return parseStep(ctx, body)
}

// ErrorState is the state an unclassified failure is reported at.
func (v *PairVerify) ErrorState() byte {
	if v.errorState == 0 {
		return 2
	}
	return v.errorState
}

func (v *PairVerify) Step(ctx context.Context, s pairStep, h *dispatch.Handles) (tlv.Encodable, error) {
	v.errorState = s.state + 1
	switch s.state {
	case 1:
		return v.start(s, h)
	case 3:
		return v.finish(ctx, s, h)
	default:
		return nil, tlv.NewError(s.state+1, tlv.ErrorUnknown)
	}
}

func (v *PairVerify) reset() {
	v.state, v.accPub, v.ctrlPub, v.shared, v.sessionKey = 0, nil, nil, nil, nil
}

func (v *PairVerify) fail(h *dispatch.Handles, state byte, reason string) error {
	h.Logger.Warn("Pair-verify failed", "state", state, "reason", reason, "session", h.Session.ID)
	v.reset()
	return tlv.NewError(state, tlv.ErrorAuthentication)
}

// start handles M1: an ephemeral key exchange signed with the accessory's
// long-term key (M2).
func (v *PairVerify) start(s pairStep, h *dispatch.Handles) (tlv.Encodable, error) {
	v.reset()
	ctrlPub, ok := s.body.Get(tlv.TypePublicKey)
	if !ok || len(ctrlPub) != hapcrypto.KeySize {
		return nil, tlv.NewError(2, tlv.ErrorUnknown)
	}

	priv, pub, err := hapcrypto.GenerateCurve25519()
	if err != nil {
		return nil, err
	}
	shared, err := hapcrypto.SharedSecret(priv, ctrlPub)
	if err != nil {
		return nil, v.fail(h, 2, err.Error())
	}
	key, err := hapcrypto.DeriveKey(shared, hapcrypto.PairVerifyEncryptSalt, hapcrypto.PairVerifyEncryptInfo)
	if err != nil {
		return nil, err
	}

	id := h.Identity
	accessoryID := []byte(id.PairingID)
	sub := tlv.New().
		Append(tlv.TypeIdentifier, accessoryID).
		Append(tlv.TypeSignature, id.Sign(concat(pub, accessoryID, ctrlPub))).
		Encode()
	sealed, err := hapcrypto.Seal(key, hapcrypto.NoncePairVerifyM2, sub)
	if err != nil {
		return nil, err
	}

	v.state, v.accPub, v.ctrlPub, v.shared, v.sessionKey = 2, pub, ctrlPub, shared, key
	return tlv.New().
		AppendByte(tlv.TypeState, 2).
		Append(tlv.TypePublicKey, pub).
		Append(tlv.TypeEncryptedData, sealed), nil
}

// finish handles M3: the controller proves it holds a paired long-term
// key. On success the connection is bound to that controller (M4).
func (v *PairVerify) finish(ctx context.Context, s pairStep, h *dispatch.Handles) (tlv.Encodable, error) {
	if v.state != 2 {
		return nil, tlv.NewError(4, tlv.ErrorUnknown)
	}
	encrypted, ok := s.body.Get(tlv.TypeEncryptedData)
	if !ok {
		return nil, v.fail(h, 4, "missing encrypted data")
	}
	plain, err := hapcrypto.Open(v.sessionKey, hapcrypto.NoncePairVerifyM3, encrypted)
	if err != nil {
		return nil, v.fail(h, 4, "decrypting M3")
	}
	sub, err := tlv.Decode(plain)
	if err != nil {
		return nil, v.fail(h, 4, "decoding M3 payload")
	}
	rawID, _ := sub.Get(tlv.TypeIdentifier)
	sig, _ := sub.Get(tlv.TypeSignature)

	controller, err := pairing.ParseControllerID(rawID)
	if err != nil {
		return nil, v.fail(h, 4, "malformed controller id")
	}
	p, err := h.Pairings.Load(ctx, controller)
	if herrors.IsNotFound(err) {
		return nil, v.fail(h, 4, "unknown controller")
	}
	if err != nil {
		return nil, err
	}
	if !ed25519.Verify(p.PublicKey, concat(v.ctrlPub, rawID, v.accPub), sig) {
		return nil, v.fail(h, 4, "controller signature mismatch")
	}

	read, err := hapcrypto.DeriveKey(v.shared, hapcrypto.ControlSalt, hapcrypto.ControlReadEncryptionKey)
	if err != nil {
		return nil, err
	}
	write, err := hapcrypto.DeriveKey(v.shared, hapcrypto.ControlSalt, hapcrypto.ControlWriteEncryptionKey)
	if err != nil {
		return nil, err
	}
	h.Session.SetVerified(controller, session.ControlKeys{Read: read, Write: write})
	h.Logger.Info("Controller verified", "controller", controller, "session", h.Session.ID)
	v.reset()

	return tlv.New().AppendByte(tlv.TypeState, 4), nil
}
