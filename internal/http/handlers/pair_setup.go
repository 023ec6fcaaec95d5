package handlers

import (
	"context"
	"crypto/ed25519"

	"github.com/jmylchreest/hapd/internal/config"
	"github.com/jmylchreest/hapd/internal/dispatch"
	herrors "github.com/jmylchreest/hapd/internal/errors"
	"github.com/jmylchreest/hapd/internal/events"
	"github.com/jmylchreest/hapd/internal/hapcrypto"
	"github.com/jmylchreest/hapd/internal/pairing"
	"github.com/jmylchreest/hapd/internal/tlv"
)

// PairSetup runs the M1 to M6 exchange that creates the first admin
// pairing. Each connection gets its own instance; h.Setup lets only one
// connection at a time hold an exchange in progress.
type PairSetup struct {
	owner string
	srp   *hapcrypto.SRPServer
	state byte

	errorState byte
}

// NewPairSetup returns the pair-setup handler.
func NewPairSetup() dispatch.Handler {
	return dispatch.NewTLVHandler[pairStep](&PairSetup{})
}

func (p *PairSetup) Parse(ctx context.Context, body []byte) (pairStep, error) {
	return parseStep(ctx, body)
}

// ErrorState is the state an unclassified failure is reported at.
func (p *PairSetup) ErrorState() byte {
	if p.errorState == 0 {
		return 2
	}
	return p.errorState
}

func (p *PairSetup) Step(ctx context.Context, s pairStep, h *dispatch.Handles) (tlv.Encodable, error) {
	p.errorState = s.state + 1

	// The owning connection went away; its OnClose hook released the
	// coordinator.
	if p.owner != "" && h.Setup.Owner() != p.owner {
		p.reset()
	}

	switch s.state {
	case 1:
		return p.start(ctx, s, h)
	case 3:
		return p.verifyProof(ctx, s, h)
	case 5:
		return p.exchange(ctx, s, h)
	default:
		return nil, tlv.NewError(s.state+1, tlv.ErrorUnknown)
	}
}

func (p *PairSetup) reset() {
	p.owner, p.srp, p.state = "", nil, 0
}

// abort ends the current attempt and counts it against the retry limit.
func (p *PairSetup) abort(h *dispatch.Handles, state byte, reason string) error {
	h.Logger.Warn("Pair-setup failed", "state", state, "reason", reason, "session", p.owner)
	h.Setup.RecordFailure()
	h.Setup.Release(p.owner)
	p.reset()
	return tlv.NewError(state, tlv.ErrorAuthentication)
}

// start handles M1 and answers with the SRP salt and public key (M2).
func (p *PairSetup) start(ctx context.Context, s pairStep, h *dispatch.Handles) (tlv.Encodable, error) {
	if s.method != tlv.MethodPairSetup && s.method != tlv.MethodPairSetupWithAuth {
		return nil, tlv.NewError(2, tlv.ErrorUnknown)
	}
	paired, err := h.Pairings.IsPaired(ctx)
	if err != nil {
		return nil, err
	}
	if paired {
		return nil, tlv.NewError(2, tlv.ErrorUnavailable)
	}
	if h.Setup.TooManyAttempts() {
		return nil, tlv.NewError(2, tlv.ErrorMaxTries)
	}

	sess := h.Session
	if !h.Setup.Begin(sess.ID) {
		return nil, tlv.NewError(2, tlv.ErrorBusy)
	}
	if p.owner != sess.ID {
		setup := h.Setup
		sess.OnClose(func() { setup.Release(sess.ID) })
	}

	code, err := config.NormalizeSetupCode(h.Config.Server.SetupCode)
	if err != nil {
		h.Setup.Release(sess.ID)
		return nil, err
	}
	salt, err := hapcrypto.NewSalt()
	if err != nil {
		h.Setup.Release(sess.ID)
		return nil, err
	}
	srp, err := hapcrypto.NewSRPServer(hapcrypto.SRPUsername, code, salt)
	if err != nil {
		h.Setup.Release(sess.ID)
		return nil, err
	}

	p.owner, p.srp, p.state = sess.ID, srp, 2
	h.Logger.Info("Pair-setup started", "session", sess.ID, "remote_addr", sess.RemoteAddr)

	return tlv.New().
		AppendByte(tlv.TypeState, 2).
		Append(tlv.TypePublicKey, srp.PublicKey()).
		Append(tlv.TypeSalt, srp.Salt()), nil
}

// verifyProof handles M3 and returns the accessory proof (M4).
func (p *PairSetup) verifyProof(_ context.Context, s pairStep, h *dispatch.Handles) (tlv.Encodable, error) {
	if p.state != 2 || p.owner != h.Session.ID {
		return nil, tlv.NewError(4, tlv.ErrorUnknown)
	}
	pubA, okA := s.body.Get(tlv.TypePublicKey)
	proof, okP := s.body.Get(tlv.TypeProof)
	if !okA || !okP {
		return nil, p.abort(h, 4, "missing public key or proof")
	}
	if _, err := p.srp.ComputeKey(pubA); err != nil {
		return nil, p.abort(h, 4, err.Error())
	}
	m2, ok := p.srp.VerifyClientProof(proof)
	if !ok {
		return nil, p.abort(h, 4, "invalid setup code")
	}

	p.state = 4
	return tlv.New().
		AppendByte(tlv.TypeState, 4).
		Append(tlv.TypeProof, m2), nil
}

// exchange handles M5: it checks the controller's long-term key, stores
// the pairing and answers with the accessory's own (M6).
func (p *PairSetup) exchange(ctx context.Context, s pairStep, h *dispatch.Handles) (tlv.Encodable, error) {
	if p.state != 4 || p.owner != h.Session.ID {
		return nil, tlv.NewError(6, tlv.ErrorUnknown)
	}
	encrypted, ok := s.body.Get(tlv.TypeEncryptedData)
	if !ok {
		return nil, p.abort(h, 6, "missing encrypted data")
	}

	shared, err := p.srp.Key()
	if err != nil {
		return nil, err
	}
	encKey, err := hapcrypto.DeriveKey(shared, hapcrypto.PairSetupEncryptSalt, hapcrypto.PairSetupEncryptInfo)
	if err != nil {
		return nil, err
	}
	plain, err := hapcrypto.Open(encKey, hapcrypto.NoncePairSetupM5, encrypted)
	if err != nil {
		return nil, p.abort(h, 6, "decrypting M5")
	}
	sub, err := tlv.Decode(plain)
	if err != nil {
		return nil, p.abort(h, 6, "decoding M5 payload")
	}
	rawID, _ := sub.Get(tlv.TypeIdentifier)
	ltpk, _ := sub.Get(tlv.TypePublicKey)
	sig, _ := sub.Get(tlv.TypeSignature)

	controller, err := pairing.ParseControllerID(rawID)
	if err != nil || len(ltpk) != ed25519.PublicKeySize {
		return nil, p.abort(h, 6, "malformed controller identity")
	}

	deviceX, err := hapcrypto.DeriveKey(shared, hapcrypto.PairSetupControllerSignSalt, hapcrypto.PairSetupControllerSignInfo)
	if err != nil {
		return nil, err
	}
	if !ed25519.Verify(ltpk, concat(deviceX, rawID, ltpk), sig) {
		return nil, p.abort(h, 6, "controller signature mismatch")
	}

	count, err := h.Pairings.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count >= pairing.MaxPairings {
		h.Setup.Release(p.owner)
		p.reset()
		return nil, tlv.NewError(6, tlv.ErrorMaxPeers)
	}

	if err := h.Pairings.Save(ctx, pairing.Pairing{
		ID:          controller,
		PublicKey:   ed25519.PublicKey(ltpk),
		Permissions: pairing.PermissionAdmin,
	}); err != nil {
		return nil, herrors.WrapErrorf(err, "saving pairing %s", controller)
	}

	accessoryX, err := hapcrypto.DeriveKey(shared, hapcrypto.PairSetupAccessorySignSalt, hapcrypto.PairSetupAccessorySignInfo)
	if err != nil {
		return nil, err
	}
	id := h.Identity
	accessoryID := []byte(id.PairingID)
	reply := tlv.New().
		Append(tlv.TypeIdentifier, accessoryID).
		Append(tlv.TypePublicKey, id.PublicKey).
		Append(tlv.TypeSignature, id.Sign(concat(accessoryX, accessoryID, id.PublicKey))).
		Encode()
	sealed, err := hapcrypto.Seal(encKey, hapcrypto.NoncePairSetupM6, reply)
	if err != nil {
		return nil, err
	}

	h.Setup.ResetFailures()
	h.Setup.Release(p.owner)
	p.reset()

	h.Logger.Info("Controller paired", "controller", controller)
	h.Events.Emit(ctx, events.ControllerPaired{ID: controller})

	return tlv.New().
		AppendByte(tlv.TypeState, 6).
		Append(tlv.TypeEncryptedData, sealed), nil
}
