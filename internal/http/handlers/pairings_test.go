package handlers

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/hapd/internal/events"
	"github.com/jmylchreest/hapd/internal/pairing"
	"github.com/jmylchreest/hapd/internal/session"
	"github.com/jmylchreest/hapd/internal/tlv"
)

func pairingsRequest(method byte) *tlv.Container {
	return tlv.New().AppendByte(tlv.TypeState, 1).AppendByte(tlv.TypeMethod, method)
}

func requireOK(t *testing.T, c *tlv.Container) {
	t.Helper()
	_, failed := c.GetByte(tlv.TypeError)
	require.False(t, failed, "unexpected error response")
	state, _ := c.GetByte(tlv.TypeState)
	require.Equal(t, byte(2), state)
}

func TestPairings_RequiresVerifiedAdmin(t *testing.T) {
	f := newFixture(t)
	user := newController(t)
	f.pairDirectly(t, user, pairing.PermissionUser)
	h := NewPairings()

	resp := post(t, h, f.handles(session.New(nil)), "/pairings", pairingsRequest(tlv.MethodListPairings))
	requireTLVError(t, resp, 2, tlv.ErrorAuthentication)

	resp = post(t, h, f.handles(verifiedSession(user.id)), "/pairings", pairingsRequest(tlv.MethodListPairings))
	requireTLVError(t, resp, 2, tlv.ErrorAuthentication)
}

func TestPairings_AddListRemove(t *testing.T) {
	f := newFixture(t)
	admin := newController(t)
	f.pairDirectly(t, admin, pairing.PermissionAdmin)
	h := NewPairings()
	handles := f.handles(verifiedSession(admin.id))

	guest := newController(t)
	resp := post(t, h, handles, "/pairings", pairingsRequest(tlv.MethodAddPairing).
		Append(tlv.TypeIdentifier, guest.rawID).
		Append(tlv.TypePublicKey, guest.pub).
		AppendByte(tlv.TypePermissions, pairing.PermissionUser))
	requireOK(t, resp)
	assert.Contains(t, f.recorder.all(), events.Event(events.ControllerPaired{ID: guest.id}))

	list := post(t, h, handles, "/pairings", pairingsRequest(tlv.MethodListPairings))
	requireOK(t, list)
	records := list.Records()
	require.Len(t, records, 2)
	var ids []string
	for _, r := range records {
		id, _ := r.Get(tlv.TypeIdentifier)
		ids = append(ids, string(id))
	}
	assert.ElementsMatch(t, []string{strings.ToUpper(admin.id.String()), strings.ToUpper(guest.id.String())}, ids)

	resp = post(t, h, handles, "/pairings", pairingsRequest(tlv.MethodRemovePairing).Append(tlv.TypeIdentifier, guest.rawID))
	requireOK(t, resp)
	assert.Contains(t, f.recorder.all(), events.Event(events.ControllerUnpaired{ID: guest.id}))

	n, err := f.shared.Pairings.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPairings_AddUpdatesPermissions(t *testing.T) {
	f := newFixture(t)
	admin := newController(t)
	other := newController(t)
	f.pairDirectly(t, admin, pairing.PermissionAdmin)
	f.pairDirectly(t, other, pairing.PermissionUser)
	h := NewPairings()
	handles := f.handles(verifiedSession(admin.id))

	resp := post(t, h, handles, "/pairings", pairingsRequest(tlv.MethodAddPairing).
		Append(tlv.TypeIdentifier, other.rawID).
		Append(tlv.TypePublicKey, other.pub).
		AppendByte(tlv.TypePermissions, pairing.PermissionAdmin))
	requireOK(t, resp)

	p, err := f.shared.Pairings.Load(context.Background(), other.id)
	require.NoError(t, err)
	assert.True(t, p.IsAdmin())
	assert.Empty(t, f.recorder.all(), "permission updates are not new pairings")

	// same id, different key
	resp = post(t, h, handles, "/pairings", pairingsRequest(tlv.MethodAddPairing).
		Append(tlv.TypeIdentifier, other.rawID).
		Append(tlv.TypePublicKey, newController(t).pub).
		AppendByte(tlv.TypePermissions, pairing.PermissionUser))
	requireTLVError(t, resp, 2, tlv.ErrorUnknown)
}

func TestPairings_AddRespectsLimit(t *testing.T) {
	f := newFixture(t)
	admin := newController(t)
	f.pairDirectly(t, admin, pairing.PermissionAdmin)
	for range pairing.MaxPairings - 1 {
		f.pairDirectly(t, newController(t), pairing.PermissionUser)
	}

	extra := newController(t)
	resp := post(t, NewPairings(), f.handles(verifiedSession(admin.id)), "/pairings", pairingsRequest(tlv.MethodAddPairing).
		Append(tlv.TypeIdentifier, extra.rawID).
		Append(tlv.TypePublicKey, extra.pub).
		AppendByte(tlv.TypePermissions, pairing.PermissionUser))
	requireTLVError(t, resp, 2, tlv.ErrorMaxPeers)
}

func TestPairings_RemoveUnknownSucceeds(t *testing.T) {
	f := newFixture(t)
	admin := newController(t)
	f.pairDirectly(t, admin, pairing.PermissionAdmin)

	resp := post(t, NewPairings(), f.handles(verifiedSession(admin.id)), "/pairings",
		pairingsRequest(tlv.MethodRemovePairing).Append(tlv.TypeIdentifier, newController(t).rawID))
	requireOK(t, resp)
	assert.Empty(t, f.recorder.all())
}

func TestPairings_RemovingLastAdminClearsEverything(t *testing.T) {
	f := newFixture(t)
	admin := newController(t)
	user := newController(t)
	f.pairDirectly(t, admin, pairing.PermissionAdmin)
	f.pairDirectly(t, user, pairing.PermissionUser)

	resp := post(t, NewPairings(), f.handles(verifiedSession(admin.id)), "/pairings",
		pairingsRequest(tlv.MethodRemovePairing).Append(tlv.TypeIdentifier, admin.rawID))
	requireOK(t, resp)

	paired, err := f.shared.Pairings.IsPaired(context.Background())
	require.NoError(t, err)
	assert.False(t, paired)

	evs := f.recorder.all()
	assert.Contains(t, evs, events.Event(events.ControllerUnpaired{ID: admin.id}))
	assert.Contains(t, evs, events.Event(events.ControllerUnpaired{ID: user.id}))
	assert.Len(t, evs, 2)
}

func TestPairings_UnknownMethod(t *testing.T) {
	f := newFixture(t)
	admin := newController(t)
	f.pairDirectly(t, admin, pairing.PermissionAdmin)

	resp := post(t, NewPairings(), f.handles(verifiedSession(admin.id)), "/pairings", pairingsRequest(0x42))
	requireTLVError(t, resp, 2, tlv.ErrorUnknown)
}
