package handlers

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/hapd/internal/accessory"
	"github.com/jmylchreest/hapd/internal/config"
	"github.com/jmylchreest/hapd/internal/dispatch"
	"github.com/jmylchreest/hapd/internal/events"
	"github.com/jmylchreest/hapd/internal/pairing"
	"github.com/jmylchreest/hapd/internal/session"
	"github.com/jmylchreest/hapd/internal/storage"
	"github.com/jmylchreest/hapd/internal/subscription"
	"github.com/jmylchreest/hapd/internal/tlv"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func ptr[T any](v T) *T { return &v }

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) listen(_ context.Context, e events.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) all() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

type fixture struct {
	shared   *dispatch.Shared
	recorder *recorder
}

func lamp(aid uint64) *accessory.Accessory {
	a := &accessory.Accessory{AID: aid, Services: []*accessory.Service{
		accessory.InformationService(accessory.Info{Name: "Desk Lamp"}),
	}}
	a.Services = append(a.Services, &accessory.Service{
		IID:     8,
		Type:    accessory.ServiceLightbulb,
		Primary: true,
		Characteristics: []*accessory.Characteristic{
			{IID: 9, Type: accessory.CharOn, Format: accessory.FormatBool,
				Perms: []accessory.Perm{accessory.PermPairedRead, accessory.PermPairedWrite, accessory.PermEvents}, Value: false},
			{IID: 10, Type: accessory.CharBrightness, Format: accessory.FormatInt,
				Perms: []accessory.Perm{accessory.PermPairedRead, accessory.PermPairedWrite},
				Value: 50, Unit: "percentage", MinValue: ptr(0.0), MaxValue: ptr(100.0), MinStep: ptr(1.0)},
		},
	})
	return a
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := testLogger()

	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	em := events.NewEmitter(logger)
	rec := &recorder{}
	sub := em.AddListener(rec.listen)
	t.Cleanup(sub.Close)

	db := accessory.NewDatabase(em, logger)
	require.NoError(t, db.Add(accessory.NewBridge(accessory.Info{
		Name: "Test Bridge", Manufacturer: "hapd", Model: "bridge", SerialNumber: "0001", Firmware: "1.0.0",
	})))
	require.NoError(t, db.Add(lamp(2)))

	id, err := pairing.NewIdentity()
	require.NoError(t, err)

	return &fixture{
		shared: &dispatch.Shared{
			Config:        config.New(viper.New()),
			Storage:       store,
			Accessories:   db,
			Subscriptions: subscription.NewTable(),
			Events:        em,
			Pairings:      pairing.NewRegistry(store),
			Identity:      id,
			Setup:         pairing.NewSetupCoordinator(),
			Sessions:      session.NewRegistry(logger),
			Logger:        logger,
		},
		recorder: rec,
	}
}

func (f *fixture) handles(s *session.Session) *dispatch.Handles {
	return &dispatch.Handles{Shared: f.shared, Session: s}
}

func verifiedSession(controller uuid.UUID) *session.Session {
	s := session.New(nil)
	s.SetVerified(controller, session.ControlKeys{})
	return s
}

func call(t *testing.T, h dispatch.Handler, handles *dispatch.Handles, method, target string, body []byte) *dispatch.Response {
	t.Helper()
	u, err := url.Parse(target)
	require.NoError(t, err)
	resp, err := h.Handle(context.Background(), &dispatch.Request{Method: method, URI: u, Body: body}, handles)
	require.NoError(t, err)
	require.NotNil(t, resp)
	return resp
}

func decodeTLV(t *testing.T, resp *dispatch.Response) *tlv.Container {
	t.Helper()
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, dispatch.ContentTypeTLV, resp.ContentType)
	c, err := tlv.Decode(resp.Body)
	require.NoError(t, err)
	return c
}

func requireTLVError(t *testing.T, c *tlv.Container, state byte, code tlv.ErrorCode) {
	t.Helper()
	gotState, _ := c.GetByte(tlv.TypeState)
	gotCode, ok := c.GetByte(tlv.TypeError)
	require.True(t, ok, "expected an error item")
	assert.Equal(t, state, gotState)
	assert.Equal(t, code, tlv.ErrorCode(gotCode))
}

// controller is a test stand-in for an iOS device.
type controller struct {
	id    uuid.UUID
	rawID []byte
	pub   ed25519.PublicKey
	priv  ed25519.PrivateKey
}

func newController(t *testing.T) *controller {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	id := uuid.New()
	return &controller{id: id, rawID: []byte(strings.ToUpper(id.String())), pub: pub, priv: priv}
}

// pairDirectly stores a pairing without running pair-setup.
func (f *fixture) pairDirectly(t *testing.T, c *controller, perms byte) {
	t.Helper()
	require.NoError(t, f.shared.Pairings.Save(context.Background(), pairing.Pairing{
		ID: c.id, PublicKey: c.pub, Permissions: perms,
	}))
}

func TestParseStep(t *testing.T) {
	_, err := parseStep(context.Background(), []byte{0x06})
	var ec *tlv.ErrorContainer
	require.ErrorAs(t, err, &ec)
	assert.Equal(t, tlv.ErrorUnknown, ec.Code)

	_, err = parseStep(context.Background(), tlv.New().AppendByte(tlv.TypeMethod, 0).Encode())
	require.ErrorAs(t, err, &ec)

	s, err := parseStep(context.Background(), tlv.New().AppendByte(tlv.TypeState, 3).AppendByte(tlv.TypeMethod, 5).Encode())
	require.NoError(t, err)
	assert.Equal(t, byte(3), s.state)
	assert.Equal(t, byte(5), s.method)
}

func TestAccessories_ListsDatabase(t *testing.T) {
	f := newFixture(t)
	h := dispatch.NewJSONHandler(Accessories{})

	resp := call(t, h, f.handles(session.New(nil)), "GET", "/accessories", nil)

	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, dispatch.ContentTypeJSON, resp.ContentType)
	assert.Contains(t, string(resp.Body), `"aid":1`)
	assert.Contains(t, string(resp.Body), `"aid":2`)
	assert.Empty(t, f.recorder.all(), "listing must not emit events")
}

func TestAccessories_IsReentrant(t *testing.T) {
	r, ok := dispatch.Handler(dispatch.NewJSONHandler(Accessories{})).(dispatch.Reentrant)
	require.True(t, ok)
	assert.True(t, r.Reentrant())
}

func TestIdentify(t *testing.T) {
	f := newFixture(t)
	var identified []uint64
	f.shared.Accessories.OnIdentify(func(_ context.Context, aid uint64) error {
		identified = append(identified, aid)
		return nil
	})
	h := dispatch.NewJSONHandler(Identify{})

	resp := call(t, h, f.handles(session.New(nil)), "POST", "/identify", nil)
	assert.Equal(t, 204, resp.Status)
	assert.Equal(t, []uint64{1}, identified)

	f.pairDirectly(t, newController(t), pairing.PermissionAdmin)
	resp = call(t, h, f.handles(session.New(nil)), "POST", "/identify", nil)
	assert.Equal(t, 400, resp.Status)
	assert.JSONEq(t, `{"status":-70401}`, string(resp.Body))
	assert.Len(t, identified, 1)
}
