package accessory

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	herrors "github.com/jmylchreest/hapd/internal/errors"
	"github.com/jmylchreest/hapd/internal/events"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr[T any](v T) *T { return &v }

func lightbulb(aid uint64) *Accessory {
	a := &Accessory{AID: aid, Services: []*Service{InformationService(Info{Name: "Desk Lamp"})}}
	a.Services = append(a.Services, &Service{
		IID:     8,
		Type:    ServiceLightbulb,
		Primary: true,
		Characteristics: []*Characteristic{
			{IID: 9, Type: CharOn, Format: FormatBool, Perms: []Perm{PermPairedRead, PermPairedWrite, PermEvents}, Value: false},
			{IID: 10, Type: CharBrightness, Format: FormatInt, Perms: []Perm{PermPairedRead, PermPairedWrite, PermEvents},
				Value: 50, Unit: "percentage", MinValue: ptr(0.0), MaxValue: ptr(100.0), MinStep: ptr(1.0)},
		},
	})
	return a
}

type capture struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *capture) listen(_ context.Context, e events.Event) {
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
}

func (c *capture) all() []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]events.Event(nil), c.events...)
}

func newTestDB(t *testing.T) (*Database, *capture) {
	t.Helper()
	em := events.NewEmitter(testLogger())
	rec := &capture{}
	sub := em.AddListener(rec.listen)
	t.Cleanup(sub.Close)

	db := NewDatabase(em, testLogger())
	require.NoError(t, db.Add(NewBridge(Info{Name: "Bridge", Manufacturer: "hapd", Model: "hapd", SerialNumber: "1", Firmware: "1.0.0"})))
	require.NoError(t, db.Add(lightbulb(2)))
	return db, rec
}

func TestAdd_Validates(t *testing.T) {
	db := NewDatabase(nil, testLogger())

	assert.True(t, herrors.IsInvalidInput(db.Add(&Accessory{AID: 0})))

	dup := lightbulb(2)
	dup.Services[1].Characteristics[1].IID = 9
	assert.True(t, herrors.IsInvalidInput(db.Add(dup)))

	bad := lightbulb(2)
	bad.Services[1].Characteristics[1].Value = 500
	assert.True(t, herrors.IsInvalidInput(db.Add(bad)))

	require.NoError(t, db.Add(lightbulb(2)))
	assert.True(t, herrors.IsInvalidInput(db.Add(lightbulb(2))), "aid must be unique")
}

func TestAsSerializedJSON(t *testing.T) {
	db, _ := newTestDB(t)

	raw, err := db.AsSerializedJSON()
	require.NoError(t, err)

	var doc struct {
		Accessories []struct {
			AID      uint64 `json:"aid"`
			Services []struct {
				Type            string           `json:"type"`
				Characteristics []map[string]any `json:"characteristics"`
			} `json:"services"`
		} `json:"accessories"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Len(t, doc.Accessories, 2)
	assert.Equal(t, uint64(1), doc.Accessories[0].AID)
	assert.Equal(t, ServiceAccessoryInformation, doc.Accessories[0].Services[0].Type)

	// identify is write-only: no value in the listing
	identify := doc.Accessories[0].Services[0].Characteristics[0]
	assert.Equal(t, CharIdentify, identify["type"])
	assert.NotContains(t, identify, "value")

	brightness := doc.Accessories[1].Services[1].Characteristics[1]
	assert.Equal(t, float64(50), brightness["value"])
	assert.Equal(t, "percentage", brightness["unit"])
	assert.Equal(t, float64(100), brightness["maxValue"])
}

func TestRead_Statuses(t *testing.T) {
	db, _ := newTestDB(t)

	results := db.Read(context.Background(), ReadRequest{IDs: []CharacteristicID{
		{AID: 2, IID: 10},
		{AID: 2, IID: 99},
		{AID: 7, IID: 1},
		{AID: 1, IID: 2},
	}})
	require.Len(t, results, 4)
	assert.Equal(t, herrors.HAPStatusSuccess, results[0].Status)
	assert.Equal(t, int64(50), results[0].Value)
	assert.Equal(t, herrors.HAPStatusResourceDoesNotExist, results[1].Status)
	assert.Equal(t, herrors.HAPStatusResourceDoesNotExist, results[2].Status)
	assert.Equal(t, herrors.HAPStatusWriteOnly, results[3].Status)
}

func TestReadResult_JSON(t *testing.T) {
	db, _ := newTestDB(t)

	results := db.Read(context.Background(), ReadRequest{
		IDs:  []CharacteristicID{{AID: 2, IID: 9}, {AID: 2, IID: 99}},
		Meta: true, Perms: true, Type: true,
	})
	ev := true
	results[0].Ev = &ev

	raw, err := json.Marshal(results)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"aid":2,"iid":9,"value":false,"type":"25","perms":["pr","pw","ev"],"format":"bool","ev":true},
		{"aid":2,"iid":99,"status":-70409}
	]`, string(raw))
}

func TestWrite_EmitsOnChange(t *testing.T) {
	db, rec := newTestDB(t)
	ctx := context.Background()

	results := db.Write(ctx, []WriteRequest{
		{AID: 2, IID: 9, Value: json.RawMessage(`true`)},
		{AID: 2, IID: 10, Value: json.RawMessage(`50`)},
	})
	require.Len(t, results, 2)
	assert.Equal(t, herrors.HAPStatusSuccess, results[0].Status)
	assert.Equal(t, herrors.HAPStatusSuccess, results[1].Status)

	// brightness did not change, so only "on" is reported
	got := rec.all()
	require.Len(t, got, 1)
	assert.Equal(t, events.CharacteristicValueChanged{AID: 2, IID: 9, Value: true}, got[0])

	c, ok := db.Characteristic(2, 9)
	require.True(t, ok)
	assert.Equal(t, true, c.Value)
}

func TestWrite_Statuses(t *testing.T) {
	db, rec := newTestDB(t)

	results := db.Write(context.Background(), []WriteRequest{
		{AID: 1, IID: 5, Value: json.RawMessage(`"renamed"`)},
		{AID: 2, IID: 10, Value: json.RawMessage(`101`)},
		{AID: 2, IID: 10, Value: json.RawMessage(`"bright"`)},
		{AID: 3, IID: 10, Value: json.RawMessage(`1`)},
		{AID: 2, IID: 9, Ev: ptr(true)},
	})
	assert.Equal(t, herrors.HAPStatusReadOnly, results[0].Status)
	assert.Equal(t, herrors.HAPStatusInvalidValue, results[1].Status)
	assert.Equal(t, herrors.HAPStatusInvalidValue, results[2].Status)
	assert.Equal(t, herrors.HAPStatusResourceDoesNotExist, results[3].Status)
	assert.Equal(t, herrors.HAPStatusSuccess, results[4].Status, "ev-only writes are left to the caller")
	assert.Empty(t, rec.all())
}

func TestWrite_IdentifyRunsRoutine(t *testing.T) {
	db, rec := newTestDB(t)

	var identified []uint64
	db.OnIdentify(func(_ context.Context, aid uint64) error {
		identified = append(identified, aid)
		return nil
	})

	results := db.Write(context.Background(), []WriteRequest{{AID: 2, IID: 2, Value: json.RawMessage(`true`)}})
	assert.Equal(t, herrors.HAPStatusSuccess, results[0].Status)
	assert.Equal(t, []uint64{2}, identified)
	assert.Empty(t, rec.all(), "identify is not a value change")
}

func TestSetValue(t *testing.T) {
	db, rec := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SetValue(ctx, 2, 10, 75))
	got := rec.all()
	require.Len(t, got, 1)
	assert.Equal(t, events.CharacteristicValueChanged{AID: 2, IID: 10, Value: int64(75)}, got[0])

	// the accessory itself may change read-only values
	require.NoError(t, db.SetValue(ctx, 1, 7, "2.0.0"))

	assert.True(t, herrors.IsNotFound(db.SetValue(ctx, 9, 9, 1)))
	assert.True(t, herrors.IsInvalidInput(db.SetValue(ctx, 2, 10, -1)))
}

func TestIdentify(t *testing.T) {
	db, _ := newTestDB(t)
	require.NoError(t, db.Identify(context.Background()), "no routine is not an error")

	called := false
	db.OnIdentify(func(_ context.Context, aid uint64) error {
		called = aid == 1
		return nil
	})
	require.NoError(t, db.Identify(context.Background()))
	assert.True(t, called)
}

func TestAccessory_ReturnsCopy(t *testing.T) {
	db, _ := newTestDB(t)

	a, ok := db.Accessory(2)
	require.True(t, ok)
	assert.Equal(t, "Desk Lamp", a.Name())
	a.Services[1].Characteristics[0].Value = true

	c, _ := db.Characteristic(2, 9)
	assert.Equal(t, false, c.Value)

	_, ok = db.Accessory(42)
	assert.False(t, ok)
	assert.Len(t, db.Accessories(), 2)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		char    Characteristic
		in      any
		want    any
		wantErr bool
	}{
		{"bool", Characteristic{Format: FormatBool}, true, true, false},
		{"bool from 1", Characteristic{Format: FormatBool}, float64(1), true, false},
		{"bool from 2", Characteristic{Format: FormatBool}, float64(2), nil, true},
		{"uint8", Characteristic{Format: FormatUInt8}, float64(200), uint64(200), false},
		{"uint8 overflow", Characteristic{Format: FormatUInt8}, float64(256), nil, true},
		{"uint8 negative", Characteristic{Format: FormatUInt8}, -1, nil, true},
		{"uint64 large", Characteristic{Format: FormatUInt64}, float64(1 << 53), uint64(1 << 53), false},
		{"uint64 overflow", Characteristic{Format: FormatUInt64}, float64(1 << 64), nil, true},
		{"int fraction", Characteristic{Format: FormatInt}, 1.5, nil, true},
		{"int json", Characteristic{Format: FormatInt}, json.RawMessage(`-4`), int64(-4), false},
		{"float bounds", Characteristic{Format: FormatFloat, MinValue: ptr(-10.0), MaxValue: ptr(40.0)}, 21.5, 21.5, false},
		{"float below", Characteristic{Format: FormatFloat, MinValue: ptr(-10.0)}, -11, nil, true},
		{"string", Characteristic{Format: FormatString}, "hello", "hello", false},
		{"string too long", Characteristic{Format: FormatString, MaxLen: ptr(3)}, "hello", nil, true},
		{"string wrong type", Characteristic{Format: FormatString}, 3, nil, true},
		{"data", Characteristic{Format: FormatData}, "AAEC", "AAEC", false},
		{"bad json", Characteristic{Format: FormatInt}, json.RawMessage(`{`), nil, true},
		{"unknown format", Characteristic{Format: "array"}, 1, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.char.Normalize(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse(t *testing.T) {
	doc := `
accessories:
  - aid: 2
    name: Desk Lamp
    manufacturer: Acme
    model: L1
    services:
      - type: "43"
        primary: true
        characteristics:
          - type: "25"
            format: bool
            perms: [pr, pw, ev]
            value: false
          - type: "8"
            format: int
            perms: [pr, pw, ev]
            value: 40
            min_value: 0
            max_value: 100
`
	accs, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, accs, 1)

	a := accs[0]
	assert.Equal(t, "Desk Lamp", a.Name())
	require.Len(t, a.Services, 2)
	assert.Equal(t, uint64(8), a.Services[1].IID)
	assert.Equal(t, uint64(9), a.Services[1].Characteristics[0].IID)
	assert.Equal(t, uint64(10), a.Services[1].Characteristics[1].IID)
	assert.Equal(t, 100.0, *a.Services[1].Characteristics[1].MaxValue)

	db := NewDatabase(nil, testLogger())
	require.NoError(t, db.Add(a))
	c, _ := db.Characteristic(2, 10)
	assert.Equal(t, int64(40), c.Value)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("accessories:\n  - aid: 1\n    name: x\n"))
	assert.Error(t, err, "aid 1 is reserved")

	_, err = Parse([]byte("accessories:\n  - aid: 2\n"))
	assert.Error(t, err, "name required")

	_, err = Parse([]byte("accessories:\n  - aid: 2\n    name: x\n    services:\n      - type: '43'\n        characteristics:\n          - type: '25'\n"))
	assert.Error(t, err, "format required")

	_, err = Parse([]byte("accessories: ["))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accessories.yaml")
	require.NoError(t, os.WriteFile(path, []byte("accessories:\n  - aid: 3\n    name: Switch\n"), 0644))

	accs, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, accs, 1)
	assert.Equal(t, uint64(3), accs[0].AID)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
