package accessory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	herrors "github.com/jmylchreest/hapd/internal/errors"
	"github.com/jmylchreest/hapd/internal/events"
)

// IdentifyFunc runs the accessory's identify routine (blink a light etc.).
type IdentifyFunc func(ctx context.Context, aid uint64) error

// Database is the live accessory tree. It is safe for concurrent use and
// emits CharacteristicValueChanged for every value it changes.
type Database struct {
	mu          sync.RWMutex
	accessories []*Accessory

	emitter  *events.Emitter
	identify IdentifyFunc
	logger   *slog.Logger
}

// NewDatabase creates an empty database. emitter may be nil.
func NewDatabase(emitter *events.Emitter, logger *slog.Logger) *Database {
	if logger == nil {
		logger = slog.Default()
	}
	return &Database{emitter: emitter, logger: logger}
}

// OnIdentify sets the identify routine.
func (db *Database) OnIdentify(fn IdentifyFunc) {
	db.mu.Lock()
	db.identify = fn
	db.mu.Unlock()
}

// Add validates an accessory, normalizes its initial values and inserts it.
func (db *Database) Add(a *Accessory) error {
	if a.AID == 0 {
		return herrors.InvalidInputf("accessory id must be non-zero")
	}
	seen := make(map[uint64]bool)
	for _, s := range a.Services {
		if seen[s.IID] {
			return herrors.InvalidInputf("accessory %d: duplicate iid %d", a.AID, s.IID)
		}
		seen[s.IID] = true
		for _, c := range s.Characteristics {
			if seen[c.IID] {
				return herrors.InvalidInputf("accessory %d: duplicate iid %d", a.AID, c.IID)
			}
			seen[c.IID] = true
			if c.Value == nil {
				continue
			}
			v, err := c.Normalize(c.Value)
			if err != nil {
				return herrors.InvalidInputf("accessory %d characteristic %d: %v", a.AID, c.IID, err)
			}
			c.Value = v
		}
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	for _, existing := range db.accessories {
		if existing.AID == a.AID {
			return herrors.InvalidInputf("accessory %d already exists", a.AID)
		}
	}
	db.accessories = append(db.accessories, a.clone())
	sort.Slice(db.accessories, func(i, j int) bool { return db.accessories[i].AID < db.accessories[j].AID })
	return nil
}

// Accessory returns a copy of the accessory with the given id.
func (db *Database) Accessory(aid uint64) (*Accessory, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	a := db.find(aid)
	if a == nil {
		return nil, false
	}
	return a.clone(), true
}

// Accessories returns a copy of every accessory, ordered by id.
func (db *Database) Accessories() []*Accessory {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]*Accessory, len(db.accessories))
	for i, a := range db.accessories {
		out[i] = a.clone()
	}
	return out
}

// Characteristic returns a copy of one characteristic.
func (db *Database) Characteristic(aid, iid uint64) (*Characteristic, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	c := db.characteristic(aid, iid)
	if c == nil {
		return nil, false
	}
	return c.clone(), true
}

// AsSerializedJSON renders {"accessories":[...]}.
func (db *Database) AsSerializedJSON() ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return json.Marshal(struct {
		Accessories []*Accessory `json:"accessories"`
	}{Accessories: db.accessories})
}

func (db *Database) find(aid uint64) *Accessory {
	for _, a := range db.accessories {
		if a.AID == aid {
			return a
		}
	}
	return nil
}

func (db *Database) characteristic(aid, iid uint64) *Characteristic {
	a := db.find(aid)
	if a == nil {
		return nil
	}
	c, _ := a.Characteristic(iid)
	return c
}

// ReadRequest selects characteristics and optional metadata.
type ReadRequest struct {
	IDs   []CharacteristicID
	Meta  bool
	Perms bool
	Type  bool
}

// ReadResult is one entry of a characteristics read response.
type ReadResult struct {
	AID    uint64
	IID    uint64
	Value  any
	Status int

	// Set when the request asked for metadata, permissions or type.
	Char *Characteristic

	// Ev is filled by the caller when event state was requested.
	Ev *bool

	// ReportStatus adds "status":0 to successful entries, as a 207
	// response requires.
	ReportStatus bool

	meta, perms, typ bool
}

// MarshalJSON renders the HAP characteristics entry.
func (r ReadResult) MarshalJSON() ([]byte, error) {
	m := map[string]any{"aid": r.AID, "iid": r.IID}
	if r.Status != herrors.HAPStatusSuccess {
		m["status"] = r.Status
		return json.Marshal(m)
	}
	if r.ReportStatus {
		m["status"] = herrors.HAPStatusSuccess
	}
	m["value"] = r.Value
	if r.Char != nil {
		if r.typ {
			m["type"] = r.Char.Type
		}
		if r.perms {
			m["perms"] = r.Char.Perms
		}
		if r.meta {
			m["format"] = r.Char.Format
			addMeta(m, r.Char)
		}
	}
	if r.Ev != nil {
		m["ev"] = *r.Ev
	}
	return json.Marshal(m)
}

// Read returns one result per requested id, with a HAP status for failures.
func (db *Database) Read(_ context.Context, req ReadRequest) []ReadResult {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make([]ReadResult, 0, len(req.IDs))
	for _, id := range req.IDs {
		res := ReadResult{AID: id.AID, IID: id.IID, meta: req.Meta, perms: req.Perms, typ: req.Type}
		c := db.characteristic(id.AID, id.IID)
		switch {
		case c == nil:
			res.Status = herrors.HAPStatusResourceDoesNotExist
		case !c.Readable():
			res.Status = herrors.HAPStatusWriteOnly
		default:
			res.Value = c.Value
			if req.Meta || req.Perms || req.Type {
				res.Char = c.clone()
			}
		}
		out = append(out, res)
	}
	return out
}

// WriteRequest is one entry of a characteristics write.
type WriteRequest struct {
	AID   uint64          `json:"aid"`
	IID   uint64          `json:"iid"`
	Value json.RawMessage `json:"value,omitempty"`
	Ev    *bool           `json:"ev,omitempty"`
}

// HasValue reports whether the request carries a value to write.
func (w WriteRequest) HasValue() bool { return len(w.Value) > 0 }

// WriteResult is the HAP status of one write.
type WriteResult struct {
	AID    uint64 `json:"aid"`
	IID    uint64 `json:"iid"`
	Status int    `json:"status"`
}

type change struct {
	aid, iid uint64
	value    any
	identify bool
}

// Write applies the value part of each request. Event subscription is the
// caller's concern. Changed values are emitted after the lock is released.
func (db *Database) Write(ctx context.Context, reqs []WriteRequest) []WriteResult {
	results := make([]WriteResult, len(reqs))
	var changes []change

	db.mu.Lock()
	for i, req := range reqs {
		results[i] = WriteResult{AID: req.AID, IID: req.IID}
		if !req.HasValue() {
			continue
		}
		ch, status := db.set(req.AID, req.IID, req.Value, true)
		results[i].Status = status
		if ch != nil {
			changes = append(changes, *ch)
		}
	}
	identify := db.identify
	db.mu.Unlock()

	db.publish(ctx, changes, identify)
	return results
}

// SetValue changes a value on behalf of the accessory itself (admin API,
// device drivers). Permissions are not checked.
func (db *Database) SetValue(ctx context.Context, aid, iid uint64, value any) error {
	db.mu.Lock()
	ch, status := db.set(aid, iid, value, false)
	identify := db.identify
	db.mu.Unlock()

	switch status {
	case herrors.HAPStatusSuccess:
	case herrors.HAPStatusResourceDoesNotExist:
		return herrors.NotFoundf("characteristic %d.%d", aid, iid)
	default:
		return herrors.InvalidInputf("characteristic %d.%d rejected value (status %d)", aid, iid, status)
	}

	if ch != nil {
		db.publish(ctx, []change{*ch}, identify)
	}
	return nil
}

// set must be called with mu held.
func (db *Database) set(aid, iid uint64, raw any, checkPerms bool) (*change, int) {
	c := db.characteristic(aid, iid)
	if c == nil {
		return nil, herrors.HAPStatusResourceDoesNotExist
	}
	if checkPerms && !c.Writable() {
		return nil, herrors.HAPStatusReadOnly
	}
	v, err := c.Normalize(raw)
	if err != nil {
		db.logger.Debug("Rejected characteristic value", "aid", aid, "iid", iid, "error", err)
		return nil, herrors.HAPStatusInvalidValue
	}

	if c.Type == CharIdentify {
		// identify is an action, not state
		if b, _ := v.(bool); b {
			return &change{aid: aid, iid: iid, identify: true}, herrors.HAPStatusSuccess
		}
		return nil, herrors.HAPStatusSuccess
	}

	if c.Value == v {
		return nil, herrors.HAPStatusSuccess
	}
	c.Value = v
	return &change{aid: aid, iid: iid, value: v}, herrors.HAPStatusSuccess
}

func (db *Database) publish(ctx context.Context, changes []change, identify IdentifyFunc) {
	for _, ch := range changes {
		if ch.identify {
			if identify != nil {
				if err := identify(ctx, ch.aid); err != nil {
					db.logger.Warn("Identify routine failed", "aid", ch.aid, "error", err)
				}
			}
			continue
		}
		if db.emitter != nil {
			db.emitter.Emit(ctx, events.CharacteristicValueChanged{AID: ch.aid, IID: ch.iid, Value: ch.value})
		}
	}
}

// Identify runs the identify routine for the bridge.
func (db *Database) Identify(ctx context.Context) error {
	db.mu.RLock()
	identify := db.identify
	db.mu.RUnlock()

	if identify == nil {
		db.logger.Info("Identify requested but no routine is configured")
		return nil
	}
	if err := identify(ctx, 1); err != nil {
		return fmt.Errorf("identify: %w", err)
	}
	return nil
}
