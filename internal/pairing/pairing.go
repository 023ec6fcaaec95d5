// Package pairing persists controller pairings and the accessory's long-term
// identity.
package pairing

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	herrors "github.com/jmylchreest/hapd/internal/errors"
	"github.com/jmylchreest/hapd/internal/storage"
)

// Permission values stored with a pairing.
const (
	PermissionUser  byte = 0x00
	PermissionAdmin byte = 0x01
)

// MaxPairings is the number of controllers that may be paired at once.
const MaxPairings = 16

const keyPrefix = "pairing/"

// Pairing is one paired controller.
type Pairing struct {
	ID          uuid.UUID         `json:"id"`
	PublicKey   ed25519.PublicKey `json:"public_key"`
	Permissions byte              `json:"permissions"`
}

// IsAdmin reports whether the controller may manage other pairings.
func (p Pairing) IsAdmin() bool {
	return p.Permissions&PermissionAdmin != 0
}

// ParseControllerID parses the pairing identifier a controller sends.
func ParseControllerID(b []byte) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(string(b)))
	if err != nil {
		return uuid.Nil, herrors.InvalidInputf("controller id %q: %v", string(b), err)
	}
	return id, nil
}

// Registry stores pairings in a storage.Store.
type Registry struct {
	// mu makes multi-key operations (HasAdmin, DeleteAll) consistent with
	// concurrent single-key writes.
	mu    sync.RWMutex
	store storage.Store
}

// NewRegistry creates a registry backed by store.
func NewRegistry(store storage.Store) *Registry {
	return &Registry{store: store}
}

// Save adds or replaces a pairing.
func (r *Registry) Save(ctx context.Context, p Pairing) error {
	if p.ID == uuid.Nil {
		return herrors.InvalidInputf("pairing without controller id")
	}
	if len(p.PublicKey) != ed25519.PublicKeySize {
		return herrors.InvalidInputf("pairing %s: public key must be %d bytes", p.ID, ed25519.PublicKeySize)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding pairing %s: %w", p.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Set(ctx, keyPrefix+p.ID.String(), data)
}

// Load returns the pairing for id or an error wrapping ErrNotFound.
func (r *Registry) Load(ctx context.Context, id uuid.UUID) (Pairing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.load(ctx, keyPrefix+id.String())
}

func (r *Registry) load(ctx context.Context, key string) (Pairing, error) {
	data, err := r.store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return Pairing{}, herrors.NotFoundf("pairing %s", strings.TrimPrefix(key, keyPrefix))
	}
	if err != nil {
		return Pairing{}, err
	}
	var p Pairing
	if err := json.Unmarshal(data, &p); err != nil {
		return Pairing{}, fmt.Errorf("decoding %s: %w", key, err)
	}
	return p, nil
}

// Delete removes a pairing. Deleting an unknown id returns ErrNotFound.
func (r *Registry) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.store.Delete(ctx, keyPrefix+id.String())
	if errors.Is(err, storage.ErrNotFound) {
		return herrors.NotFoundf("pairing %s", id)
	}
	return err
}

// List returns all pairings ordered by controller id.
func (r *Registry) List(ctx context.Context) ([]Pairing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.list(ctx)
}

func (r *Registry) list(ctx context.Context) ([]Pairing, error) {
	keys, err := r.store.Keys(ctx, keyPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]Pairing, 0, len(keys))
	for _, k := range keys {
		p, err := r.load(ctx, k)
		if herrors.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

// Count returns the number of pairings.
func (r *Registry) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys, err := r.store.Keys(ctx, keyPrefix)
	return len(keys), err
}

// IsPaired reports whether at least one controller is paired.
func (r *Registry) IsPaired(ctx context.Context) (bool, error) {
	n, err := r.Count(ctx)
	return n > 0, err
}

// HasAdmin reports whether any admin pairing remains.
func (r *Registry) HasAdmin(ctx context.Context) (bool, error) {
	pairings, err := r.List(ctx)
	if err != nil {
		return false, err
	}
	for _, p := range pairings {
		if p.IsAdmin() {
			return true, nil
		}
	}
	return false, nil
}

// DeleteAll removes every pairing and returns the removed controller ids.
func (r *Registry) DeleteAll(ctx context.Context) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pairings, err := r.list(ctx)
	if err != nil {
		return nil, err
	}
	removed := make([]uuid.UUID, 0, len(pairings))
	for _, p := range pairings {
		if err := r.store.Delete(ctx, keyPrefix+p.ID.String()); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return removed, err
		}
		removed = append(removed, p.ID)
	}
	return removed, nil
}
