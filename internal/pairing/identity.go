package pairing

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmylchreest/hapd/internal/storage"
)

const identityKey = "identity"

// Identity is the accessory's long-term signing key and its device id.
type Identity struct {
	// PairingID is the "XX:XX:XX:XX:XX:XX" device id advertised over mDNS
	// and used as the accessory pairing identifier.
	PairingID  string             `json:"pairing_id"`
	PublicKey  ed25519.PublicKey  `json:"public_key"`
	PrivateKey ed25519.PrivateKey `json:"private_key"`
}

// Sign signs msg with the accessory long-term key.
func (id *Identity) Sign(msg []byte) []byte {
	return ed25519.Sign(id.PrivateKey, msg)
}

// NewIdentity generates a fresh identity.
func NewIdentity() (*Identity, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating long-term key: %w", err)
	}
	mac := make([]byte, 6)
	if _, err := rand.Read(mac); err != nil {
		return nil, fmt.Errorf("generating device id: %w", err)
	}
	return &Identity{
		PairingID:  fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", mac[0], mac[1], mac[2], mac[3], mac[4], mac[5]),
		PublicKey:  pub,
		PrivateKey: priv,
	}, nil
}

// LoadOrCreateIdentity returns the persisted identity, creating and storing
// one on first start.
func LoadOrCreateIdentity(ctx context.Context, store storage.Store) (*Identity, error) {
	data, err := store.Get(ctx, identityKey)
	switch {
	case err == nil:
		var id Identity
		if err := json.Unmarshal(data, &id); err != nil {
			return nil, fmt.Errorf("decoding identity: %w", err)
		}
		if len(id.PrivateKey) != ed25519.PrivateKeySize || len(id.PublicKey) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("stored identity has invalid key sizes")
		}
		return &id, nil
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("loading identity: %w", err)
	}

	id, err := NewIdentity()
	if err != nil {
		return nil, err
	}
	data, err = json.Marshal(id)
	if err != nil {
		return nil, fmt.Errorf("encoding identity: %w", err)
	}
	if err := store.Set(ctx, identityKey, data); err != nil {
		return nil, fmt.Errorf("saving identity: %w", err)
	}
	return id, nil
}
