package hapcrypto

import (
	"crypto/rand"
	"crypto/sha512"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// HKDF salt and info labels.
const (
	PairSetupEncryptSalt        = "Pair-Setup-Encrypt-Salt"
	PairSetupEncryptInfo        = "Pair-Setup-Encrypt-Info"
	PairSetupControllerSignSalt = "Pair-Setup-Controller-Sign-Salt"
	PairSetupControllerSignInfo = "Pair-Setup-Controller-Sign-Info"
	PairSetupAccessorySignSalt  = "Pair-Setup-Accessory-Sign-Salt"
	PairSetupAccessorySignInfo  = "Pair-Setup-Accessory-Sign-Info"
	PairVerifyEncryptSalt       = "Pair-Verify-Encrypt-Salt"
	PairVerifyEncryptInfo       = "Pair-Verify-Encrypt-Info"
	ControlSalt                 = "Control-Salt"
	ControlReadEncryptionKey    = "Control-Read-Encryption-Key"
	ControlWriteEncryptionKey   = "Control-Write-Encryption-Key"
)

// Nonce labels for the encrypted sub-TLVs.
const (
	NoncePairSetupM5  = "PS-Msg05"
	NoncePairSetupM6  = "PS-Msg06"
	NoncePairVerifyM2 = "PV-Msg02"
	NoncePairVerifyM3 = "PV-Msg03"
)

// KeySize is the length of every derived symmetric key.
const KeySize = 32

// DeriveKey runs HKDF-SHA512 and returns a 32 byte key.
func DeriveKey(secret []byte, salt, info string) ([]byte, error) {
	r := hkdf.New(sha512.New, secret, []byte(salt), []byte(info))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("hkdf %s: %w", info, err)
	}
	return key, nil
}

// nonce left-pads an 8 byte label to the 12 byte ChaCha20-Poly1305 nonce.
func nonce(label string) []byte {
	n := make([]byte, chacha20poly1305.NonceSize)
	copy(n[chacha20poly1305.NonceSize-len(label):], label)
	return n
}

// Seal encrypts and authenticates plaintext. The tag is appended.
func Seal(key []byte, label string, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce(label), plaintext, nil), nil
}

// Open authenticates and decrypts ciphertext produced by Seal.
func Open(key []byte, label string, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	plain, err := aead.Open(nil, nonce(label), ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypting %s: %w", label, err)
	}
	return plain, nil
}

// GenerateCurve25519 returns a fresh X25519 key pair.
func GenerateCurve25519() (priv, pub []byte, err error) {
	priv = make([]byte, curve25519.ScalarSize)
	if _, err := rand.Read(priv); err != nil {
		return nil, nil, fmt.Errorf("generating curve25519 key: %w", err)
	}
	pub, err = curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return nil, nil, err
	}
	return priv, pub, nil
}

// SharedSecret computes the X25519 shared secret. Low-order peer keys are
// rejected.
func SharedSecret(priv, peerPub []byte) ([]byte, error) {
	if len(peerPub) != curve25519.PointSize {
		return nil, fmt.Errorf("curve25519 public key must be %d bytes", curve25519.PointSize)
	}
	return curve25519.X25519(priv, peerPub)
}
