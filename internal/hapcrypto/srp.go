// Package hapcrypto holds the primitives used by pair-setup and
// pair-verify: SRP-6a, HKDF key derivation, ChaCha20-Poly1305 sealing and
// Curve25519 key agreement.
package hapcrypto

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// SRPUsername is the fixed identity used by pair-setup.
const SRPUsername = "Pair-Setup"

// SaltSize is the length of the SRP salt sent in M2.
const SaltSize = 16

var (
	ErrInvalidPublicKey = errors.New("srp: invalid public key")
	ErrKeyNotComputed   = errors.New("srp: session key not computed")
)

// 3072-bit group from RFC 5054, generator 5.
var (
	groupN = mustHexBigInt(strings.Join([]string{
		"FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD129024E088A67CC74",
		"020BBEA63B139B22514A08798E3404DDEF9519B3CD3A431B302B0A6DF25F1437",
		"4FE1356D6D51C245E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED",
		"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3DC2007CB8A163BF05",
		"98DA48361C55D39A69163FA8FD24CF5F83655D23DCA3AD961C62F356208552BB",
		"9ED529077096966D670C354E4ABC9804F1746C08CA18217C32905E462E36CE3B",
		"E39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9DE2BCBF695581718",
		"3995497CEA956AE515D2261898FA051015728E5A8AAAC42DAD33170D04507A33",
		"A85521ABDF1CBA64ECFB850458DBEF0A8AEA71575D060C7DB3970F85A6E1E4C7",
		"ABF5AE8CDB0933D71E8C94E04A25619DCEE3D2261AD2EE6BF12FFA06D98A0864",
		"D87602733EC86A64521F2B18177B200CBBE117577A615D6C770988C0BAD946E2",
		"08E24FA074E5AB3143DB5BFCE0FD108E4B82D120A93AD2CAFFFFFFFFFFFFFFFF",
	}, ""))
	groupG = big.NewInt(5)

	// byte length of N, used for padding
	groupLen = (groupN.BitLen() + 7) / 8

	// k = H(N | PAD(g))
	multiplierK = new(big.Int).SetBytes(hash(groupN.Bytes(), pad(groupG)))
)

func mustHexBigInt(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("invalid hex string: " + s)
	}
	return n
}

func hash(parts ...[]byte) []byte {
	h := sha512.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

func pad(n *big.Int) []byte {
	return n.FillBytes(make([]byte, groupLen))
}

// verifierX computes x = H(salt | H(username ":" password)).
func verifierX(username, password string, salt []byte) *big.Int {
	inner := hash([]byte(username + ":" + password))
	return new(big.Int).SetBytes(hash(salt, inner))
}

// proofM1 computes H(H(N) xor H(g) | H(I) | s | A | B | K).
func proofM1(username string, salt, a, b, key []byte) []byte {
	hn := hash(groupN.Bytes())
	hg := hash(groupG.Bytes())
	for i := range hn {
		hn[i] ^= hg[i]
	}
	return hash(hn, hash([]byte(username)), salt, a, b, key)
}

// proofM2 computes H(A | M1 | K).
func proofM2(a, m1, key []byte) []byte {
	return hash(a, m1, key)
}

func scramblingU(a, b *big.Int) *big.Int {
	return new(big.Int).SetBytes(hash(pad(a), pad(b)))
}

func randomExponent() (*big.Int, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("srp: generating secret: %w", err)
	}
	return new(big.Int).SetBytes(buf), nil
}

// NewSalt returns a random SRP salt.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("srp: generating salt: %w", err)
	}
	return salt, nil
}

// SRPServer is the accessory side of one SRP-6a exchange.
type SRPServer struct {
	username string
	salt     []byte
	v        *big.Int
	b        *big.Int
	pubB     *big.Int

	pubA []byte
	key  []byte
	m1   []byte
}

// NewSRPServer prepares the verifier and ephemeral key for password.
func NewSRPServer(username, password string, salt []byte) (*SRPServer, error) {
	b, err := randomExponent()
	if err != nil {
		return nil, err
	}
	x := verifierX(username, password, salt)
	v := new(big.Int).Exp(groupG, x, groupN)

	// B = (k*v + g^b) % N
	pubB := new(big.Int).Mul(multiplierK, v)
	pubB.Add(pubB, new(big.Int).Exp(groupG, b, groupN))
	pubB.Mod(pubB, groupN)

	return &SRPServer{username: username, salt: salt, v: v, b: b, pubB: pubB}, nil
}

// Salt returns the salt the verifier was built with.
func (s *SRPServer) Salt() []byte { return s.salt }

// PublicKey returns B.
func (s *SRPServer) PublicKey() []byte { return s.pubB.Bytes() }

// ComputeKey derives the session key from the client's public key A.
func (s *SRPServer) ComputeKey(a []byte) ([]byte, error) {
	A := new(big.Int).SetBytes(a)
	if new(big.Int).Mod(A, groupN).Sign() == 0 {
		return nil, ErrInvalidPublicKey
	}
	u := scramblingU(A, s.pubB)
	if u.Sign() == 0 {
		return nil, ErrInvalidPublicKey
	}

	// S = (A * v^u) ^ b % N
	S := new(big.Int).Exp(s.v, u, groupN)
	S.Mul(S, A)
	S.Mod(S, groupN)
	S.Exp(S, s.b, groupN)

	s.pubA = a
	s.key = hash(S.Bytes())
	s.m1 = proofM1(s.username, s.salt, a, s.PublicKey(), s.key)
	return s.key, nil
}

// VerifyClientProof checks M1 and returns the server proof M2.
func (s *SRPServer) VerifyClientProof(m1 []byte) ([]byte, bool) {
	if s.key == nil {
		return nil, false
	}
	if subtle.ConstantTimeCompare(m1, s.m1) != 1 {
		return nil, false
	}
	return proofM2(s.pubA, m1, s.key), true
}

// Key returns the session key K once ComputeKey succeeded.
func (s *SRPServer) Key() ([]byte, error) {
	if s.key == nil {
		return nil, ErrKeyNotComputed
	}
	return s.key, nil
}

// SRPClient is the controller side of the exchange.
type SRPClient struct {
	username string
	password string
	a        *big.Int
	pubA     *big.Int

	key []byte
	m1  []byte
}

// NewSRPClient creates a client with a fresh ephemeral key.
func NewSRPClient(username, password string) (*SRPClient, error) {
	a, err := randomExponent()
	if err != nil {
		return nil, err
	}
	return &SRPClient{
		username: username,
		password: password,
		a:        a,
		pubA:     new(big.Int).Exp(groupG, a, groupN),
	}, nil
}

// PublicKey returns A.
func (c *SRPClient) PublicKey() []byte { return c.pubA.Bytes() }

// ComputeKey derives K and M1 from the server's salt and B.
func (c *SRPClient) ComputeKey(salt, b []byte) ([]byte, error) {
	B := new(big.Int).SetBytes(b)
	if new(big.Int).Mod(B, groupN).Sign() == 0 {
		return nil, ErrInvalidPublicKey
	}
	u := scramblingU(c.pubA, B)
	x := verifierX(c.username, c.password, salt)

	// S = (B - k*g^x) ^ (a + u*x) % N
	kgx := new(big.Int).Exp(groupG, x, groupN)
	kgx.Mul(kgx, multiplierK)
	base := new(big.Int).Sub(B, kgx)
	base.Mod(base, groupN)
	exp := new(big.Int).Mul(u, x)
	exp.Add(exp, c.a)
	S := new(big.Int).Exp(base, exp, groupN)

	c.key = hash(S.Bytes())
	c.m1 = proofM1(c.username, salt, c.PublicKey(), b, c.key)
	return c.key, nil
}

// Proof returns M1.
func (c *SRPClient) Proof() []byte { return c.m1 }

// VerifyServerProof checks M2.
func (c *SRPClient) VerifyServerProof(m2 []byte) bool {
	if c.key == nil {
		return false
	}
	return subtle.ConstantTimeCompare(m2, proofM2(c.PublicKey(), c.m1, c.key)) == 1
}
