package hapcrypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupParameters(t *testing.T) {
	assert.Equal(t, 3072, groupN.BitLen())
	assert.Equal(t, 384, groupLen)
	assert.True(t, groupN.ProbablyPrime(10))
}

func TestSRP_RoundTrip(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)

	server, err := NewSRPServer(SRPUsername, "031-45-154", salt)
	require.NoError(t, err)
	client, err := NewSRPClient(SRPUsername, "031-45-154")
	require.NoError(t, err)

	clientKey, err := client.ComputeKey(server.Salt(), server.PublicKey())
	require.NoError(t, err)
	serverKey, err := server.ComputeKey(client.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, clientKey, serverKey)

	m2, ok := server.VerifyClientProof(client.Proof())
	require.True(t, ok)
	assert.True(t, client.VerifyServerProof(m2))

	key, err := server.Key()
	require.NoError(t, err)
	assert.Len(t, key, 64)
}

func TestSRP_WrongPassword(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)

	server, err := NewSRPServer(SRPUsername, "031-45-154", salt)
	require.NoError(t, err)
	client, err := NewSRPClient(SRPUsername, "999-45-154")
	require.NoError(t, err)

	_, err = client.ComputeKey(server.Salt(), server.PublicKey())
	require.NoError(t, err)
	_, err = server.ComputeKey(client.PublicKey())
	require.NoError(t, err)

	_, ok := server.VerifyClientProof(client.Proof())
	assert.False(t, ok)
}

func TestSRP_RejectsZeroPublicKey(t *testing.T) {
	server, err := NewSRPServer(SRPUsername, "031-45-154", make([]byte, SaltSize))
	require.NoError(t, err)

	_, err = server.ComputeKey(make([]byte, 384))
	assert.ErrorIs(t, err, ErrInvalidPublicKey)

	_, err = server.ComputeKey(groupN.Bytes())
	assert.ErrorIs(t, err, ErrInvalidPublicKey)
}

func TestSRP_ProofBeforeKey(t *testing.T) {
	server, err := NewSRPServer(SRPUsername, "031-45-154", make([]byte, SaltSize))
	require.NoError(t, err)

	_, ok := server.VerifyClientProof([]byte("anything"))
	assert.False(t, ok)
	_, err = server.Key()
	assert.ErrorIs(t, err, ErrKeyNotComputed)
}

func TestDeriveKey(t *testing.T) {
	k1, err := DeriveKey([]byte("secret"), PairSetupEncryptSalt, PairSetupEncryptInfo)
	require.NoError(t, err)
	assert.Len(t, k1, KeySize)

	k2, err := DeriveKey([]byte("secret"), ControlSalt, ControlReadEncryptionKey)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)

	again, err := DeriveKey([]byte("secret"), PairSetupEncryptSalt, PairSetupEncryptInfo)
	require.NoError(t, err)
	assert.Equal(t, k1, again)
}

func TestNonce(t *testing.T) {
	n := nonce(NoncePairSetupM5)
	assert.Len(t, n, 12)
	assert.Equal(t, []byte{0, 0, 0, 0}, n[:4])
	assert.Equal(t, "PS-Msg05", string(n[4:]))
}

func TestSealOpen(t *testing.T) {
	key := bytes.Repeat([]byte{7}, KeySize)
	msg := []byte("sub-tlv payload")

	sealed, err := Seal(key, NoncePairVerifyM2, msg)
	require.NoError(t, err)
	assert.Len(t, sealed, len(msg)+16)

	plain, err := Open(key, NoncePairVerifyM2, sealed)
	require.NoError(t, err)
	assert.Equal(t, msg, plain)

	_, err = Open(key, NoncePairVerifyM3, sealed)
	assert.Error(t, err, "wrong nonce must fail authentication")

	sealed[0] ^= 0xff
	_, err = Open(key, NoncePairVerifyM2, sealed)
	assert.Error(t, err)
}

func TestSeal_BadKey(t *testing.T) {
	_, err := Seal([]byte("short"), NoncePairSetupM6, nil)
	assert.Error(t, err)
}

func TestCurve25519Agreement(t *testing.T) {
	aPriv, aPub, err := GenerateCurve25519()
	require.NoError(t, err)
	bPriv, bPub, err := GenerateCurve25519()
	require.NoError(t, err)

	s1, err := SharedSecret(aPriv, bPub)
	require.NoError(t, err)
	s2, err := SharedSecret(bPriv, aPub)
	require.NoError(t, err)
	assert.Equal(t, s1, s2)

	_, err = SharedSecret(aPriv, []byte{1, 2, 3})
	assert.Error(t, err)

	_, err = SharedSecret(aPriv, make([]byte, 32))
	assert.Error(t, err, "all-zero point is low order")
}
