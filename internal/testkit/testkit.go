// Package testkit holds fixtures shared by package tests: Ed25519 identities,
// MLS key package encoding and throwaway Badger stores.
package testkit

import (
	"bubble-relay/domain"
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/cryptobyte"
)

// Identity is a user's long-term key pair.
type Identity struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

func NewIdentity(t testing.TB) Identity {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return Identity{Public: pub, Private: priv}
}

// Attest signs a device signing key with the identity key.
func (i Identity) Attest(signingKey []byte) []byte {
	return ed25519.Sign(i.Private, signingKey)
}

// NewSigningKey returns a fresh device public key.
func NewSigningKey(t testing.TB) []byte {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return pub
}

// KeyPackage encodes a minimal MLS 1.0 key package whose basic credential
// carries identity. The trailing bytes stand in for the capabilities,
// extensions and signature that the relay never reads.
func KeyPackage(t testing.TB, identity string) []byte {
	b := cryptobyte.NewBuilder(nil)
	b.AddUint16(domain.ProtocolVersionMLS10)
	b.AddUint16(0x0001) // MLS_128_DHKEMX25519_AES128GCM_SHA256_Ed25519
	domain.AddOpaqueV(b, randomBytes(t, 32))
	domain.AddOpaqueV(b, randomBytes(t, 32))
	domain.AddOpaqueV(b, randomBytes(t, 32))
	b.AddUint16(domain.CredentialTypeBasic)
	domain.AddOpaqueV(b, []byte(identity))
	b.AddBytes(randomBytes(t, 96))
	out, err := b.Bytes()
	require.NoError(t, err)
	return out
}

// ClientKeyPackages returns n key packages claiming the given client.
func ClientKeyPackages(t testing.TB, userID, clientID uuid.UUID, n int) [][]byte {
	identity := domain.FormatClientIdentity(userID, clientID)
	out := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, KeyPackage(t, identity))
	}
	return out
}

// OpenBadger returns an in-memory Badger store closed with the test.
func OpenBadger(t testing.TB) *badger.DB {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func randomBytes(t testing.TB, n int) []byte {
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}
