package signature

import (
	"bubble-relay/errors"
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerify(t *testing.T) {
	req := require.New(t)
	identityPub, identityPriv, err := ed25519.GenerateKey(rand.Reader)
	req.NoError(err)
	signingPub, _, err := ed25519.GenerateKey(rand.Reader)
	req.NoError(err)

	sig := ed25519.Sign(identityPriv, signingPub)

	req.True(Verify(identityPub, signingPub, sig))

	tampered := append([]byte{}, sig...)
	tampered[0] ^= 0xff
	req.False(Verify(identityPub, signingPub, tampered))

	req.False(Verify(identityPub, []byte("another key"), sig))
	req.False(Verify(signingPub, signingPub, sig), "wrong public key")
}

func TestVerify_MalformedInputsDoNotPanic(t *testing.T) {
	req := require.New(t)
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	req.NoError(err)
	sig := ed25519.Sign(priv, []byte("m"))

	req.NotPanics(func() {
		req.False(Verify(nil, []byte("m"), sig))
		req.False(Verify(pub[:31], []byte("m"), sig))
		req.False(Verify(pub, []byte("m"), sig[:63]))
		req.False(Verify(pub, []byte("m"), nil))
		req.False(Verify(append(pub, 0), []byte("m"), sig))
	})
}

func TestVerifyAttestation(t *testing.T) {
	req := require.New(t)
	identityPub, identityPriv, err := ed25519.GenerateKey(rand.Reader)
	req.NoError(err)
	signingPub, _, err := ed25519.GenerateKey(rand.Reader)
	req.NoError(err)

	req.NoError(VerifyAttestation(identityPub, signingPub, ed25519.Sign(identityPriv, signingPub)))

	err = VerifyAttestation(identityPub, signingPub, make([]byte, Size))
	req.ErrorIs(err, errors.ErrBadSignature)

	err = VerifyAttestation(nil, signingPub, ed25519.Sign(identityPriv, signingPub))
	req.ErrorIs(err, errors.ErrNoIdentityKey)
	req.ErrorIs(err, errors.ErrBadSignature)

	err = VerifyAttestation(identityPub, nil, ed25519.Sign(identityPriv, nil))
	req.ErrorIs(err, errors.ErrBadSignature)
}
