// Package signature verifies the Ed25519 attestations that bind a device
// signing key to its owner's identity key.
//
// The algorithm is fixed to pure Ed25519 (RFC 8032): 32-byte public keys,
// 64-byte signatures, no pre-hashing of the message. Clients in every
// language must sign the raw signing-key bytes.
package signature

import (
	"bubble-relay/errors"
	"crypto/ed25519"
)

const (
	PublicKeySize = ed25519.PublicKeySize
	Size          = ed25519.SignatureSize
)

// Verify reports whether sig is a valid signature of message under publicKey.
// Malformed keys and signatures are reported as false.
func Verify(publicKey, message, sig []byte) bool {
	// ed25519.Verify panics on a short key
	if len(publicKey) != PublicKeySize || len(sig) != Size {
		return false
	}
	return ed25519.Verify(publicKey, message, sig)
}

// VerifyAttestation checks that identityKey signed signingKey.
func VerifyAttestation(identityKey, signingKey, sig []byte) error {
	if len(identityKey) == 0 {
		return errors.ErrNoIdentityKey
	}
	if len(signingKey) == 0 || !Verify(identityKey, signingKey, sig) {
		return errors.ErrBadSignature
	}
	return nil
}
