// Package domain contains core concepts of the relay.
// This file defines key packages and the identity claim they carry.
package domain

import (
	"bubble-relay/errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/cryptobyte"
)

// KeyPackage is single-use pre-key material published by a client.
type KeyPackage struct {
	Seq      uint64
	ClientID uuid.UUID
	Payload  []byte
}

const (
	ProtocolVersionMLS10 uint16 = 1
	CredentialTypeBasic  uint16 = 1

	clientIdentityPrefix = "client_"
)

// KeyPackageIdentity is the owner claim embedded in a key package credential.
type KeyPackageIdentity struct {
	UserID   uuid.UUID
	ClientID uuid.UUID
}

func (k KeyPackageIdentity) String() string {
	return FormatClientIdentity(k.UserID, k.ClientID)
}

func (k KeyPackageIdentity) Matches(client Client) bool {
	return k.ClientID == client.ID && k.UserID == client.UserID
}

// FormatClientIdentity renders the credential identity a client must use.
func FormatClientIdentity(userID, clientID uuid.UUID) string {
	return fmt.Sprintf("%s%s_%s", clientIdentityPrefix, userID, clientID)
}

// ParseKeyPackageIdentity reads the basic credential identity out of a
// TLS-serialized MLS KeyPackage (RFC 9420 section 10):
//
//	version u16, cipher_suite u16, init_key opaque<V>,
//	leaf_node { encryption_key opaque<V>, signature_key opaque<V>,
//	            credential { credential_type u16, identity opaque<V> } ... }
//
// The rest of the package is not inspected.
func ParseKeyPackageIdentity(payload []byte) (KeyPackageIdentity, error) {
	s := cryptobyte.String(payload)
	var (
		version, suite, credentialType uint16
		initKey, encryptionKey         []byte
		signatureKey, identity         []byte
	)
	if !s.ReadUint16(&version) || !s.ReadUint16(&suite) {
		return KeyPackageIdentity{}, invalidIdentity("truncated header")
	}
	if version != ProtocolVersionMLS10 {
		return KeyPackageIdentity{}, invalidIdentity(fmt.Sprintf("unsupported protocol version %d", version))
	}
	if !readOpaqueV(&s, &initKey) || !readOpaqueV(&s, &encryptionKey) || !readOpaqueV(&s, &signatureKey) {
		return KeyPackageIdentity{}, invalidIdentity("truncated keys")
	}
	if !s.ReadUint16(&credentialType) {
		return KeyPackageIdentity{}, invalidIdentity("truncated credential")
	}
	if credentialType != CredentialTypeBasic {
		return KeyPackageIdentity{}, invalidIdentity(fmt.Sprintf("unsupported credential type %d", credentialType))
	}
	if !readOpaqueV(&s, &identity) {
		return KeyPackageIdentity{}, invalidIdentity("truncated identity")
	}
	return ParseClientIdentity(string(identity))
}

// ParseClientIdentity parses "client_<user-uuid>_<client-uuid>".
func ParseClientIdentity(identity string) (KeyPackageIdentity, error) {
	rest, ok := strings.CutPrefix(identity, clientIdentityPrefix)
	if !ok {
		return KeyPackageIdentity{}, invalidIdentity("missing client prefix")
	}
	userPart, clientPart, ok := strings.Cut(rest, "_")
	if !ok {
		return KeyPackageIdentity{}, invalidIdentity("missing separator")
	}
	userID, err := ParseID(userPart)
	if err != nil {
		return KeyPackageIdentity{}, invalidIdentity("malformed user id")
	}
	clientID, err := ParseID(clientPart)
	if err != nil {
		return KeyPackageIdentity{}, invalidIdentity("malformed client id")
	}
	return KeyPackageIdentity{UserID: userID, ClientID: clientID}, nil
}

func invalidIdentity(reason string) error {
	return fmt.Errorf("%w: %s", errors.ErrInvalidIdentity, reason)
}

// readVarint reads an MLS variable-length integer (RFC 9420 section 2.1.2).
// The two high bits of the first byte give the length; encodings must be minimal.
func readVarint(s *cryptobyte.String, out *uint64) bool {
	var first uint8
	if !s.ReadUint8(&first) {
		return false
	}
	v := uint64(first & 0x3f)
	var extra int
	var min uint64
	switch first >> 6 {
	case 0:
	case 1:
		extra, min = 1, 1<<6
	case 2:
		extra, min = 3, 1<<14
	default:
		return false
	}
	for i := 0; i < extra; i++ {
		var b uint8
		if !s.ReadUint8(&b) {
			return false
		}
		v = v<<8 | uint64(b)
	}
	if v < min {
		return false
	}
	*out = v
	return true
}

func readOpaqueV(s *cryptobyte.String, out *[]byte) bool {
	var n uint64
	if !readVarint(s, &n) || n > uint64(len(*s)) {
		return false
	}
	return s.ReadBytes(out, int(n))
}

// AddOpaqueV appends an opaque<V> vector to b. Exposed for tooling and tests
// that need to produce key packages.
func AddOpaqueV(b *cryptobyte.Builder, data []byte) {
	n := len(data)
	switch {
	case n < 1<<6:
		b.AddUint8(uint8(n))
	case n < 1<<14:
		b.AddUint16(uint16(0x4000 | n))
	default:
		b.AddUint32(uint32(0x80000000 | n))
	}
	b.AddBytes(data)
}
