package domain_test

import (
	"bubble-relay/domain"
	"bubble-relay/errors"
	"bubble-relay/internal/testkit"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/cryptobyte"
)

func TestParseKeyPackageIdentity(t *testing.T) {
	req := require.New(t)
	userID, clientID := uuid.New(), uuid.New()

	payload := testkit.KeyPackage(t, domain.FormatClientIdentity(userID, clientID))
	identity, err := domain.ParseKeyPackageIdentity(payload)

	req.NoError(err)
	req.Equal(userID, identity.UserID)
	req.Equal(clientID, identity.ClientID)
	req.True(identity.Matches(domain.Client{ID: clientID, UserID: userID}))
	req.False(identity.Matches(domain.Client{ID: clientID, UserID: uuid.New()}))
}

func TestParseKeyPackageIdentity_LongIdentityUsesTwoByteLength(t *testing.T) {
	req := require.New(t)
	b := cryptobyte.NewBuilder(nil)
	b.AddUint16(domain.ProtocolVersionMLS10)
	b.AddUint16(1)
	domain.AddOpaqueV(b, make([]byte, 200)) // forces the 2-byte varint
	domain.AddOpaqueV(b, nil)
	domain.AddOpaqueV(b, make([]byte, 32))
	b.AddUint16(domain.CredentialTypeBasic)
	userID, clientID := uuid.New(), uuid.New()
	domain.AddOpaqueV(b, []byte(domain.FormatClientIdentity(userID, clientID)))
	payload, err := b.Bytes()
	req.NoError(err)

	identity, err := domain.ParseKeyPackageIdentity(payload)
	req.NoError(err)
	req.Equal(clientID, identity.ClientID)
}

func TestParseKeyPackageIdentity_Rejects(t *testing.T) {
	userID, clientID := uuid.New(), uuid.New()
	valid := testkit.KeyPackage(t, domain.FormatClientIdentity(userID, clientID))

	wrongVersion := append([]byte{}, valid...)
	wrongVersion[1] = 2

	x509 := cryptobyte.NewBuilder(nil)
	x509.AddUint16(domain.ProtocolVersionMLS10)
	x509.AddUint16(1)
	domain.AddOpaqueV(x509, nil)
	domain.AddOpaqueV(x509, nil)
	domain.AddOpaqueV(x509, nil)
	x509.AddUint16(2)
	domain.AddOpaqueV(x509, []byte(domain.FormatClientIdentity(userID, clientID)))

	nonMinimal := cryptobyte.NewBuilder(nil)
	nonMinimal.AddUint16(domain.ProtocolVersionMLS10)
	nonMinimal.AddUint16(1)
	nonMinimal.AddUint16(0x4000) // zero length on two bytes

	tests := []struct {
		name    string
		payload []byte
	}{
		{"empty", nil},
		{"garbage", []byte("not a key package")},
		{"truncated", valid[:20]},
		{"wrong version", wrongVersion},
		{"x509 credential", x509.BytesOrPanic()},
		{"non minimal varint", nonMinimal.BytesOrPanic()},
		{"no prefix", testkit.KeyPackage(t, "user_"+userID.String()+"_"+clientID.String())},
		{"no separator", testkit.KeyPackage(t, "client_"+userID.String()+clientID.String())},
		{"bad uuid", testkit.KeyPackage(t, "client_"+userID.String()+"_not-a-uuid")},
		{"braced uuid", testkit.KeyPackage(t, "client_{"+userID.String()+"}_"+clientID.String())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.ParseKeyPackageIdentity(tt.payload)
			require.ErrorIs(t, err, errors.ErrInvalidIdentity)
		})
	}
}

func TestParseID(t *testing.T) {
	req := require.New(t)
	id := uuid.New()

	parsed, err := domain.ParseID(id.String())
	req.NoError(err)
	req.Equal(id, parsed)

	for _, bad := range []string{"", "123", "urn:uuid:" + id.String(), id.String()[:35] + "z"} {
		_, err := domain.ParseID(bad)
		req.ErrorIs(err, errors.ErrInvalidRequest, bad)
	}
}
