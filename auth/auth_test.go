package auth

import (
	"bubble-relay/errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "MyPasswordIsVerySafe1!"

	hash, err := HashPassword(password)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	// Wrong password
	match, err = ComparePassword("WrongPassword", hash)
	req.NoError(err)
	req.False(match)

	_, err = ComparePassword(password, "$bcrypt$whatever")
	req.ErrorIs(err, errors.ErrInternal)
}

func TestRegistrationValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr error
	}{
		{"Valid request", RegisterRequest{Username: "alice", Email: "test@example.com", Password: "ComplexPass123!"}, nil},
		{"Valid with identity key", RegisterRequest{Username: "alice.l", Email: "test@example.com", Password: "ComplexPass123!", IdentityKey: make([]byte, 32)}, nil},
		{"Invalid email", RegisterRequest{Username: "alice", Email: "notanemail", Password: "ComplexPass123!"}, errors.ErrInvalidRequest},
		{"Username too short", RegisterRequest{Username: "al", Email: "test@example.com", Password: "ComplexPass123!"}, errors.ErrInvalidRequest},
		{"Username with spaces", RegisterRequest{Username: "alice smith", Email: "test@example.com", Password: "ComplexPass123!"}, errors.ErrInvalidRequest},
		{"Username uppercase", RegisterRequest{Username: "Alice", Email: "test@example.com", Password: "ComplexPass123!"}, errors.ErrInvalidRequest},
		{"Identity key wrong size", RegisterRequest{Username: "alice", Email: "test@example.com", Password: "ComplexPass123!", IdentityKey: make([]byte, 31)}, errors.ErrInvalidRequest},
		{"Password too short", RegisterRequest{Username: "alice", Email: "test@example.com", Password: "Short1!"}, errors.ErrInvalidPassword},
		{"Missing digit", RegisterRequest{Username: "alice", Email: "test@example.com", Password: "NoDigitPass!"}, errors.ErrInvalidPassword},
		{"Missing special char", RegisterRequest{Username: "alice", Email: "test@example.com", Password: "NoSpecialChar123"}, errors.ErrInvalidPassword},
		{"Missing uppercase", RegisterRequest{Username: "alice", Email: "test@example.com", Password: "nouppercase123!"}, errors.ErrInvalidPassword},
		{"Password too long", RegisterRequest{Username: "alice", Email: "test@example.com", Password: strings.Repeat("a", 73)}, errors.ErrInvalidPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			err := ValidateRegister(tt.req)
			if tt.wantErr == nil {
				req.NoError(err)
				return
			}
			req.ErrorIs(err, tt.wantErr)
			req.ErrorIs(err, errors.ErrInvalidRequest)
		})
	}
}

// BenchmarkHashPassword measures the CPU/RAM cost of one hash
func BenchmarkHashPassword(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = HashPassword("A-very-long-and-complex-password-for-bench-123!")
	}
}
