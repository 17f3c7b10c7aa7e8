package storage

import (
	"bubble-relay/domain"
	"bubble-relay/internal/testkit"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db          *badger.DB
	users       *UserRepository
	clients     *ClientRepository
	keyPackages *KeyPackageRepository
	mailboxes   *MailboxRepository
	sessions    *SessionRepository
}

// setupFixture opens a fresh in-memory Badger with every repository on it.
func setupFixture(t *testing.T) fixture {
	db := testkit.OpenBadger(t)
	logger := slog.Default()
	keyPackages, err := NewKeyPackageRepository(db, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = keyPackages.Close() })
	return fixture{
		db:          db,
		users:       NewUserRepository(db, logger),
		clients:     NewClientRepository(db, logger),
		keyPackages: keyPackages,
		mailboxes:   NewMailboxRepository(db, logger),
		sessions:    NewSessionRepository(db),
	}
}

func (f fixture) createUser(t *testing.T, username string) domain.User {
	user := domain.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$argon2id$fake",
		Name:         "Name of " + username,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, f.users.CreateUser(context.Background(), user))
	return user
}

func (f fixture) createClient(t *testing.T, owner domain.User) domain.Client {
	now := time.Now().UTC()
	client := domain.Client{
		ID:         uuid.New(),
		UserID:     owner.ID,
		SigningKey: testkit.NewSigningKey(t),
		Signature:  []byte("signature bytes"),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, f.clients.CreateClient(context.Background(), client))
	return client
}
