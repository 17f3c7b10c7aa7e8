package storage

import (
	"bubble-relay/domain"
	"bubble-relay/errors"
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	req := require.New(t)
	f := setupFixture(t)
	ctx := context.Background()

	alice := f.createUser(t, "alice")

	got, err := f.users.GetUser(ctx, alice.ID)
	req.NoError(err)
	req.Equal(alice.ID, got.ID)
	req.Equal("alice", got.Username)
	req.Equal("alice@example.com", got.Email)
	req.Equal(alice.CreatedAt.UnixNano(), got.CreatedAt.UnixNano())
	req.Nil(got.PrimaryClientID)
	req.False(got.HasIdentity())

	byName, err := f.users.GetUserByLogin(ctx, "ALICE")
	req.NoError(err)
	req.Equal(alice.ID, byName.ID)

	byMail, err := f.users.GetUserByLogin(ctx, "Alice@Example.com")
	req.NoError(err)
	req.Equal(alice.ID, byMail.ID)

	_, err = f.users.GetUser(ctx, uuid.New())
	req.ErrorIs(err, errors.ErrNotFound)
	_, err = f.users.GetUserByLogin(ctx, "bob")
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestUserRepository_UniqueUsernameAndEmail(t *testing.T) {
	req := require.New(t)
	f := setupFixture(t)
	ctx := context.Background()
	f.createUser(t, "alice")

	sameName := domain.User{ID: uuid.New(), Username: "Alice", Email: "other@example.com", PasswordHash: "h", CreatedAt: time.Now()}
	req.ErrorIs(f.users.CreateUser(ctx, sameName), errors.ErrConflict)

	sameMail := domain.User{ID: uuid.New(), Username: "other", Email: "ALICE@example.com", PasswordHash: "h", CreatedAt: time.Now()}
	req.ErrorIs(f.users.CreateUser(ctx, sameMail), errors.ErrConflict)

	// The failed attempts left no index behind
	_, err := f.users.GetUserByLogin(ctx, "other")
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestUserRepository_SetIdentityKeyOnce(t *testing.T) {
	req := require.New(t)
	f := setupFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")

	req.NoError(f.users.SetIdentityKey(ctx, alice.ID, []byte("first identity key")))
	err := f.users.SetIdentityKey(ctx, alice.ID, []byte("second identity key"))
	req.ErrorIs(err, errors.ErrIdentityAlreadySet)

	got, err := f.users.GetUser(ctx, alice.ID)
	req.NoError(err)
	req.Equal([]byte("first identity key"), got.IdentityKey)

	req.ErrorIs(f.users.SetIdentityKey(ctx, uuid.New(), []byte("k")), errors.ErrNotFound)
}

func TestUserRepository_UpdateProfile(t *testing.T) {
	req := require.New(t)
	f := setupFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")
	aliceClient := f.createClient(t, alice)
	bobClient := f.createClient(t, bob)

	req.NoError(f.users.UpdateProfile(ctx, alice.ID, lo.ToPtr("Alice L."), &aliceClient.ID))
	got, err := f.users.GetUser(ctx, alice.ID)
	req.NoError(err)
	req.Equal("Alice L.", got.Name)
	req.Equal(aliceClient.ID, *got.PrimaryClientID)

	err = f.users.UpdateProfile(ctx, alice.ID, nil, &bobClient.ID)
	req.ErrorIs(err, errors.ErrForbidden)

	err = f.users.UpdateProfile(ctx, alice.ID, nil, lo.ToPtr(uuid.New()))
	req.ErrorIs(err, errors.ErrNotFound)

	// Deleting the primary client clears the pointer
	req.NoError(f.clients.DeleteClient(ctx, aliceClient.ID))
	got, err = f.users.GetUser(ctx, alice.ID)
	req.NoError(err)
	req.Nil(got.PrimaryClientID)
	req.Equal("Alice L.", got.Name)
}

func TestUserRepository_DeleteUserCascades(t *testing.T) {
	req := require.New(t)
	f := setupFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")
	c1 := f.createClient(t, alice)
	c2 := f.createClient(t, alice)
	bobClient := f.createClient(t, bob)

	req.NoError(f.keyPackages.ReplaceKeyPackages(ctx, c1.ID, [][]byte{[]byte("kp1"), []byte("kp2")}))
	_, err := f.mailboxes.Append(ctx, []uuid.UUID{c1.ID, c2.ID, bobClient.ID}, []byte("hello"))
	req.NoError(err)
	session := domain.Session{ID: uuid.New(), UserID: alice.ID, IssuedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)}
	req.NoError(f.sessions.CreateSession(ctx, session))

	req.NoError(f.users.DeleteUser(ctx, alice.ID))

	_, err = f.users.GetUser(ctx, alice.ID)
	req.ErrorIs(err, errors.ErrNotFound)
	for _, id := range []uuid.UUID{c1.ID, c2.ID} {
		_, err = f.clients.GetClient(ctx, id)
		req.ErrorIs(err, errors.ErrNotFound)
	}
	_, err = f.sessions.GetSession(ctx, session.ID)
	req.ErrorIs(err, errors.ErrNotFound)

	// Nothing is left under the deleted clients' prefixes
	req.NoError(f.db.View(func(txn *badger.Txn) error {
		for _, prefix := range [][]byte{keyPackagesOf(c1.ID), mailboxOf(c1.ID), mailboxOf(c2.ID), clientsOf(alice.ID), sessionsOf(alice.ID)} {
			keys, err := keysWithPrefix(txn, prefix)
			req.NoError(err)
			req.Empty(keys, string(prefix))
		}
		return nil
	}))

	// Bob is untouched
	entries, err := f.mailboxes.List(ctx, bobClient.ID)
	req.NoError(err)
	req.Len(entries, 1)

	// The username is free again
	f.createUser(t, "alice")

	req.ErrorIs(f.users.DeleteUser(ctx, alice.ID), errors.ErrNotFound)
}
