//go:generate go run go.uber.org/mock/mockgen -source=user_repository.go -destination=../../mocks/mock_user_repository.go -package=mocks
package storage

import (
	"bubble-relay/domain"
	"bubble-relay/errors"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IUserRepository interface {
	CreateUser(ctx context.Context, user domain.User) error
	GetUser(ctx context.Context, id uuid.UUID) (domain.User, error)
	GetUserByLogin(ctx context.Context, usernameOrEmail string) (domain.User, error)
	SetIdentityKey(ctx context.Context, id uuid.UUID, identityKey []byte) error
	UpdateProfile(ctx context.Context, id uuid.UUID, name *string, primaryClientID *uuid.UUID) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

type UserRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewUserRepository(db *badger.DB, log *slog.Logger) *UserRepository {
	return &UserRepository{db: db, log: log}
}

// diskUser is the persisted shape of domain.User.
type diskUser struct {
	ID              []byte `cbor:"id" validate:"len=16"`
	Username        string `cbor:"username" validate:"required"`
	Email           string `cbor:"email" validate:"required"`
	PasswordHash    string `cbor:"password_hash" validate:"required"`
	Name            string `cbor:"name"`
	IdentityKey     []byte `cbor:"identity_key,omitempty"`
	PrimaryClientID []byte `cbor:"primary_client_id,omitempty" validate:"omitempty,len=16"`
	CreatedAt       int64  `cbor:"created_at" validate:"required"`
}

// CreateUser persists a new user together with its username and email
// indexes. Both are unique, compared case-insensitively.
func (r *UserRepository) CreateUser(ctx context.Context, user domain.User) error {
	record := fromUser(user)
	return update(ctx, r.db, func(txn *badger.Txn) error {
		nameKey := loginKey(usernamePrefix, user.Username)
		mailKey := loginKey(emailPrefix, user.Email)
		for _, k := range [][]byte{userKey(user.ID), nameKey, mailKey} {
			found, err := exists(txn, k)
			if err != nil {
				return err
			}
			if found {
				return errors.ErrUserAlreadyExists
			}
		}
		if err := setRecord(txn, userKey(user.ID), record); err != nil {
			return err
		}
		if err := txn.Set(nameKey, user.ID[:]); err != nil {
			return err
		}
		return txn.Set(mailKey, user.ID[:])
	})
}

func (r *UserRepository) GetUser(ctx context.Context, id uuid.UUID) (domain.User, error) {
	var user domain.User
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		var err error
		user, err = loadUser(txn, id)
		return err
	})
	return user, err
}

// GetUserByLogin resolves a username or an email address.
func (r *UserRepository) GetUserByLogin(ctx context.Context, usernameOrEmail string) (domain.User, error) {
	var user domain.User
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		prefix := usernamePrefix
		if strings.Contains(usernameOrEmail, "@") {
			prefix = emailPrefix
		}
		item, err := txn.Get(loginKey(prefix, usernameOrEmail))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: user", errors.ErrNotFound)
		}
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		id, err := uuidFrom(raw)
		if err != nil {
			return err
		}
		user, err = loadUser(txn, id)
		return err
	})
	return user, err
}

// SetIdentityKey publishes the identity key. It can only be done once.
func (r *UserRepository) SetIdentityKey(ctx context.Context, id uuid.UUID, identityKey []byte) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		var record diskUser
		if err := getRecord(txn, userKey(id), &record, userNotFound(id)); err != nil {
			return err
		}
		if len(record.IdentityKey) > 0 {
			return errors.ErrIdentityAlreadySet
		}
		record.IdentityKey = identityKey
		return setRecord(txn, userKey(id), record)
	})
}

// UpdateProfile changes the display name and/or the primary client. The
// primary client must exist and belong to the user.
func (r *UserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, name *string, primaryClientID *uuid.UUID) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		var record diskUser
		if err := getRecord(txn, userKey(id), &record, userNotFound(id)); err != nil {
			return err
		}
		if name != nil {
			record.Name = *name
		}
		if primaryClientID != nil {
			client, err := loadClient(txn, *primaryClientID)
			if err != nil {
				return err
			}
			if !client.OwnedBy(id) {
				return fmt.Errorf("%w: client %s belongs to another user", errors.ErrForbidden, client.ID)
			}
			record.PrimaryClientID = primaryClientID[:]
		}
		return setRecord(txn, userKey(id), record)
	})
}

// DeleteUser removes the user, its login indexes and sessions, and every
// client with its key packages and mailbox, in one transaction.
func (r *UserRepository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		var record diskUser
		if err := getRecord(txn, userKey(id), &record, userNotFound(id)); err != nil {
			return err
		}
		if err := guard(txn, userGenKey(id)); err != nil {
			return err
		}
		clientKeys, err := keysWithPrefix(txn, clientsOf(id))
		if err != nil {
			return err
		}
		for _, k := range clientKeys {
			clientID, err := uuid.Parse(string(k[len(clientsOf(id)):]))
			if err != nil {
				return errors.Internalf("malformed client index key %q", k)
			}
			if err := deleteClientTxn(txn, clientID, id); err != nil {
				return err
			}
		}
		sessionKeys, err := keysWithPrefix(txn, sessionsOf(id))
		if err != nil {
			return err
		}
		for _, k := range sessionKeys {
			sessionID, err := uuid.Parse(string(k[len(sessionsOf(id)):]))
			if err != nil {
				return errors.Internalf("malformed session index key %q", k)
			}
			if err := txn.Delete(sessionKey(sessionID)); err != nil {
				return err
			}
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		r.log.Debug("Deleting user", "user_id", id, "clients", len(clientKeys), "sessions", len(sessionKeys))
		for _, k := range [][]byte{
			userKey(id),
			userGenKey(id),
			loginKey(usernamePrefix, record.Username),
			loginKey(emailPrefix, record.Email),
		} {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func loadUser(txn *badger.Txn, id uuid.UUID) (domain.User, error) {
	var record diskUser
	if err := getRecord(txn, userKey(id), &record, userNotFound(id)); err != nil {
		return domain.User{}, err
	}
	return toUser(record)
}

func userNotFound(id uuid.UUID) error {
	return fmt.Errorf("%w: user %s", errors.ErrNotFound, id)
}

func loginKey(prefix, login string) []byte {
	return []byte(prefix + strings.ToLower(login))
}

func fromUser(u domain.User) diskUser {
	record := diskUser{
		ID:           u.ID[:],
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Name:         u.Name,
		IdentityKey:  u.IdentityKey,
		CreatedAt:    unixNano(u.CreatedAt),
	}
	if u.PrimaryClientID != nil {
		record.PrimaryClientID = u.PrimaryClientID[:]
	}
	return record
}

func toUser(record diskUser) (domain.User, error) {
	id, err := uuidFrom(record.ID)
	if err != nil {
		return domain.User{}, err
	}
	primary, err := optionalUUID(record.PrimaryClientID)
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{
		ID:              id,
		Username:        record.Username,
		Email:           record.Email,
		PasswordHash:    record.PasswordHash,
		Name:            record.Name,
		IdentityKey:     record.IdentityKey,
		PrimaryClientID: primary,
		CreatedAt:       fromUnixNano(record.CreatedAt),
	}, nil
}
