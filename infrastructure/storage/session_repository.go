//go:generate go run go.uber.org/mock/mockgen -source=session_repository.go -destination=../../mocks/mock_session_repository.go -package=mocks
package storage

import (
	"bubble-relay/domain"
	"bubble-relay/errors"
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type ISessionRepository interface {
	CreateSession(ctx context.Context, session domain.Session) error
	GetSession(ctx context.Context, id uuid.UUID) (domain.Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
}

type SessionRepository struct {
	db *badger.DB
}

func NewSessionRepository(db *badger.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

type diskSession struct {
	ID        []byte `cbor:"id" validate:"len=16"`
	UserID    []byte `cbor:"user_id" validate:"len=16"`
	IssuedAt  int64  `cbor:"issued_at" validate:"required"`
	ExpiresAt int64  `cbor:"expires_at" validate:"required"`
}

// CreateSession stores a session. Badger expires the record with the token.
func (r *SessionRepository) CreateSession(ctx context.Context, session domain.Session) error {
	record := diskSession{
		ID:        session.ID[:],
		UserID:    session.UserID[:],
		IssuedAt:  unixNano(session.IssuedAt),
		ExpiresAt: unixNano(session.ExpiresAt),
	}
	data, err := encode(record)
	if err != nil {
		return err
	}
	return update(ctx, r.db, func(txn *badger.Txn) error {
		found, err := exists(txn, userKey(session.UserID))
		if err != nil {
			return err
		}
		if !found {
			return userNotFound(session.UserID)
		}
		ttl := session.ExpiresAt.Sub(session.IssuedAt)
		if err := txn.SetEntry(badger.NewEntry(sessionKey(session.ID), data).WithTTL(ttl)); err != nil {
			return err
		}
		if err := txn.SetEntry(badger.NewEntry(sessionOwnerKey(session.UserID, session.ID), nil).WithTTL(ttl)); err != nil {
			return err
		}
		return touch(txn, userGenKey(session.UserID))
	})
}

func (r *SessionRepository) GetSession(ctx context.Context, id uuid.UUID) (domain.Session, error) {
	var session domain.Session
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		var record diskSession
		if err := getRecord(txn, sessionKey(id), &record, sessionNotFound(id)); err != nil {
			return err
		}
		userID, err := uuidFrom(record.UserID)
		if err != nil {
			return err
		}
		session = domain.Session{
			ID:        id,
			UserID:    userID,
			IssuedAt:  fromUnixNano(record.IssuedAt),
			ExpiresAt: fromUnixNano(record.ExpiresAt),
		}
		return nil
	})
	return session, err
}

// DeleteSession revokes a session. Deleting an unknown session is NotFound.
func (r *SessionRepository) DeleteSession(ctx context.Context, id uuid.UUID) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		var record diskSession
		if err := getRecord(txn, sessionKey(id), &record, sessionNotFound(id)); err != nil {
			return err
		}
		userID, err := uuidFrom(record.UserID)
		if err != nil {
			return err
		}
		if err := txn.Delete(sessionKey(id)); err != nil {
			return err
		}
		return txn.Delete(sessionOwnerKey(userID, id))
	})
}

func sessionNotFound(id uuid.UUID) error {
	return fmt.Errorf("%w: session %s", errors.ErrNotFound, id)
}
