//go:generate go run go.uber.org/mock/mockgen -source=client_repository.go -destination=../../mocks/mock_client_repository.go -package=mocks
package storage

import (
	"bubble-relay/domain"
	"bubble-relay/errors"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IClientRepository interface {
	CreateClient(ctx context.Context, client domain.Client) error
	GetClient(ctx context.Context, id uuid.UUID) (domain.Client, error)
	ListClients(ctx context.Context, userID uuid.UUID) ([]domain.Client, error)
	UpdateClientKeys(ctx context.Context, id uuid.UUID, signingKey, signature []byte, at time.Time) error
	DeleteClient(ctx context.Context, id uuid.UUID) error
}

type ClientRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewClientRepository(db *badger.DB, log *slog.Logger) *ClientRepository {
	return &ClientRepository{db: db, log: log}
}

type diskClient struct {
	ID         []byte `cbor:"id" validate:"len=16"`
	UserID     []byte `cbor:"user_id" validate:"len=16"`
	SigningKey []byte `cbor:"signing_key" validate:"required"`
	Signature  []byte `cbor:"signature" validate:"required"`
	CreatedAt  int64  `cbor:"created_at" validate:"required"`
	UpdatedAt  int64  `cbor:"updated_at" validate:"required"`
}

// CreateClient stores an already verified client. The owner must exist.
func (r *ClientRepository) CreateClient(ctx context.Context, client domain.Client) error {
	record := fromClient(client)
	return update(ctx, r.db, func(txn *badger.Txn) error {
		found, err := exists(txn, userKey(client.UserID))
		if err != nil {
			return err
		}
		if !found {
			return userNotFound(client.UserID)
		}
		if err := setRecord(txn, clientKey(client.ID), record); err != nil {
			return err
		}
		if err := txn.Set(clientOwnerKey(client.UserID, client.ID), nil); err != nil {
			return err
		}
		return touch(txn, userGenKey(client.UserID))
	})
}

func (r *ClientRepository) GetClient(ctx context.Context, id uuid.UUID) (domain.Client, error) {
	var client domain.Client
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		var err error
		client, err = loadClient(txn, id)
		return err
	})
	return client, err
}

// ListClients returns the clients of a user in identifier order. A user
// without clients gets an empty slice.
func (r *ClientRepository) ListClients(ctx context.Context, userID uuid.UUID) ([]domain.Client, error) {
	clients := make([]domain.Client, 0)
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		found, err := exists(txn, userKey(userID))
		if err != nil {
			return err
		}
		if !found {
			return userNotFound(userID)
		}
		prefix := clientsOf(userID)
		keys, err := keysWithPrefix(txn, prefix)
		if err != nil {
			return err
		}
		for _, k := range keys {
			id, err := uuid.Parse(string(k[len(prefix):]))
			if err != nil {
				return errors.Internalf("malformed client index key %q", k)
			}
			client, err := loadClient(txn, id)
			if err != nil {
				return err
			}
			clients = append(clients, client)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return clients, nil
}

// UpdateClientKeys replaces signing key and signature together.
func (r *ClientRepository) UpdateClientKeys(ctx context.Context, id uuid.UUID, signingKey, signature []byte, at time.Time) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		var record diskClient
		if err := getRecord(txn, clientKey(id), &record, clientNotFound(id)); err != nil {
			return err
		}
		record.SigningKey = signingKey
		record.Signature = signature
		record.UpdatedAt = unixNano(at)
		return setRecord(txn, clientKey(id), record)
	})
}

// DeleteClient removes the client with its key packages and mailbox.
func (r *ClientRepository) DeleteClient(ctx context.Context, id uuid.UUID) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		client, err := loadClient(txn, id)
		if err != nil {
			return err
		}
		return deleteClientTxn(txn, id, client.UserID)
	})
}

// deleteClientTxn cascades a client deletion inside txn. It also clears the
// owner's primary client when it pointed at this client.
func deleteClientTxn(txn *badger.Txn, id, ownerID uuid.UUID) error {
	if err := guard(txn, keyPackageGenKey(id)); err != nil {
		return err
	}
	if err := guard(txn, mailboxGenKey(id)); err != nil {
		return err
	}
	if _, err := deletePrefix(txn, keyPackagesOf(id)); err != nil {
		return err
	}
	if _, err := deletePrefix(txn, mailboxOf(id)); err != nil {
		return err
	}
	var owner diskUser
	err := getRecord(txn, userKey(ownerID), &owner, userNotFound(ownerID))
	switch {
	case errors.Is(err, errors.ErrNotFound):
	case err != nil:
		return err
	case bytes.Equal(owner.PrimaryClientID, id[:]):
		owner.PrimaryClientID = nil
		if err := setRecord(txn, userKey(ownerID), owner); err != nil {
			return err
		}
	}
	for _, k := range [][]byte{
		clientKey(id),
		clientOwnerKey(ownerID, id),
		keyPackageGenKey(id),
		mailboxGenKey(id),
	} {
		if err := txn.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func loadClient(txn *badger.Txn, id uuid.UUID) (domain.Client, error) {
	var record diskClient
	if err := getRecord(txn, clientKey(id), &record, clientNotFound(id)); err != nil {
		return domain.Client{}, err
	}
	return toClient(record)
}

// clientExists is used by the pool and mailbox to check a target inside
// their own transaction; the read makes a concurrent delete conflict.
func clientExists(txn *badger.Txn, id uuid.UUID) error {
	found, err := exists(txn, clientKey(id))
	if err != nil {
		return err
	}
	if !found {
		return clientNotFound(id)
	}
	return nil
}

func clientNotFound(id uuid.UUID) error {
	return fmt.Errorf("%w: client %s", errors.ErrNotFound, id)
}

func fromClient(c domain.Client) diskClient {
	return diskClient{
		ID:         c.ID[:],
		UserID:     c.UserID[:],
		SigningKey: c.SigningKey,
		Signature:  c.Signature,
		CreatedAt:  unixNano(c.CreatedAt),
		UpdatedAt:  unixNano(c.UpdatedAt),
	}
}

func toClient(record diskClient) (domain.Client, error) {
	id, err := uuidFrom(record.ID)
	if err != nil {
		return domain.Client{}, err
	}
	userID, err := uuidFrom(record.UserID)
	if err != nil {
		return domain.Client{}, err
	}
	return domain.Client{
		ID:         id,
		UserID:     userID,
		SigningKey: record.SigningKey,
		Signature:  record.Signature,
		CreatedAt:  fromUnixNano(record.CreatedAt),
		UpdatedAt:  fromUnixNano(record.UpdatedAt),
	}, nil
}
