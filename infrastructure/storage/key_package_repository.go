//go:generate go run go.uber.org/mock/mockgen -source=key_package_repository.go -destination=../../mocks/mock_key_package_repository.go -package=mocks
package storage

import (
	"bubble-relay/domain"
	"bubble-relay/errors"
	"context"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IKeyPackageRepository interface {
	ReplaceKeyPackages(ctx context.Context, clientID uuid.UUID, payloads [][]byte) error
	FetchKeyPackage(ctx context.Context, clientID uuid.UUID) (domain.KeyPackage, error)
	CountKeyPackages(ctx context.Context, clientID uuid.UUID) (int, error)
}

type KeyPackageRepository struct {
	db  *badger.DB
	log *slog.Logger
	seq *Sequencer
}

func NewKeyPackageRepository(db *badger.DB, log *slog.Logger) (*KeyPackageRepository, error) {
	seq, err := NewSequencer(db, keyPackageSeqKey)
	if err != nil {
		return nil, err
	}
	return &KeyPackageRepository{db: db, log: log, seq: seq}, nil
}

// Close returns the unused leased sequence numbers.
func (r *KeyPackageRepository) Close() error {
	return r.seq.Release()
}

// ReplaceKeyPackages discards the client's whole pool and stores payloads
// in their given order. Readers observe either the old or the new pool.
func (r *KeyPackageRepository) ReplaceKeyPackages(ctx context.Context, clientID uuid.UUID, payloads [][]byte) error {
	seqs := make([]uint64, len(payloads))
	for i := range payloads {
		n, err := r.seq.Next()
		if err != nil {
			return err
		}
		seqs[i] = n
	}
	prefix := keyPackagesOf(clientID)

	var removed int
	err := update(ctx, r.db, func(txn *badger.Txn) error {
		if err := clientExists(txn, clientID); err != nil {
			return err
		}
		if err := guard(txn, keyPackageGenKey(clientID)); err != nil {
			return err
		}
		var err error
		if removed, err = deletePrefix(txn, prefix); err != nil {
			return err
		}
		for i, payload := range payloads {
			if err := txn.Set(seqKey(prefix, seqs[i]), payload); err != nil {
				return err
			}
		}
		return touch(txn, keyPackageGenKey(clientID))
	})
	if err != nil {
		return err
	}
	r.log.Debug("Key packages replaced", "client_id", clientID, "removed", removed, "stored", len(payloads))
	return nil
}

// FetchKeyPackage removes and returns the oldest key package of the client.
// The read and the delete commit together; when another fetch or replace
// commits first the transaction is re-run against the new state, so a
// package is handed out at most once.
func (r *KeyPackageRepository) FetchKeyPackage(ctx context.Context, clientID uuid.UUID) (domain.KeyPackage, error) {
	prefix := keyPackagesOf(clientID)
	var kp domain.KeyPackage
	err := update(ctx, r.db, func(txn *badger.Txn) error {
		if err := clientExists(txn, clientID); err != nil {
			return err
		}
		if err := guard(txn, keyPackageGenKey(clientID)); err != nil {
			return err
		}
		key, payload, err := firstWithPrefix(txn, prefix)
		if err != nil {
			return err
		}
		if key == nil {
			return errors.ErrNoKeyPackage
		}
		seq, err := parseSeq(prefix, key)
		if err != nil {
			return err
		}
		kp = domain.KeyPackage{Seq: seq, ClientID: clientID, Payload: payload}
		return txn.Delete(key)
	})
	if err != nil {
		return domain.KeyPackage{}, err
	}
	return kp, nil
}

func (r *KeyPackageRepository) CountKeyPackages(ctx context.Context, clientID uuid.UUID) (int, error) {
	var count int
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		if err := clientExists(txn, clientID); err != nil {
			return err
		}
		keys, err := keysWithPrefix(txn, keyPackagesOf(clientID))
		count = len(keys)
		return err
	})
	return count, err
}

func firstWithPrefix(txn *badger.Txn, prefix []byte) ([]byte, []byte, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchSize = 1
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	it.Seek(prefix)
	if !it.ValidForPrefix(prefix) {
		return nil, nil, nil
	}
	item := it.Item()
	value, err := item.ValueCopy(nil)
	if err != nil {
		return nil, nil, err
	}
	return item.KeyCopy(nil), value, nil
}
