//go:generate go run go.uber.org/mock/mockgen -source=mailbox_repository.go -destination=../../mocks/mock_mailbox_repository.go -package=mocks
package storage

import (
	"bubble-relay/domain"
	"bubble-relay/errors"
	"context"
	"encoding/binary"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IMailboxRepository interface {
	Append(ctx context.Context, recipients []uuid.UUID, payload []byte) ([]domain.MailboxEntry, error)
	List(ctx context.Context, clientID uuid.UUID) ([]domain.MailboxEntry, error)
	DeleteThrough(ctx context.Context, clientID uuid.UUID, through uint64) (int, error)
}

type MailboxRepository struct {
	db  *badger.DB
	log *slog.Logger
	now func() time.Time
}

func NewMailboxRepository(db *badger.DB, log *slog.Logger) *MailboxRepository {
	return &MailboxRepository{db: db, log: log, now: time.Now}
}

type diskMailboxEntry struct {
	Payload    []byte `cbor:"payload" validate:"required"`
	ReceivedAt int64  `cbor:"received_at" validate:"required"`
}

// Append delivers payload to every recipient or to none: one missing
// recipient aborts the whole transaction with NotFound.
//
// Each mailbox numbers its entries with a counter kept in its gen: marker.
// The counter is read and written inside the transaction, so two sends to
// the same mailbox conflict and the later commit always gets the higher seq.
func (r *MailboxRepository) Append(ctx context.Context, recipients []uuid.UUID, payload []byte) ([]domain.MailboxEntry, error) {
	var entries []domain.MailboxEntry
	err := update(ctx, r.db, func(txn *badger.Txn) error {
		entries = make([]domain.MailboxEntry, 0, len(recipients))
		receivedAt := r.now().UTC()
		for _, recipient := range recipients {
			if err := clientExists(txn, recipient); err != nil {
				return err
			}
		}
		for _, recipient := range recipients {
			seq, err := nextMailboxSeq(txn, recipient)
			if err != nil {
				return err
			}
			record := diskMailboxEntry{Payload: payload, ReceivedAt: unixNano(receivedAt)}
			if err := setRecord(txn, seqKey(mailboxOf(recipient), seq), record); err != nil {
				return err
			}
			entries = append(entries, domain.MailboxEntry{
				Seq:         seq,
				RecipientID: recipient,
				Payload:     payload,
				ReceivedAt:  receivedAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// nextMailboxSeq increments the mailbox counter and returns the new value.
// Numbers start at 1.
func nextMailboxSeq(txn *badger.Txn, clientID uuid.UUID) (uint64, error) {
	key := mailboxGenKey(clientID)
	var last uint64
	item, err := txn.Get(key)
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
	case err != nil:
		return 0, err
	default:
		if err := item.Value(func(val []byte) error {
			if len(val) != 8 {
				return errors.Internalf("malformed mailbox counter %q", key)
			}
			last = binary.BigEndian.Uint64(val)
			return nil
		}); err != nil {
			return 0, err
		}
	}
	next := last + 1
	return next, txn.Set(key, binary.BigEndian.AppendUint64(nil, next))
}

// List returns every entry of the mailbox, oldest first, without removing them.
func (r *MailboxRepository) List(ctx context.Context, clientID uuid.UUID) ([]domain.MailboxEntry, error) {
	entries := make([]domain.MailboxEntry, 0)
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		if err := clientExists(txn, clientID); err != nil {
			return err
		}
		prefix := mailboxOf(clientID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			seq, err := parseSeq(prefix, item.Key())
			if err != nil {
				return err
			}
			var record diskMailboxEntry
			if err := item.Value(func(val []byte) error {
				return decode(val, &record)
			}); err != nil {
				return err
			}
			entries = append(entries, domain.MailboxEntry{
				Seq:         seq,
				RecipientID: clientID,
				Payload:     record.Payload,
				ReceivedAt:  fromUnixNano(record.ReceivedAt),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// DeleteThrough removes every entry with a sequence number <= through.
func (r *MailboxRepository) DeleteThrough(ctx context.Context, clientID uuid.UUID, through uint64) (int, error) {
	prefix := mailboxOf(clientID)
	var removed int
	err := update(ctx, r.db, func(txn *badger.Txn) error {
		removed = 0
		if err := clientExists(txn, clientID); err != nil {
			return err
		}
		keys, err := keysWithPrefix(txn, prefix)
		if err != nil {
			return err
		}
		for _, k := range keys {
			seq, err := parseSeq(prefix, k)
			if err != nil {
				return err
			}
			if seq > through {
				break
			}
			if err := txn.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	r.log.Debug("Mailbox acknowledged", "client_id", clientID, "through", through, "removed", removed)
	return removed, nil
}
