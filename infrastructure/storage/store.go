package storage

import (
	"bubble-relay/errors"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Key layout. Every entity lives under its own prefix so that cascading
// deletes are prefix scans inside a single transaction.
//
//	user:id:{user}                 -> diskUser
//	user:name:{lower(username)}    -> user id (16 bytes)
//	user:email:{lower(email)}      -> user id (16 bytes)
//	client:id:{client}             -> diskClient
//	client:owner:{user}:{client}   -> empty
//	kp:{client}:{seq %020d}        -> raw key package
//	mbox:{client}:{seq %020d}      -> diskMailboxEntry
//	sess:id:{session}              -> diskSession
//	sess:owner:{user}:{session}    -> empty
//	gen:user:{user}                -> empty, touched when a client or session is added
//	gen:kp:{client}                -> empty, touched by every pool replace
//	gen:mbox:{client}              -> last mailbox seq (uint64 big-endian)
//
// The gen: markers exist for Badger's conflict detection, which only compares
// a committing transaction's reads against keys written after it started.
// A cascade reads the marker, so a concurrent insert under the same parent
// (which blindly writes the marker) forces one of the two to re-run.
const (
	userPrefix          = "user:id:"
	usernamePrefix      = "user:name:"
	emailPrefix         = "user:email:"
	clientPrefix        = "client:id:"
	clientOwnerPrefix   = "client:owner:"
	keyPackagePrefix    = "kp:"
	mailboxPrefix       = "mbox:"
	sessionPrefix       = "sess:id:"
	sessionOwnerPrefix  = "sess:owner:"
	userGenPrefix       = "gen:user:"
	keyPackageGenPrefix = "gen:kp:"
	mailboxGenPrefix    = "gen:mbox:"

	keyPackageSeqKey = "seq:kp"
	seqBandwidth     = 256

	// maxTxnAttempts bounds how often a transaction is re-run after Badger
	// reported a read-write conflict with a concurrent commit.
	maxTxnAttempts = 16
)

func userKey(id uuid.UUID) []byte       { return []byte(userPrefix + id.String()) }
func clientKey(id uuid.UUID) []byte     { return []byte(clientPrefix + id.String()) }
func sessionKey(id uuid.UUID) []byte    { return []byte(sessionPrefix + id.String()) }
func keyPackagesOf(id uuid.UUID) []byte { return []byte(keyPackagePrefix + id.String() + ":") }
func mailboxOf(id uuid.UUID) []byte     { return []byte(mailboxPrefix + id.String() + ":") }
func clientsOf(userID uuid.UUID) []byte { return []byte(clientOwnerPrefix + userID.String() + ":") }
func sessionsOf(userID uuid.UUID) []byte {
	return []byte(sessionOwnerPrefix + userID.String() + ":")
}

func userGenKey(id uuid.UUID) []byte       { return []byte(userGenPrefix + id.String()) }
func keyPackageGenKey(id uuid.UUID) []byte { return []byte(keyPackageGenPrefix + id.String()) }
func mailboxGenKey(id uuid.UUID) []byte    { return []byte(mailboxGenPrefix + id.String()) }

// touch records a write on a gen: marker without reading it, so concurrent
// inserts under the same parent do not conflict with each other.
func touch(txn *badger.Txn, key []byte) error {
	return txn.Set(key, nil)
}

// guard adds a gen: marker to the transaction's read set.
func guard(txn *badger.Txn, key []byte) error {
	_, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}

func clientOwnerKey(userID, clientID uuid.UUID) []byte {
	return append(clientsOf(userID), clientID.String()...)
}

func sessionOwnerKey(userID, sessionID uuid.UUID) []byte {
	return append(sessionsOf(userID), sessionID.String()...)
}

// seqKey appends a zero-padded sequence number so that lexicographic key
// order is numeric order.
func seqKey(prefix []byte, seq uint64) []byte {
	return append(append([]byte{}, prefix...), fmt.Sprintf("%020d", seq)...)
}

func parseSeq(prefix, key []byte) (uint64, error) {
	seq, err := strconv.ParseUint(string(key[len(prefix):]), 10, 64)
	if err != nil {
		return 0, errors.Internalf("malformed sequence key %q", key)
	}
	return seq, nil
}

var (
	encMode = mustEncMode()
	decMode = mustDecMode()
	// records are checked after decoding so that a shape mismatch fails
	// fast instead of producing a half-filled entity.
	validate = validator.New()
)

func mustEncMode() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

func mustDecMode() cbor.DecMode {
	dm, err := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}

func encode(v any) ([]byte, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, errors.Internalf("encode %T: %v", v, err)
	}
	return data, nil
}

func decode(data []byte, out any) error {
	if err := decMode.Unmarshal(data, out); err != nil {
		return errors.Internalf("decode %T: %v", out, err)
	}
	if err := validate.Struct(out); err != nil {
		return errors.Internalf("invalid %T record: %v", out, err)
	}
	return nil
}

// getRecord loads and decodes the value under key. A missing key is
// reported as notFound.
func getRecord(txn *badger.Txn, key []byte, out any, notFound error) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return notFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return decode(val, out)
	})
}

func setRecord(txn *badger.Txn, key []byte, v any) error {
	data, err := encode(v)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

// deletePrefix removes every key under prefix and returns how many were removed.
func deletePrefix(txn *badger.Txn, prefix []byte) (int, error) {
	keys, err := keysWithPrefix(txn, prefix)
	if err != nil {
		return 0, err
	}
	for _, k := range keys {
		if err := txn.Delete(k); err != nil {
			return 0, err
		}
	}
	return len(keys), nil
}

func keysWithPrefix(txn *badger.Txn, prefix []byte) ([][]byte, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys, nil
}

// update runs fn in a read-write transaction, re-running it when Badger
// detects a conflicting concurrent commit. fn must assign, not accumulate,
// any state it shares with the caller.
func update(ctx context.Context, db *badger.DB, fn func(txn *badger.Txn) error) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return errors.Internalf("transaction abandoned: %v", err)
		}
		err := db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return storageErr(err)
		}
		if attempt == maxTxnAttempts {
			return errors.Internalf("transaction conflicted %d times", attempt)
		}
	}
}

func view(ctx context.Context, db *badger.DB, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return errors.Internalf("read abandoned: %v", err)
	}
	return storageErr(db.View(fn))
}

// storageErr keeps the domain kinds returned from inside a transaction and
// wraps everything else (I/O, Badger internals) as ErrInternal.
func storageErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Kind(err) != errors.ErrInternal || errors.Is(err, errors.ErrInternal) {
		return err
	}
	return errors.Internalf("storage: %v", err)
}

func uuidFrom(b []byte) (uuid.UUID, error) {
	id, err := uuid.FromBytes(b)
	if err != nil {
		return uuid.Nil, errors.Internalf("malformed stored id: %v", err)
	}
	return id, nil
}

func optionalUUID(b []byte) (*uuid.UUID, error) {
	if len(b) == 0 {
		return nil, nil
	}
	id, err := uuidFrom(b)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func unixNano(t time.Time) int64 { return t.UTC().UnixNano() }

func fromUnixNano(n int64) time.Time { return time.Unix(0, n).UTC() }

// Sequencer hands out the store-wide monotonic numbers that order key
// packages. Numbers start at 1.
type Sequencer struct {
	seq *badger.Sequence
}

func NewSequencer(db *badger.DB, key string) (*Sequencer, error) {
	seq, err := db.GetSequence([]byte(key), seqBandwidth)
	if err != nil {
		return nil, fmt.Errorf("open sequence %s: %w", key, err)
	}
	return &Sequencer{seq: seq}, nil
}

func (s *Sequencer) Next() (uint64, error) {
	n, err := s.seq.Next()
	if err != nil {
		return 0, errors.Internalf("sequence: %v", err)
	}
	return n + 1, nil
}

func (s *Sequencer) Release() error {
	return s.seq.Release()
}

// BadgerLogger forwards Badger's internal logging to slog.
type BadgerLogger struct {
	log *slog.Logger
}

func NewBadgerLogger(log *slog.Logger) BadgerLogger {
	return BadgerLogger{log: log.With("component", "badger")}
}

func (b BadgerLogger) Errorf(format string, args ...any) {
	b.log.Error(fmt.Sprintf(format, args...))
}

func (b BadgerLogger) Warningf(format string, args ...any) {
	b.log.Warn(fmt.Sprintf(format, args...))
}

func (b BadgerLogger) Infof(format string, args ...any) {
	b.log.Info(fmt.Sprintf(format, args...))
}

func (b BadgerLogger) Debugf(format string, args ...any) {
	b.log.Debug(fmt.Sprintf(format, args...))
}
