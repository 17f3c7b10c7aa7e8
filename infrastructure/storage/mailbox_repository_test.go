package storage

import (
	"bubble-relay/errors"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestMailboxRepository_AppendListOrder(t *testing.T) {
	req := require.New(t)
	f := setupFixture(t)
	ctx := context.Background()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.mailboxes.now = func() time.Time { return fixed }

	alice := f.createUser(t, "alice")
	phone := f.createClient(t, alice)
	laptop := f.createClient(t, alice)

	entries, err := f.mailboxes.Append(ctx, []uuid.UUID{phone.ID, laptop.ID}, []byte("first"))
	req.NoError(err)
	req.Len(entries, 2)
	_, err = f.mailboxes.Append(ctx, []uuid.UUID{phone.ID}, []byte("second"))
	req.NoError(err)

	inbox, err := f.mailboxes.List(ctx, phone.ID)
	req.NoError(err)
	req.Len(inbox, 2)
	req.Equal([]byte("first"), inbox[0].Payload)
	req.Equal([]byte("second"), inbox[1].Payload)
	req.Less(inbox[0].Seq, inbox[1].Seq)
	req.Equal(phone.ID, inbox[0].RecipientID)
	req.True(fixed.Equal(inbox[0].ReceivedAt))

	// Listing does not consume
	again, err := f.mailboxes.List(ctx, phone.ID)
	req.NoError(err)
	req.Equal(inbox, again)

	other, err := f.mailboxes.List(ctx, laptop.ID)
	req.NoError(err)
	req.Len(other, 1)
	req.Equal([]byte("first"), other[0].Payload)
}

func TestMailboxRepository_EmptyMailbox(t *testing.T) {
	req := require.New(t)
	f := setupFixture(t)
	client := f.createClient(t, f.createUser(t, "alice"))

	entries, err := f.mailboxes.List(context.Background(), client.ID)
	req.NoError(err)
	req.NotNil(entries)
	req.Empty(entries)
}

func TestMailboxRepository_AppendIsAllOrNothing(t *testing.T) {
	req := require.New(t)
	f := setupFixture(t)
	ctx := context.Background()
	client := f.createClient(t, f.createUser(t, "alice"))

	_, err := f.mailboxes.Append(ctx, []uuid.UUID{client.ID, uuid.New()}, []byte("lost"))
	req.ErrorIs(err, errors.ErrNotFound)

	entries, err := f.mailboxes.List(ctx, client.ID)
	req.NoError(err)
	req.Empty(entries)
}

func TestMailboxRepository_DeleteThrough(t *testing.T) {
	req := require.New(t)
	f := setupFixture(t)
	ctx := context.Background()
	client := f.createClient(t, f.createUser(t, "alice"))

	var seqs []uint64
	for _, body := range []string{"a", "b", "c"} {
		entries, err := f.mailboxes.Append(ctx, []uuid.UUID{client.ID}, []byte(body))
		req.NoError(err)
		seqs = append(seqs, entries[0].Seq)
	}

	removed, err := f.mailboxes.DeleteThrough(ctx, client.ID, seqs[1])
	req.NoError(err)
	req.Equal(2, removed)

	entries, err := f.mailboxes.List(ctx, client.ID)
	req.NoError(err)
	req.Len(entries, 1)
	req.Equal([]byte("c"), entries[0].Payload)

	removed, err = f.mailboxes.DeleteThrough(ctx, client.ID, seqs[1])
	req.NoError(err)
	req.Zero(removed)

	_, err = f.mailboxes.DeleteThrough(ctx, uuid.New(), 10)
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestMailboxRepository_SeqFollowsCommitOrder(t *testing.T) {
	req := require.New(t)
	f := setupFixture(t)
	ctx := context.Background()
	client := f.createClient(t, f.createUser(t, "alice"))

	// The first call to now() happens inside the slow send's transaction
	// and parks it until the fast send has committed.
	var (
		calls   atomic.Int32
		parked  = make(chan struct{})
		release = make(chan struct{})
	)
	f.mailboxes.now = func() time.Time {
		if calls.Add(1) == 1 {
			close(parked)
			<-release
		}
		return time.Now()
	}

	slowDone := make(chan error, 1)
	go func() {
		_, err := f.mailboxes.Append(ctx, []uuid.UUID{client.ID}, []byte("slow"))
		slowDone <- err
	}()
	<-parked

	fast, err := f.mailboxes.Append(ctx, []uuid.UUID{client.ID}, []byte("fast"))
	req.NoError(err)
	req.Equal(uint64(1), fast[0].Seq)

	seen, err := f.mailboxes.List(ctx, client.ID)
	req.NoError(err)
	req.Len(seen, 1)

	close(release)
	req.NoError(<-slowDone)

	entries, err := f.mailboxes.List(ctx, client.ID)
	req.NoError(err)
	req.Len(entries, 2)
	req.Equal([]byte("fast"), entries[0].Payload)
	req.Equal([]byte("slow"), entries[1].Payload)
	req.Equal(uint64(2), entries[1].Seq)

	// Acknowledging what was seen keeps the later delivery
	removed, err := f.mailboxes.DeleteThrough(ctx, client.ID, seen[0].Seq)
	req.NoError(err)
	req.Equal(1, removed)

	entries, err = f.mailboxes.List(ctx, client.ID)
	req.NoError(err)
	req.Len(entries, 1)
	req.Equal([]byte("slow"), entries[0].Payload)
}

func TestMailboxRepository_ConcurrentAppendsKeepReaderOrder(t *testing.T) {
	req := require.New(t)
	f := setupFixture(t)
	ctx := context.Background()
	client := f.createClient(t, f.createUser(t, "alice"))

	const (
		senders = 4
		each    = 10
	)
	var (
		mu       sync.Mutex
		returned = make(map[uint64]string)
		wg       sync.WaitGroup
	)
	for s := 0; s < senders; s++ {
		wg.Add(1)
		go func(s int) {
			defer wg.Done()
			for i := 0; i < each; {
				body := fmt.Sprintf("s%d-%d", s, i)
				entries, err := f.mailboxes.Append(ctx, []uuid.UUID{client.ID}, []byte(body))
				if errors.Is(err, errors.ErrInternal) {
					continue
				}
				if err != nil {
					t.Error(err)
					return
				}
				mu.Lock()
				returned[entries[0].Seq] = body
				mu.Unlock()
				i++
			}
		}(s)
	}
	wg.Wait()

	entries, err := f.mailboxes.List(ctx, client.ID)
	req.NoError(err)
	req.Len(entries, senders*each)
	req.Len(returned, senders*each)
	for i, entry := range entries {
		req.Equal(uint64(i+1), entry.Seq)
		req.Equal(returned[entry.Seq], string(entry.Payload))
	}

	// Each sender's own messages appear in the order it sent them
	next := make(map[string]int)
	for _, entry := range entries {
		var s, i int
		_, err := fmt.Sscanf(string(entry.Payload), "s%d-%d", &s, &i)
		req.NoError(err)
		sender := fmt.Sprint(s)
		req.Equal(next[sender], i)
		next[sender]++
	}
}
