package workers

import (
	"bubble-relay/internal/testkit"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func TestValueLogGC_FinishesOnInMemoryStore(t *testing.T) {
	req := require.New(t)
	gc := NewValueLogGC(testkit.OpenBadger(t), slog.Default(), time.Minute, 0.5)

	done := make(chan error, 1)
	go func() { done <- gc.Run(context.Background()) }()

	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(time.Second):
		req.Fail("GC worker should finish on an in-memory store")
	}
}

func TestValueLogGC_OnDiskRunsUntilCancelled(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLogger(nil))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	gc := NewValueLogGC(db, slog.Default(), 10*time.Millisecond, 0.5)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req.NoError(gc.Run(ctx))
}
