package workers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// ValueLogGC periodically reclaims value log space left behind by consumed
// key packages, acknowledged messages and expired sessions.
type ValueLogGC struct {
	db           *badger.DB
	log          *slog.Logger
	interval     time.Duration
	discardRatio float64
}

func NewValueLogGC(db *badger.DB, log *slog.Logger, interval time.Duration, discardRatio float64) *ValueLogGC {
	return &ValueLogGC{db: db, log: log, interval: interval, discardRatio: discardRatio}
}

func (v *ValueLogGC) Run(ctx context.Context) error {
	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()
	for {
		if err := v.collect(); err != nil {
			if errors.Is(err, badger.ErrGCInMemoryMode) {
				v.log.Debug("Value log GC disabled for in-memory store")
				return nil
			}
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// collect rewrites value log files until Badger finds nothing worth
// rewriting.
func (v *ValueLogGC) collect() error {
	rewritten := 0
	for {
		err := v.db.RunValueLogGC(v.discardRatio)
		switch {
		case err == nil:
			rewritten++
		case errors.Is(err, badger.ErrNoRewrite), errors.Is(err, badger.ErrRejected):
			if rewritten > 0 {
				v.log.Info("Value log GC rewrote files", "count", rewritten)
			}
			return nil
		default:
			return err
		}
	}
}
