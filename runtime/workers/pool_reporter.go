package workers

import (
	"bubble-relay/infrastructure/storage"
	"context"
	"log/slog"
	"time"
)

type PoolSource interface {
	ClientPools(ctx context.Context) ([]storage.ClientPool, error)
}

type PoolGauge interface {
	PoolSnapshot(clientsWithPool, lowPools, pendingEntries int)
}

// PoolReporter samples key package pools and mailbox depths so operators
// can see clients about to run out of key packages.
type PoolReporter struct {
	source       PoolSource
	gauge        PoolGauge
	log          *slog.Logger
	interval     time.Duration
	lowThreshold int
}

func NewPoolReporter(source PoolSource, gauge PoolGauge, log *slog.Logger, interval time.Duration, lowThreshold int) *PoolReporter {
	return &PoolReporter{source: source, gauge: gauge, log: log, interval: interval, lowThreshold: lowThreshold}
}

func (p *PoolReporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		if err := p.Report(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Report takes one sample. A pool at or below the threshold is low,
// an exhausted one included.
func (p *PoolReporter) Report(ctx context.Context) error {
	pools, err := p.source.ClientPools(ctx)
	if err != nil {
		return err
	}
	withPool, low, pending := 0, 0, 0
	for _, pool := range pools {
		if pool.KeyPackages > 0 {
			withPool++
		}
		if pool.KeyPackages <= p.lowThreshold {
			low++
		}
		pending += pool.Mailbox
	}
	p.gauge.PoolSnapshot(withPool, low, pending)
	if low > 0 {
		p.log.Warn("Key package pools running low", "clients", low, "threshold", p.lowThreshold)
	}
	return nil
}
