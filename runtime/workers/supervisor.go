package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const waitTimeBeforeRestart = 200 * time.Millisecond

var errWorkerPanic = fmt.Errorf("worker panicked")

// Supervisor runs each worker in its own goroutine, restarts it after a
// panic or an error, and waits for all of them once the context is done.
// A worker returning nil is finished and never restarted.
type Supervisor struct {
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	log      *slog.Logger
	workers  []Worker
}

func NewSupervisor(log *slog.Logger) *Supervisor {
	return &Supervisor{log: log, stop: make(chan struct{})}
}

func (s *Supervisor) Add(worker ...Worker) *Supervisor {
	s.workers = append(s.workers, worker...)
	return s
}

// Run blocks until every worker has returned. Cancelling ctx or calling
// Stop, before or during Run, ends supervision.
func (s *Supervisor) Run(ctx context.Context) {
	supervisedCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.stop:
			cancel()
		case <-supervisedCtx.Done():
		}
	}()

	for _, worker := range s.workers {
		s.start(supervisedCtx, worker)
	}
	s.wg.Wait()
}

func (s *Supervisor) start(ctx context.Context, worker Worker) {
	s.wg.Add(1)
	name := workerName(worker)

	go func() {
		defer s.wg.Done()
		for {
			if ctx.Err() != nil {
				s.log.Info("Stopping worker", "name", name)
				return
			}

			err := func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("%w: %v", errWorkerPanic, r)
					}
				}()
				return worker.Run(ctx)
			}()

			if err == nil {
				s.log.Info("Worker finished", "name", name)
				return
			}
			if ctx.Err() != nil {
				s.log.Info("Worker stopped (context canceled)", "name", name)
				return
			}

			s.log.Warn("Worker crashed, restarting", "name", name, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(waitTimeBeforeRestart):
			}
		}
	}()
}

// Stop cancels every worker. Run returns once they have all exited.
// It is safe to call from any goroutine, more than once.
func (s *Supervisor) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}
