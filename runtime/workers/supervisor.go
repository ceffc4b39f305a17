package workers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"roster-lab/contract"
	"roster-lab/errors"
)

const waitTimeBeforeRestart = 200 * time.Millisecond

// Supervisor runs every registered worker in its own goroutine, recovers
// panics, restarts crashed workers after a short delay and shuts them all
// down when the parent context is canceled. A worker returning nil is
// considered finished and never restarted.
type Supervisor struct {
	Cancel  context.CancelFunc
	wg      *sync.WaitGroup
	log     *slog.Logger
	workers []contract.Worker
}

func NewSupervisor(log *slog.Logger) *Supervisor {
	return &Supervisor{wg: &sync.WaitGroup{}, log: log}
}

// Run starts all registered workers and blocks until each one has
// finished or the context is canceled.
func (s *Supervisor) Run(ctx context.Context) {
	// Local cancellation tied to the parent: if the parent cancels we
	// stop, if Stop is called only our children stop.
	supervisedCtx, cancel := context.WithCancel(ctx)
	s.Cancel = cancel
	defer s.Cancel()

	for _, worker := range s.workers {
		s.Start(supervisedCtx, worker)
	}
	s.wg.Wait()
}

func (s *Supervisor) Add(worker ...contract.Worker) contract.ISupervisor {
	s.workers = append(s.workers, worker...)
	return s
}

// Start runs a single worker under supervision. A panic or error in one
// worker never takes down the supervisor or its siblings.
func (s *Supervisor) Start(ctx context.Context, worker contract.Worker) {
	s.wg.Add(1)
	workerName := contract.GetWorkerName(worker)

	go func() {
		defer s.wg.Done()

		for {
			if ctx.Err() != nil {
				s.log.Info("Stopping worker", slog.String("name", workerName))
				return
			}

			err := func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = errors.ErrWorkerPanic
					}
				}()
				return worker.Run(ctx)
			}()

			if err == nil {
				s.log.Info("Worker finished", slog.String("name", workerName))
				return
			}

			if ctx.Err() != nil {
				s.log.Info("Worker stopped (context canceled)", slog.String("name", workerName))
				return
			}

			s.log.Warn("Worker crashed, restarting",
				slog.String("name", workerName),
				slog.Any("error", err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(waitTimeBeforeRestart):
			}
		}
	}()
}

// Stop cancels all supervised workers; Run returns once they are done.
func (s *Supervisor) Stop() {
	if s.Cancel != nil {
		s.Cancel()
	}
}
