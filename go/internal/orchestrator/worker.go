package orchestrator

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/hackjudge/go/internal/models"
)

// Run starts the worker pool and blocks until ctx is cancelled. Armed timers
// are released on shutdown; running slots are recovered from the store on
// the next start.
func (s *Scheduler) Run(ctx context.Context, handler CompletionHandler) error {
	log.Info().Int("workers", s.numWorkers).Msg("completion scheduler started")

	var wg sync.WaitGroup
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	for i := 0; i < s.numWorkers; i++ {
		wg.Add(1)
		go s.worker(workerCtx, &wg, i, handler)
	}

	<-ctx.Done()
	log.Info().Msg("completion scheduler shutdown requested")

	s.Stop()
	cancelWorkers()
	wg.Wait()

	log.Info().Int("abandoned_timers", s.Pending()).Msg("all completion workers shut down")
	return nil
}

// Stop releases armed timers and rejects new registrations.
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *Scheduler) worker(ctx context.Context, wg *sync.WaitGroup, workerID int, handler CompletionHandler) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Int("worker_id", workerID).Msg("worker shutting down")
			return
		case job := <-s.workCh:
			s.handle(ctx, workerID, handler, job)
		}
	}
}

func (s *Scheduler) handle(ctx context.Context, workerID int, handler CompletionHandler, job models.CompletionJob) {
	if s.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.jobTimeout)
		defer cancel()
	}

	log.Debug().
		Str("group_id", job.GroupID.String()).
		Str("project_devpost_id", job.ProjectDevpostID).
		Int("worker_id", workerID).
		Msg("worker handling completion")

	if err := handler.AutoComplete(ctx, job); err != nil {
		log.Error().
			Err(err).
			Str("group_id", job.GroupID.String()).
			Str("project_devpost_id", job.ProjectDevpostID).
			Int("worker_id", workerID).
			Msg("completion handling failed")
	}
}
