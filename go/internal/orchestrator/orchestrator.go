// Package orchestrator fires deferred presentation completions. Each
// registration arms a one-shot timer from an injected clock; expired jobs
// are handed to a bounded worker pool. There is no cancellation: handlers
// re-validate state when they run.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/hackjudge/go/internal/models"
)

const (
	defaultNumWorkers    = 4
	defaultWorkQueueSize = 256
)

// CompletionHandler is invoked for every expired job.
type CompletionHandler interface {
	AutoComplete(ctx context.Context, job models.CompletionJob) error
}

// Config sizes the worker pool.
type Config struct {
	NumWorkers    int           `yaml:"num_workers" env:"SCHEDULER_WORKERS" envDefault:"4"`
	WorkQueueSize int           `yaml:"work_queue_size" env:"SCHEDULER_QUEUE_SIZE" envDefault:"256"`
	JobTimeout    time.Duration `yaml:"job_timeout" env:"SCHEDULER_JOB_TIMEOUT" envDefault:"10s"`
}

// Scheduler owns the armed timers and the worker pool.
type Scheduler struct {
	clock      clockwork.Clock
	numWorkers int
	jobTimeout time.Duration

	workCh chan models.CompletionJob
	done   chan struct{}
	once   sync.Once

	timersMu sync.Mutex
	timers   map[clockwork.Timer]models.CompletionJob
}

// NewScheduler creates a scheduler. Jobs may be registered before Run; they
// queue until workers start.
func NewScheduler(clock clockwork.Clock, cfg Config) *Scheduler {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = defaultNumWorkers
	}
	if cfg.WorkQueueSize <= 0 {
		cfg.WorkQueueSize = defaultWorkQueueSize
	}
	return &Scheduler{
		clock:      clock,
		numWorkers: cfg.NumWorkers,
		jobTimeout: cfg.JobTimeout,
		workCh:     make(chan models.CompletionJob, cfg.WorkQueueSize),
		done:       make(chan struct{}),
		timers:     make(map[clockwork.Timer]models.CompletionJob),
	}
}

// Pending returns the number of armed timers that have not fired yet.
func (s *Scheduler) Pending() int {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	return len(s.timers)
}
