package orchestrator

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/hackjudge/go/internal/models"
)

// ScheduleAfter arms a one-shot timer that enqueues job once delay elapses.
// Every call arms a new timer; duplicates are resolved by the handler.
func (s *Scheduler) ScheduleAfter(delay time.Duration, job models.CompletionJob) {
	select {
	case <-s.done:
		log.Warn().
			Str("group_id", job.GroupID.String()).
			Str("project_devpost_id", job.ProjectDevpostID).
			Msg("scheduler stopped - dropping completion job")
		return
	default:
	}

	if delay <= 0 {
		go s.enqueue(job)
		return
	}

	timer := s.clock.NewTimer(delay)
	s.addTimer(timer, job)

	go func(t clockwork.Timer) {
		select {
		case <-t.Chan():
			s.removeTimer(t)
			s.enqueue(job)
		case <-s.done:
			stopAndDrainTimer(t)
			s.removeTimer(t)
		}
	}(timer)

	log.Debug().
		Str("group_id", job.GroupID.String()).
		Str("project_devpost_id", job.ProjectDevpostID).
		Time("deadline", job.Deadline).
		Dur("delay", delay).
		Msg("scheduled completion timer")
}

// enqueue blocks until a worker has room or the scheduler stops.
func (s *Scheduler) enqueue(job models.CompletionJob) {
	select {
	case s.workCh <- job:
		log.Debug().
			Str("group_id", job.GroupID.String()).
			Str("project_devpost_id", job.ProjectDevpostID).
			Msg("timer fired - enqueued for processing")
	case <-s.done:
	}
}

func (s *Scheduler) addTimer(t clockwork.Timer, job models.CompletionJob) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	s.timers[t] = job
}

func (s *Scheduler) removeTimer(t clockwork.Timer) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	delete(s.timers, t)
}

// stopAndDrainTimer safely stops a timer and drains its channel to prevent goroutine leaks.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
