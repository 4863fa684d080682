package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/hackjudge/go/internal/apperr"
	"github.com/mcdev12/hackjudge/go/internal/models"
)

// Relay moves unsent outbox rows to the publisher and marks them sent.
// Delivery is at least once; the JetStream message id deduplicates replays.
type Relay struct {
	source    Source
	publisher Publisher
	notifier  Notifier
	clock     clockwork.Clock
	metrics   Metrics
	cfg       Config

	mu        sync.Mutex
	running   bool
	published uint64
	lastSent  time.Time
}

// NewRelay builds a relay. notifier may be nil, in which case the relay only
// polls.
func NewRelay(source Source, publisher Publisher, notifier Notifier, clock clockwork.Clock, cfg Config, metrics Metrics) *Relay {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	return &Relay{
		source:    source,
		publisher: publisher,
		notifier:  notifier,
		clock:     clock,
		metrics:   metrics,
		cfg:       cfg,
	}
}

// Start drains the backlog, then relays until ctx is cancelled.
func (r *Relay) Start(ctx context.Context) error {
	log.Info().
		Str("channel", r.cfg.NotifyChannel).
		Dur("ping_interval", r.cfg.PingInterval).
		Dur("fallback_interval", r.cfg.FallbackInterval).
		Bool("notify", r.notifier != nil).
		Msg("outbox relay started")

	r.setRunning(true)
	defer r.setRunning(false)

	if err := r.ProcessUnsent(ctx); err != nil {
		log.Error().Err(err).Msg("failed to drain outbox backlog")
	}

	fallback := r.clock.NewTicker(r.cfg.FallbackInterval)
	defer fallback.Stop()

	var (
		notes <-chan *pq.Notification
		pings <-chan time.Time
	)
	if r.notifier != nil {
		notes = r.notifier.Notifications()
		ping := r.clock.NewTicker(r.cfg.PingInterval)
		defer ping.Stop()
		pings = ping.Chan()
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("outbox relay shutting down")
			return r.stop()
		case note := <-notes:
			if note == nil {
				// reconnected; sweep whatever was committed while we were away
				if err := r.ProcessUnsent(ctx); err != nil {
					log.Error().Err(err).Msg("failed to process unsent events after reconnect")
				}
				continue
			}
			if err := r.HandleNotification(ctx, note.Extra); err != nil {
				log.Error().Err(err).Msg("failed to handle notification")
			}
		case <-fallback.Chan():
			if err := r.ProcessUnsent(ctx); err != nil {
				log.Error().Err(err).Msg("failed to process unsent events")
			}
		case <-pings:
			if err := r.notifier.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}

func (r *Relay) stop() error {
	if r.notifier == nil {
		return nil
	}
	return r.notifier.Close()
}

// HandleNotification relays the event whose id is the notification payload.
// An event already relayed by the fallback poll is skipped.
func (r *Relay) HandleNotification(ctx context.Context, extra string) error {
	id, err := uuid.Parse(extra)
	if err != nil {
		return fmt.Errorf("invalid event ID in notification: %w", err)
	}

	event, err := r.source.FetchOutboxByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			log.Debug().Str("event_id", id.String()).Msg("outbox event already relayed")
			return nil
		}
		return fmt.Errorf("failed to fetch outbox event: %w", err)
	}
	return r.relay(ctx, *event)
}

// ProcessUnsent relays one batch of unsent events in commit order. A failed
// event is left for the next sweep and does not stop the batch.
func (r *Relay) ProcessUnsent(ctx context.Context) error {
	unsent, err := r.source.FetchUnsentOutbox(ctx, r.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}

	for _, event := range unsent {
		if err := r.relay(ctx, event); err != nil {
			log.Error().Err(err).Str("event_id", event.ID.String()).Msg("failed to relay event")
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}

	if n, err := r.source.CountUnsentOutbox(ctx); err == nil {
		r.metrics.Unsent(n)
	}
	return nil
}

func (r *Relay) relay(ctx context.Context, event models.OutboxEvent) error {
	if err := r.publishWithRetry(ctx, event); err != nil {
		r.metrics.PublishFailed(event.EventType)
		return fmt.Errorf("failed to publish event: %w", err)
	}
	if err := r.source.MarkOutboxSent(ctx, event.ID); err != nil {
		return err
	}

	r.metrics.Published(event.EventType)
	r.mu.Lock()
	r.published++
	r.lastSent = r.clock.Now()
	r.mu.Unlock()

	log.Debug().
		Str("event_id", event.ID.String()).
		Str("event_type", event.EventType).
		Msg("published and marked event as sent")
	return nil
}

// publishWithRetry backs off linearly between attempts.
func (r *Relay) publishWithRetry(ctx context.Context, event models.OutboxEvent) error {
	var lastErr error

	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-r.clock.After(r.cfg.RetryDelay * time.Duration(attempt)):
			}
		}

		if err := r.publisher.Publish(ctx, event); err != nil {
			lastErr = err
			log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Str("event_id", event.ID.String()).
				Msg("failed to publish, retrying")
			continue
		}

		if attempt > 0 {
			log.Info().
				Int("attempt", attempt+1).
				Str("event_id", event.ID.String()).
				Msg("publish succeeded after retry")
		}
		return nil
	}

	return fmt.Errorf("publish failed after %d attempts: %w", r.cfg.MaxRetries+1, lastErr)
}

// Stats reports how many events were relayed and when the last one was.
func (r *Relay) Stats() (uint64, time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.published, r.lastSent
}

// Running reports whether Start is active.
func (r *Relay) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Relay) setRunning(v bool) {
	r.mu.Lock()
	r.running = v
	r.mu.Unlock()
}
