// Package outbox relays committed domain events from the outbox table to
// NATS JetStream. Postgres NOTIFY wakes the relay as soon as a row commits;
// a fallback poll picks up anything a dropped notification missed.
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/hackjudge/go/internal/models"
)

// Publisher delivers one event downstream.
type Publisher interface {
	Publish(ctx context.Context, event models.OutboxEvent) error
}

// Source is the relay's view of the outbox table. Both store.Postgres and
// memstore.Store satisfy it.
type Source interface {
	FetchOutboxByID(ctx context.Context, id uuid.UUID) (*models.OutboxEvent, error)
	FetchUnsentOutbox(ctx context.Context, limit int32) ([]models.OutboxEvent, error)
	MarkOutboxSent(ctx context.Context, id uuid.UUID) error
	CountUnsentOutbox(ctx context.Context) (int64, error)
}

// Metrics observes relay activity.
type Metrics interface {
	Published(eventType string)
	PublishFailed(eventType string)
	Unsent(n int64)
}

type Config struct {
	NotifyChannel    string        `yaml:"notify_channel" env:"OUTBOX_NOTIFY_CHANNEL" envDefault:"judging_outbox_events"`
	FallbackInterval time.Duration `yaml:"fallback_interval" env:"OUTBOX_FALLBACK_INTERVAL" envDefault:"30s"`
	MaxRetries       int           `yaml:"max_retries" env:"OUTBOX_MAX_RETRIES" envDefault:"5"`
	RetryDelay       time.Duration `yaml:"retry_delay" env:"OUTBOX_RETRY_DELAY" envDefault:"200ms"`
	PingInterval     time.Duration `yaml:"ping_interval" env:"OUTBOX_PING_INTERVAL" envDefault:"90s"`
	BatchSize        int32         `yaml:"batch_size" env:"OUTBOX_BATCH_SIZE" envDefault:"100"`
}

func DefaultConfig() Config {
	return Config{
		NotifyChannel:    "judging_outbox_events",
		FallbackInterval: 30 * time.Second,
		MaxRetries:       5,
		RetryDelay:       200 * time.Millisecond,
		PingInterval:     90 * time.Second,
		BatchSize:        100,
	}
}
