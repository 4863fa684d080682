package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mcdev12/hackjudge/go/internal/apperr"
	"github.com/mcdev12/hackjudge/go/internal/db"
	"github.com/mcdev12/hackjudge/go/internal/models"
	"github.com/mcdev12/hackjudge/go/internal/sqlutil"
)

// Relay-side access to the outbox table. These run outside WithinTx, each
// statement in its own implicit transaction.

func dbOutboxToModel(o db.Outbox) models.OutboxEvent {
	return models.OutboxEvent{
		ID:        o.ID,
		GroupID:   sqlutil.FromNullUUID(o.GroupID),
		EventType: o.EventType,
		Payload:   o.Payload,
		CreatedAt: o.CreatedAt,
		SentAt:    sqlutil.FromSqlTime(o.SentAt),
	}
}

// FetchOutboxByID returns an unsent event. It wraps apperr.ErrNotFound when
// the event does not exist or was already relayed.
func (p *Postgres) FetchOutboxByID(ctx context.Context, id uuid.UUID) (*models.OutboxEvent, error) {
	row, err := db.New(p.db).FetchOutboxByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("outbox event %s: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch outbox event %s: %w", id, err)
	}
	event := dbOutboxToModel(row)
	return &event, nil
}

func (p *Postgres) FetchUnsentOutbox(ctx context.Context, limit int32) ([]models.OutboxEvent, error) {
	rows, err := db.New(p.db).FetchUnsentOutbox(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}
	events := make([]models.OutboxEvent, len(rows))
	for i, row := range rows {
		events[i] = dbOutboxToModel(row)
	}
	return events, nil
}

func (p *Postgres) MarkOutboxSent(ctx context.Context, id uuid.UUID) error {
	if err := db.New(p.db).MarkOutboxSent(ctx, id); err != nil {
		return fmt.Errorf("failed to mark outbox event %s sent: %w", id, err)
	}
	return nil
}

func (p *Postgres) CountUnsentOutbox(ctx context.Context) (int64, error) {
	n, err := db.New(p.db).CountUnsentOutbox(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count unsent outbox events: %w", err)
	}
	return n, nil
}

// Ping checks the database connection.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
