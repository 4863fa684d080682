package memstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/hackjudge/go/internal/apperr"
	"github.com/mcdev12/hackjudge/go/internal/models"
)

// FetchOutboxByID returns an unsent event, or apperr.ErrNotFound.
func (s *Store) FetchOutboxByID(_ context.Context, id uuid.UUID) (*models.OutboxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.st.outbox {
		if e.ID == id && e.SentAt == nil {
			event := cloneEvent(e)
			return &event, nil
		}
	}
	return nil, fmt.Errorf("outbox event %s: %w", id, apperr.ErrNotFound)
}

// FetchUnsentOutbox returns up to limit unsent events in insertion order.
func (s *Store) FetchUnsentOutbox(_ context.Context, limit int32) ([]models.OutboxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.OutboxEvent
	for _, e := range s.st.outbox {
		if int32(len(out)) >= limit {
			break
		}
		if e.SentAt == nil {
			out = append(out, cloneEvent(e))
		}
	}
	return out, nil
}

func (s *Store) MarkOutboxSent(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.st.outbox {
		if s.st.outbox[i].ID == id {
			now := time.Now().UTC()
			s.st.outbox[i].SentAt = &now
			return nil
		}
	}
	return fmt.Errorf("outbox event %s: %w", id, apperr.ErrNotFound)
}

func (s *Store) CountUnsentOutbox(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, e := range s.st.outbox {
		if e.SentAt == nil {
			n++
		}
	}
	return n, nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

func cloneEvent(e models.OutboxEvent) models.OutboxEvent {
	e.Payload = append([]byte(nil), e.Payload...)
	if e.SentAt != nil {
		at := *e.SentAt
		e.SentAt = &at
	}
	return e
}
