package outbox

import (
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// Notifier delivers outbox event ids as they commit. A nil notification
// means the connection was re-established and events may have been missed.
type Notifier interface {
	Notifications() <-chan *pq.Notification
	Ping() error
	Close() error
}

// PQNotifier listens on a Postgres channel.
type PQNotifier struct {
	l *pq.Listener
}

func NewPQNotifier(dsn, channel string) (*PQNotifier, error) {
	l := pq.NewListener(
		dsn,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Int("event", int(ev)).Msg("listener event")
			}
		},
	)
	if err := l.Listen(channel); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("failed to listen to channel %s: %w", channel, err)
	}
	log.Info().Str("channel", channel).Msg("listening for notifications")
	return &PQNotifier{l: l}, nil
}

func (n *PQNotifier) Notifications() <-chan *pq.Notification {
	return n.l.Notify
}

func (n *PQNotifier) Ping() error {
	return n.l.Ping()
}

func (n *PQNotifier) Close() error {
	return n.l.Close()
}
