package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/hackjudge/go/internal/outbox"
)

// Service wires the connection manager, the upgrade handler and the stream
// consumer together.
type Service struct {
	manager  *ConnectionManager
	handler  *WebSocketHandler
	consumer *EventConsumer
}

type Config struct {
	Connection ConnectionConfig
	Consumer   ConsumerConfig
	JetStream  outbox.JetStreamConfig
}

func DefaultConfig() Config {
	return Config{
		Connection: DefaultConnectionConfig(),
		Consumer:   DefaultConsumerConfig(),
		JetStream:  outbox.DefaultJetStreamConfig(),
	}
}

func NewService(ctx context.Context, cfg Config, provider StateProvider, metrics Metrics) (*Service, error) {
	manager := NewConnectionManager(cfg.Connection, metrics)

	consumer, err := NewEventConsumer(ctx, manager, cfg.JetStream, cfg.Consumer)
	if err != nil {
		return nil, fmt.Errorf("failed to create event consumer: %w", err)
	}

	return &Service{
		manager:  manager,
		handler:  NewWebSocketHandler(manager, provider),
		consumer: consumer,
	}, nil
}

// Start runs until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting judging gateway")

	go s.manager.Start(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- s.consumer.Start(ctx) }()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("event consumer failed")
			_ = s.consumer.Stop()
			return err
		}
	}

	log.Info().Msg("judging gateway shutting down")
	return s.consumer.Stop()
}

// RegisterRoutes mounts the socket endpoint behind authn.
func (s *Service) RegisterRoutes(mux *http.ServeMux, authn func(http.Handler) http.Handler) {
	mux.Handle("/ws/judging", authn(http.HandlerFunc(s.handler.HandleConnection)))
	mux.HandleFunc("/ws/stats", s.handler.HandleStats)
	log.Info().Msg("gateway routes registered")
}

// Connected reports whether the stream connection is up.
func (s *Service) Connected() bool {
	return s.consumer.Connected()
}
