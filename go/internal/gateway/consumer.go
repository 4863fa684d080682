package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/hackjudge/go/internal/events"
	"github.com/mcdev12/hackjudge/go/internal/outbox"
)

type ConsumerConfig struct {
	// ConsumerName must be unique per gateway instance; instances sharing a
	// durable consumer would split the stream between them.
	ConsumerName  string        `yaml:"consumer_name" env:"GATEWAY_CONSUMER_NAME" envDefault:"judging-gateway"`
	MaxDeliver    int           `yaml:"max_deliver" env:"GATEWAY_MAX_DELIVER" envDefault:"5"`
	AckWait       time.Duration `yaml:"ack_wait" env:"GATEWAY_ACK_WAIT" envDefault:"30s"`
	MaxAckPending int           `yaml:"max_ack_pending" env:"GATEWAY_MAX_ACK_PENDING" envDefault:"100"`
}

func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		ConsumerName:  "judging-gateway",
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		MaxAckPending: 100,
	}
}

// Broadcaster accepts decoded events for fan-out.
type Broadcaster interface {
	Broadcast(env events.Envelope)
}

// EventConsumer reads the judging stream and hands each event to the
// connection manager.
type EventConsumer struct {
	out      Broadcaster
	nc       *nats.Conn
	consumer jetstream.Consumer
	config   ConsumerConfig
}

func NewEventConsumer(ctx context.Context, out Broadcaster, js outbox.JetStreamConfig, cfg ConsumerConfig) (*EventConsumer, error) {
	nc, err := outbox.Connect(js, cfg.ConsumerName)
	if err != nil {
		return nil, err
	}

	jsCtx, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if err := outbox.EnsureStream(ctx, jsCtx, js); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream: %w", err)
	}

	consumer, err := jsCtx.CreateOrUpdateConsumer(ctx, js.StreamName, jetstream.ConsumerConfig{
		Name:          cfg.ConsumerName,
		Durable:       cfg.ConsumerName,
		Description:   "Judging gateway WebSocket fan-out",
		FilterSubject: js.SubjectPrefix + ".>",
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    cfg.MaxDeliver,
		AckWait:       cfg.AckWait,
		MaxAckPending: cfg.MaxAckPending,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}
	log.Info().
		Str("consumer", cfg.ConsumerName).
		Str("stream", js.StreamName).
		Msg("JetStream consumer ready")

	return &EventConsumer{out: out, nc: nc, consumer: consumer, config: cfg}, nil
}

// Start consumes until ctx is cancelled.
func (ec *EventConsumer) Start(ctx context.Context) error {
	log.Info().Str("consumer", ec.config.ConsumerName).Msg("starting JetStream event consumer")

	messageCh := make(chan jetstream.Msg, 100)
	consumeCtx, err := ec.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case messageCh <- msg:
		case <-ctx.Done():
			_ = msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("event consumer shutting down")
			return nil
		case msg := <-messageCh:
			if err := HandleMessage(ec.out, msg.Data()); err != nil {
				// a malformed envelope will never decode; redelivery cannot help
				log.Error().Err(err).Str("subject", msg.Subject()).Msg("dropping undecodable message")
				if termErr := msg.Term(); termErr != nil {
					log.Error().Err(termErr).Msg("failed to terminate message")
				}
				continue
			}
			if ackErr := msg.Ack(); ackErr != nil {
				log.Error().Err(ackErr).Msg("failed to ACK message")
			}
		}
	}
}

// HandleMessage decodes one stream message and broadcasts it.
func HandleMessage(out Broadcaster, data []byte) error {
	var env events.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("failed to unmarshal event envelope: %w", err)
	}
	if env.EventType == "" {
		return fmt.Errorf("event %q has no type", env.EventID)
	}

	out.Broadcast(env)
	log.Debug().
		Str("event_id", env.EventID).
		Str("event_type", env.EventType).
		Str("group_id", env.GroupID).
		Msg("event queued for WebSocket clients")
	return nil
}

// Connected reports the NATS connection state.
func (ec *EventConsumer) Connected() bool {
	return ec.nc.IsConnected()
}

func (ec *EventConsumer) Stop() error {
	log.Info().Msg("stopping event consumer")
	if ec.nc != nil {
		return ec.nc.Drain()
	}
	return nil
}
