package events

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"breezbook/internal/config"
)

// MessageWriter is the part of *kafka.Writer the sink uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink forwards bus events to one topic, keyed by tenant so a tenant's
// events stay ordered within a partition.
type KafkaSink struct {
	writer  MessageWriter
	logger  *zerolog.Logger
	timeout time.Duration
}

func NewKafkaSink(cfg config.KafkaConfig, logger *zerolog.Logger) *KafkaSink {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Transport:    &kafka.Transport{ClientID: cfg.ClientID},
	}
	return NewKafkaSinkWithWriter(writer, logger)
}

func NewKafkaSinkWithWriter(writer MessageWriter, logger *zerolog.Logger) *KafkaSink {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &KafkaSink{writer: writer, logger: logger, timeout: 5 * time.Second}
}

// Attach subscribes the sink to the given event types.
func (s *KafkaSink) Attach(bus *EventBus, types ...string) {
	for _, t := range types {
		bus.Subscribe(t, s.Handle)
	}
}

// Handle writes one event. Errors are logged and returned to the bus.
func (s *KafkaSink) Handle(event *Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.TenantID),
		Value: event.Payload,
		Time:  event.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.ID)},
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	for _, key := range event.Trace.Keys() {
		msg.Headers = append(msg.Headers, kafka.Header{Key: key, Value: []byte(event.Trace.Get(key))})
	}

	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		s.logger.Error().Err(err).
			Str("event_id", event.ID).
			Str("event_type", event.Type).
			Msg("failed to forward event to kafka")
		return err
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
