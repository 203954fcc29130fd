package broker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"dashboardWs/internal/modules/dashboard/domain"
)

// messageWriter is the part of kafka.Writer the producer needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ActionProducer publishes client actions to a Kafka topic, keyed by dashboard so
// actions of one dashboard stay ordered.
type ActionProducer struct {
	writer messageWriter
	topic  string
}

func NewActionProducer(brokers []string, topic string) *ActionProducer {
	return &ActionProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
		topic: topic,
	}
}

func (p *ActionProducer) Publish(ctx context.Context, action domain.Action) error {
	value, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("encode action: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(action.DashboardID),
		Value: value,
		Time:  action.ReceivedAt,
		Headers: []kafka.Header{
			{Key: "dashboard", Value: []byte(action.DashboardID)},
			{Key: "connection", Value: []byte(action.ConnectionID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write %s: %w", p.topic, err)
	}
	slog.Debug("kafka action produced", slog.String("topic", p.topic), slog.String("dashboard", action.DashboardID))
	return nil
}

func (p *ActionProducer) Close() error {
	return p.writer.Close()
}
