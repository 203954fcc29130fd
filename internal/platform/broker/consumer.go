package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"dashboardWs/internal/modules/dashboard/domain"
)

type KafkaConsumer struct {
	reader *kafka.Reader
}

func NewKafkaConsumer(brokers []string, groupID string, topic string) *KafkaConsumer {
	return &KafkaConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}),
	}
}

// Consume reads until ctx is cancelled. Undecodable records are logged and skipped;
// a record is never retried.
func (c *KafkaConsumer) Consume(ctx context.Context, handler func(*domain.Event) error) error {
	defer c.reader.Close()
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Warn("kafka read error", slog.Any("error", err))
			continue
		}
		event, err := decodeEvent(m)
		if err != nil {
			slog.Warn("kafka event discarded",
				slog.String("topic", m.Topic),
				slog.Int("partition", m.Partition),
				slog.Int64("offset", m.Offset),
				slog.Any("error", err),
			)
			continue
		}
		slog.Info("kafka message consumed",
			slog.String("topic", m.Topic),
			slog.Int("partition", m.Partition),
			slog.Int64("offset", m.Offset),
			slog.String("dashboard", event.DashboardID),
			slog.String("kind", string(event.Message.Kind)),
		)
		if err := handler(event); err != nil {
			slog.Warn("kafka handler error", slog.String("dashboard", event.DashboardID), slog.Any("error", err))
		}
	}
}

type rawEvent struct {
	DashboardID string            `json:"dashboardId"`
	Message     json.RawMessage   `json:"message"`
	Metadata    map[string]string `json:"metadata"`
}

var errNoDashboard = errors.New("event has no dashboard id")

// decodeEvent accepts either an envelope {"dashboardId", "message", "metadata"} or a
// bare server frame keyed by dashboard id.
func decodeEvent(m kafka.Message) (*domain.Event, error) {
	event := &domain.Event{Topic: m.Topic, Timestamp: m.Time}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	var envelope rawEvent
	body := m.Value
	if err := json.Unmarshal(m.Value, &envelope); err == nil && len(envelope.Message) > 0 {
		event.DashboardID = envelope.DashboardID
		event.Metadata = envelope.Metadata
		body = envelope.Message
	}
	if strings.TrimSpace(event.DashboardID) == "" {
		event.DashboardID = string(m.Key)
	}
	for _, h := range m.Headers {
		if event.DashboardID == "" && strings.EqualFold(h.Key, "dashboard") {
			event.DashboardID = string(h.Value)
		}
	}
	event.DashboardID = domain.NormalizeDashboardID(event.DashboardID)
	if event.DashboardID == "" {
		return nil, errNoDashboard
	}

	msg, err := domain.DecodeRx(body)
	if err != nil {
		return nil, fmt.Errorf("decode dashboard %s: %w", event.DashboardID, err)
	}
	event.Message = msg
	return event, nil
}
