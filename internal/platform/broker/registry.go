package broker

import (
	"context"
	"log/slog"

	"dashboardWs/internal/modules/dashboard/domain"
)

// Dispatcher routes a decoded event to the handler registered for its topic.
type Dispatcher interface {
	Dispatch(ctx context.Context, event *domain.Event) error
}

func StartKafkaConsumers(
	ctx context.Context,
	registry Dispatcher,
	brokers []string,
	groupID string,
	topics []string,
) {
	if len(brokers) == 0 {
		// kafka.NewReader panics on an empty broker list.
		slog.Info("kafka disabled, no brokers configured")
		return
	}
	for _, topic := range topics {
		go func(tp string) {
			consumer := NewKafkaConsumer(brokers, groupID, tp)
			err := consumer.Consume(ctx, func(event *domain.Event) error {
				return registry.Dispatch(ctx, event)
			})
			slog.Info("kafka consumer stopped", slog.String("topic", tp), slog.Any("reason", err))
		}(topic)
	}
}
