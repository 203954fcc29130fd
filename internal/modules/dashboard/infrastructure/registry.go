package infrastructure

import (
	"context"
	"log/slog"

	"dashboardWs/internal/modules/dashboard/application/port"
	"dashboardWs/internal/modules/dashboard/domain"
)

type HandlerRegistry struct {
	handlers map[string]port.TopicHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[string]port.TopicHandler)}
}

func (r *HandlerRegistry) Register(h port.TopicHandler) {
	r.handlers[h.Topic()] = h
}

// Topics lists the broker topics with a registered handler.
func (r *HandlerRegistry) Topics() []string {
	topics := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		topics = append(topics, t)
	}
	return topics
}

func (r *HandlerRegistry) Dispatch(ctx context.Context, event *domain.Event) error {
	if handler, ok := r.handlers[event.Topic]; ok {
		return handler.Handle(ctx, event)
	}
	slog.Debug("no handler for topic", slog.String("topic", event.Topic))
	return nil
}
