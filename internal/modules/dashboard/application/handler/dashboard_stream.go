package handler

import (
	"context"
	"log/slog"
	"strings"

	"dashboardWs/internal/modules/dashboard/application/port"
	"dashboardWs/internal/modules/dashboard/domain"
)

// Publisher is the subset of the dashboard use case the stream handler drives.
type Publisher interface {
	Apply(ctx context.Context, event *domain.Event) error
}

// DashboardStreamHandler applies layout/snapshot/patch events read from one broker
// topic. An optional kind filter lets a topic carry only data updates.
type DashboardStreamHandler struct {
	topic        string
	allowedKinds map[domain.RxKind]struct{}
	publisher    Publisher
}

func NewDashboardStreamHandler(topic string, allowedKinds []string, publisher Publisher) *DashboardStreamHandler {
	kinds := make(map[domain.RxKind]struct{}, len(allowedKinds))
	for _, k := range allowedKinds {
		if v := strings.TrimSpace(strings.ToLower(k)); v != "" {
			kinds[domain.RxKind(v)] = struct{}{}
		}
	}
	return &DashboardStreamHandler{
		topic:        strings.TrimSpace(topic),
		allowedKinds: kinds,
		publisher:    publisher,
	}
}

func (h *DashboardStreamHandler) Topic() string { return h.topic }

// Handle never returns an error for a rejected patch: the state is unchanged and the
// consumer must keep going. Store failures are returned.
func (h *DashboardStreamHandler) Handle(ctx context.Context, event *domain.Event) error {
	if event == nil {
		return nil
	}
	if len(h.allowedKinds) > 0 {
		if _, ok := h.allowedKinds[event.Message.Kind]; !ok {
			slog.Debug("dashboard-stream kind filtered", slog.String("topic", h.topic), slog.String("kind", string(event.Message.Kind)))
			return nil
		}
	}
	if strings.TrimSpace(event.DashboardID) == "" {
		slog.Warn("dashboard-stream event without dashboard", slog.String("topic", h.topic))
		return nil
	}
	err := h.publisher.Apply(ctx, event)
	if err == nil {
		return nil
	}
	if isProtocolError(err) {
		slog.Warn("dashboard-stream event rejected", slog.String("topic", h.topic), slog.String("dashboard", event.DashboardID), slog.String("kind", string(event.Message.Kind)), slog.Any("error", err))
		return nil
	}
	return err
}

var _ port.TopicHandler = (*DashboardStreamHandler)(nil)
