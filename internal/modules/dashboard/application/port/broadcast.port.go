package port

import (
	"context"

	"dashboardWs/internal/modules/dashboard/domain"
)

// Broadcaster delivers a server→client frame to every channel attached to a dashboard.
// revision is the state revision the frame produced; channels that joined at or after
// it already hold the change and skip it.
type Broadcaster interface {
	Broadcast(ctx context.Context, dashboardID string, revision uint64, msg domain.DashboardRx)
}

// TopicHandler is implemented by handlers registered per broker topic.
type TopicHandler interface {
	Topic() string
	Handle(ctx context.Context, event *domain.Event) error
}

// ActionSink receives resolved client actions on the server side.
type ActionSink interface {
	Publish(ctx context.Context, action domain.Action) error
}

// ActionSender transmits a resolved action from a receiver to its server.
type ActionSender interface {
	Send(ctx context.Context, tx domain.DashboardTx) error
}
