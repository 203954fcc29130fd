package port

import (
	"context"
	"errors"

	"dashboardWs/internal/modules/dashboard/domain"
)

var (
	// ErrStateNotFound is returned when no state was ever published for a dashboard.
	ErrStateNotFound = errors.New("dashboard state not found")
	// ErrUpdateConflict is returned when an update kept losing to concurrent writers.
	ErrUpdateConflict = errors.New("dashboard state update conflict")
)

// Change mutates a loaded state and returns the frame announcing the mutation to
// receivers. An error aborts the update without writing.
type Change func(state *domain.DashboardState) (domain.DashboardRx, error)

// StateStore persists the authoritative layout and document of each dashboard.
type StateStore interface {
	Load(ctx context.Context, dashboardID string) (*domain.DashboardState, error)
	// Save overwrites the state as given, without bumping or announcing it.
	Save(ctx context.Context, dashboardID string, state *domain.DashboardState) error
	List(ctx context.Context) ([]string, error)
	// Update runs change against the current state, an empty one when none exists,
	// and stores the result with its revision bumped. A write that raced another
	// update reruns change on the newer state.
	Update(ctx context.Context, dashboardID string, change Change) (*domain.DashboardState, domain.DashboardRx, error)
}

// Committed is one stored change as every server replica sees it.
type Committed struct {
	DashboardID string             `json:"dashboard"`
	Revision    uint64             `json:"revision"`
	Message     domain.DashboardRx `json:"message"`
}

// ChangeFeed is implemented by stores shared between server replicas. Update publishes
// each committed change in commit order and Follow hands them to deliver, changes of
// this replica included, until ctx is done.
type ChangeFeed interface {
	Follow(ctx context.Context, deliver func(Committed)) error
}
