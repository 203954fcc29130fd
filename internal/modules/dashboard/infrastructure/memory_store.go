package infrastructure

import (
	"context"
	"sync"

	"dashboardWs/internal/modules/dashboard/application/port"
	"dashboardWs/internal/modules/dashboard/domain"
)

// MemoryStateStore keeps dashboard state in process. Documents are immutable, so a
// shallow copy per call is enough to keep callers from sharing state.
type MemoryStateStore struct {
	mu     sync.RWMutex
	states map[string]domain.DashboardState
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]domain.DashboardState)}
}

func (s *MemoryStateStore) Load(_ context.Context, dashboardID string) (*domain.DashboardState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[dashboardID]
	if !ok {
		return nil, port.ErrStateNotFound
	}
	return &state, nil
}

func (s *MemoryStateStore) Save(_ context.Context, dashboardID string, state *domain.DashboardState) error {
	if state == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[dashboardID] = *state
	return nil
}

func (s *MemoryStateStore) Update(_ context.Context, dashboardID string, change port.Change) (*domain.DashboardState, domain.DashboardRx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.states[dashboardID]
	msg, err := change(&state)
	if err != nil {
		return nil, domain.DashboardRx{}, err
	}
	state.Revision++
	s.states[dashboardID] = state
	return &state, msg, nil
}

func (s *MemoryStateStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.states))
	for id := range s.states {
		ids = append(ids, id)
	}
	return ids, nil
}

var _ port.StateStore = (*MemoryStateStore)(nil)
