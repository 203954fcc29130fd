package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	backend "github.com/redis/go-redis/v9"

	"dashboardWs/internal/modules/dashboard/application/port"
	"dashboardWs/internal/modules/dashboard/domain"
)

// maxUpdateAttempts bounds the WATCH/EXEC retries of one Update.
const maxUpdateAttempts = 32

// RedisStateStore persists each dashboard as one JSON value plus an index set, so
// every replica of the server sees the same authoritative state. Updates are
// optimistic transactions that also publish the change on a pub/sub channel.
type RedisStateStore struct {
	client *backend.Client
	prefix string
}

func NewRedisStateStore(client *backend.Client, prefix string) *RedisStateStore {
	if strings.TrimSpace(prefix) == "" {
		prefix = "dashboard:"
	}
	return &RedisStateStore{client: client, prefix: prefix}
}

func (s *RedisStateStore) key(dashboardID string) string {
	return s.prefix + "state:" + dashboardID
}

func (s *RedisStateStore) indexKey() string {
	return s.prefix + "index"
}

// FeedChannel is the pub/sub channel carrying committed changes.
func (s *RedisStateStore) FeedChannel() string {
	return s.prefix + "changes"
}

func (s *RedisStateStore) Save(ctx context.Context, dashboardID string, state *domain.DashboardState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal dashboard state: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(dashboardID), data, 0)
	pipe.SAdd(ctx, s.indexKey(), dashboardID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save to redis: %w", err)
	}
	return nil
}

func (s *RedisStateStore) Load(ctx context.Context, dashboardID string) (*domain.DashboardState, error) {
	val, err := s.client.Get(ctx, s.key(dashboardID)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, port.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load from redis: %w", err)
	}
	var state domain.DashboardState
	if err := json.Unmarshal(val, &state); err != nil {
		return nil, fmt.Errorf("unmarshal dashboard state: %w", err)
	}
	return &state, nil
}

// Update watches the dashboard key, runs change on what it read and commits the new
// value, the index entry and the feed message in one MULTI/EXEC. Redis runs EXEC
// blocks one at a time, so feed order is commit order.
func (s *RedisStateStore) Update(ctx context.Context, dashboardID string, change port.Change) (*domain.DashboardState, domain.DashboardRx, error) {
	key := s.key(dashboardID)
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		var (
			state domain.DashboardState
			msg   domain.DashboardRx
		)
		err := s.client.Watch(ctx, func(tx *backend.Tx) error {
			val, err := tx.Get(ctx, key).Bytes()
			switch {
			case errors.Is(err, backend.Nil):
			case err != nil:
				return fmt.Errorf("load from redis: %w", err)
			default:
				if err := json.Unmarshal(val, &state); err != nil {
					return fmt.Errorf("unmarshal dashboard state: %w", err)
				}
			}

			if msg, err = change(&state); err != nil {
				return err
			}
			state.Revision++

			data, err := json.Marshal(state)
			if err != nil {
				return fmt.Errorf("marshal dashboard state: %w", err)
			}
			event, err := json.Marshal(port.Committed{DashboardID: dashboardID, Revision: state.Revision, Message: msg})
			if err != nil {
				return fmt.Errorf("marshal dashboard change: %w", err)
			}
			_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
				pipe.Set(ctx, key, data, 0)
				pipe.SAdd(ctx, s.indexKey(), dashboardID)
				pipe.Publish(ctx, s.FeedChannel(), event)
				return nil
			})
			return err
		}, key)
		if errors.Is(err, backend.TxFailedErr) {
			slog.Debug("dashboard update raced, retrying", slog.String("dashboard", dashboardID), slog.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, domain.DashboardRx{}, err
		}
		return &state, msg, nil
	}
	return nil, domain.DashboardRx{}, fmt.Errorf("%w: %s after %d attempts", port.ErrUpdateConflict, dashboardID, maxUpdateAttempts)
}

// Follow subscribes to the feed channel and delivers every change in publish order.
// It returns nil when ctx is done.
func (s *RedisStateStore) Follow(ctx context.Context, deliver func(port.Committed)) error {
	sub := s.client.Subscribe(ctx, s.FeedChannel())
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe %s: %w", s.FeedChannel(), err)
	}
	slog.Info("dashboard feed subscribed", slog.String("channel", s.FeedChannel()))

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-messages:
			if !ok {
				return nil
			}
			var change port.Committed
			if err := json.Unmarshal([]byte(m.Payload), &change); err != nil {
				slog.Warn("dashboard feed decode failed", slog.String("channel", m.Channel), slog.Any("error", err))
				continue
			}
			deliver(change)
		}
	}
}

func (s *RedisStateStore) List(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list from redis: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// Ping checks connectivity; used by the health endpoint.
func (s *RedisStateStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

var (
	_ port.StateStore = (*RedisStateStore)(nil)
	_ port.ChangeFeed = (*RedisStateStore)(nil)
)
