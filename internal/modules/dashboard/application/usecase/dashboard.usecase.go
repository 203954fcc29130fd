package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"dashboardWs/internal/modules/dashboard/application/port"
	"dashboardWs/internal/modules/dashboard/domain"
)

var (
	ErrMissingDashboard = errors.New("missing dashboard id")
	ErrEmptyAction      = errors.New("action template is empty")
	// ErrDigestMismatch is returned when a conditional write targets a document that
	// has changed since the caller read it.
	ErrDigestMismatch = errors.New("document digest mismatch")
)

// DashboardUseCase owns the authoritative state of every dashboard. Writes to one
// dashboard are serialized; a failed patch never reaches the store or the channel.
// When the store is a port.ChangeFeed, frames reach the local channels through Follow
// so every replica broadcasts the same changes in the same order.
type DashboardUseCase struct {
	store       port.StateStore
	feed        port.ChangeFeed
	broadcaster port.Broadcaster
	sink        port.ActionSink
	metrics     port.MetricsRecorder
	now         func() time.Time

	locksMu   sync.Mutex
	locks     map[string]*sync.Mutex
	delivered map[string]uint64
}

type DashboardOption func(*DashboardUseCase)

func WithActionSink(sink port.ActionSink) DashboardOption {
	return func(uc *DashboardUseCase) { uc.sink = sink }
}

func WithMetrics(m port.MetricsRecorder) DashboardOption {
	return func(uc *DashboardUseCase) {
		if m != nil {
			uc.metrics = m
		}
	}
}

func WithClock(now func() time.Time) DashboardOption {
	return func(uc *DashboardUseCase) { uc.now = now }
}

func NewDashboardUseCase(store port.StateStore, broadcaster port.Broadcaster, opts ...DashboardOption) *DashboardUseCase {
	uc := &DashboardUseCase{
		store:       store,
		broadcaster: broadcaster,
		metrics:     port.NopMetrics{},
		now:         time.Now,
		locks:       make(map[string]*sync.Mutex),
		delivered:   make(map[string]uint64),
	}
	if feed, ok := store.(port.ChangeFeed); ok {
		uc.feed = feed
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (uc *DashboardUseCase) lock(id string) func() {
	uc.locksMu.Lock()
	mu, ok := uc.locks[id]
	if !ok {
		mu = &sync.Mutex{}
		uc.locks[id] = mu
	}
	uc.locksMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

// update commits change and broadcasts its frame, unless the feed will.
func (uc *DashboardUseCase) update(ctx context.Context, id string, change port.Change) (*domain.DashboardState, error) {
	state, msg, err := uc.store.Update(ctx, id, func(state *domain.DashboardState) (domain.DashboardRx, error) {
		msg, err := change(state)
		if err != nil {
			return msg, err
		}
		state.UpdatedAt = uc.now().UTC()
		return msg, nil
	})
	if err != nil {
		return nil, err
	}
	if uc.feed == nil && uc.broadcaster != nil {
		uc.broadcaster.Broadcast(ctx, id, state.Revision, msg)
	}
	uc.metrics.MessagePublished(msg.Kind)
	return state, nil
}

// Follow relays the store's change feed to the local broadcaster until ctx is done.
// Stores without a feed return at once.
func (uc *DashboardUseCase) Follow(ctx context.Context) error {
	if uc.feed == nil {
		return nil
	}
	return uc.feed.Follow(ctx, func(change port.Committed) {
		uc.deliver(ctx, change)
	})
}

// deliver broadcasts one feed change. Joins hold the same lock, so a channel either
// joined before the change and receives it, or its snapshot already contains it. A
// revision gap means feed messages were lost; the channels get the stored state again.
func (uc *DashboardUseCase) deliver(ctx context.Context, change port.Committed) {
	id := change.DashboardID
	unlock := uc.lock(id)
	defer unlock()

	uc.locksMu.Lock()
	last := uc.delivered[id]
	uc.locksMu.Unlock()

	mark := change.Revision
	switch {
	case change.Revision <= last:
		return
	case last != 0 && change.Revision != last+1:
		state, err := uc.store.Load(ctx, id)
		if err != nil {
			slog.Error("dashboard feed gap reload failed", slog.String("dashboard", id), slog.Any("error", err))
			return
		}
		slog.Warn("dashboard feed gap, replaying state", slog.String("dashboard", id), slog.Uint64("last", last), slog.Uint64("got", change.Revision))
		if uc.broadcaster != nil {
			for _, msg := range state.Messages() {
				uc.broadcaster.Broadcast(ctx, id, state.Revision, msg)
			}
		}
		mark = state.Revision
	default:
		if uc.broadcaster != nil {
			uc.broadcaster.Broadcast(ctx, id, change.Revision, change.Message)
		}
	}

	uc.locksMu.Lock()
	uc.delivered[id] = mark
	uc.locksMu.Unlock()
}

func normalizeID(id string) (string, error) {
	id = domain.NormalizeDashboardID(id)
	if id == "" {
		return "", ErrMissingDashboard
	}
	return id, nil
}

// PublishLayout validates and stores a layout, then pushes it to every receiver.
func (uc *DashboardUseCase) PublishLayout(ctx context.Context, dashboardID string, layout domain.Layout) error {
	id, err := normalizeID(dashboardID)
	if err != nil {
		return err
	}
	if err := layout.Validate(); err != nil {
		slog.Warn("dashboard layout rejected", slog.String("dashboard", id), slog.Any("error", err))
		return err
	}

	unlock := uc.lock(id)
	defer unlock()

	_, err = uc.update(ctx, id, func(state *domain.DashboardState) (domain.DashboardRx, error) {
		state.Layout = &layout
		return domain.LayoutMessage(layout), nil
	})
	if err != nil {
		return fmt.Errorf("publish layout %s: %w", id, err)
	}
	slog.Info("dashboard layout published", slog.String("dashboard", id), slog.Int("nodes", len(layout.Nodes)))
	return nil
}

// PublishSnapshot replaces the document wholesale.
func (uc *DashboardUseCase) PublishSnapshot(ctx context.Context, dashboardID string, doc domain.Document) error {
	id, err := normalizeID(dashboardID)
	if err != nil {
		return err
	}

	unlock := uc.lock(id)
	defer unlock()

	_, err = uc.update(ctx, id, func(state *domain.DashboardState) (domain.DashboardRx, error) {
		state.Document = doc
		state.HasDocument = true
		return domain.SnapshotMessage(doc), nil
	})
	if err != nil {
		return fmt.Errorf("publish snapshot %s: %w", id, err)
	}
	slog.Info("dashboard snapshot published", slog.String("dashboard", id))
	return nil
}

// PublishPatch applies patch atomically and broadcasts it only when every operation
// succeeded. It returns the new document.
func (uc *DashboardUseCase) PublishPatch(ctx context.Context, dashboardID string, patch domain.Patch) (domain.Document, error) {
	return uc.PublishPatchIfMatch(ctx, dashboardID, patch, "")
}

// PublishPatchIfMatch is PublishPatch guarded by an If-Match value: one or more
// quoted digests, weak or strong, or "*" for any current document. An empty value
// disables the check.
func (uc *DashboardUseCase) PublishPatchIfMatch(ctx context.Context, dashboardID string, patch domain.Patch, ifMatch string) (domain.Document, error) {
	id, err := normalizeID(dashboardID)
	if err != nil {
		return domain.Document{}, err
	}
	if err := patch.Validate(); err != nil {
		uc.metrics.PatchRejected("invalid")
		return domain.Document{}, err
	}

	ifMatch = strings.TrimSpace(ifMatch)
	unlock := uc.lock(id)
	defer unlock()

	var current domain.Document
	state, err := uc.update(ctx, id, func(state *domain.DashboardState) (domain.DashboardRx, error) {
		current = state.Document
		if !state.HasDocument {
			uc.metrics.PatchRejected("no_snapshot")
			return domain.DashboardRx{}, &domain.ProtocolOrderingError{Reason: "dashboard " + id + " has no data snapshot to patch"}
		}
		if ifMatch != "" {
			digest, err := state.Document.Digest()
			if err != nil {
				return domain.DashboardRx{}, err
			}
			if !matchesETag(ifMatch, digest) {
				uc.metrics.PatchRejected("digest")
				return domain.DashboardRx{}, ErrDigestMismatch
			}
		}
		next, err := state.Document.Apply(patch)
		if err != nil {
			uc.metrics.PatchRejected("apply")
			return domain.DashboardRx{}, err
		}
		state.Document = next
		return domain.PatchMessage(patch), nil
	})
	if err != nil {
		var perr *domain.PatchApplicationError
		if errors.As(err, &perr) {
			slog.Warn("dashboard patch rejected", slog.String("dashboard", id), slog.Int("ops", len(patch)), slog.Any("error", err))
			return current, err
		}
		return domain.Document{}, err
	}
	slog.Debug("dashboard patch published", slog.String("dashboard", id), slog.Int("ops", len(patch)), slog.Uint64("revision", state.Revision))
	return state.Document, nil
}

// matchesETag reports whether an If-Match header value names digest. Weak tags
// compare by their opaque part.
func matchesETag(header, digest string) bool {
	for _, tag := range strings.Split(header, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "*" {
			return true
		}
		if strings.Trim(strings.TrimPrefix(tag, "W/"), `"`) == digest {
			return true
		}
	}
	return false
}

// Apply routes a broker event to the matching publish operation.
func (uc *DashboardUseCase) Apply(ctx context.Context, event *domain.Event) error {
	if event == nil {
		return nil
	}
	switch event.Message.Kind {
	case domain.RxLayout:
		return uc.PublishLayout(ctx, event.DashboardID, event.Message.Layout)
	case domain.RxDataSnapshot:
		return uc.PublishSnapshot(ctx, event.DashboardID, event.Message.Snapshot)
	case domain.RxDataPatch:
		_, err := uc.PublishPatch(ctx, event.DashboardID, event.Message.Patch)
		return err
	default:
		return domain.ErrMalformedMessage
	}
}

// State returns the stored state or port.ErrStateNotFound.
func (uc *DashboardUseCase) State(ctx context.Context, dashboardID string) (*domain.DashboardState, error) {
	id, err := normalizeID(dashboardID)
	if err != nil {
		return nil, err
	}
	return uc.store.Load(ctx, id)
}

// InitialMessages returns the layout and snapshot a receiver must apply before any
// patch. Unknown dashboards yield no messages.
func (uc *DashboardUseCase) InitialMessages(ctx context.Context, dashboardID string) ([]domain.DashboardRx, error) {
	var out []domain.DashboardRx
	err := uc.Join(ctx, dashboardID, func(msgs []domain.DashboardRx, _ uint64) { out = msgs })
	return out, err
}

// Join loads the initial messages of a dashboard and hands them, with the revision
// they reflect, to deliver while the dashboard is locked. A channel that subscribes
// and enqueues inside deliver sees no patch ahead of its snapshot.
func (uc *DashboardUseCase) Join(ctx context.Context, dashboardID string, deliver func(msgs []domain.DashboardRx, revision uint64)) error {
	id, err := normalizeID(dashboardID)
	if err != nil {
		return err
	}
	unlock := uc.lock(id)
	defer unlock()

	var (
		msgs     []domain.DashboardRx
		revision uint64
	)
	state, err := uc.store.Load(ctx, id)
	switch {
	case errors.Is(err, port.ErrStateNotFound):
	case err != nil:
		return fmt.Errorf("load dashboard %s: %w", id, err)
	default:
		msgs = state.Messages()
		revision = state.Revision
	}
	if deliver != nil {
		deliver(msgs, revision)
	}
	return nil
}

// Resync is Join for a receiver that asked to start over.
func (uc *DashboardUseCase) Resync(ctx context.Context, dashboardID, connectionID string, deliver func(msgs []domain.DashboardRx, revision uint64)) error {
	count := 0
	err := uc.Join(ctx, dashboardID, func(msgs []domain.DashboardRx, revision uint64) {
		count = len(msgs)
		deliver(msgs, revision)
	})
	if err != nil {
		return err
	}
	slog.Info("dashboard resync", slog.String("dashboard", dashboardID), slog.String("connectionId", connectionID), slog.Int("messages", count))
	return nil
}

// HandleAction forwards a client Msg to the action sink.
func (uc *DashboardUseCase) HandleAction(ctx context.Context, action domain.Action) error {
	id, err := normalizeID(action.DashboardID)
	if err != nil {
		uc.metrics.ActionReceived(false)
		return err
	}
	action.DashboardID = id
	if len(action.Template) == 0 {
		uc.metrics.ActionReceived(false)
		return ErrEmptyAction
	}
	if action.ReceivedAt.IsZero() {
		action.ReceivedAt = uc.now().UTC()
	}
	if uc.sink == nil {
		slog.Debug("dashboard action dropped without sink", slog.String("dashboard", id), slog.String("connectionId", action.ConnectionID))
		uc.metrics.ActionReceived(true)
		return nil
	}
	if err := uc.sink.Publish(ctx, action); err != nil {
		uc.metrics.ActionReceived(false)
		slog.Error("dashboard action publish failed", slog.String("dashboard", id), slog.String("connectionId", action.ConnectionID), slog.Any("error", err))
		return fmt.Errorf("publish action: %w", err)
	}
	uc.metrics.ActionReceived(true)
	slog.Info("dashboard action received", slog.String("dashboard", id), slog.String("connectionId", action.ConnectionID), slog.String("userId", action.UserID))
	return nil
}

// Dashboards lists every dashboard with stored state, sorted.
func (uc *DashboardUseCase) Dashboards(ctx context.Context) ([]string, error) {
	ids, err := uc.store.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}
