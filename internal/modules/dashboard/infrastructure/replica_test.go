package infrastructure

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dashboardWs/internal/modules/dashboard/application/usecase"
	"dashboardWs/internal/modules/dashboard/domain"
)

type revisionFrame struct {
	revision uint64
	msg      domain.DashboardRx
}

type frameLog struct {
	mu     sync.Mutex
	frames []revisionFrame
}

func (l *frameLog) Broadcast(_ context.Context, _ string, revision uint64, msg domain.DashboardRx) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frames = append(l.frames, revisionFrame{revision: revision, msg: msg})
}

func (l *frameLog) all() []revisionFrame {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]revisionFrame(nil), l.frames...)
}

type replica struct {
	store *RedisStateStore
	uc    *usecase.DashboardUseCase
	log   *frameLog
}

func newReplica(t *testing.T, mr *miniredis.Miniredis) replica {
	t.Helper()
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisStateStore(client, "plant:")
	log := &frameLog{}
	return replica{store: store, uc: usecase.NewDashboardUseCase(store, log), log: log}
}

func TestRedisReplicasShareChanges(t *testing.T) {
	mr := miniredis.RunT(t)
	replicas := []replica{newReplica(t, mr), newReplica(t, mr)}

	ctx, cancel := context.WithCancel(context.Background())
	var followers sync.WaitGroup
	for _, r := range replicas {
		followers.Add(1)
		go func() {
			defer followers.Done()
			assert.NoError(t, r.uc.Follow(ctx))
		}()
	}
	t.Cleanup(func() {
		cancel()
		followers.Wait()
	})
	channel := replicas[0].store.FeedChannel()
	require.Eventually(t, func() bool { return mr.PubSubNumSub(channel)[channel] == 2 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, replicas[0].uc.PublishSnapshot(ctx, "ops", domain.MustDocument(map[string]any{})))

	const writers = 100
	errs := make(chan error, writers)
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			patch := domain.MustPatch(domain.PatchOperation{Op: domain.OpAdd, Path: fmt.Sprintf("/k%d", i), Value: []byte(fmt.Sprint(i))})
			_, err := replicas[i%2].uc.PublishPatch(ctx, "ops", patch)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	state, err := replicas[1].uc.State(ctx, "ops")
	require.NoError(t, err)
	assert.Equal(t, uint64(writers+1), state.Revision)
	root, ok := state.Document.Root().(map[string]any)
	require.True(t, ok)
	assert.Len(t, root, writers)

	// Every replica broadcasts every change once, in commit order, and a receiver
	// fed those frames ends up with the stored document.
	for n, r := range replicas {
		require.Eventually(t, func() bool { return len(r.log.all()) == writers+1 }, 5*time.Second, 10*time.Millisecond, "replica %d", n)
		session := usecase.NewSession("ops", nil)
		for i, f := range r.log.all() {
			require.Equal(t, uint64(i+1), f.revision, "replica %d", n)
			require.NoError(t, session.Apply(f.msg), "replica %d frame %d", n, i)
		}
		doc, synced := session.Document()
		require.True(t, synced)
		assert.True(t, doc.Equal(state.Document), "replica %d", n)
	}
}

func TestHubSkipsRevisionsAlreadyInSnapshot(t *testing.T) {
	hub := NewHub()
	behind := &Client{id: "behind", hub: hub, dashboardID: "ops", send: make(chan []byte, 4)}
	ahead := &Client{id: "ahead", hub: hub, dashboardID: "ops", send: make(chan []byte, 4)}
	behind.SyncedAt(2)
	ahead.SyncedAt(5)
	hub.clients[behind.id], hub.clients[ahead.id] = behind, ahead
	hub.topics["ops"] = map[*Client]struct{}{behind: {}, ahead: {}}

	msg := domain.PatchMessage(domain.Patch{})
	hub.Broadcast(context.Background(), "ops", 3, msg)
	hub.Broadcast(context.Background(), "ops", 6, msg)

	assert.Len(t, behind.send, 2)
	assert.Len(t, ahead.send, 1)
}
