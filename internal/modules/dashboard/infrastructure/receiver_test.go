package infrastructure

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dashboardWs/internal/modules/dashboard/domain"
)

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
		var zero T
		return zero
	}
}

func TestReceiverResyncsAfterRejectedPatch(t *testing.T) {
	fromClient := make(chan string, 8)
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		read := func() bool {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return false
			}
			fromClient <- string(data)
			return true
		}
		send := func(frame string) { _ = conn.WriteMessage(websocket.TextMessage, []byte(frame)) }

		if !read() {
			return
		}
		send(`{"layout":{"version":"v0","layout":[{"ui":"bool_button","pointer":"/active"}]}}`)
		send(`{"data_snapshot":{"active":false}}`)
		send(`{"action":"pong","timestamp":"2026-01-01T00:00:00Z"}`)
		send(`{"data_patch":[{"op":"remove","path":"/missing"}]}`)
		if !read() {
			return
		}
		send(`{"data_snapshot":{"active":true}}`)
		for read() {
		}
	}))
	defer srv.Close()

	r := NewReceiver(domain.Ws{
		Name:          "plant",
		URL:           "ws" + strings.TrimPrefix(srv.URL, "http"),
		SendOnConnect: json.RawMessage(`{"action":"resync"}`),
	}, nil)
	applied := make(chan domain.RxKind, 8)
	r.Session().OnApplied(func(k domain.RxKind) { applied <- k })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	assert.JSONEq(t, `{"action":"resync"}`, receive(t, fromClient))
	assert.Equal(t, domain.RxLayout, receive(t, applied))
	assert.Equal(t, domain.RxDataSnapshot, receive(t, applied))
	assert.JSONEq(t, `{"action":"resync"}`, receive(t, fromClient))
	assert.Equal(t, domain.RxDataSnapshot, receive(t, applied))

	doc, synced := r.Session().Document()
	require.True(t, synced)
	assert.False(t, r.Session().AwaitingResync())
	v, err := doc.Lookup("/active")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	require.NoError(t, r.Send(context.Background(), domain.MustMsg(map[string]any{"action": "toggle"})))
	assert.JSONEq(t, `{"msg":{"template":{"action":"toggle"}}}`, receive(t, fromClient))

	cancel()
	require.NoError(t, receive(t, done))
	_, synced = r.Session().Document()
	assert.False(t, synced)
	assert.ErrorIs(t, r.Send(context.Background(), domain.MustMsg(1)), ErrNotConnected)
}

func TestControlAction(t *testing.T) {
	action, ok := controlAction([]byte(`{"action":"pong"}`))
	assert.True(t, ok)
	assert.Equal(t, "pong", action)

	_, ok = controlAction([]byte(`{"data_snapshot":{"action":"x"}}`))
	assert.False(t, ok)
	_, ok = controlAction([]byte(`[1]`))
	assert.False(t, ok)
}
