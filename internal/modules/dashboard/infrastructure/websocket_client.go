package infrastructure

import (
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"

	"dashboardWs/internal/modules/dashboard/domain"
)

// ClientOptions tunes the keepalive and buffering of a channel.
type ClientOptions struct {
	SendBuffer   int
	PingInterval time.Duration
	ReadTimeout  time.Duration
	ReadLimit    int64
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 60 * time.Second
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 1 << 16
	}
	return o
}

type Client struct {
	id          string
	hub         *Hub
	conn        *websocket.Conn
	dashboardID string
	userID      string
	opts        ClientOptions
	commands    *CommandProcessor
	connectedAt time.Time
	// syncedAt is the state revision of the last snapshot queued to this client.
	syncedAt atomic.Uint64

	sendMu sync.Mutex
	send   chan []byte
	closed bool

	closeOnce  sync.Once
	closeHooks []func(*Client)
	hookMu     sync.Mutex
}

// NewClient crea un canal para un dashboard con un identificador ULID propio.
func NewClient(hub *Hub, conn *websocket.Conn, dashboardID, userID string, opts ClientOptions, commands *CommandProcessor) *Client {
	opts = opts.withDefaults()
	return &Client{
		id:          ulid.Make().String(),
		hub:         hub,
		conn:        conn,
		dashboardID: domain.NormalizeDashboardID(dashboardID),
		userID:      strings.TrimSpace(userID),
		opts:        opts,
		commands:    commands,
		connectedAt: time.Now(),
		send:        make(chan []byte, opts.SendBuffer),
	}
}

func (c *Client) ID() string          { return c.id }
func (c *Client) DashboardID() string { return c.dashboardID }
func (c *Client) UserID() string      { return c.userID }

// Connected returns how long the channel has been open.
func (c *Client) Connected() time.Duration { return time.Since(c.connectedAt) }

// SyncedAt records the revision of the snapshot just queued; broadcasts of that
// revision or older are skipped for this client.
func (c *Client) SyncedAt(revision uint64) { c.syncedAt.Store(revision) }

// enqueue reports false when the buffer is full; a closed client silently drops.
func (c *Client) enqueue(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.sendMu.Lock()
		c.closed = true
		close(c.send)
		c.sendMu.Unlock()
		_ = c.conn.Close()
		c.invokeCloseHooks()
	})
}

// AddCloseHook registers a callback that will be executed once when the client closes.
func (c *Client) AddCloseHook(fn func(*Client)) {
	if fn == nil {
		return
	}
	c.hookMu.Lock()
	c.closeHooks = append(c.closeHooks, fn)
	c.hookMu.Unlock()
}

func (c *Client) invokeCloseHooks() {
	c.hookMu.Lock()
	hooks := append([]func(*Client){}, c.closeHooks...)
	c.closeHooks = nil
	c.hookMu.Unlock()

	for _, hook := range hooks {
		func(h func(*Client)) {
			defer func() {
				if r := recover(); r != nil {
					slog.Warn("ws close hook panic", slog.Any("error", r))
				}
			}()
			h(c)
		}(hook)
	}
}

// Send queues a dashboard frame for this client only.
func (c *Client) Send(msg domain.DashboardRx) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("websocket marshal error", slog.String("connectionId", c.id), slog.Any("error", err))
		return
	}
	c.sendRaw(data)
}

// SendError queues an {"action":"error"} control frame.
func (c *Client) SendError(reason string) {
	c.sendControl(ControlFrame{Action: "error", Error: reason, Timestamp: time.Now().UTC()})
}

func (c *Client) sendControl(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("websocket marshal error", slog.String("connectionId", c.id), slog.Any("error", err))
		return
	}
	c.sendRaw(data)
}

func (c *Client) sendRaw(data []byte) {
	if !c.enqueue(data) {
		slog.Warn("websocket send buffer full", slog.String("connectionId", c.id), slog.String("dashboard", c.dashboardID))
		go c.hub.detachClient(c)
	}
}

func (c *Client) WritePump() {
	ping := time.NewTicker(c.opts.PingInterval)
	defer ping.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.Warn("websocket write error", slog.String("connectionId", c.id), slog.Any("error", err))
				return
			}
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				slog.Warn("websocket ping error", slog.String("connectionId", c.id), slog.Any("error", err))
				return
			}
		}
	}
}

func (c *Client) ReadPump() {
	c.conn.SetReadLimit(c.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
	})
	defer c.hub.detachClient(c)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("websocket read error", slog.String("connectionId", c.id), slog.String("dashboard", c.dashboardID), slog.Any("error", err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
		if c.commands != nil {
			c.commands.Process(c, data)
		}
	}
}
