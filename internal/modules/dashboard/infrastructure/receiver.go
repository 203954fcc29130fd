package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"dashboardWs/internal/modules/dashboard/application/port"
	"dashboardWs/internal/modules/dashboard/application/usecase"
	"dashboardWs/internal/modules/dashboard/domain"
)

// ErrNotConnected is returned by Send while no channel is open.
var ErrNotConnected = errors.New("receiver not connected")

// resyncCommand asks the server for a fresh layout and snapshot.
var resyncCommand = []byte(`{"action":"resync"}`)

// Receiver is the client end of a dashboard channel. It mirrors the server state in a
// Session and sends actions back over the same connection.
type Receiver struct {
	desc    domain.Ws
	header  http.Header
	dialer  *websocket.Dialer
	session *usecase.Session

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewReceiver(desc domain.Ws, header http.Header) *Receiver {
	r := &Receiver{
		desc:   desc,
		header: header,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
	r.session = usecase.NewSession(desc.Name, r.requestResync)
	return r
}

func (r *Receiver) Session() *usecase.Session { return r.session }

// Run connects, sends the descriptor's send_on_connect frame and applies every
// inbound frame in order until the channel closes or ctx is done. The session is reset
// on return, so a later Run starts from a fresh snapshot.
func (r *Receiver) Run(ctx context.Context) error {
	conn, _, err := r.dialer.DialContext(ctx, r.desc.URL, r.header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", r.desc.URL, err)
	}
	r.mu.Lock()
	r.conn = conn
	r.mu.Unlock()
	slog.Info("receiver connected", slog.String("name", r.desc.Name), slog.String("url", r.desc.URL))

	defer func() {
		r.mu.Lock()
		r.conn = nil
		r.mu.Unlock()
		_ = conn.Close()
		r.session.Reset()
		slog.Info("receiver disconnected", slog.String("name", r.desc.Name))
	}()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer stop()

	if len(r.desc.SendOnConnect) > 0 {
		if err := r.write(r.desc.SendOnConnect); err != nil {
			return err
		}
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		if action, ok := controlAction(data); ok {
			slog.Debug("receiver control frame", slog.String("name", r.desc.Name), slog.String("action", action))
			continue
		}
		// Rejected frames leave the session consistent; the resync callback covers
		// patches that cannot be applied.
		_ = r.session.ApplyRaw(data)
	}
}

// Send implements port.ActionSender.
func (r *Receiver) Send(_ context.Context, tx domain.DashboardTx) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("encode action: %w", err)
	}
	return r.write(data)
}

func (r *Receiver) requestResync(reason error) {
	slog.Info("receiver requesting resync", slog.String("name", r.desc.Name), slog.Any("reason", reason))
	if err := r.write(resyncCommand); err != nil {
		slog.Warn("receiver resync request failed", slog.String("name", r.desc.Name), slog.Any("error", err))
	}
}

func (r *Receiver) write(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return ErrNotConnected
	}
	_ = r.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return r.conn.WriteMessage(websocket.TextMessage, data)
}

// controlAction recognises server control frames such as {"action":"pong"}; no
// DashboardRx variant uses an "action" key.
func controlAction(data []byte) (string, bool) {
	var frame struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(data, &frame); err != nil || frame.Action == "" {
		return "", false
	}
	return frame.Action, true
}

var _ port.ActionSender = (*Receiver)(nil)
