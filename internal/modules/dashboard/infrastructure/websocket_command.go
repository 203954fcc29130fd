package infrastructure

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"dashboardWs/internal/modules/dashboard/domain"
)

// Command is a control frame sent by a receiver, e.g. {"action":"resync"}.
type Command struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ControlFrame is the server's reply to a control command.
type ControlFrame struct {
	Action    string    `json:"action"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (c Command) actionKey() string {
	return normalizeAction(c.Action)
}

type CommandHandler func(ctx context.Context, client *Client, cmd Command)

// ActionHandler receives Msg frames (DashboardTx) from a client.
type ActionHandler func(ctx context.Context, client *Client, tx domain.DashboardTx) error

// CommandProcessor splits inbound frames into client actions and control commands.
type CommandProcessor struct {
	handlers      map[string]CommandHandler
	actions       ActionHandler
	actionTimeout time.Duration
}

func NewCommandProcessor(actions ActionHandler) *CommandProcessor {
	processor := &CommandProcessor{
		handlers:      make(map[string]CommandHandler),
		actions:       actions,
		actionTimeout: 10 * time.Second,
	}
	processor.Register("ping", processor.handlePing)
	return processor
}

func (p *CommandProcessor) Register(action string, handler CommandHandler) {
	if handler == nil {
		return
	}
	key := normalizeAction(action)
	if key == "" {
		return
	}
	p.handlers[key] = handler
}

func (p *CommandProcessor) Process(client *Client, data []byte) {
	if client == nil {
		return
	}

	if domain.IsTx(data) {
		p.processAction(client, data)
		return
	}

	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		slog.Debug("ws frame ignored", slog.String("connectionId", client.id), slog.Any("error", err))
		client.SendError("malformed frame")
		return
	}
	action := cmd.actionKey()
	handler, ok := p.handlers[action]
	if !ok {
		slog.Debug("ws command ignored", slog.String("connectionId", client.id), slog.String("dashboard", client.dashboardID), slog.String("action", action))
		return
	}
	handler(context.Background(), client, cmd)
}

func (p *CommandProcessor) processAction(client *Client, data []byte) {
	tx, err := domain.DecodeTx(data)
	if err != nil {
		client.SendError(err.Error())
		return
	}
	if p.actions == nil {
		slog.Debug("ws action ignored", slog.String("connectionId", client.id))
		return
	}
	// Actions run on the read loop so one client's actions keep their order.
	ctx, cancel := context.WithTimeout(context.Background(), p.actionTimeout)
	defer cancel()
	if err := p.actions(ctx, client, tx); err != nil {
		client.SendError(err.Error())
	}
}

func (p *CommandProcessor) handlePing(_ context.Context, client *Client, _ Command) {
	client.sendControl(ControlFrame{Action: "pong", Timestamp: time.Now().UTC()})
}

func normalizeAction(action string) string {
	return strings.ToLower(strings.TrimSpace(action))
}
