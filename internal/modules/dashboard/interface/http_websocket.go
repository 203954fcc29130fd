package transport

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"dashboardWs/internal/modules/dashboard/application/usecase"
	"dashboardWs/internal/modules/dashboard/domain"
	"dashboardWs/internal/modules/dashboard/infrastructure"
	"dashboardWs/internal/shared/auth"
)

// WebsocketOptions configures the dashboard channel endpoint.
type WebsocketOptions struct {
	Client infrastructure.ClientOptions
	// AllowedOrigins lists accepted Origin hosts; empty or "*" accepts any.
	AllowedOrigins  []string
	RequireToken    bool
	TokenQueryParam string
	// OnClose runs once per channel after it is detached.
	OnClose func(dashboardID string, connected time.Duration)
}

// NewWebsocketHandler exposes /ws/dashboards/:dashboard. Tokens are optional unless
// RequireToken is set; a token that is present is always validated.
func NewWebsocketHandler(
	hub *infrastructure.Hub,
	uc *usecase.DashboardUseCase,
	validator auth.TokenValidator,
	opts WebsocketOptions,
) echo.HandlerFunc {
	upgrader := websocket.Upgrader{CheckOrigin: originChecker(opts.AllowedOrigins)}
	commands := newCommandProcessor(uc)

	return func(c echo.Context) error {
		dashboard := domain.NormalizeDashboardID(c.Param("dashboard"))
		logger := c.Logger()
		requestID := c.Response().Header().Get(echo.HeaderXRequestID)
		peerIP := c.RealIP()

		if dashboard == "" {
			logger.Warnf("ws rejected: missing dashboard ip=%s reqID=%s", peerIP, requestID)
			return httpError(c, "connect", usecase.ErrMissingDashboard)
		}

		token := strings.TrimSpace(c.Param("token"))
		if token == "" {
			token = auth.ExtractToken(c.Request(), opts.TokenQueryParam)
		}
		userID := ""
		if validator != nil && (opts.RequireToken || token != "") {
			claims, err := auth.Authorize(validator, token, dashboard)
			if err != nil {
				logger.Warnf("ws rejected dashboard=%s ip=%s reqID=%s: %v", dashboard, peerIP, requestID, err)
				return httpError(c, "connect", err)
			}
			userID = claims.Subject
		}

		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			slog.Error("ws handler upgrade failed", slog.String("dashboard", dashboard), slog.Any("error", err))
			logger.Errorf("ws upgrade failed dashboard=%s ip=%s reqID=%s: %v", dashboard, peerIP, requestID, err)
			// The upgrader already wrote the HTTP error.
			return nil
		}

		client := infrastructure.NewClient(hub, conn, dashboard, userID, opts.Client, commands)
		client.AddCloseHook(func(cl *infrastructure.Client) {
			logger.Infof("ws disconnected dashboard=%s connection=%s user=%s after=%s",
				cl.DashboardID(), cl.ID(), cl.UserID(), cl.Connected().Round(time.Millisecond))
			if opts.OnClose != nil {
				opts.OnClose(cl.DashboardID(), cl.Connected())
			}
		})

		ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
		defer cancel()
		err = uc.Join(ctx, dashboard, func(msgs []domain.DashboardRx, revision uint64) {
			client.SyncedAt(revision)
			hub.AttachClient(client)
			for _, msg := range msgs {
				client.Send(msg)
			}
		})
		if err != nil {
			slog.Error("ws handler join failed", slog.String("dashboard", dashboard), slog.Any("error", err))
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "dashboard unavailable"), time.Now().Add(time.Second))
			_ = conn.Close()
			return nil
		}

		go client.WritePump()
		go client.ReadPump()

		logger.Infof("ws connected dashboard=%s connection=%s user=%s ip=%s reqID=%s",
			dashboard, client.ID(), userID, peerIP, requestID)
		return nil
	}
}

// newCommandProcessor wires inbound frames to the use case: Msg frames become
// actions and {"action":"resync"} replays layout and snapshot.
func newCommandProcessor(uc *usecase.DashboardUseCase) *infrastructure.CommandProcessor {
	commands := infrastructure.NewCommandProcessor(func(ctx context.Context, client *infrastructure.Client, tx domain.DashboardTx) error {
		return uc.HandleAction(ctx, domain.Action{
			DashboardID:  client.DashboardID(),
			ConnectionID: client.ID(),
			UserID:       client.UserID(),
			Template:     tx.Template,
		})
	})
	commands.Register("resync", func(ctx context.Context, client *infrastructure.Client, _ infrastructure.Command) {
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		err := uc.Resync(ctx, client.DashboardID(), client.ID(), func(msgs []domain.DashboardRx, revision uint64) {
			client.SyncedAt(revision)
			for _, msg := range msgs {
				client.Send(msg)
			}
		})
		if err != nil {
			slog.Warn("ws resync failed", slog.String("connectionId", client.ID()), slog.String("dashboard", client.DashboardID()), slog.Any("error", err))
			client.SendError("resync failed")
		}
	})
	return commands
}

func originChecker(allowed []string) func(*http.Request) bool {
	hosts := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		origin = strings.ToLower(strings.TrimSpace(origin))
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			origin = u.Host
		}
		if origin != "" {
			hosts[origin] = struct{}{}
		}
	}
	if len(hosts) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		_, ok := hosts[strings.ToLower(u.Host)]
		return ok
	}
}
