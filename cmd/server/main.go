package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	backend "github.com/redis/go-redis/v9"

	"dashboardWs/internal/config"
	"dashboardWs/internal/modules/dashboard/application/handler"
	"dashboardWs/internal/modules/dashboard/application/port"
	"dashboardWs/internal/modules/dashboard/application/usecase"
	"dashboardWs/internal/modules/dashboard/infrastructure"
	transport "dashboardWs/internal/modules/dashboard/interface"
	"dashboardWs/internal/platform/broker"
	"dashboardWs/internal/shared/auth"
	"dashboardWs/internal/shared/logging"
)

func main() {
	// Attempt to load variables from .env so local runs honour configuration tweaks.
	if err := godotenv.Overload(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, ".env load warning: %v\n", err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	logFile, logger, err := logging.Setup(os.Stdout, logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Directory: cfg.Logging.Directory,
		AddSource: true,
	}, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging setup error: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	slog.SetDefault(logger)
	slog.Info("logging initialized", slog.String("directory", cfg.Logging.Directory), slog.String("level", cfg.Logging.Level), slog.String("format", cfg.Logging.Format))
	slog.Info("kafka config resolved", slog.Any("brokers", cfg.Kafka.Brokers), slog.String("group", cfg.Kafka.GroupID), slog.Any("topics", cfg.Kafka.Topics))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, health, closeStore := newStateStore(cfg.Redis)
	defer closeStore()

	metrics := infrastructure.NewMetrics()
	hub := infrastructure.NewHub()
	hub.OnClientCount(metrics.ClientCount)

	opts := []usecase.DashboardOption{usecase.WithMetrics(metrics)}
	if cfg.Kafka.ActionsTopic != "" && len(cfg.Kafka.Brokers) > 0 {
		producer := broker.NewActionProducer(cfg.Kafka.Brokers, cfg.Kafka.ActionsTopic)
		defer producer.Close()
		opts = append(opts, usecase.WithActionSink(producer))
		slog.Info("actions forwarded to kafka", slog.String("topic", cfg.Kafka.ActionsTopic))
	}
	dashboardUC := usecase.NewDashboardUseCase(store, hub, opts...)
	if _, shared := store.(port.ChangeFeed); shared {
		go followChanges(ctx, dashboardUC)
	}

	if cfg.Dashboards.LayoutDir != "" {
		if err := seedLayouts(ctx, dashboardUC, cfg.Dashboards.LayoutDir); err != nil {
			slog.Error("layout seed failed", slog.String("dir", cfg.Dashboards.LayoutDir), slog.Any("error", err))
			os.Exit(1)
		}
	}

	// Registrar handlers de tópicos
	registry := infrastructure.NewHandlerRegistry()
	for _, topic := range cfg.Kafka.Topics {
		registry.Register(handler.NewDashboardStreamHandler(topic, cfg.Kafka.AllowedKinds, dashboardUC))
	}
	broker.StartKafkaConsumers(ctx, registry, cfg.Kafka.Brokers, cfg.Kafka.GroupID, registry.Topics())

	var validator auth.TokenValidator
	if cfg.Security.JWTSecret != "" || cfg.Security.JWTPublicKey != "" {
		v, err := auth.NewJWTValidator(cfg.Security.JWTSecret, cfg.Security.JWTPublicKey)
		if err != nil {
			slog.Error("jwt validator setup failed", slog.Any("error", err))
			os.Exit(1)
		}
		validator = v
	}

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetOutput(log.Writer())

	var apiAuth echo.MiddlewareFunc
	if validator != nil && cfg.Security.RequireToken {
		apiAuth = transport.RequireToken(validator, cfg.Security.TokenQueryParam)
	}
	transport.RegisterRoutes(e, transport.Routes{
		Websocket: transport.NewWebsocketHandler(hub, dashboardUC, validator, transport.WebsocketOptions{
			Client: infrastructure.ClientOptions{
				SendBuffer:   cfg.Websocket.SendBuffer,
				PingInterval: cfg.Websocket.PingInterval,
				ReadTimeout:  cfg.Websocket.ReadTimeout,
				ReadLimit:    cfg.Websocket.ReadLimit,
			},
			AllowedOrigins:  cfg.Websocket.AllowedOrigins,
			RequireToken:    cfg.Security.RequireToken,
			TokenQueryParam: cfg.Security.TokenQueryParam,
			OnClose:         metrics.ConnectionClosed,
		}),
		Dashboards: transport.NewDashboardHandlers(dashboardUC, cfg.Websocket.PublicURL),
		Metrics:    metrics.Handler(),
		Health:     health,
		APIAuth:    apiAuth,
	})

	go func() {
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server stopped", slog.Any("error", err))
		}
	}()

	// Esperar señales
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	slog.Info("shutting down")

	cancel()
	hub.Close()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown", slog.Any("error", err))
	}
}

// followChanges keeps the local hub on the shared change feed, resubscribing after
// failures. Changes missed meanwhile are replayed as a fresh state by the use case.
func followChanges(ctx context.Context, uc *usecase.DashboardUseCase) {
	for {
		err := uc.Follow(ctx)
		if ctx.Err() != nil {
			return
		}
		slog.Error("dashboard feed stopped, resubscribing", slog.Any("error", err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

// newStateStore returns Redis when REDIS_ADDR is set, and an in-process store
// otherwise. Replicas sharing one Redis exchange committed changes over its feed
// channel, so any replica can accept writes and serve channels.
func newStateStore(cfg config.RedisConfig) (port.StateStore, func(context.Context) error, func()) {
	if cfg.Addr == "" {
		slog.Info("state store: memory")
		return infrastructure.NewMemoryStateStore(), nil, func() {}
	}
	client := backend.NewClient(&backend.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	store := infrastructure.NewRedisStateStore(client, cfg.KeyPrefix)
	slog.Info("state store: redis", slog.String("addr", cfg.Addr), slog.String("prefix", cfg.KeyPrefix))
	return store, store.Ping, func() { _ = client.Close() }
}

func seedLayouts(ctx context.Context, uc *usecase.DashboardUseCase, dir string) error {
	layouts, err := infrastructure.LoadLayoutDir(dir)
	if err != nil {
		return err
	}
	for id, layout := range layouts {
		if err := uc.PublishLayout(ctx, id, layout); err != nil {
			return fmt.Errorf("publish %s: %w", id, err)
		}
	}
	slog.Info("layouts seeded", slog.String("dir", dir), slog.Int("dashboards", len(layouts)))
	return nil
}
