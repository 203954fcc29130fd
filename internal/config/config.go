package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	Logging    LoggingConfig
	Websocket  WebsocketConfig
	Security   SecurityConfig
	Kafka      KafkaConfig
	Redis      RedisConfig
	Dashboards DashboardsConfig
}

type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

type LoggingConfig struct {
	Directory string
	Level     string
	Format    string
}

type WebsocketConfig struct {
	SendBuffer   int
	PingInterval time.Duration
	ReadTimeout  time.Duration
	ReadLimit    int64
	// PublicURL is the externally reachable base (ws:// or wss://) advertised in
	// channel descriptors. Empty means derive it from the request.
	PublicURL      string
	AllowedOrigins []string
}

type SecurityConfig struct {
	JWTSecret       string
	JWTPublicKey    string
	RequireToken    bool
	TokenQueryParam string
}

type KafkaConfig struct {
	Brokers      []string
	GroupID      string
	Topics       []string
	AllowedKinds []string
	ActionsTopic string
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

type DashboardsConfig struct {
	// LayoutDir holds <dashboard>.yaml / <dashboard>.json layouts published at startup.
	LayoutDir string
}

// Load reads the environment. Call godotenv before Load to honour a local .env.
func Load() (*Config, error) {
	var errs []error
	duration := func(key string, def time.Duration) time.Duration {
		v, err := envDuration(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	integer := func(key string, def int) int {
		v, err := envInt(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	boolean := func(key string, def bool) bool {
		v, err := envBool(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            envString("PORT", "8080"),
			ShutdownTimeout: duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Logging: LoggingConfig{
			Directory: envString("LOG_DIRECTORY", "./logs"),
			Level:     envString("LOG_LEVEL", "info"),
			Format:    envString("LOG_FORMAT", "text"),
		},
		Websocket: WebsocketConfig{
			SendBuffer:     integer("WS_SEND_BUFFER", 64),
			PingInterval:   duration("WS_PING_INTERVAL", 30*time.Second),
			ReadTimeout:    duration("WS_READ_TIMEOUT", 60*time.Second),
			ReadLimit:      int64(integer("WS_READ_LIMIT", 1<<16)),
			PublicURL:      strings.TrimRight(envString("WS_PUBLIC_URL", ""), "/"),
			AllowedOrigins: envList("WS_ALLOWED_ORIGINS"),
		},
		Security: SecurityConfig{
			JWTSecret:       os.Getenv("JWT_SECRET"),
			JWTPublicKey:    os.Getenv("JWT_PUBLIC_KEY"),
			RequireToken:    boolean("WS_REQUIRE_TOKEN", false),
			TokenQueryParam: envString("WS_TOKEN_QUERY_PARAM", "token"),
		},
		Kafka: KafkaConfig{
			Brokers:      kafkaBrokers(),
			GroupID:      envString("KAFKA_GROUP_ID", "dashboard-ws"),
			Topics:       envList("KAFKA_DASHBOARD_TOPICS"),
			AllowedKinds: envList("KAFKA_ALLOWED_KINDS"),
			ActionsTopic: envString("KAFKA_ACTIONS_TOPIC", ""),
		},
		Redis: RedisConfig{
			Addr:      envString("REDIS_ADDR", ""),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        integer("REDIS_DB", 0),
			KeyPrefix: envString("REDIS_KEY_PREFIX", "dashboard:"),
		},
		Dashboards: DashboardsConfig{
			LayoutDir: envString("DASHBOARD_LAYOUT_DIR", ""),
		},
	}
	if len(cfg.Kafka.Topics) == 0 && len(cfg.Kafka.Brokers) > 0 {
		cfg.Kafka.Topics = []string{"dashboard.events"}
	}

	errs = append(errs, cfg.validate()...)
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return cfg, nil
}

func (c *Config) validate() []error {
	var errs []error
	if port, err := strconv.Atoi(c.Server.Port); err != nil || port <= 0 || port > 65535 {
		errs = append(errs, fmt.Errorf("PORT: %q is not a valid port", c.Server.Port))
	}
	if c.Websocket.SendBuffer <= 0 {
		errs = append(errs, errors.New("WS_SEND_BUFFER must be positive"))
	}
	if c.Websocket.ReadLimit <= 0 {
		errs = append(errs, errors.New("WS_READ_LIMIT must be positive"))
	}
	if c.Websocket.PingInterval <= 0 || c.Websocket.ReadTimeout <= c.Websocket.PingInterval {
		errs = append(errs, errors.New("WS_READ_TIMEOUT must exceed a positive WS_PING_INTERVAL"))
	}
	if c.Security.RequireToken && strings.TrimSpace(c.Security.JWTSecret) == "" && strings.TrimSpace(c.Security.JWTPublicKey) == "" {
		errs = append(errs, errors.New("WS_REQUIRE_TOKEN needs JWT_SECRET or JWT_PUBLIC_KEY"))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT: unknown format %q", c.Logging.Format))
	}
	if c.Redis.DB < 0 {
		errs = append(errs, errors.New("REDIS_DB must not be negative"))
	}
	return errs
}

// kafkaBrokers prefers KAFKA_BROKERS and falls back to the single KAFKA_BROKER.
func kafkaBrokers() []string {
	if brokers := envList("KAFKA_BROKERS"); len(brokers) > 0 {
		return brokers
	}
	return envList("KAFKA_BROKER")
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envList(key string) []string {
	raw := os.Getenv(key)
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func envBool(key string, def bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
