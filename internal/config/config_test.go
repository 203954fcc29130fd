package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "KAFKA_BROKERS", "KAFKA_BROKER", "KAFKA_DASHBOARD_TOPICS", "WS_REQUIRE_TOKEN", "LOG_FORMAT", "WS_PING_INTERVAL", "WS_READ_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Websocket.PingInterval != 30*time.Second || cfg.Websocket.ReadTimeout != 60*time.Second {
		t.Errorf("unexpected keepalive %v/%v", cfg.Websocket.PingInterval, cfg.Websocket.ReadTimeout)
	}
	if len(cfg.Kafka.Brokers) != 0 || len(cfg.Kafka.Topics) != 0 {
		t.Errorf("kafka should be disabled, got %+v", cfg.Kafka)
	}
}

func TestLoadKafkaFallbacks(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("KAFKA_BROKER", " kafka:9092 ")
	t.Setenv("KAFKA_DASHBOARD_TOPICS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Kafka.Brokers) != 1 || cfg.Kafka.Brokers[0] != "kafka:9092" {
		t.Errorf("brokers = %v", cfg.Kafka.Brokers)
	}
	if len(cfg.Kafka.Topics) != 1 || cfg.Kafka.Topics[0] != "dashboard.events" {
		t.Errorf("topics = %v", cfg.Kafka.Topics)
	}

	t.Setenv("KAFKA_BROKERS", "a:1, b:2,,")
	t.Setenv("KAFKA_DASHBOARD_TOPICS", "x,y")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Kafka.Brokers) != 2 || len(cfg.Kafka.Topics) != 2 {
		t.Errorf("unexpected kafka config %+v", cfg.Kafka)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "port", env: map[string]string{"PORT": "eighty"}},
		{name: "duration", env: map[string]string{"WS_PING_INTERVAL": "soon"}},
		{name: "keepalive order", env: map[string]string{"WS_PING_INTERVAL": "90s", "WS_READ_TIMEOUT": "60s"}},
		{name: "token without secret", env: map[string]string{"WS_REQUIRE_TOKEN": "true", "JWT_SECRET": ""}},
		{name: "log format", env: map[string]string{"LOG_FORMAT": "xml"}},
		{name: "bool", env: map[string]string{"WS_REQUIRE_TOKEN": "sometimes"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}
