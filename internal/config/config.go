// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// HTTP server settings.
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// MQTT broker settings.
	BrokerURL      string
	BrokerUsername string
	BrokerPassword string
	Topic          string

	// Persistence settings. A .db or .sqlite suffix selects the SQLite
	// backend, anything else is treated as a directory of JSON files.
	DataPath string

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	// Operational settings.
	LogLevel        string
	EventBufferSize int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:            envInt("PHOENIX_PORT", 8080),
		ReadTimeout:     envDuration("PHOENIX_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:    envDuration("PHOENIX_WRITE_TIMEOUT", 30*time.Second),
		BrokerURL:       envStr("PHOENIX_BROKER_URL", "tcp://localhost:1883"),
		BrokerUsername:  envStr("PHOENIX_BROKER_USERNAME", ""),
		BrokerPassword:  envStr("PHOENIX_BROKER_PASSWORD", ""),
		Topic:           envStr("PHOENIX_TOPIC", "machine/#"),
		DataPath:        envStr("PHOENIX_DATA_PATH", "data"),
		OTELEndpoint:    envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure:    envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		ServiceName:     envStr("OTEL_SERVICE_NAME", "phoenix"),
		LogLevel:        envStr("PHOENIX_LOG_LEVEL", "info"),
		EventBufferSize: envInt("PHOENIX_EVENT_BUFFER_SIZE", 64),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present.
func (c Config) Validate() error {
	if c.BrokerURL == "" {
		return fmt.Errorf("config: PHOENIX_BROKER_URL is required")
	}
	if c.Topic == "" {
		return fmt.Errorf("config: PHOENIX_TOPIC is required")
	}
	if c.DataPath == "" {
		return fmt.Errorf("config: PHOENIX_DATA_PATH is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: PHOENIX_PORT must be between 1 and 65535")
	}
	if c.EventBufferSize <= 0 {
		return fmt.Errorf("config: PHOENIX_EVENT_BUFFER_SIZE must be positive")
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes":
			return true
		case "0", "false", "no":
			return false
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
