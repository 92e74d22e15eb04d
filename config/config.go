// Package config loads and validates the platform configuration from YAML,
// with optional hot reload on file change.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gapilongo/OPiN/errors"
	"github.com/gapilongo/OPiN/notify"
)

// Config is the full platform configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	NATS          NATSConfig          `yaml:"nats"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	Dispatcher    DispatcherConfig    `yaml:"dispatcher"`
	Subscriptions SubscriptionsConfig `yaml:"subscriptions"`
	SMTP          notify.SMTPConfig   `yaml:"smtp"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	Log           LogConfig           `yaml:"log"`
}

// ServerConfig sizes the HTTP gateway.
type ServerConfig struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// NATSConfig locates the persistence backend. When disabled, the in-memory
// store is used instead.
type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// PipelineConfig bounds batch processing.
type PipelineConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// DispatcherConfig sizes notification delivery.
type DispatcherConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

// SubscriptionsConfig tunes the subscription provider.
type SubscriptionsConfig struct {
	CacheTTL Duration `yaml:"cache_ttl"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     Duration(15 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
		},
		NATS: NATSConfig{
			Enabled: false,
			URL:     "nats://localhost:4222",
		},
		Pipeline:      PipelineConfig{Concurrency: 8},
		Dispatcher:    DispatcherConfig{Workers: 4, QueueSize: 256},
		Subscriptions: SubscriptionsConfig{CacheTTL: Duration(30 * time.Second)},
		Metrics:       MetricsConfig{Enabled: true, Path: "/metrics"},
		Log:           LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads, parses, and validates a YAML config file. Missing fields keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "config", "Load", "reading "+path)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.WrapInvalid(err, "config", "Load", "parsing "+path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return invalid(fmt.Sprintf("server port %d out of range", c.Server.Port))
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		return invalid("nats enabled but no url given")
	}
	if c.Pipeline.Concurrency < 1 {
		return invalid("pipeline concurrency must be at least 1")
	}
	if c.Dispatcher.Workers < 1 {
		return invalid("dispatcher workers must be at least 1")
	}
	if c.Dispatcher.QueueSize < 1 {
		return invalid("dispatcher queue size must be at least 1")
	}
	if c.Subscriptions.CacheTTL < 0 {
		return invalid("subscription cache ttl must not be negative")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log level must be one of debug, info, warn, error")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return invalid("log format must be json or text")
	}
	return nil
}

func invalid(msg string) error {
	return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate", msg)
}

// Address returns the host:port the gateway binds to.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
