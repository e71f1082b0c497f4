// Package config loads and validates the service configuration from YAML,
// with struct-tag validation and optional hot-reload via file watching.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/kafaat/sahool-intel/pkg/telemetry"
)

// Duration wraps time.Duration so YAML values like "45s" parse directly.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the root service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Engine    EngineConfig    `yaml:"engine"`
	Breaker   BreakerConfig   `yaml:"breaker"`
	Cache     CacheConfig     `yaml:"cache"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	// Host is the listen address.
	Host string `yaml:"host"`

	// Port is the listen port.
	Port int `yaml:"port" validate:"gte=1,lte=65535"`

	// ReadTimeout bounds request reads.
	ReadTimeout Duration `yaml:"read_timeout"`

	// WriteTimeout bounds response writes.
	WriteTimeout Duration `yaml:"write_timeout"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// EngineConfig configures the analysis engine fan-out and the lunar task
// integrator.
type EngineConfig struct {
	// Timeout bounds a single engine call.
	Timeout Duration `yaml:"timeout" validate:"gt=0"`

	// LookaheadDays bounds the search for a favorable reschedule day.
	LookaheadDays int `yaml:"lookahead_days" validate:"gte=1,lte=60"`
}

// BreakerConfig configures the circuit breaker shared by all engines.
type BreakerConfig struct {
	// FailureThreshold is the net failure count that opens a circuit.
	FailureThreshold int `yaml:"failure_threshold" validate:"gte=1"`

	// SuccessThreshold is the half-open successes needed to close again.
	SuccessThreshold int `yaml:"success_threshold" validate:"gte=1"`

	// ResetTimeout is how long an open circuit rejects calls.
	ResetTimeout Duration `yaml:"reset_timeout" validate:"gt=0"`

	// HalfOpenMax bounds trial calls while half-open.
	HalfOpenMax int `yaml:"half_open_max" validate:"gte=1"`
}

// CacheConfig configures the result cache.
type CacheConfig struct {
	// Backend selects the cache implementation.
	Backend string `yaml:"backend" validate:"oneof=memory sqlite"`

	// TTL is how long a cached snapshot stays fresh.
	TTL Duration `yaml:"ttl" validate:"gt=0"`

	// Path is the database file path for the sqlite backend.
	Path string `yaml:"path"`
}

// TelemetryConfig mirrors the telemetry package configuration with YAML
// tags for file loading.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" validate:"required"`
	ServiceVersion string `yaml:"service_version"`
	Environment    string `yaml:"environment"`

	Logging struct {
		Level        string `yaml:"level" validate:"oneof=trace debug info warn error"`
		Format       string `yaml:"format" validate:"oneof=console json"`
		Output       string `yaml:"output"`
		EnableCaller bool   `yaml:"enable_caller"`
	} `yaml:"logging"`

	Tracing struct {
		Enabled       bool     `yaml:"enabled"`
		Exporter      string   `yaml:"exporter" validate:"omitempty,oneof=stdout none"`
		SamplingRate  float64  `yaml:"sampling_rate" validate:"gte=0,lte=1"`
		ExportTimeout Duration `yaml:"export_timeout"`
	} `yaml:"tracing"`

	Metrics struct {
		Enabled   bool   `yaml:"enabled"`
		Namespace string `yaml:"namespace"`
	} `yaml:"metrics"`

	Events struct {
		Enabled     bool `yaml:"enabled"`
		BufferSize  int  `yaml:"buffer_size"`
		EnableAsync bool `yaml:"enable_async"`
	} `yaml:"events"`
}

// Build converts the YAML view into the telemetry package's configuration.
func (t TelemetryConfig) Build() *telemetry.Config {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceName = t.ServiceName
	if t.ServiceVersion != "" {
		cfg.ServiceVersion = t.ServiceVersion
	}
	if t.Environment != "" {
		cfg.Environment = t.Environment
	}

	cfg.Logging = telemetry.LoggingConfig{
		Level:        t.Logging.Level,
		Format:       t.Logging.Format,
		Output:       t.Logging.Output,
		EnableCaller: t.Logging.EnableCaller,
	}
	cfg.Tracing.Enabled = t.Tracing.Enabled
	if t.Tracing.Exporter != "" {
		cfg.Tracing.Exporter = t.Tracing.Exporter
	}
	cfg.Tracing.SamplingRate = t.Tracing.SamplingRate
	if t.Tracing.ExportTimeout > 0 {
		cfg.Tracing.ExportTimeout = t.Tracing.ExportTimeout.Std()
	}
	cfg.Metrics.Enabled = t.Metrics.Enabled
	if t.Metrics.Namespace != "" {
		cfg.Metrics.Namespace = t.Metrics.Namespace
	}
	cfg.Events = telemetry.EventsConfig{
		Enabled:     t.Events.Enabled,
		BufferSize:  t.Events.BufferSize,
		EnableAsync: t.Events.EnableAsync,
	}
	return cfg
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  Duration(15 * time.Second),
			WriteTimeout: Duration(60 * time.Second),
		},
		Engine: EngineConfig{
			Timeout:       Duration(45 * time.Second),
			LookaheadDays: 14,
		},
		Breaker: BreakerConfig{
			FailureThreshold: 3,
			SuccessThreshold: 2,
			ResetTimeout:     Duration(60 * time.Second),
			HalfOpenMax:      2,
		},
		Cache: CacheConfig{
			Backend: "memory",
			TTL:     Duration(5 * time.Minute),
			Path:    "sahool-cache.db",
		},
	}

	tel := telemetry.DefaultConfig()
	cfg.Telemetry.ServiceName = tel.ServiceName
	cfg.Telemetry.ServiceVersion = tel.ServiceVersion
	cfg.Telemetry.Environment = tel.Environment
	cfg.Telemetry.Logging.Level = tel.Logging.Level
	cfg.Telemetry.Logging.Format = tel.Logging.Format
	cfg.Telemetry.Logging.Output = tel.Logging.Output
	cfg.Telemetry.Tracing.Exporter = tel.Tracing.Exporter
	cfg.Telemetry.Tracing.SamplingRate = tel.Tracing.SamplingRate
	cfg.Telemetry.Tracing.ExportTimeout = Duration(tel.Tracing.ExportTimeout)
	cfg.Telemetry.Metrics.Enabled = tel.Metrics.Enabled
	cfg.Telemetry.Metrics.Namespace = tel.Metrics.Namespace
	cfg.Telemetry.Events.Enabled = tel.Events.Enabled
	cfg.Telemetry.Events.BufferSize = tel.Events.BufferSize

	return cfg
}

// Load reads a YAML configuration file over the defaults and validates the
// result. An empty path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Cache.Backend == "sqlite" && c.Cache.Path == "" {
		return fmt.Errorf("invalid configuration: cache.path is required for the sqlite backend")
	}
	return nil
}
