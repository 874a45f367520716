// Package gwconfig loads gateway configuration from a YAML file with
// environment-variable overrides, modeled on the teacher repository's
// pkg/config loader (YAML-first, environment as overlay).
package gwconfig

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all recognized configuration documented in §6.
type Config struct {
	// Region is the region for the model endpoint.
	Region string `yaml:"region"`

	// UserPoolID, ClientID, IssuerRegion identify the identity issuer.
	UserPoolID   string `yaml:"user_pool_id"`
	ClientID     string `yaml:"client_id"`
	IssuerRegion string `yaml:"issuer_region"`

	// MaxConcurrentStreams caps per-process model streams.
	MaxConcurrentStreams int `yaml:"max_concurrent_streams"`

	// IdleTimeout is the per-session idle cutoff.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownGrace bounds how long the supervisor waits for sessions to
	// drain on shutdown.
	ShutdownGrace time.Duration `yaml:"shutdown_grace"`

	// LogLevel is one of {trace, debug, info, warn, error}.
	LogLevel string `yaml:"log_level"`

	// RepositoryDSN selects and configures the Task Repository backend.
	// "memory://" (default) or "file:///path/to/tasks.yaml".
	RepositoryDSN string `yaml:"repository_dsn"`

	// ModelEndpoint is the WebSocket URL of the remote model stream.
	ModelEndpoint string `yaml:"model_endpoint"`

	// ListenAddr is the address the gateway's HTTP server binds to.
	ListenAddr string `yaml:"listen_addr"`

	// MetricsAddr is the address the Prometheus exporter binds to.
	MetricsAddr string `yaml:"metrics_addr"`

	// OutboundQueueCap is the soft cap on a session's outbound queue (§4.4).
	OutboundQueueCap int `yaml:"outbound_queue_cap"`

	// PhasePause is the pacing yield after a phase-boundary group (§5). It
	// is loaded and defaulted here but not passed to sessions: every session
	// starts with session.DefaultPhasePause.
	PhasePause time.Duration `yaml:"phase_pause"`
}

// UnmarshalYAML decodes duration fields from their human-readable string
// form (e.g. "30s"), since yaml.v3 does not know how to parse a bare
// string into a time.Duration.
func (c *Config) UnmarshalYAML(unmarshal func(any) error) error {
	type alias Config
	aux := struct {
		IdleTimeout   string `yaml:"idle_timeout"`
		ShutdownGrace string `yaml:"shutdown_grace"`
		PhasePause    string `yaml:"phase_pause"`
	}{}

	if err := unmarshal(&aux); err != nil {
		return err
	}
	// yaml.v3 inlines an embedded struct only with an ",inline" tag, so the
	// remaining fields are decoded in a separate pass.
	if err := unmarshal((*alias)(c)); err != nil {
		return err
	}

	var err error
	if aux.IdleTimeout != "" {
		if c.IdleTimeout, err = time.ParseDuration(aux.IdleTimeout); err != nil {
			return fmt.Errorf("gwconfig: invalid idle_timeout: %w", err)
		}
	}
	if aux.ShutdownGrace != "" {
		if c.ShutdownGrace, err = time.ParseDuration(aux.ShutdownGrace); err != nil {
			return fmt.Errorf("gwconfig: invalid shutdown_grace: %w", err)
		}
	}
	if aux.PhasePause != "" {
		if c.PhasePause, err = time.ParseDuration(aux.PhasePause); err != nil {
			return fmt.Errorf("gwconfig: invalid phase_pause: %w", err)
		}
	}
	return nil
}

// Default returns a Config with the defaults named throughout the spec.
func Default() Config {
	return Config{
		MaxConcurrentStreams: 100,
		IdleTimeout:          2 * time.Minute,
		ShutdownGrace:        5 * time.Second,
		LogLevel:             "info",
		RepositoryDSN:        "memory://",
		ListenAddr:           ":8080",
		MetricsAddr:          ":9090",
		OutboundQueueCap:     1000,
		PhasePause:           100 * time.Millisecond,
	}
}

// Load reads a YAML config file (if path is non-empty and exists) into a
// Config seeded with defaults, then applies environment overrides, then
// validates required identity-issuer fields. It fails loudly: a missing
// required field is a fatal configuration error, never silently defaulted.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("gwconfig: reading %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("gwconfig: parsing %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// applyEnvOverrides overlays recognized GATEWAY_* environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GATEWAY_REGION"); v != "" {
		cfg.Region = v
	}
	if v := os.Getenv("GATEWAY_USER_POOL_ID"); v != "" {
		cfg.UserPoolID = v
	}
	if v := os.Getenv("GATEWAY_CLIENT_ID"); v != "" {
		cfg.ClientID = v
	}
	if v := os.Getenv("GATEWAY_ISSUER_REGION"); v != "" {
		cfg.IssuerRegion = v
	}
	if v := os.Getenv("GATEWAY_MAX_STREAMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxConcurrentStreams = n
		}
	}
	if v := os.Getenv("GATEWAY_IDLE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.IdleTimeout = d
		}
	}
	if v := os.Getenv("GATEWAY_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("GATEWAY_REPOSITORY_DSN"); v != "" {
		cfg.RepositoryDSN = v
	}
	if v := os.Getenv("GATEWAY_MODEL_ENDPOINT"); v != "" {
		cfg.ModelEndpoint = v
	}
	if v := os.Getenv("GATEWAY_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
}

// Validate checks that required identity-issuer fields are present.
func (c Config) Validate() error {
	if c.UserPoolID == "" {
		return fmt.Errorf("gwconfig: user_pool_id is required")
	}
	if c.ClientID == "" {
		return fmt.Errorf("gwconfig: client_id is required")
	}
	if c.IssuerRegion == "" && c.Region == "" {
		return fmt.Errorf("gwconfig: issuer_region or region is required")
	}
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("gwconfig: invalid log_level %q", c.LogLevel)
	}
	return nil
}

// IssuerURL derives the Cognito-style JWKS issuer URL from region and
// user pool ID, per §6 "Environment / configuration".
func (c Config) IssuerURL() string {
	region := c.IssuerRegion
	if region == "" {
		region = c.Region
	}
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", region, c.UserPoolID)
}
