package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/netpulse/netpulse/server/internal/engine"
)

// AlertsConfig controls alarm tracking and webhook delivery targets.
type AlertsConfig struct {
	// Cooldown suppresses repeat webhook notifications for the same node and
	// severity for this duration after one is sent. Defaults to 15 minutes.
	Cooldown time.Duration `yaml:"cooldown"`

	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Default values for the configuration.
const (
	DefaultHTTPPort          = 8080
	DefaultTickInterval      = engine.DefaultTickInterval
	DefaultHistoryDepth      = engine.DefaultHistoryDepth
	DefaultBroadcastInterval = 5 * time.Second
	DefaultEventCapacity     = 50
	DefaultEventRetention    = 30 * time.Minute
	DefaultAlertCooldown     = 15 * time.Minute
	DefaultLogLevel          = "info"
)

// DefaultNodes is the fleet simulated when simulation.nodes is empty. It is
// the engine's own default fleet; callers copy it before mutating.
var DefaultNodes = engine.DefaultNodeNames

// Config is the full netpulse configuration parsed from config.yaml.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Server     ServerConfig     `yaml:"server"`
	Events     EventsConfig     `yaml:"events"`
	Alerts     AlertsConfig     `yaml:"alerts"`
	Log        LogConfig        `yaml:"log"`
}

// SimulationConfig sets the engine's construction-time parameters.
type SimulationConfig struct {
	// TickInterval is the period between ticks (default 2s).
	TickInterval time.Duration `yaml:"tick_interval"`

	// HistoryDepth bounds each node's latency history (default 20).
	HistoryDepth int `yaml:"history_depth"`

	// Nodes lists the display names of the simulated fleet.
	Nodes []string `yaml:"nodes"`

	// Seed fixes the random source for reproducible runs. 0 picks a random seed.
	Seed uint64 `yaml:"seed"`

	// Autostart starts ticking as soon as the server is up (default true).
	Autostart bool `yaml:"autostart"`
}

// ServerConfig holds the HTTP surface settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API, WebSocket hub and /metrics listen on.
	HTTPPort int `yaml:"http_port"`

	// BroadcastInterval is how often the WebSocket hub pushes a full snapshot.
	BroadcastInterval time.Duration `yaml:"broadcast_interval"`

	// UIDir serves the pre-built dashboard from this directory when non-empty.
	UIDir string `yaml:"ui_dir"`
}

// EventsConfig bounds the in-memory event log.
type EventsConfig struct {
	// Capacity is the number of most recent events kept (default 50).
	Capacity int `yaml:"capacity"`

	// Retention evicts events older than this. 0 keeps events until displaced.
	Retention time.Duration `yaml:"retention"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`
}

// SlogLevel converts Level to a slog.Level. Unknown values map to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads and parses the config file at path. Missing fields are filled
// with sensible defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if len(cfg.Simulation.Nodes) == 0 {
		cfg.Simulation.Nodes = append([]string(nil), DefaultNodes...)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config pre-populated with default values.
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			TickInterval: DefaultTickInterval,
			HistoryDepth: DefaultHistoryDepth,
			Nodes:        append([]string(nil), DefaultNodes...),
			Autostart:    true,
		},
		Server: ServerConfig{
			HTTPPort:          DefaultHTTPPort,
			BroadcastInterval: DefaultBroadcastInterval,
		},
		Events: EventsConfig{
			Capacity:  DefaultEventCapacity,
			Retention: DefaultEventRetention,
		},
		Alerts: AlertsConfig{
			Cooldown: DefaultAlertCooldown,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Simulation.TickInterval <= 0 {
		return fmt.Errorf("simulation.tick_interval must be positive")
	}
	if cfg.Simulation.HistoryDepth <= 0 {
		return fmt.Errorf("simulation.history_depth must be positive")
	}
	seen := make(map[string]bool, len(cfg.Simulation.Nodes))
	for _, name := range cfg.Simulation.Nodes {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("simulation.nodes: empty node name")
		}
		if seen[name] {
			return fmt.Errorf("simulation.nodes: duplicate node name %q", name)
		}
		seen[name] = true
	}
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	if cfg.Server.BroadcastInterval <= 0 {
		return fmt.Errorf("server.broadcast_interval must be positive")
	}
	if cfg.Events.Capacity <= 0 {
		return fmt.Errorf("events.capacity must be positive")
	}
	if cfg.Events.Retention < 0 {
		return fmt.Errorf("events.retention must not be negative")
	}
	if cfg.Alerts.Cooldown < 0 {
		return fmt.Errorf("alerts.cooldown must not be negative")
	}
	for i, wh := range cfg.Alerts.Webhooks {
		switch wh.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("alerts.webhooks[%d].type %q unknown: want slack|teams|http", i, wh.Type)
		}
	}
	if err := ValidateLogLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// ValidateLogLevel reports whether level is a name SlogLevel understands.
// Matching is case-insensitive and "warning" is accepted for warn.
func ValidateLogLevel(level string) error {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("%q unknown: want debug|info|warn|error", level)
	}
}
