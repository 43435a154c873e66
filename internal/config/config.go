// Package config provides the configuration schema, loader, backend registry
// and file watcher of the parla server.
package config

import (
	"log/slog"
	"time"

	"github.com/MrWong99/parla/internal/session"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level converts l to a [slog.Level]. Unknown values map to Info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogFormat selects the slog handler.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// StorageBackend names a progress record store.
type StorageBackend string

const (
	StorageFile     StorageBackend = "file"
	StorageSQLite   StorageBackend = "sqlite"
	StoragePostgres StorageBackend = "postgres"
	StorageMemory   StorageBackend = "memory"
)

// Config is the root configuration, usually loaded with [Load].
type Config struct {
	Server    ServerConfig          `yaml:"server"`
	Storage   StorageConfig         `yaml:"storage"`
	Speech    SpeechConfig          `yaml:"speech"`
	Modes     map[string]ModeConfig `yaml:"modes"`
	Telemetry TelemetryConfig       `yaml:"telemetry"`
	MCP       MCPConfig             `yaml:"mcp"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address of the HTTP server, e.g. ":8080".
	ListenAddr string `yaml:"listen_addr"`

	LogLevel  LogLevel  `yaml:"log_level"`
	LogFormat LogFormat `yaml:"log_format"`

	// AllowedOrigins lists the origins accepted on the WebSocket endpoint
	// besides the server's own host. Patterns follow [path.Match].
	AllowedOrigins []string `yaml:"allowed_origins"`

	// ShutdownTimeout bounds graceful shutdown. Default: 10s.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig selects where learner progress is persisted.
type StorageConfig struct {
	Backend StorageBackend `yaml:"backend"`

	// Path is the directory of the file backend or the database file of the
	// sqlite backend.
	Path string `yaml:"path"`

	// DSN is the PostgreSQL connection string.
	DSN string `yaml:"dsn"`

	// RecordKey names the progress record. Default: "parla_progress".
	RecordKey string `yaml:"record_key"`
}

// SpeechConfig configures server-side speech helpers for clients without a
// native recognizer or synthesizer. Empty entries disable the helper.
type SpeechConfig struct {
	Transcriber ProviderEntry   `yaml:"transcriber"`
	Synthesizer ProviderEntry   `yaml:"synthesizer"`
	Fallbacks   []ProviderEntry `yaml:"transcriber_fallbacks"`
	Breaker     BreakerConfig   `yaml:"breaker"`
}

// ProviderEntry configures one speech provider. Name selects the factory in
// the [Registry].
type ProviderEntry struct {
	Name     string         `yaml:"name"`
	APIKey   string         `yaml:"api_key"`
	BaseURL  string         `yaml:"base_url"`
	Model    string         `yaml:"model"`
	Language string         `yaml:"language"`
	Voice    string         `yaml:"voice"`
	Timeout  time.Duration  `yaml:"timeout"`
	Options  map[string]any `yaml:"options"`
}

// BreakerConfig tunes the circuit breakers around speech providers.
type BreakerConfig struct {
	MaxFailures  int           `yaml:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout"`
}

// ModeConfig overrides the tunables of a built-in exercise mode. Zero
// fields keep the built-in value.
type ModeConfig struct {
	Target         int           `yaml:"target"`
	ListenDelay    time.Duration `yaml:"listen_delay"`
	ResponseWindow time.Duration `yaml:"response_window"`
}

// TelemetryConfig configures OpenTelemetry.
type TelemetryConfig struct {
	ServiceName string `yaml:"service_name"`
}

// MCPConfig enables the Model Context Protocol endpoint.
type MCPConfig struct {
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP mount point. Default: "/mcp".
	Path string `yaml:"path"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:      ":8080",
			LogLevel:        LogInfo,
			LogFormat:       LogFormatText,
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Backend:   StorageFile,
			Path:      "data",
			RecordKey: "parla_progress",
		},
		Telemetry: TelemetryConfig{ServiceName: "parla"},
		MCP:       MCPConfig{Path: "/mcp"},
	}
}

// Mode returns the built-in mode called name with its configured overrides
// applied.
func (c *Config) Mode(name string) (session.Mode, bool) {
	m, ok := session.Lookup(name)
	if !ok {
		return session.Mode{}, false
	}
	if o, ok := c.Modes[name]; ok {
		m = m.With(session.Override{
			Target:         o.Target,
			ListenDelay:    o.ListenDelay,
			ResponseWindow: o.ResponseWindow,
		})
	}
	return m, true
}

// AllModes returns every built-in mode with overrides applied, in display
// order.
func (c *Config) AllModes() []session.Mode {
	builtin := session.Modes()
	out := make([]session.Mode, 0, len(builtin))
	for _, b := range builtin {
		m, _ := c.Mode(b.Name)
		out = append(out, m)
	}
	return out
}
