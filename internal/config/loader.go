package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/parla/internal/session"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PARLA_"

// Load reads the YAML file at path over [Default], applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		ApplyEnv(cfg, os.Getenv)
		if err := Validate(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	ApplyEnv(cfg, os.Getenv)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r over [Default] and validates it.
// Environment overrides are not applied.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg, err := decode(r)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides cfg from environment variables read through getenv:
//
//	PARLA_LISTEN_ADDR, PARLA_LOG_LEVEL, PARLA_LOG_FORMAT,
//	PARLA_STORAGE_BACKEND, PARLA_STORAGE_PATH, PARLA_STORAGE_DSN,
//	PARLA_RECORD_KEY, PARLA_OPENAI_API_KEY, PARLA_MCP_ENABLED
//
// PARLA_OPENAI_API_KEY fills the key of every "openai" speech entry that
// has none.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	str := func(name string, dst *string) {
		if v := getenv(EnvPrefix + name); v != "" {
			*dst = v
		}
	}
	str("LISTEN_ADDR", &cfg.Server.ListenAddr)
	if v := getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		cfg.Server.LogLevel = LogLevel(v)
	}
	if v := getenv(EnvPrefix + "LOG_FORMAT"); v != "" {
		cfg.Server.LogFormat = LogFormat(v)
	}
	if v := getenv(EnvPrefix + "STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = StorageBackend(v)
	}
	str("STORAGE_PATH", &cfg.Storage.Path)
	str("STORAGE_DSN", &cfg.Storage.DSN)
	str("RECORD_KEY", &cfg.Storage.RecordKey)

	if key := getenv(EnvPrefix + "OPENAI_API_KEY"); key != "" {
		for _, e := range cfg.speechEntries() {
			if e.Name == "openai" && e.APIKey == "" {
				e.APIKey = key
			}
		}
	}
	if v := getenv(EnvPrefix + "MCP_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.MCP.Enabled = b
		} else {
			slog.Warn("ignoring invalid boolean", "var", EnvPrefix+"MCP_ENABLED", "value", v)
		}
	}
}

func (c *Config) speechEntries() []*ProviderEntry {
	out := []*ProviderEntry{&c.Speech.Transcriber, &c.Speech.Synthesizer}
	for i := range c.Speech.Fallbacks {
		out = append(out, &c.Speech.Fallbacks[i])
	}
	return out
}

// Validate returns every configuration error found, joined.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.ListenAddr == "" {
		errs = append(errs, errors.New("server.listen_addr is required"))
	}
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if f := cfg.Server.LogFormat; f != "" && f != LogFormatText && f != LogFormatJSON {
		errs = append(errs, fmt.Errorf("server.log_format %q is invalid; valid values: text, json", f))
	}
	if cfg.Server.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must not be negative"))
	}

	switch cfg.Storage.Backend {
	case StorageMemory:
	case StorageFile, StorageSQLite:
		if cfg.Storage.Path == "" {
			errs = append(errs, fmt.Errorf("storage.path is required for backend %q", cfg.Storage.Backend))
		}
	case StoragePostgres:
		if cfg.Storage.DSN == "" {
			errs = append(errs, errors.New("storage.dsn is required for backend \"postgres\""))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q is invalid; valid values: file, sqlite, postgres, memory", cfg.Storage.Backend))
	}
	if cfg.Storage.RecordKey == "" {
		errs = append(errs, errors.New("storage.record_key is required"))
	}

	errs = append(errs, validateEntry("speech.transcriber", cfg.Speech.Transcriber, "transcriber")...)
	errs = append(errs, validateEntry("speech.synthesizer", cfg.Speech.Synthesizer, "synthesizer")...)
	for i, e := range cfg.Speech.Fallbacks {
		prefix := fmt.Sprintf("speech.transcriber_fallbacks[%d]", i)
		if e.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		}
		errs = append(errs, validateEntry(prefix, e, "transcriber")...)
	}
	if len(cfg.Speech.Fallbacks) > 0 && cfg.Speech.Transcriber.Name == "" {
		errs = append(errs, errors.New("speech.transcriber_fallbacks requires speech.transcriber"))
	}
	if cfg.Speech.Breaker.MaxFailures < 0 || cfg.Speech.Breaker.ResetTimeout < 0 {
		errs = append(errs, errors.New("speech.breaker values must not be negative"))
	}

	for name, mc := range cfg.Modes {
		prefix := fmt.Sprintf("modes.%s", name)
		if _, ok := session.Lookup(name); !ok {
			errs = append(errs, fmt.Errorf("%s: unknown mode; valid values: %v", prefix, modeNames()))
			continue
		}
		if mc.Target < 0 || mc.ListenDelay < 0 || mc.ResponseWindow < 0 {
			errs = append(errs, fmt.Errorf("%s: values must not be negative", prefix))
			continue
		}
		m, _ := cfg.Mode(name)
		if err := m.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", prefix, err))
		}
	}

	if cfg.MCP.Enabled && cfg.MCP.Path == "" {
		errs = append(errs, errors.New("mcp.path is required when mcp is enabled"))
	}

	return errors.Join(errs...)
}

// ValidProviderNames lists the speech providers shipped with parla, per
// kind. Unknown names only produce a warning since a custom build may
// register more.
var ValidProviderNames = map[string][]string{
	"transcriber": {"openai"},
	"synthesizer": {"openai"},
}

func validateEntry(prefix string, e ProviderEntry, kind string) []error {
	var errs []error
	if e.Name == "" {
		return nil
	}
	if known := ValidProviderNames[kind]; !slices.Contains(known, e.Name) {
		slog.Warn("unknown speech provider name, may be a typo or third-party provider",
			"field", prefix,
			"name", e.Name,
			"known", known,
		)
	}
	if e.Timeout < 0 {
		errs = append(errs, fmt.Errorf("%s.timeout must not be negative", prefix))
	}
	return errs
}

func modeNames() []string {
	var names []string
	for _, m := range session.Modes() {
		names = append(names, m.Name)
	}
	return names
}
