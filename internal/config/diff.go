package config

import (
	"maps"
	"slices"
)

// ConfigDiff describes what changed between two configs. Only fields that
// can be applied without a restart are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// ModesChanged lists, sorted, the modes whose overrides were added,
	// removed or modified. New sessions of these modes pick up the change.
	ModesChanged []string

	// RestartRequired reports changes to fields that only take effect after
	// a restart: listen address, storage and speech providers.
	RestartRequired bool
}

// IsZero reports whether nothing changed.
func (d ConfigDiff) IsZero() bool {
	return !d.LogLevelChanged && len(d.ModesChanged) == 0 && !d.RestartRequired
}

// Diff compares old and new.
func Diff(old, new *Config) ConfigDiff {
	var d ConfigDiff

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	for _, name := range unionKeys(old.Modes, new.Modes) {
		o, inOld := old.Modes[name]
		n, inNew := new.Modes[name]
		if inOld != inNew || o != n {
			d.ModesChanged = append(d.ModesChanged, name)
		}
	}

	d.RestartRequired = old.Server.ListenAddr != new.Server.ListenAddr ||
		old.Storage != new.Storage ||
		!speechEqual(old.Speech, new.Speech) ||
		old.MCP != new.MCP

	return d
}

func unionKeys(a, b map[string]ModeConfig) []string {
	keys := slices.Collect(maps.Keys(a))
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

func speechEqual(a, b SpeechConfig) bool {
	return entryEqual(a.Transcriber, b.Transcriber) &&
		entryEqual(a.Synthesizer, b.Synthesizer) &&
		slices.EqualFunc(a.Fallbacks, b.Fallbacks, entryEqual) &&
		a.Breaker == b.Breaker
}

// entryEqual ignores Options, which hold provider-specific values.
func entryEqual(a, b ProviderEntry) bool {
	return a.Name == b.Name && a.APIKey == b.APIKey && a.BaseURL == b.BaseURL &&
		a.Model == b.Model && a.Language == b.Language && a.Voice == b.Voice &&
		a.Timeout == b.Timeout
}
