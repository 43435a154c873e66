package config_test

import (
	"testing"
	"time"

	"github.com/MrWong99/parla/internal/config"
)

func TestDiff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		mutate      func(*config.Config)
		wantLevel   bool
		wantModes   []string
		wantRestart bool
	}{
		{name: "identical", mutate: func(*config.Config) {}},
		{
			name:      "log level",
			mutate:    func(c *config.Config) { c.Server.LogLevel = config.LogDebug },
			wantLevel: true,
		},
		{
			name: "mode added and modified",
			mutate: func(c *config.Config) {
				c.Modes["fluency"] = config.ModeConfig{Target: 3}
				c.Modes["reaction"] = config.ModeConfig{ResponseWindow: 8 * time.Second}
			},
			wantModes: []string{"fluency", "reaction"},
		},
		{
			name:      "mode removed",
			mutate:    func(c *config.Config) { delete(c.Modes, "focus") },
			wantModes: []string{"focus"},
		},
		{
			name:        "storage",
			mutate:      func(c *config.Config) { c.Storage.Backend = config.StorageSQLite },
			wantRestart: true,
		},
		{
			name:        "speech provider",
			mutate:      func(c *config.Config) { c.Speech.Transcriber.Model = "gpt-4o-transcribe" },
			wantRestart: true,
		},
		{
			name:   "provider options only",
			mutate: func(c *config.Config) { c.Speech.Transcriber.Options = map[string]any{"x": 1} },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			old := config.Default()
			old.Modes = map[string]config.ModeConfig{"focus": {Target: 1}}
			old.Speech.Transcriber = config.ProviderEntry{Name: "openai"}

			new := config.Default()
			new.Modes = map[string]config.ModeConfig{"focus": {Target: 1}}
			new.Speech.Transcriber = config.ProviderEntry{Name: "openai"}
			tt.mutate(new)

			d := config.Diff(old, new)
			if d.LogLevelChanged != tt.wantLevel {
				t.Errorf("LogLevelChanged = %v, want %v", d.LogLevelChanged, tt.wantLevel)
			}
			if len(d.ModesChanged) != len(tt.wantModes) {
				t.Fatalf("ModesChanged = %v, want %v", d.ModesChanged, tt.wantModes)
			}
			for i := range tt.wantModes {
				if d.ModesChanged[i] != tt.wantModes[i] {
					t.Errorf("ModesChanged = %v, want %v", d.ModesChanged, tt.wantModes)
				}
			}
			if d.RestartRequired != tt.wantRestart {
				t.Errorf("RestartRequired = %v, want %v", d.RestartRequired, tt.wantRestart)
			}
			wantZero := !tt.wantLevel && len(tt.wantModes) == 0 && !tt.wantRestart
			if d.IsZero() != wantZero {
				t.Errorf("IsZero() = %v, want %v", d.IsZero(), wantZero)
			}
		})
	}
}
