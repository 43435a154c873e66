package config_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/parla/internal/config"
)

const watcherValidYAML = `
server:
  log_level: info
storage:
  backend: memory
modes:
  fluency:
    target: 4
`

const watcherUpdatedYAML = `
server:
  log_level: debug
storage:
  backend: memory
modes:
  fluency:
    target: 12
`

const watcherInvalidYAML = `
server:
  log_level: bananas
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %q: %v", path, err)
	}
}

// bumpMtime moves the file's mtime forward so that coarse timestamps still
// register a change.
func bumpMtime(t *testing.T, path string, by time.Duration) {
	t.Helper()
	when := time.Now().Add(by)
	if err := os.Chtimes(path, when, when); err != nil {
		t.Fatalf("chtimes %q: %v", path, err)
	}
}

func noEnv(string) string { return "" }

func TestWatcher_InitialLoad(t *testing.T) {
	t.Parallel()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, cfgPath, watcherValidYAML)

	w, err := config.NewWatcher(cfgPath, nil, config.WithInterval(50*time.Millisecond), config.WithGetenv(noEnv))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	cfg := w.Current()
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("log_level = %q, want info", cfg.Server.LogLevel)
	}
	if m, _ := cfg.Mode("fluency"); m.Target != 4 {
		t.Errorf("fluency target = %d, want 4", m.Target)
	}
}

func TestWatcher_DetectsChange(t *testing.T) {
	t.Parallel()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, cfgPath, watcherValidYAML)

	var (
		mu       sync.Mutex
		gotOld   *config.Config
		gotNew   *config.Config
		notified = make(chan struct{}, 1)
	)
	w, err := config.NewWatcher(cfgPath, func(old, new *config.Config) {
		mu.Lock()
		gotOld, gotNew = old, new
		mu.Unlock()
		select {
		case notified <- struct{}{}:
		default:
		}
	}, config.WithInterval(20*time.Millisecond), config.WithGetenv(noEnv))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	writeFile(t, cfgPath, watcherUpdatedYAML)
	bumpMtime(t, cfgPath, 2*time.Second)

	select {
	case <-notified:
	case <-time.After(2 * time.Second):
		t.Fatal("callback was not invoked")
	}

	mu.Lock()
	defer mu.Unlock()
	d := config.Diff(gotOld, gotNew)
	if !d.LogLevelChanged || d.NewLogLevel != config.LogDebug {
		t.Errorf("diff = %+v, want log level change to debug", d)
	}
	if len(d.ModesChanged) != 1 || d.ModesChanged[0] != "fluency" {
		t.Errorf("ModesChanged = %v, want [fluency]", d.ModesChanged)
	}
	if d.RestartRequired {
		t.Error("RestartRequired = true for hot-reloadable changes")
	}
	if w.Current().Server.LogLevel != config.LogDebug {
		t.Errorf("Current() log_level = %q, want debug", w.Current().Server.LogLevel)
	}
}

func TestWatcher_EnvKeepsPrecedence(t *testing.T) {
	t.Parallel()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, cfgPath, watcherValidYAML)

	env := func(k string) string {
		if k == "PARLA_LOG_LEVEL" {
			return "warn"
		}
		return ""
	}
	w, err := config.NewWatcher(cfgPath, nil, config.WithGetenv(env))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()
	if got := w.Current().Server.LogLevel; got != config.LogWarn {
		t.Errorf("log_level = %q, want warn from the environment", got)
	}
}

func TestWatcher_InvalidOrUnchangedFileIgnored(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		write string
	}{
		{"invalid content", watcherInvalidYAML},
		{"touch only", watcherValidYAML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfgPath := filepath.Join(t.TempDir(), "config.yaml")
			writeFile(t, cfgPath, watcherValidYAML)

			var (
				mu    sync.Mutex
				calls int
			)
			w, err := config.NewWatcher(cfgPath, func(_, _ *config.Config) {
				mu.Lock()
				calls++
				mu.Unlock()
			}, config.WithInterval(20*time.Millisecond), config.WithGetenv(noEnv))
			if err != nil {
				t.Fatalf("NewWatcher: %v", err)
			}
			defer w.Stop()

			writeFile(t, cfgPath, tt.write)
			bumpMtime(t, cfgPath, 2*time.Second)
			time.Sleep(200 * time.Millisecond)

			mu.Lock()
			defer mu.Unlock()
			if calls != 0 {
				t.Errorf("callback fired %d times, want 0", calls)
			}
			if w.Current().Server.LogLevel != config.LogInfo {
				t.Errorf("Current() changed to %q", w.Current().Server.LogLevel)
			}
		})
	}
}

func TestWatcher_InitialLoadFails(t *testing.T) {
	t.Parallel()
	if _, err := config.NewWatcher("/nonexistent/path.yaml", nil); err == nil {
		t.Fatal("NewWatcher succeeded for a missing file")
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	t.Parallel()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, cfgPath, watcherValidYAML)

	w, err := config.NewWatcher(cfgPath, nil, config.WithGetenv(noEnv))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.Stop()
	w.Stop()
}
