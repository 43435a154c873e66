package main

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/MrWong99/parla/internal/config"
	"github.com/MrWong99/parla/internal/progress/filestore"
	"github.com/MrWong99/parla/internal/progress/memstore"
	"github.com/MrWong99/parla/internal/progress/postgres"
	"github.com/MrWong99/parla/internal/progress/sqlite"
	"github.com/MrWong99/parla/internal/resilience"
	"github.com/MrWong99/parla/pkg/speech"
	oaispeech "github.com/MrWong99/parla/pkg/speech/openai"
)

// registerBuiltins wires every built-in storage backend and speech provider
// into reg.
func registerBuiltins(reg *config.Registry) {
	reg.RegisterStore(config.StorageFile, func(_ context.Context, cfg config.StorageConfig) (config.OpenedStore, error) {
		s, err := filestore.New(cfg.Path)
		if err != nil {
			return config.OpenedStore{}, err
		}
		return config.OpenedStore{Store: s}, nil
	})
	reg.RegisterStore(config.StorageSQLite, func(ctx context.Context, cfg config.StorageConfig) (config.OpenedStore, error) {
		s, err := sqlite.Open(ctx, cfg.Path)
		if err != nil {
			return config.OpenedStore{}, err
		}
		return config.OpenedStore{Store: s, Ping: s.Ping, Close: s.Close}, nil
	})
	reg.RegisterStore(config.StoragePostgres, func(ctx context.Context, cfg config.StorageConfig) (config.OpenedStore, error) {
		s, err := postgres.NewStore(ctx, cfg.DSN)
		if err != nil {
			return config.OpenedStore{}, err
		}
		return config.OpenedStore{
			Store: s,
			Ping:  s.Ping,
			Close: func() error { s.Close(); return nil },
		}, nil
	})
	reg.RegisterStore(config.StorageMemory, func(context.Context, config.StorageConfig) (config.OpenedStore, error) {
		return config.OpenedStore{Store: memstore.New()}, nil
	})

	reg.RegisterTranscriber("openai", func(e config.ProviderEntry) (speech.Transcriber, error) {
		return oaispeech.NewTranscriber(e.APIKey, openAIOptions(e)...)
	})
	reg.RegisterSynthesizer("openai", func(e config.ProviderEntry) (speech.Synthesizer, error) {
		return oaispeech.NewSynthesizer(e.APIKey, openAIOptions(e)...)
	})
}

func openAIOptions(e config.ProviderEntry) []oaispeech.Option {
	var opts []oaispeech.Option
	if e.BaseURL != "" {
		opts = append(opts, oaispeech.WithBaseURL(e.BaseURL))
	}
	if e.Model != "" {
		opts = append(opts, oaispeech.WithModel(e.Model))
	}
	if e.Language != "" {
		opts = append(opts, oaispeech.WithLanguage(e.Language))
	}
	if e.Voice != "" {
		opts = append(opts, oaispeech.WithVoice(e.Voice))
	}
	if e.Timeout > 0 {
		opts = append(opts, oaispeech.WithTimeout(e.Timeout))
	}
	return opts
}

// speechHelpers are the server-side speech providers, each behind circuit
// breakers. Nil fields mean the helper is disabled.
type speechHelpers struct {
	transcriber     *resilience.TranscriberFallback
	transcriberName string
	synthesizer     *resilience.SynthesizerFallback
	synthesizerName string
}

func buildSpeech(cfg *config.Config, reg *config.Registry, log *slog.Logger) (speechHelpers, error) {
	var h speechHelpers
	fbCfg := resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			MaxFailures:  cfg.Speech.Breaker.MaxFailures,
			ResetTimeout: cfg.Speech.Breaker.ResetTimeout,
			Logger:       log,
			OnStateChange: func(name string, from, to resilience.State) {
				log.Warn("speech provider breaker changed state", "provider", name, "from", from, "to", to)
			},
		},
	}

	if e := cfg.Speech.Transcriber; e.Name != "" {
		t, err := reg.CreateTranscriber(e)
		if err != nil {
			return h, fmt.Errorf("transcriber %q: %w", e.Name, err)
		}
		h.transcriber = resilience.NewTranscriberFallback(t, e.Name, fbCfg)
		h.transcriberName = e.Name
		for i, fe := range cfg.Speech.Fallbacks {
			ft, err := reg.CreateTranscriber(fe)
			if err != nil {
				return h, fmt.Errorf("transcriber fallback %d (%q): %w", i, fe.Name, err)
			}
			h.transcriber.AddFallback(fmt.Sprintf("%s#%d", fe.Name, i+1), ft)
		}
	}
	if e := cfg.Speech.Synthesizer; e.Name != "" {
		s, err := reg.CreateSynthesizer(e)
		if err != nil {
			return h, fmt.Errorf("synthesizer %q: %w", e.Name, err)
		}
		h.synthesizer = resilience.NewSynthesizerFallback(s, e.Name, fbCfg)
		h.synthesizerName = e.Name
	}
	return h, nil
}

// transcriberOrNil returns the helper as an interface, nil when disabled.
func (h speechHelpers) transcriberOrNil() speech.Transcriber {
	if h.transcriber == nil {
		return nil
	}
	return h.transcriber
}

func (h speechHelpers) synthesizerOrNil() speech.Synthesizer {
	if h.synthesizer == nil {
		return nil
	}
	return h.synthesizer
}

// breakersClosed fails when every breaker in states is open.
func breakersClosed(states func() map[string]resilience.State) func(context.Context) error {
	return func(context.Context) error {
		var open []string
		st := states()
		for name, s := range st {
			if s == resilience.StateOpen {
				open = append(open, name)
			}
		}
		if len(st) > 0 && len(open) == len(st) {
			sort.Strings(open)
			return fmt.Errorf("all providers unavailable: %s", strings.Join(open, ", "))
		}
		return nil
	}
}
