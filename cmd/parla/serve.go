package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/parla/internal/bridge"
	"github.com/MrWong99/parla/internal/config"
	"github.com/MrWong99/parla/internal/health"
	"github.com/MrWong99/parla/internal/mcpserver"
	"github.com/MrWong99/parla/internal/observe"
	"github.com/MrWong99/parla/internal/progress"
	"github.com/MrWong99/parla/internal/server"
	"github.com/MrWong99/parla/internal/session"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the practice server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd.OutOrStdout(), opts.configPath, nil)
		},
	}
}

// runServe runs the server until ctx is cancelled. ready, if non-nil, is
// called with the bound address once the listener is open.
func runServe(ctx context.Context, out io.Writer, configPath string, ready func(net.Addr)) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	level := new(slog.LevelVar)
	level.Set(cfg.Server.LogLevel.Level())
	logger := newLogger(os.Stderr, level, cfg.Server.LogFormat)
	slog.SetDefault(logger)

	current := func() *config.Config { return cfg }
	if configPath != "" {
		w, err := config.NewWatcher(configPath,
			func(old, new *config.Config) { applyReload(logger, level, old, new) },
			config.WithWatcherLogger(logger),
		)
		if err != nil {
			return err
		}
		defer w.Stop()
		current = w.Current
	}

	// ── Telemetry ─────────────────────────────────────────────────────────────
	telemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(sctx); err != nil {
			logger.Warn("telemetry shutdown", "err", err)
		}
	}()
	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// ── Storage and providers ─────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltins(reg)

	store, err := reg.OpenStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if store.Close != nil {
		defer func() {
			if err := store.Close(); err != nil {
				logger.Warn("closing progress store", "err", err)
			}
		}()
	}
	progressSvc := progress.NewService(store.Store,
		progress.WithRecordKey(cfg.Storage.RecordKey),
		progress.WithLogger(logger),
	)

	speechHelpers, err := buildSpeech(cfg, reg, logger)
	if err != nil {
		return err
	}

	// ── Health ────────────────────────────────────────────────────────────────
	storeCheck := store.Ping
	if storeCheck == nil {
		storeCheck = func(ctx context.Context) error {
			_, err := progressSvc.Load(ctx)
			return err
		}
	}
	checkers := []health.Checker{{Name: "progress-store", Check: storeCheck}}
	if t := speechHelpers.transcriber; t != nil {
		checkers = append(checkers, health.Checker{Name: "transcriber", Check: breakersClosed(t.States), Optional: true})
	}
	if s := speechHelpers.synthesizer; s != nil {
		checkers = append(checkers, health.Checker{Name: "synthesizer", Check: breakersClosed(s.States), Optional: true})
	}

	// ── HTTP surface ──────────────────────────────────────────────────────────
	sessions := bridge.NewHandler(bridge.Config{
		Modes:           func(name string) (session.Mode, bool) { return current().Mode(name) },
		Recorder:        progressSvc,
		Transcriber:     speechHelpers.transcriberOrNil(),
		TranscriberName: speechHelpers.transcriberName,
		Synthesizer:     speechHelpers.synthesizerOrNil(),
		SynthesizerName: speechHelpers.synthesizerName,
		OriginPatterns:  cfg.Server.AllowedOrigins,
		Metrics:         metrics,
		Logger:          logger,
	})

	var mcpHandler http.Handler
	if cfg.MCP.Enabled {
		mcpHandler = mcpserver.Handler(mcpserver.New(mcpserver.Config{
			Version:  version,
			Progress: progressSvc,
			Modes:    cfg.AllModes(),
			Metrics:  metrics,
			Logger:   logger,
		}))
	}

	srv := &http.Server{
		Addr: cfg.Server.ListenAddr,
		Handler: server.New(server.Config{
			Progress:       progressSvc,
			Modes:          cfg.AllModes(),
			Sessions:       sessions,
			Health:         health.New(checkers...),
			MetricsHandler: telemetry.Handler(),
			MCP:            mcpHandler,
			MCPPath:        cfg.MCP.Path,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Metrics:        metrics,
			Logger:         logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	printBanner(out, cfg, speechHelpers)
	if ready != nil {
		ready(ln.Addr())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("parla listening", "addr", ln.Addr().String(), "version", version)
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("goodbye")
	return nil
}

// applyReload applies the hot-reloadable parts of a changed config.
func applyReload(log *slog.Logger, level *slog.LevelVar, old, new *config.Config) {
	d := config.Diff(old, new)
	if d.IsZero() {
		return
	}
	if d.LogLevelChanged {
		level.Set(d.NewLogLevel.Level())
	}
	log.Info("configuration reloaded",
		"log_level", new.Server.LogLevel,
		"modes_changed", d.ModesChanged,
	)
	if d.RestartRequired {
		log.Warn("some configuration changes take effect only after a restart")
	}
}
