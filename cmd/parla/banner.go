package main

import (
	"fmt"
	"io"

	"github.com/MrWong99/parla/internal/config"
)

// printBanner writes the startup summary.
func printBanner(w io.Writer, cfg *config.Config, sh speechHelpers) {
	orNone := func(s string) string {
		if s == "" {
			return styleMuted.Render("(browser only)")
		}
		return s
	}
	storage := string(cfg.Storage.Backend)
	switch cfg.Storage.Backend {
	case config.StorageFile, config.StorageSQLite:
		storage += " " + styleMuted.Render(cfg.Storage.Path)
	}
	mcp := styleMuted.Render("(disabled)")
	if cfg.MCP.Enabled {
		mcp = cfg.MCP.Path
	}
	_, _ = fmt.Fprintln(w, panel("parla "+version,
		row("listen", cfg.Server.ListenAddr),
		row("storage", storage),
		row("transcriber", orNone(sh.transcriberName)),
		row("synthesizer", orNone(sh.synthesizerName)),
		row("modes", fmt.Sprintf("%d", len(cfg.AllModes()))),
		row("mcp", mcp),
	))
}
