package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/stratmind/formulagraph/internal/autosave"
	"github.com/stratmind/formulagraph/internal/catalog"
	"github.com/stratmind/formulagraph/internal/expressions"
	"github.com/stratmind/formulagraph/internal/factory"
	"github.com/stratmind/formulagraph/internal/logging"
	"github.com/stratmind/formulagraph/internal/store"
	"github.com/stratmind/formulagraph/pkg/mcp"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "formulagraph:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := loadConfig()

	// Logs go to stderr: stdout is the MCP transport.
	logger := slog.New(logging.NewCorrelationHandler(
		slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}),
	))

	cat := catalog.Builtin()
	if cfg.CatalogPath != "" {
		var err error
		cat, err = catalog.Load(cfg.CatalogPath)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
	}

	if err := os.MkdirAll(formulagraphDir(), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	db, err := store.NewLibSQLStore(expandDBPath(cfg.DBPath))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}

	guards, err := expressions.NewRegistry()
	if err != nil {
		return fmt.Errorf("init expression engines: %w", err)
	}

	srv := mcp.NewEditorServer(mcp.EditorServerDeps{
		Catalog: cat,
		Factory: factory.New(cat),
		Store:   db,
		Guards:  guards,
		Logger:  logger,
	})

	saver, err := autosave.NewScheduler(db, srv.Sessions(), cfg.AutosaveCron, logger)
	if err != nil {
		return fmt.Errorf("init autosave: %w", err)
	}
	if err := saver.Start(ctx); err != nil {
		return fmt.Errorf("start autosave: %w", err)
	}
	defer saver.Stop()

	logger.Info("formulagraph editor started",
		slog.String("db_path", cfg.DBPath),
		slog.Int("indicators", len(cat.All())),
	)

	return srv.Serve(ctx)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// expandDBPath resolves a leading "~" so settings.json paths work as typed.
func expandDBPath(path string) string {
	if len(path) > 1 && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
