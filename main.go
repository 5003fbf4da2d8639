package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xrflab/xrfmap-go/cmd"
	"github.com/xrflab/xrfmap-go/internal/analysis"
	"github.com/xrflab/xrfmap-go/internal/conf"
	"github.com/xrflab/xrfmap-go/internal/logging"
	"github.com/xrflab/xrfmap-go/internal/observability"
)

func main() {
	logging.Init()

	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if settings.Debug {
		logging.SetLevel(slog.LevelDebug)
	}

	closeFileLog, err := setupFileLogging(settings)
	if err != nil {
		logging.Warn("file logging disabled", "error", err)
	} else if closeFileLog != nil {
		defer closeFileLog()
	}

	registry := prometheus.NewRegistry()
	metrics, err := observability.NewXRFMetrics(registry)
	if err != nil {
		logging.Warn("metrics disabled", "error", err)
	} else {
		analysis.SetMetrics(metrics)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// setupFileLogging routes the structured log to a rotated file when enabled.
func setupFileLogging(settings *conf.Settings) (func() error, error) {
	if !settings.Main.Log.Enabled {
		return nil, nil
	}

	path := settings.Main.Log.Path
	if !filepath.IsAbs(path) && settings.WorkingDir != "" {
		path = filepath.Join(settings.WorkingDir, path)
	}

	level := slog.LevelInfo
	if settings.Debug {
		level = slog.LevelDebug
	}

	logger, closeFn, err := logging.NewFileLogger(path, settings.Main.Name, level)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return closeFn, nil
}
