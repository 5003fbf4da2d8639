// Package analysis wires scan files, fitting parameters and the processing
// core into the operations exposed by the CLI.
package analysis

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xrflab/xrfmap-go/internal/conf"
	"github.com/xrflab/xrfmap-go/internal/errors"
	"github.com/xrflab/xrfmap-go/internal/logging"
	"github.com/xrflab/xrfmap-go/internal/observability"
	"github.com/xrflab/xrfmap-go/internal/xrfmap"
)

var metricsInstance *observability.XRFMetrics

// SetMetrics installs the metrics instance used by analysis operations.
// A nil instance disables metrics collection in the processing core.
func SetMetrics(m *observability.XRFMetrics) {
	metricsInstance = m
}

func serviceLogger() *slog.Logger {
	if l := logging.ForService("analysis"); l != nil {
		return l
	}
	return slog.Default()
}

// resolveInput joins a relative input path with the working directory.
func resolveInput(settings *conf.Settings, path string) string {
	if path == "" || filepath.IsAbs(path) || settings.WorkingDir == "" {
		return path
	}
	return filepath.Join(settings.WorkingDir, path)
}

// outputDir returns the artifact directory, falling back to the working dir.
func outputDir(settings *conf.Settings) string {
	if settings.Output.Dir != "" {
		return settings.Output.Dir
	}
	if settings.WorkingDir != "" {
		return settings.WorkingDir
	}
	return "."
}

// validateScanPath checks that the path points at a plausible scan file
// before anything downstream is touched.
func validateScanPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.Newf("accessing scan file %s: %w", filepath.Base(path), err).
			Category(errors.CategoryFileIO).
			ScanContext(path, "").
			Build()
	}
	if info.IsDir() {
		return errors.Newf("%s is a directory, not a scan file", filepath.Base(path)).
			Category(errors.CategoryValidation).
			ScanContext(path, "").
			Build()
	}
	if info.Size() == 0 {
		return errors.Newf("scan file %s is empty", filepath.Base(path)).
			Category(errors.CategoryScanFile).
			ScanContext(path, "").
			Build()
	}
	return nil
}

// processingOptions builds the worker pool options from settings.
func processingOptions(settings *conf.Settings, progressTitle string) xrfmap.Options {
	opts := xrfmap.Options{
		ChunkPixels: settings.Processing.ChunkPixels,
		MinChunks:   settings.Processing.MinChunks,
		Workers:     settings.Processing.Workers,
		Logger:      serviceLogger(),
		Metrics:     metricsInstance,
	}
	if progressTitle != "" {
		opts.Progress = xrfmap.NewTerminalProgress(progressTitle)
	}
	return opts
}

// buildMask constructs the processing mask for a map of the given shape from
// the mask settings. Returns nil when masking is disabled.
func buildMask(settings *conf.Settings, ny, nx int) (*xrfmap.Mask, error) {
	switch settings.Mask.Mode {
	case conf.MaskModeNone:
		return nil, nil

	case conf.MaskModeRect:
		sel := xrfmap.RectFromCorners(
			settings.Mask.P1Row, settings.Mask.P1Col,
			settings.Mask.P2Row, settings.Mask.P2Col)
		return xrfmap.BuildMask(ny, nx, &sel, nil)

	case conf.MaskModeFile:
		fileMask, err := xrfmap.LoadMaskFile(resolveInput(settings, settings.Mask.File))
		if err != nil {
			return nil, err
		}
		return xrfmap.BuildMask(ny, nx, nil, fileMask)

	default:
		return nil, errors.Newf("invalid mask mode %d", settings.Mask.Mode).
			Category(errors.CategoryValidation).
			Build()
	}
}

// filePrefix derives the artifact prefix from a scan file name.
func filePrefix(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
