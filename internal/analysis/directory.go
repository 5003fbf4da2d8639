package analysis

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xrflab/xrfmap-go/internal/conf"
	"github.com/xrflab/xrfmap-go/internal/errors"
)

// BatchResult summarizes one directory analysis job.
type BatchResult struct {
	JobID     string
	Processed int
	Failed    int
	Errors    map[string]error // failed scan path to its error
}

// DirectoryAnalysis fits every scan file in the directory named in
// settings.Input.Path. Failures of individual scans do not stop the batch;
// they are collected in the result.
func DirectoryAnalysis(ctx context.Context, settings *conf.Settings) (*BatchResult, error) {
	dir := resolveInput(settings, settings.Input.Path)
	scans, err := collectScanFiles(dir, settings.Input.Recursive)
	if err != nil {
		return nil, err
	}
	if len(scans) == 0 {
		return nil, errors.Newf("no scan files found in %s", dir).
			Category(errors.CategoryNotFound).
			Context("recursive", settings.Input.Recursive).
			Build()
	}

	result := &BatchResult{
		JobID:  uuid.New().String(),
		Errors: make(map[string]error),
	}

	log := serviceLogger()
	log.Info("batch analysis started",
		"job_id", result.JobID,
		"directory", dir,
		"scans", len(scans),
		"recursive", settings.Input.Recursive)

	start := time.Now()
	for _, scan := range scans {
		if err := ctx.Err(); err != nil {
			return result, errors.Newf("batch analysis interrupted: %w", err).
				Category(errors.CategoryCancellation).
				Context("job_id", result.JobID).
				Build()
		}

		scanSettings := *settings
		scanSettings.Input.Path = scan
		if err := FileAnalysis(ctx, &scanSettings); err != nil {
			log.Error("scan failed", "job_id", result.JobID, "path", scan, "error", err)
			result.Failed++
			result.Errors[scan] = err
			continue
		}
		result.Processed++
	}

	log.Info("batch analysis finished",
		"job_id", result.JobID,
		"processed", result.Processed,
		"failed", result.Failed,
		"duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

// collectScanFiles lists the .h5/.hdf5 files of a directory, sorted by path.
func collectScanFiles(dir string, recursive bool) ([]string, error) {
	var scans []string

	walk := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !recursive && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".h5", ".hdf5":
			scans = append(scans, path)
		}
		return nil
	}

	if err := filepath.WalkDir(dir, walk); err != nil {
		return nil, errors.Newf("scanning directory %s: %w", dir, err).
			Category(errors.CategoryFileIO).
			Build()
	}
	sort.Strings(scans)
	return scans, nil
}
