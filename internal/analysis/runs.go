package analysis

import (
	"os"
	"path/filepath"

	"github.com/xrflab/xrfmap-go/internal/catalog"
	"github.com/xrflab/xrfmap-go/internal/conf"
	"github.com/xrflab/xrfmap-go/internal/errors"
	"github.com/xrflab/xrfmap-go/internal/scanfile"
)

// NoPendingRun is the pending-run sentinel of a RunLoader with no load in
// flight.
const NoPendingRun int64 = -1

// OpenCatalog opens the scan-run catalog configured in settings.
func OpenCatalog(settings *conf.Settings) (*catalog.DataStore, error) {
	path := settings.Catalog.Path
	if path == "" {
		path = filepath.Join(outputDir(settings), "xrfmap.db")
	} else {
		path = resolveInput(settings, path)
	}
	store := catalog.New(path)
	if err := store.Open(); err != nil {
		return nil, err
	}
	return store, nil
}

// recordRun stores the processed scan in the catalog. Scans without a run ID
// are skipped.
func recordRun(settings *conf.Settings, sf *scanfile.ScanFile, path string) error {
	meta := sf.Metadata()
	if meta.RunID < 0 {
		serviceLogger().Debug("scan carries no run ID, skipping catalog", "path", path)
		return nil
	}

	store, err := OpenCatalog(settings)
	if err != nil {
		return err
	}
	defer store.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	run := &catalog.ScanRun{
		RunID:          meta.RunID,
		FilePath:       abs,
		IncidentEnergy: meta.IncidentEnergy,
	}
	for key, value := range meta.Values {
		run.Metadata = append(run.Metadata, catalog.RunMetadata{Key: key, Value: value})
	}

	if src, err := sf.DataSource(scanfile.SumChannel); err == nil {
		run.Rows, run.Cols, run.Points = src.Shape()
		src.Close()
	}

	return store.RecordRun(run)
}

// RunLoader loads catalogued scans by run ID. PendingRunID holds the ID of
// the load in flight and is reset to NoPendingRun after every attempt,
// successful or not, so a stale request can never be replayed.
type RunLoader struct {
	store        catalog.Interface
	PendingRunID int64
}

// NewRunLoader wraps an open catalog store.
func NewRunLoader(store catalog.Interface) *RunLoader {
	return &RunLoader{store: store, PendingRunID: NoPendingRun}
}

// Load fetches a run by ID and verifies that its scan file still exists.
func (l *RunLoader) Load(runID int64) (*catalog.ScanRun, error) {
	l.PendingRunID = runID
	defer func() { l.PendingRunID = NoPendingRun }()

	run, err := l.store.GetRun(runID)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(run.FilePath); err != nil {
		return nil, errors.Newf("scan file for run %d is missing: %s", runID, run.FilePath).
			Category(errors.CategoryCatalog).
			Context("run_id", runID).
			Build()
	}
	return run, nil
}
