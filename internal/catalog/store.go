// Package catalog keeps a local index of processed scan runs in sqlite, so
// scans can be located again by their numeric run ID.
package catalog

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xrflab/xrfmap-go/internal/errors"
)

// Interface defines the catalog operations.
type Interface interface {
	Open() error
	Close() error
	RecordRun(run *ScanRun) error
	GetRun(runID int64) (*ScanRun, error)
	ListRuns(limit int) ([]ScanRun, error)
	DeleteRun(runID int64) error
}

// DataStore implements Interface using a GORM sqlite database.
type DataStore struct {
	Path string
	DB   *gorm.DB
}

// New creates a catalog store backed by the sqlite file at path.
func New(path string) *DataStore {
	return &DataStore{Path: path}
}

// Open opens the database and migrates the schema.
func (ds *DataStore) Open() error {
	db, err := gorm.Open(sqlite.Open(ds.Path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return errors.Newf("opening catalog %s: %w", ds.Path, err).
			Category(errors.CategoryCatalog).
			Build()
	}

	if err := db.AutoMigrate(&ScanRun{}, &RunMetadata{}); err != nil {
		return errors.Newf("migrating catalog schema: %w", err).
			Category(errors.CategoryCatalog).
			Build()
	}

	ds.DB = db
	return nil
}

// Close closes the underlying database connection.
func (ds *DataStore) Close() error {
	if ds.DB == nil {
		return nil
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return fmt.Errorf("getting database handle: %w", err)
	}
	ds.DB = nil
	return sqlDB.Close()
}

// RecordRun stores a scan run and its metadata in one transaction. An
// existing run with the same run ID is replaced.
func (ds *DataStore) RecordRun(run *ScanRun) error {
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		var existing ScanRun
		err := tx.Where("run_id = ?", run.RunID).First(&existing).Error
		switch {
		case err == nil:
			if err := deleteRun(tx, &existing); err != nil {
				return fmt.Errorf("replacing run %d: %w", run.RunID, err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// first time this run is recorded
		default:
			return fmt.Errorf("looking up run %d: %w", run.RunID, err)
		}

		if err := tx.Create(run).Error; err != nil {
			return fmt.Errorf("recording run %d: %w", run.RunID, err)
		}
		return nil
	})
}

// GetRun loads a scan run by its run ID.
func (ds *DataStore) GetRun(runID int64) (*ScanRun, error) {
	var run ScanRun
	err := ds.DB.Preload("Metadata").Where("run_id = ?", runID).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFoundError("run %d not found in catalog", runID)
		}
		return nil, errors.Newf("loading run %d: %w", runID, err).
			Category(errors.CategoryCatalog).
			Build()
	}
	return &run, nil
}

// ListRuns returns the most recently recorded runs, newest first. A limit of
// zero returns all runs.
func (ds *DataStore) ListRuns(limit int) ([]ScanRun, error) {
	var runs []ScanRun
	q := ds.DB.Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, errors.Newf("listing runs: %w", err).
			Category(errors.CategoryCatalog).
			Build()
	}
	return runs, nil
}

// DeleteRun removes a scan run and its metadata.
func (ds *DataStore) DeleteRun(runID int64) error {
	var run ScanRun
	if err := ds.DB.Where("run_id = ?", runID).First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.NotFoundError("run %d not found in catalog", runID)
		}
		return errors.Newf("deleting run %d: %w", runID, err).
			Category(errors.CategoryCatalog).
			Build()
	}

	return ds.DB.Transaction(func(tx *gorm.DB) error {
		return deleteRun(tx, &run)
	})
}

// deleteRun removes a run row and its metadata rows.
func deleteRun(tx *gorm.DB, run *ScanRun) error {
	if err := tx.Where("scan_run_id = ?", run.ID).Delete(&RunMetadata{}).Error; err != nil {
		return err
	}
	return tx.Delete(run).Error
}
