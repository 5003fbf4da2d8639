// model.go data model for the scan-run catalog
package catalog

import "time"

// ScanRun is one recorded scan: where its file lives and the acquisition
// conditions needed to process it again.
type ScanRun struct {
	ID             uint   `gorm:"primaryKey"`
	RunID          int64  `gorm:"uniqueIndex;not null"`
	FilePath       string `gorm:"not null"`
	IncidentEnergy float64
	Rows           int
	Cols           int
	Points         int
	CreatedAt      time.Time `gorm:"index"`
	UpdatedAt      time.Time

	Metadata []RunMetadata `gorm:"foreignKey:ScanRunID;constraint:OnDelete:CASCADE"`
}

// RunMetadata is one key/value acquisition condition of a scan run.
type RunMetadata struct {
	ID        uint   `gorm:"primaryKey"`
	ScanRunID uint   `gorm:"index;not null"`
	Key       string `gorm:"not null"`
	Value     float64
}
