package models

import (
	"time"

	"bitbucket.org/mmdatafocus/sonar_removals/config"
)

const (
	ExportRunStatusCompleted = "Completed"
	ExportRunStatusFailed    = "Failed"
)

// ExportRun is the audit trail for one exporter run. Optional: rows are only
// written when a database is configured.
type ExportRun struct {
	ID                    uint   `gorm:"primarykey"`
	RunID                 string `gorm:"size:36;uniqueIndex"`
	StartedAt             time.Time
	FinishedAt            time.Time
	InventoryRows         int
	AccountRows           int
	InactiveCandidates    int
	ServiceableCandidates int
	UninstallCandidates   int
	SkippedCandidates     int
	OutputRows            int
	OutputPath            string `gorm:"size:512"`
	Status                string `gorm:"size:32"`
	ErrorMessage          string `gorm:"size:2048"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func MigrateTable() error {
	db := config.GetDB()
	if db == nil {
		return nil
	}
	return db.AutoMigrate(&ExportRun{})
}

// RecordExportRun persists the audit row; a nil DB is a no-op so runs without
// a configured database still succeed.
func RecordExportRun(run *ExportRun) error {
	db := config.GetDB()
	if db == nil {
		return nil
	}
	return db.Create(run).Error
}
