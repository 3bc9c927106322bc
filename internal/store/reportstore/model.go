// Package reportstore persists cycle reports and the scheduler's durable
// state in SQLite.
package reportstore

import (
	"time"

	"gorm.io/datatypes"
)

// CycleReportModel is one persisted cycle report. Detail holds the full
// report document (decisions, orders, rejections) as JSON.
type CycleReportModel struct {
	ID         string         `gorm:"primaryKey;size:36"`
	StartedAt  time.Time      `gorm:"index"`
	FinishedAt time.Time
	Status     string         `gorm:"size:32;index"`
	Detail     datatypes.JSON
}

func (CycleReportModel) TableName() string { return "cycle_reports" }

// EngineStateModel is the single-row durable scheduler state, used to re-arm
// the autopilot with its last settings after a restart.
type EngineStateModel struct {
	ID              uint           `gorm:"primaryKey"`
	Running         bool
	DryRun          bool
	IntervalSeconds int
	Watchlist       datatypes.JSON
	Constraints     datatypes.JSON
	UpdatedAt       time.Time
}

func (EngineStateModel) TableName() string { return "engine_state" }

const engineStateRowID = 1
