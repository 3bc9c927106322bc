package autopilot

import (
	"context"
	"time"

	"autopilot/internal/broker"
	"autopilot/internal/decision"
	"autopilot/internal/risk"
)

// Cycle statuses.
const (
	StatusCompleted     = "completed"
	StatusAborted       = "aborted"
	StatusCancelled     = "cancelled"
	StatusEmergencyStop = "emergency_stop"
)

// CycleReport is the full record of one cycle, persisted fire-and-forget.
type CycleReport struct {
	ID         string               `json:"id"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	Duration   time.Duration        `json:"duration_ns"`
	Status     string               `json:"status"`
	DryRun     bool                 `json:"dry_run"`
	Error      string               `json:"error,omitempty"`
	Emergency  string               `json:"emergency,omitempty"`
	Decisions  []decision.Decision  `json:"decisions,omitempty"`
	Admitted   []risk.AdmittedOrder `json:"admitted,omitempty"`
	Rejections []risk.Rejection     `json:"rejections,omitempty"`
	Liquidated []broker.Order       `json:"liquidated,omitempty"`
}

// ReportSink receives finished cycle reports. Sink errors never fail a cycle.
type ReportSink interface {
	SaveReport(ctx context.Context, report CycleReport) error
}

// Notifier pushes operator-facing alerts. Optional; failures are logged only.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}
