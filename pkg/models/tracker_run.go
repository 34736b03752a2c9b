package models

import (
	"time"

	"github.com/google/uuid"
)

// TrackerRunStatus represents the status of a tracker run
type TrackerRunStatus string

const (
	TrackerRunStatusRunning TrackerRunStatus = "running"
	TrackerRunStatusStopped TrackerRunStatus = "stopped"
	TrackerRunStatusFailed  TrackerRunStatus = "failed"
)

// TrackerRun is the audit record of one poller run against one event. The
// in-memory tracker remains the authority for the single-flight check; these
// rows exist for operational visibility across restarts.
type TrackerRun struct {
	ID           uuid.UUID        `db:"id" json:"id"`
	EventID      uuid.UUID        `db:"event_id" json:"event_id"`
	SourceFamily string           `db:"source_family" json:"source_family"`
	SourceURL    string           `db:"source_url" json:"source_url"`
	Status       TrackerRunStatus `db:"status" json:"status"`
	StartedAt    time.Time        `db:"started_at" json:"started_at"`
	StoppedAt    *time.Time       `db:"stopped_at" json:"stopped_at,omitempty"`
	PollCount    int              `db:"poll_count" json:"poll_count"`
	LastError    *string          `db:"last_error" json:"last_error,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// TableName returns the database table name
func (TrackerRun) TableName() string {
	return "tracker_runs"
}
