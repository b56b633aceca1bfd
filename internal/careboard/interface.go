// Package careboard keeps the latest care status of every patient so that
// agents and dashboards can read it without replaying events.
package careboard

import (
	"context"
	"time"

	"eldercare-mcp/internal/core"
)

// Status is the most recent care decision taken for a patient.
type Status struct {
	PatientID         string        `json:"patient_id"`
	Severity          core.Severity `json:"severity"`
	EmergencyType     string        `json:"emergency_type"`
	AmbulanceRequired bool          `json:"ambulance_required"`
	EventID           string        `json:"event_id"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// Update is emitted whenever a status is recorded.
type Update struct {
	Version int64  `json:"version"`
	Status  Status `json:"status"`
}

// Board stores one versioned Status per patient.
type Board interface {
	Record(ctx context.Context, st Status) (int64, error)
	Latest(ctx context.Context, patientID string) (Status, int64, error)
	Watch(ctx context.Context, pattern string) (<-chan Update, error)
	Close() error
}
