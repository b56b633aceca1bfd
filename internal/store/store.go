// Package store persists event records and the patients they refer to.
package store

import (
	"context"
	"errors"
	"time"

	"eldercare-mcp/internal/core"
)

var (
	// ErrPersistence wraps every backend failure.
	ErrPersistence = errors.New("persistence failure")
	// ErrNoPatients is returned by SamplePatientID on an empty store.
	ErrNoPatients = errors.New("no patients")
)

// Patient is a monitored person.
type Patient struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the durable side of the broker: an append-only events relation
// and a patients relation.
type Store interface {
	AppendEvent(ctx context.Context, ev core.Event) error
	SamplePatientID(ctx context.Context) (string, error)
	AddPatient(ctx context.Context, p Patient) error
	// ListEvents returns the newest events for a patient, newest first. An
	// empty patientID lists events for all patients.
	ListEvents(ctx context.Context, patientID string, limit int) ([]core.Event, error)
	Close() error
}
