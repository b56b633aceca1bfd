package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"eldercare-mcp/internal/core"
)

// MemoryStore keeps everything in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	patients []Patient
	events   []core.Event
	failWith error
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

// FailWith makes every later write fail with err; nil restores normal
// operation. Used to exercise degraded persistence.
func (s *MemoryStore) FailWith(err error) {
	s.mu.Lock()
	s.failWith = err
	s.mu.Unlock()
}

func (s *MemoryStore) AppendEvent(ctx context.Context, ev core.Event) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: append event: %v", ErrPersistence, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return fmt.Errorf("%w: append event: %v", ErrPersistence, s.failWith)
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *MemoryStore) SamplePatientID(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.patients) == 0 {
		return "", ErrNoPatients
	}
	oldest := s.patients[0]
	for _, p := range s.patients[1:] {
		if p.CreatedAt.Before(oldest.CreatedAt) {
			oldest = p
		}
	}
	return oldest.ID, nil
}

func (s *MemoryStore) AddPatient(ctx context.Context, p Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return fmt.Errorf("%w: add patient: %v", ErrPersistence, s.failWith)
	}
	for i := range s.patients {
		if s.patients[i].ID == p.ID {
			// Re-adding renames but keeps the original registration time.
			s.patients[i].Name = p.Name
			return nil
		}
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	s.patients = append(s.patients, p)
	return nil
}

func (s *MemoryStore) ListEvents(ctx context.Context, patientID string, limit int) ([]core.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Event
	for i := len(s.events) - 1; i >= 0; i-- {
		ev := s.events[i]
		if patientID != "" && ev.PatientID != patientID {
			continue
		}
		out = append(out, ev)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Events returns every stored event in append order.
func (s *MemoryStore) Events() []core.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Event(nil), s.events...)
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
