package core

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is one occurrence routed from a source agent to a single target
// agent. It is created once per publish and treated as immutable afterwards:
// NewEvent takes its own copy of the payload and the broker hands every
// collaborator a Clone.
type Event struct {
	ID        string    `json:"id"`
	ChainID   string    `json:"chain_id"`
	Source    string    `json:"source_agent"`
	Target    string    `json:"target_agent"`
	Type      EventType `json:"event_type"`
	PatientID string    `json:"patient_id"`
	Payload   Payload   `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent builds an event with a fresh id and a UTC timestamp. An empty
// chainID starts a new chain rooted at this event.
func NewEvent(chainID, source, target string, eventType EventType, patientID string, payload Payload) Event {
	id := NewID()
	if chainID == "" {
		chainID = id
	}
	return Event{
		ID:        id,
		ChainID:   chainID,
		Source:    source,
		Target:    target,
		Type:      eventType,
		PatientID: patientID,
		Payload:   clonePayload(payload),
		Timestamp: time.Now().UTC(),
	}
}

// Clone returns a copy of e that shares no mutable payload state with it.
func (e Event) Clone() Event {
	e.Payload = clonePayload(e.Payload)
	return e
}

// NewID generates a unique event identifier.
func NewID() string { return uuid.NewString() }

type wireEvent struct {
	ID          string          `json:"id"`
	ChainID     string          `json:"chain_id"`
	Source      string          `json:"source_agent"`
	Target      string          `json:"target_agent"`
	Type        string          `json:"event_type"`
	PatientID   string          `json:"patient_id"`
	PayloadKind string          `json:"payload_kind,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

// MarshalJSON writes the canonical record with a payload_kind discriminator.
func (e Event) MarshalJSON() ([]byte, error) {
	kind, data, err := EncodePayload(e.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireEvent{
		ID:          e.ID,
		ChainID:     e.ChainID,
		Source:      e.Source,
		Target:      e.Target,
		Type:        e.Type,
		PatientID:   e.PatientID,
		PayloadKind: kind,
		Payload:     data,
		Timestamp:   e.Timestamp,
	})
}

// UnmarshalJSON reads the form written by MarshalJSON.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	payload, err := DecodePayload(w.PayloadKind, w.Payload)
	if err != nil {
		return err
	}
	*e = Event{
		ID:        w.ID,
		ChainID:   w.ChainID,
		Source:    w.Source,
		Target:    w.Target,
		Type:      w.Type,
		PatientID: w.PatientID,
		Payload:   payload,
		Timestamp: w.Timestamp,
	}
	return nil
}
