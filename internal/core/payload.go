package core

import (
	"encoding/json"
	"fmt"
)

// Payload is the body of an event. Known shapes have their own type; any
// other body travels as Generic.
type Payload interface {
	Kind() string
}

const (
	KindVitals   = "vitals"
	KindDecision = "decision"
	KindGeneric  = "generic"
)

// VitalsPayload carries a classified vitals reading.
type VitalsPayload struct {
	Vitals    Vitals   `json:"vitals"`
	Severity  Severity `json:"severity,omitempty"`
	Reasoning string   `json:"ai_reasoning,omitempty"`
}

func (VitalsPayload) Kind() string { return KindVitals }

// Decision is the outcome of a care decision for one emergency.
type Decision struct {
	Severity          Severity `json:"severity"`
	EmergencyType     string   `json:"emergency_type"`
	AmbulanceRequired bool     `json:"ambulance_required"`
	AmbulanceUrgency  string   `json:"ambulance_urgency"`
	HospitalType      string   `json:"hospital_type"`
	ImmediateActions  []string `json:"immediate_actions,omitempty"`
	MedicalSummary    string   `json:"medical_summary"`
	Rationale         string   `json:"rationale,omitempty"`
	Vitals            Vitals   `json:"vitals"`
}

// DecisionPayload carries a Decision downstream.
type DecisionPayload struct {
	Decision Decision `json:"decision"`
}

func (DecisionPayload) Kind() string { return KindDecision }

// Generic is an untyped body for event types without a dedicated shape.
type Generic map[string]any

func (Generic) Kind() string { return KindGeneric }

// clonePayload copies the mutable parts of p so the event owns its body.
func clonePayload(p Payload) Payload {
	switch v := p.(type) {
	case Generic:
		if v == nil {
			return v
		}
		return Generic(cloneMap(v))
	case VitalsPayload:
		v.Vitals = v.Vitals.Clone()
		return v
	case DecisionPayload:
		v.Decision.ImmediateActions = append([]string(nil), v.Decision.ImmediateActions...)
		v.Decision.Vitals = v.Decision.Vitals.Clone()
		return v
	case *VitalsPayload:
		if v == nil {
			return nil
		}
		return clonePayload(*v)
	case *DecisionPayload:
		if v == nil {
			return nil
		}
		return clonePayload(*v)
	}
	return p
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return cloneMap(x)
	case Generic:
		return Generic(cloneMap(x))
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	}
	return v
}

// EncodePayload serializes p and returns its kind.
func EncodePayload(p Payload) (string, []byte, error) {
	if p == nil {
		return "", nil, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", nil, fmt.Errorf("encode %s payload: %w", p.Kind(), err)
	}
	return p.Kind(), data, nil
}

// DecodePayload is the inverse of EncodePayload. Unknown kinds decode as
// Generic so newer producers do not break older consumers.
func DecodePayload(kind string, data []byte) (Payload, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	switch kind {
	case KindVitals:
		var p VitalsPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode vitals payload: %w", err)
		}
		return p, nil
	case KindDecision:
		var p DecisionPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode decision payload: %w", err)
		}
		return p, nil
	default:
		var p Generic
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		return p, nil
	}
}
