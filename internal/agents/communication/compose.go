package communication

import (
	"fmt"
	"strings"

	"eldercare-mcp/internal/core"
)

const (
	RecipientFamily    = "Family/Guardian"
	RecipientHospital  = "Emergency Department"
	RecipientAmbulance = "Ambulance Dispatch"

	ChannelSMS   = "SMS/WhatsApp"
	ChannelPhone = "Phone/System"
	ChannelRadio = "Radio/Phone"
)

// Urgency levels of a notification.
const (
	UrgencyRoutine   = "ROUTINE"
	UrgencyUrgent    = "URGENT"
	UrgencyCritical  = "CRITICAL"
	UrgencyImmediate = "IMMEDIATE"
)

// Notification is one message to one party.
type Notification struct {
	Recipient string `json:"recipient"`
	Channel   string `json:"channel"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
	Urgency   string `json:"urgency_level"`
	PatientID string `json:"patient_id"`
}

// Compose builds the notifications for ev. Event types without a message
// template yield none.
func Compose(ev core.Event) []Notification {
	switch ev.Type {
	case core.TypeCareAlert:
		d, ok := decisionOf(ev.Payload)
		if !ok {
			return nil
		}
		return alert(ev.PatientID, d)
	case core.TypeNormalLog:
		return []Notification{statusNote(ev)}
	}
	return nil
}

func decisionOf(p core.Payload) (core.Decision, bool) {
	switch v := p.(type) {
	case core.DecisionPayload:
		return v.Decision, true
	case core.Generic:
		d := core.Decision{Severity: core.SeverityCritical, EmergencyType: "Unspecified Emergency"}
		if s, ok := v["severity"].(string); ok {
			d.Severity = core.Severity(s)
		}
		if s, ok := v["emergency_type"].(string); ok {
			d.EmergencyType = s
		}
		d.AmbulanceRequired, _ = v["ambulance_required"].(bool)
		d.AmbulanceUrgency, _ = v["ambulance_urgency"].(string)
		d.HospitalType, _ = v["hospital_type"].(string)
		d.MedicalSummary, _ = v["medical_summary"].(string)
		return d, true
	}
	return core.Decision{}, false
}

func urgencyFor(s core.Severity) string {
	switch s {
	case core.SeverityCritical:
		return UrgencyCritical
	case core.SeverityWarning:
		return UrgencyUrgent
	}
	return UrgencyRoutine
}

func alert(patientID string, d core.Decision) []Notification {
	urgency := urgencyFor(d.Severity)
	hospital := d.HospitalType
	if hospital == "" {
		hospital = "the nearest hospital"
	}

	var family strings.Builder
	fmt.Fprintf(&family, "Alert for patient %s: %s detected (%s).", patientID, d.EmergencyType, strings.ToLower(string(d.Severity)))
	if d.AmbulanceRequired {
		fmt.Fprintf(&family, " An ambulance has been requested and will take them to %s.", hospital)
	}
	if len(d.ImmediateActions) > 0 {
		fmt.Fprintf(&family, " If you are with them: %s.", strings.Join(d.ImmediateActions, "; "))
	}

	out := []Notification{
		{
			Recipient: RecipientFamily,
			Channel:   ChannelSMS,
			Subject:   fmt.Sprintf("Emergency: %s", d.EmergencyType),
			Message:   family.String(),
			Urgency:   urgency,
			PatientID: patientID,
		},
		{
			Recipient: RecipientHospital,
			Channel:   ChannelPhone,
			Subject:   fmt.Sprintf("Incoming patient %s: %s", patientID, d.EmergencyType),
			Message:   fmt.Sprintf("Severity %s. Requested facility: %s. %s", d.Severity, hospital, d.MedicalSummary),
			Urgency:   urgency,
			PatientID: patientID,
		},
	}
	if d.AmbulanceRequired {
		out = append(out, Notification{
			Recipient: RecipientAmbulance,
			Channel:   ChannelRadio,
			Subject:   fmt.Sprintf("Dispatch %s: %s", d.AmbulanceUrgency, d.EmergencyType),
			Message:   fmt.Sprintf("Patient %s at [registered address]. %s Transport to %s.", patientID, d.MedicalSummary, hospital),
			Urgency:   UrgencyImmediate,
			PatientID: patientID,
		})
	}
	return out
}

func statusNote(ev core.Event) Notification {
	msg := fmt.Sprintf("Routine check for patient %s: vitals within expected range.", ev.PatientID)
	if p, ok := ev.Payload.(core.VitalsPayload); ok && p.Reasoning != "" {
		msg += " " + p.Reasoning
	}
	return Notification{
		Recipient: RecipientFamily,
		Channel:   ChannelSMS,
		Subject:   "Daily vitals update",
		Message:   msg,
		Urgency:   UrgencyRoutine,
		PatientID: ev.PatientID,
	}
}
