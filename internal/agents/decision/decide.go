package decision

import (
	"fmt"
	"strings"

	"eldercare-mcp/internal/core"
)

const (
	UrgencyImmediate   = "IMMEDIATE"
	UrgencyWithin30Min = "WITHIN_30_MIN"
	UrgencyNone        = "NOT_REQUIRED"

	HospitalCardiac   = "Cardiac Center"
	HospitalEmergency = "Nearest Emergency Room"
	HospitalGeneral   = "General Hospital"
)

type finding struct {
	emergencyType string
	cardiac       bool
	actions       []string
	match         func(v core.Vitals) bool
}

// findings are checked in order; the first match names the emergency.
var findings = []finding{
	{
		emergencyType: "Hypertensive Crisis",
		cardiac:       true,
		actions:       []string{"Keep the patient seated and calm", "Do not give additional blood pressure medication unless prescribed"},
		match: func(v core.Vitals) bool {
			return core.Above(v.SystolicBP, 180) || core.Above(v.DiastolicBP, 110)
		},
	},
	{
		emergencyType: "Tachyarrhythmia",
		cardiac:       true,
		actions:       []string{"Keep the patient at rest", "Loosen tight clothing"},
		match:         func(v core.Vitals) bool { return core.Above(v.HeartRate, 150) },
	},
	{
		emergencyType: "Bradycardia",
		cardiac:       true,
		actions:       []string{"Lay the patient down with legs raised", "Be ready to start CPR if the patient becomes unresponsive"},
		match:         func(v core.Vitals) bool { return core.Below(v.HeartRate, 40) },
	},
	{
		emergencyType: "Hypoxia",
		actions:       []string{"Sit the patient upright", "Give supplemental oxygen if available"},
		match:         func(v core.Vitals) bool { return core.Below(v.SpO2, 90) },
	},
	{
		emergencyType: "Hypothermia",
		actions:       []string{"Move the patient to a warm place", "Cover with blankets"},
		match:         func(v core.Vitals) bool { return core.Below(v.Temperature, 35) },
	},
	{
		emergencyType: "High Fever",
		actions:       []string{"Apply cool compresses", "Offer fluids if the patient is alert"},
		match:         func(v core.Vitals) bool { return core.Above(v.Temperature, 39) },
	},
	{
		emergencyType: "Hypoglycemia",
		actions:       []string{"Give fast-acting sugar if the patient can swallow"},
		match:         func(v core.Vitals) bool { return core.Below(v.BloodGlucose, 50) },
	},
	{
		emergencyType: "Hyperglycemia",
		actions:       []string{"Offer water", "Check for confusion or drowsiness"},
		match:         func(v core.Vitals) bool { return core.Above(v.BloodGlucose, 300) },
	},
	{
		emergencyType: "Respiratory Distress",
		actions:       []string{"Sit the patient upright", "Keep airways clear"},
		match: func(v core.Vitals) bool {
			return core.Below(v.RespiratoryRate, 8) || core.Above(v.RespiratoryRate, 30)
		},
	},
}

const unspecified = "Unspecified Emergency"

// Decide turns a classified reading into a care decision. It is a pure
// function of its input.
func Decide(p core.VitalsPayload) core.Decision {
	severity := p.Severity
	if severity == "" {
		severity = core.SeverityCritical
	}
	d := core.Decision{
		Severity:      severity,
		EmergencyType: unspecified,
		HospitalType:  HospitalGeneral,
		Vitals:        p.Vitals.Clone(),
	}

	var f *finding
	for i := range findings {
		if findings[i].match(p.Vitals) {
			f = &findings[i]
			break
		}
	}
	if f != nil {
		d.EmergencyType = f.emergencyType
		d.ImmediateActions = append(d.ImmediateActions, f.actions...)
	}
	d.ImmediateActions = append(d.ImmediateActions, "Stay with the patient until help arrives")

	switch severity {
	case core.SeverityCritical:
		d.AmbulanceRequired = true
		d.AmbulanceUrgency = UrgencyImmediate
		d.HospitalType = HospitalEmergency
		if f != nil && f.cardiac {
			d.HospitalType = HospitalCardiac
		}
		d.ImmediateActions = append([]string{"Call emergency services now"}, d.ImmediateActions...)
	case core.SeverityWarning:
		d.AmbulanceRequired = true
		d.AmbulanceUrgency = UrgencyWithin30Min
	default:
		d.AmbulanceUrgency = UrgencyNone
	}

	d.MedicalSummary = summary(d, p.Vitals)
	d.Rationale = rationale(d, p.Reasoning, f != nil)
	return d
}

func summary(d core.Decision, v core.Vitals) string {
	var parts []string
	add := func(label string, r *float64, unit string) {
		if r != nil {
			parts = append(parts, fmt.Sprintf("%s %g%s", label, *r, unit))
		}
	}
	if v.SystolicBP != nil && v.DiastolicBP != nil {
		parts = append(parts, fmt.Sprintf("BP %g/%g mmHg", *v.SystolicBP, *v.DiastolicBP))
	} else {
		add("systolic BP", v.SystolicBP, " mmHg")
		add("diastolic BP", v.DiastolicBP, " mmHg")
	}
	add("HR", v.HeartRate, " bpm")
	add("SpO2", v.SpO2, "%")
	add("temp", v.Temperature, " C")
	add("glucose", v.BloodGlucose, " mg/dL")
	add("RR", v.RespiratoryRate, "/min")

	s := fmt.Sprintf("Elderly patient, suspected %s (%s).", d.EmergencyType, strings.ToLower(string(d.Severity)))
	if len(parts) > 0 {
		s += " Vitals: " + strings.Join(parts, ", ") + "."
	}
	if v.Notes != "" {
		s += " Notes: " + v.Notes + "."
	}
	return s
}

func rationale(d core.Decision, reasoning string, matched bool) string {
	r := fmt.Sprintf("Severity %s from vitals policy", d.Severity)
	if matched {
		r += "; findings consistent with " + d.EmergencyType
	}
	if reasoning != "" {
		r += ". Monitoring note: " + reasoning
	}
	return r
}
