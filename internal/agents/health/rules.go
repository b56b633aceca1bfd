package health

import "eldercare-mcp/internal/core"

// rule is one layer of the vitals policy. Rules are evaluated in order and
// the first match decides.
type rule struct {
	name      string
	match     func(v core.Vitals) bool
	eventType core.EventType
	severity  core.Severity
}

var policy = []rule{
	{
		name: "blood_pressure",
		match: func(v core.Vitals) bool {
			return core.Above(v.SystolicBP, 180) || core.Above(v.DiastolicBP, 110)
		},
		eventType: core.TypeEmergencyVitals,
		severity:  core.SeverityCritical,
	},
	{
		name: "heart_rate",
		match: func(v core.Vitals) bool {
			return core.Below(v.HeartRate, 40) || core.Above(v.HeartRate, 150)
		},
		eventType: core.TypeEmergencyVitals,
		severity:  core.SeverityCritical,
	},
}

// Classify applies the vitals policy. Absent readings never match a rule.
func Classify(v core.Vitals) (core.EventType, core.Severity) {
	_, eventType, severity := classify(v)
	return eventType, severity
}

func classify(v core.Vitals) (string, core.EventType, core.Severity) {
	for _, r := range policy {
		if r.match(v) {
			return r.name, r.eventType, r.severity
		}
	}
	return "", core.TypeNormalLog, core.SeverityInfo
}
