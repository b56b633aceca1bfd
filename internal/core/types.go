package core

// EventType tags an event. The set is open; these are the types the bundled
// agents understand.
type EventType = string

const (
	TypeVitalsReading     EventType = "VITALS_READING"
	TypeEmergencyVitals   EventType = "EMERGENCY_VITALS"
	TypeNormalLog         EventType = "NORMAL_LOG"
	TypeEmergencyDispatch EventType = "EMERGENCY_DISPATCH"
	TypeCareAlert         EventType = "CARE_ALERT"
)

// Severity grades a patient state.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Well-known agent names used when wiring the default chain.
const (
	AgentHealthMonitoring = "health_monitoring_agent"
	AgentCareDecision     = "care_decision_agent"
	AgentCommunication    = "communication_agent"
	AgentEmergencyCoord   = "emergency_coord_agent"
)
