package core

// Vitals is one snapshot of a patient's vital signs. Every reading is
// optional; a nil field means the device did not report it.
type Vitals struct {
	SystolicBP      *float64 `json:"bp_systolic,omitempty"`
	DiastolicBP     *float64 `json:"bp_diastolic,omitempty"`
	HeartRate       *float64 `json:"heart_rate,omitempty"`
	BloodGlucose    *float64 `json:"blood_glucose,omitempty"`
	SpO2            *float64 `json:"spo2,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
	RespiratoryRate *float64 `json:"respiratory_rate,omitempty"`
	Notes           string   `json:"notes,omitempty"`
}

// Float returns a pointer to v, for building Vitals literals.
func Float(v float64) *float64 { return &v }

// Above reports whether the reading is present, non-zero and greater than limit.
func Above(reading *float64, limit float64) bool {
	return reading != nil && *reading != 0 && *reading > limit
}

// Below reports whether the reading is present, non-zero and less than limit.
func Below(reading *float64, limit float64) bool {
	return reading != nil && *reading != 0 && *reading < limit
}

// Empty reports whether no numeric reading is present.
func (v Vitals) Empty() bool {
	for _, r := range []*float64{v.SystolicBP, v.DiastolicBP, v.HeartRate, v.BloodGlucose, v.SpO2, v.Temperature, v.RespiratoryRate} {
		if r != nil {
			return false
		}
	}
	return true
}

// VitalsFromMap reads a loosely typed reading, as found in a Generic payload.
// Unknown keys and non-numeric values are ignored.
func VitalsFromMap(m map[string]any) Vitals {
	num := func(key string) *float64 {
		switch n := m[key].(type) {
		case float64:
			return Float(n)
		case float32:
			return Float(float64(n))
		case int:
			return Float(float64(n))
		case int64:
			return Float(float64(n))
		}
		return nil
	}
	v := Vitals{
		SystolicBP:      num("bp_systolic"),
		DiastolicBP:     num("bp_diastolic"),
		HeartRate:       num("heart_rate"),
		BloodGlucose:    num("blood_glucose"),
		SpO2:            num("spo2"),
		Temperature:     num("temperature"),
		RespiratoryRate: num("respiratory_rate"),
	}
	if notes, ok := m["notes"].(string); ok {
		v.Notes = notes
	}
	return v
}

// Clone returns a copy of v that shares no pointers with it.
func (v Vitals) Clone() Vitals {
	cp := func(r *float64) *float64 {
		if r == nil {
			return nil
		}
		return Float(*r)
	}
	return Vitals{
		SystolicBP:      cp(v.SystolicBP),
		DiastolicBP:     cp(v.DiastolicBP),
		HeartRate:       cp(v.HeartRate),
		BloodGlucose:    cp(v.BloodGlucose),
		SpO2:            cp(v.SpO2),
		Temperature:     cp(v.Temperature),
		RespiratoryRate: cp(v.RespiratoryRate),
		Notes:           v.Notes,
	}
}
