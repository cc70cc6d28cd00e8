// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// QAStatus is the validator's verdict. FAIL never blocks delivery; it is
// surfaced to the caller alongside the plan.
type QAStatus string

const (
	QAPass QAStatus = "PASS"
	QAFail QAStatus = "FAIL"
)

// DayVariance records how far one compiled day landed from its calorie target.
type DayVariance struct {
	DayNumber   int     `json:"dayNumber" yaml:"day_number"`
	TargetKcal  float64 `json:"targetKcal" yaml:"target_kcal"`
	ActualKcal  float64 `json:"actualKcal" yaml:"actual_kcal"`
	VariancePct float64 `json:"variancePct" yaml:"variance_pct"`
}

// QAResult scores a compiled plan against its metabolic targets.
type QAResult struct {
	Score     float64       `json:"score" yaml:"score"`
	Status    QAStatus      `json:"status" yaml:"status"`
	Threshold float64       `json:"threshold" yaml:"threshold"`
	Days      []DayVariance `json:"days" yaml:"days"`
}
