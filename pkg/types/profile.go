// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// SlotTarget is the calorie and macro budget for one meal slot of a day.
type SlotTarget struct {
	Slot   MealSlot `json:"slot" yaml:"slot"`
	Kcal   float64  `json:"kcal" yaml:"kcal"`
	Macros Macros   `json:"macros" yaml:"macros"`
}

// MetabolicProfile holds the derived energy and macro targets for an intake.
// It is a pure function of the intake and carries no independent identity.
type MetabolicProfile struct {
	BMR      float64 `json:"bmr" yaml:"bmr"`
	TDEE     float64 `json:"tdee" yaml:"tdee"`
	GoalKcal float64 `json:"goalKcal" yaml:"goal_kcal"`

	// FloorClamped is set when a cut goal would have breached the
	// sex-specific caloric floor and was clamped to it.
	FloorClamped bool `json:"floorClamped,omitempty" yaml:"floor_clamped,omitempty"`

	// TrainingBonusKcal is added to GoalKcal on designated training days only.
	TrainingBonusKcal float64 `json:"trainingBonusKcal" yaml:"training_bonus_kcal"`

	ProteinG float64 `json:"proteinG" yaml:"protein_g"`
	CarbsG   float64 `json:"carbsG" yaml:"carbs_g"`
	FatG     float64 `json:"fatG" yaml:"fat_g"`
	FiberG   float64 `json:"fiberG" yaml:"fiber_g"`

	// MealTargets has exactly mealsPerDay+snacksPerDay entries, in day order.
	MealTargets []SlotTarget `json:"mealTargets" yaml:"meal_targets"`
}

// DayTargetKcal returns the calorie target for a day, including the training
// bonus when training is true.
func (p MetabolicProfile) DayTargetKcal(training bool) float64 {
	if training {
		return p.GoalKcal + p.TrainingBonusKcal
	}
	return p.GoalKcal
}
