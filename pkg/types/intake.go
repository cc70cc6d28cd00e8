// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Sex is the biological sex used by the metabolic formulas.
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// GoalType identifies the direction of the calorie target.
type GoalType string

const (
	GoalCut      GoalType = "cut"
	GoalMaintain GoalType = "maintain"
	GoalBulk     GoalType = "bulk"
)

// ActivityLevel maps to a TDEE multiplier.
type ActivityLevel string

const (
	ActivitySedentary ActivityLevel = "sedentary"
	ActivityLight     ActivityLevel = "lightly_active"
	ActivityModerate  ActivityLevel = "moderately_active"
	ActivityVery      ActivityLevel = "very_active"
	ActivityExtreme   ActivityLevel = "extremely_active"
)

// DietaryStyle restricts which meals the curator may select.
type DietaryStyle string

const (
	DietOmnivore    DietaryStyle = "omnivore"
	DietVegetarian  DietaryStyle = "vegetarian"
	DietVegan       DietaryStyle = "vegan"
	DietPescatarian DietaryStyle = "pescatarian"
)

// MacroStyle adjusts the macro split relative to the balanced default.
type MacroStyle string

const (
	MacroBalanced    MacroStyle = "balanced"
	MacroHighProtein MacroStyle = "high_protein"
	MacroLowCarb     MacroStyle = "low_carb"
)

// CookingSkill caps recipe complexity in the curator.
type CookingSkill string

const (
	SkillBeginner     CookingSkill = "beginner"
	SkillIntermediate CookingSkill = "intermediate"
	SkillAdvanced     CookingSkill = "advanced"
)

// UnitSystem selects how height/weight fields of a raw submission are read.
type UnitSystem string

const (
	UnitsMetric   UnitSystem = "metric"
	UnitsImperial UnitSystem = "imperial"
)

// RawIntakeForm is a client submission exactly as received. It is immutable
// once a job referencing it has been created; all cleanup happens in the
// normalizer, never in place.
type RawIntakeForm struct {
	Sex   string `json:"sex" yaml:"sex"`
	Age   int    `json:"age" yaml:"age"`
	Units string `json:"units,omitempty" yaml:"units,omitempty"`

	// Metric fields, read when Units is "metric" (the default).
	HeightCm float64 `json:"heightCm,omitempty" yaml:"height_cm,omitempty"`
	WeightKg float64 `json:"weightKg,omitempty" yaml:"weight_kg,omitempty"`

	// Imperial fields, read when Units is "imperial".
	HeightIn float64 `json:"heightIn,omitempty" yaml:"height_in,omitempty"`
	WeightLb float64 `json:"weightLb,omitempty" yaml:"weight_lb,omitempty"`

	BodyFatPercent *float64 `json:"bodyFatPercent,omitempty" yaml:"body_fat_percent,omitempty"`

	GoalType string  `json:"goalType" yaml:"goal_type"`
	GoalRate float64 `json:"goalRate" yaml:"goal_rate"`

	ActivityLevel string   `json:"activityLevel" yaml:"activity_level"`
	TrainingDays  []string `json:"trainingDays,omitempty" yaml:"training_days,omitempty"`
	TrainingTime  string   `json:"trainingTime,omitempty" yaml:"training_time,omitempty"`

	DietaryStyle       string   `json:"dietaryStyle,omitempty" yaml:"dietary_style,omitempty"`
	Allergies          []string `json:"allergies,omitempty" yaml:"allergies,omitempty"`
	Exclusions         []string `json:"exclusions,omitempty" yaml:"exclusions,omitempty"`
	CuisinePreferences []string `json:"cuisinePreferences,omitempty" yaml:"cuisine_preferences,omitempty"`

	MealsPerDay  int `json:"mealsPerDay" yaml:"meals_per_day"`
	SnacksPerDay int `json:"snacksPerDay" yaml:"snacks_per_day"`

	CookingSkill   string `json:"cookingSkill,omitempty" yaml:"cooking_skill,omitempty"`
	MaxPrepMinutes int    `json:"maxPrepMinutes,omitempty" yaml:"max_prep_minutes,omitempty"`

	MacroStyle string `json:"macroStyle,omitempty" yaml:"macro_style,omitempty"`
	PlanDays   int    `json:"planDays,omitempty" yaml:"plan_days,omitempty"`
}

// Intake is the canonical, validated form of a submission: metric units,
// typed enums, lowercased preference lists, resolved weekdays.
type Intake struct {
	Sex            Sex      `json:"sex" yaml:"sex"`
	Age            int      `json:"age" yaml:"age"`
	HeightCm       float64  `json:"heightCm" yaml:"height_cm"`
	WeightKg       float64  `json:"weightKg" yaml:"weight_kg"`
	BodyFatPercent *float64 `json:"bodyFatPercent,omitempty" yaml:"body_fat_percent,omitempty"`

	GoalType GoalType `json:"goalType" yaml:"goal_type"`
	GoalRate float64  `json:"goalRate" yaml:"goal_rate"`

	ActivityLevel ActivityLevel  `json:"activityLevel" yaml:"activity_level"`
	TrainingDays  []time.Weekday `json:"trainingDays,omitempty" yaml:"training_days,omitempty"`
	TrainingTime  string         `json:"trainingTime,omitempty" yaml:"training_time,omitempty"`

	DietaryStyle       DietaryStyle `json:"dietaryStyle" yaml:"dietary_style"`
	Allergies          []string     `json:"allergies,omitempty" yaml:"allergies,omitempty"`
	Exclusions         []string     `json:"exclusions,omitempty" yaml:"exclusions,omitempty"`
	CuisinePreferences []string     `json:"cuisinePreferences,omitempty" yaml:"cuisine_preferences,omitempty"`

	MealsPerDay  int `json:"mealsPerDay" yaml:"meals_per_day"`
	SnacksPerDay int `json:"snacksPerDay" yaml:"snacks_per_day"`

	CookingSkill   CookingSkill `json:"cookingSkill" yaml:"cooking_skill"`
	MaxPrepMinutes int          `json:"maxPrepMinutes" yaml:"max_prep_minutes"`

	MacroStyle MacroStyle `json:"macroStyle" yaml:"macro_style"`
	PlanDays   int        `json:"planDays" yaml:"plan_days"`
}

// IsTrainingDay reports whether day is one of the intake's training days.
func (i Intake) IsTrainingDay(day time.Weekday) bool {
	for _, d := range i.TrainingDays {
		if d == day {
			return true
		}
	}
	return false
}
