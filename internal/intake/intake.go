// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package intake validates and normalizes raw client submissions into
// canonical intake records.
package intake

import (
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/plan-engine/pkg/types"
)

const (
	inchToCm = 2.54
	lbToKg   = 0.45359237
)

const defaultPlanDays = 7

var validSexes = map[types.Sex]bool{
	types.SexMale:   true,
	types.SexFemale: true,
}

var validGoals = map[types.GoalType]bool{
	types.GoalCut:      true,
	types.GoalMaintain: true,
	types.GoalBulk:     true,
}

var validActivity = map[types.ActivityLevel]bool{
	types.ActivitySedentary: true,
	types.ActivityLight:     true,
	types.ActivityModerate:  true,
	types.ActivityVery:      true,
	types.ActivityExtreme:   true,
}

var validDiets = map[types.DietaryStyle]bool{
	types.DietOmnivore:    true,
	types.DietVegetarian:  true,
	types.DietVegan:       true,
	types.DietPescatarian: true,
}

var validMacroStyles = map[types.MacroStyle]bool{
	types.MacroBalanced:    true,
	types.MacroHighProtein: true,
	types.MacroLowCarb:     true,
}

var validSkills = map[types.CookingSkill]bool{
	types.SkillBeginner:     true,
	types.SkillIntermediate: true,
	types.SkillAdvanced:     true,
}

// weekdays maps accepted day spellings to canonical weekdays.
var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// Normalize validates a raw submission and produces the canonical intake:
// metric units, typed enums, lowercased preference lists, resolved weekdays.
// All violations are accumulated; any violation makes the submission invalid.
func Normalize(raw types.RawIntakeForm) (types.Intake, error) {
	var violations []string
	invalid := func(format string, args ...any) {
		violations = append(violations, fmt.Sprintf(format, args...))
	}

	sex := types.Sex(lower(raw.Sex))
	if !validSexes[sex] {
		invalid("sex %q is not one of male, female", raw.Sex)
	}

	if raw.Age < 14 || raw.Age > 100 {
		invalid("age %d out of range 14-100", raw.Age)
	}

	heightCm, weightKg := raw.HeightCm, raw.WeightKg
	units := types.UnitSystem(lower(raw.Units))
	switch units {
	case types.UnitsImperial:
		heightCm = raw.HeightIn * inchToCm
		weightKg = raw.WeightLb * lbToKg
	case "", types.UnitsMetric:
	default:
		invalid("units %q is not one of metric, imperial", raw.Units)
	}
	if heightCm < 120 || heightCm > 230 {
		invalid("height %.1f cm out of range 120-230", heightCm)
	}
	if weightKg < 30 || weightKg > 300 {
		invalid("weight %.1f kg out of range 30-300", weightKg)
	}

	var bodyFat *float64
	if raw.BodyFatPercent != nil {
		bf := *raw.BodyFatPercent
		if bf < 3 || bf > 60 {
			invalid("body fat %.1f%% out of range 3-60", bf)
		} else {
			bodyFat = &bf
		}
	}

	goal := types.GoalType(lower(raw.GoalType))
	if !validGoals[goal] {
		invalid("goal type %q is not one of cut, maintain, bulk", raw.GoalType)
	}
	if raw.GoalRate < 0 || raw.GoalRate > 2.0 {
		invalid("goal rate %.2f out of range 0-2.0", raw.GoalRate)
	}

	activity := types.ActivityLevel(lower(raw.ActivityLevel))
	if !validActivity[activity] {
		invalid("activity level %q not recognized", raw.ActivityLevel)
	}

	var trainingDays []time.Weekday
	seen := make(map[time.Weekday]bool)
	for _, d := range raw.TrainingDays {
		day, ok := weekdays[lower(d)]
		if !ok {
			invalid("training day %q not recognized", d)
			continue
		}
		if !seen[day] {
			seen[day] = true
			trainingDays = append(trainingDays, day)
		}
	}

	diet := types.DietaryStyle(lower(raw.DietaryStyle))
	if diet == "" {
		diet = types.DietOmnivore
	}
	if !validDiets[diet] {
		invalid("dietary style %q not recognized", raw.DietaryStyle)
	}

	if raw.MealsPerDay < 1 || raw.MealsPerDay > 6 {
		invalid("meals per day %d out of range 1-6", raw.MealsPerDay)
	}
	if raw.SnacksPerDay < 0 || raw.SnacksPerDay > 3 {
		invalid("snacks per day %d out of range 0-3", raw.SnacksPerDay)
	}

	skill := types.CookingSkill(lower(raw.CookingSkill))
	if skill == "" {
		skill = types.SkillIntermediate
	}
	if !validSkills[skill] {
		invalid("cooking skill %q not recognized", raw.CookingSkill)
	}

	macroStyle := types.MacroStyle(lower(raw.MacroStyle))
	if macroStyle == "" {
		macroStyle = types.MacroBalanced
	}
	if !validMacroStyles[macroStyle] {
		invalid("macro style %q not recognized", raw.MacroStyle)
	}

	planDays := raw.PlanDays
	if planDays == 0 {
		planDays = defaultPlanDays
	}
	if planDays < 1 || planDays > 14 {
		invalid("plan duration %d days out of range 1-14", raw.PlanDays)
	}

	maxPrep := raw.MaxPrepMinutes
	if maxPrep < 0 {
		invalid("max prep time %d minutes is negative", raw.MaxPrepMinutes)
	}

	if len(violations) > 0 {
		return types.Intake{}, fmt.Errorf("invalid intake: %s", strings.Join(violations, "; "))
	}

	return types.Intake{
		Sex:                sex,
		Age:                raw.Age,
		HeightCm:           heightCm,
		WeightKg:           weightKg,
		BodyFatPercent:     bodyFat,
		GoalType:           goal,
		GoalRate:           raw.GoalRate,
		ActivityLevel:      activity,
		TrainingDays:       trainingDays,
		TrainingTime:       lower(raw.TrainingTime),
		DietaryStyle:       diet,
		Allergies:          lowerList(raw.Allergies),
		Exclusions:         lowerList(raw.Exclusions),
		CuisinePreferences: lowerList(raw.CuisinePreferences),
		MealsPerDay:        raw.MealsPerDay,
		SnacksPerDay:       raw.SnacksPerDay,
		CookingSkill:       skill,
		MaxPrepMinutes:     maxPrep,
		MacroStyle:         macroStyle,
		PlanDays:           planDays,
	}, nil
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// lowerList lowercases and trims every entry, dropping empties.
func lowerList(in []string) []string {
	var out []string
	for _, s := range in {
		if v := lower(s); v != "" {
			out = append(out, v)
		}
	}
	return out
}
