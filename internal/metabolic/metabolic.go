// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metabolic computes energy and macro targets from a canonical
// intake. Pure math, no I/O.
package metabolic

import (
	"math"

	"github.com/pdiddy/plan-engine/pkg/types"
)

// Caloric floors. Cut goals that would land below the floor are clamped to
// it and flagged on the profile.
const (
	floorMaleKcal   = 1500
	floorFemaleKcal = 1200
)

// kcalPerRateUnit converts the goal rate (lb/week convention) into a daily
// deficit or surplus.
const kcalPerRateUnit = 500

// defaultTrainingBonusKcal is added to the day target on training days.
const defaultTrainingBonusKcal = 250

// Protein targets in g/kg body weight by goal.
var proteinPerKg = map[types.GoalType]float64{
	types.GoalCut:      2.0,
	types.GoalMaintain: 1.8,
	types.GoalBulk:     1.7,
}

// highProteinBonusPerKg is added on top of the goal target for the
// high_protein macro style.
const highProteinBonusPerKg = 0.2

// Fat share of daily calories by macro style.
const (
	fatShareDefault = 0.25
	fatShareLowCarb = 0.35
)

// Fiber floors in grams.
const (
	fiberMaleG   = 38
	fiberFemaleG = 25
)

var activityMultipliers = map[types.ActivityLevel]float64{
	types.ActivitySedentary: 1.2,
	types.ActivityLight:     1.375,
	types.ActivityModerate:  1.55,
	types.ActivityVery:      1.725,
	types.ActivityExtreme:   1.9,
}

// Raw slot weights. A day's slots get these weights and the per-slot share
// is weight/sum, so any meal/snack count splits to exactly the day total.
const (
	weightBreakfast = 2.7
	weightLunch     = 3.3
	weightDinner    = 4.0
	weightExtraMeal = 3.0
	weightSnack     = 1.2
)

// Calculate derives the metabolic profile for an intake. BMR uses
// Katch-McArdle when body fat is known, else Mifflin-St Jeor; TDEE applies
// the activity multiplier; the goal adjustment is rate-scaled and clamped to
// the sex-specific floor.
func Calculate(in types.Intake) types.MetabolicProfile {
	bmr := basalRate(in)
	tdee := bmr * activityMultipliers[in.ActivityLevel]

	goalKcal := tdee
	switch in.GoalType {
	case types.GoalCut:
		goalKcal = tdee - in.GoalRate*kcalPerRateUnit
	case types.GoalBulk:
		goalKcal = tdee + in.GoalRate*kcalPerRateUnit
	}

	floor := float64(floorFemaleKcal)
	if in.Sex == types.SexMale {
		floor = floorMaleKcal
	}
	clamped := false
	if goalKcal < floor {
		goalKcal = floor
		clamped = true
	}

	gPerKg := proteinPerKg[in.GoalType]
	if in.MacroStyle == types.MacroHighProtein {
		gPerKg += highProteinBonusPerKg
	}
	proteinG := gPerKg * in.WeightKg

	fatShare := fatShareDefault
	if in.MacroStyle == types.MacroLowCarb {
		fatShare = fatShareLowCarb
	}
	fatG := goalKcal * fatShare / 9

	carbKcal := goalKcal - proteinG*4 - fatG*9
	carbsG := math.Max(carbKcal/4, 0)

	fiberG := float64(fiberFemaleG)
	if in.Sex == types.SexMale {
		fiberG = fiberMaleG
	}

	profile := types.MetabolicProfile{
		BMR:               round1(bmr),
		TDEE:              round1(tdee),
		GoalKcal:          round1(goalKcal),
		FloorClamped:      clamped,
		TrainingBonusKcal: defaultTrainingBonusKcal,
		ProteinG:          round1(proteinG),
		CarbsG:            round1(carbsG),
		FatG:              round1(fatG),
		FiberG:            fiberG,
	}
	profile.MealTargets = slotTargets(in, profile)
	return profile
}

// basalRate is Katch-McArdle (370 + 21.6 x lean mass) when body fat is
// supplied, else Mifflin-St Jeor with the sex-specific intercept.
func basalRate(in types.Intake) float64 {
	if in.BodyFatPercent != nil {
		leanMassKg := in.WeightKg * (1 - *in.BodyFatPercent/100)
		return 370 + 21.6*leanMassKg
	}
	base := 10*in.WeightKg + 6.25*in.HeightCm - 5*float64(in.Age)
	if in.Sex == types.SexMale {
		return base + 5
	}
	return base - 161
}

// slotTargets splits the rest-day total across the requested meal and snack
// slots by fixed proportional weights. len(result) is always
// MealsPerDay+SnacksPerDay.
func slotTargets(in types.Intake, p types.MetabolicProfile) []types.SlotTarget {
	slots := daySlots(in.MealsPerDay, in.SnacksPerDay)

	weights := make([]float64, len(slots))
	var total float64
	for i, slot := range slots {
		weights[i] = slotWeight(slot, i, in.MealsPerDay)
		total += weights[i]
	}

	dayMacros := types.Macros{
		Kcal:     p.GoalKcal,
		ProteinG: p.ProteinG,
		CarbsG:   p.CarbsG,
		FatG:     p.FatG,
		FiberG:   p.FiberG,
	}

	targets := make([]types.SlotTarget, len(slots))
	for i, slot := range slots {
		share := weights[i] / total
		m := dayMacros.Scale(share)
		targets[i] = types.SlotTarget{
			Slot:   slot,
			Kcal:   round1(m.Kcal),
			Macros: m,
		}
	}
	return targets
}

// daySlots lays out the slot sequence: first meal breakfast, last meal
// dinner, middles lunch, then the snacks.
func daySlots(meals, snacks int) []types.MealSlot {
	slots := make([]types.MealSlot, 0, meals+snacks)
	for i := 0; i < meals; i++ {
		switch {
		case i == 0:
			slots = append(slots, types.SlotBreakfast)
		case i == meals-1 && meals > 1:
			slots = append(slots, types.SlotDinner)
		default:
			slots = append(slots, types.SlotLunch)
		}
	}
	for i := 0; i < snacks; i++ {
		slots = append(slots, types.SlotSnack)
	}
	return slots
}

func slotWeight(slot types.MealSlot, index, meals int) float64 {
	switch slot {
	case types.SlotBreakfast:
		return weightBreakfast
	case types.SlotDinner:
		return weightDinner
	case types.SlotSnack:
		return weightSnack
	default:
		// Second and later "lunch" slots of long days weigh slightly less.
		if index > 1 && meals > 3 {
			return weightExtraMeal
		}
		return weightLunch
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
