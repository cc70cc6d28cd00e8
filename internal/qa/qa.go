// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package qa scores a compiled plan against its metabolic targets. A FAIL
// is advisory: it rides along on the result and never blocks delivery.
package qa

import (
	"math"

	"github.com/pdiddy/plan-engine/pkg/types"
)

// Component weights. Calories dominate; fat matters least.
const (
	weightKcal    = 0.50
	weightProtein = 0.25
	weightCarbs   = 0.15
	weightFat     = 0.10
)

// overshootPenalty multiplies the variance of any component that came in
// over target. Eating over plan is worse than under for every goal type.
const overshootPenalty = 1.5

// DefaultPassThreshold is the minimum score for a PASS verdict.
const DefaultPassThreshold = 70.0

// Evaluate scores the plan day by day. Each day's macro targets are the
// profile's daily targets scaled to that day's calorie target, so training
// days are judged against their higher allowance, not the base goal.
func Evaluate(plan types.CompiledMealPlan, profile types.MetabolicProfile, threshold float64) types.QAResult {
	if threshold <= 0 {
		threshold = DefaultPassThreshold
	}

	result := types.QAResult{Threshold: threshold}
	if len(plan.Days) == 0 || profile.GoalKcal <= 0 {
		result.Status = types.QAFail
		return result
	}

	var sum float64
	for _, day := range plan.Days {
		scale := day.TargetKcal / profile.GoalKcal
		dayVariance := weightKcal*componentVariance(day.Nutrition.Kcal, day.TargetKcal) +
			weightProtein*componentVariance(day.Nutrition.ProteinG, profile.ProteinG*scale) +
			weightCarbs*componentVariance(day.Nutrition.CarbsG, profile.CarbsG*scale) +
			weightFat*componentVariance(day.Nutrition.FatG, profile.FatG*scale)
		sum += dayVariance

		result.Days = append(result.Days, types.DayVariance{
			DayNumber:   day.DayNumber,
			TargetKcal:  round1(day.TargetKcal),
			ActualKcal:  round1(day.Nutrition.Kcal),
			VariancePct: round1((day.Nutrition.Kcal - day.TargetKcal) / day.TargetKcal * 100),
		})
	}

	mean := sum / float64(len(plan.Days))
	result.Score = round1(100 - math.Min(100, mean))
	if result.Score >= threshold {
		result.Status = types.QAPass
	} else {
		result.Status = types.QAFail
	}
	return result
}

// componentVariance is the absolute percent deviation from target, with the
// overshoot penalty applied when actual exceeds target.
func componentVariance(actual, target float64) float64 {
	if target <= 0 {
		return 0
	}
	v := math.Abs(actual-target) / target * 100
	if actual > target {
		v *= overshootPenalty
	}
	return v
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
