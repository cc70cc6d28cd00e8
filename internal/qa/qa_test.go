// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package qa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/plan-engine/pkg/types"
)

func testProfile() types.MetabolicProfile {
	return types.MetabolicProfile{
		GoalKcal: 2000,
		ProteinG: 170,
		CarbsG:   200,
		FatG:     56,
	}
}

func day(num int, target float64, nutrition types.Macros) types.CompiledDay {
	return types.CompiledDay{DayNumber: num, TargetKcal: target, Nutrition: nutrition}
}

func TestEvaluate_PerfectPlanScores100(t *testing.T) {
	plan := types.CompiledMealPlan{Days: []types.CompiledDay{
		day(1, 2000, types.Macros{Kcal: 2000, ProteinG: 170, CarbsG: 200, FatG: 56}),
		day(2, 2000, types.Macros{Kcal: 2000, ProteinG: 170, CarbsG: 200, FatG: 56}),
	}}

	result := Evaluate(plan, testProfile(), 0)
	assert.Equal(t, 100.0, result.Score)
	assert.Equal(t, types.QAPass, result.Status)
	assert.Equal(t, DefaultPassThreshold, result.Threshold)
}

func TestEvaluate_DayVariancesReported(t *testing.T) {
	plan := types.CompiledMealPlan{Days: []types.CompiledDay{
		day(1, 2000, types.Macros{Kcal: 1900, ProteinG: 170, CarbsG: 200, FatG: 56}),
		day(2, 2250, types.Macros{Kcal: 2250, ProteinG: 191.25, CarbsG: 225, FatG: 63}),
	}}

	result := Evaluate(plan, testProfile(), 0)
	require.Len(t, result.Days, 2)
	assert.Equal(t, -5.0, result.Days[0].VariancePct)
	assert.Equal(t, 0.0, result.Days[1].VariancePct)
	assert.Equal(t, 2250.0, result.Days[1].TargetKcal)
}

func TestEvaluate_OvershootPenalized(t *testing.T) {
	under := types.CompiledMealPlan{Days: []types.CompiledDay{
		day(1, 2000, types.Macros{Kcal: 1800, ProteinG: 170, CarbsG: 200, FatG: 56}),
	}}
	over := types.CompiledMealPlan{Days: []types.CompiledDay{
		day(1, 2000, types.Macros{Kcal: 2200, ProteinG: 170, CarbsG: 200, FatG: 56}),
	}}

	underScore := Evaluate(under, testProfile(), 0).Score
	overScore := Evaluate(over, testProfile(), 0).Score
	assert.Greater(t, underScore, overScore,
		"a 10%% overshoot must score worse than a 10%% undershoot")
	// 10% kcal variance × .50 weight = 5 under; × 1.5 penalty = 7.5 over.
	assert.Equal(t, 95.0, underScore)
	assert.Equal(t, 92.5, overScore)
}

func TestEvaluate_TrainingDayJudgedAgainstItsOwnTarget(t *testing.T) {
	// Training day hits its raised target exactly; scored as perfect even
	// though it exceeds the base goal calories.
	plan := types.CompiledMealPlan{Days: []types.CompiledDay{
		day(1, 2250, types.Macros{Kcal: 2250, ProteinG: 191.25, CarbsG: 225, FatG: 63}),
	}}

	result := Evaluate(plan, testProfile(), 0)
	assert.Equal(t, 100.0, result.Score)
}

func TestEvaluate_FailBelowThreshold(t *testing.T) {
	plan := types.CompiledMealPlan{Days: []types.CompiledDay{
		day(1, 2000, types.Macros{Kcal: 500, ProteinG: 20, CarbsG: 30, FatG: 10}),
	}}

	result := Evaluate(plan, testProfile(), 0)
	assert.Equal(t, types.QAFail, result.Status)
	assert.Less(t, result.Score, DefaultPassThreshold)
	assert.GreaterOrEqual(t, result.Score, 0.0)
}

func TestEvaluate_CustomThreshold(t *testing.T) {
	plan := types.CompiledMealPlan{Days: []types.CompiledDay{
		day(1, 2000, types.Macros{Kcal: 1800, ProteinG: 170, CarbsG: 200, FatG: 56}),
	}}

	strict := Evaluate(plan, testProfile(), 99)
	assert.Equal(t, types.QAFail, strict.Status)
	lax := Evaluate(plan, testProfile(), 50)
	assert.Equal(t, types.QAPass, lax.Status)
}

func TestEvaluate_EmptyPlanFails(t *testing.T) {
	result := Evaluate(types.CompiledMealPlan{}, testProfile(), 0)
	assert.Equal(t, types.QAFail, result.Status)
	assert.Equal(t, 0.0, result.Score)
}
