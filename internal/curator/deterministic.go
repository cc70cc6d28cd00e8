// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package curator

import (
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"time"

	"github.com/pdiddy/plan-engine/pkg/types"
)

// Portion-scaling bounds. Library entries are scaled toward the slot's
// calorie target; clamping keeps portions recognizable.
const (
	minScale = 0.5
	maxScale = 2.0
)

// generateDeterministic builds a draft by seeded rotation over the meal
// library. The same intake and seed always produce the same draft.
func generateDeterministic(lib *Library, seed int64, in types.Intake, profile types.MetabolicProfile) (types.MealPlanDraft, error) {
	if seed == 0 {
		seed = hashIntake(in)
	}

	totalSlots := len(profile.MealTargets) * in.PlanDays
	cuisineLimit := maxPerCuisine(totalSlots)
	requiredCuisines := minCuisines
	if totalSlots < requiredCuisines {
		requiredCuisines = totalSlots
	}

	cuisineCounts := map[string]int{}
	picked := 0

	days := make([]types.DraftDay, 0, in.PlanDays)
	for d := 0; d < in.PlanDays; d++ {
		weekday := time.Weekday((int(time.Monday) + d) % 7)
		training := in.IsTrainingDay(weekday)
		dayTarget := profile.DayTargetKcal(training)
		trainingFactor := dayTarget / profile.GoalKcal

		day := types.DraftDay{
			DayNumber:     d + 1,
			DayName:       weekday.String(),
			IsTrainingDay: training,
			TargetKcal:    dayTarget,
		}

		for s, slot := range profile.MealTargets {
			candidates := lib.Filter(slot.Slot, in)
			if len(candidates) == 0 {
				return types.MealPlanDraft{}, fmt.Errorf(
					"no %s entries satisfy diet %s with the given allergies/exclusions",
					slot.Slot, in.DietaryStyle)
			}

			entry, ok := pickEntry(candidates, pickState{
				days:             days,
				currentDay:       day,
				dayIndex:         d,
				cuisineCounts:    cuisineCounts,
				cuisineCap:       cuisineLimit,
				requiredCuisines: requiredCuisines,
				slotsRemaining:   totalSlots - picked,
			}, rotationStart(seed, d, s, len(candidates)))
			if !ok {
				return types.MealPlanDraft{}, fmt.Errorf(
					"meal library exhausted for %s on day %d", slot.Slot, d+1)
			}

			day.Meals = append(day.Meals, scaleEntry(entry, slot, trainingFactor))
			cuisineCounts[strings.ToLower(entry.Cuisine)]++
			picked++
		}
		days = append(days, day)
	}

	return types.MealPlanDraft{
		Days:    days,
		Variety: BuildReport(days),
		Source:  types.DraftSourceFallback,
	}, nil
}

// pickState carries everything a candidate must be checked against.
type pickState struct {
	days             []types.DraftDay
	currentDay       types.DraftDay
	dayIndex         int
	cuisineCounts    map[string]int
	cuisineCap       int
	requiredCuisines int
	slotsRemaining   int
}

// pickEntry walks the rotation from start and returns the first entry that
// satisfies the variety constraints. When the full rotation fails it relaxes
// the cuisine rules, then the name window; the consecutive-protein rule is
// never relaxed. Each pass is bounded by the library length.
func pickEntry(candidates []Entry, st pickState, start int) (Entry, bool) {
	type relaxation int
	const (
		strict relaxation = iota
		relaxCuisine
		relaxNameWindow
	)

	for pass := strict; pass <= relaxNameWindow; pass++ {
		for offset := 0; offset < len(candidates); offset++ {
			e := candidates[(start+offset)%len(candidates)]

			if violatesProtein(e, st) {
				continue
			}
			if pass < relaxNameWindow && violatesNameWindow(e, st) {
				continue
			}
			if pass < relaxCuisine && violatesCuisine(e, st) {
				continue
			}
			return e, true
		}
	}
	return Entry{}, false
}

// violatesProtein reports whether picking e would repeat a significant
// primary protein from the previous day (or duplicate one already picked
// today, which would trip tomorrow's scan either way).
func violatesProtein(e Entry, st pickState) bool {
	if !significantProtein(e.Protein) {
		return false
	}
	p := strings.ToLower(e.Protein)
	if st.dayIndex > 0 {
		for _, meal := range st.days[st.dayIndex-1].Meals {
			if strings.ToLower(meal.PrimaryProtein) == p {
				return true
			}
		}
	}
	for _, meal := range st.currentDay.Meals {
		if strings.ToLower(meal.PrimaryProtein) == p {
			return true
		}
	}
	return false
}

func violatesNameWindow(e Entry, st pickState) bool {
	name := canonicalName(e.Name)
	from := st.dayIndex - (nameWindowDays - 1)
	if from < 0 {
		from = 0
	}
	for _, day := range st.days[from:] {
		for _, meal := range day.Meals {
			if canonicalName(meal.Name) == name {
				return true
			}
		}
	}
	for _, meal := range st.currentDay.Meals {
		if canonicalName(meal.Name) == name {
			return true
		}
	}
	return false
}

// violatesCuisine enforces the per-cuisine cap and, near the end of the
// plan, forces new cuisines while the distinct-cuisine minimum is unmet.
func violatesCuisine(e Entry, st pickState) bool {
	cuisine := strings.ToLower(e.Cuisine)
	if st.cuisineCounts[cuisine]+1 > st.cuisineCap {
		return true
	}
	missing := st.requiredCuisines - len(st.cuisineCounts)
	if _, seen := st.cuisineCounts[cuisine]; seen && missing > 0 && st.slotsRemaining <= missing {
		return true
	}
	return false
}

// scaleEntry sizes a library entry toward its slot calorie target, then
// applies the training-day factor.
func scaleEntry(e Entry, slot types.SlotTarget, trainingFactor float64) types.DraftMeal {
	factor := 1.0
	if e.Macros.Kcal > 0 {
		factor = slot.Kcal / e.Macros.Kcal
	}
	factor *= trainingFactor
	factor = math.Max(minScale, math.Min(maxScale, factor))

	ingredients := make([]types.IngredientLine, len(e.Ingredients))
	for i, line := range e.Ingredients {
		ingredients[i] = types.IngredientLine{
			Name:     line.Name,
			Quantity: round2(line.Quantity * factor),
			Unit:     line.Unit,
		}
	}

	m := e.Macros.Scale(factor)
	return types.DraftMeal{
		Slot:        slot.Slot,
		Name:        e.Name,
		Cuisine:     e.Cuisine,
		PrepMinutes: e.PrepMinutes,
		CookMinutes: e.CookMinutes,
		EstimatedMacros: types.Macros{
			Kcal:     round1(m.Kcal),
			ProteinG: round1(m.ProteinG),
			CarbsG:   round1(m.CarbsG),
			FatG:     round1(m.FatG),
			FiberG:   round1(m.FiberG),
		},
		PrimaryProtein: e.Protein,
		Tags:           e.Tags,
		RecipeID:       e.ID,
		Ingredients:    ingredients,
	}
}

func rotationStart(seed int64, day, slot, n int) int {
	v := (seed + int64(day)*31 + int64(slot)*7) % int64(n)
	if v < 0 {
		v += int64(n)
	}
	return int(v)
}

// hashIntake derives a stable seed from the fields that shape generation,
// so repeat runs for the same submission rotate identically.
func hashIntake(in types.Intake) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%d|%.1f|%s|%.2f|%s|%s|%d|%d|%d",
		in.Sex, in.Age, in.WeightKg, in.GoalType, in.GoalRate,
		in.DietaryStyle, in.MacroStyle, in.MealsPerDay, in.SnacksPerDay, in.PlanDays)
	for _, a := range in.Allergies {
		fmt.Fprintf(h, "|%s", a)
	}
	for _, e := range in.Exclusions {
		fmt.Fprintf(h, "|%s", e)
	}
	return int64(h.Sum64())
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
