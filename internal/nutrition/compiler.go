// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package nutrition

import (
	"context"
	"errors"
	"math"

	"github.com/pdiddy/plan-engine/pkg/types"
)

// oilFatFloor is the minimum grams of fat per gram of mass a culinary oil
// must contribute. Provider records for oils occasionally come back on a
// serving basis instead of per 100 g; anything below the floor is replaced
// with canonical oil values so a tablespoon of olive oil never compiles to a
// few calories.
const oilFatFloor = 0.9

// Canonical per-gram values for pure culinary oils.
const (
	oilKcalPerGram = 8.84
	oilFatPerGram  = 1.0
)

// Compiler resolves draft ingredients through the two-tier cache and the
// provider chain, and recomputes all totals bottom-up.
type Compiler struct {
	cache     *Cache
	providers []FoodProvider
}

// NewCompiler builds a compiler. Providers are consulted in order; the first
// hit wins and is cached.
func NewCompiler(cache *Cache, providers ...FoodProvider) *Compiler {
	return &Compiler{cache: cache, providers: providers}
}

// Compile resolves every ingredient of the draft and produces a compiled
// plan. A meal is verified only when every line matched; otherwise the
// draft's estimated macros stand in and the meal is marked ai_estimated.
// Day and week totals are always recomputed from the meals.
func (c *Compiler) Compile(ctx context.Context, draft types.MealPlanDraft) (types.CompiledMealPlan, error) {
	var plan types.CompiledMealPlan
	for _, day := range draft.Days {
		compiled := types.CompiledDay{
			DayNumber:     day.DayNumber,
			DayName:       day.DayName,
			IsTrainingDay: day.IsTrainingDay,
			TargetKcal:    day.TargetKcal,
		}
		for _, meal := range day.Meals {
			cm, err := c.compileMeal(ctx, meal)
			if err != nil {
				return types.CompiledMealPlan{}, err
			}
			compiled.Nutrition = compiled.Nutrition.Add(cm.Nutrition)
			compiled.Meals = append(compiled.Meals, cm)
		}
		plan.WeekTotals = plan.WeekTotals.Add(compiled.Nutrition)
		plan.Days = append(plan.Days, compiled)
	}
	return plan, nil
}

func (c *Compiler) compileMeal(ctx context.Context, meal types.DraftMeal) (types.CompiledMeal, error) {
	cm := types.CompiledMeal{
		Slot:           meal.Slot,
		Name:           meal.Name,
		Cuisine:        meal.Cuisine,
		PrimaryProtein: meal.PrimaryProtein,
		Tags:           meal.Tags,
	}

	allMatched := true
	var total types.Macros
	for _, line := range meal.Ingredients {
		resolved, err := c.resolve(ctx, line)
		if err != nil {
			return types.CompiledMeal{}, err
		}
		if resolved.Matched {
			total = total.Add(resolved.Macros)
		} else {
			allMatched = false
		}
		cm.Ingredients = append(cm.Ingredients, resolved)
	}

	if allMatched && len(cm.Ingredients) > 0 {
		cm.Confidence = types.ConfidenceVerified
		cm.Nutrition = roundMacros(total)
	} else {
		cm.Confidence = types.ConfidenceAIEstimated
		cm.Nutrition = meal.EstimatedMacros
	}
	return cm, nil
}

// resolve turns one ingredient line into a resolved ingredient. Misses of
// any kind (bad unit, no provider hit) leave the line unmatched; only
// context cancellation is a hard error.
func (c *Compiler) resolve(ctx context.Context, line types.IngredientLine) (types.ResolvedIngredient, error) {
	resolved := types.ResolvedIngredient{IngredientLine: line}
	name := NormalizeName(line.Name)

	grams, err := GramsFor(line.Quantity, line.Unit, name.Key)
	if err != nil {
		return resolved, nil
	}
	resolved.Grams = round2(grams)

	rec, ok, err := c.lookup(ctx, name)
	if err != nil {
		return types.ResolvedIngredient{}, err
	}
	if !ok {
		return resolved, nil
	}

	macros := rec.Per100g.Scale(grams / 100)
	if isOil(name.Key) && macros.FatG < oilFatFloor*grams {
		macros = types.Macros{
			Kcal: grams * oilKcalPerGram,
			FatG: grams * oilFatPerGram,
		}
	}

	resolved.FoodID = rec.FoodID
	resolved.Provider = rec.Provider
	resolved.Macros = roundMacros(macros)
	resolved.Matched = true
	return resolved, nil
}

// lookup walks cache tiers then the provider chain, filling the cache on a
// provider hit.
func (c *Compiler) lookup(ctx context.Context, name NormalizedName) (FoodRecord, bool, error) {
	key := name.CacheKey()
	if rec, ok := c.cache.Get(ctx, key); ok {
		return rec, true, nil
	}
	for _, p := range c.providers {
		rec, err := p.Lookup(ctx, name)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return FoodRecord{}, false, ctx.Err()
			}
			// Provider outage degrades to the next tier.
			continue
		}
		c.cache.Put(ctx, key, rec)
		return rec, true, nil
	}
	return FoodRecord{}, false, nil
}

func roundMacros(m types.Macros) types.Macros {
	return types.Macros{
		Kcal:     round1(m.Kcal),
		ProteinG: round1(m.ProteinG),
		CarbsG:   round1(m.CarbsG),
		FatG:     round1(m.FatG),
		FiberG:   round1(m.FiberG),
	}
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
