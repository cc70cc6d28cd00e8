// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// MealSlot labels a position in the daily meal sequence.
type MealSlot string

const (
	SlotBreakfast MealSlot = "breakfast"
	SlotLunch     MealSlot = "lunch"
	SlotDinner    MealSlot = "dinner"
	SlotSnack     MealSlot = "snack"
)

// Macros holds energy and macro-nutrient quantities. Grams throughout.
type Macros struct {
	Kcal     float64 `json:"kcal" yaml:"kcal"`
	ProteinG float64 `json:"proteinG" yaml:"protein_g"`
	CarbsG   float64 `json:"carbsG" yaml:"carbs_g"`
	FatG     float64 `json:"fatG" yaml:"fat_g"`
	FiberG   float64 `json:"fiberG" yaml:"fiber_g"`
}

// Add returns the component-wise sum of m and other.
func (m Macros) Add(other Macros) Macros {
	return Macros{
		Kcal:     m.Kcal + other.Kcal,
		ProteinG: m.ProteinG + other.ProteinG,
		CarbsG:   m.CarbsG + other.CarbsG,
		FatG:     m.FatG + other.FatG,
		FiberG:   m.FiberG + other.FiberG,
	}
}

// Scale returns m with every component multiplied by factor.
func (m Macros) Scale(factor float64) Macros {
	return Macros{
		Kcal:     m.Kcal * factor,
		ProteinG: m.ProteinG * factor,
		CarbsG:   m.CarbsG * factor,
		FatG:     m.FatG * factor,
		FiberG:   m.FiberG * factor,
	}
}

// IngredientLine is one unresolved ingredient of a draft meal: a display
// name, a quantity, and a unit. No food-database identity yet.
type IngredientLine struct {
	Name     string  `json:"name" yaml:"name"`
	Quantity float64 `json:"quantity" yaml:"quantity"`
	Unit     string  `json:"unit" yaml:"unit"`
}

// DraftMeal is a curated but unverified meal: the macros are the curator's
// estimate, not resolved nutrition.
type DraftMeal struct {
	Slot            MealSlot         `json:"slot" yaml:"slot"`
	Name            string           `json:"name" yaml:"name"`
	Cuisine         string           `json:"cuisine" yaml:"cuisine"`
	PrepMinutes     int              `json:"prepMinutes" yaml:"prep_minutes"`
	CookMinutes     int              `json:"cookMinutes" yaml:"cook_minutes"`
	EstimatedMacros Macros           `json:"estimatedMacros" yaml:"estimated_macros"`
	PrimaryProtein  string           `json:"primaryProtein" yaml:"primary_protein"`
	Tags            []string         `json:"tags,omitempty" yaml:"tags,omitempty"`
	RecipeID        string           `json:"recipeId,omitempty" yaml:"recipe_id,omitempty"`
	Ingredients     []IngredientLine `json:"ingredients" yaml:"ingredients"`
}

// DraftDay is one day of a draft plan.
type DraftDay struct {
	DayNumber     int         `json:"dayNumber" yaml:"day_number"`
	DayName       string      `json:"dayName" yaml:"day_name"`
	IsTrainingDay bool        `json:"isTrainingDay" yaml:"is_training_day"`
	TargetKcal    float64     `json:"targetKcal" yaml:"target_kcal"`
	Meals         []DraftMeal `json:"meals" yaml:"meals"`
}

// VarietyReport summarizes the whole week of a draft. It must always equal
// the union of the per-meal values; the curator rebuilds it after generation
// rather than maintaining it incrementally.
type VarietyReport struct {
	ProteinsUsed  []string `json:"proteinsUsed" yaml:"proteins_used"`
	CuisinesUsed  []string `json:"cuisinesUsed" yaml:"cuisines_used"`
	RecipeIDsUsed []string `json:"recipeIdsUsed" yaml:"recipe_ids_used"`
}

// Draft source identifiers.
const (
	DraftSourceLLM      = "llm"
	DraftSourceFallback = "fallback"
)

// MealPlanDraft is an unresolved plan: names, cuisines, and estimated macros,
// with ingredients not yet matched against a food database.
type MealPlanDraft struct {
	Days    []DraftDay    `json:"days" yaml:"days"`
	Variety VarietyReport `json:"varietyReport" yaml:"variety_report"`

	// Source records which generator produced the draft ("llm" or
	// "fallback"); FallbackReason carries the provider error that forced
	// the fallback, already redacted.
	Source         string `json:"source" yaml:"source"`
	FallbackReason string `json:"fallbackReason,omitempty" yaml:"fallback_reason,omitempty"`
}

// Confidence states how a compiled meal's nutrition was obtained.
type Confidence string

const (
	// ConfidenceVerified means every ingredient line matched a provider record.
	ConfidenceVerified Confidence = "verified"
	// ConfidenceAIEstimated means at least one line missed and the draft's
	// estimated macros were used instead.
	ConfidenceAIEstimated Confidence = "ai_estimated"
)

// ResolvedIngredient is an ingredient line after food-database resolution.
type ResolvedIngredient struct {
	IngredientLine `yaml:",inline"`

	Grams    float64 `json:"grams" yaml:"grams"`
	FoodID   string  `json:"foodId,omitempty" yaml:"food_id,omitempty"`
	Provider string  `json:"provider,omitempty" yaml:"provider,omitempty"`
	Macros   Macros  `json:"macros" yaml:"macros"`
	Matched  bool    `json:"matched" yaml:"matched"`
}

// CompiledMeal is a meal with resolved nutrition and a confidence level.
type CompiledMeal struct {
	Slot           MealSlot             `json:"slot" yaml:"slot"`
	Name           string               `json:"name" yaml:"name"`
	Cuisine        string               `json:"cuisine" yaml:"cuisine"`
	PrimaryProtein string               `json:"primaryProtein" yaml:"primary_protein"`
	Tags           []string             `json:"tags,omitempty" yaml:"tags,omitempty"`
	Nutrition      Macros               `json:"nutrition" yaml:"nutrition"`
	Confidence     Confidence           `json:"confidence" yaml:"confidence"`
	Ingredients    []ResolvedIngredient `json:"ingredients" yaml:"ingredients"`
}

// CompiledDay is one day of a compiled plan. Nutrition is recomputed
// bottom-up from the meals, never copied from the draft.
type CompiledDay struct {
	DayNumber     int            `json:"dayNumber" yaml:"day_number"`
	DayName       string         `json:"dayName" yaml:"day_name"`
	IsTrainingDay bool           `json:"isTrainingDay" yaml:"is_training_day"`
	TargetKcal    float64        `json:"targetKcal" yaml:"target_kcal"`
	Nutrition     Macros         `json:"nutrition" yaml:"nutrition"`
	Meals         []CompiledMeal `json:"meals" yaml:"meals"`
}

// CompiledMealPlan is a draft with every ingredient resolved.
type CompiledMealPlan struct {
	Days       []CompiledDay `json:"days" yaml:"days"`
	WeekTotals Macros        `json:"weekTotals" yaml:"week_totals"`
}
