// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package curator

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/plan-engine/internal/metabolic"
	"github.com/pdiddy/plan-engine/pkg/types"
)

func init() {
	// Use a tiny base delay so retry tests finish quickly.
	backoffBase = time.Millisecond
}

func testIntake() types.Intake {
	bf := 18.0
	return types.Intake{
		Sex:            types.SexMale,
		Age:            30,
		HeightCm:       180,
		WeightKg:       85,
		BodyFatPercent: &bf,
		GoalType:       types.GoalCut,
		GoalRate:       1.0,
		ActivityLevel:  types.ActivityModerate,
		TrainingDays:   []time.Weekday{time.Monday, time.Wednesday, time.Friday},
		DietaryStyle:   types.DietOmnivore,
		MealsPerDay:    3,
		SnacksPerDay:   1,
		MacroStyle:     types.MacroHighProtein,
		PlanDays:       7,
	}
}

// fakeBackend is a scripted ModelBackend.
type fakeBackend struct {
	resp  string
	err   error
	calls int
}

func (f *fakeBackend) GenerateDraft(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.resp, f.err
}

func newCurator(t *testing.T, backend ModelBackend, cfg types.CuratorConfig) *Curator {
	t.Helper()
	c, err := New(backend, cfg)
	require.NoError(t, err)
	return c
}

func TestCurate_Deterministic(t *testing.T) {
	in := testIntake()
	profile := metabolic.Calculate(in)
	c := newCurator(t, nil, types.CuratorConfig{Seed: 42})

	a, err := c.Curate(context.Background(), in, profile)
	require.NoError(t, err)
	b, err := c.Curate(context.Background(), in, profile)
	require.NoError(t, err)

	assert.Equal(t, a, b, "same intake and seed must produce identical drafts")
	assert.Equal(t, types.DraftSourceFallback, a.Source)
	assert.Len(t, a.Days, 7)
	for _, day := range a.Days {
		assert.Len(t, day.Meals, 4)
	}
}

func TestCurate_VarietyInvariants(t *testing.T) {
	diets := []types.DietaryStyle{
		types.DietOmnivore, types.DietVegetarian, types.DietVegan, types.DietPescatarian,
	}
	for _, diet := range diets {
		t.Run(string(diet), func(t *testing.T) {
			in := testIntake()
			in.DietaryStyle = diet
			profile := metabolic.Calculate(in)
			c := newCurator(t, nil, types.CuratorConfig{})

			draft, err := c.Curate(context.Background(), in, profile)
			require.NoError(t, err)
			assert.Empty(t, Scan(draft.Days))
			assert.Equal(t, BuildReport(draft.Days), draft.Variety,
				"variety report must equal the union of per-meal values")
		})
	}
}

func TestCurate_SeedChangesRotation(t *testing.T) {
	in := testIntake()
	profile := metabolic.Calculate(in)

	a, err := newCurator(t, nil, types.CuratorConfig{Seed: 1}).Curate(context.Background(), in, profile)
	require.NoError(t, err)
	b, err := newCurator(t, nil, types.CuratorConfig{Seed: 99}).Curate(context.Background(), in, profile)
	require.NoError(t, err)

	assert.NotEqual(t, a.Days, b.Days)
}

func TestCurate_ExclusionsFilterByNameAndProtein(t *testing.T) {
	in := testIntake()
	in.Exclusions = []string{"chicken"}
	profile := metabolic.Calculate(in)
	c := newCurator(t, nil, types.CuratorConfig{})

	draft, err := c.Curate(context.Background(), in, profile)
	require.NoError(t, err)
	for _, day := range draft.Days {
		for _, meal := range day.Meals {
			assert.NotContains(t, canonicalName(meal.Name), "chicken")
			assert.NotEqual(t, "chicken", meal.PrimaryProtein)
		}
	}
}

func TestCurate_AllergiesFilterIngredients(t *testing.T) {
	in := testIntake()
	in.Allergies = []string{"peanut"}
	profile := metabolic.Calculate(in)
	c := newCurator(t, nil, types.CuratorConfig{})

	draft, err := c.Curate(context.Background(), in, profile)
	require.NoError(t, err)
	for _, day := range draft.Days {
		for _, meal := range day.Meals {
			for _, ing := range meal.Ingredients {
				assert.NotContains(t, canonicalName(ing.Name), "peanut")
			}
		}
	}
}

func TestCurate_LLMErrorFallsBack(t *testing.T) {
	in := testIntake()
	profile := metabolic.Calculate(in)
	backend := &fakeBackend{err: errors.New("quota exceeded for project nutri-prod-1234")}
	c := newCurator(t, backend, types.CuratorConfig{UseLLM: true, MaxRetries: 1})

	draft, err := c.Curate(context.Background(), in, profile)
	require.NoError(t, err, "provider failure must not surface as a hard failure")
	assert.Equal(t, types.DraftSourceFallback, draft.Source)
	assert.Contains(t, draft.FallbackReason, "quota exceeded")
	assert.Equal(t, 2, backend.calls, "initial call plus one retry")
}

func TestCurate_LLMGarbageFallsBack(t *testing.T) {
	in := testIntake()
	profile := metabolic.Calculate(in)
	backend := &fakeBackend{resp: "sorry, I cannot help with that"}
	c := newCurator(t, backend, types.CuratorConfig{UseLLM: true})

	draft, err := c.Curate(context.Background(), in, profile)
	require.NoError(t, err)
	assert.Equal(t, types.DraftSourceFallback, draft.Source)
	assert.NotEmpty(t, draft.FallbackReason)
}

func TestCurate_LLMDraftUsedWhenValid(t *testing.T) {
	in := testIntake()
	in.MealsPerDay = 1
	in.SnacksPerDay = 0
	in.PlanDays = 2
	profile := metabolic.Calculate(in)

	resp := "```json\n" + `{
	  "days": [
	    {"meals": [{"name": "Grilled Chicken Plate", "cuisine": "american",
	      "prepMinutes": 10, "cookMinutes": 20, "primaryProtein": "chicken", "tags": [],
	      "estimatedMacros": {"kcal": 600, "proteinG": 45, "carbsG": 55, "fatG": 18, "fiberG": 8},
	      "ingredients": [{"name": "Chicken Breast", "quantity": 180, "unit": "g"}]}]},
	    {"meals": [{"name": "Salmon Soba Bowl", "cuisine": "japanese",
	      "prepMinutes": 10, "cookMinutes": 15, "primaryProtein": "salmon", "tags": [],
	      "estimatedMacros": {"kcal": 620, "proteinG": 40, "carbsG": 60, "fatG": 20, "fiberG": 6},
	      "ingredients": [{"name": "Salmon Fillet", "quantity": 150, "unit": "g"}]}]}
	  ]
	}` + "\n```"
	backend := &fakeBackend{resp: resp}
	c := newCurator(t, backend, types.CuratorConfig{UseLLM: true})

	draft, err := c.Curate(context.Background(), in, profile)
	require.NoError(t, err)
	assert.Equal(t, types.DraftSourceLLM, draft.Source)
	require.Len(t, draft.Days, 2)
	assert.Equal(t, "Grilled Chicken Plate", draft.Days[0].Meals[0].Name)
	assert.Equal(t, 1, draft.Days[0].DayNumber)
	assert.Equal(t, "Monday", draft.Days[0].DayName)
	assert.True(t, draft.Days[0].IsTrainingDay)
	assert.Equal(t, profile.DayTargetKcal(true), draft.Days[0].TargetKcal)
}

func TestCurate_LLMVarietyViolationFallsBack(t *testing.T) {
	in := testIntake()
	in.MealsPerDay = 1
	in.SnacksPerDay = 0
	in.PlanDays = 2
	profile := metabolic.Calculate(in)

	// Chicken on both consecutive days.
	resp := `{
	  "days": [
	    {"meals": [{"name": "Chicken Plate", "cuisine": "american",
	      "primaryProtein": "chicken", "tags": [],
	      "estimatedMacros": {"kcal": 600, "proteinG": 45, "carbsG": 55, "fatG": 18, "fiberG": 8},
	      "ingredients": [{"name": "Chicken Breast", "quantity": 180, "unit": "g"}]}]},
	    {"meals": [{"name": "Chicken Curry", "cuisine": "indian",
	      "primaryProtein": "chicken", "tags": [],
	      "estimatedMacros": {"kcal": 620, "proteinG": 42, "carbsG": 60, "fatG": 20, "fiberG": 7},
	      "ingredients": [{"name": "Chicken Thigh", "quantity": 170, "unit": "g"}]}]}
	  ]
	}`
	backend := &fakeBackend{resp: resp}
	c := newCurator(t, backend, types.CuratorConfig{UseLLM: true})

	draft, err := c.Curate(context.Background(), in, profile)
	require.NoError(t, err)
	assert.Equal(t, types.DraftSourceFallback, draft.Source)
	assert.Contains(t, draft.FallbackReason, "variety")
}

// reserialize pushes a draft through one codec and back.
func reserialize(t *testing.T, draft types.MealPlanDraft, marshal func(any) ([]byte, error), unmarshal func([]byte, any) error) types.MealPlanDraft {
	t.Helper()
	raw, err := marshal(draft)
	require.NoError(t, err)
	var got types.MealPlanDraft
	require.NoError(t, unmarshal(raw, &got))
	return got
}

func TestDraftSurvivesSerialization(t *testing.T) {
	in := testIntake()
	profile := metabolic.Calculate(in)

	resp := `{
	  "days": [
	    {"meals": [{"name": "Grilled Chicken Plate", "cuisine": "american",
	      "prepMinutes": 10, "cookMinutes": 20, "primaryProtein": "chicken",
	      "tags": ["high_protein"],
	      "estimatedMacros": {"kcal": 600, "proteinG": 45, "carbsG": 55, "fatG": 18, "fiberG": 8},
	      "ingredients": [{"name": "Chicken Breast", "quantity": 180, "unit": "g"}]}]},
	    {"meals": [{"name": "Salmon Soba Bowl", "cuisine": "japanese",
	      "prepMinutes": 10, "cookMinutes": 15, "primaryProtein": "salmon",
	      "tags": ["omega_3"],
	      "estimatedMacros": {"kcal": 620, "proteinG": 40, "carbsG": 60, "fatG": 20, "fiberG": 6},
	      "ingredients": [{"name": "Salmon Fillet", "quantity": 150, "unit": "g"}]}]}
	  ]
	}`

	drafts := map[string]func(t *testing.T) types.MealPlanDraft{
		"deterministic": func(t *testing.T) types.MealPlanDraft {
			c := newCurator(t, nil, types.CuratorConfig{Seed: 42})
			draft, err := c.Curate(context.Background(), in, profile)
			require.NoError(t, err)
			require.Equal(t, types.DraftSourceFallback, draft.Source)
			return draft
		},
		"llm": func(t *testing.T) types.MealPlanDraft {
			llmIn := in
			llmIn.MealsPerDay = 1
			llmIn.SnacksPerDay = 0
			llmIn.PlanDays = 2
			c := newCurator(t, &fakeBackend{resp: resp}, types.CuratorConfig{UseLLM: true})
			draft, err := c.Curate(context.Background(), llmIn, metabolic.Calculate(llmIn))
			require.NoError(t, err)
			require.Equal(t, types.DraftSourceLLM, draft.Source)
			return draft
		},
	}

	for name, generate := range drafts {
		t.Run(name, func(t *testing.T) {
			draft := generate(t)

			fromJSON := reserialize(t, draft, json.Marshal, json.Unmarshal)
			assert.Equal(t, draft, fromJSON, "JSON round trip must be lossless")

			fromYAML := reserialize(t, draft, func(v any) ([]byte, error) { return yaml.Marshal(v) }, yaml.Unmarshal)
			assert.Equal(t, draft, fromYAML, "YAML round trip must be lossless")

			// The decoded draft passes the same checks as the original.
			assert.Equal(t, Scan(draft.Days), Scan(fromJSON.Days))
			assert.Equal(t, draft.Variety, BuildReport(fromJSON.Days))
		})
	}
}

func TestStripJSONFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripJSONFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripJSONFence("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripJSONFence(`{"a":1}`))
}

func TestLoadLibrary(t *testing.T) {
	lib, err := LoadLibrary()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(lib.Breakfast), 3)
	assert.GreaterOrEqual(t, len(lib.Lunch), 3)
	assert.GreaterOrEqual(t, len(lib.Dinner), 3)
	assert.GreaterOrEqual(t, len(lib.Snack), 3)
}
