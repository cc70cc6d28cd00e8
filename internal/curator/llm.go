// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package curator

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"

	"github.com/pdiddy/plan-engine/pkg/types"
)

// ModelBackend abstracts the generation model so tests can supply a mock.
// It takes a fully built prompt and returns the raw model text.
type ModelBackend interface {
	GenerateDraft(ctx context.Context, prompt string) (string, error)
}

// backoffBase controls the base duration for model-call retries. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// callWithRetry calls the backend with exponential backoff.
func callWithRetry(ctx context.Context, backend ModelBackend, prompt string, maxRetries int) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}
		raw, err := backend.GenerateDraft(ctx, prompt)
		if err == nil {
			return raw, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

// VertexBackend generates drafts through the Vertex AI Gemini API.
type VertexBackend struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewVertexBackend connects to Vertex AI using the configured project.
func NewVertexBackend(ctx context.Context, cfg types.CuratorConfig) (*VertexBackend, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Location, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating Vertex AI client: %w", err)
	}
	model := client.GenerativeModel(cfg.Model)
	model.GenerationConfig.ResponseMIMEType = "application/json"
	return &VertexBackend{client: client, model: model}, nil
}

// GenerateDraft sends the prompt and returns the first candidate's text.
func (b *VertexBackend) GenerateDraft(ctx context.Context, prompt string) (string, error) {
	resp, err := b.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("model call: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("model returned no content")
	}
	return fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]), nil
}

// Close releases the underlying client.
func (b *VertexBackend) Close() error {
	return b.client.Close()
}

// llmPlan is the JSON shape the prompt asks the model to produce.
type llmPlan struct {
	Days []llmDay `json:"days"`
}

type llmDay struct {
	Meals []llmMeal `json:"meals"`
}

type llmMeal struct {
	Name        string          `json:"name"`
	Cuisine     string          `json:"cuisine"`
	PrepMinutes int             `json:"prepMinutes"`
	CookMinutes int             `json:"cookMinutes"`
	Protein     string          `json:"primaryProtein"`
	Tags        []string        `json:"tags"`
	Macros      llmMacros       `json:"estimatedMacros"`
	Ingredients []llmIngredient `json:"ingredients"`
}

type llmMacros struct {
	Kcal     float64 `json:"kcal"`
	ProteinG float64 `json:"proteinG"`
	CarbsG   float64 `json:"carbsG"`
	FatG     float64 `json:"fatG"`
	FiberG   float64 `json:"fiberG"`
}

type llmIngredient struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// buildPrompt renders the structured-output request. Day structure, targets,
// and constraints are stated explicitly; day numbering and training flags are
// recomputed locally and never trusted from the model.
func buildPrompt(in types.Intake, profile types.MetabolicProfile) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Create a %d-day meal plan. Respond with JSON only, no prose, matching exactly this shape:\n", in.PlanDays)
	sb.WriteString(`{"days":[{"meals":[{"name":"","cuisine":"","prepMinutes":0,"cookMinutes":0,"primaryProtein":"","tags":[],"estimatedMacros":{"kcal":0,"proteinG":0,"carbsG":0,"fatG":0,"fiberG":0},"ingredients":[{"name":"","quantity":0,"unit":"g"}]}]}]}`)
	sb.WriteString("\n\nRequirements:\n")
	fmt.Fprintf(&sb, "- Each day has exactly %d meals, in this slot order: ", len(profile.MealTargets))
	for i, t := range profile.MealTargets {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s (~%.0f kcal)", t.Slot, t.Kcal)
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "- Daily target: %.0f kcal, %.0f g protein, %.0f g carbs, %.0f g fat, at least %.0f g fiber.\n",
		profile.GoalKcal, profile.ProteinG, profile.CarbsG, profile.FatG, profile.FiberG)
	fmt.Fprintf(&sb, "- Dietary style: %s.\n", in.DietaryStyle)
	if len(in.Allergies) > 0 {
		fmt.Fprintf(&sb, "- Strictly avoid (allergies): %s.\n", strings.Join(in.Allergies, ", "))
	}
	if len(in.Exclusions) > 0 {
		fmt.Fprintf(&sb, "- Avoid (dislikes): %s.\n", strings.Join(in.Exclusions, ", "))
	}
	if len(in.CuisinePreferences) > 0 {
		fmt.Fprintf(&sb, "- Preferred cuisines: %s.\n", strings.Join(in.CuisinePreferences, ", "))
	}
	if in.MaxPrepMinutes > 0 {
		fmt.Fprintf(&sb, "- Keep prep+cook under %d minutes per meal.\n", in.MaxPrepMinutes)
	}
	sb.WriteString("- Never repeat a significant animal protein (meat, poultry, fish) on two consecutive days.\n")
	sb.WriteString("- Never repeat a meal name within any 3-day window.\n")
	sb.WriteString("- Use at least 3 distinct cuisines; no cuisine on more than 70% of meals.\n")
	sb.WriteString("- Ingredient quantities in metric units (g, ml) or common measures (tbsp, tsp, piece).\n")
	return sb.String()
}

// parseDraft validates the raw model output and converts it to a draft.
// Day numbering, names, training flags, and calorie targets are derived
// locally from the intake and profile.
func parseDraft(raw string, in types.Intake, profile types.MetabolicProfile) (types.MealPlanDraft, error) {
	text := stripJSONFence(raw)

	var plan llmPlan
	if err := json.Unmarshal([]byte(text), &plan); err != nil {
		return types.MealPlanDraft{}, fmt.Errorf("parsing model response: %w", err)
	}

	if len(plan.Days) != in.PlanDays {
		return types.MealPlanDraft{}, fmt.Errorf("model returned %d days, want %d", len(plan.Days), in.PlanDays)
	}

	var errs []string
	days := make([]types.DraftDay, len(plan.Days))
	for d, src := range plan.Days {
		weekday := time.Weekday((int(time.Monday) + d) % 7)
		training := in.IsTrainingDay(weekday)
		day := types.DraftDay{
			DayNumber:     d + 1,
			DayName:       weekday.String(),
			IsTrainingDay: training,
			TargetKcal:    profile.DayTargetKcal(training),
		}

		if len(src.Meals) != len(profile.MealTargets) {
			errs = append(errs, fmt.Sprintf("day %d: %d meals, want %d", d+1, len(src.Meals), len(profile.MealTargets)))
			continue
		}
		for m, meal := range src.Meals {
			if strings.TrimSpace(meal.Name) == "" {
				errs = append(errs, fmt.Sprintf("day %d meal %d: empty name", d+1, m+1))
				continue
			}
			if meal.Macros.Kcal <= 0 {
				errs = append(errs, fmt.Sprintf("day %d meal %q: non-positive calories", d+1, meal.Name))
				continue
			}
			if len(meal.Ingredients) == 0 {
				errs = append(errs, fmt.Sprintf("day %d meal %q: no ingredients", d+1, meal.Name))
				continue
			}
			lines := make([]types.IngredientLine, len(meal.Ingredients))
			for i, ing := range meal.Ingredients {
				if ing.Name == "" || ing.Quantity <= 0 {
					errs = append(errs, fmt.Sprintf("day %d meal %q: invalid ingredient line %d", d+1, meal.Name, i+1))
				}
				lines[i] = types.IngredientLine{Name: ing.Name, Quantity: ing.Quantity, Unit: ing.Unit}
			}
			day.Meals = append(day.Meals, types.DraftMeal{
				Slot:        profile.MealTargets[m].Slot,
				Name:        strings.TrimSpace(meal.Name),
				Cuisine:     strings.ToLower(strings.TrimSpace(meal.Cuisine)),
				PrepMinutes: meal.PrepMinutes,
				CookMinutes: meal.CookMinutes,
				EstimatedMacros: types.Macros{
					Kcal:     meal.Macros.Kcal,
					ProteinG: meal.Macros.ProteinG,
					CarbsG:   meal.Macros.CarbsG,
					FatG:     meal.Macros.FatG,
					FiberG:   meal.Macros.FiberG,
				},
				PrimaryProtein: strings.ToLower(strings.TrimSpace(meal.Protein)),
				Tags:           meal.Tags,
				Ingredients:    lines,
			})
		}
		days[d] = day
	}

	if len(errs) > 0 {
		return types.MealPlanDraft{}, fmt.Errorf("model draft invalid: %s", strings.Join(errs, "; "))
	}

	return types.MealPlanDraft{
		Days:    days,
		Variety: BuildReport(days),
		Source:  types.DraftSourceLLM,
	}, nil
}

// stripJSONFence removes a surrounding ```json code fence if present.
func stripJSONFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
