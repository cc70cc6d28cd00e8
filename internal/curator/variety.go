// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package curator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/plan-engine/pkg/types"
)

// nameWindowDays is the window within which a meal name must not recur.
const nameWindowDays = 3

// cuisineCap is the maximum share of meal slots a single cuisine may hold.
const cuisineCap = 0.7

// minCuisines is the minimum number of distinct cuisines across the plan
// (capped at the slot count for very short plans).
const minCuisines = 3

// insignificantProteins may repeat on consecutive days: dairy, eggs,
// legumes, soy, and whey aliases are exempt from the repetition rule.
var insignificantProteins = map[string]bool{
	"":               true,
	"none":           true,
	"dairy":          true,
	"eggs":           true,
	"egg":            true,
	"greek_yogurt":   true,
	"cottage_cheese": true,
	"whey":           true,
	"tofu":           true,
	"tempeh":         true,
	"soy":            true,
	"edamame":        true,
	"lentils":        true,
	"chickpeas":      true,
	"black_beans":    true,
	"beans":          true,
	"legume":         true,
}

func significantProtein(p string) bool {
	return !insignificantProteins[strings.ToLower(strings.TrimSpace(p))]
}

func canonicalName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// BuildReport derives the variety report from the days themselves so it is
// always the union of the per-meal values.
func BuildReport(days []types.DraftDay) types.VarietyReport {
	proteins := make(map[string]bool)
	cuisines := make(map[string]bool)
	recipes := make(map[string]bool)
	for _, day := range days {
		for _, meal := range day.Meals {
			if p := strings.ToLower(strings.TrimSpace(meal.PrimaryProtein)); p != "" && p != "none" {
				proteins[p] = true
			}
			if c := strings.ToLower(meal.Cuisine); c != "" {
				cuisines[c] = true
			}
			if meal.RecipeID != "" {
				recipes[meal.RecipeID] = true
			}
		}
	}
	return types.VarietyReport{
		ProteinsUsed:  sortedKeys(proteins),
		CuisinesUsed:  sortedKeys(cuisines),
		RecipeIDsUsed: sortedKeys(recipes),
	}
}

// Scan checks the variety constraints over a generated week and returns a
// description of every violation. An empty result means the draft is valid.
func Scan(days []types.DraftDay) []string {
	var violations []string

	// Significant proteins must not repeat on consecutive days.
	prev := map[string]bool{}
	for i, day := range days {
		current := map[string]bool{}
		for _, meal := range day.Meals {
			p := strings.ToLower(strings.TrimSpace(meal.PrimaryProtein))
			if !significantProtein(p) {
				continue
			}
			if i > 0 && prev[p] {
				violations = append(violations,
					fmt.Sprintf("protein %q repeats on days %d and %d", p, day.DayNumber-1, day.DayNumber))
			}
			current[p] = true
		}
		prev = current
	}

	// Meal names must not recur within the window.
	lastSeen := map[string]int{} // canonical name -> day index
	for i, day := range days {
		for _, meal := range day.Meals {
			name := canonicalName(meal.Name)
			if seen, ok := lastSeen[name]; ok && i-seen < nameWindowDays {
				violations = append(violations,
					fmt.Sprintf("meal %q repeats within %d days (days %d and %d)",
						meal.Name, nameWindowDays, days[seen].DayNumber, day.DayNumber))
			}
			lastSeen[name] = i
		}
	}

	// Cuisine spread.
	counts := map[string]int{}
	total := 0
	for _, day := range days {
		for _, meal := range day.Meals {
			counts[strings.ToLower(meal.Cuisine)]++
			total++
		}
	}
	required := minCuisines
	if total < required {
		required = total
	}
	if len(counts) < required {
		violations = append(violations,
			fmt.Sprintf("only %d distinct cuisines, need at least %d", len(counts), required))
	}
	limit := maxPerCuisine(total)
	for cuisine, n := range counts {
		if n > limit {
			violations = append(violations,
				fmt.Sprintf("cuisine %q holds %d of %d slots, over the %.0f%% cap", cuisine, n, total, cuisineCap*100))
		}
	}

	return violations
}

// maxPerCuisine is the largest slot count one cuisine may hold for a plan
// of the given total size. Always at least 1.
func maxPerCuisine(totalSlots int) int {
	n := int(cuisineCap * float64(totalSlots))
	if n < 1 {
		n = 1
	}
	return n
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
