// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package curator

import (
	_ "embed"
	"fmt"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/plan-engine/pkg/types"
)

//go:embed library.yaml
var libraryYAML []byte

// Entry is one meal in the deterministic library.
type Entry struct {
	ID          string                 `yaml:"id"`
	Name        string                 `yaml:"name"`
	Cuisine     string                 `yaml:"cuisine"`
	Protein     string                 `yaml:"protein"`
	PrepMinutes int                    `yaml:"prep_minutes"`
	CookMinutes int                    `yaml:"cook_minutes"`
	Tags        []string               `yaml:"tags"`
	Macros      types.Macros           `yaml:"macros"`
	Ingredients []types.IngredientLine `yaml:"ingredients"`
}

// Library holds the per-slot meal entries. Snack entries serve snack slots;
// breakfast/lunch/dinner serve their own slots.
type Library struct {
	Breakfast []Entry `yaml:"breakfast"`
	Lunch     []Entry `yaml:"lunch"`
	Dinner    []Entry `yaml:"dinner"`
	Snack     []Entry `yaml:"snack"`
}

// LoadLibrary parses the embedded meal library and verifies it is usable.
func LoadLibrary() (*Library, error) {
	var lib Library
	if err := yaml.Unmarshal(libraryYAML, &lib); err != nil {
		return nil, fmt.Errorf("parsing meal library: %w", err)
	}
	for slot, entries := range map[types.MealSlot][]Entry{
		types.SlotBreakfast: lib.Breakfast,
		types.SlotLunch:     lib.Lunch,
		types.SlotDinner:    lib.Dinner,
		types.SlotSnack:     lib.Snack,
	} {
		if len(entries) < 3 {
			return nil, fmt.Errorf("meal library: slot %s has %d entries, need at least 3", slot, len(entries))
		}
		for _, e := range entries {
			if e.ID == "" || e.Name == "" || e.Cuisine == "" {
				return nil, fmt.Errorf("meal library: slot %s entry %q missing id/name/cuisine", slot, e.Name)
			}
			if e.Macros.Kcal <= 0 {
				return nil, fmt.Errorf("meal library: entry %s has no calories", e.ID)
			}
			if len(e.Ingredients) == 0 {
				return nil, fmt.Errorf("meal library: entry %s has no ingredients", e.ID)
			}
		}
	}
	return &lib, nil
}

// Slot returns the entries serving a meal slot.
func (l *Library) Slot(slot types.MealSlot) []Entry {
	switch slot {
	case types.SlotBreakfast:
		return l.Breakfast
	case types.SlotLunch:
		return l.Lunch
	case types.SlotDinner:
		return l.Dinner
	default:
		return l.Snack
	}
}

// dietExcludedTags maps a dietary style to the entry tags it disallows.
var dietExcludedTags = map[types.DietaryStyle][]string{
	types.DietVegetarian:  {"meat", "fish", "shellfish"},
	types.DietVegan:       {"meat", "fish", "shellfish", "dairy", "egg"},
	types.DietPescatarian: {"meat"},
}

// Filter returns the slot entries compatible with an intake's dietary style,
// allergy list, exclusion list, and prep-time cap. Exclusion and allergy
// matching is a case-insensitive substring check against the meal name and
// the primary protein.
func (l *Library) Filter(slot types.MealSlot, in types.Intake) []Entry {
	excludedTags := dietExcludedTags[in.DietaryStyle]
	blocked := append(append([]string{}, in.Allergies...), in.Exclusions...)

	var out []Entry
	for _, e := range l.Slot(slot) {
		if hasAnyTag(e.Tags, excludedTags) {
			continue
		}
		if in.MaxPrepMinutes > 0 && e.PrepMinutes+e.CookMinutes > in.MaxPrepMinutes {
			continue
		}
		if matchesAny(e, blocked) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func hasAnyTag(tags, wanted []string) bool {
	for _, t := range tags {
		for _, w := range wanted {
			if t == w {
				return true
			}
		}
	}
	return false
}

// matchesAny reports whether any blocked term appears in the entry name,
// primary protein, or an ingredient name.
func matchesAny(e Entry, blocked []string) bool {
	name := strings.ToLower(e.Name)
	protein := strings.ToLower(e.Protein)
	for _, term := range blocked {
		if term == "" {
			continue
		}
		if strings.Contains(name, term) || strings.Contains(protein, term) {
			return true
		}
		for _, ing := range e.Ingredients {
			if strings.Contains(strings.ToLower(ing.Name), term) {
				return true
			}
		}
	}
	return false
}
