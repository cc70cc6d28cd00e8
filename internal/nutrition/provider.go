// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package nutrition

import (
	"context"
	"errors"

	"github.com/pdiddy/plan-engine/pkg/types"
)

// ErrNotFound is returned by providers when no record matches the query.
// The compiler treats it as a soft miss and tries the next tier.
var ErrNotFound = errors.New("food not found")

// FoodRecord is a provider hit: identity plus macros per 100 g of the food
// in the looked-up state (cooked records carry cooked-basis values).
type FoodRecord struct {
	FoodID   string       `json:"foodId"`
	Provider string       `json:"provider"`
	Name     string       `json:"name"`
	Per100g  types.Macros `json:"per100g"`
}

// FoodProvider resolves a normalized ingredient name to a food record.
type FoodProvider interface {
	Name() string
	Lookup(ctx context.Context, name NormalizedName) (FoodRecord, error)
}
