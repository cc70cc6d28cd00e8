// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package nutrition

import (
	"fmt"
	"strings"
)

const (
	gramsPerOunce = 28.3495
	gramsPerPound = 453.59237
	mlPerTbsp     = 15
	mlPerTsp      = 5
	mlPerCup      = 240
)

// oilDensity is grams per milliliter for culinary oils; everything else is
// treated as water-dense for volume conversions.
const oilDensity = 0.92

// pieceWeights maps a food key to the gram weight of one piece. Keys are
// matched by substring so "large egg" resolves through "egg".
var pieceWeights = map[string]float64{
	"egg":      50,
	"banana":   118,
	"apple":    182,
	"orange":   131,
	"avocado":  150,
	"tortilla": 45,
	"pita":     60,
	"bagel":    95,
	"bread":    40,
	"date":     24,
}

const defaultPieceWeight = 100

// GramsFor converts a quantity in the given unit to grams for the food
// identified by key. Volume units use the food's density; piece units use a
// per-food weight table. Unknown units are an error and leave the line
// unmatched rather than guessed at.
func GramsFor(quantity float64, unit, key string) (float64, error) {
	if quantity <= 0 {
		return 0, fmt.Errorf("non-positive quantity %v", quantity)
	}
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "g", "gram", "grams":
		return quantity, nil
	case "kg":
		return quantity * 1000, nil
	case "oz":
		return quantity * gramsPerOunce, nil
	case "lb", "lbs":
		return quantity * gramsPerPound, nil
	case "ml":
		return quantity * density(key), nil
	case "l":
		return quantity * 1000 * density(key), nil
	case "tbsp":
		return quantity * mlPerTbsp * density(key), nil
	case "tsp":
		return quantity * mlPerTsp * density(key), nil
	case "cup", "cups":
		return quantity * mlPerCup * density(key), nil
	case "piece", "pieces", "each", "unit", "whole":
		return quantity * pieceWeight(key), nil
	default:
		return 0, fmt.Errorf("unknown unit %q", unit)
	}
}

func density(key string) float64 {
	if isOil(key) {
		return oilDensity
	}
	return 1.0
}

func pieceWeight(key string) float64 {
	for food, grams := range pieceWeights {
		if strings.Contains(key, food) {
			return grams
		}
	}
	return defaultPieceWeight
}

// isOil reports whether the food key names a culinary oil.
func isOil(key string) bool {
	return strings.Contains(key, "oil") || strings.Contains(key, "ghee")
}
