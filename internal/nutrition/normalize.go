// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package nutrition resolves draft ingredient lines against food-data
// providers and compiles verified nutrition totals bottom-up.
package nutrition

import "strings"

// NormalizedName is an ingredient name reduced to its lookup identity:
// a lowercase base name plus a cooked/raw basis flag. "Quinoa, Cooked" and
// "Cooked Quinoa" normalize to the same value.
type NormalizedName struct {
	Key    string
	Cooked bool
}

// CacheKey is the two-tier cache key for the name. Cooked and raw records
// for the same food never collide.
func (n NormalizedName) CacheKey() string {
	if n.Cooked {
		return n.Key + "|cooked"
	}
	return n.Key + "|raw"
}

// Query is the free-text search term sent to providers.
func (n NormalizedName) Query() string {
	if n.Cooked {
		return n.Key + ", cooked"
	}
	return n.Key
}

// nameAliases maps exact normalized names to their lookup identity. Grains
// and starches where cooked- and dry-basis macros differ ~3× are pinned here
// explicitly; the word-order rule below is only the general fallback. "Hard
// Boiled Egg"-style names that merely contain a cooking word stay untouched.
var nameAliases = map[string]NormalizedName{
	"quinoa, cooked":      {Key: "quinoa", Cooked: true},
	"cooked quinoa":       {Key: "quinoa", Cooked: true},
	"rice, cooked":        {Key: "rice", Cooked: true},
	"cooked rice":         {Key: "rice", Cooked: true},
	"white rice, cooked":  {Key: "white rice", Cooked: true},
	"cooked white rice":   {Key: "white rice", Cooked: true},
	"brown rice, cooked":  {Key: "brown rice", Cooked: true},
	"cooked brown rice":   {Key: "brown rice", Cooked: true},
	"pasta, cooked":       {Key: "pasta", Cooked: true},
	"cooked pasta":        {Key: "pasta", Cooked: true},
	"oatmeal, cooked":     {Key: "oatmeal", Cooked: true},
	"cooked oatmeal":      {Key: "oatmeal", Cooked: true},
	"lentils, cooked":     {Key: "lentils", Cooked: true},
	"cooked lentils":      {Key: "lentils", Cooked: true},
	"couscous, cooked":    {Key: "couscous", Cooked: true},
	"cooked couscous":     {Key: "couscous", Cooked: true},
	"buckwheat, cooked":   {Key: "buckwheat", Cooked: true},
	"cooked buckwheat":    {Key: "buckwheat", Cooked: true},
	"sweet potato, baked": {Key: "sweet potato", Cooked: true},
	"baked sweet potato":  {Key: "sweet potato", Cooked: true},
}

// NormalizeName lowercases, trims, and extracts the cooked/raw state from an
// ingredient name. Known cooked forms resolve through the explicit alias map;
// otherwise both word orders of the cooked form are recognized so the lookup
// lands on cooked-basis records, not the raw grain or grown weight.
func NormalizeName(raw string) NormalizedName {
	name := strings.ToLower(strings.TrimSpace(raw))
	name = strings.Join(strings.Fields(name), " ")

	if n, ok := nameAliases[name]; ok {
		return n
	}

	cooked := false
	for {
		switch {
		case strings.HasSuffix(name, ", cooked"):
			name = strings.TrimSuffix(name, ", cooked")
			cooked = true
		case strings.HasSuffix(name, " cooked"):
			name = strings.TrimSuffix(name, " cooked")
			cooked = true
		case strings.HasPrefix(name, "cooked "):
			name = strings.TrimPrefix(name, "cooked ")
			cooked = true
		case strings.HasSuffix(name, ", raw"):
			name = strings.TrimSuffix(name, ", raw")
		case strings.HasPrefix(name, "raw "):
			name = strings.TrimPrefix(name, "raw ")
		default:
			return NormalizedName{Key: strings.TrimSpace(name), Cooked: cooked}
		}
		name = strings.TrimSpace(name)
	}
}
