// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package nutrition

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pdiddy/plan-engine/internal/httputil"
	"github.com/pdiddy/plan-engine/pkg/types"
)

// fdcAPIBase is a variable so tests can substitute an httptest server.
var fdcAPIBase = "https://api.nal.usda.gov/fdc/v1"

// FoodData Central nutrient numbers for the macros we track.
const (
	fdcNutrientKcal    = 1008
	fdcNutrientProtein = 1003
	fdcNutrientFat     = 1004
	fdcNutrientCarbs   = 1005
	fdcNutrientFiber   = 1079
)

// FDCProvider looks foods up in the USDA FoodData Central search API.
// Values come back per 100 g.
type FDCProvider struct {
	apiKey string
	client *http.Client
}

// NewFDCProvider builds the primary provider with the given API key.
func NewFDCProvider(apiKey string) *FDCProvider {
	return &FDCProvider{
		apiKey: apiKey,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Name identifies the provider on resolved ingredients.
func (p *FDCProvider) Name() string { return "fdc" }

type fdcSearchResponse struct {
	Foods []struct {
		FDCID         int64  `json:"fdcId"`
		Description   string `json:"description"`
		FoodNutrients []struct {
			NutrientID int64   `json:"nutrientId"`
			Value      float64 `json:"value"`
		} `json:"foodNutrients"`
	} `json:"foods"`
}

// Lookup searches for the name and returns the top hit's per-100g macros.
func (p *FDCProvider) Lookup(ctx context.Context, name NormalizedName) (FoodRecord, error) {
	q := url.Values{}
	q.Set("api_key", p.apiKey)
	q.Set("query", name.Query())
	q.Set("pageSize", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fdcAPIBase+"/foods/search?"+q.Encode(), nil)
	if err != nil {
		return FoodRecord{}, fmt.Errorf("building FDC request: %w", err)
	}

	resp, err := httputil.DoWithRetry(ctx, p.client, req, 0)
	if err != nil {
		return FoodRecord{}, fmt.Errorf("FDC search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return FoodRecord{}, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return FoodRecord{}, fmt.Errorf("FDC search: unexpected status %d", resp.StatusCode)
	}

	var body fdcSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return FoodRecord{}, fmt.Errorf("decoding FDC response: %w", err)
	}
	if len(body.Foods) == 0 {
		return FoodRecord{}, ErrNotFound
	}

	food := body.Foods[0]
	var per100 types.Macros
	for _, n := range food.FoodNutrients {
		switch n.NutrientID {
		case fdcNutrientKcal:
			per100.Kcal = n.Value
		case fdcNutrientProtein:
			per100.ProteinG = n.Value
		case fdcNutrientCarbs:
			per100.CarbsG = n.Value
		case fdcNutrientFat:
			per100.FatG = n.Value
		case fdcNutrientFiber:
			per100.FiberG = n.Value
		}
	}
	if per100.Kcal <= 0 {
		return FoodRecord{}, ErrNotFound
	}

	return FoodRecord{
		FoodID:   strconv.FormatInt(food.FDCID, 10),
		Provider: p.Name(),
		Name:     food.Description,
		Per100g:  per100,
	}, nil
}
