// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package nutrition

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pdiddy/plan-engine/internal/httputil"
	"github.com/pdiddy/plan-engine/pkg/types"
)

// offAPIBase is a variable so tests can substitute an httptest server.
var offAPIBase = "https://world.openfoodfacts.org"

// OFFProvider looks foods up in the Open Food Facts search API. It is the
// secondary provider, consulted only when the primary misses.
type OFFProvider struct {
	client *http.Client
}

// NewOFFProvider builds the secondary provider. No API key required.
func NewOFFProvider() *OFFProvider {
	return &OFFProvider{client: &http.Client{Timeout: 15 * time.Second}}
}

// Name identifies the provider on resolved ingredients.
func (p *OFFProvider) Name() string { return "off" }

type offSearchResponse struct {
	Products []struct {
		Code        string `json:"code"`
		ProductName string `json:"product_name"`
		Nutriments  struct {
			EnergyKcal100g float64 `json:"energy-kcal_100g"`
			Proteins100g   float64 `json:"proteins_100g"`
			Carbs100g      float64 `json:"carbohydrates_100g"`
			Fat100g        float64 `json:"fat_100g"`
			Fiber100g      float64 `json:"fiber_100g"`
		} `json:"nutriments"`
	} `json:"products"`
}

// Lookup searches for the name and returns the top product's per-100g macros.
func (p *OFFProvider) Lookup(ctx context.Context, name NormalizedName) (FoodRecord, error) {
	q := url.Values{}
	q.Set("search_terms", name.Query())
	q.Set("json", "1")
	q.Set("page_size", "1")
	q.Set("fields", "code,product_name,nutriments")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		offAPIBase+"/cgi/search.pl?"+q.Encode(), nil)
	if err != nil {
		return FoodRecord{}, fmt.Errorf("building OFF request: %w", err)
	}

	resp, err := httputil.DoWithRetry(ctx, p.client, req, 0)
	if err != nil {
		return FoodRecord{}, fmt.Errorf("OFF search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return FoodRecord{}, fmt.Errorf("OFF search: unexpected status %d", resp.StatusCode)
	}

	var body offSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return FoodRecord{}, fmt.Errorf("decoding OFF response: %w", err)
	}
	if len(body.Products) == 0 {
		return FoodRecord{}, ErrNotFound
	}

	prod := body.Products[0]
	per100 := types.Macros{
		Kcal:     prod.Nutriments.EnergyKcal100g,
		ProteinG: prod.Nutriments.Proteins100g,
		CarbsG:   prod.Nutriments.Carbs100g,
		FatG:     prod.Nutriments.Fat100g,
		FiberG:   prod.Nutriments.Fiber100g,
	}
	if per100.Kcal <= 0 {
		return FoodRecord{}, ErrNotFound
	}

	return FoodRecord{
		FoodID:   prod.Code,
		Provider: p.Name(),
		Name:     prod.ProductName,
		Per100g:  per100,
	}, nil
}
