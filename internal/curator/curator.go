// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package curator produces weekly meal-plan drafts, either through a
// generation model or a deterministic library rotation, and enforces the
// variety constraints on both paths.
package curator

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/plan-engine/pkg/types"
)

// Curator generates meal-plan drafts. A nil backend (or UseLLM=false)
// makes the deterministic generator the only path.
type Curator struct {
	backend ModelBackend
	lib     *Library
	cfg     types.CuratorConfig
}

// New builds a curator over the embedded meal library.
func New(backend ModelBackend, cfg types.CuratorConfig) (*Curator, error) {
	lib, err := LoadLibrary()
	if err != nil {
		return nil, err
	}
	return &Curator{backend: backend, lib: lib, cfg: cfg}, nil
}

// Curate produces a draft for the intake. Model-path failures of any kind —
// call errors, unparseable output, variety violations — fall through to the
// deterministic generator and are recorded on the draft, never surfaced as a
// hard failure.
func (c *Curator) Curate(ctx context.Context, in types.Intake, profile types.MetabolicProfile) (types.MealPlanDraft, error) {
	var fallbackReason string

	if c.cfg.UseLLM && c.backend != nil {
		draft, err := c.generateLLM(ctx, in, profile)
		if err == nil {
			return draft, nil
		}
		fallbackReason = err.Error()
	}

	draft, err := generateDeterministic(c.lib, c.cfg.Seed, in, profile)
	if err != nil {
		return types.MealPlanDraft{}, err
	}
	draft.FallbackReason = fallbackReason

	if violations := Scan(draft.Days); len(violations) > 0 {
		return types.MealPlanDraft{}, fmt.Errorf(
			"generated draft violates variety constraints: %s", strings.Join(violations, "; "))
	}
	return draft, nil
}

// generateLLM runs the model path end to end: prompt, retry, parse, scan.
func (c *Curator) generateLLM(ctx context.Context, in types.Intake, profile types.MetabolicProfile) (types.MealPlanDraft, error) {
	maxRetries := c.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 2
	}

	raw, err := callWithRetry(ctx, c.backend, buildPrompt(in, profile), maxRetries)
	if err != nil {
		return types.MealPlanDraft{}, fmt.Errorf("model generation failed: %w", err)
	}

	draft, err := parseDraft(raw, in, profile)
	if err != nil {
		return types.MealPlanDraft{}, err
	}

	if violations := Scan(draft.Days); len(violations) > 0 {
		return types.MealPlanDraft{}, fmt.Errorf(
			"model draft violates variety constraints: %s", strings.Join(violations, "; "))
	}
	return draft, nil
}
