// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline sequences the six plan-generation stages and owns the
// timing and progress bookkeeping around them.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/pdiddy/plan-engine/internal/curator"
	"github.com/pdiddy/plan-engine/internal/intake"
	"github.com/pdiddy/plan-engine/internal/metabolic"
	"github.com/pdiddy/plan-engine/internal/nutrition"
	"github.com/pdiddy/plan-engine/internal/qa"
	"github.com/pdiddy/plan-engine/internal/redact"
	"github.com/pdiddy/plan-engine/internal/render"
	"github.com/pdiddy/plan-engine/pkg/types"
)

// Stage names, in execution order.
const (
	StageIntake      = "intake"
	StageMetabolic   = "metabolic"
	StageCuration    = "curation"
	StageCompilation = "compilation"
	StageQA          = "qa"
	StageRender      = "render"
)

var fullStages = []string{StageIntake, StageMetabolic, StageCuration, StageCompilation, StageQA, StageRender}

// ProgressFunc is invoked after every stage with the stage name and the
// cumulative percent complete.
type ProgressFunc func(stage string, percent int)

// Orchestrator runs drafts through curation, compilation, QA, and rendering.
type Orchestrator struct {
	curator  *curator.Curator
	compiler *nutrition.Compiler
	renderer render.Renderer
	qaCfg    types.QAConfig
}

// New wires an orchestrator from its stage implementations.
func New(c *curator.Curator, compiler *nutrition.Compiler, renderer render.Renderer, qaCfg types.QAConfig) *Orchestrator {
	return &Orchestrator{curator: c, compiler: compiler, renderer: renderer, qaCfg: qaCfg}
}

// Run executes all six stages. Any stage error produces a structured
// failure result with a redacted error and no partial plan.
func (o *Orchestrator) Run(ctx context.Context, raw types.RawIntakeForm, onProgress ProgressFunc) types.PipelineResult {
	return o.run(ctx, raw, nil, onProgress)
}

// RunFast reuses a caller-supplied draft, skipping curation. The draft must
// already satisfy the variety constraints; it is not re-scanned.
func (o *Orchestrator) RunFast(ctx context.Context, raw types.RawIntakeForm, draft types.MealPlanDraft, onProgress ProgressFunc) types.PipelineResult {
	return o.run(ctx, raw, &draft, onProgress)
}

func (o *Orchestrator) run(ctx context.Context, raw types.RawIntakeForm, existing *types.MealPlanDraft, onProgress ProgressFunc) types.PipelineResult {
	result := types.PipelineResult{Timings: make(map[string]time.Duration)}

	report := stageReporter(onProgress)
	fail := func(stage string, err error) types.PipelineResult {
		return types.PipelineResult{
			Timings: result.Timings,
			Error:   fmt.Sprintf("stage %s: %s", stage, redact.Error(err)),
		}
	}

	started := time.Now()
	in, err := intake.Normalize(raw)
	result.Timings[StageIntake] = time.Since(started)
	if err != nil {
		return fail(StageIntake, err)
	}
	report(StageIntake)

	started = time.Now()
	profile := metabolic.Calculate(in)
	result.Timings[StageMetabolic] = time.Since(started)
	result.Profile = &profile
	report(StageMetabolic)

	started = time.Now()
	var draft types.MealPlanDraft
	if existing != nil {
		draft = *existing
	} else {
		draft, err = o.curator.Curate(ctx, in, profile)
		if err != nil {
			result.Timings[StageCuration] = time.Since(started)
			return fail(StageCuration, err)
		}
	}
	result.Timings[StageCuration] = time.Since(started)
	result.Draft = &draft
	report(StageCuration)

	started = time.Now()
	plan, err := o.compiler.Compile(ctx, draft)
	result.Timings[StageCompilation] = time.Since(started)
	if err != nil {
		return fail(StageCompilation, err)
	}
	result.Plan = &plan
	report(StageCompilation)

	started = time.Now()
	qaResult := qa.Evaluate(plan, profile, o.qaCfg.PassThreshold)
	result.Timings[StageQA] = time.Since(started)
	result.QA = &qaResult
	report(StageQA)

	started = time.Now()
	artifact, err := o.renderer.Render(ctx, plan)
	result.Timings[StageRender] = time.Since(started)
	if err != nil {
		return fail(StageRender, err)
	}
	result.Artifact = artifact
	report(StageRender)

	result.Success = true
	return result
}

// stageReporter converts the ordered stage list into cumulative percentages.
// A nil callback reports nowhere.
func stageReporter(onProgress ProgressFunc) func(stage string) {
	if onProgress == nil {
		return func(string) {}
	}
	return func(stage string) {
		for i, name := range fullStages {
			if name == stage {
				onProgress(stage, (i+1)*100/len(fullStages))
				return
			}
		}
	}
}
