// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render turns a compiled plan into a branded deliverable. The real
// renderer prints the HTML template to PDF through a bounded pool of
// headless browsers; NoopRenderer serves tests and browserless hosts.
package render

import (
	"context"

	"github.com/pdiddy/plan-engine/pkg/types"
)

// Artifact formats.
const (
	FormatPDF  = "pdf"
	FormatHTML = "html"
)

// Renderer produces the deliverable artifact for a compiled plan.
type Renderer interface {
	Render(ctx context.Context, plan types.CompiledMealPlan) (*types.Artifact, error)
	Close() error
}

// NoopRenderer skips the browser and returns the HTML document itself.
type NoopRenderer struct{}

// Render returns the branded HTML as the artifact.
func (NoopRenderer) Render(_ context.Context, plan types.CompiledMealPlan) (*types.Artifact, error) {
	html, err := renderHTML(plan)
	if err != nil {
		return nil, err
	}
	return &types.Artifact{Format: FormatHTML, Data: []byte(html)}, nil
}

// Close is a no-op.
func (NoopRenderer) Close() error { return nil }

// New builds the renderer for the configured mode.
func New(cfg types.RenderConfig) (Renderer, error) {
	if cfg.Mode == types.RenderChromium {
		return NewChromiumRenderer(cfg)
	}
	return NoopRenderer{}, nil
}
