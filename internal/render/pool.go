// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"context"
	"fmt"

	"github.com/pdiddy/plan-engine/pkg/types"
)

// browser is one pooled headless-browser instance.
type browser interface {
	PrintPDF(ctx context.Context, html string) ([]byte, error)
	Close() error
}

// launchBrowser is a variable so tests can substitute a fake instead of
// spawning Chromium.
var launchBrowser = newChromedpBrowser

const defaultPoolSize = 2

// ChromiumRenderer prints plans to PDF through a bounded pool of browsers.
// Renders block while the pool is empty and each browser serves one render
// at a time.
type ChromiumRenderer struct {
	pool chan browser
	all  []browser
}

// NewChromiumRenderer launches the pool. A launch failure closes whatever
// already started and fails construction.
func NewChromiumRenderer(cfg types.RenderConfig) (*ChromiumRenderer, error) {
	size := cfg.PoolSize
	if size <= 0 {
		size = defaultPoolSize
	}

	r := &ChromiumRenderer{pool: make(chan browser, size)}
	for i := 0; i < size; i++ {
		b, err := launchBrowser()
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("launching browser %d of %d: %w", i+1, size, err)
		}
		r.all = append(r.all, b)
		r.pool <- b
	}
	return r, nil
}

// Render acquires a browser, prints the plan, and releases the browser.
func (r *ChromiumRenderer) Render(ctx context.Context, plan types.CompiledMealPlan) (*types.Artifact, error) {
	html, err := renderHTML(plan)
	if err != nil {
		return nil, err
	}

	var b browser
	select {
	case b = <-r.pool:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { r.pool <- b }()

	pdf, err := b.PrintPDF(ctx, html)
	if err != nil {
		return nil, fmt.Errorf("printing plan to PDF: %w", err)
	}
	return &types.Artifact{Format: FormatPDF, Data: pdf}, nil
}

// Close shuts every browser down. Render calls after Close block; callers
// stop rendering before shutdown.
func (r *ChromiumRenderer) Close() error {
	var firstErr error
	for _, b := range r.all {
		if err := b.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
