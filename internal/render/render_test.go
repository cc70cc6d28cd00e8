// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/plan-engine/pkg/types"
)

func samplePlan() types.CompiledMealPlan {
	return types.CompiledMealPlan{
		Days: []types.CompiledDay{{
			DayNumber: 1, DayName: "Monday", IsTrainingDay: true, TargetKcal: 2250,
			Nutrition: types.Macros{Kcal: 2240, ProteinG: 180, CarbsG: 210, FatG: 62, FiberG: 39},
			Meals: []types.CompiledMeal{{
				Slot: types.SlotBreakfast, Name: "Greek Yogurt Bowl", Cuisine: "mediterranean",
				Nutrition:  types.Macros{Kcal: 420, ProteinG: 35, CarbsG: 48, FatG: 10, FiberG: 7},
				Confidence: types.ConfidenceVerified,
			}},
		}},
		WeekTotals: types.Macros{Kcal: 2240, ProteinG: 180, CarbsG: 210, FatG: 62, FiberG: 39},
	}
}

func TestNoopRenderer_ReturnsHTML(t *testing.T) {
	artifact, err := NoopRenderer{}.Render(context.Background(), samplePlan())
	require.NoError(t, err)

	assert.Equal(t, FormatHTML, artifact.Format)
	html := string(artifact.Data)
	assert.Contains(t, html, "Greek Yogurt Bowl")
	assert.Contains(t, html, "TRAINING DAY")
	assert.Contains(t, html, "verified")
	assert.Contains(t, html, "Week Totals")
}

// fakeBrowser counts concurrent renders and serves canned PDF bytes.
type fakeBrowser struct {
	mu         sync.Mutex
	inUse      bool
	printErr   error
	closed     bool
	printDelay time.Duration
	overlapped *atomic.Bool
}

func (f *fakeBrowser) PrintPDF(_ context.Context, html string) ([]byte, error) {
	f.mu.Lock()
	if f.inUse && f.overlapped != nil {
		f.overlapped.Store(true)
	}
	f.inUse = true
	f.mu.Unlock()

	time.Sleep(f.printDelay)

	f.mu.Lock()
	f.inUse = false
	f.mu.Unlock()

	if f.printErr != nil {
		return nil, f.printErr
	}
	return []byte("%PDF " + html[:10]), nil
}

func (f *fakeBrowser) Close() error {
	f.closed = true
	return nil
}

func withFakeLauncher(t *testing.T, launch func() (browser, error)) {
	t.Helper()
	old := launchBrowser
	launchBrowser = launch
	t.Cleanup(func() { launchBrowser = old })
}

func TestChromiumRenderer_RendersPDF(t *testing.T) {
	fake := &fakeBrowser{}
	withFakeLauncher(t, func() (browser, error) { return fake, nil })

	r, err := NewChromiumRenderer(types.RenderConfig{Mode: types.RenderChromium, PoolSize: 1})
	require.NoError(t, err)
	defer r.Close()

	artifact, err := r.Render(context.Background(), samplePlan())
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, artifact.Format)
	assert.NotEmpty(t, artifact.Data)
}

func TestChromiumRenderer_PoolBoundsConcurrency(t *testing.T) {
	var overlapped atomic.Bool
	fake := &fakeBrowser{printDelay: 20 * time.Millisecond, overlapped: &overlapped}
	withFakeLauncher(t, func() (browser, error) { return fake, nil })

	r, err := NewChromiumRenderer(types.RenderConfig{PoolSize: 1})
	require.NoError(t, err)
	defer r.Close()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Render(context.Background(), samplePlan())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.False(t, overlapped.Load(), "a single-browser pool must serialize renders")
}

func TestChromiumRenderer_PrintErrorSurfaces(t *testing.T) {
	fake := &fakeBrowser{printErr: errors.New("target crashed")}
	withFakeLauncher(t, func() (browser, error) { return fake, nil })

	r, err := NewChromiumRenderer(types.RenderConfig{PoolSize: 1})
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Render(context.Background(), samplePlan())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target crashed")

	// The browser must be back in the pool after a failed render.
	fake.printErr = nil
	_, err = r.Render(context.Background(), samplePlan())
	assert.NoError(t, err)
}

func TestChromiumRenderer_LaunchFailureClosesStarted(t *testing.T) {
	first := &fakeBrowser{}
	calls := 0
	withFakeLauncher(t, func() (browser, error) {
		calls++
		if calls == 1 {
			return first, nil
		}
		return nil, errors.New("no chromium binary")
	})

	_, err := NewChromiumRenderer(types.RenderConfig{PoolSize: 2})
	require.Error(t, err)
	assert.True(t, first.closed, "already-launched browsers must be closed on failure")
}

func TestChromiumRenderer_CloseShutsDownAllBrowsers(t *testing.T) {
	var launched []*fakeBrowser
	withFakeLauncher(t, func() (browser, error) {
		b := &fakeBrowser{}
		launched = append(launched, b)
		return b, nil
	})

	r, err := NewChromiumRenderer(types.RenderConfig{PoolSize: 3})
	require.NoError(t, err)
	require.NoError(t, r.Close())

	require.Len(t, launched, 3)
	for _, b := range launched {
		assert.True(t, b.closed)
	}
}

func TestChromiumRenderer_ContextCancelledWhileWaiting(t *testing.T) {
	fake := &fakeBrowser{printDelay: 100 * time.Millisecond}
	withFakeLauncher(t, func() (browser, error) { return fake, nil })

	r, err := NewChromiumRenderer(types.RenderConfig{PoolSize: 1})
	require.NoError(t, err)
	defer r.Close()

	// Occupy the only browser.
	go r.Render(context.Background(), samplePlan())
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = r.Render(ctx, samplePlan())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNew_SelectsRendererByMode(t *testing.T) {
	r, err := New(types.RenderConfig{Mode: types.RenderNoop})
	require.NoError(t, err)
	_, ok := r.(NoopRenderer)
	assert.True(t, ok)
}
