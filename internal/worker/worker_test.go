// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package worker

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/plan-engine/internal/curator"
	"github.com/pdiddy/plan-engine/internal/nutrition"
	"github.com/pdiddy/plan-engine/internal/pipeline"
	"github.com/pdiddy/plan-engine/internal/progress"
	"github.com/pdiddy/plan-engine/internal/queue"
	"github.com/pdiddy/plan-engine/internal/render"
	"github.com/pdiddy/plan-engine/pkg/types"
)

func testPayload() types.JobPayload {
	bf := 18.0
	return types.JobPayload{Intake: types.RawIntakeForm{
		Sex: "male", Age: 30,
		HeightCm: 180, WeightKg: 85, BodyFatPercent: &bf,
		GoalType: "cut", GoalRate: 1.0,
		ActivityLevel: "moderately_active",
		TrainingDays:  []string{"monday", "wednesday", "friday"},
		MealsPerDay:   4, SnacksPerDay: 1,
	}}
}

// fakeClient is an in-memory owning service.
type fakeClient struct {
	mu          sync.Mutex
	payloads    map[string]types.JobPayload
	fetchErr    error
	failFetches int // fetches to fail before succeeding
	saveErr     error

	draftRefs []string
	events    []types.ProgressEvent
	saves     []SaveRequest
}

func (f *fakeClient) FetchPayload(_ context.Context, jobID, draftRef string) (types.JobPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draftRefs = append(f.draftRefs, draftRef)
	if f.fetchErr != nil {
		return types.JobPayload{}, f.fetchErr
	}
	if f.failFetches > 0 {
		f.failFetches--
		return types.JobPayload{}, errors.New("status 503")
	}
	return f.payloads[jobID], nil
}

func (f *fakeClient) ReportProgress(_ context.Context, _ string, ev types.ProgressEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeClient) SavePlan(_ context.Context, _ string, save SaveRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return "", f.saveErr
	}
	f.saves = append(f.saves, save)
	return "plan-123", nil
}

func (f *fakeClient) snapshotEvents() []types.ProgressEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.ProgressEvent(nil), f.events...)
}

func (f *fakeClient) snapshotSaves() []SaveRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SaveRequest(nil), f.saves...)
}

func (f *fakeClient) snapshotDraftRefs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.draftRefs...)
}

func terminalEvents(events []types.ProgressEvent) []types.ProgressEvent {
	var out []types.ProgressEvent
	for _, ev := range events {
		if ev.Status == types.ProgressCompleted || ev.Status == types.ProgressFailed {
			out = append(out, ev)
		}
	}
	return out
}

func testQueue(t *testing.T, maxAttempts int) *queue.Queue {
	t.Helper()
	q, err := queue.Open(types.QueueConfig{
		Path:             filepath.Join(t.TempDir(), "queue.db"),
		MaxAttempts:      maxAttempts,
		LockDuration:     time.Minute,
		RetryBackoffBase: time.Hour, // retries never become visible within a test
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { q.Close() })
	return q
}

func testPipeline(t *testing.T) Pipeline {
	t.Helper()
	c, err := curator.New(nil, types.CuratorConfig{Seed: 11})
	require.NoError(t, err)
	cache, err := nutrition.NewCache(64, nil)
	require.NoError(t, err)
	return pipeline.New(c, nutrition.NewCompiler(cache), render.NoopRenderer{}, types.QAConfig{})
}

// runUntil runs the worker until cond holds, then shuts it down.
func runUntil(t *testing.T, w *Worker, cond func() bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, cond, 10*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not drain")
	}
}

func TestWorker_JobLifecycle(t *testing.T) {
	q := testQueue(t, 3)
	hub := progress.NewHub()
	defer hub.Close()
	client := &fakeClient{payloads: map[string]types.JobPayload{"job-1": testPayload()}}

	require.NoError(t, q.Enqueue(context.Background(), types.Job{ID: "job-1", Path: types.PathFull}))

	w := New(q, testPipeline(t), client, hub, nil, types.WorkerConfig{Concurrency: 2, DrainTimeout: 5 * time.Second}, 10*time.Millisecond)
	runUntil(t, w, func() bool { return len(client.snapshotSaves()) == 1 })

	saves := client.snapshotSaves()
	require.Len(t, saves, 1)
	require.NotNil(t, saves[0].Plan)
	require.NotNil(t, saves[0].Profile)
	require.NotNil(t, saves[0].QA)
	require.NotNil(t, saves[0].Artifact)

	// 7 days of 4 meals + 1 snack.
	require.Len(t, saves[0].Plan.Days, 7)
	for _, day := range saves[0].Plan.Days {
		assert.Len(t, day.Meals, 5)
	}
	// Training days carry strictly higher calorie targets.
	for _, day := range saves[0].Plan.Days {
		if day.IsTrainingDay {
			assert.Greater(t, day.TargetKcal, saves[0].Profile.GoalKcal)
		} else {
			assert.Equal(t, saves[0].Profile.GoalKcal, day.TargetKcal)
		}
	}

	events := client.snapshotEvents()
	terminals := terminalEvents(events)
	require.Len(t, terminals, 1, "exactly one terminal event per job outcome")
	assert.Equal(t, types.ProgressCompleted, terminals[0].Status)
	assert.Contains(t, terminals[0].Message, "plan-123")

	// Stage progress flowed through before completion.
	var stages []string
	for _, ev := range events {
		if ev.Agent != "" {
			stages = append(stages, ev.Agent)
		}
	}
	assert.Contains(t, stages, pipeline.StageCuration)
	assert.Contains(t, stages, pipeline.StageRender)

	// The queue settled: nothing left to claim, snapshot shows completed.
	_, err := q.Dequeue(context.Background())
	assert.ErrorIs(t, err, queue.ErrNoJob)
	snap, err := q.GetProgress(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, types.ProgressCompleted, snap.Status)
}

func TestWorker_ValidationFailureFailsJob(t *testing.T) {
	q := testQueue(t, 1)
	client := &fakeClient{payloads: map[string]types.JobPayload{}}
	payload := testPayload()
	payload.Intake.Age = 9
	client.payloads["job-1"] = payload

	require.NoError(t, q.Enqueue(context.Background(), types.Job{ID: "job-1", Path: types.PathFull}))

	w := New(q, testPipeline(t), client, nil, nil, types.WorkerConfig{Concurrency: 1, DrainTimeout: 5 * time.Second}, 10*time.Millisecond)
	runUntil(t, w, func() bool { return len(terminalEvents(client.snapshotEvents())) == 1 })

	terminals := terminalEvents(client.snapshotEvents())
	require.Len(t, terminals, 1)
	assert.Equal(t, types.ProgressFailed, terminals[0].Status)
	assert.Contains(t, terminals[0].Error, "stage intake")
	assert.Empty(t, client.snapshotSaves())

	// Single attempt allowed, so the job dead-lettered.
	letters, err := q.DeadLetters(context.Background())
	require.NoError(t, err)
	require.Len(t, letters, 1)
	assert.Equal(t, "job-1", letters[0].JobID)
}

func TestWorker_SaveFailureFailsJob(t *testing.T) {
	q := testQueue(t, 1)
	client := &fakeClient{
		payloads: map[string]types.JobPayload{"job-1": testPayload()},
		saveErr:  errors.New("service unavailable: Bearer tok-999"),
	}

	require.NoError(t, q.Enqueue(context.Background(), types.Job{ID: "job-1", Path: types.PathFull}))

	w := New(q, testPipeline(t), client, nil, nil, types.WorkerConfig{Concurrency: 1, DrainTimeout: 5 * time.Second}, 10*time.Millisecond)
	runUntil(t, w, func() bool { return len(terminalEvents(client.snapshotEvents())) == 1 })

	terminals := terminalEvents(client.snapshotEvents())
	require.Len(t, terminals, 1)
	assert.Equal(t, types.ProgressFailed, terminals[0].Status)
	assert.Contains(t, terminals[0].Error, "saving plan")
	assert.NotContains(t, terminals[0].Error, "tok-9", "bearer tokens must not leak into progress events")
}

func TestWorker_FetchFailureFailsJob(t *testing.T) {
	q := testQueue(t, 1)
	client := &fakeClient{fetchErr: errors.New("status 503")}

	require.NoError(t, q.Enqueue(context.Background(), types.Job{ID: "job-1", Path: types.PathFull}))

	w := New(q, testPipeline(t), client, nil, nil, types.WorkerConfig{Concurrency: 1, DrainTimeout: 5 * time.Second}, 10*time.Millisecond)
	runUntil(t, w, func() bool { return len(terminalEvents(client.snapshotEvents())) == 1 })

	terminals := terminalEvents(client.snapshotEvents())
	require.Len(t, terminals, 1)
	assert.Contains(t, terminals[0].Error, "fetching payload")
}

func TestWorker_FastPathReusesDraft(t *testing.T) {
	q := testQueue(t, 3)
	client := &fakeClient{payloads: map[string]types.JobPayload{}}

	// Produce a draft with the full pipeline first.
	pipe := testPipeline(t)
	full := pipe.Run(context.Background(), testPayload().Intake, nil)
	require.True(t, full.Success, full.Error)

	payload := testPayload()
	payload.Draft = full.Draft
	client.payloads["job-2"] = payload

	require.NoError(t, q.Enqueue(context.Background(), types.Job{ID: "job-2", Path: types.PathFast, DraftRef: "draft-1"}))

	w := New(q, pipe, client, nil, nil, types.WorkerConfig{Concurrency: 1, DrainTimeout: 5 * time.Second}, 10*time.Millisecond)
	runUntil(t, w, func() bool { return len(client.snapshotSaves()) == 1 })

	saves := client.snapshotSaves()
	require.Len(t, saves, 1)
	assert.Equal(t, full.Plan.WeekTotals, saves[0].Plan.WeekTotals,
		"fast path must compile the supplied draft")
	assert.Contains(t, client.snapshotDraftRefs(), "draft-1",
		"payload fetch must name the draft")
}

func TestWorker_FastPathWithoutDraftFailsJob(t *testing.T) {
	q := testQueue(t, 1)
	// Payload intentionally lacks the draft the job references.
	client := &fakeClient{payloads: map[string]types.JobPayload{"job-3": testPayload()}}

	require.NoError(t, q.Enqueue(context.Background(), types.Job{ID: "job-3", Path: types.PathFast, DraftRef: "draft-gone"}))

	w := New(q, testPipeline(t), client, nil, nil, types.WorkerConfig{Concurrency: 1, DrainTimeout: 5 * time.Second}, 10*time.Millisecond)
	runUntil(t, w, func() bool { return len(terminalEvents(client.snapshotEvents())) == 1 })

	terminals := terminalEvents(client.snapshotEvents())
	require.Len(t, terminals, 1)
	assert.Equal(t, types.ProgressFailed, terminals[0].Status)
	assert.Contains(t, terminals[0].Error, "fast path requires draft")
	assert.Contains(t, terminals[0].Error, "draft-gone")
	assert.Empty(t, client.snapshotSaves(), "a fast-path job must never re-curate meals")
}

func TestWorker_RetryThenSuccessReportsCompletedOnce(t *testing.T) {
	q, err := queue.Open(types.QueueConfig{
		Path:             filepath.Join(t.TempDir(), "queue.db"),
		MaxAttempts:      3,
		LockDuration:     time.Minute,
		RetryBackoffBase: time.Millisecond,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { q.Close() })

	client := &fakeClient{
		payloads:    map[string]types.JobPayload{"job-1": testPayload()},
		failFetches: 2,
	}
	require.NoError(t, q.Enqueue(context.Background(), types.Job{ID: "job-1", Path: types.PathFull}))

	w := New(q, testPipeline(t), client, nil, nil, types.WorkerConfig{Concurrency: 1, DrainTimeout: 5 * time.Second}, 10*time.Millisecond)
	runUntil(t, w, func() bool { return len(client.snapshotSaves()) == 1 })

	terminals := terminalEvents(client.snapshotEvents())
	require.Len(t, terminals, 1, "one job outcome, one terminal event")
	assert.Equal(t, types.ProgressCompleted, terminals[0].Status)
	for _, ev := range client.snapshotEvents() {
		assert.NotEqual(t, types.ProgressFailed, ev.Status,
			"a job that eventually succeeds must never report failed")
	}

	// Each retried attempt only reported a non-terminal retrying update.
	var retrying int
	for _, ev := range client.snapshotEvents() {
		if ev.Status == types.ProgressRunning && ev.Error != "" {
			retrying++
		}
	}
	assert.Equal(t, 2, retrying)
}

func TestWorker_ConcurrentJobs(t *testing.T) {
	q := testQueue(t, 3)
	client := &fakeClient{payloads: map[string]types.JobPayload{
		"job-1": testPayload(), "job-2": testPayload(), "job-3": testPayload(),
	}}
	for _, id := range []string{"job-1", "job-2", "job-3"} {
		require.NoError(t, q.Enqueue(context.Background(), types.Job{ID: id, Path: types.PathFull}))
	}

	w := New(q, testPipeline(t), client, nil, nil, types.WorkerConfig{Concurrency: 2, DrainTimeout: 5 * time.Second}, 10*time.Millisecond)
	runUntil(t, w, func() bool { return len(client.snapshotSaves()) == 3 })

	assert.Len(t, terminalEvents(client.snapshotEvents()), 3)
}
