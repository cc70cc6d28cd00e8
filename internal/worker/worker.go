// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/plan-engine/internal/pipeline"
	"github.com/pdiddy/plan-engine/internal/progress"
	"github.com/pdiddy/plan-engine/internal/queue"
	"github.com/pdiddy/plan-engine/internal/redact"
	"github.com/pdiddy/plan-engine/pkg/types"
)

// Pipeline is the orchestrator surface the worker drives.
type Pipeline interface {
	Run(ctx context.Context, raw types.RawIntakeForm, onProgress pipeline.ProgressFunc) types.PipelineResult
	RunFast(ctx context.Context, raw types.RawIntakeForm, draft types.MealPlanDraft, onProgress pipeline.ProgressFunc) types.PipelineResult
}

// PayloadClient is the owning-service surface the worker needs.
type PayloadClient interface {
	FetchPayload(ctx context.Context, jobID, draftRef string) (types.JobPayload, error)
	ReportProgress(ctx context.Context, jobID string, ev types.ProgressEvent) error
	SavePlan(ctx context.Context, jobID string, save SaveRequest) (string, error)
}

// Worker runs N concurrent queue consumers.
type Worker struct {
	queue  *queue.Queue
	pipe   Pipeline
	client PayloadClient
	hub    *progress.Hub
	log    *zap.Logger

	cfg          types.WorkerConfig
	pollInterval time.Duration
}

// New wires a worker. A nil hub disables pub/sub fan-out; progress still
// reaches the queue snapshot and the owning service.
func New(q *queue.Queue, pipe Pipeline, client PayloadClient, hub *progress.Hub, log *zap.Logger, cfg types.WorkerConfig, pollInterval time.Duration) *Worker {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = 2 * time.Minute
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Worker{queue: q, pipe: pipe, client: client, hub: hub, log: log, cfg: cfg, pollInterval: pollInterval}
}

// Run consumes jobs until ctx is cancelled, then drains in-flight jobs for
// at most DrainTimeout. In-flight jobs get a fresh drain context so lease
// writes and saves still work during shutdown.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("worker starting", zap.Int("concurrency", w.cfg.Concurrency))

	// jobCtx outlives ctx by the drain timeout so in-flight jobs finish.
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	var wg sync.WaitGroup
	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(consumer int) {
			defer wg.Done()
			w.consume(ctx, jobCtx, consumer)
		}(i)
	}

	<-ctx.Done()
	w.log.Info("worker draining", zap.Duration("timeout", w.cfg.DrainTimeout))

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		w.log.Info("worker drained")
		return nil
	case <-time.After(w.cfg.DrainTimeout):
		cancelJobs()
		<-done
		return errors.New("drain timeout exceeded, in-flight jobs aborted")
	}
}

// consume polls for jobs until intake stops, finishing the job in hand.
func (w *Worker) consume(intakeCtx, jobCtx context.Context, consumer int) {
	log := w.log.With(zap.Int("consumer", consumer))
	for {
		select {
		case <-intakeCtx.Done():
			return
		default:
		}

		job, err := w.queue.Dequeue(jobCtx)
		if errors.Is(err, queue.ErrNoJob) {
			select {
			case <-intakeCtx.Done():
				return
			case <-time.After(w.pollInterval):
			}
			continue
		}
		if err != nil {
			log.Error("dequeue failed", zap.Error(err))
			select {
			case <-intakeCtx.Done():
				return
			case <-time.After(w.pollInterval):
			}
			continue
		}

		w.process(jobCtx, job, log)
	}
}

// process runs one job end to end and settles it in the queue. Exactly one
// terminal progress event is published per outcome.
func (w *Worker) process(ctx context.Context, job types.Job, log *zap.Logger) {
	log = log.With(zap.String("jobId", job.ID), zap.String("path", string(job.Path)))
	started := time.Now()

	w.publish(ctx, job.ID, types.ProgressEvent{
		JobID: job.ID, Status: types.ProgressRunning, Percent: 0, Message: "job started",
	})

	payload, err := w.client.FetchPayload(ctx, job.ID, job.DraftRef)
	if err != nil {
		w.fail(ctx, job.ID, fmt.Errorf("fetching payload: %w", err), log)
		return
	}

	onProgress := func(stage string, percent int) {
		w.publish(ctx, job.ID, types.ProgressEvent{
			JobID: job.ID, Status: types.ProgressRunning,
			Agent: stage, AgentName: stage, Percent: percent,
		})
	}

	var result types.PipelineResult
	if job.Path == types.PathFast {
		// The fast path exists so meal selection does not change; without
		// the draft there is nothing to reuse and re-curating would betray
		// the caller's intent.
		if payload.Draft == nil {
			w.fail(ctx, job.ID,
				fmt.Errorf("fast path requires draft %q but the owning service returned none", job.DraftRef), log)
			return
		}
		result = w.pipe.RunFast(ctx, payload.Intake, *payload.Draft, onProgress)
	} else {
		result = w.pipe.Run(ctx, payload.Intake, onProgress)
	}

	if !result.Success {
		w.fail(ctx, job.ID, errors.New(result.Error), log)
		return
	}

	w.publish(ctx, job.ID, types.ProgressEvent{
		JobID: job.ID, Status: types.ProgressSaving, Percent: 100, Message: "saving plan",
	})

	planID, err := w.client.SavePlan(ctx, job.ID, SaveRequest{
		Plan: result.Plan, Profile: result.Profile, Draft: result.Draft,
		QA: result.QA, Artifact: result.Artifact,
	})
	if err != nil {
		w.fail(ctx, job.ID, fmt.Errorf("saving plan: %w", err), log)
		return
	}

	if err := w.queue.Complete(ctx, job.ID); err != nil {
		log.Error("completing job failed", zap.Error(err))
	}
	w.publish(ctx, job.ID, types.ProgressEvent{
		JobID: job.ID, Status: types.ProgressCompleted, Percent: 100,
		Message: "plan " + planID + " saved",
	})
	log.Info("job succeeded",
		zap.String("planId", planID), zap.Duration("elapsed", time.Since(started)))
}

// fail settles a failed attempt. The queue decides between retry and
// dead-letter; the terminal "failed" event is published only on dead-letter,
// so live subscribers see it once per job, never per retry.
func (w *Worker) fail(ctx context.Context, jobID string, cause error, log *zap.Logger) {
	reason := redact.Error(cause)
	dead, err := w.queue.Fail(ctx, jobID, reason)
	if err != nil {
		log.Error("failing job failed", zap.Error(err))
		return
	}
	if dead {
		w.publish(ctx, jobID, types.ProgressEvent{
			JobID: jobID, Status: types.ProgressFailed, Error: reason,
		})
		log.Warn("job failed", zap.String("reason", reason))
		return
	}
	w.publish(ctx, jobID, types.ProgressEvent{
		JobID: jobID, Status: types.ProgressRunning,
		Message: "attempt failed, retrying", Error: reason,
	})
	log.Warn("job attempt failed, will retry", zap.String("reason", reason))
}

// publish fans an event out to the queue snapshot, the pub/sub hub, and the
// owning service. The side channels are best-effort: their failures never
// fail the job.
func (w *Worker) publish(ctx context.Context, jobID string, ev types.ProgressEvent) {
	ev.Timestamp = time.Now().UTC()

	if err := w.queue.UpdateProgress(ctx, jobID, ev); err != nil {
		w.log.Debug("progress snapshot update failed", zap.String("jobId", jobID), zap.Error(err))
	}
	if w.hub != nil {
		w.hub.Publish(progress.Topic(jobID), ev)
	}
	if err := w.client.ReportProgress(ctx, jobID, ev); err != nil {
		w.log.Debug("progress report failed", zap.String("jobId", jobID), zap.Error(err))
	}
}
