// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// PipelinePath selects which orchestrator entry point a job uses.
type PipelinePath string

const (
	// PathFull runs all six stages.
	PathFull PipelinePath = "full"
	// PathFast skips recipe curation and reuses a caller-supplied draft.
	PathFast PipelinePath = "fast"
)

// Job is the queue-level unit of work. It carries only identifiers — the
// intake and draft payloads live in the owning service's store and are
// fetched by ID over authenticated HTTP, so no personal data travels
// through the queue.
type Job struct {
	ID   string       `json:"jobId"`
	Path PipelinePath `json:"pipelinePath"`

	// DraftRef identifies an existing draft for the fast path.
	DraftRef string `json:"existingDraftId,omitempty"`

	Attempts    int `json:"-"`
	MaxAttempts int `json:"-"`
}

// JobPayload is what the owning service returns for a job: the raw intake
// submission, plus the existing draft on the fast path.
type JobPayload struct {
	Intake RawIntakeForm  `json:"intake"`
	Draft  *MealPlanDraft `json:"draft,omitempty"`
}

// Progress statuses reported over the side channels.
const (
	ProgressRunning   = "running"
	ProgressSaving    = "saving"
	ProgressCompleted = "completed"
	ProgressFailed    = "failed"
)

// ProgressEvent mirrors the progress report sent to the owning service and
// published on the job's pub/sub topic. Agent carries the pipeline stage
// that produced the event.
type ProgressEvent struct {
	JobID     string    `json:"jobId"`
	Status    string    `json:"status"`
	Agent     string    `json:"agent,omitempty"`
	AgentName string    `json:"agentName,omitempty"`
	Percent   int       `json:"percent,omitempty"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Artifact is a rendered deliverable document.
type Artifact struct {
	Format string `json:"format" yaml:"format"`
	Data   []byte `json:"data" yaml:"data"`
}

// PipelineResult is created once per job execution and never mutated after
// return. On failure only Error is populated; no partial plan is ever
// returned as if successful.
type PipelineResult struct {
	Success bool `json:"success"`

	Plan     *CompiledMealPlan `json:"plan,omitempty"`
	Profile  *MetabolicProfile `json:"profile,omitempty"`
	Draft    *MealPlanDraft    `json:"draft,omitempty"`
	QA       *QAResult         `json:"qa,omitempty"`
	Artifact *Artifact         `json:"artifact,omitempty"`

	// Timings maps stage name to wall-clock duration.
	Timings map[string]time.Duration `json:"timings,omitempty"`

	// Error is a human-readable, redacted failure description.
	Error string `json:"error,omitempty"`
}
