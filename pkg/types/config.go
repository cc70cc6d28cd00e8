// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings for components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "plan-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// ServiceConfig holds settings for calls to the owning service (intake fetch,
// progress reports, plan save).
type ServiceConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the owning service root, e.g. "https://app.internal".
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Token is the bearer token for all owning-service calls.
	Token string `json:"token,omitempty" yaml:"token,omitempty"`

	// SaveAttempts is the number of plan-save attempts before the job fails
	// (default 3).
	SaveAttempts int `json:"save_attempts" yaml:"save_attempts"`

	// SaveBackoffBase is the base delay for save retries; attempt n waits
	// base*2^n, i.e. 2s, 4s, 8s with the default of 2s.
	SaveBackoffBase time.Duration `json:"save_backoff_base" yaml:"save_backoff_base"`
}

// QueueConfig holds settings for the durable job queue.
type QueueConfig struct {
	// Path is the SQLite database file backing the queue.
	Path string `json:"path" yaml:"path"`

	// MaxAttempts is how many times a job may run before dead-lettering
	// (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// LockDuration is the dequeue lease. It must exceed worst-case pipeline
	// latency — generation plus render can legitimately take over a minute —
	// or a concurrent worker will reclaim a live job (default 5m).
	LockDuration time.Duration `json:"lock_duration" yaml:"lock_duration"`

	// RetryBackoffBase is the base delay before a failed job becomes
	// runnable again; attempt n waits base*2^(n-1) (default 5s).
	RetryBackoffBase time.Duration `json:"retry_backoff_base" yaml:"retry_backoff_base"`

	// PollInterval is how often an idle consumer re-checks for work
	// (default 1s).
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`
}

// CuratorConfig holds settings for recipe generation.
type CuratorConfig struct {
	// UseLLM enables the model-backed generator; the deterministic library
	// generator is always available as the fallback.
	UseLLM bool `json:"use_llm" yaml:"use_llm"`

	// Model is the generation model identifier (e.g. "gemini-1.5-pro").
	Model string `json:"model" yaml:"model"`

	// ProjectID and Location select the Vertex AI project.
	ProjectID string `json:"project_id,omitempty" yaml:"project_id,omitempty"`
	Location  string `json:"location,omitempty" yaml:"location,omitempty"`

	// CredentialsFile optionally points at a service-account key file.
	CredentialsFile string `json:"credentials_file,omitempty" yaml:"credentials_file,omitempty"`

	// MaxRetries is the number of retry attempts for failed model calls
	// before falling back to the deterministic generator (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// Seed fixes the deterministic generator's rotation. Zero derives the
	// seed from the intake so repeated runs stay reproducible per client.
	Seed int64 `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// NutritionConfig holds settings for ingredient resolution.
type NutritionConfig struct {
	HTTPConfig `yaml:",inline"`

	// FDCAPIKey authenticates against the primary food-database provider.
	FDCAPIKey string `json:"fdc_api_key,omitempty" yaml:"fdc_api_key,omitempty"`

	// CacheSize bounds the in-process LRU tier (default 2048 entries).
	CacheSize int `json:"cache_size" yaml:"cache_size"`

	// CachePath is the SQLite file backing the shared cache tier.
	CachePath string `json:"cache_path" yaml:"cache_path"`
}

// QAConfig holds settings for plan validation.
type QAConfig struct {
	// PassThreshold is the minimum aggregate score for PASS (default 70).
	PassThreshold float64 `json:"pass_threshold" yaml:"pass_threshold"`
}

// RenderMode selects the renderer implementation.
type RenderMode string

const (
	RenderChromium RenderMode = "chromium"
	RenderNoop     RenderMode = "noop"
)

// RenderConfig holds settings for document rendering.
type RenderConfig struct {
	// Mode selects the renderer: chromium (pooled headless browser) or noop.
	Mode RenderMode `json:"mode" yaml:"mode"`

	// PoolSize bounds the browser pool (default 2).
	PoolSize int `json:"pool_size" yaml:"pool_size"`
}

// WorkerConfig holds settings for the job worker process.
type WorkerConfig struct {
	// Concurrency is the number of jobs processed at once (default 2).
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// DrainTimeout bounds how long shutdown waits for in-flight jobs
	// (default 2m).
	DrainTimeout time.Duration `json:"drain_timeout" yaml:"drain_timeout"`

	// ListenAddr is the progress/health HTTP listen address (default :8390).
	ListenAddr string `json:"listen_addr" yaml:"listen_addr"`
}

// PipelineConfig groups all component configurations.
type PipelineConfig struct {
	Service   ServiceConfig   `json:"service" yaml:"service"`
	Queue     QueueConfig     `json:"queue" yaml:"queue"`
	Curator   CuratorConfig   `json:"curator" yaml:"curator"`
	Nutrition NutritionConfig `json:"nutrition" yaml:"nutrition"`
	QA        QAConfig        `json:"qa" yaml:"qa"`
	Render    RenderConfig    `json:"render" yaml:"render"`
	Worker    WorkerConfig    `json:"worker" yaml:"worker"`
}
