// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/plan-engine/internal/curator"
	"github.com/pdiddy/plan-engine/internal/nutrition"
	"github.com/pdiddy/plan-engine/internal/pipeline"
	"github.com/pdiddy/plan-engine/internal/render"
	"github.com/pdiddy/plan-engine/pkg/types"
)

// loadConfig assembles the pipeline configuration from the config file, the
// PLAN_ENGINE_* environment, and the secrets directory.
func loadConfig() types.PipelineConfig {
	v := viper.GetViper()
	v.SetDefault("queue.path", "plan-engine-queue.db")
	v.SetDefault("queue.max_attempts", 3)
	v.SetDefault("queue.lock_duration", "5m")
	v.SetDefault("queue.retry_backoff_base", "5s")
	v.SetDefault("queue.poll_interval", "1s")
	v.SetDefault("service.save_attempts", 3)
	v.SetDefault("service.save_backoff_base", "2s")
	v.SetDefault("curator.model", "gemini-1.5-pro")
	v.SetDefault("curator.location", "us-central1")
	v.SetDefault("curator.max_retries", 2)
	v.SetDefault("nutrition.cache_size", 2048)
	v.SetDefault("nutrition.cache_path", "plan-engine-foods.db")
	v.SetDefault("qa.pass_threshold", 70.0)
	v.SetDefault("render.mode", string(types.RenderNoop))
	v.SetDefault("render.pool_size", 2)
	v.SetDefault("worker.concurrency", 2)
	v.SetDefault("worker.drain_timeout", "2m")
	v.SetDefault("worker.listen_addr", ":8390")

	return types.PipelineConfig{
		Service: types.ServiceConfig{
			BaseURL:         v.GetString("service.base_url"),
			Token:           secretDefault("service-token", v.GetString("service.token")),
			SaveAttempts:    v.GetInt("service.save_attempts"),
			SaveBackoffBase: v.GetDuration("service.save_backoff_base"),
		},
		Queue: types.QueueConfig{
			Path:             v.GetString("queue.path"),
			MaxAttempts:      v.GetInt("queue.max_attempts"),
			LockDuration:     v.GetDuration("queue.lock_duration"),
			RetryBackoffBase: v.GetDuration("queue.retry_backoff_base"),
			PollInterval:     v.GetDuration("queue.poll_interval"),
		},
		Curator: types.CuratorConfig{
			UseLLM:          v.GetBool("curator.use_llm"),
			Model:           v.GetString("curator.model"),
			ProjectID:       secretDefault("vertex-project-id", v.GetString("curator.project_id")),
			Location:        v.GetString("curator.location"),
			CredentialsFile: v.GetString("curator.credentials_file"),
			MaxRetries:      v.GetInt("curator.max_retries"),
			Seed:            v.GetInt64("curator.seed"),
		},
		Nutrition: types.NutritionConfig{
			FDCAPIKey: secretDefault("fdc-api-key", v.GetString("nutrition.fdc_api_key")),
			CacheSize: v.GetInt("nutrition.cache_size"),
			CachePath: v.GetString("nutrition.cache_path"),
		},
		QA: types.QAConfig{
			PassThreshold: v.GetFloat64("qa.pass_threshold"),
		},
		Render: types.RenderConfig{
			Mode:     types.RenderMode(v.GetString("render.mode")),
			PoolSize: v.GetInt("render.pool_size"),
		},
		Worker: types.WorkerConfig{
			Concurrency:  v.GetInt("worker.concurrency"),
			DrainTimeout: v.GetDuration("worker.drain_timeout"),
			ListenAddr:   v.GetString("worker.listen_addr"),
		},
	}
}

// buildOrchestrator wires pipeline stages from configuration. The returned
// cleanup releases the curator backend, the cache, and the renderer.
func buildOrchestrator(ctx context.Context, cfg types.PipelineConfig) (*pipeline.Orchestrator, func(), error) {
	var backend curator.ModelBackend
	var closeBackend func() error
	if cfg.Curator.UseLLM {
		if cfg.Curator.ProjectID == "" {
			return nil, nil, fmt.Errorf("curator.use_llm requires a vertex-project-id secret or curator.project_id")
		}
		vb, err := curator.NewVertexBackend(ctx, cfg.Curator)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting generation backend: %w", err)
		}
		backend = vb
		closeBackend = vb.Close
	}

	cur, err := curator.New(backend, cfg.Curator)
	if err != nil {
		return nil, nil, err
	}

	var shared nutrition.SharedStore
	if cfg.Nutrition.CachePath != "" {
		shared, err = nutrition.OpenSQLiteStore(cfg.Nutrition.CachePath)
		if err != nil {
			return nil, nil, err
		}
	}
	cache, err := nutrition.NewCache(cfg.Nutrition.CacheSize, shared)
	if err != nil {
		return nil, nil, err
	}

	var providers []nutrition.FoodProvider
	if cfg.Nutrition.FDCAPIKey != "" {
		providers = append(providers, nutrition.NewFDCProvider(cfg.Nutrition.FDCAPIKey))
	}
	providers = append(providers, nutrition.NewOFFProvider())
	compiler := nutrition.NewCompiler(cache, providers...)

	renderer, err := render.New(cfg.Render)
	if err != nil {
		cache.Close()
		return nil, nil, err
	}

	cleanup := func() {
		renderer.Close()
		cache.Close()
		if closeBackend != nil {
			closeBackend()
		}
	}
	return pipeline.New(cur, compiler, renderer, cfg.QA), cleanup, nil
}

// progressPrinter renders stage completion for one-shot runs.
func progressPrinter() pipeline.ProgressFunc {
	start := time.Now()
	return func(stage string, percent int) {
		fmt.Printf("  [%3d%%] %-12s %s\n", percent, stage, time.Since(start).Round(time.Millisecond))
	}
}
