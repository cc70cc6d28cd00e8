// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package worker consumes the job queue and drives jobs through the
// pipeline, fanning progress out and saving results to the owning service.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/pdiddy/plan-engine/internal/httputil"
	"github.com/pdiddy/plan-engine/pkg/types"
)

// SaveRequest is the plan-save body posted to the owning service.
type SaveRequest struct {
	Plan     *types.CompiledMealPlan `json:"plan"`
	Profile  *types.MetabolicProfile `json:"profile"`
	Draft    *types.MealPlanDraft    `json:"draft,omitempty"`
	QA       *types.QAResult         `json:"qa"`
	Artifact *types.Artifact         `json:"artifact,omitempty"`
}

// ServiceClient talks to the owning service's internal job endpoints with
// bearer authentication.
type ServiceClient struct {
	cfg    types.ServiceConfig
	client *http.Client
}

// NewServiceClient builds a client from the service configuration.
func NewServiceClient(cfg types.ServiceConfig) *ServiceClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ServiceClient{cfg: cfg, client: &http.Client{Timeout: timeout}}
}

func (c *ServiceClient) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	return req, nil
}

// FetchPayload retrieves the job's intake, naming the draft to include
// when the job carries one.
func (c *ServiceClient) FetchPayload(ctx context.Context, jobID, draftRef string) (types.JobPayload, error) {
	path := "/internal/jobs/" + jobID + "/payload"
	if draftRef != "" {
		path += "?draftId=" + url.QueryEscape(draftRef)
	}
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return types.JobPayload{}, fmt.Errorf("building payload request: %w", err)
	}
	resp, err := httputil.DoWithRetry(ctx, c.client, req, 0)
	if err != nil {
		return types.JobPayload{}, fmt.Errorf("fetching payload for job %s: %w", jobID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.JobPayload{}, fmt.Errorf("fetching payload for job %s: status %d", jobID, resp.StatusCode)
	}
	var payload types.JobPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return types.JobPayload{}, fmt.Errorf("decoding payload for job %s: %w", jobID, err)
	}
	return payload, nil
}

// ReportProgress posts a progress event. Callers treat failures as
// non-fatal; the report is fire-and-forget.
func (c *ServiceClient) ReportProgress(ctx context.Context, jobID string, ev types.ProgressEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding progress for job %s: %w", jobID, err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/internal/jobs/"+jobID+"/progress", body)
	if err != nil {
		return fmt.Errorf("building progress request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("reporting progress for job %s: %w", jobID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("reporting progress for job %s: status %d", jobID, resp.StatusCode)
	}
	return nil
}

// SavePlan posts the finished plan. Each non-2xx attempt backs off
// base × 2^(n-1) before the next (2 s, 4 s, 8 s with defaults); exhausting
// attempts is a job failure. Returns the stored plan's ID.
func (c *ServiceClient) SavePlan(ctx context.Context, jobID string, save SaveRequest) (string, error) {
	attempts := c.cfg.SaveAttempts
	if attempts <= 0 {
		attempts = 3
	}
	base := c.cfg.SaveBackoffBase
	if base <= 0 {
		base = 2 * time.Second
	}

	body, err := json.Marshal(save)
	if err != nil {
		return "", fmt.Errorf("encoding plan for job %s: %w", jobID, err)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(math.Pow(2, float64(attempt-2))) * base
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		planID, err := c.savePlanOnce(ctx, jobID, body)
		if err == nil {
			return planID, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("saving plan for job %s after %d attempts: %w", jobID, attempts, lastErr)
}

func (c *ServiceClient) savePlanOnce(ctx context.Context, jobID string, body []byte) (string, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/internal/jobs/"+jobID+"/plan", body)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	var out struct {
		PlanID string `json:"planId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding save response: %w", err)
	}
	return out.PlanID, nil
}
