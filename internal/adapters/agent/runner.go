// Package agent provides an HTTP adapter to the external browser automation agent.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/applyflow/applyflow-api/internal/core"
	"github.com/applyflow/applyflow-api/internal/domain/model"
)

const (
	runPath = "/run"

	// maxResultBodyBytes caps stored runner results to avoid oversized rows.
	maxResultBodyBytes = 64 * 1024
	// maxErrorBodyBytes caps error payloads captured from non-2xx responses.
	maxErrorBodyBytes = 4 * 1024
)

// RunnerOptions configures the agent runner adapter.
type RunnerOptions struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Runner dispatches application runs to the browser automation agent over HTTP.
// The agent is opaque: one blocking POST per run, result or error back.
type Runner struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

var _ core.AutomationRunner = (*Runner)(nil)

// NewRunner creates a new agent runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("agent base URL is required")
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 20 * time.Minute}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		baseURL: baseURL,
		http:    hc,
		logger:  logger.With("component", "agent_runner"),
	}, nil
}

// runRequest is the wire payload sent to the agent. Credentials ride along
// decrypted; the payload must never be logged.
type runRequest struct {
	ApplicationID string            `json:"application_id"`
	JobURL        string            `json:"job_url"`
	Email         string            `json:"email"`
	Profile       model.Profile     `json:"profile"`
	Credentials   map[string]string `json:"credentials,omitempty"`
}

// Run submits one application run and blocks until the agent responds or ctx ends.
func (r *Runner) Run(ctx context.Context, input core.RunInput) (*core.RunResult, error) {
	body, err := json.Marshal(runRequest{
		ApplicationID: input.ApplicationID,
		JobURL:        input.JobURL,
		Email:         input.Email,
		Profile:       input.Profile,
		Credentials:   input.Credentials,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal run request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+runPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build run request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	r.logger.InfoContext(ctx, "dispatching run to agent",
		"application_id", input.ApplicationID,
		"job_url", input.JobURL,
	)

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send run request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, readErr := readLimited(resp.Body, maxErrorBodyBytes)
		if readErr != nil {
			return nil, fmt.Errorf("agent returned status %d (body unreadable: %v)", resp.StatusCode, readErr)
		}
		return nil, fmt.Errorf("agent returned status %d: %s", resp.StatusCode, strings.TrimSpace(msg))
	}

	raw, err := readLimited(resp.Body, maxResultBodyBytes)
	if err != nil {
		return nil, fmt.Errorf("read agent response: %w", err)
	}

	return &core.RunResult{Raw: []byte(raw)}, nil
}

func readLimited(body io.Reader, limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(body, limit))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
