// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/pdiddy/issue-digest/internal/httputil"
	"github.com/pdiddy/issue-digest/pkg/types"
)

// claudeAPIURL is the Claude API endpoint. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

// transientBackoffBase controls the base duration for the transient-error
// retry inside a single Complete call. Tests override this to avoid real sleeps.
var transientBackoffBase = time.Second

const defaultCallTimeout = 90 * time.Second

// ClaudeBackend calls the Claude Messages API. One backend instance is shared
// by concurrent extraction calls; it carries no per-call state (prd005 R2.4).
type ClaudeBackend struct {
	cfg    types.AIConfig
	client *http.Client
}

// NewClaudeBackend builds a backend from AI settings. A nil client uses
// http.DefaultClient; the per-call timeout comes from cfg.CallTimeout.
func NewClaudeBackend(cfg types.AIConfig, client *http.Client) *ClaudeBackend {
	if client == nil {
		client = http.DefaultClient
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &ClaudeBackend{cfg: cfg, client: client}
}

// Model returns the configured model identifier.
func (c *ClaudeBackend) Model() string {
	return c.cfg.Model
}

// claudeRequest is the request body for the Claude Messages API.
type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
}

// claudeMessage is a single message in the Claude API conversation.
type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// claudeResponse is the response body from the Claude Messages API.
type claudeResponse struct {
	Content []claudeContent `json:"content"`
	Usage   claudeUsage     `json:"usage"`
}

// claudeContent is a content block in the Claude API response.
type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// claudeUsage is the billing record in the Claude API response.
type claudeUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Complete sends one prompt to the Claude API and returns the text of the
// first text block. Transient failures (network errors, HTTP 5xx) are retried
// up to cfg.MaxRetries times with exponential backoff; rate limiting (429) is
// handled inside httputil.DoWithRetry. A non-OK status after retries, or an
// empty response, is an error.
func (c *ClaudeBackend) Complete(ctx context.Context, prompt string) (string, Usage, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * transientBackoffBase
			select {
			case <-ctx.Done():
				return "", Usage{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		text, usage, retryable, err := c.completeOnce(ctx, prompt)
		if err == nil {
			return text, usage, nil
		}
		lastErr = err
		if !retryable {
			return "", Usage{}, err
		}
	}
	return "", Usage{}, fmt.Errorf("after %d retries: %w", c.cfg.MaxRetries, lastErr)
}

func (c *ClaudeBackend) completeOnce(ctx context.Context, prompt string) (string, Usage, bool, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	reqBody := claudeRequest{
		Model:     c.cfg.Model,
		MaxTokens: 4096,
		Messages: []claudeMessage{
			{Role: "user", Content: prompt},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", Usage{}, false, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, claudeAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", Usage{}, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := httputil.DoWithRetry(callCtx, c.client, req, 0)
	if err != nil {
		// Network errors and timeouts are transient.
		return "", Usage{}, true, fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		retryable := resp.StatusCode >= 500
		return "", Usage{}, retryable, fmt.Errorf("Claude API returned %d: %s", resp.StatusCode, string(body))
	}

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return "", Usage{}, false, fmt.Errorf("decoding Claude response: %w", err)
	}

	usage := Usage{
		InputTokens:  cResp.Usage.InputTokens,
		OutputTokens: cResp.Usage.OutputTokens,
	}

	for _, block := range cResp.Content {
		if block.Type != "text" || block.Text == "" {
			continue
		}
		return block.Text, usage, false, nil
	}

	return "", Usage{}, false, fmt.Errorf("Claude API returned no text content")
}
