package activation

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"agent-service/pkg/config"
)

// DefaultTrigger is sent to the vendor when the caller supplies no trigger
// phrase of its own.
const DefaultTrigger = "START"

// Result is the outcome of an activation request. The activation step is
// best-effort: a failure degrades to an empty payload instead of surfacing
// as an error, and the orchestrator branches on Degraded explicitly.
type Result struct {
	Payload  string
	Degraded bool
	Reason   string
}

// Ok reports whether the vendor returned a usable activation image.
func (r Result) Ok() bool {
	return !r.Degraded
}

// Client requests scannable activation images from the activation vendor.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates an activation client from immutable configuration.
func NewClient(cfg *config.ActivationConfig) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type activationRequest struct {
	AgentID     string `json:"agent_id"`
	AgentName   string `json:"agent_name"`
	TriggerCode string `json:"trigger_code"`
}

// Request asks the vendor for an activation image bound to the given agent.
// The call is idempotent and may be repeated at any time with the same
// inputs to regenerate the image. On success the payload is a data URI
// suitable for direct use as an image source.
func (c *Client) Request(ctx context.Context, agentID, agentName, triggerCode string) Result {
	if agentID == "" || agentName == "" {
		return Result{Degraded: true, Reason: "agent id and name are required"}
	}
	if triggerCode == "" {
		triggerCode = DefaultTrigger
	}

	payload, err := json.Marshal(activationRequest{
		AgentID:     agentID,
		AgentName:   agentName,
		TriggerCode: triggerCode,
	})
	if err != nil {
		return Result{Degraded: true, Reason: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/v1/activation-codes", c.baseURL), bytes.NewReader(payload))
	if err != nil {
		return Result{Degraded: true, Reason: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{Degraded: true, Reason: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Degraded: true, Reason: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		return Result{Degraded: true, Reason: fmt.Sprintf("activation vendor returned %d: %s", resp.StatusCode, string(body))}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}

	uri := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(body))
	return Result{Payload: uri}
}
