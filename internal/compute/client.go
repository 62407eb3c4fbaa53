package compute

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/promptcraft/server/internal/model"
)

// ─────────────────────────────────────────────
// Errors
// ─────────────────────────────────────────────

var (
	// ErrSubmission means task creation was rejected or acknowledged
	// with an unexpected response shape.
	ErrSubmission = errors.New("task submission failed")

	// ErrPollTransport means a poll attempt failed at the transport level
	// (network error, per-attempt timeout, non-2xx status). It is raised
	// immediately and never retried: a failing backend must surface as a
	// failure, not masquerade as a slow task.
	ErrPollTransport = errors.New("poll transport failure")

	// ErrPollTimeout means the attempt budget ran out without the task
	// reaching Completed.
	ErrPollTimeout = errors.New("task did not complete within the poll budget")
)

// ─────────────────────────────────────────────
// Poll Policy
// ─────────────────────────────────────────────

// PollPolicy bounds one submit→result cycle. The worst-case latency a caller
// must budget for is MaxAttempts × (Interval + RequestTimeout).
type PollPolicy struct {
	MaxAttempts    int           // attempts before ErrPollTimeout
	Interval       time.Duration // sleep after an incomplete attempt
	RequestTimeout time.Duration // per-request deadline (submit and poll)
}

// DefaultPollPolicy matches the production pipeline latency envelope.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{
		MaxAttempts:    15,
		Interval:       2 * time.Second,
		RequestTimeout: 10 * time.Second,
	}
}

// ─────────────────────────────────────────────
// Client
// ─────────────────────────────────────────────

// Client submits jobs to the remote compute agent and polls for their
// results. One agent pipeline serves both generation and evaluation; the
// request body tells it which to run.
type Client struct {
	baseURL    string
	pipelineID string
	policy     PollPolicy
	httpClient *http.Client
}

// NewClient creates a compute client for the given pipeline.
func NewClient(baseURL, pipelineID string, policy PollPolicy) *Client {
	return &Client{
		baseURL:    baseURL,
		pipelineID: pipelineID,
		policy:     policy,
		httpClient: &http.Client{},
	}
}

// submitResponse is the task-creation acknowledgement.
// Field casing follows the agent service wire format.
type submitResponse struct {
	Message string `json:"Message"`
	TaskID  string `json:"Task_id"`
}

// pollResponse is one poll snapshot.
type pollResponse struct {
	Status string            `json:"status"`
	Result *model.TaskResult `json:"result"`
}

// Submit creates a task and returns its ID. A task ID exists only after a
// successful submission; callers never poll without one.
func (c *Client) Submit(ctx context.Context, req model.TaskRequest) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"input":         req.Input,
		"image or text": string(req.ContentType),
		"output":        req.Reference,
	})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", ErrSubmission, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.policy.RequestTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/execute/result/%s", c.baseURL, c.pipelineID)
	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmission, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmission, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d", ErrSubmission, resp.StatusCode)
	}

	var ack submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrSubmission, err)
	}
	if ack.Message != "task created successfully" || ack.TaskID == "" {
		return "", fmt.Errorf("%w: unexpected acknowledgement %q", ErrSubmission, ack.Message)
	}

	log.Printf("[compute] task created: kind=%s id=%s", req.Kind, ack.TaskID)
	return ack.TaskID, nil
}

// Poll fetches the task result under the client's poll policy. An attempt
// that reports an incomplete task consumes budget and is followed by the
// interval delay; a transport-level failure aborts immediately with
// ErrPollTransport. Exhausting the budget yields ErrPollTimeout.
func (c *Client) Poll(ctx context.Context, taskID string) (*model.TaskResult, error) {
	url := fmt.Sprintf("%s/session/result/%s", c.baseURL, taskID)

	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		snapshot, err := c.pollOnce(ctx, url)
		if err != nil {
			log.Printf("[compute] poll attempt %d/%d task=%s aborted: %v",
				attempt, c.policy.MaxAttempts, taskID, err)
			return nil, err
		}

		// Completion requires task_output to be present, not non-empty: a
		// completed task with an empty output list is returned as-is so the
		// caller can reject it at once instead of waiting out the budget.
		if snapshot.Status == "Completed" && snapshot.Result != nil && snapshot.Result.TaskOutput != nil {
			log.Printf("[compute] task %s completed after %d attempt(s)", taskID, attempt)
			return snapshot.Result, nil
		}

		select {
		case <-time.After(c.policy.Interval):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrPollTransport, ctx.Err())
		}
	}

	return nil, fmt.Errorf("%w: task=%s attempts=%d", ErrPollTimeout, taskID, c.policy.MaxAttempts)
}

// pollOnce issues a single status request under its own deadline.
func (c *Client) pollOnce(ctx context.Context, url string) (*pollResponse, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.policy.RequestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPollTransport, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPollTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrPollTransport, resp.StatusCode)
	}

	var snapshot pollResponse
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrPollTransport, err)
	}
	return &snapshot, nil
}
