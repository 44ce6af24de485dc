// Package aiservice implements the resilient client for the upstream AI
// recommendation and chat service.
package aiservice

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"ghostlore.app/config"
	"ghostlore.app/errors"
)

const (
	recommendationsPath = "/ai/recommendations"
	twinMessagePath     = "/ai/twin/message"
	healthPath          = "/health"
)

// ClientInterface defines the upstream AI operations
type ClientInterface interface {
	GenerateRecommendations(ctx context.Context, req *RecommendationRequest) (*RecommendationResponse, error)
	SendTwinMessage(ctx context.Context, req *TwinMessageRequest) (*TwinMessageResponse, error)
	HealthCheck(ctx context.Context) bool
}

// Client talks to the AI service over HTTP with bounded retry. Failures
// classified as unavailable are terminal and surface immediately so callers
// can fall back; anything else is retried with exponential backoff.
type Client struct {
	baseURL      string
	client       *http.Client
	healthClient *http.Client
	maxRetries   int
	retryDelay   time.Duration
}

// NewClient creates an AI service client from configuration
func NewClient(cfg *config.AIServiceConfig) *Client {
	return &Client{
		baseURL:      cfg.BaseURL,
		client:       &http.Client{Timeout: cfg.Timeout()},
		healthClient: &http.Client{Timeout: time.Duration(cfg.HealthTimeout) * time.Millisecond},
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay(),
	}
}

// GenerateRecommendations requests scored content suggestions for a user
func (c *Client) GenerateRecommendations(ctx context.Context, req *RecommendationRequest) (*RecommendationResponse, error) {
	var resp RecommendationResponse
	err := c.retryRequest(ctx, "recommendations", func() error {
		return c.post(ctx, recommendationsPath, req, &resp)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendTwinMessage sends one conversational message to the digital twin
func (c *Client) SendTwinMessage(ctx context.Context, req *TwinMessageRequest) (*TwinMessageResponse, error) {
	var resp TwinMessageResponse
	err := c.retryRequest(ctx, "twin message", func() error {
		return c.post(ctx, twinMessagePath, req, &resp)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// HealthCheck probes the AI service readiness endpoint with a short timeout,
// off the request path.
func (c *Client) HealthCheck(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return false
	}

	resp, err := c.healthClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

// retryRequest drives the retry loop. Unavailability is terminal: no
// response is coming from a down service, so retrying only burns the
// caller's latency budget. Other failures back off as base*2^(attempt-1).
func (c *Client) retryRequest(ctx context.Context, operation string, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		var appErr *errors.AppError
		if stderrors.As(lastErr, &appErr) && appErr.Type == errors.AIUnavailableError {
			return lastErr
		}

		if attempt == c.maxRetries {
			break
		}

		delay := c.retryDelay * (1 << (attempt - 1))
		slog.Warn("AI service request failed, retrying",
			"operation", operation, "attempt", attempt, "delay", delay, "error", lastErr)

		select {
		case <-ctx.Done():
			return errors.NewAIServiceError("request canceled", ctx.Err())
		case <-time.After(delay):
		}
	}

	return errors.NewAIServiceError(
		fmt.Sprintf("failed to get %s after %d attempts", operation, c.maxRetries), lastErr)
}

func (c *Client) post(ctx context.Context, path string, body, dest interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return errors.NewAIServiceError("failed to encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return errors.NewAIServiceError("failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return c.classifyTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusServiceUnavailable {
		return errors.NewAIUnavailableError("AI service reported unavailable", nil)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.NewAIServiceError(
			fmt.Sprintf("AI service returned status %d", resp.StatusCode), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return errors.NewAIServiceError("failed to decode AI service response", err)
	}

	return nil
}

// classifyTransportError separates a slow service from a dead one: request
// timeouts are retried, while connection-level failures mean nobody is
// listening and are surfaced as unavailable.
func (c *Client) classifyTransportError(err error) error {
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.NewAIServiceError("AI service request timed out", err)
	}
	return errors.NewAIUnavailableError("AI service is unreachable", err)
}
