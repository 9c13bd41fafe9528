// Package upstream holds the HTTP clients for the services this API relays to.
package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"AthleteAPI/internal/apperr"
	"AthleteAPI/internal/config"
	"AthleteAPI/internal/logger"
	"AthleteAPI/internal/metrics"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
)

const aiServiceName = "ai-service"

// response is what passes through the breaker; 4xx answers are not failures.
type response struct {
	status int
	body   []byte
}

type serverError struct {
	status int
}

func (e *serverError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.status)
}

// AIClient talks to the Python analysis service.
type AIClient struct {
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[*response]
}

func NewAIClient(cfg config.UpstreamConfig) *AIClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	metrics.CircuitBreakerState.WithLabelValues(aiServiceName).Set(0)

	cb := gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
		Name:        aiServiceName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// клиент ушёл сам, сервис тут ни при чём
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit_breaker_state", map[string]any{
				"name": name,
				"from": from.String(),
				"to":   to.String(),
			})
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})

	return &AIClient{
		baseURL: cfg.PythonAPIURL,
		http:    &http.Client{Timeout: timeout},
		cb:      cb,
	}
}

// MockSummary fetches the canned athlete summary (GET /process/mock).
func (c *AIClient) MockSummary(ctx context.Context) (any, error) {
	return c.do(ctx, http.MethodGet, "/process/mock", nil)
}

// Process submits a finalized session for analysis (POST /process).
func (c *AIClient) Process(ctx context.Context, payload any) (any, error) {
	return c.do(ctx, http.MethodPost, "/process", payload)
}

func (c *AIClient) do(ctx context.Context, method, path string, payload any) (any, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", path, err)
		}
		body = bytes.NewReader(raw)
	}

	resp, err := c.cb.Execute(func() (*response, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		res, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer res.Body.Close()

		data, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, err
		}
		if res.StatusCode >= http.StatusInternalServerError {
			return nil, &serverError{status: res.StatusCode}
		}
		return &response{status: res.StatusCode, body: data}, nil
	})
	if err != nil {
		result := "failure"
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			result = "rejected"
		case errors.Is(err, context.Canceled):
			result = "canceled"
		}
		metrics.CircuitBreakerRequests.WithLabelValues(aiServiceName, result).Inc()
		logger.Error("upstream_failed", map[string]any{
			"service": aiServiceName,
			"method":  method,
			"path":    path,
			"error":   err.Error(),
		})
		return nil, apperr.Upstream(aiServiceName, err)
	}
	metrics.CircuitBreakerRequests.WithLabelValues(aiServiceName, "success").Inc()

	if resp.status >= http.StatusBadRequest {
		return nil, apperr.Upstream(aiServiceName, fmt.Errorf("%s %s: status %d", method, path, resp.status))
	}

	var out any
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return nil, apperr.Upstream(aiServiceName, fmt.Errorf("decode %s response: %w", path, err))
	}
	return out, nil
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
