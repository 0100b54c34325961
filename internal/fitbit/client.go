// Package fitbit is a small client for the Fitbit Web API endpoints used
// by sync. Every call goes through Client.get, which applies the outbound
// rate limit, bounds the call with a timeout and retries exactly once after
// refreshing the token when Fitbit answers 401.
package fitbit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/sakif/sleepfit-stats/internal/apperror"
	"github.com/sakif/sleepfit-stats/internal/metrics"
)

const (
	DefaultBaseURL         = "https://api.fitbit.com"
	DefaultTimeout         = 15 * time.Second
	DefaultRequestsPerHour = 150

	// maxBodyBytes caps how much of a response is read.
	maxBodyBytes = 4 << 20
)

// Endpoint names used in errors, logs and metrics.
const (
	EndpointSleep      = "sleep"
	EndpointActivities = "activities"
	EndpointHeartRate  = "heart_rate"
)

type ClientConfig struct {
	BaseURL         string
	Timeout         time.Duration
	RequestsPerHour int
	HTTPClient      *http.Client
}

type Client struct {
	baseURL string
	http    *http.Client
	tokens  *TokenManager
	limiter *rate.Limiter
	timeout time.Duration
	logger  *slog.Logger
}

func NewClient(cfg ClientConfig, tokens *TokenManager, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerHour <= 0 {
		cfg.RequestsPerHour = DefaultRequestsPerHour
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    cfg.HTTPClient,
		tokens:  tokens,
		// The full hourly quota may be spent in a burst; after that calls
		// are spaced evenly.
		limiter: rate.NewLimiter(rate.Every(time.Hour/time.Duration(cfg.RequestsPerHour)), cfg.RequestsPerHour),
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// get calls path for userID and decodes the JSON body into out.
//
// A user with no connection gets the Unauthorized error from the token
// manager unchanged. Everything else that goes wrong, including a failed
// refresh, is returned as an *apperror.SyncError naming the endpoint.
func (c *Client) get(ctx context.Context, userID, endpoint, path string, out any) error {
	token, err := c.tokens.AccessToken(ctx, userID)
	if err != nil {
		return err
	}

	status, body, err := c.fetch(ctx, endpoint, path, token)
	if err != nil {
		return c.fail(endpoint, 0, err)
	}

	if status == http.StatusUnauthorized {
		token, err = c.tokens.Refresh(ctx, userID)
		if err != nil {
			return c.fail(endpoint, status, err)
		}
		status, body, err = c.fetch(ctx, endpoint, path, token)
		if err != nil {
			return c.fail(endpoint, 0, err)
		}
	}

	if status != http.StatusOK {
		return c.fail(endpoint, status, errors.New(errorSummary(body)))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return c.fail(endpoint, status, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, endpoint, path, token string) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.FitbitRequests.WithLabelValues(endpoint, metrics.StatusLabel(0)).Inc()
		return 0, nil, err
	}
	defer resp.Body.Close()

	metrics.FitbitRequests.WithLabelValues(endpoint, metrics.StatusLabel(resp.StatusCode)).Inc()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) fail(endpoint string, status int, cause error) error {
	c.logger.Error("fitbit request failed",
		slog.String("endpoint", endpoint),
		slog.Int("status", status),
		slog.String("error", cause.Error()),
	)
	return apperror.SyncFailed(endpoint, status, cause)
}

// errorSummary pulls the first message out of a Fitbit error body
// ({"errors":[{"errorType":..., "message":...}]}), falling back to a
// truncated copy of the body.
func errorSummary(body []byte) string {
	var parsed struct {
		Errors []struct {
			ErrorType string `json:"errorType"`
			Message   string `json:"message"`
		} `json:"errors"`
	}
	if json.Unmarshal(body, &parsed) == nil && len(parsed.Errors) > 0 {
		e := parsed.Errors[0]
		if e.Message != "" {
			return e.ErrorType + ": " + e.Message
		}
		return e.ErrorType
	}

	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	if s == "" {
		return "empty response"
	}
	return s
}
