package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/mattyatplay-coder/vibeboard/pkg/logging"
)

const (
	defaultTimeout = 5 * time.Minute
	maxRetries     = 3
	baseRetryDelay = 1 * time.Second
	maxRetryDelay  = 30 * time.Second

	// Generation APIs meter aggressively; one request per second with a
	// small burst stays well under every provider's documented limits.
	defaultRateLimit = rate.Limit(1)
	defaultBurstSize = 5
)

// APIError is an error returned by a provider's HTTP API.
type APIError struct {
	StatusCode int
	Message    string
	Retryable  bool
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// DefaultTransport returns an http.Transport with tuned connection pool settings.
func DefaultTransport() *http.Transport {
	return &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
}

// apiClient is the HTTP layer shared by every cloud adapter: rate limiting,
// retry with exponential backoff honoring Retry-After, and a per-backend
// circuit breaker. Adapters supply the auth header through setAuth.
type apiClient struct {
	baseURL        string
	setAuth        func(*http.Request)
	httpClient     *http.Client
	rateLimiter    *rate.Limiter
	circuitBreaker *CircuitBreaker
	logger         *logging.Logger
	provider       Kind
}

func newAPIClient(kind Kind, baseURL string, setAuth func(*http.Request), logger *logging.Logger) *apiClient {
	return &apiClient{
		baseURL:        baseURL,
		setAuth:        setAuth,
		rateLimiter:    rate.NewLimiter(defaultRateLimit, defaultBurstSize),
		circuitBreaker: NewCircuitBreaker(DefaultCircuitBreakerConfig()),
		logger:         logger,
		provider:       kind,
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: DefaultTransport(),
		},
	}
}

// postJSON sends a JSON body and decodes the JSON response into out. The
// whole call runs under the circuit breaker; retries are applied only to
// retryable statuses (429 and 5xx).
func (c *apiClient) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}
	return c.circuitBreaker.Call(func() error {
		return c.doJSON(ctx, http.MethodPost, path, body, out)
	})
}

// getJSON fetches a JSON document into out.
func (c *apiClient) getJSON(ctx context.Context, path string, out any) error {
	return c.circuitBreaker.Call(func() error {
		return c.doJSON(ctx, http.MethodGet, path, nil, out)
	})
}

func (c *apiClient) doJSON(ctx context.Context, method, path string, body []byte, out any) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay(attempt, lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.setAuth != nil {
			c.setAuth(req)
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			c.logCall(method, path, 0, time.Since(start), err)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr := parseAPIError(resp)
			resp.Body.Close()
			lastErr = apiErr
			c.logCall(method, path, resp.StatusCode, time.Since(start), apiErr)
			if apiErr.Retryable {
				continue
			}
			return apiErr
		}

		c.logCall(method, path, resp.StatusCode, time.Since(start), nil)

		if out == nil {
			resp.Body.Close()
			return nil
		}
		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		return nil
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", maxRetries, lastErr)
}

// download fetches raw bytes, for pulling finished artifacts.
func (c *apiClient) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, parseAPIError(resp)
	}
	return io.ReadAll(resp.Body)
}

// retryDelay computes exponential backoff with jitter, honoring a server
// supplied Retry-After when present.
func (c *apiClient) retryDelay(attempt int, lastErr error) time.Duration {
	if apiErr, ok := lastErr.(*APIError); ok && apiErr.RetryAfter > 0 {
		if apiErr.RetryAfter > maxRetryDelay {
			return maxRetryDelay
		}
		return apiErr.RetryAfter
	}

	delay := baseRetryDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	// Jitter spreads simultaneous retries apart.
	jitter := time.Duration(rand.Float64() * float64(delay) * 0.5)
	return delay*3/4 + jitter
}

func (c *apiClient) logCall(method, path string, status int, elapsed time.Duration, err error) {
	if c.logger == nil {
		return
	}
	fields := map[string]any{
		"provider": string(c.provider),
		"method":   method,
		"path":     path,
		"status":   status,
		"ms":       elapsed.Milliseconds(),
	}
	if err != nil {
		c.logger.Warn(logging.CategoryNetwork, "provider_http", err.Error(), fields)
		return
	}
	c.logger.Debug(logging.CategoryNetwork, "provider_http", "request completed", fields)
}

// parseAPIError turns a non-2xx response into an APIError, consuming the body.
func parseAPIError(resp *http.Response) *APIError {
	retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	message := resp.Status
	if err == nil && len(body) > 0 {
		var errResp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
			Detail  string `json:"detail"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &errResp) == nil {
			switch {
			case errResp.Error.Message != "":
				message = errResp.Error.Message
			case errResp.Detail != "":
				message = errResp.Detail
			case errResp.Message != "":
				message = errResp.Message
			}
		} else {
			raw := string(body)
			if len(raw) > 500 {
				raw = raw[:500] + "..."
			}
			message = fmt.Sprintf("%s (raw: %s)", resp.Status, raw)
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Retryable:  retryable,
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}
}

// parseRetryAfter parses the Retry-After header
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := time.Parse(time.RFC1123, header); err == nil {
		return time.Until(t)
	}
	return 0
}
