package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastClient(kind Kind, baseURL string) *apiClient {
	c := newAPIClient(kind, baseURL, nil, nil)
	c.rateLimiter.SetLimit(1000)
	c.rateLimiter.SetBurst(1000)
	return c
}

func TestPostJSONDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"id": "task-1"}`))
	}))
	defer srv.Close()

	var out struct {
		ID string `json:"id"`
	}
	c := fastClient(KindFal, srv.URL)
	err := c.postJSON(context.Background(), "/submit", map[string]string{"prompt": "x"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "task-1", out.ID)
}

func TestDoJSONRetriesOn500(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, `{"message": "flaky"}`, http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	c := fastClient(KindReplicate, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out struct {
		OK bool `json:"ok"`
	}
	err := c.getJSON(ctx, "/thing", &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDoJSONDoesNotRetryOn400(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error": {"message": "bad prompt"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := fastClient(KindOpenAI, srv.URL)
	err := c.getJSON(context.Background(), "/thing", nil)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "bad prompt", apiErr.Message)
	assert.False(t, apiErr.Retryable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 7*time.Second, parseRetryAfter("7"))
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, time.Duration(0), parseRetryAfter("garbage"))
}

func TestParseAPIErrorMessageShapes(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"error": {"message": "nested"}}`, "nested"},
		{`{"detail": "flat detail"}`, "flat detail"},
		{`{"message": "flat message"}`, "flat message"},
	}
	for _, tt := range tests {
		resp := httptest.NewRecorder()
		resp.Code = http.StatusBadRequest
		resp.Body.WriteString(tt.body)
		got := parseAPIError(resp.Result())
		assert.Equal(t, tt.want, got.Message)
	}
}

func TestCircuitBreakerOpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: 20 * time.Millisecond})
	boom := errors.New("boom")

	require.Error(t, cb.Call(func() error { return boom }))
	assert.Equal(t, "closed", cb.State())
	require.Error(t, cb.Call(func() error { return boom }))
	assert.Equal(t, "open", cb.State())

	// Open circuit rejects without invoking the function.
	invoked := false
	err := cb.Call(func() error { invoked = true; return nil })
	require.Error(t, err)
	assert.False(t, invoked)
}

func TestCircuitBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: 10 * time.Millisecond})
	require.Error(t, cb.Call(func() error { return errors.New("boom") }))
	require.Equal(t, "open", cb.State())

	time.Sleep(15 * time.Millisecond)
	require.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, "closed", cb.State())
	assert.Equal(t, uint32(0), cb.FailureCount())
}

func TestCircuitBreakerReopensOnHalfOpenFailure(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: 10 * time.Millisecond})
	require.Error(t, cb.Call(func() error { return errors.New("boom") }))

	time.Sleep(15 * time.Millisecond)
	require.Error(t, cb.Call(func() error { return errors.New("still down") }))
	assert.Equal(t, "open", cb.State())
}
