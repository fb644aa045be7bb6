package resilience

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(threshold int) *Client {
	cfg := DefaultClientConfig()
	cfg.Timeout = 2 * time.Second
	cfg.Breaker.Enabled = true
	cfg.Breaker.FailureThreshold = threshold
	cfg.Breaker.RecoveryTimeout = time.Minute
	return NewClient(cfg, nil, nil)
}

// dropConnection closes the connection without writing a response
func dropConnection(w http.ResponseWriter) {
	if hj, ok := w.(http.Hijacker); ok {
		if conn, _, err := hj.Hijack(); err == nil {
			conn.Close()
		}
	}
}

func TestClientDoSendsRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "30", r.URL.Query().Get("days"))

		body, _ := io.ReadAll(r.Body)
		var payload map[string]string
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "value", payload["key"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := testClient(5)
	resp, err := client.Do(context.Background(), Request{
		Provider: "test",
		Method:   http.MethodPost,
		URL:      server.URL + "/path",
		Query:    map[string][]string{"days": {"30"}},
		Headers:  map[string]string{"Authorization": "Bearer abc"},
		Body:     map[string]string{"key": "value"},
	})

	require.NoError(t, err)
	assert.True(t, resp.OK())

	var out struct{ OK bool }
	require.NoError(t, resp.DecodeJSON(&out))
	assert.True(t, out.OK)
}

func TestClientDoReturnsNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("slow down"))
	}))
	defer server.Close()

	client := testClient(5)
	resp, err := client.Do(context.Background(), Request{Provider: "typing", URL: server.URL})

	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "slow down", string(resp.Body))

	health := client.Health()["typing"]
	assert.Equal(t, int64(1), health.Requests)
	assert.Equal(t, int64(1), health.Errors)
	assert.Equal(t, "closed", health.Circuit)
}

func TestClientDoTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := testClient(5)
	_, err := client.Do(context.Background(), Request{Provider: "gone", URL: url})

	assert.Error(t, err)
}

func TestClientBreakersDisabledByDefault(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(DefaultClientConfig(), nil, nil)
	req := Request{Provider: "typing", URL: server.URL + "/results"}

	for i := 0; i < 10; i++ {
		resp, err := client.Do(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	}

	assert.Equal(t, int32(10), atomic.LoadInt32(&hits))
	assert.Equal(t, "disabled", client.Health()["typing"].Circuit)
}

func TestClientBreakerIgnoresServerErrors(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := testClient(2)
	req := Request{Provider: "flaky", URL: server.URL}

	for i := 0; i < 5; i++ {
		resp, err := client.Do(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	}

	assert.Equal(t, int32(5), atomic.LoadInt32(&hits))
	assert.Equal(t, "closed", client.Health()["flaky"].Circuit)
}

func TestClientBreakerIsScopedToEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/all_time" {
			dropConnection(w)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := testClient(2)
	broken := Request{Provider: "coding", URL: server.URL + "/all_time"}
	healthy := Request{Provider: "coding", URL: server.URL + "/last_7_days"}

	for i := 0; i < 2; i++ {
		_, err := client.Do(context.Background(), broken)
		require.Error(t, err)
	}

	_, err := client.Do(context.Background(), broken)
	var cbErr *CircuitBreakerError
	require.True(t, errors.As(err, &cbErr))

	resp, err := client.Do(context.Background(), healthy)
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, "open", client.Health()["coding"].Circuit)
}

func TestClientRegisterShowsIdleProviders(t *testing.T) {
	client := testClient(5)
	client.Register("github", "umami")

	health := client.Health()
	require.Contains(t, health, "github")
	assert.Equal(t, "ok", health["umami"].Status)
	assert.Equal(t, "ok", Overall(health))
}
