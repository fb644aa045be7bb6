package resilience

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ZanzyTHEbar/devfolio/internal/monitoring"
)

// maxBodyBytes caps how much of a provider response is buffered
const maxBodyBytes = 8 << 20

// Request describes one outbound provider call
type Request struct {
	Provider string
	Method   string
	URL      string
	Query    url.Values
	Headers  map[string]string
	Body     interface{} // JSON-encoded when non-nil
}

// Response is a fully-read provider response. Non-2xx statuses are not errors at this layer.
type Response struct {
	StatusCode int
	Status     string
	Body       []byte
}

// OK reports whether the provider answered with a 2xx status
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// DecodeJSON unmarshals the buffered body into v
func (r *Response) DecodeJSON(v interface{}) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode %d response: %w", r.StatusCode, err)
	}
	return nil
}

// Doer is the outbound-call primitive shared by every provider adapter
type Doer interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// ClientConfig configures the shared transport
type ClientConfig struct {
	Timeout     time.Duration
	MaxIdle     int
	IdleTimeout time.Duration
	Breaker     CircuitBreakerConfig
}

// DefaultClientConfig returns the transport settings used in production
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:     15 * time.Second,
		MaxIdle:     20,
		IdleTimeout: 90 * time.Second,
		Breaker: CircuitBreakerConfig{
			Enabled:          false,
			FailureThreshold: 5,
			RecoveryTimeout:  30 * time.Second,
			SuccessThreshold: 1,
		},
	}
}

// Client executes provider calls through one pooled transport. With breakers
// enabled, each provider endpoint gets its own breaker.
type Client struct {
	httpClient *http.Client
	breakers   *CircuitBreakerRegistry
	health     *HealthTracker
	logger     *monitoring.Logger
	metrics    *monitoring.Metrics
}

// NewClient creates the outbound client. logger and metrics may be nil.
func NewClient(config ClientConfig, logger *monitoring.Logger, metrics *monitoring.Metrics) *Client {
	if logger == nil {
		logger = &monitoring.Logger{Logger: slog.Default()}
	}
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          config.MaxIdle,
		MaxIdleConnsPerHost:   config.MaxIdle / 2,
		IdleConnTimeout:       config.IdleTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: config.Timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	client := &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
		health:  NewHealthTracker(DefaultHealthConfig()),
		logger:  logger,
		metrics: metrics,
	}
	if config.Breaker.Enabled {
		client.breakers = NewCircuitBreakerRegistry(config.Breaker)
	}
	return client
}

// breakerKey scopes a breaker to one provider endpoint
func breakerKey(provider, path string) string {
	return provider + " " + path
}

// Do executes req exactly once. Transport failures and open breakers are errors;
// any status the provider answers with is returned in the Response and never
// counts against a breaker.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := req.build(ctx)
	if err != nil {
		return nil, err
	}

	var resp *Response
	call := func() error {
		r, err := c.httpClient.Do(httpReq)
		if err != nil {
			return err
		}
		defer r.Body.Close()

		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			return fmt.Errorf("read %s response: %w", req.Provider, err)
		}

		resp = &Response{StatusCode: r.StatusCode, Status: r.Status, Body: body}
		return nil
	}

	start := time.Now()
	if c.breakers == nil {
		err = call()
	} else {
		breaker := c.breakers.GetOrCreate(breakerKey(req.Provider, httpReq.URL.Path))
		before := breaker.State()
		err = breaker.Call(call)
		if before != StateOpen && breaker.State() == StateOpen {
			c.metrics.IncrementCircuitBreakerOpen()
			c.logger.Warn("Circuit breaker opened", "provider", req.Provider, "path", httpReq.URL.Path)
		}
	}
	duration := time.Since(start)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	success := err == nil && status < 400

	c.health.Record(req.Provider, success)
	c.metrics.RecordProviderCall(req.Provider, success)
	c.logger.ExternalAPILogger(req.Provider, httpReq.Method, httpReq.URL.Host+httpReq.URL.Path, status, duration, success)

	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", req.Provider, err)
	}
	return resp, nil
}

// Health reports per-provider call counts and breaker state. A provider's
// circuit is the worst state among its endpoint breakers, or "disabled".
func (c *Client) Health() map[string]ProviderHealth {
	snapshot := c.health.Snapshot()
	for name, h := range snapshot {
		if c.breakers == nil {
			h.Circuit = circuitDisabled
		} else {
			h.Circuit = c.breakers.ProviderState(name).String()
		}
		snapshot[name] = h
	}
	return snapshot
}

// Register makes a provider visible in Health before its first call
func (c *Client) Register(providers ...string) {
	for _, p := range providers {
		c.health.Register(p)
	}
}

// Close releases idle connections
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func (r Request) build(ctx context.Context) (*http.Request, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	target := r.URL
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}

	var body io.Reader
	if r.Body != nil {
		payload, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("encode %s request body: %w", r.Provider, err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", r.Provider, err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if r.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for key, value := range r.Headers {
		httpReq.Header.Set(key, value)
	}

	return httpReq, nil
}
