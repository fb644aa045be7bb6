package monitoring

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds in-process counters exposed on /metrics
type Metrics struct {
	RequestCount        int64
	ErrorCount          int64
	AverageResponseTime int64 // in nanoseconds
	StartTime           time.Time

	ResponseTimes      []time.Duration
	ResponseTimesMutex sync.RWMutex

	RequestCountByStatus map[int]int64
	StatusMutex          sync.RWMutex

	CircuitBreakerOpens int64

	// Provider call metrics, keyed by provider name
	ProviderRequests  map[string]int64
	ProviderErrors    map[string]int64
	DegradedResponses map[string]int64
	ProviderMutex     sync.RWMutex

	RateLimitIPBlocks      int64
	RateLimitRedisErrors   int64
	RateLimitFallbackCount int64

	ChatMessages      int64
	ChatSubscribers   int64
	ChatDroppedPushes int64

	CacheHits   int64
	CacheMisses int64
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		StartTime:            time.Now(),
		ResponseTimes:        make([]time.Duration, 0, 1000),
		RequestCountByStatus: make(map[int]int64),
		ProviderRequests:     make(map[string]int64),
		ProviderErrors:       make(map[string]int64),
		DegradedResponses:    make(map[string]int64),
	}
}

// IncrementRequest increments the request count
func (m *Metrics) IncrementRequest() {
	atomic.AddInt64(&m.RequestCount, 1)
}

// IncrementError increments the error count
func (m *Metrics) IncrementError() {
	atomic.AddInt64(&m.ErrorCount, 1)
}

// RecordResponseTime records response time for averaging and percentiles
func (m *Metrics) RecordResponseTime(duration time.Duration) {
	current := atomic.LoadInt64(&m.AverageResponseTime)
	newAverage := (current + duration.Nanoseconds()) / 2
	atomic.StoreInt64(&m.AverageResponseTime, newAverage)

	// keep last 1000 samples
	m.ResponseTimesMutex.Lock()
	m.ResponseTimes = append(m.ResponseTimes, duration)
	if len(m.ResponseTimes) > 1000 {
		m.ResponseTimes = m.ResponseTimes[1:]
	}
	m.ResponseTimesMutex.Unlock()
}

// RecordRequestByStatus records request count by HTTP status code
func (m *Metrics) RecordRequestByStatus(statusCode int) {
	m.StatusMutex.Lock()
	defer m.StatusMutex.Unlock()
	m.RequestCountByStatus[statusCode]++
}

// IncrementCircuitBreakerOpen increments circuit breaker open count
func (m *Metrics) IncrementCircuitBreakerOpen() {
	atomic.AddInt64(&m.CircuitBreakerOpens, 1)
}

// RecordProviderCall records one outbound call to a provider
func (m *Metrics) RecordProviderCall(provider string, success bool) {
	m.ProviderMutex.Lock()
	defer m.ProviderMutex.Unlock()

	m.ProviderRequests[provider]++
	if !success {
		m.ProviderErrors[provider]++
	}
}

// RecordDegraded records a response served with a defaulted secondary signal
func (m *Metrics) RecordDegraded(provider string) {
	m.ProviderMutex.Lock()
	defer m.ProviderMutex.Unlock()
	m.DegradedResponses[provider]++
}

// IncrementRateLimitIPBlock increments IP-based rate limit blocks
func (m *Metrics) IncrementRateLimitIPBlock() {
	atomic.AddInt64(&m.RateLimitIPBlocks, 1)
}

// IncrementRateLimitRedisError increments Redis error count for rate limiting
func (m *Metrics) IncrementRateLimitRedisError() {
	atomic.AddInt64(&m.RateLimitRedisErrors, 1)
}

// IncrementRateLimitFallback increments fallback rate limiter usage count
func (m *Metrics) IncrementRateLimitFallback() {
	atomic.AddInt64(&m.RateLimitFallbackCount, 1)
}

// IncrementChatMessage counts a stored chat message
func (m *Metrics) IncrementChatMessage() {
	atomic.AddInt64(&m.ChatMessages, 1)
}

// AddChatSubscribers adjusts the live websocket subscriber gauge
func (m *Metrics) AddChatSubscribers(delta int64) {
	atomic.AddInt64(&m.ChatSubscribers, delta)
}

// IncrementChatDropped counts a push skipped because a subscriber was too slow
func (m *Metrics) IncrementChatDropped() {
	atomic.AddInt64(&m.ChatDroppedPushes, 1)
}

// IncrementCacheHit increments cache hit count
func (m *Metrics) IncrementCacheHit() {
	atomic.AddInt64(&m.CacheHits, 1)
}

// IncrementCacheMiss increments cache miss count
func (m *Metrics) IncrementCacheMiss() {
	atomic.AddInt64(&m.CacheMisses, 1)
}

// GetPercentileResponseTime calculates percentile response time
func (m *Metrics) GetPercentileResponseTime(percentile float64) time.Duration {
	m.ResponseTimesMutex.RLock()
	defer m.ResponseTimesMutex.RUnlock()

	if len(m.ResponseTimes) == 0 {
		return 0
	}

	times := make([]time.Duration, len(m.ResponseTimes))
	copy(times, m.ResponseTimes)

	sort.Slice(times, func(i, j int) bool {
		return times[i] < times[j]
	})

	index := int(float64(len(times)-1) * percentile / 100.0)
	if index >= len(times) {
		index = len(times) - 1
	}

	return times[index]
}

// GetStatusCodeDistribution returns request count by status code
func (m *Metrics) GetStatusCodeDistribution() map[int]int64 {
	m.StatusMutex.RLock()
	defer m.StatusMutex.RUnlock()

	distribution := make(map[int]int64)
	for code, count := range m.RequestCountByStatus {
		distribution[code] = count
	}
	return distribution
}

// GetProviderStats returns per-provider call statistics
func (m *Metrics) GetProviderStats() map[string]interface{} {
	m.ProviderMutex.RLock()
	defer m.ProviderMutex.RUnlock()

	stats := make(map[string]interface{})
	for provider, requests := range m.ProviderRequests {
		errors := m.ProviderErrors[provider]
		errorRate := float64(0)
		if requests > 0 {
			errorRate = float64(errors) / float64(requests) * 100
		}

		stats[provider] = map[string]interface{}{
			"requests":   requests,
			"errors":     errors,
			"error_rate": errorRate,
			"degraded":   m.DegradedResponses[provider],
		}
	}
	return stats
}

// GetStats returns current metrics statistics
func (m *Metrics) GetStats() map[string]interface{} {
	requests := atomic.LoadInt64(&m.RequestCount)
	errors := atomic.LoadInt64(&m.ErrorCount)
	avgResponseTime := atomic.LoadInt64(&m.AverageResponseTime)

	errorRate := float64(0)
	if requests > 0 {
		errorRate = float64(errors) / float64(requests) * 100
	}

	return map[string]interface{}{
		"uptime_seconds":       time.Since(m.StartTime).Seconds(),
		"total_requests":       requests,
		"error_count":          errors,
		"error_rate_percent":   errorRate,
		"avg_response_time_ms": float64(avgResponseTime) / 1000000,
		"start_time":           m.StartTime.Format(time.RFC3339),

		"p50_response_time_ms":     float64(m.GetPercentileResponseTime(50)) / 1000000,
		"p95_response_time_ms":     float64(m.GetPercentileResponseTime(95)) / 1000000,
		"p99_response_time_ms":     float64(m.GetPercentileResponseTime(99)) / 1000000,
		"status_code_distribution": m.GetStatusCodeDistribution(),
		"providers":                m.GetProviderStats(),

		"circuit_breaker_opens": atomic.LoadInt64(&m.CircuitBreakerOpens),

		"rate_limit": map[string]interface{}{
			"ip_blocks":      atomic.LoadInt64(&m.RateLimitIPBlocks),
			"redis_errors":   atomic.LoadInt64(&m.RateLimitRedisErrors),
			"fallback_count": atomic.LoadInt64(&m.RateLimitFallbackCount),
		},

		"chat": map[string]interface{}{
			"messages":       atomic.LoadInt64(&m.ChatMessages),
			"subscribers":    atomic.LoadInt64(&m.ChatSubscribers),
			"dropped_pushes": atomic.LoadInt64(&m.ChatDroppedPushes),
		},

		"cache": map[string]interface{}{
			"hits":   atomic.LoadInt64(&m.CacheHits),
			"misses": atomic.LoadInt64(&m.CacheMisses),
		},
	}
}

// Reset resets all metrics (useful for testing)
func (m *Metrics) Reset() {
	atomic.StoreInt64(&m.RequestCount, 0)
	atomic.StoreInt64(&m.ErrorCount, 0)
	atomic.StoreInt64(&m.AverageResponseTime, 0)
	atomic.StoreInt64(&m.CircuitBreakerOpens, 0)
	atomic.StoreInt64(&m.RateLimitIPBlocks, 0)
	atomic.StoreInt64(&m.RateLimitRedisErrors, 0)
	atomic.StoreInt64(&m.RateLimitFallbackCount, 0)
	atomic.StoreInt64(&m.ChatMessages, 0)
	atomic.StoreInt64(&m.ChatDroppedPushes, 0)
	atomic.StoreInt64(&m.CacheHits, 0)
	atomic.StoreInt64(&m.CacheMisses, 0)

	m.ResponseTimesMutex.Lock()
	m.ResponseTimes = m.ResponseTimes[:0]
	m.ResponseTimesMutex.Unlock()

	m.StatusMutex.Lock()
	m.RequestCountByStatus = make(map[int]int64)
	m.StatusMutex.Unlock()

	m.ProviderMutex.Lock()
	m.ProviderRequests = make(map[string]int64)
	m.ProviderErrors = make(map[string]int64)
	m.DegradedResponses = make(map[string]int64)
	m.ProviderMutex.Unlock()

	m.StartTime = time.Now()
}
