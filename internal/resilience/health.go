package resilience

import (
	"log/slog"
	"sync"
	"time"
)

// HealthLevel summarizes a provider's recent error rate
type HealthLevel int

const (
	LevelNormal HealthLevel = iota
	LevelDegraded
	LevelCritical
)

func (l HealthLevel) String() string {
	switch l {
	case LevelDegraded:
		return "degraded"
	case LevelCritical:
		return "critical"
	default:
		return "ok"
	}
}

// HealthConfig holds the error-rate thresholds for each level
type HealthConfig struct {
	DegradedThreshold float64 // error rate in [0,1]
	CriticalThreshold float64
	MinRequests       int64 // below this, a provider is always reported ok
}

// DefaultHealthConfig returns sensible defaults
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		DegradedThreshold: 0.1,
		CriticalThreshold: 0.5,
		MinRequests:       4,
	}
}

// ProviderHealth is the /health view of one provider
type ProviderHealth struct {
	Status      string     `json:"status"`
	Requests    int64      `json:"requests"`
	Errors      int64      `json:"errors"`
	ErrorRate   float64    `json:"error_rate"`
	LastErrorAt *time.Time `json:"last_error_at,omitempty"`
	Circuit     string     `json:"circuit"`

	level HealthLevel
}

// HealthTracker records call outcomes per provider
type HealthTracker struct {
	config    HealthConfig
	providers map[string]*ProviderHealth
	mu        sync.RWMutex
}

// NewHealthTracker creates a new tracker
func NewHealthTracker(config HealthConfig) *HealthTracker {
	return &HealthTracker{
		config:    config,
		providers: make(map[string]*ProviderHealth),
	}
}

// Register adds a provider with zero counts
func (h *HealthTracker) Register(provider string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ensure(provider)
}

func (h *HealthTracker) ensure(provider string) *ProviderHealth {
	p, ok := h.providers[provider]
	if !ok {
		p = &ProviderHealth{Status: LevelNormal.String(), Circuit: StateClosed.String()}
		h.providers[provider] = p
	}
	return p
}

// Record records one call outcome
func (h *HealthTracker) Record(provider string, success bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p := h.ensure(provider)
	p.Requests++
	if !success {
		p.Errors++
		now := time.Now()
		p.LastErrorAt = &now
	}
	p.ErrorRate = float64(p.Errors) / float64(p.Requests)

	old := p.level
	p.level = h.levelFor(p)
	p.Status = p.level.String()

	if old != p.level {
		slog.Warn("Provider health level changed",
			"provider", provider,
			"old_level", old.String(),
			"new_level", p.level.String(),
			"error_rate", p.ErrorRate,
			"requests", p.Requests)
	}
}

func (h *HealthTracker) levelFor(p *ProviderHealth) HealthLevel {
	if p.Requests < h.config.MinRequests {
		return LevelNormal
	}
	switch {
	case p.ErrorRate >= h.config.CriticalThreshold:
		return LevelCritical
	case p.ErrorRate >= h.config.DegradedThreshold:
		return LevelDegraded
	default:
		return LevelNormal
	}
}

// Snapshot returns a copy of every provider's health
func (h *HealthTracker) Snapshot() map[string]ProviderHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]ProviderHealth, len(h.providers))
	for name, p := range h.providers {
		out[name] = *p
	}
	return out
}

// Overall folds provider statuses into "ok" or "degraded"
func Overall(providers map[string]ProviderHealth) string {
	for _, p := range providers {
		if p.Status != LevelNormal.String() || p.Circuit == StateOpen.String() {
			return "degraded"
		}
	}
	return "ok"
}
