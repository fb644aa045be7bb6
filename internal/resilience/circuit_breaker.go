package resilience

import (
	"strings"
	"sync"
	"time"
)

// circuitDisabled is reported by Health when breakers are off
const circuitDisabled = "disabled"

// CircuitBreakerState represents the state of the circuit breaker
type CircuitBreakerState int32

const (
	StateClosed CircuitBreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig holds configuration for the circuit breaker
type CircuitBreakerConfig struct {
	Enabled          bool          `json:"enabled"`
	FailureThreshold int           `json:"failure_threshold"` // consecutive failures before opening
	RecoveryTimeout  time.Duration `json:"recovery_timeout"`  // wait before a half-open probe
	SuccessThreshold int           `json:"success_threshold"` // half-open successes needed to close
}

// CircuitBreaker stops calling a provider that keeps failing
type CircuitBreaker struct {
	config      CircuitBreakerConfig
	mu          sync.Mutex
	state       CircuitBreakerState
	failures    int
	successes   int
	nextAttempt time.Time
	now         func() time.Time
}

// NewCircuitBreaker creates a new circuit breaker, filling zero config values with defaults
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTimeout == 0 {
		config.RecoveryTimeout = 30 * time.Second
	}
	if config.SuccessThreshold == 0 {
		config.SuccessThreshold = 1
	}

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
		now:    time.Now,
	}
}

// Call executes fn unless the breaker is open
func (cb *CircuitBreaker) Call(fn func() error) error {
	if err := cb.allow(); err != nil {
		return err
	}

	if err := fn(); err != nil {
		cb.onFailure()
		return err
	}

	cb.onSuccess()
	return nil
}

func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateOpen {
		return nil
	}
	if cb.now().Before(cb.nextAttempt) {
		return NewCircuitBreakerError("circuit breaker is open", cb.state)
	}

	cb.state = StateHalfOpen
	cb.successes = 0
	return nil
}

func (cb *CircuitBreaker) onFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.successes = 0

	if cb.state == StateHalfOpen || cb.failures >= cb.config.FailureThreshold {
		cb.state = StateOpen
		cb.nextAttempt = cb.now().Add(cb.config.RecoveryTimeout)
	}
}

func (cb *CircuitBreaker) onSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0

	if cb.state == StateHalfOpen {
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.state = StateClosed
		}
	}
}

// State returns the current state of the circuit breaker
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the current consecutive failure count
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.successes = 0
}

// CircuitBreakerError is returned instead of calling an open breaker's provider
type CircuitBreakerError struct {
	Message string
	State   CircuitBreakerState
}

func (e *CircuitBreakerError) Error() string {
	return e.Message
}

// NewCircuitBreakerError creates a new circuit breaker error
func NewCircuitBreakerError(message string, state CircuitBreakerState) *CircuitBreakerError {
	return &CircuitBreakerError{
		Message: message,
		State:   state,
	}
}

// CircuitBreakerRegistry holds one breaker per key, usually a provider endpoint
type CircuitBreakerRegistry struct {
	config   CircuitBreakerConfig
	breakers map[string]*CircuitBreaker
	mu       sync.RWMutex
}

// NewCircuitBreakerRegistry creates a registry whose breakers share config
func NewCircuitBreakerRegistry(config CircuitBreakerConfig) *CircuitBreakerRegistry {
	return &CircuitBreakerRegistry{
		config:   config,
		breakers: make(map[string]*CircuitBreaker),
	}
}

// GetOrCreate gets an existing circuit breaker or creates a new one
func (r *CircuitBreakerRegistry) GetOrCreate(name string) *CircuitBreaker {
	r.mu.RLock()
	breaker, exists := r.breakers[name]
	r.mu.RUnlock()
	if exists {
		return breaker
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if breaker, exists = r.breakers[name]; exists {
		return breaker
	}

	breaker = NewCircuitBreaker(r.config)
	r.breakers[name] = breaker
	return breaker
}

// Get returns a circuit breaker by name
func (r *CircuitBreakerRegistry) Get(name string) (*CircuitBreaker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	breaker, exists := r.breakers[name]
	return breaker, exists
}

// ProviderState returns the worst state among the breakers of provider
func (r *CircuitBreakerRegistry) ProviderState(provider string) CircuitBreakerState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state := StateClosed
	for key, breaker := range r.breakers {
		if key != provider && !strings.HasPrefix(key, provider+" ") {
			continue
		}
		switch breaker.State() {
		case StateOpen:
			return StateOpen
		case StateHalfOpen:
			state = StateHalfOpen
		}
	}
	return state
}

// ResetAll resets all circuit breakers
func (r *CircuitBreakerRegistry) ResetAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, breaker := range r.breakers {
		breaker.Reset()
	}
}
