// Package circuitbreaker guards calls to flaky upstreams.
package circuitbreaker

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// State represents the current state of a breaker.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota
	// StateOpen rejects every call until the timeout elapses.
	StateOpen
	// StateHalfOpen lets a limited number of probe calls through.
	StateHalfOpen
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

var (
	// ErrCircuitOpen is returned when the breaker is in OPEN state.
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrHalfOpenLimitReached is returned when too many probe calls are made in HALF-OPEN state.
	ErrHalfOpenLimitReached = errors.New("circuit breaker half-open request limit reached")
)

// StateChangeFunc is notified after every state transition.
type StateChangeFunc func(name string, from, to State)

// Config contains the configuration for a breaker.
type Config struct {
	FailureThreshold int           // consecutive failures before opening
	Timeout          time.Duration // time spent OPEN before probing
	HalfOpenRequests int           // probe calls allowed in HALF-OPEN
	Logger           *slog.Logger  // optional
	OnStateChange    StateChangeFunc
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.HalfOpenRequests <= 0 {
		c.HalfOpenRequests = 1
	}
	return c
}

// Breaker is a three-state circuit breaker for a single upstream.
type Breaker struct {
	name   string
	config Config
	now    func() time.Time

	mu                sync.Mutex
	state             State
	failureCount      int
	halfOpenRequests  int
	halfOpenSuccesses int
	openedAt          time.Time
}

// New creates a breaker identified by name in logs and state callbacks.
func New(name string, cfg Config) *Breaker {
	return &Breaker{
		name:   name,
		config: cfg.withDefaults(),
		now:    time.Now,
		state:  StateClosed,
	}
}

// Name returns the breaker name.
func (b *Breaker) Name() string {
	return b.name
}

// Execute runs fn if the breaker allows it and records the outcome.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.acquire(); err != nil {
		return err
	}

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		if err != nil {
			b.transitionTo(StateOpen)
			return err
		}
		b.halfOpenSuccesses++
		if b.halfOpenSuccesses >= b.config.HalfOpenRequests {
			b.transitionTo(StateClosed)
		}
	case StateClosed:
		if err != nil {
			b.failureCount++
			if b.failureCount >= b.config.FailureThreshold {
				b.transitionTo(StateOpen)
			}
			return err
		}
		b.failureCount = 0
	}

	return err
}

func (b *Breaker) acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.config.Timeout {
		b.transitionTo(StateHalfOpen)
	}

	switch b.state {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if b.halfOpenRequests >= b.config.HalfOpenRequests {
			return ErrHalfOpenLimitReached
		}
		b.halfOpenRequests++
	}
	return nil
}

// State returns the current state of the breaker.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset forces the breaker back to CLOSED.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitionTo(StateClosed)
}

// transitionTo must be called with b.mu held.
func (b *Breaker) transitionTo(newState State) {
	if b.state == newState {
		return
	}

	oldState := b.state
	b.state = newState

	switch newState {
	case StateClosed:
		b.failureCount = 0
		b.openedAt = time.Time{}
	case StateOpen:
		b.openedAt = b.now()
	}
	b.halfOpenRequests = 0
	b.halfOpenSuccesses = 0

	if b.config.Logger != nil {
		b.config.Logger.Info("circuit breaker state changed",
			"source", b.name,
			"from", oldState.String(),
			"to", newState.String(),
		)
	}
	if b.config.OnStateChange != nil {
		b.config.OnStateChange(b.name, oldState, newState)
	}
}

// Set hands out one breaker per upstream name, created on first use.
type Set struct {
	config Config

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewSet creates a Set whose breakers share cfg.
func NewSet(cfg Config) *Set {
	return &Set{
		config:   cfg,
		breakers: make(map[string]*Breaker),
	}
}

// Get returns the breaker for name.
func (s *Set) Get(name string) *Breaker {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.breakers[name]
	if !ok {
		b = New(name, s.config)
		s.breakers[name] = b
	}
	return b
}
