// Package breaker implements per-dependency failure isolation for outbound calls.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the circuit rejects a call without invoking
// the wrapped operation. Callers distinguish it from downstream failures with
// errors.Is and apply a degraded response instead of a hard error.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the state of the circuit breaker.
type State int

const (
	// StateClosed means calls pass through.
	StateClosed State = iota
	// StateOpen means calls are rejected without touching the dependency.
	StateOpen
	// StateHalfOpen means a single probe call is testing recovery.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Default breaker parameters, overridable per dependency.
const (
	DefaultFailureThreshold = 5
	DefaultRecoveryTimeout  = 30 * time.Second
)

// Config configures a circuit breaker.
type Config struct {
	// Name identifies the downstream dependency (e.g. "search", "video").
	Name string
	// FailureThreshold is the number of consecutive failures before opening.
	FailureThreshold int
	// RecoveryTimeout is how long the circuit stays open before probing.
	RecoveryTimeout time.Duration
	// Now overrides the time source, mainly for tests.
	Now func() time.Time
	// OnStateChange is an optional callback invoked on every transition.
	OnStateChange func(name string, from, to State)
}

// Breaker tracks consecutive failures for one downstream dependency and
// short-circuits calls once the failure threshold is crossed.
type Breaker struct {
	mu       sync.Mutex
	cfg      Config
	state    State
	failures int
	openedAt time.Time
	now      func() time.Time
}

// Snapshot is a point-in-time view of breaker state.
type Snapshot struct {
	Name     string    `json:"name"`
	State    string    `json:"state"`
	Failures int       `json:"consecutive_failures"`
	OpenedAt time.Time `json:"opened_at,omitempty"`
}

// New creates a circuit breaker with the given configuration.
func New(cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = DefaultRecoveryTimeout
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Breaker{
		cfg:   cfg,
		state: StateClosed,
		now:   now,
	}
}

// Call executes fn with circuit breaker protection. It returns ErrCircuitOpen
// without invoking fn when the circuit is open, otherwise fn's own error.
// The breaker interprets only success versus failure, never the payload.
func (b *Breaker) Call(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("breaker call canceled: %w", err)
	}

	probe, err := b.beforeCall()
	if err != nil {
		return err
	}

	err = fn()
	b.afterCall(probe, err)
	return err
}

// beforeCall decides whether the call may proceed, advancing Open to HalfOpen
// when the recovery timeout has elapsed. The decision and the state update
// happen under one lock so concurrent callers never race the transition.
func (b *Breaker) beforeCall() (probe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return false, nil
	case StateOpen:
		elapsed := b.now().Sub(b.openedAt)
		if elapsed < b.cfg.RecoveryTimeout {
			return false, fmt.Errorf("%w: retry in %v", ErrCircuitOpen, b.cfg.RecoveryTimeout-elapsed)
		}
		// Exactly the call that observed the elapsed timeout becomes the probe.
		b.transitionTo(StateHalfOpen)
		return true, nil
	case StateHalfOpen:
		// A probe is already in flight; reject everyone else.
		return false, fmt.Errorf("%w: recovery probe in flight", ErrCircuitOpen)
	default:
		return false, fmt.Errorf("%w: unknown state", ErrCircuitOpen)
	}
}

func (b *Breaker) afterCall(probe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if probe {
		if err != nil {
			// A single probe failure re-opens the circuit from a fresh baseline.
			b.failures = 0
			b.openedAt = b.now()
			b.transitionTo(StateOpen)
			return
		}
		b.failures = 0
		b.transitionTo(StateClosed)
		return
	}

	// Results from calls admitted while closed. If the breaker moved on in the
	// meantime (another caller opened it), the stale result is irrelevant.
	if b.state != StateClosed {
		return
	}
	if err != nil {
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.openedAt = b.now()
			b.transitionTo(StateOpen)
		}
		return
	}
	b.failures = 0
}

// transitionTo must be called with the lock held.
func (b *Breaker) transitionTo(next State) {
	if b.state == next {
		return
	}
	prev := b.state
	b.state = next
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.cfg.Name, prev, next)
	}
}

// State returns the current state of the circuit breaker.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// GetSnapshot returns current breaker statistics.
func (b *Breaker) GetSnapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		Name:     b.cfg.Name,
		State:    b.state.String(),
		Failures: b.failures,
		OpenedAt: b.openedAt,
	}
}
