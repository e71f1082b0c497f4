// Package breaker implements a circuit breaker with per-target state and a
// timeout race around every wrapped call. It provides fail-fast protection
// only; retries are the caller's responsibility.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// State is the circuit state for one target.
type State int

const (
	// StateClosed passes calls through and counts failures.
	StateClosed State = iota

	// StateOpen rejects calls until the reset timeout elapses.
	StateOpen

	// StateHalfOpen admits a bounded number of trial calls.
	StateHalfOpen
)

// String implements fmt.Stringer.
func (s State) String() string {
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

// ErrOpen is returned when a call is rejected because the circuit is open or
// the half-open trial budget is exhausted.
var ErrOpen = errors.New("circuit breaker open")

// ErrTimeout is returned when the wrapped call lost the timeout race.
var ErrTimeout = errors.New("call timed out")

// Settings configures a Breaker. Zero values fall back to defaults.
type Settings struct {
	// FailureThreshold is the net failure count that opens the circuit.
	FailureThreshold int

	// SuccessThreshold is the consecutive half-open successes needed to
	// close the circuit again.
	SuccessThreshold int

	// ResetTimeout is how long an open circuit rejects calls before
	// admitting trial calls.
	ResetTimeout time.Duration

	// HalfOpenMax bounds the number of trial calls admitted while
	// half-open.
	HalfOpenMax int

	// Clock overrides the time source, for tests.
	Clock func() time.Time

	// OnStateChange is invoked after every state transition. Optional.
	OnStateChange func(target string, from, to State)
}

func (s *Settings) applyDefaults() {
	if s.FailureThreshold <= 0 {
		s.FailureThreshold = 3
	}
	if s.SuccessThreshold <= 0 {
		s.SuccessThreshold = 2
	}
	if s.ResetTimeout <= 0 {
		s.ResetTimeout = 60 * time.Second
	}
	if s.HalfOpenMax <= 0 {
		s.HalfOpenMax = 2
	}
	if s.Clock == nil {
		s.Clock = time.Now
	}
}

// target holds the mutable circuit state for one named target.
type target struct {
	state             State
	failures          int
	halfOpenCalls     int
	halfOpenSuccesses int
	nextAttempt       time.Time
}

// Breaker tracks circuit state per named target and wraps calls with a
// timeout race. It is safe for concurrent use; state transitions are
// serialized, and each call records exactly one outcome (a late result after
// a timeout is discarded).
type Breaker struct {
	settings Settings

	mu      sync.Mutex
	targets map[string]*target
}

// New creates a Breaker with the given settings.
func New(settings Settings) *Breaker {
	settings.applyDefaults()
	return &Breaker{
		settings: settings,
		targets:  make(map[string]*target),
	}
}

// Execute runs fn under the circuit for the named target, bounded by the
// given timeout. When the circuit is open the call is rejected immediately
// with ErrOpen and fn is never invoked. A timeout counts as a failure;
// cancellation of the caller's context does not, since it says nothing about
// the target's health.
func (b *Breaker) Execute(
	ctx context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) (any, error),
) (any, error) {
	if err := b.allow(name); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value any
		err   error
	}

	// Buffered so a late fn result never blocks a leaked goroutine.
	done := make(chan outcome, 1)
	go func() {
		value, err := fn(callCtx)
		done <- outcome{value: value, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil && ctx.Err() != nil {
			return nil, fmt.Errorf("call cancelled: %s: %w", name, ctx.Err())
		}
		b.record(name, out.err == nil)
		return out.value, out.err
	case <-callCtx.Done():
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("call cancelled: %s: %w", name, err)
		}
		b.record(name, false)
		return nil, fmt.Errorf("%w: %s after %s", ErrTimeout, name, timeout)
	}
}

// State returns the current circuit state for a target. Targets that were
// never called report closed.
func (b *Breaker) State(name string) State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.targets[name]; ok {
		return t.state
	}
	return StateClosed
}

// allow decides whether a call for the target may proceed, performing the
// open -> half-open transition when the reset timeout has elapsed.
func (b *Breaker) allow(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.lookup(name)
	switch t.state {
	case StateOpen:
		if b.settings.Clock().Before(t.nextAttempt) {
			return fmt.Errorf("%w: %s", ErrOpen, name)
		}
		b.transition(name, t, StateHalfOpen)
		t.halfOpenCalls = 0
		t.halfOpenSuccesses = 0
	case StateHalfOpen:
		if t.halfOpenCalls >= b.settings.HalfOpenMax {
			return fmt.Errorf("%w: %s", ErrOpen, name)
		}
	}

	if t.state == StateHalfOpen {
		t.halfOpenCalls++
	}
	return nil
}

// record applies one call outcome to the target's state. This is the single
// mutation point for call results.
func (b *Breaker) record(name string, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.lookup(name)
	if success {
		switch t.state {
		case StateClosed:
			if t.failures > 0 {
				t.failures--
			}
		case StateHalfOpen:
			t.halfOpenSuccesses++
			if t.halfOpenSuccesses >= b.settings.SuccessThreshold {
				b.transition(name, t, StateClosed)
				t.failures = 0
			}
		}
		return
	}

	switch t.state {
	case StateClosed:
		t.failures++
		if t.failures >= b.settings.FailureThreshold {
			b.open(name, t)
		}
	case StateHalfOpen:
		b.open(name, t)
	}
}

func (b *Breaker) open(name string, t *target) {
	b.transition(name, t, StateOpen)
	t.nextAttempt = b.settings.Clock().Add(b.settings.ResetTimeout)
	t.failures = 0
	t.halfOpenCalls = 0
	t.halfOpenSuccesses = 0
}

func (b *Breaker) transition(name string, t *target, to State) {
	from := t.state
	if from == to {
		return
	}
	t.state = to
	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(name, from, to)
	}
}

func (b *Breaker) lookup(name string) *target {
	t, ok := b.targets[name]
	if !ok {
		t = &target{state: StateClosed}
		b.targets[name] = t
	}
	return t
}
