// Package resilience guards single-backend providers against cascading
// failures.
//
// Transcription already has ordered failover across providers, and synthesis
// deliberately has none, so the breaker targets the one backend the pipeline
// cannot route around: the language model. [Breaker] is a three-state circuit
// (closed, open, half-open); [GuardedLLM] wraps an [llm.Provider] with one so
// a dead backend fails fast instead of eating a request timeout per
// utterance.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrOpen is returned by [Breaker.Do] when the circuit is open and the reset
// timeout has not yet elapsed.
var ErrOpen = errors.New("resilience: circuit open")

// State is a Breaker's operating mode.
type State int

const (
	// Closed is the normal state; calls pass through.
	Closed State = iota

	// Open means the breaker tripped on consecutive failures. Calls are
	// rejected with [ErrOpen] until the reset timeout elapses.
	Open

	// HalfOpen is the probe state after the reset timeout. A bounded number
	// of calls go through; their outcome decides between Closed and Open.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig holds the breaker's tuning knobs. Zero fields take defaults.
type BreakerConfig struct {
	// Name labels the breaker in log output.
	Name string

	// Trip is the consecutive-failure count that opens the circuit.
	// Default 5.
	Trip int

	// Cooldown is how long the circuit stays open before probing.
	// Default 30s.
	Cooldown time.Duration

	// Probes is the number of half-open calls that must all succeed to
	// close the circuit. Default 3.
	Probes int
}

// Breaker implements the three-state circuit breaker pattern.
type Breaker struct {
	name     string
	trip     int
	cooldown time.Duration
	probes   int

	mu        sync.Mutex
	state     State
	failures  int
	openedAt  time.Time
	probeRuns int
}

// NewBreaker creates a Breaker. Zero-value config fields take defaults.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.Trip <= 0 {
		cfg.Trip = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.Probes <= 0 {
		cfg.Probes = 3
	}
	return &Breaker{
		name:     cfg.Name,
		trip:     cfg.Trip,
		cooldown: cfg.Cooldown,
		probes:   cfg.Probes,
	}
}

// Do runs fn if the circuit allows it. In the open state it returns [ErrOpen]
// without calling fn; in the half-open state a bounded number of probes are
// let through.
func (b *Breaker) Do(fn func() error) error {
	b.mu.Lock()
	switch b.state {
	case Open:
		if time.Since(b.openedAt) < b.cooldown {
			b.mu.Unlock()
			return ErrOpen
		}
		b.state = HalfOpen
		b.probeRuns = 0
		slog.Info("circuit half-open, probing", "breaker", b.name)

	case HalfOpen:
		if b.probeRuns >= b.probes {
			// Probe budget spent; outcome not yet decided by this call.
			b.mu.Unlock()
			return ErrOpen
		}
	}

	probing := b.state == HalfOpen
	if probing {
		b.probeRuns++
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.onFailure(probing)
	} else {
		b.onSuccess(probing)
	}
	return err
}

// onFailure does failure accounting. Caller holds b.mu.
func (b *Breaker) onFailure(probing bool) {
	b.openedAt = time.Now()

	if probing {
		// One failed probe re-opens immediately.
		b.state = Open
		b.failures = b.trip
		slog.Warn("circuit re-opened from half-open", "breaker", b.name)
		return
	}

	b.failures++
	if b.failures >= b.trip {
		b.state = Open
		slog.Warn("circuit opened", "breaker", b.name, "consecutive_failures", b.failures)
	}
}

// onSuccess does success accounting. Caller holds b.mu.
func (b *Breaker) onSuccess(probing bool) {
	if probing {
		if b.probeRuns >= b.probes {
			b.state = Closed
			b.failures = 0
			b.probeRuns = 0
			slog.Info("circuit closed after successful probes", "breaker", b.name)
		}
		return
	}
	b.failures = 0
}

// State returns the breaker's current state. An open circuit whose cooldown
// has elapsed reports [HalfOpen]; the transition itself happens on the next
// [Breaker.Do].
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open && time.Since(b.openedAt) >= b.cooldown {
		return HalfOpen
	}
	return b.state
}

// Reset forces the circuit closed and clears all counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Closed
	b.failures = 0
	b.probeRuns = 0
}
