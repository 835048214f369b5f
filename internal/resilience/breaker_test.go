package resilience_test

import (
	"errors"
	"testing"
	"time"

	"github.com/intervox-ai/intervox/internal/resilience"
)

var errBackend = errors.New("backend down")

func failing() error { return errBackend }
func succeeding() error { return nil }

func TestBreakerClosedPassesThrough(t *testing.T) {
	b := resilience.NewBreaker(resilience.BreakerConfig{Name: "test"})

	for i := 0; i < 10; i++ {
		if err := b.Do(succeeding); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if got := b.State(); got != resilience.Closed {
		t.Errorf("State = %v, want Closed", got)
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b := resilience.NewBreaker(resilience.BreakerConfig{Trip: 3, Cooldown: time.Hour})

	for i := 0; i < 3; i++ {
		if err := b.Do(failing); !errors.Is(err, errBackend) {
			t.Fatalf("call %d: err = %v, want backend error", i, err)
		}
	}
	if got := b.State(); got != resilience.Open {
		t.Fatalf("State = %v after trip, want Open", got)
	}

	called := false
	err := b.Do(func() error { called = true; return nil })
	if !errors.Is(err, resilience.ErrOpen) {
		t.Errorf("err = %v, want ErrOpen", err)
	}
	if called {
		t.Error("fn ran while circuit open")
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := resilience.NewBreaker(resilience.BreakerConfig{Trip: 3, Cooldown: time.Hour})

	b.Do(failing)
	b.Do(failing)
	b.Do(succeeding)
	b.Do(failing)
	b.Do(failing)

	if got := b.State(); got != resilience.Closed {
		t.Errorf("State = %v, want Closed (streak was broken)", got)
	}
}

func TestBreakerHalfOpenClosesAfterProbes(t *testing.T) {
	b := resilience.NewBreaker(resilience.BreakerConfig{Trip: 1, Cooldown: 10 * time.Millisecond, Probes: 2})

	b.Do(failing)
	if got := b.State(); got != resilience.Open {
		t.Fatalf("State = %v, want Open", got)
	}

	time.Sleep(20 * time.Millisecond)
	if got := b.State(); got != resilience.HalfOpen {
		t.Fatalf("State = %v after cooldown, want HalfOpen", got)
	}

	for i := 0; i < 2; i++ {
		if err := b.Do(succeeding); err != nil {
			t.Fatalf("probe %d: %v", i, err)
		}
	}
	if got := b.State(); got != resilience.Closed {
		t.Errorf("State = %v after successful probes, want Closed", got)
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := resilience.NewBreaker(resilience.BreakerConfig{Trip: 1, Cooldown: 10 * time.Millisecond, Probes: 3})

	b.Do(failing)
	time.Sleep(20 * time.Millisecond)

	if err := b.Do(failing); !errors.Is(err, errBackend) {
		t.Fatalf("probe err = %v, want backend error", err)
	}
	if got := b.State(); got != resilience.Open {
		t.Errorf("State = %v after failed probe, want Open", got)
	}
	if err := b.Do(succeeding); !errors.Is(err, resilience.ErrOpen) {
		t.Errorf("err = %v, want ErrOpen right after re-open", err)
	}
}

func TestBreakerReset(t *testing.T) {
	b := resilience.NewBreaker(resilience.BreakerConfig{Trip: 1, Cooldown: time.Hour})

	b.Do(failing)
	if got := b.State(); got != resilience.Open {
		t.Fatalf("State = %v, want Open", got)
	}

	b.Reset()
	if got := b.State(); got != resilience.Closed {
		t.Errorf("State = %v after Reset, want Closed", got)
	}
	if err := b.Do(succeeding); err != nil {
		t.Errorf("Do after Reset: %v", err)
	}
}

func TestStateString(t *testing.T) {
	cases := map[resilience.State]string{
		resilience.Closed:   "closed",
		resilience.Open:     "open",
		resilience.HalfOpen: "half-open",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
