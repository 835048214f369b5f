package resilience

import (
	"context"

	"github.com/intervox-ai/intervox/pkg/provider/llm"
)

// Compile-time interface assertion.
var _ llm.Provider = (*GuardedLLM)(nil)

// GuardedLLM wraps an [llm.Provider] with a [Breaker]. Completion calls pass
// through the circuit; Name and Configured always reach the backend so status
// reporting stays accurate while the circuit is open.
type GuardedLLM struct {
	backend llm.Provider
	breaker *Breaker
}

// GuardLLM wraps backend with a breaker named after the provider. Zero-value
// config fields take the breaker defaults.
func GuardLLM(backend llm.Provider, cfg BreakerConfig) *GuardedLLM {
	if cfg.Name == "" {
		cfg.Name = "llm/" + backend.Name()
	}
	return &GuardedLLM{backend: backend, breaker: NewBreaker(cfg)}
}

// Complete forwards to the backend through the circuit. When the circuit is
// open the call fails immediately with [ErrOpen].
func (g *GuardedLLM) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	var resp *llm.CompletionResponse
	err := g.breaker.Do(func() error {
		var err error
		resp, err = g.backend.Complete(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Name returns the backend's identifier.
func (g *GuardedLLM) Name() string { return g.backend.Name() }

// Configured reports the backend's credential state.
func (g *GuardedLLM) Configured() bool { return g.backend.Configured() }

// HistoryLimit returns the backend's history cap.
func (g *GuardedLLM) HistoryLimit() int { return g.backend.HistoryLimit() }

// State exposes the circuit state for status reporting.
func (g *GuardedLLM) State() State { return g.breaker.State() }
