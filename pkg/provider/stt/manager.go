package stt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/intervox-ai/intervox/pkg/ratelimit"
)

// ErrAllUnavailable is returned by [Manager.Transcribe] when every registered
// provider was either unavailable or failed. The error message concatenates
// one note per provider so callers can see exactly which backends were tried
// and why each was rejected.
var ErrAllUnavailable = errors.New("all STT providers unavailable or failed")

// Limit configures the sliding-window rate limit paired with a provider.
// MaxRequests <= 0 means unlimited.
type Limit struct {
	MaxRequests int
	Interval    time.Duration
}

// managerEntry pairs a provider with its dedicated rate limiter.
type managerEntry struct {
	provider Provider
	limiter  *ratelimit.Window
}

// Manager selects among STT providers in a fixed priority order with
// automatic failover.
//
// For each Transcribe call the Manager walks its providers in registration
// order, skipping any that is unconfigured or whose rate window is exhausted,
// and dispatches to the first available one. A successful dispatch returns
// immediately — at most one provider performs a successful call per
// invocation. A failed dispatch is noted and the next provider is tried; no
// provider is retried within a single invocation.
//
// The per-provider rate limiters are the only mutable state; the Manager is
// safe for concurrent use once registration is complete.
type Manager struct {
	entries   []managerEntry
	skipHook  func(provider, reason string)
	errorHook func(provider string, err error)
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithSkipHook installs a callback invoked whenever a provider is skipped
// during failover. reason is "unconfigured" or "rate_limited". The hook must
// be safe for concurrent use; callers typically feed a metrics counter.
func WithSkipHook(hook func(provider, reason string)) ManagerOption {
	return func(m *Manager) { m.skipHook = hook }
}

// WithErrorHook installs a callback invoked whenever a dispatched provider
// returns an error before failover moves on. The hook must be safe for
// concurrent use; callers typically feed a metrics counter.
func WithErrorHook(hook func(provider string, err error)) ManagerOption {
	return func(m *Manager) { m.errorHook = hook }
}

// NewManager creates an empty Manager. Register providers with [Manager.Add]
// in priority order before use.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Add appends a provider with its rate limit. Providers are tried in the
// order they are added. Not safe to call concurrently with Transcribe.
func (m *Manager) Add(p Provider, limit Limit) {
	m.entries = append(m.entries, managerEntry{
		provider: p,
		limiter:  ratelimit.NewWindow(limit.MaxRequests, limit.Interval),
	})
}

// Providers returns the registered provider names in priority order.
func (m *Manager) Providers() []string {
	names := make([]string, len(m.entries))
	for i, e := range m.entries {
		names[i] = e.provider.Name()
	}
	return names
}

// Transcribe runs the failover algorithm over the registered providers.
//
// Skipped providers (unconfigured or rate-exhausted) do not consume rate
// budget; a provider's limiter is charged only when a request is actually
// dispatched to it. When every provider is skipped or fails, the returned
// error wraps [ErrAllUnavailable] and lists each provider's reason.
func (m *Manager) Transcribe(ctx context.Context, req Request) (*Result, error) {
	if len(m.entries) == 0 {
		return nil, fmt.Errorf("%w: no providers registered", ErrAllUnavailable)
	}

	var notes []string
	for i := range m.entries {
		entry := &m.entries[i]
		name := entry.provider.Name()

		if !entry.provider.Configured() {
			notes = append(notes, name+": not configured")
			slog.Debug("skipping STT provider (not configured)", "provider", name)
			if m.skipHook != nil {
				m.skipHook(name, "unconfigured")
			}
			continue
		}
		if !entry.limiter.Allow() {
			reset := entry.limiter.ResetAt()
			notes = append(notes, fmt.Sprintf("%s: rate limit exhausted (resets %s)", name, reset.Format(time.RFC3339)))
			slog.Debug("skipping STT provider (rate limit exhausted)",
				"provider", name, "reset_at", reset)
			if m.skipHook != nil {
				m.skipHook(name, "rate_limited")
			}
			continue
		}

		entry.limiter.Record()
		result, err := entry.provider.Transcribe(ctx, req)
		if err != nil {
			notes = append(notes, name+": "+err.Error())
			slog.Warn("STT provider failed, trying next",
				"provider", name, "error", err)
			if m.errorHook != nil {
				m.errorHook(name, err)
			}
			continue
		}
		if result.Provider == "" {
			result.Provider = name
		}
		return result, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrAllUnavailable, strings.Join(notes, "; "))
}

// ProviderStatus describes one provider's availability for the status query.
type ProviderStatus struct {
	// Name is the provider identifier.
	Name string `json:"name"`

	// Configured reports whether credentials are present.
	Configured bool `json:"configured"`

	// Remaining is the rate budget left in the current window; -1 means
	// unlimited.
	Remaining int `json:"remaining"`

	// ResetAt is when the oldest in-window dispatch expires. Zero when the
	// window is empty or unlimited.
	ResetAt time.Time `json:"reset_at,omitzero"`
}

// Status reports each registered provider's configuration state and remaining
// rate budget. Used by operational tooling, not by the pipeline itself.
func (m *Manager) Status() []ProviderStatus {
	out := make([]ProviderStatus, len(m.entries))
	for i, e := range m.entries {
		out[i] = ProviderStatus{
			Name:       e.provider.Name(),
			Configured: e.provider.Configured(),
			Remaining:  e.limiter.Remaining(),
			ResetAt:    e.limiter.ResetAt(),
		}
	}
	return out
}
