// Package mock provides a scriptable stt.Provider for tests.
package mock

import (
	"context"
	"sync"

	"github.com/intervox-ai/intervox/pkg/provider/stt"
)

// Provider is a mock stt.Provider. Configure the exported fields before use;
// Calls records every Transcribe invocation.
type Provider struct {
	// ProviderName is returned by Name. Defaults to "mock".
	ProviderName string

	// ConfiguredVal is returned by Configured.
	ConfiguredVal bool

	// TranscribeFunc handles Transcribe calls. When nil, Transcribe returns
	// an empty Result.
	TranscribeFunc func(ctx context.Context, req stt.Request) (*stt.Result, error)

	mu    sync.Mutex
	calls []stt.Request
}

// Compile-time interface assertion.
var _ stt.Provider = (*Provider)(nil)

// Name implements stt.Provider.
func (p *Provider) Name() string {
	if p.ProviderName == "" {
		return "mock"
	}
	return p.ProviderName
}

// Configured implements stt.Provider.
func (p *Provider) Configured() bool { return p.ConfiguredVal }

// Transcribe implements stt.Provider, recording the call.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (*stt.Result, error) {
	p.mu.Lock()
	p.calls = append(p.calls, req)
	p.mu.Unlock()

	if p.TranscribeFunc != nil {
		return p.TranscribeFunc(ctx, req)
	}
	return &stt.Result{Provider: p.Name()}, nil
}

// Calls returns a copy of all recorded Transcribe requests.
func (p *Provider) Calls() []stt.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]stt.Request, len(p.calls))
	copy(out, p.calls)
	return out
}

// CallCount returns the number of Transcribe invocations.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}
