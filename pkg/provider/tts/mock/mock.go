// Package mock provides a scriptable tts.Provider for tests.
package mock

import (
	"context"
	"sync"

	"github.com/intervox-ai/intervox/pkg/provider/tts"
)

// Provider is a mock TTS backend. Zero value is usable; set SynthesizeFunc
// to script responses. Safe for concurrent use.
type Provider struct {
	// ProviderName is returned by Name. Defaults to "mock".
	ProviderName string

	// ConfiguredVal is returned by Configured.
	ConfiguredVal bool

	// SynthesizeFunc handles Synthesize calls. When nil, Synthesize returns
	// a small fixed payload tagged with the request format.
	SynthesizeFunc func(ctx context.Context, req tts.Request) (*tts.Result, error)

	mu    sync.Mutex
	calls []tts.Request
}

var _ tts.Provider = (*Provider)(nil)

// Name implements tts.Provider.
func (p *Provider) Name() string {
	if p.ProviderName == "" {
		return "mock"
	}
	return p.ProviderName
}

// Configured implements tts.Provider.
func (p *Provider) Configured() bool { return p.ConfiguredVal }

// Synthesize implements tts.Provider.
func (p *Provider) Synthesize(ctx context.Context, req tts.Request) (*tts.Result, error) {
	p.mu.Lock()
	p.calls = append(p.calls, req)
	p.mu.Unlock()

	if p.SynthesizeFunc != nil {
		return p.SynthesizeFunc(ctx, req)
	}
	format := req.Format
	if format == "" {
		format = "mp3"
	}
	return &tts.Result{
		Audio:    []byte("mock-audio"),
		Format:   format,
		Provider: p.Name(),
	}, nil
}

// Calls returns a copy of all requests seen so far.
func (p *Provider) Calls() []tts.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]tts.Request, len(p.calls))
	copy(out, p.calls)
	return out
}

// CallCount returns how many Synthesize calls have been made.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}
