// Package mock provides a scriptable llm.Provider for tests.
package mock

import (
	"context"
	"sync"

	"github.com/intervox-ai/intervox/pkg/provider/llm"
)

// Provider is a mock llm.Provider. Configure the exported fields before use;
// Calls records every Complete request.
type Provider struct {
	// ProviderName is returned by Name. Defaults to "mock".
	ProviderName string

	// ConfiguredVal is returned by Configured. Defaults to false.
	ConfiguredVal bool

	// Limit is returned by HistoryLimit. Defaults to 8.
	Limit int

	// CompleteFunc handles Complete calls. When nil, Complete returns an
	// empty response.
	CompleteFunc func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)

	mu    sync.Mutex
	calls []llm.CompletionRequest
}

// Compile-time interface assertion.
var _ llm.Provider = (*Provider)(nil)

// Name implements llm.Provider.
func (p *Provider) Name() string {
	if p.ProviderName == "" {
		return "mock"
	}
	return p.ProviderName
}

// Configured implements llm.Provider.
func (p *Provider) Configured() bool { return p.ConfiguredVal }

// HistoryLimit implements llm.Provider.
func (p *Provider) HistoryLimit() int {
	if p.Limit == 0 {
		return 8
	}
	return p.Limit
}

// Complete implements llm.Provider, recording the call.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	p.calls = append(p.calls, req)
	p.mu.Unlock()

	if p.CompleteFunc != nil {
		return p.CompleteFunc(ctx, req)
	}
	return &llm.CompletionResponse{}, nil
}

// Calls returns a copy of all recorded requests.
func (p *Provider) Calls() []llm.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]llm.CompletionRequest, len(p.calls))
	copy(out, p.calls)
	return out
}

// LastCall returns the most recent request, or a zero request when none.
func (p *Provider) LastCall() llm.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.calls) == 0 {
		return llm.CompletionRequest{}
	}
	return p.calls[len(p.calls)-1]
}
