// Package tts defines the Provider interface for Text-to-Speech backends and
// the Registry that selects one by name.
//
// Unlike the STT side there is no failover chain: the caller names a
// provider, and an unconfigured or failing provider simply returns an error.
// The caller decides whether to try a different named provider.
//
// Providers return raw encoded audio plus a declared format tag; they never
// transcode. Input text longer than a backend's limit is truncated — at a
// rune boundary, trailing end only — rather than rejected.
//
// Implementations must be safe for concurrent use.
package tts

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"unicode/utf8"
)

// ErrUnknownProvider is returned when a request names a provider the
// registry does not hold. There is no fallback; the set is closed.
var ErrUnknownProvider = errors.New("tts: unknown provider")

// Request carries one synthesis call.
type Request struct {
	// Text is the content to speak. Text beyond the provider's limit is
	// trimmed from the end before transmission.
	Text string

	// Voice is the provider-specific voice identifier. Empty selects the
	// provider's default voice.
	Voice string

	// Format is the requested output codec tag (e.g., "mp3", "pcm").
	// Empty selects the provider's default.
	Format string
}

// Result is a successful synthesis.
type Result struct {
	// Audio is the encoded audio payload, exactly as the backend returned it.
	Audio []byte

	// Format is the codec tag of Audio.
	Format string

	// Provider names the backend that produced this result.
	Provider string
}

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Synthesize speaks the request text. One attempt, no retry; any
	// transport failure or non-2xx response is returned as an error.
	Synthesize(ctx context.Context, req Request) (*Result, error)

	// Name returns the provider's stable identifier (e.g., "elevenlabs").
	Name() string

	// Configured reports whether credentials are present.
	Configured() bool
}

// Registry maps provider names to implementations. Selection is a pure
// lookup resolved once per call; the set is closed at construction time.
type Registry struct {
	providers   map[string]Provider
	defaultName string
}

// NewRegistry builds a Registry over the given providers, keyed by their
// Name(). defaultName selects the provider used when the caller names none;
// it must match one of the providers.
func NewRegistry(defaultName string, providers ...Provider) (*Registry, error) {
	m := make(map[string]Provider, len(providers))
	for _, p := range providers {
		if _, dup := m[p.Name()]; dup {
			return nil, fmt.Errorf("tts: duplicate provider %q", p.Name())
		}
		m[p.Name()] = p
	}
	if _, ok := m[defaultName]; !ok {
		return nil, fmt.Errorf("tts: default provider %q not registered", defaultName)
	}
	return &Registry{providers: m, defaultName: defaultName}, nil
}

// Get resolves a provider by name. An empty name resolves the default.
func (r *Registry) Get(name string) (Provider, error) {
	if name == "" {
		name = r.defaultName
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return p, nil
}

// Synthesize resolves the named provider and dispatches to it.
func (r *Registry) Synthesize(ctx context.Context, providerName string, req Request) (*Result, error) {
	p, err := r.Get(providerName)
	if err != nil {
		return nil, err
	}
	return p.Synthesize(ctx, req)
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Status describes one provider's configuration state for the status query.
type Status struct {
	Name       string `json:"name"`
	Configured bool   `json:"configured"`
	Default    bool   `json:"default"`
}

// Statuses reports each registered provider's configuration state.
func (r *Registry) Statuses() []Status {
	out := make([]Status, 0, len(r.providers))
	for _, name := range r.Names() {
		p := r.providers[name]
		out = append(out, Status{
			Name:       name,
			Configured: p.Configured(),
			Default:    name == r.defaultName,
		})
	}
	return out
}

// TruncateText trims s to at most maxBytes bytes without splitting a UTF-8
// rune, preferring to cut at the last space inside the limit so the spoken
// output does not end mid-word. maxBytes <= 0 returns s unchanged.
func TruncateText(s string, maxBytes int) string {
	if maxBytes <= 0 || len(s) <= maxBytes {
		return s
	}

	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	trimmed := s[:cut]

	// Prefer a word boundary when one exists in the back half of the cut.
	for i := len(trimmed) - 1; i > len(trimmed)/2; i-- {
		if trimmed[i] == ' ' {
			return trimmed[:i]
		}
	}
	return trimmed
}
