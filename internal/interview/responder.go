package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/intervox-ai/intervox/pkg/provider/llm"
)

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 512
)

// Result is one generated turn plus the progress signals derived from the
// interview configuration at call time.
type Result struct {
	Response     string
	NextQuestion string
	IsComplete   bool
	Usage        llm.Usage
	Provider     string
}

// Responder turns a transcript plus conversation history into the
// interviewer's next utterance. Safe for concurrent use.
type Responder struct {
	provider    llm.Provider
	temperature float64
	maxTokens   int
	log         *slog.Logger
}

// Option customizes a Responder.
type Option func(*Responder)

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float64) Option {
	return func(r *Responder) { r.temperature = t }
}

// WithMaxTokens overrides the response token cap.
func WithMaxTokens(n int) Option {
	return func(r *Responder) { r.maxTokens = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Responder) { r.log = l }
}

// NewResponder builds a Responder over the given LLM provider.
func NewResponder(provider llm.Provider, opts ...Option) (*Responder, error) {
	if provider == nil {
		return nil, errors.New("interview: nil llm provider")
	}
	r := &Responder{
		provider:    provider,
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Provider returns the name of the backing LLM provider.
func (r *Responder) Provider() string { return r.provider.Name() }

// Generate produces the next interviewer turn for the given candidate
// transcript. cfg may be nil for free-form conversation. The history is
// read, never written; only its last-N suffix (per the provider's context
// window) is forwarded, with prior system entries dropped because the
// system prompt is rebuilt fresh on every call.
func (r *Responder) Generate(ctx context.Context, transcript string, history []Message, cfg *Config) (*Result, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, errors.New("interview: empty transcript")
	}
	if cfg != nil {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	req := llm.CompletionRequest{
		SystemPrompt: SystemPrompt(cfg),
		Messages:     historyWindow(history, r.provider.HistoryLimit()),
		Temperature:  r.temperature,
		MaxTokens:    r.maxTokens,
	}
	req.Messages = append(req.Messages, llm.Message{Role: llm.RoleUser, Content: transcript})

	resp, err := r.provider.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("interview: generate response: %w", err)
	}

	r.log.Debug("generated interviewer turn",
		"provider", r.provider.Name(),
		"history_len", len(req.Messages)-1,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	res := &Result{
		Response:   resp.Content,
		IsComplete: cfg.IsComplete(),
		Usage:      resp.Usage,
		Provider:   r.provider.Name(),
	}
	if q, ok := cfg.NextQuestion(); ok {
		res.NextQuestion = q
	}
	return res, nil
}

// SystemPrompt renders the interviewer persona for the given configuration.
// Nil cfg yields a generic conversational prompt.
func SystemPrompt(cfg *Config) string {
	var b strings.Builder
	b.WriteString("You are a professional interviewer conducting a voice interview. ")
	b.WriteString("Keep responses concise and natural for speech: two to four sentences. ")
	b.WriteString("Acknowledge the candidate's answer before moving on.")

	if cfg == nil {
		return b.String()
	}

	fmt.Fprintf(&b, "\n\nInterview type: %s.", cfg.Type)

	total := len(cfg.Questions)
	if cfg.IsComplete() {
		fmt.Fprintf(&b, "\nAll %d questions have been asked. Thank the candidate and close the interview.", total)
		return b.String()
	}

	fmt.Fprintf(&b, "\nYou are on question %d of %d.", cfg.CurrentIndex+1, total)
	b.WriteString("\nRemaining questions, in order:")
	for i := cfg.CurrentIndex; i < total; i++ {
		fmt.Fprintf(&b, "\n%d. %s", i+1, cfg.Questions[i])
	}
	return b.String()
}

// historyWindow returns the last limit entries of history, skipping any
// system-role entries, converted to provider messages.
func historyWindow(history []Message, limit int) []llm.Message {
	filtered := make([]llm.Message, 0, len(history))
	for _, m := range history {
		if m.Role == llm.RoleSystem {
			continue
		}
		filtered = append(filtered, llm.Message{Role: m.Role, Content: m.Content})
	}
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}
	return filtered
}
