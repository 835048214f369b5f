// Package llmreview implements a language-model correction pass for
// transcripts whose STT confidence fell below the caller's comfort level.
//
// The model receives the transcript plus the interview's keyword list and is
// prompted to fix only words that look like misheard keywords, answering
// with a structured JSON object. An unparseable model response degrades to
// the input text unchanged rather than an error, so the voice pipeline never
// stalls on a chatty model.
package llmreview

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/intervox-ai/intervox/pkg/provider/llm"
)

const (
	defaultTemperature = 0.1
	defaultMaxTokens   = 1024
)

const systemPromptTemplate = `You are a transcript correction assistant for a voice job interview.

Your task: fix keyword misspellings in the provided transcript text.

Rules:
- ONLY correct words that appear to be misheard versions of the known keywords listed below.
- Do NOT change ordinary English words, grammar, punctuation, or sentence structure.
- Be conservative. If you are not confident a word is a misheard keyword, leave it unchanged.
- Corrected keywords must match the canonical spelling from the keyword list exactly.

Known keywords:
%s

Respond with ONLY a JSON object in this exact format (no markdown, no prose):
{
  "corrected_text": "<full corrected transcript>",
  "corrections": [
    {"original": "<original word>", "corrected": "<corrected word>", "confidence": <0.0-1.0>}
  ]
}

If no corrections are needed, return an empty corrections array and corrected_text equal to the input.`

// Correction is one substitution reported by the model.
type Correction struct {
	Original   string  `json:"original"`
	Corrected  string  `json:"corrected"`
	Confidence float64 `json:"confidence"`
}

type reviewResponse struct {
	CorrectedText string       `json:"corrected_text"`
	Corrections   []Correction `json:"corrections"`
}

// Option configures a Reviewer.
type Option func(*Reviewer)

// WithTemperature overrides the sampling temperature. Default 0.1.
func WithTemperature(t float64) Option {
	return func(r *Reviewer) { r.temperature = t }
}

// Reviewer corrects keyword mishearings with an llm.Provider. Safe for
// concurrent use.
type Reviewer struct {
	provider    llm.Provider
	temperature float64
}

// New builds a Reviewer over the given provider.
func New(provider llm.Provider, opts ...Option) *Reviewer {
	r := &Reviewer{provider: provider, temperature: defaultTemperature}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Review asks the model to fix keyword mishearings in text. Network and
// context errors are returned; a response that is not the expected JSON
// shape returns text unchanged with no corrections and a nil error.
func (r *Reviewer) Review(ctx context.Context, text string, keywords []string) (string, []Correction, error) {
	if len(keywords) == 0 || strings.TrimSpace(text) == "" {
		return text, nil, nil
	}

	resp, err := r.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: fmt.Sprintf(systemPromptTemplate, "- "+strings.Join(keywords, "\n- ")),
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: text}},
		Temperature:  r.temperature,
		MaxTokens:    defaultMaxTokens,
	})
	if err != nil {
		return "", nil, fmt.Errorf("llmreview: complete: %w", err)
	}

	var parsed reviewResponse
	if err := json.Unmarshal([]byte(extractJSON(resp.Content)), &parsed); err != nil || parsed.CorrectedText == "" {
		return text, nil, nil
	}
	return parsed.CorrectedText, parsed.Corrections, nil
}

// extractJSON strips surrounding prose or markdown fences the model may emit
// despite the prompt, returning the outermost object literal.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}
