// Package transcript corrects STT output for interview-specific vocabulary.
//
// Raw speech-to-text is rarely perfect for proper nouns: company names,
// framework names, and technical terms are frequently misheard. The
// Corrector applies a two-stage strategy:
//
//  1. Phonetic matching: fast, in-process alignment of transcript n-grams
//     against the configured keyword list.
//  2. LLM review: for transcripts whose overall STT confidence is low, a
//     language model resolves mishearings the phonetic stage missed.
//
// Both stages are optional and best-effort; a correction failure never
// fails the pipeline run that requested it.
package transcript

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/intervox-ai/intervox/internal/transcript/llmreview"
	"github.com/intervox-ai/intervox/internal/transcript/phonetic"
)

const defaultReviewThreshold = 0.5

// Correction records a single substitution and which stage produced it.
// Method is "phonetic" or "llm".
type Correction struct {
	Original   string  `json:"original"`
	Corrected  string  `json:"corrected"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
}

// Result pairs the original text with the corrected text and an itemized
// record of every substitution. Corrections is empty, not nil, when nothing
// changed.
type Result struct {
	Original    string       `json:"original"`
	Corrected   string       `json:"corrected"`
	Corrections []Correction `json:"corrections"`
}

// Option configures a Corrector.
type Option func(*Corrector)

// WithReviewer enables the LLM review stage.
func WithReviewer(r *llmreview.Reviewer) Option {
	return func(c *Corrector) { c.reviewer = r }
}

// WithReviewThreshold sets the STT confidence below which the LLM review
// stage runs. Default 0.5; transcripts without a confidence score (0) are
// always eligible when a reviewer is configured.
func WithReviewThreshold(t float64) Option {
	return func(c *Corrector) { c.reviewThreshold = t }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Corrector) { c.log = l }
}

// Corrector applies keyword corrections to transcripts. Safe for concurrent
// use; the keyword list can be swapped at runtime with [Corrector.SetKeywords].
type Corrector struct {
	mu              sync.RWMutex
	keywords        []string
	matcher         *phonetic.Matcher
	reviewer        *llmreview.Reviewer
	reviewThreshold float64
	log             *slog.Logger
}

// New builds a Corrector for the given keyword list. An empty list produces
// a pass-through corrector.
func New(keywords []string, opts ...Option) *Corrector {
	c := &Corrector{
		keywords:        keywords,
		matcher:         phonetic.New(keywords),
		reviewThreshold: defaultReviewThreshold,
		log:             slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Correct runs the configured stages over text. sttConfidence is the
// provider's overall confidence for the transcript, in [0, 1], with 0
// meaning unknown. Correct never fails; LLM review errors are logged and
// the phonetic-stage text is returned instead.
func (c *Corrector) Correct(ctx context.Context, text string, sttConfidence float64) *Result {
	c.mu.RLock()
	keywords, matcher := c.keywords, c.matcher
	c.mu.RUnlock()

	res := &Result{Original: text, Corrected: text, Corrections: []Correction{}}
	if len(keywords) == 0 || strings.TrimSpace(text) == "" {
		return res
	}

	res.Corrected, res.Corrections = applyPhonetic(matcher, text)

	if c.reviewer != nil && sttConfidence <= c.reviewThreshold {
		reviewed, corrections, err := c.reviewer.Review(ctx, res.Corrected, keywords)
		if err != nil {
			c.log.Warn("llm transcript review failed, keeping phonetic result", "error", err)
			return res
		}
		res.Corrected = reviewed
		for _, rc := range corrections {
			res.Corrections = append(res.Corrections, Correction{
				Original:   rc.Original,
				Corrected:  rc.Corrected,
				Confidence: rc.Confidence,
				Method:     "llm",
			})
		}
	}
	return res
}

// SetKeywords replaces the keyword list and rebuilds the phonetic matcher.
// In-flight Correct calls finish against the list they started with.
func (c *Corrector) SetKeywords(keywords []string) {
	matcher := phonetic.New(keywords)
	c.mu.Lock()
	c.keywords = keywords
	c.matcher = matcher
	c.mu.Unlock()
}

// applyPhonetic scans the text with n-gram windows up to the longest
// keyword's word count, preferring the longest window that matches so
// multi-word keywords win over partial single-word hits.
func applyPhonetic(matcher *phonetic.Matcher, text string) (string, []Correction) {
	tokens := strings.Fields(text)
	corrections := []Correction{}
	if len(tokens) == 0 {
		return text, corrections
	}

	var out []string
	for i := 0; i < len(tokens); {
		maxN := matcher.MaxTokens()
		if i+maxN > len(tokens) {
			maxN = len(tokens) - i
		}

		matched := false
		for n := maxN; n >= 1; n-- {
			window := strings.Join(tokens[i:i+n], " ")
			keyword, conf, ok := matcher.Match(window)
			if !ok {
				continue
			}
			out = append(out, strings.Fields(keyword)...)
			if window != keyword {
				corrections = append(corrections, Correction{
					Original:   window,
					Corrected:  keyword,
					Confidence: conf,
					Method:     "phonetic",
				})
			}
			i += n
			matched = true
			break
		}
		if !matched {
			out = append(out, tokens[i])
			i++
		}
	}
	return strings.Join(out, " "), corrections
}
