// Package phonetic aligns misheard transcript words with a known keyword
// list using Double Metaphone codes filtered through Jaro-Winkler ranking.
//
// Candidate selection runs in two stages. Words that share a phonetic code
// with a keyword are ranked by Jaro-Winkler similarity against a permissive
// threshold; when no phonetic candidate exists, a stricter pure-similarity
// pass catches spelling-level mismatches the encoder cannot see. The keyword
// set and its codes are computed once at construction, so matching a word is
// allocation-light and safe for concurrent use.
package phonetic

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// Option configures a Matcher.
type Option func(*Matcher)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score a phonetic
// candidate must reach. Default 0.70.
func WithPhoneticThreshold(t float64) Option {
	return func(m *Matcher) { m.phoneticThreshold = t }
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score for the fallback
// pass used when no keyword is phonetically close. Default 0.85.
func WithFuzzyThreshold(t float64) Option {
	return func(m *Matcher) { m.fuzzyThreshold = t }
}

// keyword is one canonical term with its precomputed phonetic codes.
type keyword struct {
	canonical string
	lower     string
	tokens    []string
	codes     map[string]struct{}
}

// Matcher matches words against a fixed keyword list. Read-only after
// construction; safe for concurrent use.
type Matcher struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
	keywords          []keyword
	maxTokens         int
}

// New builds a Matcher over the given keywords (company names, technology
// terms, product names). Blank keywords are ignored.
func New(keywords []string, opts ...Option) *Matcher {
	m := &Matcher{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
		maxTokens:         1,
	}
	for _, o := range opts {
		o(m)
	}
	for _, k := range keywords {
		lower := strings.ToLower(strings.TrimSpace(k))
		if lower == "" {
			continue
		}
		tokens := strings.Fields(lower)
		m.keywords = append(m.keywords, keyword{
			canonical: strings.TrimSpace(k),
			lower:     lower,
			tokens:    tokens,
			codes:     codesFor(tokens),
		})
		if len(tokens) > m.maxTokens {
			m.maxTokens = len(tokens)
		}
	}
	return m
}

// MaxTokens returns the word count of the longest keyword, which bounds the
// n-gram window callers need to scan with.
func (m *Matcher) MaxTokens() int { return m.maxTokens }

// Match tests word (a single word or a short space-separated n-gram)
// against the keyword list. When matched is false, corrected equals word
// unchanged and confidence is 0.
func (m *Matcher) Match(word string) (corrected string, confidence float64, matched bool) {
	lower := strings.ToLower(strings.TrimSpace(word))
	if lower == "" || len(m.keywords) == 0 {
		return word, 0, false
	}
	tokens := strings.Fields(lower)
	codes := codesFor(tokens)

	var (
		bestKeyword  string
		bestScore    float64
		bestPhonetic bool
	)
	for _, k := range m.keywords {
		score := similarity(tokens, k.tokens, lower, k.lower)
		if overlap(codes, k.codes) {
			if score >= m.phoneticThreshold && (!bestPhonetic || score > bestScore) {
				bestKeyword, bestScore, bestPhonetic = k.canonical, score, true
			}
		} else if !bestPhonetic && score >= m.fuzzyThreshold && score > bestScore {
			bestKeyword, bestScore = k.canonical, score
		}
	}

	if bestKeyword == "" {
		return word, 0, false
	}
	return bestKeyword, bestScore, true
}

// codesFor returns the union of Double Metaphone codes for the tokens.
func codesFor(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

func overlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for c := range a {
		if _, ok := b[c]; ok {
			return true
		}
	}
	return false
}

// similarity is the best Jaro-Winkler score across full strings, the
// space-stripped strings, and every token pair. The extra strategies keep
// multi-word terms ("machine learning") comparable to single misheard words
// ("machinelearning").
func similarity(aTokens, bTokens []string, aFull, bFull string) float64 {
	score := matchr.JaroWinkler(aFull, bFull, false)
	if len(aTokens) > 1 || len(bTokens) > 1 {
		if s := matchr.JaroWinkler(strings.Join(aTokens, ""), strings.Join(bTokens, ""), false); s > score {
			score = s
		}
	}
	for _, at := range aTokens {
		for _, bt := range bTokens {
			if s := matchr.JaroWinkler(at, bt, false); s > score {
				score = s
			}
		}
	}
	return score
}
