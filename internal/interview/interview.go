// Package interview holds the interview-aware response generation: prompt
// assembly from an interview configuration, bounded conversation history,
// and the progress logic (which question is current, whether the interview
// is finished).
//
// Progress is computed purely from the configuration. The package never
// mutates CurrentIndex; the caller advances it after consuming the question
// it was handed.
package interview

import (
	"fmt"
	"strings"
	"time"
)

// Type classifies an interview.
type Type string

const (
	TypeTechnical  Type = "technical"
	TypeBehavioral Type = "behavioral"
	TypeMixed      Type = "mixed"
)

// IsValid reports whether t is a known interview type.
func (t Type) IsValid() bool {
	switch t {
	case TypeTechnical, TypeBehavioral, TypeMixed:
		return true
	}
	return false
}

// Config describes one interview in progress. Nil Config means free-form
// conversation with no question tracking.
type Config struct {
	Type      Type     `json:"type" yaml:"type"`
	Questions []string `json:"questions" yaml:"questions"`

	// CurrentIndex points at the question currently being asked.
	// Invariant: 0 <= CurrentIndex <= len(Questions). Equal means done.
	CurrentIndex int `json:"current_index" yaml:"current_index"`
}

// Validate checks the config invariants.
func (c *Config) Validate() error {
	var errs []string
	if !c.Type.IsValid() {
		errs = append(errs, fmt.Sprintf("unknown interview type %q", c.Type))
	}
	if c.CurrentIndex < 0 || c.CurrentIndex > len(c.Questions) {
		errs = append(errs, fmt.Sprintf("current_index %d out of range [0, %d]", c.CurrentIndex, len(c.Questions)))
	}
	for i, q := range c.Questions {
		if strings.TrimSpace(q) == "" {
			errs = append(errs, fmt.Sprintf("question %d is empty", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("interview: invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// IsComplete reports whether every question has been consumed. A nil config
// is never complete; there is nothing to finish.
func (c *Config) IsComplete() bool {
	return c != nil && c.CurrentIndex >= len(c.Questions)
}

// NextQuestion returns the question at CurrentIndex and true, or "" and
// false when the interview is complete or untracked. The index is not
// advanced; that is the caller's job after the question is actually asked.
func (c *Config) NextQuestion() (string, bool) {
	if c == nil || c.IsComplete() {
		return "", false
	}
	return c.Questions[c.CurrentIndex], true
}

// Message is one turn of the conversation as the caller's session stores
// it. The orchestrator only ever reads a bounded suffix of these.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}
