package health

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/intervox-ai/intervox/pkg/provider/llm"
	"github.com/intervox-ai/intervox/pkg/provider/stt"
	"github.com/intervox-ai/intervox/pkg/provider/tts"
)

// STTChecker reports ready when at least one transcription provider is
// configured. Rate-limited providers still count as configured; the limit is
// transient and the manager fails over on its own.
func STTChecker(m *stt.Manager) Checker {
	return Checker{
		Name: "stt",
		Check: func(_ context.Context) error {
			statuses := m.Status()
			if len(statuses) == 0 {
				return errors.New("no transcription providers registered")
			}
			var unconfigured []string
			for _, s := range statuses {
				if s.Configured {
					return nil
				}
				unconfigured = append(unconfigured, s.Name)
			}
			return fmt.Errorf("no transcription provider configured (have: %s)", strings.Join(unconfigured, ", "))
		},
	}
}

// LLMChecker reports ready when the response-generation backend has its
// credentials.
func LLMChecker(p llm.Provider) Checker {
	return Checker{
		Name: "llm",
		Check: func(_ context.Context) error {
			if p == nil {
				return errors.New("no language model provider registered")
			}
			if !p.Configured() {
				return fmt.Errorf("provider %q is not configured", p.Name())
			}
			return nil
		},
	}
}

// TTSChecker reports ready when at least one synthesis provider is
// configured. Synthesis has no failover, so an unconfigured default is
// reported even when another provider would pass.
func TTSChecker(r *tts.Registry) Checker {
	return Checker{
		Name: "tts",
		Check: func(_ context.Context) error {
			statuses := r.Statuses()
			if len(statuses) == 0 {
				return errors.New("no synthesis providers registered")
			}
			anyConfigured := false
			for _, s := range statuses {
				if s.Default && !s.Configured {
					return fmt.Errorf("default provider %q is not configured", s.Name)
				}
				if s.Configured {
					anyConfigured = true
				}
			}
			if !anyConfigured {
				return errors.New("no synthesis provider configured")
			}
			return nil
		},
	}
}
