package config_test

import (
	"testing"
	"time"

	"github.com/intervox-ai/intervox/internal/config"
)

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{
		Server: config.ServerConfig{LogLevel: config.LogInfo},
		Interview: config.InterviewConfig{
			Keywords: []string{"Kubernetes", "PostgreSQL"},
		},
	}
	d := config.Diff(cfg, cfg)
	if d.Any() {
		t.Errorf("expected no changes for identical configs, got %+v", d)
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Server: config.ServerConfig{LogLevel: config.LogInfo}}
	new := &config.Config{Server: config.ServerConfig{LogLevel: config.LogDebug}}

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged=true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("expected NewLogLevel=debug, got %q", d.NewLogLevel)
	}
	if d.KeywordsChanged || d.RecordingChanged {
		t.Error("only the log level should have changed")
	}
}

func TestDiff_KeywordsChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{
		Interview: config.InterviewConfig{Keywords: []string{"Kubernetes"}},
	}
	new := &config.Config{
		Interview: config.InterviewConfig{Keywords: []string{"Kubernetes", "Terraform"}},
	}

	d := config.Diff(old, new)
	if !d.KeywordsChanged {
		t.Error("expected KeywordsChanged=true")
	}
	if len(d.NewKeywords) != 2 || d.NewKeywords[1] != "Terraform" {
		t.Errorf("NewKeywords: got %v", d.NewKeywords)
	}
}

func TestDiff_KeywordOrderMatters(t *testing.T) {
	t.Parallel()
	// Reordering counts as a change; the matcher rebuild is cheap and exact
	// equality keeps the diff predictable.
	old := &config.Config{
		Interview: config.InterviewConfig{Keywords: []string{"a", "b"}},
	}
	new := &config.Config{
		Interview: config.InterviewConfig{Keywords: []string{"b", "a"}},
	}
	if d := config.Diff(old, new); !d.KeywordsChanged {
		t.Error("expected KeywordsChanged=true for reordered keywords")
	}
}

func TestDiff_RecordingChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{
		Recording: config.RecordingConfig{SilenceTimeout: config.Duration(2 * time.Second)},
	}
	new := &config.Config{
		Recording: config.RecordingConfig{SilenceTimeout: config.Duration(3 * time.Second)},
	}

	d := config.Diff(old, new)
	if !d.RecordingChanged {
		t.Error("expected RecordingChanged=true")
	}
	if d.NewRecording.SilenceTimeout.Std() != 3*time.Second {
		t.Errorf("NewRecording.SilenceTimeout: got %v", d.NewRecording.SilenceTimeout.Std())
	}
}

func TestDiff_ProviderChangesIgnored(t *testing.T) {
	t.Parallel()
	// Provider wiring requires a restart; the diff deliberately skips it.
	old := &config.Config{
		Providers: config.ProvidersConfig{
			LLM: config.LLMProviderConfig{ProviderEntry: config.ProviderEntry{Name: "openai"}},
		},
	}
	new := &config.Config{
		Providers: config.ProvidersConfig{
			LLM: config.LLMProviderConfig{ProviderEntry: config.ProviderEntry{Name: "ollama"}},
		},
	}
	if d := config.Diff(old, new); d.Any() {
		t.Errorf("provider changes should not appear in the diff, got %+v", d)
	}
}

func TestDiff_MultipleChanges(t *testing.T) {
	t.Parallel()
	old := &config.Config{
		Server:    config.ServerConfig{LogLevel: config.LogInfo},
		Interview: config.InterviewConfig{Keywords: []string{"Go"}},
		Recording: config.RecordingConfig{MaxRecordingTime: config.Duration(30 * time.Second)},
	}
	new := &config.Config{
		Server:    config.ServerConfig{LogLevel: config.LogWarn},
		Interview: config.InterviewConfig{Keywords: []string{"Go", "Rust"}},
		Recording: config.RecordingConfig{MaxRecordingTime: config.Duration(60 * time.Second)},
	}

	d := config.Diff(old, new)
	if !d.LogLevelChanged || !d.KeywordsChanged || !d.RecordingChanged {
		t.Errorf("expected all tracked fields changed, got %+v", d)
	}
}
