// Package config provides the configuration schema, loader, file watcher,
// and provider registry for the Intervox voice pipeline server.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// LogLevel controls log verbosity for the Intervox server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Duration wraps time.Duration with YAML support for strings like "2s" or
// "300ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the root configuration structure for Intervox.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	VAD       VADConfig       `yaml:"vad"`
	Recording RecordingConfig `yaml:"recording"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Interview InterviewConfig `yaml:"interview"`
}

// ServerConfig holds network and logging settings for the Intervox server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// ProvidersConfig declares the provider implementations for each pipeline
// stage. STT providers are an ordered failover list; TTS providers form a
// closed named set with a default; LLM is a single backend.
type ProvidersConfig struct {
	STT []STTProviderConfig `yaml:"stt"`
	LLM LLMProviderConfig   `yaml:"llm"`
	TTS TTSProvidersConfig  `yaml:"tts"`
}

// ProviderEntry is the common configuration block shared by all provider
// types. The Name field selects the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "openai",
	// "deepgram", "elevenlabs").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "whisper-1",
	// "nova-2", "tts-1").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by
	// the standard fields above.
	Options map[string]any `yaml:"options"`
}

// STTProviderConfig pairs a provider entry with its rate limit. Order in the
// config file is failover priority order.
type STTProviderConfig struct {
	ProviderEntry `yaml:",inline"`

	// RateLimit bounds dispatches to this provider with a sliding window.
	// Nil means unlimited.
	RateLimit *RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig describes one provider's sliding window.
type RateLimitConfig struct {
	// MaxRequests is the dispatch budget within Interval. <= 0 disables the
	// limit.
	MaxRequests int `yaml:"max_requests"`

	// Interval is the window length (e.g., "1m").
	Interval Duration `yaml:"interval"`
}

// LLMProviderConfig configures the response-generation backend.
type LLMProviderConfig struct {
	ProviderEntry `yaml:",inline"`

	// Temperature overrides the sampling temperature. 0 keeps the default.
	Temperature float64 `yaml:"temperature"`

	// MaxTokens caps the response length. 0 keeps the default.
	MaxTokens int `yaml:"max_tokens"`

	// HistoryLimit overrides how many trailing conversation messages are
	// sent. 0 keeps the backend's default.
	HistoryLimit int `yaml:"history_limit"`
}

// TTSProvidersConfig is the named synthesis provider set.
type TTSProvidersConfig struct {
	// Default names the provider used when a request does not specify one.
	// Defaults to the first configured provider.
	Default string `yaml:"default"`

	// Providers lists the available synthesis backends.
	Providers []TTSProviderConfig `yaml:"providers"`
}

// TTSProviderConfig configures one synthesis backend.
type TTSProviderConfig struct {
	ProviderEntry `yaml:",inline"`

	// Voice is the default voice identifier for this provider.
	Voice string `yaml:"voice"`
}

// VADConfig holds voice activity detection thresholds. Zero fields keep the
// detector defaults; gain and ambient noise vary per deployment, so these
// are knobs rather than constants.
type VADConfig struct {
	// EnergyThreshold is the minimum normalized RMS amplitude for speech.
	EnergyThreshold float64 `yaml:"energy_threshold"`

	// ZCRMin and ZCRMax bound the zero-crossing-rate band for speech.
	ZCRMin float64 `yaml:"zcr_min"`
	ZCRMax float64 `yaml:"zcr_max"`
}

// RecordingConfig holds the recording controller's timing knobs.
type RecordingConfig struct {
	// SilenceTimeout ends a recording after this much continuous silence.
	SilenceTimeout Duration `yaml:"silence_timeout"`

	// MaxRecordingTime force-finalizes a recording regardless of VAD.
	MaxRecordingTime Duration `yaml:"max_recording_time"`

	// MinUtterance drops captures shorter than this without calling STT.
	MinUtterance Duration `yaml:"min_utterance"`
}

// PipelineConfig holds per-stage timeouts.
type PipelineConfig struct {
	STTTimeout Duration `yaml:"stt_timeout"`
	LLMTimeout Duration `yaml:"llm_timeout"`
	TTSTimeout Duration `yaml:"tts_timeout"`
}

// InterviewConfig holds interview-domain settings that are not per-session.
type InterviewConfig struct {
	// Keywords lists domain terms (company names, technologies) the
	// transcript corrector aligns STT output against.
	Keywords []string `yaml:"keywords"`

	// LLMReview enables the language-model correction pass for
	// low-confidence transcripts.
	LLMReview bool `yaml:"llm_review"`

	// ReviewThreshold is the STT confidence below which the review pass
	// runs. 0 keeps the default.
	ReviewThreshold float64 `yaml:"review_threshold"`
}
