package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm": {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq"},
	"stt": {"openai", "deepgram"},
	"tts": {"elevenlabs", "openai"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" {
			errs = append(errs, errors.New("server.tls.cert_file is required when tls is set"))
		}
		if cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls.key_file is required when tls is set"))
		}
	}

	// STT providers: ordered failover list, duplicate names are ambiguous.
	sttNamesSeen := make(map[string]int, len(cfg.Providers.STT))
	for i, p := range cfg.Providers.STT {
		prefix := fmt.Sprintf("providers.stt[%d]", i)
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		} else {
			if prev, ok := sttNamesSeen[p.Name]; ok {
				errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of providers.stt[%d]", prefix, p.Name, prev))
			}
			sttNamesSeen[p.Name] = i
			validateProviderName("stt", p.Name)
		}
		if rl := p.RateLimit; rl != nil && rl.MaxRequests > 0 && rl.Interval <= 0 {
			errs = append(errs, fmt.Errorf("%s.rate_limit.interval is required when max_requests is set", prefix))
		}
	}
	if len(cfg.Providers.STT) == 0 {
		slog.Warn("no STT providers configured; transcription will be unavailable")
	}

	// LLM
	if cfg.Providers.LLM.Name == "" {
		slog.Warn("providers.llm is not configured; response generation will be unavailable")
	} else {
		validateProviderName("llm", cfg.Providers.LLM.Name)
	}
	if t := cfg.Providers.LLM.Temperature; t < 0 || t > 2 {
		errs = append(errs, fmt.Errorf("providers.llm.temperature %.2f is out of range [0, 2]", t))
	}

	// TTS providers: closed named set with an optional explicit default.
	ttsNamesSeen := make(map[string]int, len(cfg.Providers.TTS.Providers))
	for i, p := range cfg.Providers.TTS.Providers {
		prefix := fmt.Sprintf("providers.tts.providers[%d]", i)
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			continue
		}
		if prev, ok := ttsNamesSeen[p.Name]; ok {
			errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of providers.tts.providers[%d]", prefix, p.Name, prev))
		}
		ttsNamesSeen[p.Name] = i
		validateProviderName("tts", p.Name)
	}
	// An omitted default falls back to the first configured provider.
	if cfg.Providers.TTS.Default == "" && len(cfg.Providers.TTS.Providers) > 0 {
		cfg.Providers.TTS.Default = cfg.Providers.TTS.Providers[0].Name
	}
	if d := cfg.Providers.TTS.Default; d != "" {
		if _, ok := ttsNamesSeen[d]; !ok {
			errs = append(errs, fmt.Errorf("providers.tts.default %q does not name a configured provider", d))
		}
	}
	if len(cfg.Providers.TTS.Providers) == 0 {
		slog.Warn("no TTS providers configured; synthesis will be unavailable")
	}

	// VAD
	if v := cfg.VAD.EnergyThreshold; v < 0 || v > 1 {
		errs = append(errs, fmt.Errorf("vad.energy_threshold %.3f is out of range [0, 1]", v))
	}
	if cfg.VAD.ZCRMin != 0 || cfg.VAD.ZCRMax != 0 {
		if cfg.VAD.ZCRMin < 0 || cfg.VAD.ZCRMax > 1 || cfg.VAD.ZCRMin >= cfg.VAD.ZCRMax {
			errs = append(errs, fmt.Errorf("vad zcr band [%.3f, %.3f] is invalid; need 0 <= zcr_min < zcr_max <= 1", cfg.VAD.ZCRMin, cfg.VAD.ZCRMax))
		}
	}

	// Recording
	if cfg.Recording.SilenceTimeout < 0 {
		errs = append(errs, errors.New("recording.silence_timeout must not be negative"))
	}
	if cfg.Recording.MaxRecordingTime < 0 {
		errs = append(errs, errors.New("recording.max_recording_time must not be negative"))
	}
	if st, mx := cfg.Recording.SilenceTimeout, cfg.Recording.MaxRecordingTime; st > 0 && mx > 0 && st > mx {
		slog.Warn("recording.silence_timeout exceeds max_recording_time; recordings will always end at the maximum",
			"silence_timeout", st.Std(),
			"max_recording_time", mx.Std(),
		)
	}
	if mu := cfg.Recording.MinUtterance; mu < 0 {
		errs = append(errs, errors.New("recording.min_utterance must not be negative"))
	}

	// Pipeline timeouts
	for _, tc := range []struct {
		name string
		d    Duration
	}{
		{"pipeline.stt_timeout", cfg.Pipeline.STTTimeout},
		{"pipeline.llm_timeout", cfg.Pipeline.LLMTimeout},
		{"pipeline.tts_timeout", cfg.Pipeline.TTSTimeout},
	} {
		if tc.d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", tc.name))
		}
	}

	// Interview
	if cfg.Interview.LLMReview && cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("interview.llm_review requires providers.llm to be configured"))
	}
	if rt := cfg.Interview.ReviewThreshold; rt < 0 || rt > 1 {
		errs = append(errs, fmt.Errorf("interview.review_threshold %.2f is out of range [0, 1]", rt))
	}
	for i, kw := range cfg.Interview.Keywords {
		if kw == "" {
			errs = append(errs, fmt.Errorf("interview.keywords[%d] is blank", i))
		}
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
