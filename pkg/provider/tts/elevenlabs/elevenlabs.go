// Package elevenlabs implements tts.Provider against the ElevenLabs
// text-to-speech REST API.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/intervox-ai/intervox/pkg/provider/tts"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io"
	defaultModel   = "eleven_multilingual_v2"
	defaultVoice   = "21m00Tcm4TlvDq8ikWAM" // Rachel
	defaultTimeout = 60 * time.Second

	// maxTextLen is the request character budget; longer text is trimmed
	// before transmission rather than rejected by the API.
	maxTextLen = 5000
)

// Provider speaks text through ElevenLabs. Safe for concurrent use.
type Provider struct {
	apiKey  string
	baseURL string
	model   string
	voice   string
	client  *http.Client
}

var _ tts.Provider = (*Provider)(nil)

// Option customizes a Provider.
type Option func(*Provider)

// WithBaseURL overrides the API endpoint, for tests and proxies.
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = u }
}

// WithModel selects the synthesis model (e.g., "eleven_turbo_v2_5").
func WithModel(m string) Option {
	return func(p *Provider) { p.model = m }
}

// WithVoice sets the default voice ID used when a request names none.
func WithVoice(v string) Option {
	return func(p *Provider) { p.voice = v }
}

// WithHTTPClient substitutes the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.client = c }
}

// New builds an ElevenLabs provider. An empty apiKey yields a provider that
// reports Configured() == false and fails every Synthesize call.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   defaultModel,
		voice:   defaultVoice,
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements tts.Provider.
func (p *Provider) Name() string { return "elevenlabs" }

// Configured implements tts.Provider.
func (p *Provider) Configured() bool { return p.apiKey != "" }

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize implements tts.Provider.
func (p *Provider) Synthesize(ctx context.Context, req tts.Request) (*tts.Result, error) {
	if !p.Configured() {
		return nil, errors.New("elevenlabs: api key not configured")
	}
	if req.Text == "" {
		return nil, errors.New("elevenlabs: empty text")
	}

	voice := req.Voice
	if voice == "" {
		voice = p.voice
	}
	format := req.Format
	if format == "" {
		format = "mp3"
	}
	outputFormat, err := apiOutputFormat(format)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(synthesisRequest{
		Text:    tts.TruncateText(req.Text, maxTextLen),
		ModelID: p.model,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: encode request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s", p.baseURL, voice, outputFormat)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: synthesis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("elevenlabs: synthesis failed: status %d: %s", resp.StatusCode, detail)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: read audio: %w", err)
	}

	return &tts.Result{
		Audio:    audio,
		Format:   format,
		Provider: p.Name(),
	}, nil
}

// apiOutputFormat maps a codec tag to the ElevenLabs output_format value.
func apiOutputFormat(format string) (string, error) {
	switch format {
	case "mp3":
		return "mp3_44100_128", nil
	case "pcm":
		return "pcm_16000", nil
	case "ulaw":
		return "ulaw_8000", nil
	default:
		return "", fmt.Errorf("elevenlabs: unsupported format %q", format)
	}
}
