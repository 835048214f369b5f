// Package openai implements tts.Provider against the OpenAI speech endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/intervox-ai/intervox/pkg/provider/tts"
)

const (
	defaultModel   = string(oai.SpeechModelTTS1)
	defaultVoice   = string(oai.AudioSpeechNewParamsVoiceAlloy)
	defaultTimeout = 60 * time.Second

	// maxTextLen mirrors the API's 4096-character input cap.
	maxTextLen = 4096
)

// Provider speaks text through the OpenAI speech endpoint.
// Safe for concurrent use.
type Provider struct {
	client     oai.Client
	model      string
	voice      string
	configured bool
}

var _ tts.Provider = (*Provider)(nil)

// config holds optional configuration for the provider.
type config struct {
	baseURL    string
	model      string
	voice      string
	httpClient *http.Client
}

// Option customizes a Provider.
type Option func(*config)

// WithBaseURL overrides the API endpoint, for tests and compatible servers.
func WithBaseURL(u string) Option {
	return func(c *config) { c.baseURL = u }
}

// WithModel selects the speech model (e.g., "tts-1-hd").
func WithModel(m string) Option {
	return func(c *config) { c.model = m }
}

// WithVoice sets the default voice used when a request names none.
func WithVoice(v string) Option {
	return func(c *config) { c.voice = v }
}

// WithHTTPClient substitutes the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) { c.httpClient = hc }
}

// New builds an OpenAI speech provider. An empty apiKey yields a provider
// that reports Configured() == false and fails every Synthesize call.
func New(apiKey string, opts ...Option) *Provider {
	cfg := &config{
		model:      defaultModel,
		voice:      defaultVoice,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(cfg.httpClient),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}

	return &Provider{
		client:     oai.NewClient(reqOpts...),
		model:      cfg.model,
		voice:      cfg.voice,
		configured: apiKey != "",
	}
}

// Name implements tts.Provider.
func (p *Provider) Name() string { return "openai" }

// Configured implements tts.Provider.
func (p *Provider) Configured() bool { return p.configured }

// Synthesize implements tts.Provider.
func (p *Provider) Synthesize(ctx context.Context, req tts.Request) (*tts.Result, error) {
	if !p.configured {
		return nil, errors.New("openai tts: api key not configured")
	}
	if req.Text == "" {
		return nil, errors.New("openai tts: empty text")
	}

	voice := req.Voice
	if voice == "" {
		voice = p.voice
	}
	format := req.Format
	if format == "" {
		format = "mp3"
	}
	if err := checkFormat(format); err != nil {
		return nil, err
	}

	resp, err := p.client.Audio.Speech.New(ctx, oai.AudioSpeechNewParams{
		Model:          oai.SpeechModel(p.model),
		Input:          tts.TruncateText(req.Text, maxTextLen),
		Voice:          oai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormat(format),
	})
	if err != nil {
		return nil, fmt.Errorf("openai tts: speech request: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai tts: read audio: %w", err)
	}

	return &tts.Result{
		Audio:    audio,
		Format:   format,
		Provider: p.Name(),
	}, nil
}

func checkFormat(format string) error {
	switch format {
	case "mp3", "opus", "aac", "flac", "wav", "pcm":
		return nil
	default:
		return fmt.Errorf("openai tts: unsupported format %q", format)
	}
}
