// Package openai provides an STT provider backed by the OpenAI audio
// transcription endpoint (Whisper). It implements the stt.Provider interface.
//
// Raw PCM input is wrapped in a WAV container before upload because the
// endpoint only accepts self-describing audio files.
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/intervox-ai/intervox/pkg/audio"
	"github.com/intervox-ai/intervox/pkg/provider/stt"
)

const (
	defaultModel      = string(oai.AudioModelWhisper1)
	defaultTimeout    = 60 * time.Second
	defaultSampleRate = 16000
)

// Compile-time interface assertion.
var _ stt.Provider = (*Provider)(nil)

// config holds optional configuration for the provider.
type config struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// Option is a functional option for configuring the Provider.
type Option func(*config)

// WithBaseURL overrides the API base URL. Useful for proxies and tests.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithModel sets the transcription model (default "whisper-1").
func WithModel(model string) Option {
	return func(c *config) { c.model = model }
}

// WithHTTPClient replaces the HTTP client, including its timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) { c.httpClient = hc }
}

// Provider implements stt.Provider against the OpenAI transcription API.
// An empty API key produces an unconfigured provider that the manager skips;
// construction never fails so that provider wiring stays declarative.
type Provider struct {
	client     oai.Client
	model      string
	configured bool
}

// New creates a Provider. An empty apiKey is allowed and yields
// Configured() == false.
func New(apiKey string, opts ...Option) *Provider {
	cfg := &config{
		model:      defaultModel,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(cfg)
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
		configured: apiKey != "",
	}
}

// Name implements stt.Provider.
func (p *Provider) Name() string { return "openai" }

// Configured implements stt.Provider.
func (p *Provider) Configured() bool { return p.configured }

// Transcribe implements stt.Provider. It uploads the utterance through the
// SDK's transcription endpoint and returns the recognized text.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (*stt.Result, error) {
	if !p.configured {
		return nil, errors.New("openai: API key not configured")
	}
	if len(req.Audio) == 0 {
		return nil, errors.New("openai: empty audio")
	}

	payload, filename := preparePayload(req)
	contentType := "application/octet-stream"
	if strings.HasSuffix(filename, ".wav") {
		contentType = "audio/wav"
	}

	params := oai.AudioTranscriptionNewParams{
		File:  oai.File(bytes.NewReader(payload), filename, contentType),
		Model: oai.AudioModel(p.model),
	}
	if req.Language != "" {
		params.Language = param.NewOpt(req.Language)
	}

	tr, err := p.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai: transcribe: %w", err)
	}

	res := &stt.Result{
		Transcript: tr.Text,
		Language:   req.Language,
		Provider:   p.Name(),
	}
	// The default JSON response carries no timing, so derive the utterance
	// length from the PCM input when we know its geometry.
	if req.Format == "pcm" {
		res.Duration = audio.PCMDuration(len(req.Audio), pcmRate(req), pcmChannels(req))
	}
	return res, nil
}

// preparePayload wraps raw PCM in a WAV container and picks the upload
// filename whose extension tells the backend the container type.
func preparePayload(req stt.Request) (data []byte, filename string) {
	if req.Format != "pcm" {
		ext := req.Format
		if ext == "" {
			ext = "wav"
		}
		return req.Audio, "utterance." + ext
	}
	return audio.WrapPCMAsWAV(req.Audio, pcmRate(req), pcmChannels(req)), "utterance.wav"
}

func pcmRate(req stt.Request) int {
	if req.SampleRate > 0 {
		return req.SampleRate
	}
	return defaultSampleRate
}

func pcmChannels(req stt.Request) int {
	if req.Channels > 0 {
		return req.Channels
	}
	return 1
}
