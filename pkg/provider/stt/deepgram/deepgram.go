// Package deepgram provides an STT provider backed by the Deepgram
// pre-recorded transcription API (POST /v1/listen). It implements the
// stt.Provider interface.
package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/intervox-ai/intervox/pkg/provider/stt"
)

const (
	defaultBaseURL    = "https://api.deepgram.com"
	listenPath        = "/v1/listen"
	defaultModel      = "nova-2"
	defaultTimeout    = 60 * time.Second
	defaultSampleRate = 16000
)

// Compile-time interface assertion.
var _ stt.Provider = (*Provider)(nil)

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithBaseURL overrides the API base URL. Useful for tests.
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = url }
}

// WithModel sets the Deepgram model (default "nova-2").
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithHTTPClient replaces the HTTP client, including its timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// Provider implements stt.Provider against the Deepgram pre-recorded API.
type Provider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// New creates a Provider. An empty apiKey yields Configured() == false.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Name implements stt.Provider.
func (p *Provider) Name() string { return "deepgram" }

// Configured implements stt.Provider.
func (p *Provider) Configured() bool { return p.apiKey != "" }

// listenResponse mirrors the subset of Deepgram's response the provider uses.
type listenResponse struct {
	Metadata struct {
		Duration float64 `json:"duration"`
	} `json:"metadata"`
	Results struct {
		Channels []struct {
			DetectedLanguage string `json:"detected_language"`
			Alternatives     []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe implements stt.Provider. The audio body is posted as-is; raw
// PCM is declared via encoding/sample_rate/channels query parameters, which
// spares a container round-trip that Whisper-style endpoints require.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (*stt.Result, error) {
	if !p.Configured() {
		return nil, errors.New("deepgram: API key not configured")
	}
	if len(req.Audio) == 0 {
		return nil, errors.New("deepgram: empty audio")
	}

	endpoint, err := p.buildURL(req)
	if err != nil {
		return nil, fmt.Errorf("deepgram: build URL: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(req.Audio))
	if err != nil {
		return nil, fmt.Errorf("deepgram: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Token "+p.apiKey)
	httpReq.Header.Set("Content-Type", contentType(req.Format))

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("deepgram: listen request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("deepgram: listen returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var lr listenResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return nil, fmt.Errorf("deepgram: decode response: %w", err)
	}
	if len(lr.Results.Channels) == 0 || len(lr.Results.Channels[0].Alternatives) == 0 {
		return nil, errors.New("deepgram: response contains no alternatives")
	}

	ch := lr.Results.Channels[0]
	alt := ch.Alternatives[0]
	return &stt.Result{
		Transcript: alt.Transcript,
		Confidence: alt.Confidence,
		Language:   ch.DetectedLanguage,
		Duration:   time.Duration(lr.Metadata.Duration * float64(time.Second)),
		Provider:   p.Name(),
	}, nil
}

// buildURL assembles the listen endpoint with model, language, and raw-PCM
// parameters.
func (p *Provider) buildURL(req stt.Request) (string, error) {
	u, err := url.Parse(p.baseURL + listenPath)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("model", p.model)
	q.Set("punctuate", "true")
	q.Set("smart_format", "true")
	if req.Language != "" {
		q.Set("language", req.Language)
	} else {
		q.Set("detect_language", "true")
	}
	if req.Format == "pcm" {
		rate := req.SampleRate
		if rate == 0 {
			rate = defaultSampleRate
		}
		channels := req.Channels
		if channels == 0 {
			channels = 1
		}
		q.Set("encoding", "linear16")
		q.Set("sample_rate", strconv.Itoa(rate))
		q.Set("channels", strconv.Itoa(channels))
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

// contentType maps a Request format tag to the upload MIME type.
func contentType(format string) string {
	switch format {
	case "wav":
		return "audio/wav"
	case "mp3":
		return "audio/mpeg"
	case "ogg":
		return "audio/ogg"
	case "webm":
		return "audio/webm"
	default:
		return "application/octet-stream"
	}
}
