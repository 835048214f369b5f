// Package pipeline implements the voice pipeline coordinator: one utterance
// in, transcript, interviewer response, and synthesized speech out.
//
// A run is strictly sequential. Each stage feeds the next, fails the run
// with its own stage tag, and short-circuits everything downstream. What an
// earlier stage already produced is always preserved in the result: an LLM
// failure still surfaces the transcript, a TTS failure still surfaces
// transcript and response text. Stage timeouts are applied per call through
// the context; a timed-out stage fails exactly like a remote error.
//
// Coordinators hold no per-run state. Concurrent runs share only the STT
// providers' rate limiter windows.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/intervox-ai/intervox/internal/interview"
	"github.com/intervox-ai/intervox/internal/observe"
	"github.com/intervox-ai/intervox/internal/transcript"
	"github.com/intervox-ai/intervox/pkg/provider/stt"
	"github.com/intervox-ai/intervox/pkg/provider/tts"
)

// Stage names one pipeline phase for failure attribution.
type Stage string

const (
	StageSTT Stage = "stt"
	StageLLM Stage = "llm"
	StageTTS Stage = "tts"
)

// ErrEmptyTranscript marks audio that transcribed to nothing after
// trimming. It is an STT-stage failure so no LLM call is spent on silence.
var ErrEmptyTranscript = errors.New("pipeline: empty transcript")

// Request carries one utterance through a full pipeline run.
type Request struct {
	// Audio is the utterance payload in the container named by Format.
	Audio  []byte
	Format string

	// SampleRate and Channels describe raw PCM audio; ignored for
	// self-describing containers.
	SampleRate int
	Channels   int

	// Language is an optional hint forwarded to STT.
	Language string

	// History is the caller-owned conversation context. Read only.
	History []interview.Message

	// Interview is the optional question-tracking configuration.
	Interview *interview.Config

	// TTSProvider optionally names the synthesis backend; empty uses the
	// registry default.
	TTSProvider string

	// Voice and AudioFormat are forwarded to TTS.
	Voice       string
	AudioFormat string
}

// Result is the outcome of a run. On failure, FailedStage tags the stage
// and every field an earlier stage completed is still populated.
type Result struct {
	Success     bool
	FailedStage Stage
	Err         error

	Transcript   string
	Corrections  []transcript.Correction
	STTProvider  string
	Response     string
	NextQuestion string
	IsComplete   bool
	Audio        []byte
	AudioFormat  string
	TTSProvider  string
}

// Timeouts bounds each stage's remote call. Zero fields take defaults.
type Timeouts struct {
	STT time.Duration
	LLM time.Duration
	TTS time.Duration
}

func (t *Timeouts) applyDefaults() {
	if t.STT == 0 {
		t.STT = 30 * time.Second
	}
	if t.LLM == 0 {
		t.LLM = 60 * time.Second
	}
	if t.TTS == 0 {
		t.TTS = 60 * time.Second
	}
}

// Coordinator wires the three stages together. Safe for concurrent use.
type Coordinator struct {
	stt       *stt.Manager
	responder *interview.Responder
	tts       *tts.Registry
	corrector *transcript.Corrector
	timeouts  Timeouts
	metrics   *observe.Metrics
	log       *slog.Logger
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithCorrector enables the transcript correction hook between STT and LLM.
// Correction is best-effort and cannot fail a run.
func WithCorrector(c *transcript.Corrector) Option {
	return func(co *Coordinator) { co.corrector = c }
}

// WithTimeouts overrides the per-stage deadlines.
func WithTimeouts(t Timeouts) Option {
	return func(co *Coordinator) { co.timeouts = t }
}

// WithMetrics sets the metrics instance. Defaults to observe.DefaultMetrics.
func WithMetrics(m *observe.Metrics) Option {
	return func(co *Coordinator) { co.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(co *Coordinator) { co.log = l }
}

// New builds a Coordinator over the given stage components.
func New(sttManager *stt.Manager, responder *interview.Responder, ttsRegistry *tts.Registry, opts ...Option) (*Coordinator, error) {
	if sttManager == nil {
		return nil, errors.New("pipeline: nil stt manager")
	}
	if responder == nil {
		return nil, errors.New("pipeline: nil responder")
	}
	if ttsRegistry == nil {
		return nil, errors.New("pipeline: nil tts registry")
	}
	c := &Coordinator{
		stt:       sttManager,
		responder: responder,
		tts:       ttsRegistry,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.timeouts.applyDefaults()
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	return c, nil
}

// Run executes STT, LLM, and TTS in order for one utterance. It never
// returns an error; failures are carried in the Result so partial progress
// survives alongside the failure tag.
func (c *Coordinator) Run(ctx context.Context, req Request) *Result {
	start := time.Now()
	res := &Result{}

	// ── STT ──
	sttRes, err := c.Transcribe(ctx, req)
	if err != nil {
		return c.fail(ctx, res, StageSTT, err, start)
	}
	res.Transcript = strings.TrimSpace(sttRes.Transcript)
	res.STTProvider = sttRes.Provider
	if res.Transcript == "" {
		return c.fail(ctx, res, StageSTT, ErrEmptyTranscript, start)
	}

	if c.corrector != nil {
		corrected := c.corrector.Correct(ctx, res.Transcript, sttRes.Confidence)
		res.Transcript = corrected.Corrected
		res.Corrections = corrected.Corrections
	}

	// ── LLM ──
	turn, err := c.Respond(ctx, res.Transcript, req.History, req.Interview)
	if err != nil {
		return c.fail(ctx, res, StageLLM, err, start)
	}
	res.Response = turn.Response
	res.NextQuestion = turn.NextQuestion
	res.IsComplete = turn.IsComplete

	// ── TTS ──
	speech, err := c.Synthesize(ctx, req.TTSProvider, tts.Request{
		Text:   turn.Response,
		Voice:  req.Voice,
		Format: req.AudioFormat,
	})
	if err != nil {
		return c.fail(ctx, res, StageTTS, err, start)
	}
	res.Audio = speech.Audio
	res.AudioFormat = speech.Format
	res.TTSProvider = speech.Provider

	res.Success = true
	c.metrics.PipelineDuration.Record(ctx, time.Since(start).Seconds())
	c.metrics.RecordPipelineRun(ctx, "ok", "none")
	c.log.Info("pipeline run completed",
		"stt_provider", res.STTProvider,
		"tts_provider", res.TTSProvider,
		"transcript_len", len(res.Transcript),
		"duration", time.Since(start))
	return res
}

// Transcribe runs the STT stage alone under its timeout. Used by Run and by
// the diagnostic transcription endpoint.
func (c *Coordinator) Transcribe(ctx context.Context, req Request) (*stt.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.STT)
	defer cancel()

	start := time.Now()
	res, err := c.stt.Transcribe(ctx, stt.Request{
		Audio:      req.Audio,
		Format:     req.Format,
		SampleRate: req.SampleRate,
		Channels:   req.Channels,
		Language:   req.Language,
	})
	c.metrics.STTDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("pipeline: transcribe: %w", err)
	}
	c.metrics.RecordProviderRequest(ctx, res.Provider, "stt", "ok")
	return res, nil
}

// Respond runs the LLM stage alone under its timeout.
func (c *Coordinator) Respond(ctx context.Context, transcriptText string, history []interview.Message, cfg *interview.Config) (*interview.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.LLM)
	defer cancel()

	start := time.Now()
	turn, err := c.responder.Generate(ctx, transcriptText, history, cfg)
	c.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		c.metrics.RecordProviderError(ctx, c.responder.Provider(), "llm")
		return nil, err
	}
	c.metrics.RecordProviderRequest(ctx, turn.Provider, "llm", "ok")
	return turn, nil
}

// Synthesize runs the TTS stage alone under its timeout.
func (c *Coordinator) Synthesize(ctx context.Context, providerName string, req tts.Request) (*tts.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.TTS)
	defer cancel()

	start := time.Now()
	res, err := c.tts.Synthesize(ctx, providerName, req)
	c.metrics.TTSDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		c.metrics.RecordProviderError(ctx, c.ttsName(providerName), "tts")
		return nil, err
	}
	c.metrics.RecordProviderRequest(ctx, res.Provider, "tts", "ok")
	return res, nil
}

// ttsName resolves the synthesis provider name used for error attribution.
// An unknown name is reported as requested so operators see the bad input.
func (c *Coordinator) ttsName(requested string) string {
	if p, err := c.tts.Get(requested); err == nil {
		return p.Name()
	}
	return requested
}

func (c *Coordinator) fail(ctx context.Context, res *Result, stage Stage, err error, start time.Time) *Result {
	res.FailedStage = stage
	res.Err = err
	c.metrics.PipelineDuration.Record(ctx, time.Since(start).Seconds())
	c.metrics.RecordPipelineRun(ctx, "error", string(stage))
	c.log.Warn("pipeline run failed", "stage", stage, "error", err)
	return res
}
