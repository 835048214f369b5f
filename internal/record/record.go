// Package record implements the recording controller: a state machine that
// watches an audio source through voice activity detection and carves the
// stream into discrete utterances.
//
// The machine moves Idle -> Listening -> Recording -> Finalizing and back to
// Listening while the source stays open. Silence and maximum-duration
// deadlines are computed from the source's own frame timestamps, so a
// replayed stream finalizes at exactly the same points as a live one.
//
// The audio source is exclusively owned by one controller and is closed on
// every exit path, including cancellation and source errors.
package record

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/intervox-ai/intervox/pkg/audio"
)

// State names a controller phase.
type State int

const (
	StateIdle State = iota
	StateListening
	StateRecording
	StateFinalizing
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateRecording:
		return "recording"
	case StateFinalizing:
		return "finalizing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Utterance is one finalized stretch of speech handed to the sink.
type Utterance struct {
	// PCM holds 16-bit little-endian samples for the whole utterance.
	PCM []byte

	SampleRate int
	Channels   int

	// Start is the source timestamp of the first buffered frame.
	Start time.Duration

	// Duration covers first buffered frame through last, inclusive.
	Duration time.Duration
}

// Sink receives finalized utterances. A slow sink stalls the read loop, so
// sinks that do network work should hand off to their own goroutine.
type Sink func(ctx context.Context, u Utterance)

// Detector is the voice activity decision the controller polls per window.
type Detector interface {
	IsSpeech(window []int16, sampleRate int) bool
}

// Config carries the controller's timing knobs. Zero fields take defaults.
type Config struct {
	// SilenceTimeout ends a recording after this much continuous
	// VAD-negative audio. Default 2s.
	SilenceTimeout time.Duration

	// MaxRecordingTime force-finalizes a recording regardless of VAD.
	// Default 30s.
	MaxRecordingTime time.Duration

	// MinUtterance drops finalized captures shorter than this as
	// "no speech"; they never reach the sink. Default 300ms.
	MinUtterance time.Duration
}

func (c *Config) applyDefaults() {
	if c.SilenceTimeout == 0 {
		c.SilenceTimeout = 2 * time.Second
	}
	if c.MaxRecordingTime == 0 {
		c.MaxRecordingTime = 30 * time.Second
	}
	if c.MinUtterance == 0 {
		c.MinUtterance = 300 * time.Millisecond
	}
}

// Controller drives one audio source. Run may be called once; State and
// Stats are safe to read concurrently while Run is active.
type Controller struct {
	cfg  Config
	det  Detector
	sink Sink
	log  *slog.Logger

	mu         sync.Mutex
	state      State
	utterances int
	dropped    int
}

// Option customizes a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// New builds a Controller over the given detector and sink.
func New(cfg Config, det Detector, sink Sink, opts ...Option) (*Controller, error) {
	if det == nil {
		return nil, errors.New("record: nil detector")
	}
	if sink == nil {
		return nil, errors.New("record: nil sink")
	}
	cfg.applyDefaults()
	c := &Controller{
		cfg:   cfg,
		det:   det,
		sink:  sink,
		log:   slog.Default(),
		state: StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// State returns the current phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stats reports how many utterances were delivered and how many captures
// were dropped as below the minimum duration.
func (c *Controller) Stats() (delivered, dropped int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.utterances, c.dropped
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// capture accumulates one in-progress recording.
type capture struct {
	pcm        []byte
	sampleRate int
	channels   int
	start      time.Duration
	end        time.Duration
	lastSpeech time.Duration
}

// Run consumes src until it is exhausted or ctx is cancelled. The source is
// closed before Run returns on every path. A capture in progress when ctx
// is cancelled is discarded without reaching the sink; a capture in
// progress when the source reports io.EOF is finalized normally.
func (c *Controller) Run(ctx context.Context, src audio.Source) error {
	defer src.Close()
	defer c.setState(StateIdle)

	c.setState(StateListening)
	var rec *capture

	for {
		frame, err := src.Read(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				if rec != nil {
					c.finalize(ctx, rec)
				}
				return nil
			}
			if ctx.Err() != nil {
				// Cancelled mid-stream: drop any partial capture.
				return ctx.Err()
			}
			return fmt.Errorf("record: read source: %w", err)
		}

		pcm := frame.Data
		if frame.Channels == 2 {
			pcm = audio.StereoToMono(pcm)
		}
		samples := audio.BytesToInt16(pcm)
		speech := c.det.IsSpeech(samples, frame.SampleRate)
		frameEnd := frame.Timestamp + frame.Duration()

		if rec == nil {
			if !speech {
				continue
			}
			c.setState(StateRecording)
			rec = &capture{
				sampleRate: frame.SampleRate,
				channels:   frame.Channels,
				start:      frame.Timestamp,
			}
			c.log.Debug("speech detected, recording", "start", frame.Timestamp)
		}

		rec.pcm = append(rec.pcm, frame.Data...)
		rec.end = frameEnd
		if speech {
			rec.lastSpeech = frameEnd
		}

		switch {
		case rec.end-rec.start >= c.cfg.MaxRecordingTime:
			c.finalize(ctx, rec)
			rec = nil
		case !speech && rec.end-rec.lastSpeech >= c.cfg.SilenceTimeout:
			c.finalize(ctx, rec)
			rec = nil
		}
	}
}

// finalize hands a completed capture to the sink, unless it is too short to
// be worth a transcription call, then returns the controller to Listening.
func (c *Controller) finalize(ctx context.Context, rec *capture) {
	c.setState(StateFinalizing)
	defer c.setState(StateListening)

	dur := rec.end - rec.start
	if dur < c.cfg.MinUtterance || len(rec.pcm) == 0 {
		c.mu.Lock()
		c.dropped++
		c.mu.Unlock()
		c.log.Debug("capture below minimum, dropped", "duration", dur)
		return
	}

	c.mu.Lock()
	c.utterances++
	c.mu.Unlock()
	c.log.Info("utterance finalized", "start", rec.start, "duration", dur)

	c.sink(ctx, Utterance{
		PCM:        rec.pcm,
		SampleRate: rec.sampleRate,
		Channels:   rec.channels,
		Start:      rec.start,
		Duration:   dur,
	})
}
