// Package stt defines the Provider interface for Speech-to-Text backends and
// the failover Manager that selects among them.
//
// An STT provider wraps a batch transcription service (e.g., the OpenAI
// Whisper endpoint or Deepgram's pre-recorded API) and exposes a uniform
// request/response interface: one utterance in, one transcript out. Providers
// are independently rate-limited; the Manager pairs each provider with a
// sliding-window limiter and fails over in priority order.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"
	"time"
)

// Request carries one utterance to be transcribed.
type Request struct {
	// Audio is the encoded utterance. For FormatPCM it is raw little-endian
	// int16 samples and SampleRate/Channels must be set so the provider can
	// wrap it in a container the backend accepts.
	Audio []byte

	// Format is the container tag: "wav", "pcm", "webm", "ogg", "mp3".
	Format string

	// SampleRate and Channels describe raw PCM input. Ignored for
	// self-describing containers.
	SampleRate int
	Channels   int

	// Language is a BCP-47 recognition hint (e.g., "en", "de-DE"). Empty
	// lets the backend auto-detect where supported.
	Language string
}

// Result is a successful transcription.
type Result struct {
	// Transcript is the recognised text. Providers return it verbatim;
	// callers decide how to treat whitespace-only output.
	Transcript string

	// Confidence is the backend's overall confidence in [0, 1]. Zero when
	// the backend does not report one.
	Confidence float64

	// Language is the detected or confirmed language tag, when reported.
	Language string

	// Duration is the audio length as measured by the backend, when reported.
	Duration time.Duration

	// Provider names the backend that produced this result.
	Provider string
}

// Provider is the abstraction over any STT backend.
//
// Transcribe performs exactly one dispatch against the backend; it must not
// retry internally. Transcribing the same audio twice must yield the same
// transcript for a deterministic backend and must not mutate any shared
// state. Any transport failure or non-2xx response is returned as an error.
type Provider interface {
	// Transcribe sends one utterance and returns the transcript.
	Transcribe(ctx context.Context, req Request) (*Result, error)

	// Name returns the provider's stable identifier (e.g., "openai",
	// "deepgram"). Used in results, status reports, and failover logs.
	Name() string

	// Configured reports whether the provider has the credentials and
	// endpoint it needs. An unconfigured provider is skipped by the Manager
	// rather than attempted.
	Configured() bool
}
