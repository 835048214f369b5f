// Package audio provides the PCM frame types and codec helpers shared by the
// capture, detection, and provider layers.
//
// Frames are the atomic unit of audio transport: the capture channel delivers
// them, the VAD classifies them, and the recording controller concatenates
// them into utterances that are handed to the STT stage. All PCM data is
// 16-bit signed little-endian.
package audio

import (
	"context"
	"time"
)

// Frame represents a single window of captured audio.
type Frame struct {
	// Data is raw little-endian int16 PCM.
	Data []byte

	// SampleRate in Hz (e.g., 16000 for STT input, 48000 for Opus capture).
	SampleRate int

	// Channels: 1 for mono, 2 for interleaved stereo.
	Channels int

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration
}

// Duration returns the play time of the frame's PCM data.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return 0
	}
	samples := len(f.Data) / 2 / f.Channels
	return time.Duration(samples) * time.Second / time.Duration(f.SampleRate)
}

// Source is the capture channel boundary. It supplies timestamped PCM windows
// on demand and releases the underlying device or connection on Close.
//
// Read blocks until a frame is available, the stream ends (io.EOF), or ctx is
// cancelled. Implementations must guarantee that Close releases the capture
// resource on every path, including mid-Read cancellation.
type Source interface {
	Read(ctx context.Context) (Frame, error)
	Close() error
}
