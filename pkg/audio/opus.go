package audio

import (
	"fmt"

	"layeh.com/gopus"
)

// OpusDecoder wraps a gopus decoder for a single capture stream. Browser
// capture clients send 20 ms Opus packets; each stream needs its own decoder
// so codec state carries correctly across consecutive packets.
//
// Not safe for concurrent use; create one per stream.
type OpusDecoder struct {
	dec        *gopus.Decoder
	sampleRate int
	channels   int
	frameSize  int
}

// NewOpusDecoder creates an Opus decoder for the given sample rate and
// channel count. frameSizeMs is the packet duration the sender uses
// (typically 20 ms).
func NewOpusDecoder(sampleRate, channels, frameSizeMs int) (*OpusDecoder, error) {
	dec, err := gopus.NewDecoder(sampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("audio: create opus decoder: %w", err)
	}
	return &OpusDecoder{
		dec:        dec,
		sampleRate: sampleRate,
		channels:   channels,
		frameSize:  sampleRate * frameSizeMs / 1000,
	}, nil
}

// Decode decodes one Opus packet into little-endian int16 PCM bytes.
func (d *OpusDecoder) Decode(packet []byte) ([]byte, error) {
	pcm, err := d.dec.Decode(packet, d.frameSize, false)
	if err != nil {
		return nil, fmt.Errorf("audio: opus decode: %w", err)
	}
	return Int16ToBytes(pcm), nil
}
