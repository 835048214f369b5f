// Package vad implements energy-based voice activity detection.
//
// The detector classifies short PCM windows (typically ~100 ms) as speech or
// silence using two heuristics: root-mean-square energy and zero-crossing
// rate. Speech is declared only when the window is loud enough AND its
// zero-crossing rate falls inside a configured band — a low rate indicates
// hum or DC offset, a very high rate indicates broadband noise rather than
// voiced speech.
//
// Detection is a pure function of the window: the detector keeps no state and
// is safe for concurrent use at high call frequency. Thresholds are
// configuration rather than constants because microphone gain and ambient
// noise vary per deployment.
package vad

import "math"

// Defaults chosen for 16-bit PCM normalised to [-1, 1]. Energy below
// DefaultEnergyThreshold is quiet-room level on a typical headset mic.
const (
	DefaultEnergyThreshold = 0.0075
	DefaultZCRMin          = 0.01
	DefaultZCRMax          = 0.5
)

// Config holds the detection thresholds for a Detector. The zero value is
// not usable; construct with New to pick up defaults.
type Config struct {
	// EnergyThreshold is the minimum RMS energy (normalised amplitude,
	// 0.0–1.0) for a window to count as speech.
	EnergyThreshold float64

	// ZCRMin and ZCRMax bound the acceptable zero-crossing rate, expressed
	// as the fraction of adjacent sample pairs whose signs differ.
	ZCRMin float64
	ZCRMax float64
}

// Detector classifies PCM windows as speech or silence. It is stateless and
// safe for concurrent use.
type Detector struct {
	cfg Config
}

// New creates a Detector. Zero-valued config fields are replaced with the
// package defaults so callers can override selectively.
func New(cfg Config) *Detector {
	if cfg.EnergyThreshold == 0 {
		cfg.EnergyThreshold = DefaultEnergyThreshold
	}
	if cfg.ZCRMin == 0 {
		cfg.ZCRMin = DefaultZCRMin
	}
	if cfg.ZCRMax == 0 {
		cfg.ZCRMax = DefaultZCRMax
	}
	return &Detector{cfg: cfg}
}

// IsSpeech reports whether the window contains speech. The window is raw
// int16 PCM at the given sample rate; sampleRate is accepted for parity with
// the capture path but the decision depends only on the samples themselves.
// Empty windows are silence.
func (d *Detector) IsSpeech(window []int16, _ int) bool {
	if len(window) == 0 {
		return false
	}
	if RMS(window) < d.cfg.EnergyThreshold {
		return false
	}
	zcr := ZeroCrossingRate(window)
	return zcr >= d.cfg.ZCRMin && zcr <= d.cfg.ZCRMax
}

// RMS returns the root-mean-square energy of the window, normalised to
// [0, 1] against full-scale 16-bit amplitude.
func RMS(window []int16) float64 {
	if len(window) == 0 {
		return 0
	}
	var sum float64
	for _, s := range window {
		v := float64(s) / math.MaxInt16
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(window)))
}

// ZeroCrossingRate returns the fraction of adjacent sample pairs whose signs
// differ. Exact zeros are treated as positive so silence does not register as
// crossings.
func ZeroCrossingRate(window []int16) float64 {
	if len(window) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(window); i++ {
		if (window[i] >= 0) != (window[i-1] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(window)-1)
}
