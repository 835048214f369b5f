package vad

import (
	"math"
	"testing"
)

// sine generates amplitude-scaled sine PCM at freq Hz, sampled at rate Hz.
func sine(freq float64, rate, n int, amplitude float64) []int16 {
	out := make([]int16, n)
	for i := range out {
		v := amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
		out[i] = int16(v * math.MaxInt16)
	}
	return out
}

func TestIsSpeech_SilenceAllZero(t *testing.T) {
	d := New(Config{})
	window := make([]int16, 16000) // 1 s of digital silence at 16 kHz

	// Every 100 ms sub-window must classify as silence.
	for off := 0; off+1600 <= len(window); off += 1600 {
		if d.IsSpeech(window[off:off+1600], 16000) {
			t.Fatalf("window at %d classified as speech", off)
		}
	}
}

func TestIsSpeech_VoicedTone(t *testing.T) {
	d := New(Config{})
	// 200 Hz tone at 30% amplitude: loud, ZCR ≈ 2*200/16000 = 0.025.
	window := sine(200, 16000, 1600, 0.3)
	if !d.IsSpeech(window, 16000) {
		t.Fatal("voiced tone classified as silence")
	}
}

func TestIsSpeech_QuietToneBelowEnergyThreshold(t *testing.T) {
	d := New(Config{EnergyThreshold: 0.05})
	window := sine(200, 16000, 1600, 0.01)
	if d.IsSpeech(window, 16000) {
		t.Fatal("quiet tone classified as speech")
	}
}

func TestIsSpeech_HighZCRNoiseRejected(t *testing.T) {
	d := New(Config{ZCRMax: 0.5})
	// Alternating full-scale samples: ZCR = 1.0, loud. Broadband noise.
	window := make([]int16, 1600)
	for i := range window {
		if i%2 == 0 {
			window[i] = 20000
		} else {
			window[i] = -20000
		}
	}
	if d.IsSpeech(window, 16000) {
		t.Fatal("alternating noise classified as speech")
	}
}

func TestIsSpeech_LowZCRHumRejected(t *testing.T) {
	d := New(Config{ZCRMin: 0.01})
	// Constant positive offset: loud but zero crossings.
	window := make([]int16, 1600)
	for i := range window {
		window[i] = 15000
	}
	if d.IsSpeech(window, 16000) {
		t.Fatal("DC hum classified as speech")
	}
}

func TestIsSpeech_EmptyWindow(t *testing.T) {
	d := New(Config{})
	if d.IsSpeech(nil, 16000) {
		t.Fatal("empty window classified as speech")
	}
}

func TestRMS(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Fatalf("RMS(nil) = %v, want 0", got)
	}
	// Full-scale square wave has RMS ≈ 1.
	window := []int16{math.MaxInt16, -math.MaxInt16, math.MaxInt16, -math.MaxInt16}
	if got := RMS(window); math.Abs(got-1.0) > 1e-3 {
		t.Fatalf("RMS(full-scale square) = %v, want ~1.0", got)
	}
}

func TestZeroCrossingRate(t *testing.T) {
	tests := []struct {
		name   string
		window []int16
		want   float64
	}{
		{"constant", []int16{5, 5, 5, 5, 5}, 0},
		{"alternating", []int16{1, -1, 1, -1}, 1},
		{"single crossing", []int16{1, 1, -1, -1, -1}, 0.25},
		{"too short", []int16{1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ZeroCrossingRate(tt.window); math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("ZeroCrossingRate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	d := New(Config{})
	if d.cfg.EnergyThreshold != DefaultEnergyThreshold {
		t.Fatalf("EnergyThreshold = %v, want default %v", d.cfg.EnergyThreshold, DefaultEnergyThreshold)
	}
	if d.cfg.ZCRMin != DefaultZCRMin || d.cfg.ZCRMax != DefaultZCRMax {
		t.Fatalf("ZCR band = [%v, %v], want defaults", d.cfg.ZCRMin, d.cfg.ZCRMax)
	}
}
