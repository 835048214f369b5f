package record

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/intervox-ai/intervox/pkg/audio"
)

// markerDetector declares speech when the window's first sample is nonzero,
// so tests can script VAD decisions through the frame payload.
type markerDetector struct{}

func (markerDetector) IsSpeech(window []int16, sampleRate int) bool {
	return len(window) > 0 && window[0] != 0
}

// frameAt builds a 100ms mono frame at 16kHz. Speech frames carry a nonzero
// marker sample recognized by markerDetector.
func frameAt(ts time.Duration, speech bool) audio.Frame {
	samples := make([]int16, 1600)
	if speech {
		for i := range samples {
			samples[i] = 1000
		}
	}
	return audio.Frame{
		Data:       audio.Int16ToBytes(samples),
		SampleRate: 16000,
		Channels:   1,
		Timestamp:  ts,
	}
}

// frames builds n consecutive 100ms frames starting at start.
func frames(start time.Duration, n int, speech bool) []audio.Frame {
	out := make([]audio.Frame, n)
	for i := range out {
		out[i] = frameAt(start+time.Duration(i)*100*time.Millisecond, speech)
	}
	return out
}

// sliceSource replays a fixed frame sequence then reports io.EOF.
type sliceSource struct {
	mu     sync.Mutex
	frames []audio.Frame
	pos    int
	closed int
}

func (s *sliceSource) Read(ctx context.Context) (audio.Frame, error) {
	if err := ctx.Err(); err != nil {
		return audio.Frame{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= len(s.frames) {
		return audio.Frame{}, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

func (s *sliceSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

// collector records delivered utterances.
type collector struct {
	mu  sync.Mutex
	got []Utterance
}

func (c *collector) sink(ctx context.Context, u Utterance) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, u)
}

func (c *collector) utterances() []Utterance {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Utterance, len(c.got))
	copy(out, c.got)
	return out
}

func TestSilenceNeverRecords(t *testing.T) {
	// One second of all-zero audio: VAD stays negative for every window,
	// so the controller never leaves Listening and the sink is never called.
	src := &sliceSource{frames: frames(0, 10, false)}
	var col collector
	c, err := New(Config{}, markerDetector{}, col.sink)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := c.Run(context.Background(), src); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := col.utterances(); len(got) != 0 {
		t.Fatalf("sink received %d utterances for pure silence", len(got))
	}
	delivered, dropped := c.Stats()
	if delivered != 0 || dropped != 0 {
		t.Fatalf("stats = %d delivered, %d dropped", delivered, dropped)
	}
	if c.State() != StateIdle {
		t.Fatalf("state after Run = %v, want idle", c.State())
	}
	if src.closed != 1 {
		t.Fatalf("source closed %d times, want 1", src.closed)
	}
}

func TestSpeechThenSilenceFinalizes(t *testing.T) {
	// 1s of speech followed by enough silence to trip the 2s timeout.
	var fs []audio.Frame
	fs = append(fs, frames(0, 10, true)...)
	fs = append(fs, frames(time.Second, 25, false)...)
	src := &sliceSource{frames: fs}

	var col collector
	c, err := New(Config{}, markerDetector{}, col.sink)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Run(context.Background(), src); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := col.utterances()
	if len(got) != 1 {
		t.Fatalf("got %d utterances, want 1", len(got))
	}
	u := got[0]
	if u.Start != 0 {
		t.Errorf("Start = %v, want 0", u.Start)
	}
	// 1s speech + 2s of buffered trailing silence.
	if u.Duration != 3*time.Second {
		t.Errorf("Duration = %v, want 3s", u.Duration)
	}
	if u.SampleRate != 16000 || u.Channels != 1 {
		t.Errorf("format = %dHz/%dch", u.SampleRate, u.Channels)
	}
	if wantBytes := 30 * 3200; len(u.PCM) != wantBytes {
		t.Errorf("PCM = %d bytes, want %d", len(u.PCM), wantBytes)
	}
}

func TestSilenceResetBySpeech(t *testing.T) {
	// Silence shorter than the timeout between two speech bursts must not
	// split the utterance.
	var fs []audio.Frame
	fs = append(fs, frames(0, 5, true)...)
	fs = append(fs, frames(500*time.Millisecond, 10, false)...) // 1s gap < 2s
	fs = append(fs, frames(1500*time.Millisecond, 5, true)...)
	fs = append(fs, frames(2*time.Second, 25, false)...)
	src := &sliceSource{frames: fs}

	var col collector
	c, err := New(Config{}, markerDetector{}, col.sink)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Run(context.Background(), src); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := col.utterances()
	if len(got) != 1 {
		t.Fatalf("got %d utterances, want 1", len(got))
	}
}

func TestMaxRecordingTimeForcesFinalize(t *testing.T) {
	// Continuous speech never trips the silence timer; the cap has to.
	src := &sliceSource{frames: frames(0, 12, true)}
	var col collector
	c, err := New(Config{MaxRecordingTime: 500 * time.Millisecond}, markerDetector{}, col.sink)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Run(context.Background(), src); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := col.utterances()
	if len(got) != 2 {
		t.Fatalf("got %d utterances, want 2 capped segments", len(got))
	}
	if got[0].Duration != 500*time.Millisecond {
		t.Errorf("first segment duration = %v, want 500ms", got[0].Duration)
	}
	if got[1].Start != 500*time.Millisecond {
		t.Errorf("second segment start = %v, want 500ms", got[1].Start)
	}
}

func TestSubMinimumCaptureDropped(t *testing.T) {
	// 100ms of speech and then the stream ends; shorter than MinUtterance,
	// so the sink must not see it.
	src := &sliceSource{frames: frames(0, 1, true)}
	var col collector
	c, err := New(Config{MinUtterance: 300 * time.Millisecond}, markerDetector{}, col.sink)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Run(context.Background(), src); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := col.utterances(); len(got) != 0 {
		t.Fatalf("sink received %d sub-minimum utterances", len(got))
	}
	delivered, dropped := c.Stats()
	if delivered != 0 || dropped != 1 {
		t.Fatalf("stats = %d delivered, %d dropped; want 0/1", delivered, dropped)
	}
}

func TestEOFFinalizesInProgressCapture(t *testing.T) {
	src := &sliceSource{frames: frames(0, 5, true)} // 500ms speech, then EOF
	var col collector
	c, err := New(Config{}, markerDetector{}, col.sink)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Run(context.Background(), src); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := col.utterances()
	if len(got) != 1 {
		t.Fatalf("got %d utterances, want 1", len(got))
	}
	if got[0].Duration != 500*time.Millisecond {
		t.Errorf("Duration = %v, want 500ms", got[0].Duration)
	}
}

func TestCancellationDropsPartialCapture(t *testing.T) {
	src := audio.NewChanSource(4)
	for _, f := range frames(0, 3, true) {
		src.Push(f)
	}

	var col collector
	c, err := New(Config{}, markerDetector{}, col.sink)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, src) }()

	// Let the controller drain the pushed frames, then cancel mid-recording.
	deadline := time.After(2 * time.Second)
	for c.State() != StateRecording {
		select {
		case <-deadline:
			t.Fatal("controller never reached recording state")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	if err := <-done; err != context.Canceled {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}
	if got := col.utterances(); len(got) != 0 {
		t.Fatalf("sink received %d utterances after cancellation", len(got))
	}
	if c.State() != StateIdle {
		t.Fatalf("state after cancel = %v, want idle", c.State())
	}
}

// windowSpy records every VAD window so tests can inspect what the
// controller hands the detector.
type windowSpy struct {
	mu      sync.Mutex
	windows [][]int16
}

func (s *windowSpy) IsSpeech(window []int16, sampleRate int) bool {
	s.mu.Lock()
	s.windows = append(s.windows, append([]int16(nil), window...))
	s.mu.Unlock()
	return len(window) > 0 && window[0] != 0
}

func TestStereoFramesDownmixedForVAD(t *testing.T) {
	// Interleaved stereo with distinct channel values: the detector must
	// see the mono average, at half the interleaved sample count.
	samples := make([]int16, 3200) // 100ms stereo at 16kHz
	for i := 0; i < len(samples); i += 2 {
		samples[i] = 600    // left
		samples[i+1] = 1000 // right
	}
	f := audio.Frame{
		Data:       audio.Int16ToBytes(samples),
		SampleRate: 16000,
		Channels:   2,
		Timestamp:  0,
	}
	src := &sliceSource{frames: []audio.Frame{f}}

	spy := &windowSpy{}
	var col collector
	c, err := New(Config{MinUtterance: time.Millisecond}, spy, col.sink)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Run(context.Background(), src); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(spy.windows) != 1 {
		t.Fatalf("detector saw %d windows, want 1", len(spy.windows))
	}
	win := spy.windows[0]
	if len(win) != 1600 {
		t.Fatalf("window has %d samples, want 1600 mono samples", len(win))
	}
	for i, s := range win {
		if s != 800 {
			t.Fatalf("sample %d = %d, want 800 (average of 600 and 1000)", i, s)
		}
	}
	if got := col.utterances(); len(got) != 1 {
		t.Fatalf("got %d utterances, want 1", len(got))
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{
		StateIdle:       "idle",
		StateListening:  "listening",
		StateRecording:  "recording",
		StateFinalizing: "finalizing",
	} {
		if s.String() != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), s.String(), want)
		}
	}
}
