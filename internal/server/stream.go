package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/intervox-ai/intervox/internal/interview"
	"github.com/intervox-ai/intervox/internal/pipeline"
	"github.com/intervox-ai/intervox/internal/record"
	"github.com/intervox-ai/intervox/pkg/audio"
)

// maxStreamMessageBytes caps a single WebSocket frame. Audio arrives in small
// capture windows, so anything near this size is a client bug.
const maxStreamMessageBytes = 1 << 20

// sourceBufferFrames is the ChanSource depth between the ingest loop and the
// recording controller. At 100 ms windows this buffers about 3 s of audio
// while an utterance is in the pipeline.
const sourceBufferFrames = 32

// controlMessage is a client → server text frame.
type controlMessage struct {
	// Type is "start", "stop", or "config".
	Type string `json:"type"`

	// Capture parameters, read on "start".
	SampleRate int    `json:"sample_rate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
	Codec      string `json:"codec,omitempty"` // "pcm" (default) or "opus"
	Language   string `json:"language,omitempty"`

	// Conversation parameters, read on "start" and "config".
	Interview   *interviewWire `json:"interview,omitempty"`
	TTSProvider string         `json:"tts_provider,omitempty"`
	Voice       string         `json:"voice,omitempty"`
	AudioFormat string         `json:"audio_format,omitempty"`
}

// streamEvent is a server → client text frame. Result fields are populated
// for "result" events; synthesized audio follows as a separate binary frame.
type streamEvent struct {
	Type  string `json:"type"` // "ready", "result", "stopped", "error"
	Error string `json:"error,omitempty"`

	// Utterances counts sink deliveries for the session, sent on "stopped".
	Utterances int `json:"utterances,omitempty"`

	Result *pipelineResultWire `json:"result,omitempty"`
}

// streamSession is one start..stop capture run over a WebSocket.
type streamSession struct {
	source     *audio.ChanSource
	controller *record.Controller
	opus       *audio.OpusDecoder

	sampleRate int
	channels   int
	elapsed    time.Duration

	done chan struct{}
}

// wsConn serializes writes; the sink goroutine and the read loop both send.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (w *wsConn) writeJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.Write(ctx, websocket.MessageText, data)
}

func (w *wsConn) writeBinary(ctx context.Context, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.Write(ctx, websocket.MessageBinary, data)
}

// handleStream upgrades to WebSocket and runs the live capture protocol:
// the client sends a "start" control frame, then binary audio frames; the
// recording controller segments them into utterances, each utterance runs
// through the pipeline, and every result is reported back as a "result"
// event plus a binary frame carrying the synthesized reply.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn("stream: websocket accept failed", "err", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "server shutting down")
	conn.SetReadLimit(maxStreamMessageBytes)

	ctx := r.Context()
	ws := &wsConn{conn: conn}

	s.metrics.ActiveStreams.Add(ctx, 1)
	defer s.metrics.ActiveStreams.Add(ctx, -1)

	st := &streamState{srv: s, ws: ws}
	defer st.stopSession(ctx)

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			// Client went away or the server is draining; either way the
			// in-progress capture is abandoned, matching a dropped call.
			s.log.Debug("stream: read ended", "err", err)
			return
		}

		switch typ {
		case websocket.MessageText:
			var msg controlMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				_ = ws.writeJSON(ctx, streamEvent{Type: "error", Error: fmt.Sprintf("bad control frame: %v", err)})
				continue
			}
			if err := st.handleControl(ctx, msg); err != nil {
				_ = ws.writeJSON(ctx, streamEvent{Type: "error", Error: err.Error()})
			}
		case websocket.MessageBinary:
			if err := st.handleAudio(data); err != nil {
				_ = ws.writeJSON(ctx, streamEvent{Type: "error", Error: err.Error()})
			}
		}
	}
}

// streamState is the per-connection protocol state. All methods run on the
// read loop goroutine; only the sink callback runs elsewhere.
type streamState struct {
	srv *Server
	ws  *wsConn

	session *streamSession

	// Conversation state carried across utterances.
	mu        sync.Mutex
	history   []interview.Message
	interview *interview.Config

	language    string
	ttsProvider string
	voice       string
	audioFormat string
}

func (st *streamState) handleControl(ctx context.Context, msg controlMessage) error {
	switch msg.Type {
	case "start":
		return st.startSession(ctx, msg)
	case "stop":
		st.stopSession(ctx)
		return nil
	case "config":
		st.applyConfig(msg)
		return nil
	default:
		return fmt.Errorf("unknown control type %q", msg.Type)
	}
}

func (st *streamState) applyConfig(msg controlMessage) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if msg.Interview != nil {
		st.interview = interviewFromWire(msg.Interview)
	}
	if msg.TTSProvider != "" {
		st.ttsProvider = msg.TTSProvider
	}
	if msg.Voice != "" {
		st.voice = msg.Voice
	}
	if msg.AudioFormat != "" {
		st.audioFormat = msg.AudioFormat
	}
}

func (st *streamState) startSession(ctx context.Context, msg controlMessage) error {
	if st.session != nil {
		return fmt.Errorf("session already running")
	}

	sampleRate := msg.SampleRate
	if sampleRate == 0 {
		sampleRate = 16000
	}
	channels := msg.Channels
	if channels == 0 {
		channels = 1
	}
	if channels != 1 && channels != 2 {
		return fmt.Errorf("unsupported channel count %d", channels)
	}

	sess := &streamSession{
		source:     audio.NewChanSource(sourceBufferFrames),
		sampleRate: sampleRate,
		channels:   channels,
		done:       make(chan struct{}),
	}

	switch msg.Codec {
	case "", "pcm":
	case "opus":
		dec, err := audio.NewOpusDecoder(sampleRate, channels, 20)
		if err != nil {
			return err
		}
		sess.opus = dec
	default:
		return fmt.Errorf("unsupported codec %q", msg.Codec)
	}

	ctrl, err := record.New(st.srv.recordingConfig(), st.srv.detector, st.sink, record.WithLogger(st.srv.log))
	if err != nil {
		return err
	}
	sess.controller = ctrl
	st.session = sess

	st.language = msg.Language
	st.applyConfig(msg)

	st.srv.metrics.ActiveRecordings.Add(ctx, 1)
	go func() {
		defer close(sess.done)
		defer st.srv.metrics.ActiveRecordings.Add(context.WithoutCancel(ctx), -1)
		// EOF from the closed source is the normal end of a session.
		if err := ctrl.Run(ctx, sess.source); err != nil && ctx.Err() == nil {
			st.srv.log.Warn("stream: recording controller stopped", "err", err)
		}
	}()

	return st.ws.writeJSON(ctx, streamEvent{Type: "ready"})
}

// stopSession closes the audio source so the controller finalizes any
// in-progress capture, then waits for the last utterance to finish the
// pipeline before reporting "stopped".
func (st *streamState) stopSession(ctx context.Context) {
	sess := st.session
	if sess == nil {
		return
	}
	st.session = nil

	_ = sess.source.Close()
	select {
	case <-sess.done:
	case <-ctx.Done():
		return
	}

	delivered, _ := sess.controller.Stats()
	_ = st.ws.writeJSON(ctx, streamEvent{Type: "stopped", Utterances: delivered})
}

func (st *streamState) handleAudio(data []byte) error {
	sess := st.session
	if sess == nil {
		return fmt.Errorf("no session; send a start control frame first")
	}

	pcm := data
	if sess.opus != nil {
		decoded, err := sess.opus.Decode(data)
		if err != nil {
			return err
		}
		pcm = decoded
	}

	frame := audio.Frame{
		Data:       pcm,
		SampleRate: sess.sampleRate,
		Channels:   sess.channels,
		Timestamp:  sess.elapsed,
	}
	sess.elapsed += frame.Duration()

	if !sess.source.Push(frame) {
		// Backpressure: the pipeline is still working on the previous
		// utterance and the buffer is full. Dropping capture audio is worse
		// than delaying the client, but a blocking Push would stall the read
		// loop and with it control frames, so the frame is dropped loudly.
		st.srv.log.Warn("stream: dropped audio frame, buffer full",
			"buffered", sourceBufferFrames,
		)
	}
	return nil
}

// sink receives each finalized utterance from the recording controller and
// runs it through the pipeline. It executes on the controller goroutine, so
// utterances are processed strictly in order.
func (st *streamState) sink(ctx context.Context, u record.Utterance) {
	st.mu.Lock()
	language := st.language
	ttsProvider := st.ttsProvider
	voice := st.voice
	audioFormat := st.audioFormat
	history := st.history
	cfg := st.interview
	st.mu.Unlock()

	st.srv.metrics.RecordUtterance(ctx, "delivered")

	res := st.srv.coor.Run(ctx, pipeline.Request{
		Audio:       u.PCM,
		Format:      "pcm",
		SampleRate:  u.SampleRate,
		Channels:    u.Channels,
		Language:    language,
		History:     history,
		Interview:   cfg,
		TTSProvider: ttsProvider,
		Voice:       voice,
		AudioFormat: audioFormat,
	})

	if res.Success {
		st.mu.Lock()
		now := time.Now()
		st.history = append(st.history,
			interview.Message{Role: "user", Content: res.Transcript, Timestamp: now},
			interview.Message{Role: "assistant", Content: res.Response, Timestamp: now},
		)
		// The responder consumed the current question; move to the next one.
		if st.interview != nil && !st.interview.IsComplete() {
			st.interview.CurrentIndex++
		}
		st.mu.Unlock()
	}

	wire := resultToWire(res)
	// Audio travels as a binary frame right after the event, not as base64.
	wire.Audio = nil
	if err := st.ws.writeJSON(ctx, streamEvent{Type: "result", Result: &wire}); err != nil {
		st.srv.log.Warn("stream: failed to send result", "err", err)
		return
	}
	if res.Success && len(res.Audio) > 0 {
		if err := st.ws.writeBinary(ctx, res.Audio); err != nil {
			st.srv.log.Warn("stream: failed to send audio", "err", err)
		}
	}
}
