// Package server exposes the voice pipeline over HTTP and WebSocket.
//
// REST endpoints run the pipeline (or a single stage) on a complete audio
// payload; the /v1/stream WebSocket accepts live audio frames, segments them
// into utterances with the recording controller, and streams results back as
// they are produced. Operational endpoints (/healthz, /readyz, /metrics,
// /v1/providers) report provider and process state.
package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/intervox-ai/intervox/internal/health"
	"github.com/intervox-ai/intervox/internal/observe"
	"github.com/intervox-ai/intervox/internal/pipeline"
	"github.com/intervox-ai/intervox/internal/record"
	"github.com/intervox-ai/intervox/pkg/provider/llm"
	"github.com/intervox-ai/intervox/pkg/provider/stt"
	"github.com/intervox-ai/intervox/pkg/provider/tts"
	"github.com/intervox-ai/intervox/pkg/vad"
)

// Server holds the pipeline coordinator plus everything the HTTP surface
// needs to report status. Safe for concurrent use.
type Server struct {
	coor    *pipeline.Coordinator
	sttMgr  *stt.Manager
	llmProv llm.Provider
	ttsReg  *tts.Registry

	detector record.Detector

	recMu  sync.RWMutex
	recCfg record.Config

	metrics *observe.Metrics
	log     *slog.Logger
}

// Option customizes a Server.
type Option func(*Server)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics sets the metrics sink. Defaults to the process-wide instruments.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithDetector sets the voice activity detector used by streaming sessions.
// Defaults to an energy/ZCR detector with stock thresholds.
func WithDetector(d record.Detector) Option {
	return func(s *Server) {
		if d != nil {
			s.detector = d
		}
	}
}

// WithRecording sets the recording controller timing knobs for streaming
// sessions. Zero fields keep the controller defaults.
func WithRecording(cfg record.Config) Option {
	return func(s *Server) { s.recCfg = cfg }
}

// New creates a Server around an assembled pipeline. The manager, provider,
// and registry are the same instances the coordinator uses; the server reads
// them only for status reporting.
func New(coor *pipeline.Coordinator, sttMgr *stt.Manager, llmProv llm.Provider, ttsReg *tts.Registry, opts ...Option) *Server {
	s := &Server{
		coor:     coor,
		sttMgr:   sttMgr,
		llmProv:  llmProv,
		ttsReg:   ttsReg,
		detector: vad.New(vad.Config{}),
		metrics:  observe.DefaultMetrics(),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetRecording replaces the recording timing knobs. Streams opened after the
// call pick up the new values; established streams keep the old ones.
func (s *Server) SetRecording(cfg record.Config) {
	s.recMu.Lock()
	s.recCfg = cfg
	s.recMu.Unlock()
}

func (s *Server) recordingConfig() record.Config {
	s.recMu.RLock()
	defer s.recMu.RUnlock()
	return s.recCfg
}

// Handler returns the full route table wrapped in the telemetry middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/pipeline", s.handlePipeline)
	mux.HandleFunc("POST /v1/transcribe", s.handleTranscribe)
	mux.HandleFunc("POST /v1/respond", s.handleRespond)
	mux.HandleFunc("POST /v1/synthesize", s.handleSynthesize)
	mux.HandleFunc("GET /v1/providers", s.handleProviders)
	mux.HandleFunc("GET /v1/stream", s.handleStream)

	// Provider checks are in-memory state lookups, so a readiness request
	// should never hang near the default deadline.
	health.New([]health.Checker{
		health.STTChecker(s.sttMgr),
		health.LLMChecker(s.llmProv),
		health.TTSChecker(s.ttsReg),
	}, health.WithCheckTimeout(2*time.Second)).Register(mux)

	mux.Handle("GET /metrics", promhttp.Handler())

	return observe.Middleware(s.metrics)(mux)
}

// ListenAndServe serves the handler on addr until the listener fails.
// Callers that need graceful shutdown should build their own http.Server
// around [Server.Handler].
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}
