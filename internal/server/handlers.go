package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/intervox-ai/intervox/internal/interview"
	"github.com/intervox-ai/intervox/internal/pipeline"
	"github.com/intervox-ai/intervox/internal/transcript"
	"github.com/intervox-ai/intervox/pkg/provider/stt"
	"github.com/intervox-ai/intervox/pkg/provider/tts"
)

// maxBodyBytes caps request bodies. A 30 s recording at 48 kHz stereo PCM is
// under 6 MiB; 16 MiB leaves room for base64 overhead and container headers.
const maxBodyBytes = 16 << 20

// ── wire types ───────────────────────────────────────────────────────────────

// messageWire is one conversation history entry. []byte fields elsewhere use
// encoding/json's native base64 handling.
type messageWire struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type interviewWire struct {
	Type         string   `json:"type"`
	Questions    []string `json:"questions"`
	CurrentIndex int      `json:"current_index"`
}

type correctionWire struct {
	Original   string  `json:"original"`
	Corrected  string  `json:"corrected"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
}

type pipelineRequestWire struct {
	Audio      []byte `json:"audio"`
	Format     string `json:"format"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
	Language   string `json:"language,omitempty"`

	History   []messageWire  `json:"history,omitempty"`
	Interview *interviewWire `json:"interview,omitempty"`

	TTSProvider string `json:"tts_provider,omitempty"`
	Voice       string `json:"voice,omitempty"`
	AudioFormat string `json:"audio_format,omitempty"`
}

type pipelineResultWire struct {
	Success     bool   `json:"success"`
	FailedStage string `json:"failed_stage,omitempty"`
	Error       string `json:"error,omitempty"`

	Transcript   string           `json:"transcript,omitempty"`
	Corrections  []correctionWire `json:"corrections,omitempty"`
	STTProvider  string           `json:"stt_provider,omitempty"`
	Response     string           `json:"response,omitempty"`
	NextQuestion string           `json:"next_question,omitempty"`
	IsComplete   bool             `json:"is_complete,omitempty"`
	Audio        []byte           `json:"audio,omitempty"`
	AudioFormat  string           `json:"audio_format,omitempty"`
	TTSProvider  string           `json:"tts_provider,omitempty"`
}

type errorWire struct {
	Error string `json:"error"`
}

// ── helpers ──────────────────────────────────────────────────────────────────

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorWire{Error: fmt.Sprintf("decode request: %v", err)})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func historyFromWire(msgs []messageWire) []interview.Message {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]interview.Message, len(msgs))
	for i, m := range msgs {
		out[i] = interview.Message{Role: m.Role, Content: m.Content, Timestamp: time.Now()}
	}
	return out
}

func interviewFromWire(w *interviewWire) *interview.Config {
	if w == nil {
		return nil
	}
	return &interview.Config{
		Type:         interview.Type(w.Type),
		Questions:    w.Questions,
		CurrentIndex: w.CurrentIndex,
	}
}

func correctionsToWire(cs []transcript.Correction) []correctionWire {
	if len(cs) == 0 {
		return nil
	}
	out := make([]correctionWire, len(cs))
	for i, c := range cs {
		out[i] = correctionWire{
			Original:   c.Original,
			Corrected:  c.Corrected,
			Confidence: c.Confidence,
			Method:     c.Method,
		}
	}
	return out
}

func resultToWire(res *pipeline.Result) pipelineResultWire {
	out := pipelineResultWire{
		Success:      res.Success,
		FailedStage:  string(res.FailedStage),
		Transcript:   res.Transcript,
		Corrections:  correctionsToWire(res.Corrections),
		STTProvider:  res.STTProvider,
		Response:     res.Response,
		NextQuestion: res.NextQuestion,
		IsComplete:   res.IsComplete,
		Audio:        res.Audio,
		AudioFormat:  res.AudioFormat,
		TTSProvider:  res.TTSProvider,
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}

// ── handlers ─────────────────────────────────────────────────────────────────

// handlePipeline runs the full STT → LLM → TTS sequence on one utterance.
// Stage failures are reported in the body with 200: the request itself
// succeeded, and partial results (a transcript without audio, say) are still
// useful to the caller.
func (s *Server) handlePipeline(w http.ResponseWriter, r *http.Request) {
	var req pipelineRequestWire
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Audio) == 0 {
		writeJSON(w, http.StatusBadRequest, errorWire{Error: "audio is required"})
		return
	}

	res := s.coor.Run(r.Context(), pipeline.Request{
		Audio:       req.Audio,
		Format:      req.Format,
		SampleRate:  req.SampleRate,
		Channels:    req.Channels,
		Language:    req.Language,
		History:     historyFromWire(req.History),
		Interview:   interviewFromWire(req.Interview),
		TTSProvider: req.TTSProvider,
		Voice:       req.Voice,
		AudioFormat: req.AudioFormat,
	})
	writeJSON(w, http.StatusOK, resultToWire(res))
}

type transcribeRequestWire struct {
	Audio      []byte `json:"audio"`
	Format     string `json:"format"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
	Language   string `json:"language,omitempty"`
}

type transcribeResultWire struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence,omitempty"`
	Language   string  `json:"language,omitempty"`
	Provider   string  `json:"provider"`
}

// handleTranscribe runs the STT stage alone. Useful for diagnosing provider
// failover without burning LLM and TTS quota.
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	var req transcribeRequestWire
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Audio) == 0 {
		writeJSON(w, http.StatusBadRequest, errorWire{Error: "audio is required"})
		return
	}

	res, err := s.coor.Transcribe(r.Context(), pipeline.Request{
		Audio:      req.Audio,
		Format:     req.Format,
		SampleRate: req.SampleRate,
		Channels:   req.Channels,
		Language:   req.Language,
	})
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, stt.ErrAllUnavailable) {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, errorWire{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, transcribeResultWire{
		Transcript: res.Transcript,
		Confidence: res.Confidence,
		Language:   res.Language,
		Provider:   res.Provider,
	})
}

type respondRequestWire struct {
	Transcript string         `json:"transcript"`
	History    []messageWire  `json:"history,omitempty"`
	Interview  *interviewWire `json:"interview,omitempty"`
}

type respondResultWire struct {
	Response     string `json:"response"`
	NextQuestion string `json:"next_question,omitempty"`
	IsComplete   bool   `json:"is_complete,omitempty"`
	Provider     string `json:"provider"`
}

// handleRespond runs the LLM stage alone on a ready transcript.
func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request) {
	var req respondRequestWire
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Transcript == "" {
		writeJSON(w, http.StatusBadRequest, errorWire{Error: "transcript is required"})
		return
	}

	res, err := s.coor.Respond(r.Context(), req.Transcript, historyFromWire(req.History), interviewFromWire(req.Interview))
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorWire{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, respondResultWire{
		Response:     res.Response,
		NextQuestion: res.NextQuestion,
		IsComplete:   res.IsComplete,
		Provider:     res.Provider,
	})
}

type synthesizeRequestWire struct {
	Text     string `json:"text"`
	Provider string `json:"provider,omitempty"`
	Voice    string `json:"voice,omitempty"`
	Format   string `json:"format,omitempty"`
}

type synthesizeResultWire struct {
	Audio    []byte `json:"audio"`
	Format   string `json:"format"`
	Provider string `json:"provider"`
}

// handleSynthesize runs the TTS stage alone.
func (s *Server) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	var req synthesizeRequestWire
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, errorWire{Error: "text is required"})
		return
	}

	res, err := s.coor.Synthesize(r.Context(), req.Provider, tts.Request{
		Text:   req.Text,
		Voice:  req.Voice,
		Format: req.Format,
	})
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, tts.ErrUnknownProvider) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, errorWire{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, synthesizeResultWire{
		Audio:    res.Audio,
		Format:   res.Format,
		Provider: res.Provider,
	})
}

type providersWire struct {
	STT []stt.ProviderStatus `json:"stt"`
	LLM llmStatusWire        `json:"llm"`
	TTS []tts.Status         `json:"tts"`
}

type llmStatusWire struct {
	Name       string `json:"name"`
	Configured bool   `json:"configured"`
}

// handleProviders reports each provider's configuration state and, for STT,
// the remaining rate budget.
func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	out := providersWire{
		STT: s.sttMgr.Status(),
		TTS: s.ttsReg.Statuses(),
	}
	if s.llmProv != nil {
		out.LLM = llmStatusWire{Name: s.llmProv.Name(), Configured: s.llmProv.Configured()}
	}
	writeJSON(w, http.StatusOK, out)
}
