// Package health reports whether the interview server can take traffic.
//
// Two probes are exposed:
//
//   - /healthz answers 200 whenever the process can serve HTTP at all.
//   - /readyz runs every registered [Checker] and answers 200 only when all
//     of them pass, 503 otherwise.
//
// Checkers inspect provider wiring (transcription, response generation,
// synthesis), so a failing /readyz usually means a credential or
// configuration gap rather than a crashed dependency. The JSON body carries
// a "status" field plus a per-checker "checks" map so operators can see
// which stage is unready.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// defaultCheckTimeout bounds a single readiness check. The built-in checkers
// are in-memory lookups, but a Checker is free to probe the network, so every
// check runs under a deadline.
const defaultCheckTimeout = 5 * time.Second

// Checker is a named readiness probe. Check returns nil when the dependency
// is ready and an error describing the gap otherwise; it must respect
// context cancellation.
type Checker struct {
	// Name keys this check in the JSON response (e.g. "stt", "tts").
	Name string

	Check func(ctx context.Context) error
}

// report is the JSON body both probes return.
type report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves the /healthz and /readyz probes. Safe for concurrent use;
// the checker set is fixed at construction.
type Handler struct {
	checkers []Checker
	timeout  time.Duration
}

// Option customizes a Handler.
type Option func(*Handler)

// WithCheckTimeout overrides the per-check deadline. Non-positive values
// keep the default.
func WithCheckTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// New creates a Handler that evaluates checkers, in order, on each /readyz
// request.
func New(checkers []Checker, opts ...Option) *Handler {
	h := &Handler{
		checkers: append([]Checker(nil), checkers...),
		timeout:  defaultCheckTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Healthz is the liveness probe. Reaching it proves the process serves HTTP,
// which is all liveness promises.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, report{Status: "ok"})
}

// Readyz runs every checker under the per-check deadline and reports 503 if
// any of them fail.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(h.checkers))
	ready := true

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		err := c.Check(ctx)
		cancel()

		if err != nil {
			checks[c.Name] = "fail: " + err.Error()
			ready = false
		} else {
			checks[c.Name] = "ok"
		}
	}

	res := report{Status: "ok", Checks: checks}
	status := http.StatusOK
	if !ready {
		res.Status = "fail"
		status = http.StatusServiceUnavailable
	}
	respond(w, status, res)
}

// Register mounts both probes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

// respond writes v as JSON with the given status. Encoding happens before
// the header goes out so a marshal failure still yields a clean 500.
func respond(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}
