// Command intervox is the main entry point for the Intervox interview server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/intervox-ai/intervox/internal/config"
	"github.com/intervox-ai/intervox/internal/interview"
	"github.com/intervox-ai/intervox/internal/observe"
	"github.com/intervox-ai/intervox/internal/pipeline"
	"github.com/intervox-ai/intervox/internal/record"
	"github.com/intervox-ai/intervox/internal/resilience"
	"github.com/intervox-ai/intervox/internal/server"
	"github.com/intervox-ai/intervox/internal/transcript"
	"github.com/intervox-ai/intervox/internal/transcript/llmreview"
	"github.com/intervox-ai/intervox/pkg/provider/llm"
	"github.com/intervox-ai/intervox/pkg/provider/llm/anyllm"
	oaillm "github.com/intervox-ai/intervox/pkg/provider/llm/openai"
	"github.com/intervox-ai/intervox/pkg/provider/stt"
	"github.com/intervox-ai/intervox/pkg/provider/stt/deepgram"
	oaistt "github.com/intervox-ai/intervox/pkg/provider/stt/openai"
	"github.com/intervox-ai/intervox/pkg/provider/tts"
	"github.com/intervox-ai/intervox/pkg/provider/tts/elevenlabs"
	oaitts "github.com/intervox-ai/intervox/pkg/provider/tts/openai"
	"github.com/intervox-ai/intervox/pkg/vad"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "intervox: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "intervox: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	// The level lives in a LevelVar so the config watcher can adjust it at
	// runtime without swapping the handler.
	logLevel := new(slog.LevelVar)
	logLevel.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	slog.Info("intervox starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "intervox"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg, cfg)

	// ── Instantiate providers ─────────────────────────────────────────────────
	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Transcription manager ─────────────────────────────────────────────────
	sttMgr := stt.NewManager(
		stt.WithSkipHook(func(provider, reason string) {
			metrics.RateLimitSkips.Add(context.Background(), 1, metric.WithAttributes(
				observe.Attr("provider", provider),
				observe.Attr("reason", reason),
			))
		}),
		stt.WithErrorHook(func(provider string, _ error) {
			metrics.RecordProviderError(context.Background(), provider, "stt")
		}),
	)
	for _, e := range providers.STT {
		sttMgr.Add(e.provider, e.limit)
	}

	// ── Response generation ───────────────────────────────────────────────────
	if providers.LLM == nil {
		slog.Error("no LLM provider configured; set providers.llm in the config")
		return 1
	}
	// The language model has no failover peer, so completion calls go
	// through a circuit breaker to fail fast while the backend is down.
	llmProv := resilience.GuardLLM(providers.LLM, resilience.BreakerConfig{})
	var respOpts []interview.Option
	if t := cfg.Providers.LLM.Temperature; t != 0 {
		respOpts = append(respOpts, interview.WithTemperature(t))
	}
	if n := cfg.Providers.LLM.MaxTokens; n != 0 {
		respOpts = append(respOpts, interview.WithMaxTokens(n))
	}
	responder, err := interview.NewResponder(llmProv, respOpts...)
	if err != nil {
		slog.Error("failed to create responder", "err", err)
		return 1
	}

	// ── Synthesis registry ────────────────────────────────────────────────────
	if len(providers.TTS) == 0 {
		slog.Error("no TTS provider configured; set providers.tts in the config")
		return 1
	}
	ttsReg, err := tts.NewRegistry(cfg.Providers.TTS.Default, providers.TTS...)
	if err != nil {
		slog.Error("failed to build synthesis registry", "err", err)
		return 1
	}

	// ── Transcript correction ─────────────────────────────────────────────────
	var corrOpts []transcript.Option
	if cfg.Interview.LLMReview {
		corrOpts = append(corrOpts, transcript.WithReviewer(llmreview.New(llmProv)))
		if t := cfg.Interview.ReviewThreshold; t != 0 {
			corrOpts = append(corrOpts, transcript.WithReviewThreshold(t))
		}
	}
	corrector := transcript.New(cfg.Interview.Keywords, corrOpts...)

	// ── Pipeline ──────────────────────────────────────────────────────────────
	coor, err := pipeline.New(sttMgr, responder, ttsReg,
		pipeline.WithCorrector(corrector),
		pipeline.WithMetrics(metrics),
		pipeline.WithTimeouts(pipeline.Timeouts{
			STT: cfg.Pipeline.STTTimeout.Std(),
			LLM: cfg.Pipeline.LLMTimeout.Std(),
			TTS: cfg.Pipeline.TTSTimeout.Std(),
		}),
	)
	if err != nil {
		slog.Error("failed to assemble pipeline", "err", err)
		return 1
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	srv := server.New(coor, sttMgr, llmProv, ttsReg,
		server.WithMetrics(metrics),
		server.WithDetector(vad.New(vad.Config{
			EnergyThreshold: cfg.VAD.EnergyThreshold,
			ZCRMin:          cfg.VAD.ZCRMin,
			ZCRMax:          cfg.VAD.ZCRMax,
		})),
		server.WithRecording(recordConfig(cfg.Recording)),
	)

	// ── Config hot reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		d := config.Diff(old, new)
		if !d.Any() {
			slog.Info("config file changed; no hot-reloadable fields differ")
			return
		}
		if d.LogLevelChanged {
			logLevel.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level updated", "level", d.NewLogLevel)
		}
		if d.KeywordsChanged {
			corrector.SetKeywords(d.NewKeywords)
			slog.Info("interview keywords updated", "count", len(d.NewKeywords))
		}
		if d.RecordingChanged {
			srv.SetRecording(recordConfig(d.NewRecording))
			slog.Info("recording knobs updated",
				"silence_timeout", d.NewRecording.SilenceTimeout,
				"max_recording_time", d.NewRecording.MaxRecordingTime,
				"min_utterance", d.NewRecording.MinUtterance,
			)
		}
	})
	if err != nil {
		slog.Warn("config watcher unavailable, hot reload disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	httpSrv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("server ready, press Ctrl+C to shut down", "addr", cfg.Server.ListenAddr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if tl := cfg.Server.TLS; tl != nil {
			return httpSrv.ListenAndServeTLS(tl.CertFile, tl.KeyFile)
		}
		return httpSrv.ListenAndServe()
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, stopping…")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// builtinProviders maps provider kinds to the implementations that ship with
// Intervox. Used for startup logging.
var builtinProviders = map[string][]string{
	"llm": {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq"},
	"stt": {"openai", "deepgram"},
	"tts": {"elevenlabs", "openai"},
}

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the appropriate
// provider from the real implementation packages. cfg supplies cross-cutting
// knobs that live outside the entry, such as the LLM history limit.
func registerBuiltinProviders(reg *config.Registry, cfg *config.Config) {
	historyLimit := cfg.Providers.LLM.HistoryLimit

	// ── LLM ───────────────────────────────────────────────────────────────────
	// openai goes through the native SDK; the other cloud backends share the
	// any-llm pattern of optional APIKey + optional BaseURL.
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []oaillm.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaillm.WithBaseURL(entry.BaseURL))
		}
		if historyLimit > 0 {
			opts = append(opts, oaillm.WithHistoryLimit(historyLimit))
		}
		return oaillm.New(entry.APIKey, entry.Model, opts...)
	})

	for _, providerName := range []string{"anthropic", "gemini", "deepseek", "mistral", "groq"} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, historyLimit, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, historyLimit, opts...)
	})

	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("openai", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []oaistt.Option
		if entry.Model != "" {
			opts = append(opts, oaistt.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, oaistt.WithBaseURL(entry.BaseURL))
		}
		return oaistt.New(entry.APIKey, opts...), nil
	})

	reg.RegisterSTT("deepgram", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, deepgram.WithBaseURL(entry.BaseURL))
		}
		return deepgram.New(entry.APIKey, opts...), nil
	})

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("elevenlabs", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		if voice := optString(entry.Options, "voice"); voice != "" {
			opts = append(opts, elevenlabs.WithVoice(voice))
		}
		return elevenlabs.New(entry.APIKey, opts...), nil
	})

	reg.RegisterTTS("openai", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []oaitts.Option
		if entry.Model != "" {
			opts = append(opts, oaitts.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, oaitts.WithBaseURL(entry.BaseURL))
		}
		if voice := optString(entry.Options, "voice"); voice != "" {
			opts = append(opts, oaitts.WithVoice(voice))
		}
		return oaitts.New(entry.APIKey, opts...), nil
	})

	// Debug log of all registered providers.
	for kind, names := range builtinProviders {
		for _, name := range names {
			slog.Debug("registered provider", "kind", kind, "name", name)
		}
	}
}

// sttEntry pairs a constructed provider with its configured rate limit.
type sttEntry struct {
	provider stt.Provider
	limit    stt.Limit
}

// serverProviders collects everything buildProviders instantiates.
type serverProviders struct {
	LLM llm.Provider
	STT []sttEntry
	TTS []tts.Provider
}

// buildProviders instantiates all providers named in cfg using the registry.
// STT providers keep their config order, which is the failover priority.
func buildProviders(cfg *config.Config, reg *config.Registry) (*serverProviders, error) {
	ps := &serverProviders{}

	if name := cfg.Providers.LLM.Name; name != "" {
		p, err := reg.CreateLLM(cfg.Providers.LLM.ProviderEntry)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not yet implemented, skipping", "kind", "llm", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create llm provider %q: %w", name, err)
		} else {
			ps.LLM = p
			slog.Info("provider created", "kind", "llm", "name", name)
		}
	}

	for _, sc := range cfg.Providers.STT {
		p, err := reg.CreateSTT(sc.ProviderEntry)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not yet implemented, skipping", "kind", "stt", "name", sc.Name)
			continue
		} else if err != nil {
			return nil, fmt.Errorf("create stt provider %q: %w", sc.Name, err)
		}
		var limit stt.Limit
		if rl := sc.RateLimit; rl != nil {
			limit = stt.Limit{MaxRequests: rl.MaxRequests, Interval: rl.Interval.Std()}
		}
		ps.STT = append(ps.STT, sttEntry{provider: p, limit: limit})
		slog.Info("provider created", "kind", "stt", "name", sc.Name,
			"rate_limited", limit.MaxRequests > 0)
	}

	for _, tc := range cfg.Providers.TTS.Providers {
		entry := tc.ProviderEntry
		if tc.Voice != "" {
			// The factory only sees the entry, so the voice rides along in
			// the options map.
			opts := maps.Clone(entry.Options)
			if opts == nil {
				opts = map[string]any{}
			}
			opts["voice"] = tc.Voice
			entry.Options = opts
		}
		p, err := reg.CreateTTS(entry)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not yet implemented, skipping", "kind", "tts", "name", tc.Name)
			continue
		} else if err != nil {
			return nil, fmt.Errorf("create tts provider %q: %w", tc.Name, err)
		}
		ps.TTS = append(ps.TTS, p)
		slog.Info("provider created", "kind", "tts", "name", tc.Name)
	}

	return ps, nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        Intervox — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	for i, sc := range cfg.Providers.STT {
		printProvider(fmt.Sprintf("STT #%d", i+1), sc.Name, sc.Model)
	}
	for _, tc := range cfg.Providers.TTS.Providers {
		label := "TTS"
		if tc.Name == cfg.Providers.TTS.Default {
			label = "TTS (default)"
		}
		printProvider(label, tc.Name, tc.Model)
	}
	fmt.Printf("║  Keywords        : %-19d ║\n", len(cfg.Interview.Keywords))
	llmReview := "off"
	if cfg.Interview.LLMReview {
		llmReview = "on"
	}
	fmt.Printf("║  LLM review      : %-19s ║\n", llmReview)
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-14s  : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// recordConfig converts the YAML recording section to controller knobs.
func recordConfig(rc config.RecordingConfig) record.Config {
	return record.Config{
		SilenceTimeout:   rc.SilenceTimeout.Std(),
		MaxRecordingTime: rc.MaxRecordingTime.Std(),
		MinUtterance:     rc.MinUtterance.Std(),
	}
}

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
