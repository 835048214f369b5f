package deepgram

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/intervox-ai/intervox/pkg/provider/stt"
)

const listenBody = `{
	"metadata": {"duration": 2.25},
	"results": {"channels": [{
		"detected_language": "en",
		"alternatives": [{"transcript": "tell me about yourself", "confidence": 0.97}]
	}]}
}`

func TestTranscribe_RawPCM(t *testing.T) {
	var gotQuery map[string][]string
	var gotBodyLen int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/listen" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Token dg-key" {
			t.Errorf("auth header = %q", got)
		}
		gotQuery = r.URL.Query()
		body, _ := io.ReadAll(r.Body)
		gotBodyLen = len(body)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, listenBody)
	}))
	defer srv.Close()

	p := New("dg-key", WithBaseURL(srv.URL))
	res, err := p.Transcribe(context.Background(), stt.Request{
		Audio:      make([]byte, 3200),
		Format:     "pcm",
		SampleRate: 16000,
		Channels:   1,
		Language:   "en",
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Transcript != "tell me about yourself" {
		t.Fatalf("transcript = %q", res.Transcript)
	}
	if res.Confidence != 0.97 {
		t.Fatalf("confidence = %v", res.Confidence)
	}
	if res.Provider != "deepgram" {
		t.Fatalf("provider = %q", res.Provider)
	}
	if gotBodyLen != 3200 {
		t.Fatalf("uploaded body length = %d, want raw PCM passthrough", gotBodyLen)
	}
	for key, want := range map[string]string{
		"model":       "nova-2",
		"encoding":    "linear16",
		"sample_rate": "16000",
		"channels":    "1",
		"language":    "en",
	} {
		if got := gotQuery[key]; len(got) != 1 || got[0] != want {
			t.Errorf("query %s = %v, want %s", key, got, want)
		}
	}
}

func TestTranscribe_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := New("dg-key", WithBaseURL(srv.URL))
	_, err := p.Transcribe(context.Background(), stt.Request{Audio: []byte{1}, Format: "wav"})
	if err == nil {
		t.Fatal("expected error on 401")
	}
}

func TestTranscribe_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"results":{"channels":[]}}`)
	}))
	defer srv.Close()

	p := New("dg-key", WithBaseURL(srv.URL))
	_, err := p.Transcribe(context.Background(), stt.Request{Audio: []byte{1}, Format: "wav"})
	if err == nil {
		t.Fatal("expected error for response with no alternatives")
	}
}

func TestConfigured(t *testing.T) {
	if New("").Configured() {
		t.Fatal("empty key reported configured")
	}
	if !New("x").Configured() {
		t.Fatal("non-empty key reported unconfigured")
	}
}
