package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/intervox-ai/intervox/pkg/provider/tts"
)

// speechBody mirrors the JSON the speech endpoint receives.
type speechBody struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

func TestSynthesizeSendsRequest(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody speechBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &gotBody); err != nil {
			t.Errorf("unmarshal body: %v", err)
		}
		w.Write([]byte("speech-bytes"))
	}))
	defer srv.Close()

	p := New("sk-test", WithBaseURL(srv.URL))
	res, err := p.Synthesize(context.Background(), tts.Request{
		Text:   "Thank you for your time.",
		Voice:  "nova",
		Format: "wav",
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	if gotPath != "/audio/speech" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody.Model != defaultModel {
		t.Errorf("model = %q", gotBody.Model)
	}
	if gotBody.Voice != "nova" {
		t.Errorf("voice = %q", gotBody.Voice)
	}
	if gotBody.ResponseFormat != "wav" {
		t.Errorf("response_format = %q", gotBody.ResponseFormat)
	}
	if string(res.Audio) != "speech-bytes" {
		t.Errorf("audio = %q", res.Audio)
	}
	if res.Format != "wav" || res.Provider != "openai" {
		t.Errorf("result = %+v", res)
	}
}

func TestSynthesizeDefaults(t *testing.T) {
	var gotBody speechBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &gotBody)
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	p := New("k", WithBaseURL(srv.URL))
	res, err := p.Synthesize(context.Background(), tts.Request{Text: "hi"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if gotBody.Voice != defaultVoice {
		t.Errorf("voice = %q, want %q", gotBody.Voice, defaultVoice)
	}
	if res.Format != "mp3" {
		t.Errorf("format = %q, want mp3", res.Format)
	}
}

func TestSynthesizeTruncatesLongText(t *testing.T) {
	var gotBody speechBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &gotBody)
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	p := New("k", WithBaseURL(srv.URL))
	long := strings.Repeat("answer ", 1000)
	if _, err := p.Synthesize(context.Background(), tts.Request{Text: long}); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(gotBody.Input) > maxTextLen {
		t.Fatalf("sent %d bytes, limit %d", len(gotBody.Input), maxTextLen)
	}
}

func TestSynthesizeNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := New("k", WithBaseURL(srv.URL))
	_, err := p.Synthesize(context.Background(), tts.Request{Text: "hi"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error = %v, want status in message", err)
	}
}

func TestSynthesizeUnsupportedFormat(t *testing.T) {
	p := New("k")
	if _, err := p.Synthesize(context.Background(), tts.Request{Text: "hi", Format: "wma"}); err == nil {
		t.Fatal("expected format error")
	}
}

func TestUnconfigured(t *testing.T) {
	p := New("")
	if p.Configured() {
		t.Fatal("Configured() = true without key")
	}
	if _, err := p.Synthesize(context.Background(), tts.Request{Text: "hi"}); err == nil {
		t.Fatal("expected error from unconfigured provider")
	}
}
