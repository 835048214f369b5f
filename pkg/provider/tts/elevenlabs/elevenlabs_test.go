package elevenlabs

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

func TestSynthesizeSendsRequest(t *testing.T) {
	var gotPath, gotQuery, gotKey string
	var gotBody synthesisRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("xi-api-key")
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &gotBody); err != nil {
			t.Errorf("unmarshal body: %v", err)
		}
		w.Write([]byte("audio-bytes"))
	}))
	defer srv.Close()

	p := New("key-123", WithBaseURL(srv.URL))
	res, err := p.Synthesize(context.Background(), tts.Request{
		Text:  "Tell me about yourself.",
		Voice: "voice-xyz",
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	if gotPath != "/v1/text-to-speech/voice-xyz" {
		t.Errorf("path = %q", gotPath)
	}
	if gotQuery != "output_format=mp3_44100_128" {
		t.Errorf("query = %q", gotQuery)
	}
	if gotKey != "key-123" {
		t.Errorf("xi-api-key = %q", gotKey)
	}
	if gotBody.Text != "Tell me about yourself." {
		t.Errorf("text = %q", gotBody.Text)
	}
	if gotBody.ModelID != defaultModel {
		t.Errorf("model_id = %q", gotBody.ModelID)
	}
	if string(res.Audio) != "audio-bytes" {
		t.Errorf("audio = %q", res.Audio)
	}
	if res.Format != "mp3" || res.Provider != "elevenlabs" {
		t.Errorf("result = %+v", res)
	}
}

func TestSynthesizeDefaultVoice(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	p := New("k", WithBaseURL(srv.URL), WithVoice("my-voice"))
	if _, err := p.Synthesize(context.Background(), tts.Request{Text: "hi"}); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if gotPath != "/v1/text-to-speech/my-voice" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestSynthesizeTruncatesLongText(t *testing.T) {
	var gotBody synthesisRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &gotBody)
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	p := New("k", WithBaseURL(srv.URL))
	long := strings.Repeat("word ", 2000) // 10000 bytes
	if _, err := p.Synthesize(context.Background(), tts.Request{Text: long}); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(gotBody.Text) > maxTextLen {
		t.Fatalf("sent %d bytes, limit %d", len(gotBody.Text), maxTextLen)
	}
	if gotBody.Text == "" {
		t.Fatal("text emptied by truncation")
	}
}

func TestSynthesizeNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"quota exceeded"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := New("k", WithBaseURL(srv.URL))
	_, err := p.Synthesize(context.Background(), tts.Request{Text: "hi"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error = %v, want status in message", err)
	}
}

func TestSynthesizeUnsupportedFormat(t *testing.T) {
	p := New("k")
	if _, err := p.Synthesize(context.Background(), tts.Request{Text: "hi", Format: "ogg"}); err == nil {
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

func TestEmptyText(t *testing.T) {
	p := New("k")
	if _, err := p.Synthesize(context.Background(), tts.Request{}); err == nil {
		t.Fatal("expected error for empty text")
	}
}
