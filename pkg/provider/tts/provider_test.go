package tts_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/intervox-ai/intervox/pkg/provider/tts"
	"github.com/intervox-ai/intervox/pkg/provider/tts/mock"
)

func TestRegistryResolvesByName(t *testing.T) {
	a := &mock.Provider{ProviderName: "alpha", ConfiguredVal: true}
	b := &mock.Provider{ProviderName: "beta", ConfiguredVal: true}
	reg, err := tts.NewRegistry("alpha", a, b)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	res, err := reg.Synthesize(context.Background(), "beta", tts.Request{Text: "hi"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if res.Provider != "beta" {
		t.Fatalf("provider = %q, want beta", res.Provider)
	}
	if a.CallCount() != 0 {
		t.Fatalf("alpha was called %d times, want 0", a.CallCount())
	}
	if b.CallCount() != 1 {
		t.Fatalf("beta was called %d times, want 1", b.CallCount())
	}
}

func TestRegistryEmptyNameUsesDefault(t *testing.T) {
	a := &mock.Provider{ProviderName: "alpha", ConfiguredVal: true}
	b := &mock.Provider{ProviderName: "beta", ConfiguredVal: true}
	reg, err := tts.NewRegistry("beta", a, b)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	res, err := reg.Synthesize(context.Background(), "", tts.Request{Text: "hi"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if res.Provider != "beta" {
		t.Fatalf("provider = %q, want beta", res.Provider)
	}
}

func TestRegistryUnknownName(t *testing.T) {
	reg, err := tts.NewRegistry("alpha", &mock.Provider{ProviderName: "alpha"})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if _, err := reg.Get("nope"); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestRegistryNoFailover(t *testing.T) {
	// A failing named provider must surface its error; the registry must
	// not silently try another backend.
	failErr := errors.New("backend down")
	bad := &mock.Provider{
		ProviderName:  "alpha",
		ConfiguredVal: true,
		SynthesizeFunc: func(context.Context, tts.Request) (*tts.Result, error) {
			return nil, failErr
		},
	}
	good := &mock.Provider{ProviderName: "beta", ConfiguredVal: true}
	reg, err := tts.NewRegistry("alpha", bad, good)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	_, err = reg.Synthesize(context.Background(), "alpha", tts.Request{Text: "hi"})
	if !errors.Is(err, failErr) {
		t.Fatalf("error = %v, want %v", err, failErr)
	}
	if good.CallCount() != 0 {
		t.Fatalf("beta was called %d times, want 0", good.CallCount())
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	_, err := tts.NewRegistry("alpha",
		&mock.Provider{ProviderName: "alpha"},
		&mock.Provider{ProviderName: "alpha"},
	)
	if err == nil {
		t.Fatal("expected duplicate provider error")
	}
}

func TestRegistryRejectsUnknownDefault(t *testing.T) {
	_, err := tts.NewRegistry("ghost", &mock.Provider{ProviderName: "alpha"})
	if err == nil {
		t.Fatal("expected unknown default error")
	}
}

func TestRegistryStatuses(t *testing.T) {
	reg, err := tts.NewRegistry("beta",
		&mock.Provider{ProviderName: "beta", ConfiguredVal: true},
		&mock.Provider{ProviderName: "alpha", ConfiguredVal: false},
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	statuses := reg.Statuses()
	if len(statuses) != 2 {
		t.Fatalf("got %d statuses, want 2", len(statuses))
	}
	// Sorted by name.
	if statuses[0].Name != "alpha" || statuses[0].Configured || statuses[0].Default {
		t.Fatalf("alpha status = %+v", statuses[0])
	}
	if statuses[1].Name != "beta" || !statuses[1].Configured || !statuses[1].Default {
		t.Fatalf("beta status = %+v", statuses[1])
	}
}

func TestTruncateText(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		maxBytes int
		want     string
	}{
		{"under limit", "hello world", 100, "hello world"},
		{"exact limit", "hello", 5, "hello"},
		{"cuts at space", "hello world again", 13, "hello world"},
		{"no space in back half", "abcdefghij", 5, "abcde"},
		{"zero max keeps all", "hello", 0, "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tts.TruncateText(tt.in, tt.maxBytes)
			if got != tt.want {
				t.Fatalf("TruncateText(%q, %d) = %q, want %q", tt.in, tt.maxBytes, got, tt.want)
			}
		})
	}
}

func TestTruncateTextNeverSplitsRunes(t *testing.T) {
	s := strings.Repeat("é", 50) // 2 bytes per rune
	for max := 1; max < len(s); max++ {
		got := tts.TruncateText(s, max)
		if len(got) > max {
			t.Fatalf("max %d: result %d bytes", max, len(got))
		}
		if !utf8.ValidString(got) {
			t.Fatalf("max %d: result is not valid UTF-8", max)
		}
	}
}
