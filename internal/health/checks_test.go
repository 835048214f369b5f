package health

import (
	"context"
	"strings"
	"testing"

	llmmock "github.com/intervox-ai/intervox/pkg/provider/llm/mock"
	"github.com/intervox-ai/intervox/pkg/provider/stt"
	sttmock "github.com/intervox-ai/intervox/pkg/provider/stt/mock"
	"github.com/intervox-ai/intervox/pkg/provider/tts"
	ttsmock "github.com/intervox-ai/intervox/pkg/provider/tts/mock"
)

func TestSTTChecker_ConfiguredProviderPasses(t *testing.T) {
	m := stt.NewManager()
	m.Add(&sttmock.Provider{ProviderName: "openai", ConfiguredVal: true}, stt.Limit{})

	c := STTChecker(m)
	if err := c.Check(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSTTChecker_NoProviders(t *testing.T) {
	c := STTChecker(stt.NewManager())
	if err := c.Check(context.Background()); err == nil {
		t.Fatal("expected error for empty manager, got nil")
	}
}

func TestSTTChecker_AllUnconfigured(t *testing.T) {
	m := stt.NewManager()
	m.Add(&sttmock.Provider{ProviderName: "openai"}, stt.Limit{})
	m.Add(&sttmock.Provider{ProviderName: "deepgram"}, stt.Limit{})

	c := STTChecker(m)
	err := c.Check(context.Background())
	if err == nil {
		t.Fatal("expected error when no provider is configured, got nil")
	}
	if !strings.Contains(err.Error(), "openai") || !strings.Contains(err.Error(), "deepgram") {
		t.Errorf("error should name the unconfigured providers, got: %v", err)
	}
}

func TestSTTChecker_OneConfiguredSuffices(t *testing.T) {
	m := stt.NewManager()
	m.Add(&sttmock.Provider{ProviderName: "openai"}, stt.Limit{})
	m.Add(&sttmock.Provider{ProviderName: "deepgram", ConfiguredVal: true}, stt.Limit{})

	c := STTChecker(m)
	if err := c.Check(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLLMChecker(t *testing.T) {
	if err := LLMChecker(nil).Check(context.Background()); err == nil {
		t.Error("nil provider should fail the check")
	}
	unconfigured := &llmmock.Provider{ProviderName: "openai"}
	if err := LLMChecker(unconfigured).Check(context.Background()); err == nil {
		t.Error("unconfigured provider should fail the check")
	}
	configured := &llmmock.Provider{ProviderName: "openai", ConfiguredVal: true}
	if err := LLMChecker(configured).Check(context.Background()); err != nil {
		t.Errorf("configured provider should pass, got: %v", err)
	}
}

func TestTTSChecker_DefaultMustBeConfigured(t *testing.T) {
	reg, err := tts.NewRegistry("elevenlabs",
		&ttsmock.Provider{ProviderName: "elevenlabs"},
		&ttsmock.Provider{ProviderName: "openai", ConfiguredVal: true},
	)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	// A configured non-default is not enough: synthesis has no failover.
	checkErr := TTSChecker(reg).Check(context.Background())
	if checkErr == nil {
		t.Fatal("expected error for unconfigured default provider, got nil")
	}
	if !strings.Contains(checkErr.Error(), "elevenlabs") {
		t.Errorf("error should name the default provider, got: %v", checkErr)
	}
}

func TestTTSChecker_ConfiguredDefaultPasses(t *testing.T) {
	reg, err := tts.NewRegistry("elevenlabs",
		&ttsmock.Provider{ProviderName: "elevenlabs", ConfiguredVal: true},
	)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	if err := TTSChecker(reg).Check(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
