package phonetic_test

import (
	"testing"

	"github.com/intervox-ai/intervox/internal/transcript/phonetic"
)

func TestMatchSingleKeyword(t *testing.T) {
	m := phonetic.New([]string{"Kubernetes", "PostgreSQL", "Terraform"})

	corrected, conf, matched := m.Match("cubernetes")
	if !matched {
		t.Fatalf("Match(%q): matched=false, want true", "cubernetes")
	}
	if corrected != "Kubernetes" {
		t.Errorf("corrected = %q, want Kubernetes", corrected)
	}
	if conf < 0.7 {
		t.Errorf("confidence = %f, want >= 0.7", conf)
	}
}

func TestMatchMultiWordKeyword(t *testing.T) {
	m := phonetic.New([]string{"machine learning", "Kubernetes"})

	corrected, _, matched := m.Match("machine lerning")
	if !matched {
		t.Fatalf("Match(%q): matched=false, want true", "machine lerning")
	}
	if corrected != "machine learning" {
		t.Errorf("corrected = %q, want machine learning", corrected)
	}
	if m.MaxTokens() != 2 {
		t.Errorf("MaxTokens() = %d, want 2", m.MaxTokens())
	}
}

func TestMatchRejectsUnrelatedWord(t *testing.T) {
	m := phonetic.New([]string{"Kubernetes", "PostgreSQL"})

	if corrected, _, matched := m.Match("breakfast"); matched {
		t.Fatalf("Match(%q) matched %q, want no match", "breakfast", corrected)
	}
}

func TestMatchUnchangedOnMiss(t *testing.T) {
	m := phonetic.New([]string{"Terraform"})

	corrected, conf, matched := m.Match("hello")
	if matched {
		t.Fatal("unexpected match")
	}
	if corrected != "hello" || conf != 0 {
		t.Errorf("miss returned (%q, %f), want input unchanged with 0 confidence", corrected, conf)
	}
}

func TestMatchEmptyInputs(t *testing.T) {
	m := phonetic.New(nil)
	if _, _, matched := m.Match("anything"); matched {
		t.Fatal("matched with empty keyword list")
	}

	m = phonetic.New([]string{"Go"})
	if _, _, matched := m.Match("   "); matched {
		t.Fatal("matched blank input")
	}
}

func TestMatchPreservesCanonicalSpelling(t *testing.T) {
	m := phonetic.New([]string{"PostgreSQL"})
	corrected, _, matched := m.Match("postgresql")
	if !matched {
		t.Fatal("exact lowercase spelling did not match")
	}
	if corrected != "PostgreSQL" {
		t.Errorf("corrected = %q, want canonical PostgreSQL", corrected)
	}
}

func TestThresholdOptions(t *testing.T) {
	strict := phonetic.New([]string{"Kubernetes"}, phonetic.WithPhoneticThreshold(0.99))
	if corrected, _, matched := strict.Match("cubernetes"); matched {
		t.Fatalf("strict matcher accepted %q", corrected)
	}
}
