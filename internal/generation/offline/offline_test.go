package offline

import (
	"context"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/generation"
)

func TestLookupByTitle(t *testing.T) {
	kb := New()
	tests := []struct {
		question string
		want     string
	}{
		{"What does Hamlet say about death?", "Hamlet, Prince of Denmark"},
		{"Why does IAGO hate the Moor?", "Othello, a Moorish general"},
		{"Tell me about King Lear", "King Lear divides his kingdom"},
		{"Who is Juliet?", "Romeo and Juliet are young lovers"},
		{"What is Lear's madness?", "King Lear divides his kingdom"},
		{"Where can I learn about the sonnets?", "Shakespeare's 154 sonnets"},
		{"Does Iago violate Othello's trust?", "Othello, a Moorish general"},
		{"Is it clear why Viola disguises herself?", "Twelfth Night follows"},
	}
	for _, tt := range tests {
		if got := kb.Lookup(tt.question); !strings.HasPrefix(got, tt.want) {
			t.Errorf("Lookup(%q) = %q, want prefix %q", tt.question, got, tt.want)
		}
	}
}

func TestLookupIgnoresTitlesInsideWords(t *testing.T) {
	kb := New()
	for _, q := range []string{"How do I learn to read verse?", "Is nuclear an old word?", "What did the actors violate?"} {
		if got := kb.Lookup(q); !strings.Contains(got, "something about Shakespeare") {
			t.Errorf("Lookup(%q) = %q, want trivia", q, got)
		}
	}
}

func TestLookupFallsBackToTrivia(t *testing.T) {
	kb := New()
	got := kb.Lookup("When was the Globe built?")
	if !strings.Contains(got, "something about Shakespeare") {
		t.Errorf("Lookup = %q, want trivia", got)
	}
	if again := kb.Lookup("When was the Globe built?"); again != got {
		t.Error("trivia choice is not deterministic")
	}
}

func TestGenerateNeverFails(t *testing.T) {
	resp, err := New().Generate(context.Background(), generation.Request{Question: ""})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Provider != generation.ProviderOffline || resp.Text == "" {
		t.Errorf("resp = %+v", resp)
	}
}
