package composer

import (
	"strings"
	"testing"
)

func TestComposeIncludesQuestionAndPassages(t *testing.T) {
	prompt := Compose("  Who kills Polonius? ", "HAMLET: How now! A rat? Dead, for a ducat, dead!", "", "POLONIUS: O, I am slain!")

	for _, want := range []string{
		DefaultSource,
		"HAMLET: How now! A rat?",
		"POLONIUS: O, I am slain!",
		"Question: Who kills Polonius?\nAnswer:",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if got := strings.Count(prompt, "---\n"); got != 3 {
		t.Errorf("got %d separators, want 3 (empty passage skipped)", got)
	}
}

func TestComposeWithoutPassages(t *testing.T) {
	prompt := New("The Sonnets").Compose("What is sonnet 18 about?")
	if !strings.Contains(prompt, "(no relevant excerpts found)") {
		t.Errorf("prompt should flag missing excerpts:\n%s", prompt)
	}
	if !strings.Contains(prompt, "The Sonnets") {
		t.Errorf("prompt should name the source:\n%s", prompt)
	}
}

func TestComposeIsDeterministic(t *testing.T) {
	a := Compose("q", "p1", "p2")
	b := Compose("q", "p1", "p2")
	if a != b {
		t.Error("Compose is not deterministic")
	}
}
