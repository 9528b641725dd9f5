package tokenizer

import (
	"slices"
	"testing"
)

func TestKeywords(t *testing.T) {
	tests := []struct {
		name      string
		question  string
		threshold int
		want      []string
	}{
		{"hamlet example", "What does Hamlet say about death?", 3, []string{"what", "does", "hamlet", "about", "death"}},
		{"threshold two", "Who is Lear's fool?", 2, []string{"who", "lear's", "fool"}},
		{"dedupe keeps first", "Romeo, Romeo! wherefore art thou Romeo?", 3, []string{"romeo", "wherefore", "thou"}},
		{"all short words", "is it a or to be", 3, []string{}},
		{"empty", "", 3, []string{}},
		{"only punctuation", "?? !! ...", 0, []string{}},
		{"unicode length counts runes", "Ophélie née", 3, []string{"ophélie"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Keywords(tt.question, tt.threshold)
			if !slices.Equal(got, tt.want) {
				t.Errorf("Keywords(%q, %d) = %q, want %q", tt.question, tt.threshold, got, tt.want)
			}
		})
	}
}
