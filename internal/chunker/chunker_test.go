package chunker

import (
	"errors"
	"strings"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/errors"
)

func TestChunkRejectsInvalidParams(t *testing.T) {
	for _, tc := range []struct{ size, overlap int }{
		{10, 10}, {10, 11}, {0, 0}, {5, -1},
	} {
		if _, err := Split("text", tc.size, tc.overlap); !errors.Is(err, apperrors.ErrInvalidInput) {
			t.Errorf("Split(size=%d, overlap=%d) err = %v, want ErrInvalidInput", tc.size, tc.overlap, err)
		}
	}
}

func TestChunkWindows(t *testing.T) {
	seq, err := Split("abcdefghij", 4, 1)
	if err != nil {
		t.Fatal(err)
	}
	got := Collect(seq)
	want := []string{"abcd", "defg", "ghij"}
	if len(got) != len(want) {
		t.Fatalf("got %d chunks, want %d: %+v", len(got), len(want), got)
	}
	for i, c := range got {
		if c.Text != want[i] || c.Index != i {
			t.Errorf("chunk %d = %+v, want text %q", i, c, want[i])
		}
	}
}

func TestChunkEmptyAndShort(t *testing.T) {
	seq, _ := Split("", 10, 2)
	if got := Collect(seq); len(got) != 0 {
		t.Errorf("empty text produced %d chunks", len(got))
	}
	seq, _ = Split("short", 10, 2)
	got := Collect(seq)
	if len(got) != 1 || got[0].Text != "short" {
		t.Errorf("short text produced %+v", got)
	}
}

func TestChunkOverlapAndCoverage(t *testing.T) {
	texts := []string{
		strings.Repeat("To be, or not to be: that is the question. ", 50),
		"Ophélie, ô belle — ",
		"abcdefghijklmnopqrstuvwxyz",
	}
	params := []struct{ size, overlap int }{{7, 0}, {7, 3}, {10, 9}, {1000, 200}, {3, 1}}

	for _, text := range texts {
		runes := []rune(text)
		for _, p := range params {
			seq, err := Split(text, p.size, p.overlap)
			if err != nil {
				t.Fatal(err)
			}
			chunks := Collect(seq)

			var rebuilt strings.Builder
			for i, c := range chunks {
				cr := []rune(c.Text)
				if i < len(chunks)-1 && len(cr) != p.size {
					t.Errorf("size=%d overlap=%d: chunk %d has %d runes", p.size, p.overlap, i, len(cr))
				}
				if string(runes[c.Start:c.End]) != c.Text {
					t.Errorf("chunk %d offsets [%d,%d) do not match text", i, c.Start, c.End)
				}
				if i == 0 {
					rebuilt.WriteString(c.Text)
					continue
				}
				prev := []rune(chunks[i-1].Text)
				if string(prev[len(prev)-p.overlap:]) != string(cr[:p.overlap]) {
					t.Errorf("size=%d overlap=%d: chunks %d and %d do not share %d runes", p.size, p.overlap, i-1, i, p.overlap)
				}
				rebuilt.WriteString(string(cr[p.overlap:]))
			}
			if rebuilt.String() != text {
				t.Errorf("size=%d overlap=%d: reconstruction mismatch", p.size, p.overlap)
			}
		}
	}
}

func TestChunkRestartable(t *testing.T) {
	seq, err := Split("the quick brown fox jumps", 6, 2)
	if err != nil {
		t.Fatal(err)
	}
	first := Collect(seq)
	second := Collect(seq)
	if len(first) != len(second) {
		t.Fatalf("restart produced %d chunks, first pass %d", len(second), len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs on restart: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestChunkEarlyStop(t *testing.T) {
	seq, _ := Split(strings.Repeat("x", 100), 10, 0)
	n := 0
	for range seq {
		n++
		if n == 3 {
			break
		}
	}
	if n != 3 {
		t.Errorf("consumed %d chunks, want 3", n)
	}
}
