// Package chunker splits text into fixed-size windows that overlap their
// neighbour, for embedding into the vector store.
package chunker

import (
	"iter"

	apperrors "github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/errors"
)

// Chunk is one window. Start and End are rune offsets into the source text,
// End exclusive.
type Chunk struct {
	Index int
	Start int
	End   int
	Text  string
}

// Split returns a lazy sequence of windows of size runes, each starting
// size-overlap runes after the previous one. The last window may be shorter
// and ends exactly at the end of text. Ranging over the sequence again
// restarts it. size > overlap >= 0 is required.
func Split(text string, size, overlap int) (iter.Seq[Chunk], error) {
	if overlap < 0 || size <= overlap {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, 0,
			"chunk size must exceed overlap >= 0 (size=%d overlap=%d)", size, overlap)
	}
	step := size - overlap

	return func(yield func(Chunk) bool) {
		runes := []rune(text)
		for i, start := 0, 0; start < len(runes); i, start = i+1, start+step {
			end := min(start+size, len(runes))
			if !yield(Chunk{Index: i, Start: start, End: end, Text: string(runes[start:end])}) {
				return
			}
			if end == len(runes) {
				return
			}
		}
	}, nil
}

// Collect drains a chunk sequence into a slice.
func Collect(seq iter.Seq[Chunk]) []Chunk {
	var chunks []Chunk
	for c := range seq {
		chunks = append(chunks, c)
	}
	return chunks
}
