// Package vectorstore defines the similarity-search boundary used by the
// vector retrieval path. Implementations live in the qdrant and memory
// subpackages.
package vectorstore

import "context"

// Record is one embedded chunk. Index is the chunk's ordinal in the corpus.
type Record struct {
	Index  int
	Start  int
	End    int
	Text   string
	Vector []float32
}

// Match is a search hit, best first.
type Match struct {
	Index int
	Text  string
	Score float64
}

type Store interface {
	// Reset drops any existing data and prepares for vectors of dimension.
	Reset(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, records []Record) error
	Search(ctx context.Context, vector []float32, k int) ([]Match, error)
	// Count reports the number of stored records; a missing collection is 0.
	Count(ctx context.Context) (int, error)
}
