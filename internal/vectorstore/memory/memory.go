// Package memory is an in-process vector store using brute-force cosine
// similarity over unit-length vectors.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/vectorstore"
	apperrors "github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/errors"
)

type Store struct {
	mu        sync.RWMutex
	dimension int
	records   []vectorstore.Record
}

func New() *Store {
	return &Store{}
}

func (s *Store) Reset(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return apperrors.Newf(apperrors.ErrInvalidInput, 0, "invalid dimension %d", dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.records = nil
	return nil
}

func (s *Store) Upsert(_ context.Context, records []vectorstore.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		if len(r.Vector) != s.dimension {
			return apperrors.Newf(apperrors.ErrInvalidInput, 0,
				"record %d has dimension %d, store expects %d", r.Index, len(r.Vector), s.dimension)
		}
	}
	s.records = append(s.records, records...)
	return nil
}

// Search returns the k records with the highest dot product with vector,
// ties broken by chunk index.
func (s *Store) Search(_ context.Context, vector []float32, k int) ([]vectorstore.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]vectorstore.Match, len(s.records))
	for i, r := range s.records {
		matches[i] = vectorstore.Match{Index: r.Index, Text: r.Text, Score: dot(r.Vector, vector)}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Index < matches[j].Index
	})
	if k > 0 && k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

func (s *Store) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func dot(a, b []float32) float64 {
	n := min(len(a), len(b))
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

var _ vectorstore.Store = (*Store)(nil)
