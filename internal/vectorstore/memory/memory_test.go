package memory

import (
	"context"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/vectorstore"
)

func TestSearchOrdersBySimilarity(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.Reset(ctx, 2); err != nil {
		t.Fatal(err)
	}
	err := s.Upsert(ctx, []vectorstore.Record{
		{Index: 0, Text: "east", Vector: []float32{1, 0}},
		{Index: 1, Text: "north", Vector: []float32{0, 1}},
		{Index: 2, Text: "north-east", Vector: []float32{0.7071, 0.7071}},
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.Search(ctx, []float32{0, 1}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Text != "north" || got[1].Text != "north-east" {
		t.Errorf("Search = %+v", got)
	}
	if n, _ := s.Count(ctx); n != 3 {
		t.Errorf("Count = %d", n)
	}
}

func TestUpsertRejectsWrongDimension(t *testing.T) {
	s := New()
	s.Reset(context.Background(), 3)
	if err := s.Upsert(context.Background(), []vectorstore.Record{{Vector: []float32{1}}}); err == nil {
		t.Error("expected dimension error")
	}
}

func TestResetClears(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Reset(ctx, 1)
	s.Upsert(ctx, []vectorstore.Record{{Vector: []float32{1}}})
	s.Reset(ctx, 1)
	if n, _ := s.Count(ctx); n != 0 {
		t.Errorf("Count after Reset = %d", n)
	}
}
