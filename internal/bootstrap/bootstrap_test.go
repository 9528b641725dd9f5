package bootstrap

import (
	"errors"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/generation"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/retrieval/ranker"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/vectorstore/memory"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/vectorstore/qdrant"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/errors"
)

func TestVectorStore(t *testing.T) {
	tests := []struct {
		typ     string
		wantErr bool
		check   func(any) bool
	}{
		{"qdrant", false, func(s any) bool { _, ok := s.(*qdrant.Store); return ok }},
		{"memory", false, func(s any) bool { _, ok := s.(*memory.Store); return ok }},
		{"pinecone", true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			s, err := VectorStore(config.VectorStoreConfig{Type: tt.typ, URL: "http://localhost:6333", Collection: "c"})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil && !tt.check(s) {
				t.Errorf("unexpected store type %T", s)
			}
		})
	}
}

func TestGenerationRejectsUnknownProvider(t *testing.T) {
	_, err := Generation(config.GenerationConfig{Provider: "cohere", Timeout: time.Second}, nil)
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
	_, err = Generation(config.GenerationConfig{Provider: "openai", Fallback: "nope", Timeout: time.Second}, nil)
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("fallback err = %v, want ErrInvalidInput", err)
	}
}

func TestRegistryHasEveryProvider(t *testing.T) {
	reg := Registry(config.GenerationConfig{})
	for _, p := range []generation.Provider{generation.ProviderOpenAI, generation.ProviderGemini, generation.ProviderOffline} {
		if _, err := reg.Get(p); err != nil {
			t.Errorf("Get(%s): %v", p, err)
		}
	}
}

func TestRankerUsesConfig(t *testing.T) {
	r := Ranker(config.RankerConfig{Mode: "line", KeywordThreshold: 4, MinLineLength: 10, MinSentenceLength: 30, MaxOutputLength: 500})
	opts := r.Options()
	if opts.Mode != ranker.ModeLine || opts.KeywordThreshold != 4 || opts.MaxOutputLength != 500 {
		t.Errorf("options = %+v", opts)
	}
}

func TestEmbedderRequiresKey(t *testing.T) {
	cfg := &config.Config{Embedding: config.EmbeddingConfig{Model: "text-embedding-3-small"}}
	if _, err := Embedder(cfg); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}
