// Package bootstrap builds the components shared by cmd/server and cmd/ingest
// from configuration.
package bootstrap

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/composer"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/embedding"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/generation"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/generation/offline"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/generation/openai"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/ingest"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/retrieval/ranker"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/vectorstore"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/vectorstore/memory"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/vectorstore/qdrant"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/metrics"
)

func Loader(cfg config.CorpusConfig, m *metrics.Metrics) *corpus.Loader {
	return corpus.NewLoader(corpus.Options{
		Name:         cfg.Name,
		URL:          cfg.URL,
		CachePath:    cfg.CachePath,
		SeedPath:     cfg.SeedPath,
		StartMarkers: cfg.StartMarkers,
	}, corpus.FileStore{}, corpus.NewHTTPFetcher(cfg.FetchTimeout), m)
}

func Ranker(cfg config.RankerConfig) *ranker.Ranker {
	return ranker.New(ranker.Options{
		Mode:              ranker.Mode(cfg.Mode),
		KeywordThreshold:  cfg.KeywordThreshold,
		MinLineLength:     cfg.MinLineLength,
		MinSentenceLength: cfg.MinSentenceLength,
		MaxOutputLength:   cfg.MaxOutputLength,
	})
}

func Composer(cfg config.CorpusConfig) *composer.Composer {
	return composer.New(cfg.Name)
}

// Registry registers every provider; missing credentials surface when a
// provider is first called.
func Registry(cfg config.GenerationConfig) *generation.Registry {
	return generation.NewRegistry(
		openai.New(generation.ProviderOpenAI, cfg.OpenAI),
		openai.New(generation.ProviderGemini, cfg.Gemini),
		offline.New(),
	)
}

// Generation builds the primary/fallback pipeline named in cfg.
func Generation(cfg config.GenerationConfig, m *metrics.Metrics) (*generation.Pipeline, error) {
	primary, err := generation.ParseProvider(cfg.Provider)
	if err != nil {
		return nil, err
	}
	var fallback generation.Provider
	if cfg.Fallback != "" {
		if fallback, err = generation.ParseProvider(cfg.Fallback); err != nil {
			return nil, err
		}
	}
	return generation.NewPipeline(Registry(cfg), primary, fallback, cfg.Timeout, m)
}

// Embedder uses the OpenAI credentials of the generation config.
func Embedder(cfg *config.Config) (*embedding.OpenAI, error) {
	return embedding.NewOpenAI(
		cfg.Generation.OpenAI.APIKey,
		cfg.Generation.OpenAI.BaseURL,
		cfg.Embedding.Model,
		cfg.Embedding.BatchSize,
	)
}

func VectorStore(cfg config.VectorStoreConfig) (vectorstore.Store, error) {
	switch cfg.Type {
	case "qdrant":
		return qdrant.New(qdrant.Config{
			URL:        cfg.URL,
			APIKey:     cfg.APIKey,
			Collection: cfg.Collection,
			Timeout:    cfg.Timeout,
		}), nil
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown vector store type %q", cfg.Type)
	}
}

func Ingest(cfg *config.Config, embedder embedding.Embedder, store vectorstore.Store, m *metrics.Metrics) *ingest.Pipeline {
	return ingest.New(ingest.Options{
		ChunkSize:    cfg.Chunker.Size,
		ChunkOverlap: cfg.Chunker.Overlap,
		BatchSize:    cfg.Embedding.BatchSize,
	}, embedder, store, m)
}
