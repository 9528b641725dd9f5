// Package ingest fills the vector store from the corpus: chunk, embed in
// batches and upsert.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/chunker"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/embedding"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/vectorstore"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/metrics"
)

type Options struct {
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
}

type Stats struct {
	Chunks    int
	Batches   int
	Dimension int
	Duration  time.Duration
}

type Pipeline struct {
	opts     Options
	embedder embedding.Embedder
	store    vectorstore.Store
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New builds a pipeline. m may be nil.
func New(opts Options, embedder embedding.Embedder, store vectorstore.Store, m *metrics.Metrics) *Pipeline {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 64
	}
	return &Pipeline{
		opts:     opts,
		embedder: embedder,
		store:    store,
		metrics:  m,
		logger:   slog.Default().With("component", "ingest"),
	}
}

// Run replaces the store's contents with the chunks of text. The store is
// reset once the first batch reveals the embedding dimension.
func (p *Pipeline) Run(ctx context.Context, text string) (Stats, error) {
	start := time.Now()
	seq, err := chunker.Split(text, p.opts.ChunkSize, p.opts.ChunkOverlap)
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	batch := make([]chunker.Chunk, 0, p.opts.BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.flush(ctx, batch, &stats); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for c := range seq {
		batch = append(batch, c)
		if len(batch) == p.opts.BatchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := flush(); err != nil {
		return stats, err
	}

	stats.Duration = time.Since(start)
	p.logger.Info("ingestion complete",
		"chunks", stats.Chunks,
		"batches", stats.Batches,
		"dimension", stats.Dimension,
		"duration_ms", stats.Duration.Milliseconds(),
	)
	return stats, nil
}

func (p *Pipeline) flush(ctx context.Context, batch []chunker.Chunk, stats *Stats) error {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}
	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding chunks %d-%d: %w", batch[0].Index, batch[len(batch)-1].Index, err)
	}

	if stats.Batches == 0 {
		stats.Dimension = len(vectors[0])
		if err := p.store.Reset(ctx, stats.Dimension); err != nil {
			return fmt.Errorf("resetting vector store: %w", err)
		}
	}

	records := make([]vectorstore.Record, len(batch))
	for i, c := range batch {
		records[i] = vectorstore.Record{Index: c.Index, Start: c.Start, End: c.End, Text: c.Text, Vector: vectors[i]}
	}
	if err := p.store.Upsert(ctx, records); err != nil {
		return fmt.Errorf("upserting chunks %d-%d: %w", batch[0].Index, batch[len(batch)-1].Index, err)
	}

	stats.Batches++
	stats.Chunks += len(batch)
	if p.metrics != nil {
		p.metrics.ChunksIngestedTotal.Add(float64(len(batch)))
	}
	p.logger.Debug("batch ingested", "batch", stats.Batches, "chunks", stats.Chunks)
	return nil
}
