package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/bootstrap"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/logger"
	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	refresh := flag.Bool("refresh", false, "download the corpus again and rewrite the local cache")
	corpusOnly := flag.Bool("corpus-only", false, "load and cache the corpus without embedding it")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *refresh, *corpusOnly); err != nil {
		slog.Error("ingestion failed", "error", err, "hint", apperrors.Hint(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, refresh, corpusOnly bool) error {
	loader := bootstrap.Loader(cfg.Corpus, nil)

	var (
		c   *corpus.Corpus
		err error
	)
	if refresh {
		c, err = loader.Refresh(ctx)
	} else {
		c, err = loader.Load(ctx)
	}
	if err != nil {
		return err
	}
	slog.Info("corpus loaded", "source", c.Source, "origin", c.Origin, "chars", c.Len())
	if corpusOnly {
		return nil
	}

	if cfg.VectorStore.Type == "memory" {
		return fmt.Errorf("vectorStore.type memory is per-process; ingest into qdrant or let the server ingest on first use")
	}
	embedder, err := bootstrap.Embedder(cfg)
	if err != nil {
		return err
	}
	store, err := bootstrap.VectorStore(cfg.VectorStore)
	if err != nil {
		return err
	}

	stats, err := bootstrap.Ingest(cfg, embedder, store, nil).Run(ctx, c.Text)
	if err != nil {
		return err
	}
	slog.Info("ingestion complete",
		"collection", cfg.VectorStore.Collection,
		"chunks", stats.Chunks,
		"batches", stats.Batches,
		"dimension", stats.Dimension,
		"duration", stats.Duration,
	)
	return nil
}
