package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/bootstrap"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/qa"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/qa/cache"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/qa/handler"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/redis"
	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	warm := flag.Bool("warm", true, "load the corpus before accepting requests")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting shakespeare-qa",
		"port", cfg.Server.Port,
		"strategy", cfg.Retrieval.Strategy,
		"ranker_mode", cfg.Ranker.Mode,
		"provider", cfg.Generation.Provider,
		"fallback", cfg.Generation.Fallback,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	checker := health.NewChecker()

	gen, err := bootstrap.Generation(cfg.Generation, m)
	if err != nil {
		slog.Error("failed to build generation pipeline", "error", err)
		os.Exit(1)
	}

	deps := qa.Deps{
		Loader:    bootstrap.Loader(cfg.Corpus, m),
		Ranker:    bootstrap.Ranker(cfg.Ranker),
		Composer:  bootstrap.Composer(cfg.Corpus),
		Generator: gen,
		Metrics:   m,
	}

	if cfg.Retrieval.Strategy == string(qa.StrategyVector) {
		embedder, err := bootstrap.Embedder(cfg)
		if err != nil {
			slog.Error("vector retrieval needs embeddings", "error", err)
			os.Exit(1)
		}
		store, err := bootstrap.VectorStore(cfg.VectorStore)
		if err != nil {
			slog.Error("failed to build vector store", "error", err)
			os.Exit(1)
		}
		deps.Embedder = embedder
		deps.Vectors = store
		deps.Ingester = bootstrap.Ingest(cfg, embedder, store, m)
		slog.Info("vector retrieval enabled", "store", cfg.VectorStore.Type, "collection", cfg.VectorStore.Collection)
	}

	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, answer cache is memory only", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			checker.RegisterOptional("redis", health.PingCheck(redisClient.Ping))
		}
	}

	var answerCache *cache.Cache[qa.Answer]
	if cfg.Cache.Enabled {
		var backend cache.Backend
		if redisClient != nil {
			backend = redisClient
		}
		answerCache = cache.New[qa.Answer](cache.Options[qa.Answer]{
			Size:      cfg.Cache.Size,
			TTL:       cfg.Cache.TTL,
			Namespace: cacheNamespace(cfg),
			Cacheable: qa.Cacheable,
		}, backend, m)
		deps.Cache = answerCache
		slog.Info("answer cache enabled", "size", cfg.Cache.Size, "ttl", cfg.Cache.TTL, "redis", backend != nil)
	}

	agg := analytics.NewAggregator()
	var publisher analytics.Publisher = agg
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.QuestionEvents)
		defer producer.Close()
		publisher = producer

		if cfg.Analytics.ConsumeInProcess {
			consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.QuestionEvents, agg.HandleMessage)
			go func() {
				if err := consumer.Start(ctx); err != nil {
					slog.Error("question event consumer error", "error", err)
				}
			}()
		}
		slog.Info("analytics over kafka", "topic", cfg.Kafka.Topics.QuestionEvents, "brokers", cfg.Kafka.Brokers)
	}
	collector := analytics.NewCollector(publisher, 100, cfg.Analytics.BufferSize, 0)
	collector.Start(ctx)
	defer collector.Close()
	deps.Events = collector

	if cfg.Postgres.Enabled {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, analytics snapshots disabled", "error", err)
		} else {
			defer db.Close()
			checker.RegisterOptional("postgres", health.PingCheck(db.Ping))
			store := aggregator.NewStore(db.DB)
			if err := store.Migrate(ctx); err != nil {
				slog.Error("analytics migration failed", "error", err)
			} else {
				if snap, err := store.LatestSnapshot(ctx); err != nil {
					slog.Warn("could not restore analytics snapshot", "error", err)
				} else if snap != nil {
					agg.Restore(*snap)
					slog.Info("analytics restored", "total_questions", snap.TotalQuestions)
				}
				store.StartPeriodicSave(ctx, agg, cfg.Analytics.SnapshotInterval)
			}
		}
	}

	svc, err := qa.New(qa.Options{
		Strategy:               qa.Strategy(cfg.Retrieval.Strategy),
		TopK:                   cfg.Retrieval.TopK,
		SentenceFallbackLength: cfg.Ranker.SentenceFallbackLength,
		Tracing:                cfg.Tracing.Enabled,
	}, deps)
	if err != nil {
		slog.Error("failed to build qa service", "error", err)
		os.Exit(1)
	}
	checker.Register("corpus", health.PingCheck(svc.Ready))

	if *warm {
		if err := svc.Warm(ctx); err != nil {
			slog.Warn("corpus not loaded at startup, will retry on first question",
				"error", err,
				"hint", apperrors.Hint(err),
			)
		}
	}

	h := handler.New(svc, cacheAdmin(answerCache), analytics.NewHandler(agg))

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	mws := []func(http.Handler) http.Handler{
		middleware.CORS(cfg.Server.CORSOrigins),
		middleware.RequestID,
		middleware.Timeout(cfg.Server.RequestTimeout),
	}
	if m != nil {
		mws = append(mws, middleware.Metrics(m))
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.Chain(mux, mws...),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("shakespeare-qa listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("shakespeare-qa stopped")
}

// cacheNamespace changes whenever a setting that shapes answers changes.
func cacheNamespace(cfg *config.Config) string {
	return strings.Join([]string{
		cfg.Retrieval.Strategy,
		cfg.Ranker.Mode,
		cfg.Generation.Provider,
		cfg.Generation.Fallback,
		cfg.Generation.OpenAI.Model,
		cfg.Generation.Gemini.Model,
	}, "|")
}

// cacheAdmin avoids handing the handler a typed nil.
func cacheAdmin(c *cache.Cache[qa.Answer]) handler.AnswerCache {
	if c == nil {
		return nil
	}
	return c
}
