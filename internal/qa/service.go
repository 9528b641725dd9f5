// Package qa answers questions about the corpus. Service is the context object
// handed to the HTTP layer: it owns the lazily loaded corpus and vector
// handle, runs retrieval and generation, and reports every question to
// metrics and analytics.
package qa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/composer"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/embedding"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/generation"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/ingest"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/qa/cache"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/retrieval/ranker"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/retrieval/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/vectorstore"
	apperrors "github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/tracing"
	"golang.org/x/sync/singleflight"
)

// Strategy selects how passages are retrieved.
type Strategy string

const (
	StrategyKeyword Strategy = "keyword"
	StrategyVector  Strategy = "vector"
)

// ModeVector is reported as the retrieval mode of vector-store answers.
const ModeVector = "vector"

// Answer is a generated answer with its provenance.
type Answer struct {
	Text              string   `json:"answer"`
	Source            string   `json:"source"`
	Provider          string   `json:"provider"`
	Model             string   `json:"model,omitempty"`
	Mode              string   `json:"mode"`
	Fallback          bool     `json:"fallback"`
	RetrievalFallback bool     `json:"retrieval_fallback"`
	Cached            bool     `json:"cached"`
	Keywords          []string `json:"keywords"`
}

// CorpusLoader resolves the corpus. *corpus.Loader satisfies it.
type CorpusLoader interface {
	Load(ctx context.Context) (*corpus.Corpus, error)
}

// AnswerGenerator produces text for a prompt. *generation.Pipeline satisfies it.
type AnswerGenerator interface {
	Generate(ctx context.Context, req generation.Request) (generation.Result, error)
}

// Ingester fills the vector store from corpus text. *ingest.Pipeline satisfies it.
type Ingester interface {
	Run(ctx context.Context, text string) (ingest.Stats, error)
}

// EventTracker receives one event per question. *analytics.Collector satisfies it.
type EventTracker interface {
	Track(event analytics.QuestionEvent)
}

// Options tunes retrieval. SentenceFallbackLength caps the whole-corpus
// excerpt used when sentence ranking selects nothing; 0 means no cap.
type Options struct {
	Strategy               Strategy
	TopK                   int
	SentenceFallbackLength int
	Tracing                bool
}

// Deps are the collaborators of a Service. Loader, Ranker and Generator are
// required; Embedder and Vectors are required for the vector strategy;
// everything else may be nil.
type Deps struct {
	Loader    CorpusLoader
	Ranker    *ranker.Ranker
	Composer  *composer.Composer
	Generator AnswerGenerator
	Embedder  embedding.Embedder
	Vectors   vectorstore.Store
	Ingester  Ingester
	Cache     *cache.Cache[Answer]
	Events    EventTracker
	Metrics   *metrics.Metrics
}

type corpusState struct {
	corpus   *corpus.Corpus
	prepared *ranker.Prepared
}

type vectorHandle struct {
	store   vectorstore.Store
	records int
}

type Service struct {
	opts Options
	deps Deps

	corpus  atomic.Pointer[corpusState]
	vectors atomic.Pointer[vectorHandle]
	group   singleflight.Group

	logger *slog.Logger
}

func New(opts Options, deps Deps) (*Service, error) {
	if deps.Loader == nil || deps.Ranker == nil || deps.Generator == nil {
		return nil, apperrors.New(apperrors.ErrInternal, 0, "qa service requires a loader, a ranker and a generator")
	}
	if opts.Strategy == "" {
		opts.Strategy = StrategyKeyword
	}
	if opts.Strategy == StrategyVector && (deps.Embedder == nil || deps.Vectors == nil) {
		return nil, apperrors.New(apperrors.ErrInternal, 0, "vector strategy requires an embedder and a vector store").
			WithHint("configure embedding credentials and a vector store, or set retrieval.strategy to keyword")
	}
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if deps.Composer == nil {
		deps.Composer = composer.New("")
	}
	return &Service{
		opts:   opts,
		deps:   deps,
		logger: slog.Default().With("component", "qa"),
	}, nil
}

// Answer validates question, retrieves passages, generates an answer and
// records the outcome. Work continues if the caller's context is cancelled.
func (s *Service) Answer(ctx context.Context, question string) (Answer, error) {
	start := time.Now()
	question = strings.TrimSpace(question)
	if question == "" {
		s.observe("invalid", "", 0)
		return Answer{}, apperrors.New(apperrors.ErrInvalidInput, 0, "question is required").
			WithHint(`send a JSON body like {"question": "Who is Hamlet?"}`)
	}

	requestID := logger.RequestID(ctx)
	ctx = context.WithoutCancel(ctx)
	if s.opts.Tracing {
		var root *tracing.Span
		ctx, root = tracing.StartSpan(ctx, "qa.answer", requestID)
		defer root.End()
	}

	var (
		ans    Answer
		cached bool
		err    error
	)
	if s.deps.Cache != nil {
		ans, cached, err = s.deps.Cache.GetOrCompute(ctx, question, func(ctx context.Context) (Answer, error) {
			return s.answer(ctx, question)
		})
	} else {
		ans, err = s.answer(ctx, question)
	}
	latency := time.Since(start)

	if err != nil {
		logger.FromContext(ctx).Error("question failed", "question", question, "error", err)
		s.observe("error", "miss", latency)
		s.track(analytics.QuestionEvent{
			Question:  question,
			Keywords:  tokenizer.Keywords(question, s.deps.Ranker.Options().KeywordThreshold),
			Strategy:  string(s.opts.Strategy),
			Failed:    true,
			Error:     err.Error(),
			LatencyMs: latency.Milliseconds(),
			Timestamp: time.Now().UTC(),
			RequestID: requestID,
		})
		return Answer{}, err
	}

	ans.Cached = cached
	outcome, cacheStatus := "answered", "miss"
	if ans.Fallback {
		outcome = "fallback"
	}
	if cached {
		cacheStatus = "hit"
	}
	s.observe(outcome, cacheStatus, latency)

	logger.FromContext(ctx).Info("question answered",
		"provider", ans.Provider,
		"mode", ans.Mode,
		"fallback", ans.Fallback,
		"retrieval_fallback", ans.RetrievalFallback,
		"cached", cached,
		"latency_ms", latency.Milliseconds(),
	)
	s.track(analytics.QuestionEvent{
		Question:           question,
		Keywords:           ans.Keywords,
		Strategy:           string(s.opts.Strategy),
		Mode:               ans.Mode,
		Provider:           ans.Provider,
		Model:              ans.Model,
		RetrievalFallback:  ans.RetrievalFallback,
		GenerationFallback: ans.Fallback,
		Cached:             cached,
		LatencyMs:          latency.Milliseconds(),
		Timestamp:          time.Now().UTC(),
		RequestID:          requestID,
	})
	return ans, nil
}

func (s *Service) answer(ctx context.Context, question string) (Answer, error) {
	st, err := s.loadCorpus(ctx)
	if err != nil {
		return Answer{}, err
	}

	passages, ret, err := s.retrieve(ctx, question, st)
	if err != nil {
		return Answer{}, err
	}

	prompt := s.deps.Composer.Compose(question, passages...)
	res, err := s.deps.Generator.Generate(ctx, generation.Request{Question: question, Prompt: prompt})
	if err != nil {
		return Answer{}, err
	}

	return Answer{
		Text:              res.Text,
		Source:            st.corpus.Name,
		Provider:          string(res.Provider),
		Model:             res.Model,
		Mode:              ret.mode,
		Fallback:          res.Fallback,
		RetrievalFallback: ret.fallback,
		Keywords:          ret.keywords,
	}, nil
}

type retrieval struct {
	mode     string
	keywords []string
	fallback bool
}

func (s *Service) retrieve(ctx context.Context, question string, st *corpusState) ([]string, retrieval, error) {
	ctx, span := tracing.StartChildSpan(ctx, "qa.retrieve")
	defer span.End()
	span.SetAttr("strategy", string(s.opts.Strategy))

	vectorMissed := false
	if s.opts.Strategy == StrategyVector {
		passages, err := s.searchVectors(ctx, question)
		if err == nil && len(passages) > 0 {
			return passages, retrieval{
				mode:     ModeVector,
				keywords: tokenizer.Keywords(question, s.deps.Ranker.Options().KeywordThreshold),
			}, nil
		}
		s.logger.Warn("vector retrieval unavailable, using keyword ranker", "matches", len(passages), "error", err)
		s.retrievalFallback(ModeVector)
		vectorMissed = true
	}

	res := s.deps.Ranker.RankPrepared(question, st.prepared)
	span.SetAttr("mode", string(res.Mode))
	span.SetAttr("fragments", len(res.Fragments))
	ret := retrieval{mode: string(res.Mode), keywords: res.Keywords, fallback: vectorMissed || res.Fallback}
	if !res.Fallback {
		return []string{res.Text}, ret, nil
	}

	s.retrievalFallback(string(res.Mode))
	text := res.Text
	if res.Mode == ranker.ModeSentence {
		text = headRunes(st.corpus.Text, s.opts.SentenceFallbackLength)
	}
	return []string{text}, ret, nil
}

func (s *Service) searchVectors(ctx context.Context, question string) ([]string, error) {
	h, err := s.loadVectors(ctx)
	if err != nil {
		return nil, err
	}
	vecs, err := s.deps.Embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}
	if len(vecs) == 0 {
		return nil, nil
	}
	matches, err := h.store.Search(ctx, vecs[0], s.opts.TopK)
	if err != nil {
		return nil, fmt.Errorf("searching vectors: %w", err)
	}
	passages := make([]string, 0, len(matches))
	for _, m := range matches {
		passages = append(passages, m.Text)
	}
	return passages, nil
}

// loadCorpus returns the shared corpus, loading it on first use. Concurrent
// first calls share one load; a failed load is not remembered.
func (s *Service) loadCorpus(ctx context.Context) (*corpusState, error) {
	if st := s.corpus.Load(); st != nil {
		return st, nil
	}
	v, err, _ := s.group.Do("corpus", func() (any, error) {
		if st := s.corpus.Load(); st != nil {
			return st, nil
		}
		c, err := s.deps.Loader.Load(ctx)
		if err != nil {
			return nil, err
		}
		st := &corpusState{corpus: c, prepared: s.deps.Ranker.Prepare(c.Text)}
		if !s.corpus.CompareAndSwap(nil, st) {
			return s.corpus.Load(), nil
		}
		s.logger.Info("corpus ready",
			"source", c.Source,
			"chars", c.Len(),
			"units", st.prepared.Len(),
		)
		return st, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*corpusState), nil
}

// loadVectors returns the vector handle, ingesting the corpus first when the
// store is empty and an ingester is configured.
func (s *Service) loadVectors(ctx context.Context) (*vectorHandle, error) {
	if h := s.vectors.Load(); h != nil {
		return h, nil
	}
	v, err, _ := s.group.Do("vectors", func() (any, error) {
		if h := s.vectors.Load(); h != nil {
			return h, nil
		}
		n, err := s.deps.Vectors.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("counting vectors: %w", err)
		}
		if n == 0 && s.deps.Ingester != nil {
			st, err := s.loadCorpus(ctx)
			if err != nil {
				return nil, err
			}
			stats, err := s.deps.Ingester.Run(ctx, st.corpus.Text)
			if err != nil {
				return nil, fmt.Errorf("ingesting corpus: %w", err)
			}
			n = stats.Chunks
		}
		if n == 0 {
			return nil, apperrors.New(apperrors.ErrDataUnavailable, 0, "vector store is empty").
				WithHint("run cmd/ingest to populate the vector store")
		}
		h := &vectorHandle{store: s.deps.Vectors, records: n}
		if !s.vectors.CompareAndSwap(nil, h) {
			return s.vectors.Load(), nil
		}
		s.logger.Info("vector store ready", "records", n)
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*vectorHandle), nil
}

// Warm loads the corpus ahead of the first question.
func (s *Service) Warm(ctx context.Context) error {
	_, err := s.loadCorpus(ctx)
	return err
}

// Ready reports whether the corpus has been loaded.
func (s *Service) Ready(context.Context) error {
	if s.corpus.Load() == nil {
		return errors.New("corpus not loaded yet")
	}
	return nil
}

func (s *Service) observe(outcome, cacheStatus string, latency time.Duration) {
	if s.deps.Metrics == nil {
		return
	}
	s.deps.Metrics.QuestionsTotal.WithLabelValues(outcome).Inc()
	if cacheStatus != "" {
		s.deps.Metrics.AnswerLatency.WithLabelValues(cacheStatus).Observe(latency.Seconds())
	}
}

func (s *Service) retrievalFallback(mode string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.RetrievalFallbacks.WithLabelValues(mode).Inc()
	}
}

func (s *Service) track(e analytics.QuestionEvent) {
	if s.deps.Events != nil {
		s.deps.Events.Track(e)
	}
}

// headRunes returns the first n characters of text, or all of it when n <= 0.
func headRunes(text string, n int) string {
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	return string([]rune(text)[:n])
}

// Cacheable reports whether an answer may be cached. Answers from the
// fallback generator are not, so a recovered primary is used next time.
func Cacheable(a Answer) bool {
	return !a.Fallback
}
