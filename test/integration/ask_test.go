// Package integration wires the real corpus loader, ranker, generation
// pipeline, answer cache, analytics and HTTP handler together behind an
// httptest server. The remote corpus and the chat provider are faked.
//
// Run with:
//
//	go test -v ./test/integration/...
package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/generation"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/generation/offline"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/generation/openai"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/qa"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/qa/cache"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/qa/handler"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/retrieval/ranker"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	goopenai "github.com/sashabaranov/go-openai"
)

const rawCorpus = "The Project Gutenberg eBook of Shakespeare\r\n\r\n\r\n" +
	"THE SONNETS\r\n\r\n" +
	"From fairest creatures we desire increase, that thereby beauty's rose might never die. " +
	"[Enter HAMLET] Hamlet, Prince of Denmark, speaks with his father's ghost upon the platform at Elsinore. " +
	"The weird sisters greet Macbeth upon the blasted heath and promise him the crown of Scotland.\r\n"

type chatStub struct {
	calls atomic.Int32
	err   error
}

func (c *chatStub) CreateChatCompletion(_ context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error) {
	c.calls.Add(1)
	if c.err != nil {
		return goopenai.ChatCompletionResponse{}, c.err
	}
	return goopenai.ChatCompletionResponse{
		Model: req.Model,
		Choices: []goopenai.ChatCompletionChoice{
			{Message: goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleAssistant, Content: "He is the Prince of Denmark."}},
		},
	}, nil
}

type stack struct {
	server     *httptest.Server
	chat       *chatStub
	aggregator *analytics.Aggregator
	collector  *analytics.Collector
	remoteHits *atomic.Int32
	cachePath  string
}

func newStack(t *testing.T, chatErr error) *stack {
	t.Helper()

	var remoteHits atomic.Int32
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remoteHits.Add(1)
		w.Write([]byte(rawCorpus))
	}))
	t.Cleanup(remote.Close)

	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	cachePath := filepath.Join(t.TempDir(), "shakespeare.txt")
	loader := corpus.NewLoader(corpus.Options{
		Name:      "Test Works",
		URL:       remote.URL,
		CachePath: cachePath,
	}, corpus.FileStore{}, corpus.NewHTTPFetcher(5*time.Second), m)

	chat := &chatStub{err: chatErr}
	reg := generation.NewRegistry(
		openai.NewWithAPI(generation.ProviderOpenAI, config.ProviderConfig{APIKey: "test", Model: "gpt-test"}, chat),
		offline.New(),
	)
	pipeline, err := generation.NewPipeline(reg, generation.ProviderOpenAI, generation.ProviderOffline, 5*time.Second, m)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	agg := analytics.NewAggregator()
	collector := analytics.NewCollector(agg, 100, 1000, time.Hour)
	answerCache := cache.New[qa.Answer](cache.Options[qa.Answer]{
		Size:      16,
		TTL:       time.Minute,
		Namespace: "integration",
		Cacheable: qa.Cacheable,
	}, nil, m)

	svc, err := qa.New(qa.Options{SentenceFallbackLength: 200}, qa.Deps{
		Loader:    loader,
		Ranker:    ranker.New(ranker.DefaultOptions()),
		Generator: pipeline,
		Cache:     answerCache,
		Events:    collector,
		Metrics:   m,
	})
	if err != nil {
		t.Fatalf("qa.New: %v", err)
	}

	checker := health.NewChecker()
	checker.Register("corpus", health.PingCheck(svc.Ready))

	mux := http.NewServeMux()
	handler.New(svc, answerCache, analytics.NewHandler(agg)).Register(mux)
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	srv := httptest.NewServer(middleware.Chain(mux,
		middleware.RequestID,
		middleware.Timeout(10*time.Second),
		middleware.Metrics(m),
	))
	t.Cleanup(srv.Close)

	return &stack{
		server:     srv,
		chat:       chat,
		aggregator: agg,
		collector:  collector,
		remoteHits: &remoteHits,
		cachePath:  cachePath,
	}
}

func (s *stack) ask(t *testing.T, question string) (int, map[string]any, http.Header) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"question": question})
	resp, err := http.Post(s.server.URL+"/api/v1/ask", "application/json", strings.NewReader(string(body)))
	if err != nil {
		t.Fatalf("ask request failed: %v", err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding ask response: %v", err)
	}
	return resp.StatusCode, out, resp.Header
}

func TestAskEndToEnd(t *testing.T) {
	s := newStack(t, nil)

	resp, err := http.Get(s.server.URL + "/health/ready")
	if err != nil {
		t.Fatalf("ready request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("ready before first question = %d, want 503", resp.StatusCode)
	}

	status, body, header := s.ask(t, "Who is Hamlet?")
	if status != http.StatusOK {
		t.Fatalf("status = %d, body = %v", status, body)
	}
	if body["provider"] != "openai" || body["fallback"] != false || body["source"] != "Test Works" {
		t.Errorf("body = %v", body)
	}
	if header.Get(middleware.RequestIDHeader) == "" {
		t.Error("missing request id header")
	}

	status, body, _ = s.ask(t, "who is HAMLET?")
	if status != http.StatusOK || body["cached"] != true {
		t.Errorf("second ask = %d %v, want cached", status, body)
	}
	if n := s.chat.calls.Load(); n != 1 {
		t.Errorf("chat called %d times, want 1", n)
	}
	if n := s.remoteHits.Load(); n != 1 {
		t.Errorf("remote fetched %d times, want 1", n)
	}

	cached, err := corpus.FileStore{}.Read(context.Background(), s.cachePath)
	if err != nil {
		t.Fatalf("corpus not cached: %v", err)
	}
	if !strings.HasPrefix(cached, "THE SONNETS") || strings.Contains(cached, "[Enter") {
		t.Errorf("cached corpus not normalized: %q", cached[:40])
	}

	resp, err = http.Get(s.server.URL + "/health/ready")
	if err != nil {
		t.Fatalf("ready request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("ready after load = %d, want 200", resp.StatusCode)
	}
}

func TestAskFallsBackToOffline(t *testing.T) {
	s := newStack(t, &goopenai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "quota"})

	for i := 0; i < 2; i++ {
		status, body, _ := s.ask(t, "Tell me about Macbeth")
		if status != http.StatusOK {
			t.Fatalf("status = %d, body = %v", status, body)
		}
		if body["provider"] != "offline" || body["fallback"] != true || body["cached"] != false {
			t.Errorf("ask %d body = %v", i, body)
		}
	}
	if n := s.chat.calls.Load(); n != 2 {
		t.Errorf("chat called %d times, want 2 (fallback answers are not cached)", n)
	}
}

func TestAskValidation(t *testing.T) {
	s := newStack(t, nil)
	status, body, _ := s.ask(t, "   ")
	if status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
	if _, ok := body["error"]; !ok {
		t.Errorf("body missing error: %v", body)
	}
	if n := s.remoteHits.Load(); n != 0 {
		t.Errorf("invalid question triggered %d corpus fetches", n)
	}
}

func TestAnalyticsAfterQuestions(t *testing.T) {
	s := newStack(t, nil)
	s.ask(t, "Who is Hamlet?")
	s.ask(t, "Who is Hamlet?")
	s.ask(t, "")
	s.collector.Flush(context.Background())

	resp, err := http.Get(s.server.URL + "/api/v1/analytics")
	if err != nil {
		t.Fatalf("analytics request failed: %v", err)
	}
	defer resp.Body.Close()
	var stats analytics.AggregatedStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decoding analytics: %v", err)
	}
	if stats.TotalQuestions != 2 || stats.CacheHits != 1 || stats.Providers["openai"] != 2 {
		t.Errorf("stats = %+v", stats)
	}
}
