// Command loadtest drives POST /api/v1/ask with concurrent workers and
// reports latency percentiles, status codes, and cache and fallback rates.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var defaultQuestions = []string{
	"Who is Hamlet?",
	"What does Macbeth see before he kills Duncan?",
	"Why does Lear divide his kingdom?",
	"Who are the lovers in Romeo and Juliet?",
	"What is Prospero's island like?",
	"How does Othello come to doubt Desdemona?",
	"What happens to Ophelia?",
	"Who says all the world's a stage?",
	"What is the plot of The Tempest?",
	"Which sonnet compares the beloved to a summer's day?",
}

type runConfig struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Timeout     time.Duration
	Questions   []string
}

type askResult struct {
	Cached   bool   `json:"cached"`
	Fallback bool   `json:"fallback"`
	Provider string `json:"provider"`
}

type stats struct {
	total     atomic.Int64
	success   atomic.Int64
	failed    atomic.Int64
	cached    atomic.Int64
	fallbacks atomic.Int64

	mu        sync.Mutex
	latencies []time.Duration
	status    map[int]int64
	providers map[string]int64
}

func newStats() *stats {
	return &stats{
		latencies: make([]time.Duration, 0, 10000),
		status:    make(map[int]int64),
		providers: make(map[string]int64),
	}
}

func (s *stats) record(d time.Duration, code int, res *askResult, err error) {
	s.total.Add(1)
	if err != nil {
		s.failed.Add(1)
		return
	}
	if code == http.StatusOK {
		s.success.Add(1)
	} else {
		s.failed.Add(1)
	}
	if res != nil {
		if res.Cached {
			s.cached.Add(1)
		}
		if res.Fallback {
			s.fallbacks.Add(1)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.latencies = append(s.latencies, d)
	s.status[code]++
	if res != nil && res.Provider != "" {
		s.providers[res.Provider]++
	}
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the qa server")
	concurrency := flag.Int("concurrency", 4, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	timeout := flag.Duration("timeout", 90*time.Second, "per-request timeout")
	questionsPath := flag.String("questions", "", "file with one question per line (default: built-in set)")
	flag.Parse()

	questions := defaultQuestions
	if *questionsPath != "" {
		q, err := readQuestions(*questionsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reading questions: %v\n", err)
			os.Exit(1)
		}
		questions = q
	}

	cfg := runConfig{
		BaseURL:     strings.TrimRight(*baseURL, "/"),
		Concurrency: *concurrency,
		Duration:    *duration,
		Timeout:     *timeout,
		Questions:   questions,
	}

	fmt.Println("=== Shakespeare QA Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Questions:   %d unique\n", len(cfg.Questions))
	fmt.Println()

	s := run(cfg)
	if !report(s, cfg.Duration) {
		os.Exit(1)
	}
}

func readQuestions(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" && !strings.HasPrefix(line, "#") {
			out = append(out, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s contains no questions", path)
	}
	return out, nil
}

func run(cfg runConfig) *stats {
	s := newStats()
	client := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	fmt.Print("Running")
	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(next int) {
			defer wg.Done()
			for ctx.Err() == nil {
				q := cfg.Questions[next%len(cfg.Questions)]
				next++

				start := time.Now()
				code, res, err := ask(ctx, client, cfg.BaseURL, q)
				if ctx.Err() != nil {
					return
				}
				s.record(time.Since(start), code, res, err)
			}
		}(w)
	}

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	wg.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return s
}

func ask(ctx context.Context, client *http.Client, baseURL, question string) (int, *askResult, error) {
	body, _ := json.Marshal(map[string]string{"question": question})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/v1/ask", bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil, nil
	}
	var res askResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return resp.StatusCode, nil, nil
	}
	return resp.StatusCode, &res, nil
}

func report(s *stats, duration time.Duration) bool {
	total := s.total.Load()
	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests:  %d\n", total)
	fmt.Printf("Successful:      %d\n", s.success.Load())
	fmt.Printf("Failed:          %d\n", s.failed.Load())
	if total > 0 {
		fmt.Printf("Error Rate:      %.2f%%\n", pct(s.failed.Load(), total))
		fmt.Printf("Cached:          %.2f%%\n", pct(s.cached.Load(), total))
		fmt.Printf("Fallback:        %.2f%%\n", pct(s.fallbacks.Load(), total))
		fmt.Printf("Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.latencies); n > 0 {
		sort.Slice(s.latencies, func(i, j int) bool { return s.latencies[i] < s.latencies[j] })
		var sum time.Duration
		for _, l := range s.latencies {
			sum += l
		}
		avg := sum / time.Duration(n)

		var sq float64
		for _, l := range s.latencies {
			d := float64(l - avg)
			sq += d * d
		}

		fmt.Println()
		fmt.Println("=== Latency ===")
		fmt.Printf("Min:    %s\n", s.latencies[0])
		fmt.Printf("Avg:    %s\n", avg)
		fmt.Printf("P50:    %s\n", percentile(s.latencies, 50))
		fmt.Printf("P95:    %s\n", percentile(s.latencies, 95))
		fmt.Printf("P99:    %s\n", percentile(s.latencies, 99))
		fmt.Printf("Max:    %s\n", s.latencies[n-1])
		fmt.Printf("StdDev: %s\n", time.Duration(math.Sqrt(sq/float64(n))))
	}

	fmt.Println()
	fmt.Println("=== Status Codes ===")
	codes := make([]int, 0, len(s.status))
	for code := range s.status {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("  %d: %d\n", code, s.status[code])
	}

	if len(s.providers) > 0 {
		fmt.Println()
		fmt.Println("=== Providers ===")
		names := make([]string, 0, len(s.providers))
		for p := range s.providers {
			names = append(names, p)
		}
		sort.Strings(names)
		for _, p := range names {
			fmt.Printf("  %s: %d\n", p, s.providers[p])
		}
	}

	if total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the server running?")
		return false
	}
	return true
}

func pct(n, total int64) float64 {
	return float64(n) / float64(total) * 100
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}
