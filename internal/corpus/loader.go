// Package corpus obtains the Shakespeare text: from a local cache, a bundled
// seed file or a remote download, normalized and written back to the cache so
// later loads work offline.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/metrics"
)

// Source names where a corpus came from.
type Source string

const (
	SourceCache  Source = "cache"
	SourceSeed   Source = "seed"
	SourceRemote Source = "remote"
)

// Corpus is an immutable normalized text.
type Corpus struct {
	Name     string
	Text     string
	Source   Source
	Origin   string
	LoadedAt time.Time
}

// Len returns the length in characters.
func (c *Corpus) Len() int {
	return len([]rune(c.Text))
}

type Options struct {
	Name         string
	URL          string
	CachePath    string
	SeedPath     string
	StartMarkers []string
}

// Loader resolves a corpus from cache, seed and remote, in that order.
type Loader struct {
	opts    Options
	store   Store
	fetcher Fetcher
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewLoader builds a loader. m may be nil.
func NewLoader(opts Options, store Store, fetcher Fetcher, m *metrics.Metrics) *Loader {
	if opts.StartMarkers == nil {
		opts.StartMarkers = DefaultStartMarkers
	}
	return &Loader{
		opts:    opts,
		store:   store,
		fetcher: fetcher,
		metrics: m,
		logger:  slog.Default().With("component", "corpus-loader"),
		now:     time.Now,
	}
}

// Load returns the first corpus any source yields. A corpus obtained from the
// seed or remote source is persisted to the cache; a failed write is logged
// and does not fail the load. When no source yields text Load fails with
// ErrDataUnavailable carrying a remediation hint.
func (l *Loader) Load(ctx context.Context) (*Corpus, error) {
	var errs []error

	if l.opts.CachePath != "" {
		raw, err := l.store.Read(ctx, l.opts.CachePath)
		if err == nil {
			l.observe(SourceCache, "ok")
			return l.build(raw, SourceCache, l.opts.CachePath), nil
		}
		l.observe(SourceCache, "miss")
		l.logger.Debug("cache miss", "path", l.opts.CachePath, "error", err)
		errs = append(errs, fmt.Errorf("cache: %w", err))
	}

	if l.opts.SeedPath != "" {
		raw, err := ReadSeed(l.opts.SeedPath)
		if err == nil {
			l.observe(SourceSeed, "ok")
			c := l.build(raw, SourceSeed, l.opts.SeedPath)
			l.persist(ctx, c)
			return c, nil
		}
		l.observe(SourceSeed, "error")
		l.logger.Warn("seed corpus unreadable", "path", l.opts.SeedPath, "error", err)
		errs = append(errs, fmt.Errorf("seed: %w", err))
	}

	c, err := l.fetch(ctx)
	if err == nil {
		l.persist(ctx, c)
		return c, nil
	}
	errs = append(errs, fmt.Errorf("remote: %w", err))

	return nil, l.unavailable(errs)
}

// Refresh downloads the corpus again and rewrites the cache. Unlike Load, a
// failed cache write is returned as ErrIO.
func (l *Loader) Refresh(ctx context.Context) (*Corpus, error) {
	c, err := l.fetch(ctx)
	if err != nil {
		return nil, l.unavailable([]error{fmt.Errorf("remote: %w", err)})
	}
	if l.opts.CachePath == "" {
		return c, nil
	}
	if err := l.store.Write(ctx, l.opts.CachePath, c.Text); err != nil {
		return c, apperrors.Newf(apperrors.ErrIO, 0, "caching refreshed corpus: %v", err).
			WithHint("make %s writable or point corpus.cachePath at a writable location", l.opts.CachePath)
	}
	return c, nil
}

func (l *Loader) fetch(ctx context.Context) (*Corpus, error) {
	if l.fetcher == nil || l.opts.URL == "" {
		return nil, apperrors.New(apperrors.ErrNetwork, 0, "remote fetch disabled")
	}
	start := l.now()
	raw, err := l.fetcher.Fetch(ctx, l.opts.URL)
	if err != nil {
		l.observe(SourceRemote, "error")
		l.logger.Warn("remote fetch failed", "url", l.opts.URL, "error", err)
		return nil, err
	}
	l.observe(SourceRemote, "ok")
	c := l.build(raw, SourceRemote, l.opts.URL)
	l.logger.Info("corpus downloaded",
		"url", l.opts.URL,
		"raw_bytes", len(raw),
		"chars", c.Len(),
		"duration_ms", l.now().Sub(start).Milliseconds(),
	)
	return c, nil
}

func (l *Loader) build(raw string, source Source, origin string) *Corpus {
	c := &Corpus{
		Name:     l.opts.Name,
		Text:     Normalize(raw, l.opts.StartMarkers),
		Source:   source,
		Origin:   origin,
		LoadedAt: l.now(),
	}
	if l.metrics != nil {
		l.metrics.CorpusSizeChars.Set(float64(c.Len()))
	}
	return c
}

func (l *Loader) persist(ctx context.Context, c *Corpus) {
	if l.opts.CachePath == "" {
		return
	}
	if err := l.store.Write(ctx, l.opts.CachePath, c.Text); err != nil {
		l.logger.Warn("could not cache corpus; next start will fetch again",
			"path", l.opts.CachePath, "error", err)
		return
	}
	l.logger.Info("corpus cached", "path", l.opts.CachePath, "source", c.Source)
}

func (l *Loader) unavailable(errs []error) error {
	return apperrors.Newf(apperrors.ErrDataUnavailable, 0, "no corpus source succeeded: %v", errors.Join(errs...)).
		WithHint("place the corpus text at %s, set corpus.seedPath to a bundled .txt or .pdf, or allow network access to %s",
			l.opts.CachePath, l.opts.URL)
}

func (l *Loader) observe(source Source, status string) {
	if l.metrics != nil {
		l.metrics.CorpusLoadsTotal.WithLabelValues(string(source), status).Inc()
	}
}
