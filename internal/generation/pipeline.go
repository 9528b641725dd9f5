package generation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/tracing"
)

// Pipeline calls the primary generator once and, if it fails, the fallback
// once. There are no retries.
type Pipeline struct {
	primary  Generator
	fallback Generator
	timeout  time.Duration
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewPipeline resolves primary and fallback from reg. An empty fallback
// disables the second attempt. m may be nil.
func NewPipeline(reg *Registry, primary, fallback Provider, timeout time.Duration, m *metrics.Metrics) (*Pipeline, error) {
	p := &Pipeline{
		timeout: timeout,
		metrics: m,
		logger:  slog.Default().With("component", "generation"),
	}
	var err error
	if p.primary, err = reg.Get(primary); err != nil {
		return nil, err
	}
	if fallback != "" {
		if p.fallback, err = reg.Get(fallback); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Result is a generated answer and whether the fallback produced it.
type Result struct {
	Response
	Fallback bool
}

// Generate runs the primary and at most one fallback. When both fail the
// error is ErrGeneration with the primary's hint.
func (p *Pipeline) Generate(ctx context.Context, req Request) (Result, error) {
	resp, usedFallback, err := resilience.Fallback(ctx,
		func(ctx context.Context) (Response, error) {
			return p.call(ctx, p.primary, req)
		},
		p.secondary(req),
	)
	if err != nil {
		hint := apperrors.Hint(err)
		if hint == "" {
			hint = "check the generation provider API keys and quota, or set generation.fallback to offline"
		}
		return Result{}, apperrors.Newf(apperrors.ErrGeneration, 0, "all providers failed: %v", err).WithHint("%s", hint)
	}
	if usedFallback {
		logger.FromContext(ctx).Warn("answer served by fallback generator",
			"primary", p.primary.Provider(),
			"fallback", resp.Provider,
		)
		if p.metrics != nil {
			p.metrics.GenerationFallbacks.Inc()
		}
	}
	return Result{Response: resp, Fallback: usedFallback}, nil
}

func (p *Pipeline) secondary(req Request) func(context.Context) (Response, error) {
	if p.fallback == nil {
		return nil
	}
	return func(ctx context.Context) (Response, error) {
		return p.call(ctx, p.fallback, req)
	}
}

func (p *Pipeline) call(ctx context.Context, g Generator, req Request) (Response, error) {
	ctx, span := tracing.StartChildSpan(ctx, "generate")
	defer span.End()
	span.SetAttr("provider", string(g.Provider()))

	resp, err := resilience.WithTimeout(ctx, p.timeout, string(g.Provider()), func(ctx context.Context) (Response, error) {
		return g.Generate(ctx, req)
	})
	status := "ok"
	if err != nil {
		status = "error"
		if !errors.Is(err, apperrors.ErrGeneration) {
			err = Failure(g.Provider(), "", err, "the provider did not answer in time; raise generation.timeout or try another provider")
		}
		logger.FromContext(ctx).Warn("generation failed", "provider", g.Provider(), "error", err)
	}
	span.SetAttr("status", status)
	if p.metrics != nil {
		p.metrics.GenerationTotal.WithLabelValues(string(g.Provider()), status).Inc()
	}
	return resp, err
}
