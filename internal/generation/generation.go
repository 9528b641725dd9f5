// Package generation defines the text-generation boundary: a closed set of
// providers, a registry mapping each to an injected Generator, and a
// pipeline that makes one fallback attempt when the primary fails.
package generation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/errors"
)

// Provider tags a generation backend.
type Provider string

const (
	ProviderOpenAI  Provider = "openai"
	ProviderGemini  Provider = "gemini"
	ProviderOffline Provider = "offline"
)

var providers = []Provider{ProviderOpenAI, ProviderGemini, ProviderOffline}

// ParseProvider accepts a provider tag case-insensitively.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range providers {
		if p == known {
			return p, nil
		}
	}
	return "", apperrors.Newf(apperrors.ErrInvalidInput, 0, "unknown generation provider %q", s)
}

// Request carries the composed prompt. Question is the raw user question,
// which the offline knowledge base keys on.
type Request struct {
	Question string
	Prompt   string
}

type Response struct {
	Text     string
	Provider Provider
	Model    string
}

// Generator turns a prompt into answer text. Failures are reported as
// ErrGeneration.
type Generator interface {
	Provider() Provider
	Generate(ctx context.Context, req Request) (Response, error)
}

// Registry maps provider tags to generators.
type Registry struct {
	generators map[Provider]Generator
}

func NewRegistry(gens ...Generator) *Registry {
	r := &Registry{generators: make(map[Provider]Generator, len(gens))}
	for _, g := range gens {
		r.Register(g)
	}
	return r
}

func (r *Registry) Register(g Generator) {
	r.generators[g.Provider()] = g
}

// Get returns the generator for p, or ErrInvalidInput when none is registered.
func (r *Registry) Get(p Provider) (Generator, error) {
	g, ok := r.generators[p]
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, 0, "no generator registered for provider %q", p)
	}
	return g, nil
}

// Providers lists registered tags in sorted order.
func (r *Registry) Providers() []Provider {
	out := make([]Provider, 0, len(r.generators))
	for p := range r.generators {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Failure wraps a provider error as ErrGeneration with a remediation hint.
func Failure(p Provider, model string, err error, hint string) error {
	name := string(p)
	if model != "" {
		name = fmt.Sprintf("%s/%s", p, model)
	}
	return apperrors.Newf(apperrors.ErrGeneration, 0, "%s: %v", name, err).WithHint("%s", hint)
}
