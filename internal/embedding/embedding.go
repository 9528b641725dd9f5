// Package embedding turns text into vectors with the OpenAI embeddings API.
package embedding

import (
	"context"
	"fmt"
	"math"

	apperrors "github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
)

// Embedder converts texts to unit-length vectors, one per input, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingsCreator is the subset of the go-openai client used here.
type EmbeddingsCreator interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

type OpenAI struct {
	api       EmbeddingsCreator
	model     string
	batchSize int
}

// NewOpenAI builds an embedder. An empty apiKey fails fast since the vector
// path cannot work without it.
func NewOpenAI(apiKey, baseURL, model string, batchSize int) (*OpenAI, error) {
	if apiKey == "" {
		return nil, apperrors.New(apperrors.ErrInvalidInput, 0, "embedding requires an OpenAI API key").
			WithHint("set OPENAI_API_KEY or use retrieval.strategy=keyword")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return NewWithAPI(openai.NewClientWithConfig(cfg), model, batchSize), nil
}

func NewWithAPI(api EmbeddingsCreator, model string, batchSize int) *OpenAI {
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	if batchSize <= 0 {
		batchSize = 64
	}
	return &OpenAI{api: api, model: model, batchSize: batchSize}
}

// Embed sends texts in batches of the configured size.
func (e *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		resp, err := e.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(e.model),
			Input: texts[start:end],
		})
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrNetwork, 0, "embedding batch %d-%d: %v", start, end, err)
		}
		if len(resp.Data) != end-start {
			return nil, apperrors.Newf(apperrors.ErrInternal, 0, "embedding batch %d-%d returned %d vectors", start, end, len(resp.Data))
		}
		batch := make([][]float32, end-start)
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(batch) {
				return nil, fmt.Errorf("embedding index %d out of range", d.Index)
			}
			v := make([]float32, len(d.Embedding))
			for i := range d.Embedding {
				v[i] = float32(d.Embedding[i])
			}
			Normalize(v)
			batch[d.Index] = v
		}
		out = append(out, batch...)
	}
	return out, nil
}

// Normalize scales v to unit length in place. The zero vector is unchanged.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
