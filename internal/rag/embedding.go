package rag

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/zodakzach/yt-comments-ai-analyzer/internal/llm"
	"github.com/zodakzach/yt-comments-ai-analyzer/internal/logging"
)

// Common errors for embedding operations
var (
	ErrEmbedding      = goerr.New("embedding failed")
	ErrNoValidInput   = goerr.New("no valid texts to embed")
	ErrEmptyEmbedding = goerr.New("provider returned no embeddings")
)

// Embedder produces unit-normalized vectors for texts.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// GatewayConfig bounds what is sent to the embedding provider.
type GatewayConfig struct {
	// Model is the embedding model identifier
	Model string

	// Dimension is the requested vector size, 0 for the model default
	Dimension int

	// MaxChars rejects longer texts
	MaxChars int

	// MaxTokens rejects texts with more tokens
	MaxTokens int

	// MaxBatchTokens caps the token sum of one provider request
	MaxBatchTokens int

	// MaxBatchItems caps the number of texts in one provider request
	MaxBatchItems int
}

// DefaultGatewayConfig returns the limits of text-embedding-3-small.
func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		Model:          "text-embedding-3-small",
		MaxChars:       10000,
		MaxTokens:      8192,
		MaxBatchTokens: 300000,
		MaxBatchItems:  2048,
	}
}

// EmbedResult is the outcome of EmbedAll.
type EmbedResult struct {
	// Vectors is index-aligned with the input; dropped texts have a nil vector.
	Vectors [][]float32

	// Dropped lists the input indices that failed validation.
	Dropped []int
}

// Gateway is the single place vectors are produced. It cleans and validates
// texts, batches them under provider limits and normalizes the results.
type Gateway struct {
	provider llm.Provider
	counter  TokenCounter
	config   GatewayConfig
}

// NewGateway creates a gateway. A nil counter falls back to ApproxCounter.
func NewGateway(provider llm.Provider, counter TokenCounter, config GatewayConfig) *Gateway {
	def := DefaultGatewayConfig()
	if config.Model == "" {
		config.Model = def.Model
	}
	if config.MaxChars <= 0 {
		config.MaxChars = def.MaxChars
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = def.MaxTokens
	}
	if config.MaxBatchTokens <= 0 {
		config.MaxBatchTokens = def.MaxBatchTokens
	}
	if config.MaxBatchItems <= 0 {
		config.MaxBatchItems = def.MaxBatchItems
	}
	if counter == nil {
		counter = ApproxCounter{}
	}
	return &Gateway{provider: provider, counter: counter, config: config}
}

// Model returns the embedding model identifier.
func (g *Gateway) Model() string {
	return g.config.Model
}

// Dimension returns the requested vector size, 0 for the model default.
func (g *Gateway) Dimension() int {
	return g.config.Dimension
}

// Embed returns one normalized vector per valid text, in input order.
// Invalid texts are dropped.
func (g *Gateway) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	res, err := g.EmbedAll(ctx, texts)
	if err != nil {
		return nil, err
	}

	out := make([][]float32, 0, len(texts)-len(res.Dropped))
	for _, v := range res.Vectors {
		if v != nil {
			out = append(out, v)
		}
	}
	return out, nil
}

// EmbedAll embeds texts and keeps the output aligned with the input.
func (g *Gateway) EmbedAll(ctx context.Context, texts []string) (*EmbedResult, error) {
	items, dropped := g.validate(texts)
	if len(dropped) > 0 {
		logging.From(ctx).Warn("dropped invalid texts before embedding",
			"dropped", len(dropped), "total", len(texts))
	}
	if len(items) == 0 {
		return nil, goerr.Wrap(fmt.Errorf("%w: %w", ErrEmbedding, ErrNoValidInput), "all texts failed validation",
			goerr.V("total", len(texts)))
	}

	res := &EmbedResult{
		Vectors: make([][]float32, len(texts)),
		Dropped: dropped,
	}

	batches := planBatches(items, g.config.MaxBatchTokens, g.config.MaxBatchItems)
	for bi, batch := range batches {
		inputs := make([]string, len(batch))
		for i, it := range batch {
			inputs[i] = it.text
		}

		vectors, err := g.provider.Embed(ctx, g.config.Model, inputs)
		if err != nil {
			opts := []goerr.Option{goerr.V("batch", bi), goerr.V("size", len(batch))}
			if llm.IsRetryable(err) {
				opts = append(opts, goerr.T(llm.TagRetryable))
			}
			return nil, goerr.Wrap(fmt.Errorf("%w: %w", ErrEmbedding, err), "embedding request failed", opts...)
		}
		if len(vectors) == 0 {
			return nil, goerr.Wrap(fmt.Errorf("%w: %w", ErrEmbedding, ErrEmptyEmbedding), "empty embedding batch",
				goerr.V("batch", bi), goerr.V("size", len(batch)))
		}
		if len(vectors) != len(batch) {
			return nil, goerr.Wrap(ErrEmbedding, "embedding count mismatch",
				goerr.V("batch", bi), goerr.V("want", len(batch)), goerr.V("got", len(vectors)))
		}

		for i, it := range batch {
			res.Vectors[it.index] = Normalize(vectors[i])
		}
	}

	return res, nil
}

func (g *Gateway) validate(texts []string) ([]batchItem, []int) {
	items := make([]batchItem, 0, len(texts))
	var dropped []int
	for i, raw := range texts {
		text := strings.TrimSpace(CleanText(raw))
		if text == "" || len(text) > g.config.MaxChars {
			dropped = append(dropped, i)
			continue
		}
		tokens := g.counter.Count(text)
		if tokens > g.config.MaxTokens {
			dropped = append(dropped, i)
			continue
		}
		items = append(items, batchItem{index: i, text: text, tokens: tokens})
	}
	return items, dropped
}

// CleanText removes characters outside printable ASCII, keeping newlines and tabs.
func CleanText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' || (r >= 0x20 && r < 0x7f) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Normalize scales v to unit length in place. A zero vector is returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	for i, x := range v {
		v[i] = float32(float64(x) / norm)
	}
	return v
}
