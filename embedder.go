// embedder.go abstracts the embeddings backend. The xAI endpoint is the
// default; a local Ollama instance can stand in via EMBEDDING_PROVIDER.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"
)

// EmbeddingResult holds one vector per input text, in input order.
type EmbeddingResult struct {
	Model        string
	Vectors      [][]float64
	PromptTokens int64
	TotalTokens  int64
}

// Embedder turns texts into vectors.
type Embedder interface {
	Embed(ctx context.Context, model string, texts []string) (*EmbeddingResult, error)
}

// NewEmbedder picks the backend named by cfg.EmbeddingProvider.
func NewEmbedder(cfg *Config, client *Client, logger *slog.Logger) (Embedder, error) {
	switch cfg.EmbeddingProvider {
	case ProviderOllama:
		return newOllamaEmbedder(cfg, logger)
	case ProviderXAI, "":
		return &xaiEmbedder{client: client}, nil
	}
	return nil, &ConfigurationError{Variable: "EMBEDDING_PROVIDER", Reason: "is unknown: " + cfg.EmbeddingProvider}
}

// ---------------------------------------------------------------------------
// xAI
// ---------------------------------------------------------------------------

type xaiEmbedder struct {
	client *Client
}

func (e *xaiEmbedder) Embed(ctx context.Context, model string, texts []string) (*EmbeddingResult, error) {
	resp, err := e.client.CreateEmbeddings(ctx, model, texts)
	if err != nil {
		return nil, err
	}
	vectors, err := orderEmbeddings(resp.Data, len(texts))
	if err != nil {
		return nil, err
	}
	return &EmbeddingResult{
		Model:        resp.Model,
		Vectors:      vectors,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// orderEmbeddings places each returned vector at its declared input index.
// The upstream is not required to return data in order, but it must return
// exactly one vector per input.
func orderEmbeddings(data []openai.Embedding, n int) ([][]float64, error) {
	if len(data) != n {
		return nil, embeddingCountError(len(data), n)
	}
	out := make([][]float64, n)
	for _, d := range data {
		i := int(d.Index)
		if i < 0 || i >= n {
			return nil, &ToolError{Kind: KindUpstream, Message: fmt.Sprintf("embedding index %d out of range for %d inputs", i, n)}
		}
		if out[i] != nil {
			return nil, &ToolError{Kind: KindUpstream, Message: fmt.Sprintf("duplicate embedding for input %d", i)}
		}
		out[i] = d.Embedding
	}
	return out, nil
}

func embeddingCountError(got, want int) *ToolError {
	return &ToolError{
		Kind:    KindUpstream,
		Message: fmt.Sprintf("embeddings returned %d vectors for %d inputs", got, want),
	}
}

// ---------------------------------------------------------------------------
// Ollama
// ---------------------------------------------------------------------------

type ollamaEmbedder struct {
	client *api.Client
	retry  *retrier
}

func newOllamaEmbedder(cfg *Config, logger *slog.Logger) (*ollamaEmbedder, error) {
	host := cfg.OllamaHost
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, &ConfigurationError{Variable: "OLLAMA_HOST", Reason: err.Error()}
	}
	return &ollamaEmbedder{
		client: api.NewClient(u, http.DefaultClient),
		retry: &retrier{
			policy:  DefaultRetryPolicy(cfg.MaxAttempts),
			timeout: cfg.Timeout,
			logger:  logger.With("component", "ollama"),
		},
	}, nil
}

func (e *ollamaEmbedder) Embed(ctx context.Context, model string, texts []string) (*EmbeddingResult, error) {
	var resp *api.EmbedResponse
	err := e.retry.do(ctx, "api/embed", func(ctx context.Context) error {
		r, err := e.client.Embed(ctx, &api.EmbedRequest{Model: model, Input: texts})
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, embeddingCountError(len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float64, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		v := make([]float64, len(emb))
		for j, f := range emb {
			v[j] = float64(f)
		}
		vectors[i] = v
	}
	return &EmbeddingResult{
		Model:        resp.Model,
		Vectors:      vectors,
		PromptTokens: int64(resp.PromptEvalCount),
		TotalTokens:  int64(resp.PromptEvalCount),
	}, nil
}
