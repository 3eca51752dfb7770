// client.go wraps the xAI HTTP API. Every call goes through Send, which owns
// authentication, per-attempt deadlines and the retry policy.
package main

import (
	"context"
	"log/slog"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Endpoint selects an upstream route, relative to the base URL.
type Endpoint string

const (
	EndpointChat       Endpoint = "chat/completions"
	EndpointEmbeddings Endpoint = "embeddings"
)

// Client is the retrying xAI API client. It is safe for concurrent use and
// holds no per-call state.
type Client struct {
	oa    openai.Client
	retry *retrier
}

// NewClient builds a Client from cfg. The SDK's own retry loop is disabled so
// that the policy in retry.go is the only one in effect. Extra options are
// applied last, e.g. option.WithHTTPClient.
func NewClient(cfg *Config, logger *slog.Logger, opts ...option.RequestOption) *Client {
	base := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL + "/"),
		option.WithMaxRetries(0),
		option.WithHeader("User-Agent", serverName+"/"+version),
	}
	return &Client{
		oa: openai.NewClient(append(base, opts...)...),
		retry: &retrier{
			policy:  DefaultRetryPolicy(cfg.MaxAttempts),
			timeout: cfg.Timeout,
			logger:  logger.With("component", "xai"),
		},
	}
}

// Send POSTs payload to endpoint and decodes the JSON response into out.
// Transient failures are retried; see isTransient.
func (c *Client) Send(ctx context.Context, endpoint Endpoint, payload, out any) error {
	return c.retry.do(ctx, string(endpoint), func(ctx context.Context) error {
		return c.oa.Post(ctx, string(endpoint), payload, out)
	})
}

// ChatCompletion sends a chat (or vision) request.
func (c *Client) ChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	var resp openai.ChatCompletion
	if err := c.Send(ctx, EndpointChat, params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateEmbeddings embeds texts with model in a single request.
func (c *Client) CreateEmbeddings(ctx context.Context, model string, texts []string) (*openai.CreateEmbeddingResponse, error) {
	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(model),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	}
	var resp openai.CreateEmbeddingResponse
	if err := c.Send(ctx, EndpointEmbeddings, params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
