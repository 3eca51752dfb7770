// dispatcher.go holds the Dispatcher: the receiver for every MCP tool
// handler. It owns no mutable state, so concurrent tool calls are
// independent.
package main

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
)

// ChatCompleter is the part of the API client used by the chat and vision
// tools.
type ChatCompleter interface {
	ChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// Dispatcher validates tool input, picks a model, calls the upstream and
// shapes the result.
type Dispatcher struct {
	cfg      *Config
	chat     ChatCompleter
	embedder Embedder
	logger   *slog.Logger
}

// NewDispatcher wires the tool handlers to their backends.
func NewDispatcher(cfg *Config, chat ChatCompleter, embedder Embedder, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		chat:     chat,
		embedder: embedder,
		logger:   logger,
	}
}

// invocation returns a logger tagged with the tool name and a fresh id so the
// lines of one call can be grouped.
func (d *Dispatcher) invocation(tool string) *slog.Logger {
	return d.logger.With("tool", tool, "invocation_id", uuid.NewString())
}

// TokenUsage reports upstream token accounting for one call.
type TokenUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// completionResult is what the chat and vision tools keep from a response.
type completionResult struct {
	ID           string
	Content      string
	FinishReason string
	Usage        TokenUsage
}

func summarizeCompletion(resp *openai.ChatCompletion) (completionResult, error) {
	if len(resp.Choices) == 0 {
		return completionResult{}, &ToolError{Kind: KindUpstream, Message: "upstream returned no choices"}
	}
	choice := resp.Choices[0]
	return completionResult{
		ID:           resp.ID,
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Usage: TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
