// chat_completion.go defines the chat_completion tool: input validation,
// model resolution and the upstream chat call.
package main

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/openai/openai-go/v3"
)

const defaultTemperature = 0.7

// ChatCompletionArgs is the input for the chat_completion tool.
type ChatCompletionArgs struct {
	Messages       []ChatMessage `json:"messages,omitempty" jsonschema:"Conversation so far, oldest first. Each message has a role (system, user, assistant) and content."`
	Model          string        `json:"model,omitempty" jsonschema:"Specific Grok model, e.g. grok-3 or grok-3-reasoner. Overrides task_complexity."`
	TaskComplexity string        `json:"task_complexity,omitempty" jsonschema:"Auto-select a model: simple, complex, reasoning or research"`
	Temperature    *float64      `json:"temperature,omitempty" jsonschema:"Sampling temperature between 0 and 2 (default 0.7)"`
	MaxTokens      int           `json:"max_tokens,omitempty" jsonschema:"Maximum tokens in the response; must not exceed the model's max output"`
}

// ChatMessage is one turn of the conversation.
type ChatMessage struct {
	Role    string `json:"role,omitempty" jsonschema:"system, user or assistant"`
	Content string `json:"content,omitempty"`
}

// ChatCompletionOutput is the shaped upstream response.
type ChatCompletionOutput struct {
	ModelUsed    string     `json:"model_used"`
	Content      string     `json:"content"`
	FinishReason string     `json:"finish_reason,omitempty"`
	ResponseID   string     `json:"response_id,omitempty"`
	Usage        TokenUsage `json:"usage"`
}

// chatCompletionSchema is the inferred input schema with messages made
// nullable, so an absent or null list reaches buildChatParams.
func chatCompletionSchema() *jsonschema.Schema {
	s, err := jsonschema.For[ChatCompletionArgs](nil)
	if err != nil {
		panic("chat_completion input schema: " + err.Error())
	}
	if m := s.Properties["messages"]; m != nil {
		m.Type = ""
		m.Types = []string{"null", "array"}
	}
	return s
}

// ChatCompletion is the chat_completion tool handler.
func (d *Dispatcher) ChatCompletion(ctx context.Context, _ *mcp.CallToolRequest, args ChatCompletionArgs) (*mcp.CallToolResult, ChatCompletionOutput, error) {
	log := d.invocation("chat_completion")

	model, err := d.resolveChatModel(args.Model, args.TaskComplexity, log)
	if err != nil {
		return nil, ChatCompletionOutput{}, err
	}
	params, err := buildChatParams(args, model)
	if err != nil {
		return nil, ChatCompletionOutput{}, err
	}

	log.Info("sending chat completion", "model", model.ID, "messages", len(args.Messages))
	resp, err := d.chat.ChatCompletion(ctx, params)
	if err != nil {
		return nil, ChatCompletionOutput{}, asToolError(err)
	}
	res, err := summarizeCompletion(resp)
	if err != nil {
		return nil, ChatCompletionOutput{}, err
	}
	log.Debug("chat completion done", "finish_reason", res.FinishReason, "total_tokens", res.Usage.TotalTokens)

	return nil, ChatCompletionOutput{
		ModelUsed:    model.ID,
		Content:      res.Content,
		FinishReason: res.FinishReason,
		ResponseID:   res.ID,
		Usage:        res.Usage,
	}, nil
}

// resolveChatModel applies the selection order: explicit model, then the
// complexity hint, then the configured default.
func (d *Dispatcher) resolveChatModel(explicit, complexity string, log *slog.Logger) (ModelDescriptor, error) {
	id := strings.TrimSpace(explicit)
	if id == "" && strings.TrimSpace(complexity) != "" {
		var known bool
		id, known = SelectModel(complexity)
		if !known {
			log.Warn("unknown task complexity, using small model", "task_complexity", complexity, "model", id)
		} else {
			log.Info("auto-selected model", "task_complexity", complexity, "model", id)
		}
	}
	if id == "" {
		id = d.cfg.DefaultModel
	}
	if id == "" {
		id = defaultChatModel
	}

	m, ok := LookupModel(id)
	if !ok {
		return ModelDescriptor{}, validationErrorf("invalid model %q; available models: %s", id, strings.Join(ModelIDs(), ", "))
	}
	return m, nil
}

func buildChatParams(args ChatCompletionArgs, model ModelDescriptor) (openai.ChatCompletionNewParams, error) {
	if len(args.Messages) == 0 {
		return openai.ChatCompletionNewParams{}, validationErrorf("messages must not be empty")
	}

	temperature := defaultTemperature
	if args.Temperature != nil {
		temperature = *args.Temperature
	}
	if temperature < 0 || temperature > 2 {
		return openai.ChatCompletionNewParams{}, validationErrorf("temperature must be between 0 and 2, got %g", temperature)
	}
	if args.MaxTokens < 0 {
		return openai.ChatCompletionNewParams{}, validationErrorf("max_tokens must not be negative, got %d", args.MaxTokens)
	}
	if args.MaxTokens > model.MaxOutput {
		return openai.ChatCompletionNewParams{}, validationErrorf("max_tokens %d exceeds %s max output of %d", args.MaxTokens, model.ID, model.MaxOutput)
	}

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(args.Messages))
	for i, m := range args.Messages {
		if strings.TrimSpace(m.Content) == "" {
			return openai.ChatCompletionNewParams{}, validationErrorf("messages[%d]: content must not be empty", i)
		}
		switch strings.ToLower(m.Role) {
		case "system":
			msgs = append(msgs, openai.ChatCompletionMessageParamUnion{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{OfString: openai.String(m.Content)},
				},
			})
		case "user":
			msgs = append(msgs, openai.ChatCompletionMessageParamUnion{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{OfString: openai.String(m.Content)},
				},
			})
		case "assistant":
			msgs = append(msgs, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Content: openai.ChatCompletionAssistantMessageParamContentUnion{OfString: openai.String(m.Content)},
				},
			})
		default:
			return openai.ChatCompletionNewParams{}, validationErrorf("messages[%d]: role must be system, user or assistant, got %q", i, m.Role)
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model.ID),
		Messages:    msgs,
		Temperature: openai.Float(temperature),
	}
	if args.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(args.MaxTokens))
	}
	return params, nil
}
