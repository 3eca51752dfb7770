// create_embeddings.go defines the create_embeddings tool. texts may be a
// single string or a list; the output always has one vector per input, in
// input order.
package main

import (
	"context"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// CreateEmbeddingsArgs is the input for the create_embeddings tool. Texts is
// either a string or a list of strings, so its schema is written by hand in
// createEmbeddingsSchema. The schema only admits the two shapes; presence and
// element types are checked by normalizeTexts so they surface as
// validation_error results.
type CreateEmbeddingsArgs struct {
	Texts any    `json:"texts"`
	Model string `json:"model,omitempty"`
}

// CreateEmbeddingsOutput carries the vectors in input order.
type CreateEmbeddingsOutput struct {
	ModelUsed  string            `json:"model_used"`
	Count      int               `json:"count"`
	Dimensions int               `json:"dimensions"`
	Embeddings []EmbeddingVector `json:"embeddings"`
	Usage      TokenUsage        `json:"usage"`
}

// EmbeddingVector is the embedding of the input at Index.
type EmbeddingVector struct {
	Index  int       `json:"index"`
	Vector []float64 `json:"vector"`
}

func createEmbeddingsSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"texts": {
				Description: "A single text or a list of texts to embed (required)",
				AnyOf: []*jsonschema.Schema{
					{Type: "null"},
					{Type: "string"},
					{Type: "array", Items: &jsonschema.Schema{Description: "Text to embed"}},
				},
			},
			"model": {
				Type:        "string",
				Description: "Embedding model (defaults to the server's EMBEDDING_MODEL)",
			},
		},
	}
}

// CreateEmbeddings is the create_embeddings tool handler.
func (d *Dispatcher) CreateEmbeddings(ctx context.Context, _ *mcp.CallToolRequest, args CreateEmbeddingsArgs) (*mcp.CallToolResult, CreateEmbeddingsOutput, error) {
	log := d.invocation("create_embeddings")

	texts, err := normalizeTexts(args.Texts)
	if err != nil {
		return nil, CreateEmbeddingsOutput{}, err
	}
	model := strings.TrimSpace(args.Model)
	if model == "" {
		model = d.cfg.EmbeddingModel
	}

	log.Info("creating embeddings", "model", model, "texts", len(texts), "provider", d.cfg.EmbeddingProvider)
	res, err := d.embedder.Embed(ctx, model, texts)
	if err != nil {
		return nil, CreateEmbeddingsOutput{}, asToolError(err)
	}

	out := CreateEmbeddingsOutput{
		ModelUsed:  model,
		Count:      len(res.Vectors),
		Embeddings: make([]EmbeddingVector, len(res.Vectors)),
		Usage: TokenUsage{
			PromptTokens: res.PromptTokens,
			TotalTokens:  res.TotalTokens,
		},
	}
	if res.Model != "" {
		out.ModelUsed = res.Model
	}
	for i, v := range res.Vectors {
		out.Embeddings[i] = EmbeddingVector{Index: i, Vector: v}
	}
	if len(res.Vectors) > 0 {
		out.Dimensions = len(res.Vectors[0])
	}
	return nil, out, nil
}

// normalizeTexts accepts the decoded JSON forms of texts (string or []any)
// as well as a Go []string, and returns a non-empty list of non-empty strings.
func normalizeTexts(v any) ([]string, error) {
	var texts []string
	switch t := v.(type) {
	case nil:
		return nil, validationErrorf("texts is required")
	case string:
		texts = []string{t}
	case []string:
		texts = t
	case []any:
		texts = make([]string, len(t))
		for i, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, validationErrorf("texts[%d] must be a string, got %T", i, e)
			}
			texts[i] = s
		}
	default:
		return nil, validationErrorf("texts must be a string or a list of strings, got %T", v)
	}

	if len(texts) == 0 {
		return nil, validationErrorf("texts must not be empty")
	}
	for i, s := range texts {
		if strings.TrimSpace(s) == "" {
			return nil, validationErrorf("texts[%d] must not be empty", i)
		}
	}
	return texts, nil
}
