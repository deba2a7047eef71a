package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/zodakzach/yt-comments-ai-analyzer/internal/logging"
)

// OpenAIProvider implements Provider using OpenAI's API.
type OpenAIProvider struct {
	client openai.Client
	config Config
}

// NewOpenAIProvider creates an OpenAI-backed provider.
// Returns an error if the API key is missing.
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, goerr.Wrap(ErrInvalidConfig, "missing API key (set OPENAI_API_KEY)")
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(config.MaxRetries),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &OpenAIProvider{
		client: openai.NewClient(opts...),
		config: config,
	}, nil
}

// Embed generates embeddings for texts. Vectors are returned in input order.
func (p *OpenAIProvider) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model:          model,
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}
	if p.config.EmbeddingDimension > 0 {
		params.Dimensions = openai.Int(int64(p.config.EmbeddingDimension))
	}

	resp, err := p.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, providerError(ctx, "embeddings request failed", err, model)
	}

	if len(resp.Data) == 0 {
		return [][]float32{}, nil
	}
	if len(resp.Data) != len(texts) {
		return nil, goerr.Wrap(ErrInteraction, "embedding count mismatch",
			goerr.V("got", len(resp.Data)), goerr.V("inputs", len(texts)))
	}

	vectors := make([][]float32, len(texts))
	for _, data := range resp.Data {
		idx := int(data.Index)
		if idx < 0 || idx >= len(texts) {
			return nil, goerr.Wrap(ErrInteraction, "embedding index out of range",
				goerr.V("index", idx), goerr.V("inputs", len(texts)))
		}
		// Convert []float64 to []float32
		vec := make([]float32, len(data.Embedding))
		for j, val := range data.Embedding {
			vec[j] = float32(val)
		}
		vectors[idx] = vec
	}

	return vectors, nil
}

// Complete sends messages and returns the reply text.
func (p *OpenAIProvider) Complete(ctx context.Context, model string, messages []Message) (string, error) {
	params := p.chatParams(model, messages)
	return p.chat(ctx, model, params)
}

// CompleteStructured asks for a reply that satisfies schema in strict mode.
func (p *OpenAIProvider) CompleteStructured(ctx context.Context, model string, messages []Message, schema Schema) (string, error) {
	params := p.chatParams(model, messages)
	params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
			JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:        schema.Name,
				Description: openai.String(schema.Description),
				Schema:      schema.Definition,
				Strict:      openai.Bool(true),
			},
		},
	}
	return p.chat(ctx, model, params)
}

func (p *OpenAIProvider) chatParams(model string, messages []Message) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: toOpenAIMessages(messages),
	}

	// Set optional parameters if configured
	if p.config.Temperature > 0 {
		params.Temperature = openai.Float(float64(p.config.Temperature))
	}
	if p.config.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(p.config.MaxTokens))
	}
	return params
}

func (p *OpenAIProvider) chat(ctx context.Context, model string, params openai.ChatCompletionNewParams) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", providerError(ctx, "chat completion failed", err, model)
	}

	if len(completion.Choices) == 0 {
		return "", goerr.Wrap(ErrInteraction, "no choices returned", goerr.V("model", model))
	}

	return completion.Choices[0].Message.Content, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// providerError classifies err as rate-limited (retryable) or a generic failure.
// The provider's own message is logged and kept in the chain for diagnostics.
func providerError(ctx context.Context, msg string, err error, model string) error {
	logging.From(ctx).Warn("provider call failed", "model", model, "error", err.Error())

	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		return goerr.Wrap(fmt.Errorf("%w: %w: %w", ErrInteraction, ErrRateLimited, err), msg,
			goerr.T(TagRetryable),
			goerr.V("model", model),
			goerr.V("status", apiErr.StatusCode))
	}

	opts := []goerr.Option{goerr.V("model", model)}
	if apiErr != nil {
		opts = append(opts, goerr.V("status", apiErr.StatusCode))
	}
	return goerr.Wrap(fmt.Errorf("%w: %w", ErrInteraction, err), msg, opts...)
}
