package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/randalmurphal/tripflow/pkg/tripflow"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o"

// OpenAI implements Client against any OpenAI-compatible chat completion
// endpoint. With a base URL override it also serves local models, which is
// how ProviderLocal is wired.
type OpenAI struct {
	client   *openai.Client
	model    string
	provider string
}

// OpenAIOption configures the OpenAI client.
type OpenAIOption func(*openAIConfig)

type openAIConfig struct {
	model    string
	baseURL  string
	provider string
}

// WithModel sets the model for requests. Default: DefaultModel.
func WithModel(model string) OpenAIOption {
	return func(c *openAIConfig) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL points the client at a non-default endpoint, such as a hosted
// aggregator or a local model server.
func WithBaseURL(url string) OpenAIOption {
	return func(c *openAIConfig) {
		c.baseURL = url
	}
}

// WithProvider sets the provider label used in error reporting.
// Default: ProviderRemote.
func WithProvider(provider string) OpenAIOption {
	return func(c *openAIConfig) {
		if provider != "" {
			c.provider = provider
		}
	}
}

// NewOpenAI creates a client with the given API key.
func NewOpenAI(apiKey string, opts ...OpenAIOption) *OpenAI {
	cfg := openAIConfig{
		model:    DefaultModel,
		provider: ProviderRemote,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}

	client := openai.NewClient(reqOpts...)
	return &OpenAI{
		client:   &client,
		model:    cfg.model,
		provider: cfg.provider,
	}
}

// Complete sends the conversation and returns the model's reply.
func (c *OpenAI) Complete(ctx context.Context, req Request) (*Response, error) {
	params := openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: convertMessages(req),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, &tripflow.InferenceError{Provider: c.provider, Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &tripflow.InferenceError{
			Provider: c.provider,
			Err:      fmt.Errorf("empty completion for model %s", c.model),
		}
	}

	return &Response{Content: resp.Choices[0].Message.Content}, nil
}

// convertMessages maps the request onto the SDK's message union.
func convertMessages(req Request) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		out = append(out, openai.SystemMessage(req.System))
	}
	for _, msg := range req.Messages {
		switch msg.Role {
		case tripflow.RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		case tripflow.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}
