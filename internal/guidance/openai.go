package guidance

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = openai.GPT4oMini

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIBackend generates guidance with the chat completions JSON mode.
type OpenAIBackend struct {
	client chatCompleter
	model  string
}

// OpenAIOptions configures NewOpenAIBackend.
type OpenAIOptions struct {
	APIKey  string
	BaseURL string // optional, for compatible gateways
	Model   string
}

// NewOpenAIBackend creates an OpenAI chat client.
func NewOpenAIBackend(opts OpenAIOptions) (*OpenAIBackend, error) {
	if opts.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	return newOpenAIBackend(openai.NewClientWithConfig(cfg), opts.Model), nil
}

func newOpenAIBackend(client chatCompleter, model string) *OpenAIBackend {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIBackend{client: client, model: model}
}

func (o *OpenAIBackend) Name() string { return "openai" }

func (o *OpenAIBackend) Generate(ctx context.Context, system, user string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.7,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

var _ Backend = (*OpenAIBackend)(nil)
