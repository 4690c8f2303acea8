package llm

import (
	"context"
	"errors"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// openAIGenerator talks to any OpenAI-compatible chat completions API.
// It returns the message text itself rather than an envelope.
type openAIGenerator struct {
	model  string
	client openai.Client
}

func NewOpenAIGenerator(baseURL, apiKey, model string) (Generator, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key missing; provide llm.api_key")
	}
	if model == "" {
		return nil, errors.New("llm model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &openAIGenerator{model: model, client: openai.NewClient(opts...)}, nil
}

func (o *openAIGenerator) Generate(ctx context.Context, req Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(req.Prompt)},
	}
	if req.Config.Temperature > 0 {
		params.Temperature = openai.Float(req.Config.Temperature)
	}
	if req.Config.TopP > 0 {
		params.TopP = openai.Float(req.Config.TopP)
	}
	if req.Config.MaxOutputTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.Config.MaxOutputTokens))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}
