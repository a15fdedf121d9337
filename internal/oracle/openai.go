package oracle

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI serves oracle calls through the Chat Completions API.
type OpenAI struct {
	client openai.Client
	model  string
}

func NewOpenAI(apiKey, model string, opts ...option.RequestOption) *OpenAI {
	base := []option.RequestOption{option.WithAPIKey(apiKey)}
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	return &OpenAI{client: openai.NewClient(append(base, opts...)...), model: model}
}

func (o *OpenAI) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	if resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty response content")
	}
	return resp.Choices[0].Message.Content, nil
}
