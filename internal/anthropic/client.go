package anthropic

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type Client struct {
	api   sdk.Client
	model string
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewClient builds a Messages API client. Extra request options are appended
// after the API key, which lets tests point the client at a local server.
func NewClient(apiKey, model string, opts ...option.RequestOption) *Client {
	base := []option.RequestOption{option.WithAPIKey(apiKey)}
	return &Client{
		api:   sdk.NewClient(append(base, opts...)...),
		model: model,
	}
}

func (c *Client) Model() string { return c.model }

// Complete sends a message to the Anthropic API and returns the text response.
func (c *Client) Complete(ctx context.Context, system string, messages []Message, maxTokens int) (string, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: int64(maxTokens),
		Messages:  make([]sdk.MessageParam, 0, len(messages)),
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}
	for _, m := range messages {
		switch m.Role {
		case "assistant":
			params.Messages = append(params.Messages, sdk.NewAssistantMessage(sdk.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		}
	}

	resp, err := c.api.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("api call: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("empty response content")
	}
	return sb.String(), nil
}
