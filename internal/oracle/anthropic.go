package oracle

import (
	"context"

	"github.com/MikeSquared-Agency/samson/internal/anthropic"
)

const defaultMaxTokens = 1024

// Anthropic serves oracle calls through the Anthropic Messages API.
type Anthropic struct {
	client    *anthropic.Client
	maxTokens int
}

func NewAnthropic(client *anthropic.Client) *Anthropic {
	return &Anthropic{client: client, maxTokens: defaultMaxTokens}
}

func (a *Anthropic) Complete(ctx context.Context, system, user string) (string, error) {
	return a.client.Complete(ctx, system, []anthropic.Message{{Role: "user", Content: user}}, a.maxTokens)
}
