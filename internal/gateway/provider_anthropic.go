package gateway

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicProvider serves "claude-" models through the Anthropic SDK, or a
// compatible proxy when a base URL override is set.
type anthropicProvider struct {
	client           *anthropic.Client
	defaultMaxTokens int
}

func newAnthropicProvider(apiKey, baseURL string, defaultMaxTokens int) *anthropicProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if defaultMaxTokens <= 0 {
		defaultMaxTokens = 4096
	}
	return &anthropicProvider{
		client:           anthropic.NewClient(opts...),
		defaultMaxTokens: defaultMaxTokens,
	}
}

func (p *anthropicProvider) Complete(ctx context.Context, req Request) (string, error) {
	system, users := splitMessages(req.Messages)

	messages := make([]anthropic.MessageParam, 0, len(users))
	for _, content := range users {
		messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(content)))
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.F(anthropic.Model(req.Model)),
		MaxTokens: anthropic.F(int64(maxTokens)),
		Messages:  anthropic.F(messages),
	}
	if system != "" {
		params.System = anthropic.F([]anthropic.TextBlockParam{
			anthropic.NewTextBlock(system),
		})
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.F(*req.Temperature)
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if b, ok := block.AsUnion().(anthropic.TextBlock); ok {
			text += b.Text
		}
	}
	if text == "" {
		return "", fmt.Errorf("anthropic: %w", ErrEmptyCompletion)
	}
	return text, nil
}
