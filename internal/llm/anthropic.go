package llm

import (
	"context"

	"github.com/culturefeed/curator-cli/pkg/anthropic"
)

const (
	classifyMaxTokens = 256
	extractMaxTokens  = 1024
)

// AnthropicProvider implements Provider over the Anthropic Messages API.
type AnthropicProvider struct {
	client      anthropic.Client
	model       string
	temperature float64
}

// NewAnthropic creates an Anthropic-backed provider.
func NewAnthropic(client anthropic.Client, model string, temperature float64) *AnthropicProvider {
	return &AnthropicProvider{client: client, model: model, temperature: temperature}
}

// Name identifies the provider in logs and metadata.
func (p *AnthropicProvider) Name() string { return "anthropic" }

// Classify sends the classification prompt and parses the JSON reply.
func (p *AnthropicProvider) Classify(ctx context.Context, prompt string) (*ClassifyResult, error) {
	text, err := p.complete(ctx, prompt, classifyMaxTokens)
	if err != nil {
		return nil, err
	}
	return parseClassify(text), nil
}

// Extract sends the extraction prompt and parses the JSON reply.
func (p *AnthropicProvider) Extract(ctx context.Context, prompt string) (*ExtractResult, error) {
	text, err := p.complete(ctx, prompt, extractMaxTokens)
	if err != nil {
		return nil, err
	}
	return parseExtract(text), nil
}

func (p *AnthropicProvider) complete(ctx context.Context, prompt string, maxTokens int64) (string, error) {
	temp := p.temperature
	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       p.model,
		MaxTokens:   maxTokens,
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
