package llm

import (
	"context"

	"github.com/culturefeed/curator-cli/pkg/perplexity"
)

// PerplexityProvider implements Provider over the Perplexity chat API.
type PerplexityProvider struct {
	client      perplexity.Client
	model       string
	temperature float64
}

// NewPerplexity creates a Perplexity-backed provider.
func NewPerplexity(client perplexity.Client, model string, temperature float64) *PerplexityProvider {
	return &PerplexityProvider{client: client, model: model, temperature: temperature}
}

// Name identifies the provider in logs and metadata.
func (p *PerplexityProvider) Name() string { return "perplexity" }

// Classify sends the classification prompt and parses the JSON reply.
func (p *PerplexityProvider) Classify(ctx context.Context, prompt string) (*ClassifyResult, error) {
	text, _, err := p.complete(ctx, prompt, classifyMaxTokens)
	if err != nil {
		return nil, err
	}
	return parseClassify(text), nil
}

// Extract sends the extraction prompt and parses the JSON reply. Perplexity
// reports grounding citations at the response level; candidates that claim
// citation evidence but carry none inherit them.
func (p *PerplexityProvider) Extract(ctx context.Context, prompt string) (*ExtractResult, error) {
	text, citations, err := p.complete(ctx, prompt, extractMaxTokens)
	if err != nil {
		return nil, err
	}
	result := parseExtract(text)
	if result == nil {
		return nil, nil
	}
	if len(citations) > 0 {
		for name, cand := range result.Fields {
			if cand.Evidence == "citation" && len(cand.Citations) == 0 {
				cand.Citations = citations
				result.Fields[name] = cand
			}
		}
	}
	return result, nil
}

func (p *PerplexityProvider) complete(ctx context.Context, prompt string, maxTokens int) (string, []string, error) {
	temp := p.temperature
	resp, err := p.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Model:       p.model,
		Messages:    []perplexity.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return "", nil, err
	}
	if len(resp.Choices) == 0 {
		return "", nil, nil
	}
	return resp.Choices[0].Message.Content, resp.Citations, nil
}
