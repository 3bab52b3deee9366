package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/culturefeed/curator-cli/internal/curation"
	"github.com/culturefeed/curator-cli/internal/llm"
	"github.com/culturefeed/curator-cli/internal/store"
	anthropicpkg "github.com/culturefeed/curator-cli/pkg/anthropic"
	perplexitypkg "github.com/culturefeed/curator-cli/pkg/perplexity"
)

// pipelineEnv holds the loaded curation document, the selected LLM provider,
// and the store, shared by the enrich/batch/serve commands.
type pipelineEnv struct {
	Doc      *curation.Document
	Provider llm.Provider
	Store    store.Store
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline loads the curation document, builds the provider, and opens
// the store. Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	doc, err := curation.Load(cfg.Curation.Path)
	if err != nil {
		return nil, err
	}

	provider, err := initProvider()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}

	return &pipelineEnv{Doc: doc, Provider: provider, Store: st}, nil
}

// initProvider builds the configured LLM capability. Provider selection is
// explicit configuration, never runtime probing.
func initProvider() (llm.Provider, error) {
	switch cfg.Provider.Name {
	case "perplexity":
		if cfg.Perplexity.Key == "" {
			return nil, eris.New("config: perplexity.key is required")
		}
		client := perplexitypkg.NewClient(cfg.Perplexity.Key,
			perplexitypkg.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexitypkg.WithModel(cfg.Perplexity.Model),
			perplexitypkg.WithRateLimit(cfg.Provider.RateLimitRPS),
		)
		return llm.NewPerplexity(client, cfg.Perplexity.Model, cfg.Provider.Temperature), nil
	case "anthropic":
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("config: anthropic.key is required")
		}
		client := anthropicpkg.NewClient(cfg.Anthropic.Key,
			anthropicpkg.WithRateLimit(cfg.Provider.RateLimitRPS),
		)
		return llm.NewAnthropic(client, cfg.Anthropic.Model, cfg.Provider.Temperature), nil
	default:
		return nil, eris.Errorf("config: unknown provider %q", cfg.Provider.Name)
	}
}
