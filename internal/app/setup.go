package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"golang.org/x/time/rate"

	"github.com/answerdock/answerdock/internal/answer"
	"github.com/answerdock/answerdock/internal/chunk"
	"github.com/answerdock/answerdock/internal/config"
	"github.com/answerdock/answerdock/internal/embed"
	"github.com/answerdock/answerdock/internal/index"
	"github.com/answerdock/answerdock/internal/ingest"
	"github.com/answerdock/answerdock/internal/log"
	"github.com/answerdock/answerdock/internal/retrieve"
	"github.com/answerdock/answerdock/internal/session"
)

// embedRatePerSecond caps embedding calls against local or remote
// backends during bulk ingestion.
const embedRatePerSecond = 10

// Setup creates and initializes the application. Call Close to
// release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}
	if logger == nil {
		logger = log.New(log.Config{Level: cfg.SlogLevel(), JSON: cfg.LogJSON})
	}

	a := &App{Config: cfg, Logger: logger}
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	provider := embed.New(embedder, logger,
		embed.WithTimeout(cfg.Timeouts.Embed),
		embed.WithRateLimiter(rate.NewLimiter(rate.Limit(embedRatePerSecond), embedRatePerSecond)),
	)

	a.Store = index.New(cfg.IndexPath(), cfg.MetadataPath(), logger)
	if err := a.Store.Load(ctx); err != nil {
		return nil, fmt.Errorf("loading index: %w", err)
	}

	a.Sessions = session.NewStore(cfg.Session.Capacity, logger)

	chunker := chunk.NewChunker(
		cfg.Chunking.TargetWords,
		cfg.Chunking.OverlapParagraphs,
		cfg.Chunking.MinParagraphWords,
	)
	a.Ingest = ingest.NewService(chunker, provider, a.Store, logger)

	retriever := retrieve.New(provider, a.Store, logger,
		retrieve.WithMaxDistance(cfg.Retrieval.MaxDistance))
	model := answer.NewGenkitModel(g, cfg.ModelName, cfg.Timeouts.Generate)
	a.Engine = answer.NewEngine(retriever, model, a.Sessions, cfg.Retrieval.TopK, logger)

	_, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	return a, nil
}

// provideGenkit initializes Genkit with the configured AI provider.
// Supports ollama (default), gemini, and openai.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	var g *genkit.Genkit

	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit model registration (no auto-discovery)
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		logger.Info("initialized Genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)

	case config.ProviderOpenAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("initialized Genkit with openai provider", "model", cfg.ModelName)

	default: // gemini
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		logger.Info("initialized Genkit with gemini provider", "model", cfg.ModelName)
	}

	return g, nil
}

// provideEmbedder looks up the embedder registered by the provider
// plugin. Each provider registers embedders differently:
//   - ollama: registered in provideGenkit, keyed by server address
//   - openai: auto-registered in Init(), looked up by model name
//   - gemini: GoogleAIEmbedder(g, modelName)
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderOllama:
		return ollama.Embedder(g, cfg.OllamaHost)
	case config.ProviderOpenAI:
		return genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel))
	default:
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	}
}
