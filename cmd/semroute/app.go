package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/egobogo/semroute/internal/config"
	"github.com/egobogo/semroute/internal/embedding"
	"github.com/egobogo/semroute/internal/embedding/cached"
	"github.com/egobogo/semroute/internal/embedding/hashed"
	"github.com/egobogo/semroute/internal/embedding/openai"
	"github.com/egobogo/semroute/internal/handler"
	"github.com/egobogo/semroute/internal/handler/inmemory"
	"github.com/egobogo/semroute/internal/metrics"
	"github.com/egobogo/semroute/internal/model"
	"github.com/egobogo/semroute/internal/model/chatgpt"
	"github.com/egobogo/semroute/internal/model/claude"
	pb "github.com/egobogo/semroute/internal/promptbuilder"
	"github.com/egobogo/semroute/internal/promptbuilder/routeprompt"
	"github.com/egobogo/semroute/internal/route"
	"github.com/egobogo/semroute/internal/router"
	"github.com/egobogo/semroute/internal/similarity/hnsw"
)

// newProvider returns the embedding provider selected by the encoder
// settings, wrapped in an LRU when a cache size is configured.
func newProvider(cfg *config.Config) (embedding.Provider, error) {
	var provider embedding.Provider
	switch cfg.Encoder.Provider {
	case config.EncoderOpenAI:
		if cfg.Secrets.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is not set")
		}
		baseURL := cfg.Encoder.BaseURL
		if baseURL == "" {
			baseURL = cfg.Secrets.OpenAIBaseURL
		}
		provider = openai.New(openai.Config{
			APIKey:     cfg.Secrets.OpenAIAPIKey,
			Model:      cfg.Encoder.Model,
			BaseURL:    baseURL,
			MaxRetries: cfg.Encoder.MaxRetries,
		})
	case config.EncoderHash:
		provider = hashed.New(cfg.Encoder.Dimensions)
	default:
		return nil, fmt.Errorf("unknown encoder provider %q", cfg.Encoder.Provider)
	}

	if cfg.Encoder.CacheSize > 0 {
		return cached.New(provider, cfg.Encoder.CacheSize)
	}
	return provider, nil
}

// newRegistry registers one handler per configured handler entry.
func newRegistry(cfg *config.Config) (*inmemory.InMemoryRegistry, error) {
	registry := inmemory.NewInMemoryRegistry()
	builder := routeprompt.New()
	for _, hc := range cfg.Handlers {
		h, err := newHandler(cfg.Secrets, hc, builder)
		if err != nil {
			return nil, fmt.Errorf("failed to create handler %s: %w", hc.ID, err)
		}
		if err := registry.Register(hc.ID, h); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func newHandler(secrets config.Secrets, hc config.Handler, builder pb.PromptBuilder) (handler.Handler, error) {
	var client model.Client
	switch hc.Provider {
	case config.HandlerEcho:
		return inmemory.EchoHandler{}, nil
	case config.HandlerOpenAI:
		if secrets.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is not set")
		}
		baseURL := hc.BaseURL
		if baseURL == "" {
			baseURL = secrets.OpenAIBaseURL
		}
		client = chatgpt.NewChatGPTClient(chatgpt.Config{
			APIKey:     secrets.OpenAIAPIKey,
			Model:      hc.Model,
			BaseURL:    baseURL,
			HTTPClient: openai.RetryingClient(hc.MaxRetries),
		})
	case config.HandlerAnthropic:
		if secrets.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set")
		}
		client = claude.New(claude.Config{
			APIKey:     secrets.AnthropicAPIKey,
			Model:      hc.Model,
			BaseURL:    hc.BaseURL,
			HTTPClient: openai.RetryingClient(hc.MaxRetries),
		})
	default:
		return nil, fmt.Errorf("unknown handler provider %q", hc.Provider)
	}
	return &inmemory.ModelHandler{
		Client:  client,
		Builder: builder,
		Settings: pb.Settings{
			Model:        hc.Model,
			SystemPrompt: hc.SystemPrompt,
			Temperature:  hc.Temperature,
			MaxTokens:    hc.MaxTokens,
		},
		Stream: hc.Stream,
	}, nil
}

// newRouter embeds every route of cfg and assembles the router. reg may be
// nil, in which case no metrics are recorded.
func newRouter(ctx context.Context, cfg *config.Config, logger zerolog.Logger, reg prometheus.Registerer) (*router.Router, error) {
	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}

	buildOpts := []route.Option{route.WithLogger(logger)}
	if cfg.Encoder.Concurrency > 0 {
		buildOpts = append(buildOpts, route.WithConcurrency(cfg.Encoder.Concurrency))
	}
	if cfg.DefaultRoute != "" {
		buildOpts = append(buildOpts, route.WithDefault(cfg.DefaultRoute))
	}
	store, err := route.Build(ctx, cfg.Definitions(), provider, buildOpts...)
	if err != nil {
		return nil, err
	}

	registry, err := newRegistry(cfg)
	if err != nil {
		return nil, err
	}

	opts := []router.Option{router.WithLogger(logger)}
	if reg != nil {
		opts = append(opts, router.WithMetrics(metrics.New(reg)))
	}
	if cfg.Index.Enabled {
		idx := hnsw.New(store, hnsw.Config{
			M:        cfg.Index.M,
			EfSearch: cfg.Index.EfSearch,
			Seed:     cfg.Index.Seed,
		})
		opts = append(opts, router.WithIndex(idx, cfg.Index.Candidates))
		logger.Debug().Int("nodes", idx.Len()).Msg("hnsw index built")
	}
	return router.New(store, provider, registry, opts...)
}
