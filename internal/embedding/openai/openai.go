package openai

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/egobogo/semroute/internal/embedding"
)

// DefaultModel is used when no encoder model is configured.
const DefaultModel = "text-embedding-3-small"

// Config holds the settings for the OpenAI embedding provider.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	MaxRetries int
	HTTPClient *http.Client // Overrides the retrying client when set.
}

// Provider implements embedding.Provider using the OpenAI embeddings endpoint.
type Provider struct {
	client    openai.Client
	modelName string
}

// New creates a Provider. Retries are handled by a retryablehttp transport so
// the SDK's own retry loop is disabled.
func New(cfg Config) *Provider {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = RetryingClient(cfg.MaxRetries)
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Provider{
		client:    openai.NewClient(opts...),
		modelName: cfg.Model,
	}
}

// RetryingClient returns an *http.Client that retries transient failures.
func RetryingClient(maxRetries int) *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = maxRetries
	rc.Logger = nil
	return rc.StandardClient()
}

// Embed returns the embedding vector for text.
func (p *Provider) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{text},
		},
		Model:          openai.EmbeddingModel(p.modelName),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", embedding.ErrEmbeddingFailed, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: %w", embedding.ErrEmbeddingFailed, embedding.ErrEmptyResponse)
	}
	// A single input was sent, so the first vector is ours.
	return resp.Data[0].Embedding, nil
}

// Model returns the encoder name.
func (p *Provider) Model() string {
	return p.modelName
}
