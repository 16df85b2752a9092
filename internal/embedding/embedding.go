package embedding

import (
	"context"
	"errors"
)

var (
	// ErrEmbeddingFailed wraps any failure of the underlying provider.
	ErrEmbeddingFailed = errors.New("embedding failed")
	// ErrEmptyResponse is returned when the provider answers without a vector.
	ErrEmptyResponse = errors.New("no embedding data returned")
)

// Provider computes embeddings from text. Every vector returned by one
// provider has the same dimensionality.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Dimensioned is implemented by providers that know their output size up front.
type Dimensioned interface {
	Dimensions() int
}

// ProviderFunc adapts an ordinary function to the Provider interface.
type ProviderFunc func(ctx context.Context, text string) ([]float64, error)

// Embed calls f(ctx, text).
func (f ProviderFunc) Embed(ctx context.Context, text string) ([]float64, error) {
	return f(ctx, text)
}
