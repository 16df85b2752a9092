package cached

import (
	"context"
	"fmt"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/egobogo/semroute/internal/embedding"
)

// Provider wraps another provider with an in-process LRU keyed by text.
// Failed calls are never cached. Nothing outlives the process.
type Provider struct {
	inner embedding.Provider
	cache *lru.Cache[string, []float64]
}

// New creates a Provider holding at most size vectors.
func New(inner embedding.Provider, size int) (*Provider, error) {
	cache, err := lru.New[string, []float64](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}
	return &Provider{inner: inner, cache: cache}, nil
}

// Embed returns the cached vector for text or computes and stores it. Every
// call gets its own copy, so callers may keep or modify the result.
func (p *Provider) Embed(ctx context.Context, text string) ([]float64, error) {
	if vec, ok := p.cache.Get(text); ok {
		return slices.Clone(vec), nil
	}
	vec, err := p.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	p.cache.Add(text, slices.Clone(vec))
	return vec, nil
}

// Len returns the number of cached vectors.
func (p *Provider) Len() int {
	return p.cache.Len()
}

// Purge drops every cached vector.
func (p *Provider) Purge() {
	p.cache.Purge()
}
