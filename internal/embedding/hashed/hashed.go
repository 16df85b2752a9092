// Package hashed provides an offline embedding provider based on feature
// hashing. Texts that share words get similar vectors, which is enough for
// demos and tests without network access.
package hashed

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/zeebo/xxh3"
)

// DefaultDimensions is used when New is called with a non-positive size.
const DefaultDimensions = 64

// Provider hashes lower-cased word tokens into a fixed number of buckets.
type Provider struct {
	dim int
}

// New creates a Provider producing vectors of length dim.
func New(dim int) *Provider {
	if dim <= 0 {
		dim = DefaultDimensions
	}
	return &Provider{dim: dim}
}

// Embed returns the L2-normalised bag-of-words vector for text.
// Text without any word yields the zero vector.
func (p *Provider) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float64, p.dim)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, tok := range tokens {
		h := xxh3.HashString(tok)
		idx := int(h % uint64(p.dim))
		// The top bit picks the sign so collisions tend to cancel out.
		if h>>63 == 1 {
			vec[idx] -= 1
		} else {
			vec[idx] += 1
		}
	}
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec, nil
	}
	inv := 1 / math.Sqrt(norm)
	for i := range vec {
		vec[i] *= inv
	}
	return vec, nil
}

// Dimensions returns the vector length.
func (p *Provider) Dimensions() int {
	return p.dim
}
