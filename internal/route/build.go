package route

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/egobogo/semroute/internal/embedding"
	"github.com/egobogo/semroute/internal/similarity"
)

// DefaultConcurrency bounds the number of embedding calls in flight during Build.
const DefaultConcurrency = 4

var (
	// ErrBuild is matched by every error that aborts Build because of an utterance.
	ErrBuild = errors.New("route store build failed")
	// ErrDuplicateRoute is returned when two definitions share a name.
	ErrDuplicateRoute = errors.New("duplicate route name")
	// ErrUnknownDefault is returned when the explicit default names no route.
	ErrUnknownDefault = errors.New("unknown default route")
	// ErrInvalidEmbedding is returned when a provider yields an empty or non-finite vector.
	ErrInvalidEmbedding = errors.New("invalid embedding")
)

// BuildError names the route and utterance whose embedding failed.
type BuildError struct {
	Route string
	Index int
	Err   error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%v: route %q utterance %d: %v", ErrBuild, e.Route, e.Index, e.Err)
}

// Unwrap exposes both ErrBuild and the underlying cause.
func (e *BuildError) Unwrap() []error {
	return []error{ErrBuild, e.Err}
}

// Option configures Build.
type Option func(*options)

type options struct {
	concurrency int
	defaultName string
	logger      zerolog.Logger
}

// WithConcurrency sets how many embedding calls may run at once.
// With 1 the calls are issued strictly in route-then-utterance order.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithDefault selects the fallback route by name instead of the first route.
func WithDefault(name string) Option {
	return func(o *options) {
		o.defaultName = name
	}
}

// WithLogger sets the logger used to report build progress.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Build embeds every utterance of every definition and returns the resulting
// Store. The first definition becomes the default route unless WithDefault is
// given. Any embedding failure aborts the build; no partial store is returned.
func Build(ctx context.Context, defs []Definition, provider embedding.Provider, opts ...Option) (*Store, error) {
	if provider == nil {
		return nil, errors.New("embedding provider cannot be nil")
	}
	o := options{
		concurrency: DefaultConcurrency,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.concurrency < 1 {
		o.concurrency = 1
	}

	routes := make([]*Route, len(defs))
	byName := make(map[string]*Route, len(defs))
	total := 0
	for i, def := range defs {
		if _, exists := byName[def.Name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateRoute, def.Name)
		}
		def.Utterances = slices.Clone(def.Utterances)
		r := &Route{
			Definition: def,
			Embeddings: make([][]float64, len(def.Utterances)),
		}
		routes[i] = r
		byName[def.Name] = r
		total += len(def.Utterances)
	}

	var def *Route
	switch {
	case o.defaultName != "":
		r, ok := byName[o.defaultName]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownDefault, o.defaultName)
		}
		def = r
	case len(routes) > 0:
		def = routes[0]
	}

	o.logger.Debug().
		Int("routes", len(routes)).
		Int("utterances", total).
		Int("concurrency", o.concurrency).
		Msg("embedding route utterances")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
launch:
	for _, r := range routes {
		for i, text := range r.Utterances {
			if gctx.Err() != nil {
				break launch
			}
			g.Go(func() error {
				vec, err := provider.Embed(gctx, text)
				if err != nil {
					return &BuildError{Route: r.Name, Index: i, Err: err}
				}
				if !similarity.Valid(vec) {
					return &BuildError{Route: r.Name, Index: i, Err: ErrInvalidEmbedding}
				}
				r.Embeddings[i] = vec
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuild, err)
	}

	dim := 0
	flat := make([]Utterance, 0, total)
	for _, r := range routes {
		for i, vec := range r.Embeddings {
			if dim == 0 {
				dim = len(vec)
			} else if len(vec) != dim {
				return nil, &BuildError{
					Route: r.Name,
					Index: i,
					Err:   &similarity.MismatchError{Want: dim, Got: len(vec)},
				}
			}
			flat = append(flat, Utterance{
				Route:     r,
				Index:     i,
				Position:  len(flat),
				Embedding: vec,
			})
		}
	}

	s := &Store{
		routes:     routes,
		byName:     byName,
		def:        def,
		dimension:  dim,
		utterances: flat,
	}

	ev := o.logger.Info().
		Int("routes", len(routes)).
		Int("embeddings", len(flat)).
		Int("dimension", dim)
	if def != nil {
		ev = ev.Str("default", def.Name)
	}
	ev.Msg("route store built")

	return s, nil
}
