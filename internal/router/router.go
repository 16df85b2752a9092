package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/egobogo/semroute/internal/embedding"
	"github.com/egobogo/semroute/internal/handler"
	"github.com/egobogo/semroute/internal/match"
	"github.com/egobogo/semroute/internal/metrics"
	"github.com/egobogo/semroute/internal/model"
	"github.com/egobogo/semroute/internal/route"
	"github.com/egobogo/semroute/internal/similarity"
)

var (
	// ErrEmptyQuery is returned for blank input text.
	ErrEmptyQuery = errors.New("query cannot be empty")
	// ErrNoRoute is returned by Dispatch when the store selects no route.
	ErrNoRoute = errors.New("no route selected")
	// ErrNoHandler is returned by Dispatch when the selected route has no handler id.
	ErrNoHandler = errors.New("route has no handler")
)

// StageError reports which stage of a routing call failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Router embeds incoming text, selects a route and hands the query to the
// route's handler.
type Router struct {
	store      *route.Store
	provider   embedding.Provider
	registry   handler.Registry
	index      similarity.Searcher
	candidates int
	indexed    *match.Indexed
	logger     zerolog.Logger
	metrics    *metrics.Metrics
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger for routing decisions.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithMetrics records selections, errors and stage latency in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Router) {
		r.metrics = m
	}
}

// WithIndex matches through idx instead of scanning every utterance. Results
// are identical to the full scan. candidates of 0 uses match.DefaultCandidates.
func WithIndex(idx similarity.Searcher, candidates int) Option {
	return func(r *Router) {
		r.index = idx
		r.candidates = candidates
	}
}

// New creates a Router over store. The registry may be nil when only Route is used.
func New(store *route.Store, provider embedding.Provider, registry handler.Registry, opts ...Option) (*Router, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if provider == nil {
		return nil, fmt.Errorf("embedding provider cannot be nil")
	}
	r := &Router{
		store:    store,
		provider: provider,
		registry: registry,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.index != nil {
		r.indexed = match.NewIndexed(store, r.index, r.candidates)
	}
	r.logger = r.logger.With().Str("component", "router").Logger()
	return r, nil
}

// Timings holds the duration of each stage of a call.
type Timings struct {
	Embed   time.Duration `json:"embed"`
	Match   time.Duration `json:"match"`
	Handler time.Duration `json:"handler"`
}

// Response is the outcome of Dispatch.
type Response struct {
	RequestID string        `json:"request_id"`
	Route     string        `json:"route"`
	Score     float64       `json:"score"`
	Fallback  bool          `json:"fallback"`
	Reply     handler.Reply `json:"reply"`
	Timings   Timings       `json:"timings"`
}

// Summary describes one loaded route.
type Summary struct {
	Name           string  `json:"name"`
	Description    string  `json:"description,omitempty"`
	ScoreThreshold float64 `json:"score_threshold"`
	Utterances     int     `json:"utterances"`
	Handler        string  `json:"handler,omitempty"`
	Default        bool    `json:"default"`
}

// Routes lists the loaded routes in configuration order.
func (r *Router) Routes() []Summary {
	def := r.store.Default()
	out := make([]Summary, 0, r.store.Len())
	for _, rt := range r.store.Routes() {
		out = append(out, Summary{
			Name:           rt.Name,
			Description:    rt.Description,
			ScoreThreshold: rt.ScoreThreshold,
			Utterances:     len(rt.Embeddings),
			Handler:        rt.HandlerID,
			Default:        rt == def,
		})
	}
	return out
}

// Store returns the underlying route store.
func (r *Router) Store() *route.Store {
	return r.store
}

// Route embeds text and selects a route for it.
func (r *Router) Route(ctx context.Context, text string) (match.Result, error) {
	result, _, err := r.route(ctx, text, r.logger)
	return result, err
}

func (r *Router) route(ctx context.Context, text string, logger zerolog.Logger) (match.Result, Timings, error) {
	var t Timings
	if strings.TrimSpace(text) == "" {
		return match.Result{}, t, ErrEmptyQuery
	}

	start := time.Now()
	query, err := r.provider.Embed(ctx, text)
	t.Embed = time.Since(start)
	r.metrics.ObserveStage(metrics.StageEmbed, t.Embed)
	if err != nil {
		r.metrics.ObserveError(metrics.StageEmbed)
		return match.Result{}, t, &StageError{Stage: metrics.StageEmbed, Err: fmt.Errorf("failed to embed query: %w", err)}
	}
	if !similarity.Valid(query) {
		r.metrics.ObserveError(metrics.StageEmbed)
		return match.Result{}, t, &StageError{Stage: metrics.StageEmbed, Err: fmt.Errorf("failed to embed query: %w", route.ErrInvalidEmbedding)}
	}

	start = time.Now()
	var result match.Result
	if r.indexed != nil {
		result, err = r.indexed.Match(query)
	} else {
		result, err = match.Match(query, r.store)
	}
	t.Match = time.Since(start)
	r.metrics.ObserveStage(metrics.StageMatch, t.Match)
	if err != nil {
		r.metrics.ObserveError(metrics.StageMatch)
		return match.Result{}, t, &StageError{Stage: metrics.StageMatch, Err: err}
	}
	if result.Route != nil {
		r.metrics.ObserveSelection(result.Name(), result.Fallback)
	}
	logger.Debug().
		Str("route", result.Name()).
		Float64("score", result.Score).
		Bool("fallback", result.Fallback).
		Msg("route selected")
	return result, t, nil
}

// Dispatch routes text and calls the handler of the selected route. onChunk
// may be nil; streaming handlers report text deltas through it.
func (r *Router) Dispatch(ctx context.Context, text string, onChunk model.ChunkFunc) (Response, error) {
	requestID := uuid.NewString()
	logger := r.logger.With().Str("request_id", requestID).Logger()

	result, timings, err := r.route(ctx, text, logger)
	if err != nil {
		logger.Error().Err(err).Msg("routing failed")
		return Response{RequestID: requestID, Timings: timings}, err
	}
	resp := Response{
		RequestID: requestID,
		Route:     result.Name(),
		Score:     result.Score,
		Fallback:  result.Fallback,
		Timings:   timings,
	}
	if result.Route == nil {
		return resp, ErrNoRoute
	}
	if result.Route.HandlerID == "" {
		return resp, fmt.Errorf("%w: %s", ErrNoHandler, result.Route.Name)
	}
	if r.registry == nil {
		return resp, fmt.Errorf("%w: %s", handler.ErrNotFound, result.Route.HandlerID)
	}
	h, err := r.registry.Lookup(result.Route.HandlerID)
	if err != nil {
		return resp, err
	}

	start := time.Now()
	reply, err := h.Handle(ctx, handler.Call{
		Query:    text,
		Route:    result.Route,
		Score:    result.Score,
		Fallback: result.Fallback,
		OnChunk:  onChunk,
	})
	resp.Timings.Handler = time.Since(start)
	r.metrics.ObserveStage(metrics.StageHandler, resp.Timings.Handler)
	if err != nil {
		r.metrics.ObserveError(metrics.StageHandler)
		logger.Error().Err(err).Str("route", resp.Route).Msg("handler failed")
		return resp, &StageError{Stage: metrics.StageHandler, Err: err}
	}
	resp.Reply = reply

	logger.Info().
		Str("route", resp.Route).
		Bool("fallback", resp.Fallback).
		Dur("embed", resp.Timings.Embed).
		Dur("match", resp.Timings.Match).
		Dur("handler", resp.Timings.Handler).
		Msg("request dispatched")
	return resp, nil
}
