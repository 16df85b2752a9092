// Package match selects the best route for a query embedding.
//
// Every stored utterance embedding is scored against the query with cosine
// similarity; the strictly highest score wins, so ties go to the earliest
// route and utterance in store order. When the winner's score is below that
// route's own threshold the store's default route is returned instead, with
// the score pinned to FallbackScore.
//
// Matching performs no I/O and holds no locks. It is safe to call
// concurrently against the same Store.
package match

import (
	"math"

	"github.com/egobogo/semroute/internal/route"
	"github.com/egobogo/semroute/internal/similarity"
)

// FallbackScore is reported whenever the default route replaces a
// low-confidence match. It is a sentinel, not a similarity.
const FallbackScore = 0

// Result is the outcome of one routing call.
type Result struct {
	// Route is the selected route, nil only when the store has nothing to match.
	Route *route.Route
	// Score is the cosine similarity of the winning utterance, FallbackScore
	// when Fallback is set, or -Inf when Route is nil.
	Score float64
	// Fallback reports that Route is the default route chosen because the
	// best match scored below its threshold.
	Fallback bool
}

// Name returns the selected route name, or "" when there is none.
func (r Result) Name() string {
	if r.Route == nil {
		return ""
	}
	return r.Route.Name
}

// Matched reports whether a route cleared its own threshold.
func (r Result) Matched() bool {
	return r.Route != nil && !r.Fallback
}

// Match scans every utterance embedding in store and applies the threshold
// fallback. A query whose length differs from a stored embedding fails with
// similarity.ErrDimensionMismatch.
func Match(query []float64, store *route.Store) (Result, error) {
	best := math.Inf(-1)
	var bestRoute *route.Route

	for _, r := range store.Routes() {
		for _, emb := range r.Embeddings {
			score, err := similarity.Cosine(query, emb)
			if err != nil {
				return Result{}, err
			}
			if score > best {
				best = score
				bestRoute = r
			}
		}
	}

	return decide(store, bestRoute, best), nil
}

// decide applies the threshold policy to the outcome of a scan. Routes
// without utterances are never scored, so a store holding only such routes
// still falls back to its default.
func decide(store *route.Store, bestRoute *route.Route, best float64) Result {
	if bestRoute == nil {
		if store.Default() == nil {
			return Result{Score: best}
		}
		return Result{
			Route:    store.Default(),
			Score:    FallbackScore,
			Fallback: true,
		}
	}
	if best < bestRoute.ScoreThreshold {
		return Result{
			Route:    store.Default(),
			Score:    FallbackScore,
			Fallback: true,
		}
	}
	return Result{Route: bestRoute, Score: best}
}
