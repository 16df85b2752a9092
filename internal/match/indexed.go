package match

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/egobogo/semroute/internal/route"
	"github.com/egobogo/semroute/internal/similarity"
)

// DefaultCandidates is the number of neighbours requested from the index.
const DefaultCandidates = 16

// capSlack widens every cap so rounding in acos never prunes a route that
// could still hold the best score.
const capSlack = 1e-6

// Indexed matches through an accelerated index and always returns what
// Match would return for the same store.
//
// The index only proposes candidates. Their exact scores give a lower bound
// for the winner, and any route whose cap says it cannot reach that bound is
// skipped. Every other route is scanned exactly in store order, so a poor
// index costs time, never correctness.
type Indexed struct {
	store      *route.Store
	index      similarity.Searcher
	candidates int
	caps       []routeCap // Parallel to store.Routes().
}

// NewIndexed prepares a matcher over store. idx must have been built from the
// same store; candidates of 0 uses DefaultCandidates.
func NewIndexed(store *route.Store, idx similarity.Searcher, candidates int) *Indexed {
	if candidates <= 0 {
		candidates = DefaultCandidates
	}
	routes := store.Routes()
	caps := make([]routeCap, len(routes))
	for i, r := range routes {
		caps[i] = newRouteCap(r.Embeddings)
	}
	return &Indexed{store: store, index: idx, candidates: candidates, caps: caps}
}

// Match returns the route selected for query.
func (m *Indexed) Match(query []float64) (Result, error) {
	flat := m.store.Utterances()
	if len(flat) == 0 {
		return decide(m.store, nil, math.Inf(-1)), nil
	}
	if len(query) != m.store.Dimension() {
		return Result{}, &similarity.MismatchError{Want: m.store.Dimension(), Got: len(query)}
	}
	// A zero query has no direction to bound against.
	if similarity.IsZero(query) {
		return Match(query, m.store)
	}

	positions, err := m.index.Search(query, min(m.candidates, len(flat)))
	if err != nil {
		return Result{}, err
	}
	floor := math.Inf(-1)
	for _, pos := range positions {
		if pos < 0 || pos >= len(flat) {
			return Result{}, fmt.Errorf("index returned position %d outside store of %d utterances", pos, len(flat))
		}
		score, err := similarity.Cosine(query, flat[pos].Embedding)
		if err != nil {
			return Result{}, err
		}
		floor = max(floor, score)
	}

	qnorm := floats.Norm(query, 2)
	best := math.Inf(-1)
	var bestRoute *route.Route
	for i, r := range m.store.Routes() {
		if len(r.Embeddings) == 0 || m.caps[i].bound(query, qnorm) < floor {
			continue
		}
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
	return decide(m.store, bestRoute, best), nil
}

// routeCap is a spherical cap holding the directions of one route's
// utterances: each non-zero embedding lies within radius radians of center.
type routeCap struct {
	center  []float64 // Unit vector; nil when every embedding is zero.
	radius  float64
	hasZero bool // Zero embeddings score 0 against any query.
}

func newRouteCap(embeddings [][]float64) routeCap {
	var c routeCap
	if len(embeddings) == 0 {
		return c
	}
	dim := len(embeddings[0])
	units := make([][]float64, 0, len(embeddings))
	sum := make([]float64, dim)
	for _, emb := range embeddings {
		n := floats.Norm(emb, 2)
		if n == 0 {
			c.hasZero = true
			continue
		}
		u := make([]float64, dim)
		floats.ScaleTo(u, 1/n, emb)
		floats.Add(sum, u)
		units = append(units, u)
	}
	if len(units) == 0 {
		return c
	}
	n := floats.Norm(sum, 2)
	if n < 1e-9 {
		// Directions cancel out; a cap over the whole sphere never prunes.
		c.center = units[0]
		c.radius = math.Pi
		return c
	}
	floats.Scale(1/n, sum)
	c.center = sum
	for _, u := range units {
		c.radius = max(c.radius, angle(floats.Dot(u, sum)))
	}
	return c
}

// bound returns an upper bound on the cosine similarity between query and
// any embedding inside the cap. qnorm is the Euclidean norm of query.
func (c routeCap) bound(query []float64, qnorm float64) float64 {
	if c.center == nil {
		return 0
	}
	gap := angle(floats.Dot(query, c.center)/qnorm) - c.radius - capSlack
	if gap <= 0 {
		return 1
	}
	b := math.Cos(gap)
	if c.hasZero {
		b = max(b, 0)
	}
	return b
}

// angle returns the angle in radians whose cosine is cos, clamped to [-1, 1].
func angle(cos float64) float64 {
	return math.Acos(math.Max(-1, math.Min(1, cos)))
}
