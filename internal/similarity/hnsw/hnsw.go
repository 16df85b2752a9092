package hnsw

import (
	"math/rand"

	"github.com/coder/hnsw"

	"github.com/egobogo/semroute/internal/route"
	"github.com/egobogo/semroute/internal/similarity"
)

// Config tunes the underlying graph. Zero values keep the library defaults.
type Config struct {
	M        int   // Maximum neighbours per node.
	EfSearch int   // Candidate list size during search.
	Seed     int64 // Level generation seed, for reproducible graphs.
}

// Index implements similarity.Searcher over the utterance embeddings of a
// route store using the coder/hnsw generic graph. Node keys are positions
// in flat store order.
type Index struct {
	graph *hnsw.Graph[int] // Underlying HNSW graph.
	dim   int              // Dimensionality of embeddings.
}

var _ similarity.Searcher = (*Index)(nil)

// New indexes every embedding held by store. The store is immutable, so the
// index never changes after New returns.
func New(store *route.Store, cfg Config) *Index {
	g := hnsw.NewGraph[int]()
	g.Distance = hnsw.CosineDistance
	if cfg.M > 0 {
		g.M = cfg.M
	}
	if cfg.EfSearch > 0 {
		g.EfSearch = cfg.EfSearch
	}
	if cfg.Seed != 0 {
		g.Rng = rand.New(rand.NewSource(cfg.Seed))
	}

	flat := store.Utterances()
	nodes := make([]hnsw.Node[int], 0, len(flat))
	for _, u := range flat {
		nodes = append(nodes, hnsw.MakeNode(u.Position, similarity.Float32(u.Embedding)))
	}
	if len(nodes) > 0 {
		g.Add(nodes...)
	}
	return &Index{graph: g, dim: store.Dimension()}
}

// Search returns the positions of up to k stored embeddings nearest to query.
func (s *Index) Search(query []float64, k int) ([]int, error) {
	if len(query) != s.dim {
		return nil, &similarity.MismatchError{Want: s.dim, Got: len(query)}
	}
	if k <= 0 || s.graph.Len() == 0 {
		return nil, nil
	}
	neighbors := s.graph.Search(similarity.Float32(query), k)
	positions := make([]int, len(neighbors))
	for i, node := range neighbors {
		positions[i] = node.Key
	}
	return positions, nil
}

// Len returns the number of indexed embeddings.
func (s *Index) Len() int {
	return s.graph.Len()
}
