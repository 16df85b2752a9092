package route

// Definition describes one route as configured.
type Definition struct {
	Name           string   `json:"name" yaml:"name"`                       // Unique identifier of the route.
	Description    string   `json:"description" yaml:"description"`         // Human readable intent.
	Utterances     []string `json:"utterances" yaml:"utterances"`           // Example phrases, in order.
	ScoreThreshold float64  `json:"score_threshold" yaml:"score_threshold"` // Minimum cosine similarity to accept a match.
	HandlerID      string   `json:"handler" yaml:"handler"`                 // Downstream handler, opaque to matching.
}

// Route is a Definition together with one embedding per utterance.
type Route struct {
	Definition
	Embeddings [][]float64 `json:"embeddings,omitempty"`
}

// Utterance is one stored embedding seen through the flat store order.
type Utterance struct {
	Route     *Route
	Index     int // Position of the utterance inside its route.
	Position  int // Position in the flat store order.
	Embedding []float64
}

// Store is the immutable set of loaded routes.
type Store struct {
	routes     []*Route
	byName     map[string]*Route
	def        *Route
	dimension  int
	utterances []Utterance
}

// Routes returns the loaded routes in configuration order.
// The returned slice must not be modified.
func (s *Store) Routes() []*Route {
	return s.routes
}

// Default returns the fallback route, or nil when the store is empty.
func (s *Store) Default() *Route {
	return s.def
}

// Get returns the route with the given name.
func (s *Store) Get(name string) (*Route, bool) {
	r, ok := s.byName[name]
	return r, ok
}

// Len returns the number of loaded routes.
func (s *Store) Len() int {
	return len(s.routes)
}

// Dimension returns the dimensionality shared by every stored embedding,
// or 0 when nothing was embedded.
func (s *Store) Dimension() int {
	return s.dimension
}

// Utterances returns every stored embedding in flat store order.
func (s *Store) Utterances() []Utterance {
	return s.utterances
}
