package handler

import (
	"context"
	"errors"

	"github.com/egobogo/semroute/internal/model"
	"github.com/egobogo/semroute/internal/route"
)

// ErrNotFound is returned by Lookup for an unknown handler id.
var ErrNotFound = errors.New("handler not found")

// Call is what a handler receives once a route has been selected.
type Call struct {
	Query    string
	Route    *route.Route
	Score    float64
	Fallback bool            // Score is a sentinel when set.
	OnChunk  model.ChunkFunc // Optional; streaming handlers report deltas here.
}

// Reply is the handler's answer.
type Reply struct {
	Text         string `json:"text"`
	Model        string `json:"model,omitempty"`
	InputTokens  int64  `json:"input_tokens,omitempty"`
	OutputTokens int64  `json:"output_tokens,omitempty"`
}

// Handler is the downstream logic attached to a route through its handler id.
type Handler interface {
	Handle(ctx context.Context, call Call) (Reply, error)
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc func(ctx context.Context, call Call) (Reply, error)

// Handle calls f(ctx, call).
func (f HandlerFunc) Handle(ctx context.Context, call Call) (Reply, error) {
	return f(ctx, call)
}

// Registry maps opaque handler ids to handlers.
type Registry interface {
	// Register adds a handler under id.
	Register(id string, h Handler) error
	// Lookup returns the handler registered under id.
	Lookup(id string) (Handler, error)
	// IDs returns all registered ids.
	IDs() []string
}
