package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/egobogo/semroute/internal/handler"
	"github.com/egobogo/semroute/internal/model"
	pb "github.com/egobogo/semroute/internal/promptbuilder"
)

// InMemoryRegistry is a simple in-memory implementation of the Registry interface.
type InMemoryRegistry struct {
	mu       sync.RWMutex
	handlers map[string]handler.Handler
}

var _ handler.Registry = (*InMemoryRegistry)(nil)

// NewInMemoryRegistry creates a new in-memory registry instance.
func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{
		handlers: make(map[string]handler.Handler),
	}
}

// Register adds h under id.
func (r *InMemoryRegistry) Register(id string, h handler.Handler) error {
	if id == "" {
		return fmt.Errorf("handler id cannot be empty")
	}
	if h == nil {
		return fmt.Errorf("handler %s cannot be nil", id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[id]; exists {
		return fmt.Errorf("handler %s already registered", id)
	}
	r.handlers[id] = h
	return nil
}

// Lookup returns the handler registered under id.
func (r *InMemoryRegistry) Lookup(id string) (handler.Handler, error) {
	r.mu.RLock()
	h, exists := r.handlers[id]
	r.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: %s", handler.ErrNotFound, id)
	}
	return h, nil
}

// IDs returns the registered ids, sorted.
func (r *InMemoryRegistry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.handlers))
	for id := range r.handlers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ModelHandler answers a routed query with a language model.
type ModelHandler struct {
	Client   model.Client
	Builder  pb.PromptBuilder
	Settings pb.Settings
	Stream   bool
}

// Handle builds the request for the selected route and sends it, streaming
// when configured and the call carries a chunk callback.
func (h *ModelHandler) Handle(ctx context.Context, call handler.Call) (handler.Reply, error) {
	req, err := h.Builder.Build(call.Route, call.Query, h.Settings)
	if err != nil {
		return handler.Reply{}, err
	}
	var resp model.Response
	if h.Stream && call.OnChunk != nil {
		resp, err = h.Client.ChatStream(ctx, req, call.OnChunk)
	} else {
		resp, err = h.Client.Chat(ctx, req)
	}
	if err != nil {
		return handler.Reply{}, err
	}
	return handler.Reply{
		Text:         resp.Text,
		Model:        resp.Model,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
	}, nil
}

// EchoHandler replies with the route name and the query. It needs no
// network access and is handy for wiring checks.
type EchoHandler struct{}

// Handle formats the routing decision as text.
func (EchoHandler) Handle(ctx context.Context, call handler.Call) (handler.Reply, error) {
	name := "<none>"
	if call.Route != nil {
		name = call.Route.Name
	}
	text := fmt.Sprintf("[%s] %s", name, call.Query)
	if call.OnChunk != nil {
		if err := call.OnChunk(text); err != nil {
			return handler.Reply{}, err
		}
	}
	return handler.Reply{Text: text, Model: "echo"}, nil
}
