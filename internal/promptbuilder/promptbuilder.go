package promptbuilder

import (
	"github.com/egobogo/semroute/internal/model"
	"github.com/egobogo/semroute/internal/route"
)

// Settings are the per-handler knobs applied to every request.
type Settings struct {
	Model        string
	SystemPrompt string // Template; see the implementation for available fields.
	Temperature  *float64
	MaxTokens    int
}

// PromptBuilder defines an interface for constructing the downstream request
// for a query routed to r.
type PromptBuilder interface {
	Build(r *route.Route, query string, settings Settings) (model.Request, error)
}
