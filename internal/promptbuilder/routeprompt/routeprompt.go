package routeprompt

import (
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/egobogo/semroute/internal/model"
	pb "github.com/egobogo/semroute/internal/promptbuilder"
	"github.com/egobogo/semroute/internal/route"
)

// DefaultSystemPrompt is used when a handler configures no prompt of its own.
const DefaultSystemPrompt = `You are the assistant for the "{{.Route}}" topic.
{{- if .Description}}
Topic description: {{.Description}}
{{- end}}
Answer the user's request concisely.`

// promptData holds the fields available to system prompt templates.
type promptData struct {
	Route       string
	Description string
	Handler     string
	Query       string
}

// RoutePromptBuilder implements the PromptBuilder interface with text/template
// system prompts. Parsed templates are cached by source text.
type RoutePromptBuilder struct {
	mu        sync.Mutex
	templates map[string]*template.Template
}

var _ pb.PromptBuilder = (*RoutePromptBuilder)(nil)

// New returns a new instance of RoutePromptBuilder.
func New() *RoutePromptBuilder {
	return &RoutePromptBuilder{templates: make(map[string]*template.Template)}
}

// Build renders the system prompt for r and wraps query as the user message.
func (b *RoutePromptBuilder) Build(r *route.Route, query string, settings pb.Settings) (model.Request, error) {
	if r == nil {
		return model.Request{}, fmt.Errorf("cannot build prompt without a route")
	}
	source := settings.SystemPrompt
	if source == "" {
		source = DefaultSystemPrompt
	}
	tmpl, err := b.template(source)
	if err != nil {
		return model.Request{}, err
	}

	var system strings.Builder
	data := promptData{
		Route:       r.Name,
		Description: r.Description,
		Handler:     r.HandlerID,
		Query:       query,
	}
	if err := tmpl.Execute(&system, data); err != nil {
		return model.Request{}, fmt.Errorf("failed to render system prompt for route %q: %w", r.Name, err)
	}

	return model.Request{
		Model:       settings.Model,
		System:      strings.TrimSpace(system.String()),
		Messages:    []model.Message{{Role: model.RoleUser, Content: query}},
		Temperature: settings.Temperature,
		MaxTokens:   settings.MaxTokens,
	}, nil
}

func (b *RoutePromptBuilder) template(source string) (*template.Template, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.templates[source]; ok {
		return t, nil
	}
	t, err := template.New("system").Option("missingkey=error").Parse(source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse system prompt template: %w", err)
	}
	b.templates[source] = t
	return t, nil
}
