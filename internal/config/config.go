package config

import (
	"errors"
	"fmt"

	"github.com/egobogo/semroute/internal/route"
)

// Encoder providers.
const (
	EncoderOpenAI = "openai"
	EncoderHash   = "hash"
)

// Handler providers.
const (
	HandlerOpenAI    = "openai"
	HandlerAnthropic = "anthropic"
	HandlerEcho      = "echo"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the entire YAML configuration.
type Config struct {
	Encoder      Encoder            `yaml:"encoder" json:"encoder"`
	Index        Index              `yaml:"index,omitempty" json:"index,omitempty"`
	DefaultRoute string             `yaml:"default_route,omitempty" json:"default_route,omitempty"`
	Routes       []route.Definition `yaml:"routes" json:"routes"`
	Handlers     []Handler          `yaml:"handlers" json:"handlers"`

	// Secrets are never read from the YAML file.
	Secrets Secrets `yaml:"-" json:"-"`
}

// Encoder selects the embedding provider shared by every route.
type Encoder struct {
	Provider    string `yaml:"provider" json:"provider"`
	Model       string `yaml:"model,omitempty" json:"model,omitempty"`
	Dimensions  int    `yaml:"dimensions,omitempty" json:"dimensions,omitempty"`
	Concurrency int    `yaml:"concurrency,omitempty" json:"concurrency,omitempty"`
	CacheSize   int    `yaml:"cache_size,omitempty" json:"cache_size,omitempty"`
	MaxRetries  int    `yaml:"max_retries,omitempty" json:"max_retries,omitempty"`
	BaseURL     string `yaml:"base_url,omitempty" json:"base_url,omitempty"`
}

// Index enables the HNSW accelerated matcher.
type Index struct {
	Enabled    bool  `yaml:"enabled" json:"enabled"`
	M          int   `yaml:"m,omitempty" json:"m,omitempty"`
	EfSearch   int   `yaml:"ef_search,omitempty" json:"ef_search,omitempty"`
	Candidates int   `yaml:"candidates,omitempty" json:"candidates,omitempty"`
	Seed       int64 `yaml:"seed,omitempty" json:"seed,omitempty"`
}

// Handler configures one downstream generation target.
type Handler struct {
	ID           string   `yaml:"id" json:"id"`
	Provider     string   `yaml:"provider" json:"provider"`
	Model        string   `yaml:"model,omitempty" json:"model,omitempty"`
	SystemPrompt string   `yaml:"system_prompt,omitempty" json:"system_prompt,omitempty"`
	Temperature  *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	MaxTokens    int      `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
	Stream       bool     `yaml:"stream,omitempty" json:"stream,omitempty"`
	BaseURL      string   `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	MaxRetries   int      `yaml:"max_retries,omitempty" json:"max_retries,omitempty"`
}

// Secrets carries credentials read from the environment.
type Secrets struct {
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string
}

// Provider is an interface for loading a configuration.
type Provider interface {
	LoadConfig(path string) (*Config, error)
}

// Definitions returns the route definitions in configuration order.
func (c *Config) Definitions() []route.Definition {
	return c.Routes
}

// Handler returns the handler configuration with the given id.
func (c *Config) Handler(id string) (Handler, bool) {
	for _, h := range c.Handlers {
		if h.ID == id {
			return h, true
		}
	}
	return Handler{}, false
}

// Validate checks the structure of the configuration. It does not look at
// secrets; missing credentials surface when a provider is constructed.
func (c *Config) Validate() error {
	switch c.Encoder.Provider {
	case EncoderOpenAI, EncoderHash:
	case "":
		return fmt.Errorf("%w: encoder provider is required", ErrInvalid)
	default:
		return fmt.Errorf("%w: unknown encoder provider %q", ErrInvalid, c.Encoder.Provider)
	}

	if c.Index.M < 0 || c.Index.EfSearch < 0 || c.Index.Candidates < 0 {
		return fmt.Errorf("%w: index settings cannot be negative", ErrInvalid)
	}

	handlers := make(map[string]struct{}, len(c.Handlers))
	for _, h := range c.Handlers {
		if h.ID == "" {
			return fmt.Errorf("%w: handler id is required", ErrInvalid)
		}
		if _, dup := handlers[h.ID]; dup {
			return fmt.Errorf("%w: duplicate handler %q", ErrInvalid, h.ID)
		}
		switch h.Provider {
		case HandlerOpenAI, HandlerAnthropic, HandlerEcho:
		default:
			return fmt.Errorf("%w: handler %q has unknown provider %q", ErrInvalid, h.ID, h.Provider)
		}
		handlers[h.ID] = struct{}{}
	}

	names := make(map[string]struct{}, len(c.Routes))
	for i, r := range c.Routes {
		if r.Name == "" {
			return fmt.Errorf("%w: route %d has no name", ErrInvalid, i)
		}
		if _, dup := names[r.Name]; dup {
			return fmt.Errorf("%w: duplicate route %q", ErrInvalid, r.Name)
		}
		names[r.Name] = struct{}{}
		if r.HandlerID == "" {
			continue
		}
		if _, ok := handlers[r.HandlerID]; !ok {
			return fmt.Errorf("%w: route %q references unknown handler %q", ErrInvalid, r.Name, r.HandlerID)
		}
	}

	if c.DefaultRoute != "" {
		if _, ok := names[c.DefaultRoute]; !ok {
			return fmt.Errorf("%w: default route %q not found", ErrInvalid, c.DefaultRoute)
		}
	}
	return nil
}
