package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egobogo/semroute/internal/route"
)

func validConfig() *Config {
	return &Config{
		Encoder: Encoder{Provider: EncoderHash},
		Routes: []route.Definition{
			{Name: "math", Utterances: []string{"2+2"}, HandlerID: "gpt"},
			{Name: "chat", Utterances: []string{"hi"}},
		},
		Handlers: []Handler{
			{ID: "gpt", Provider: HandlerOpenAI},
			{ID: "echo", Provider: HandlerEcho},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{name: "valid"},
		{name: "missing encoder", mutate: func(c *Config) { c.Encoder.Provider = "" }, want: "encoder provider is required"},
		{name: "unknown encoder", mutate: func(c *Config) { c.Encoder.Provider = "word2vec" }, want: `unknown encoder provider "word2vec"`},
		{name: "negative index", mutate: func(c *Config) { c.Index.Candidates = -1 }, want: "index settings cannot be negative"},
		{name: "handler without id", mutate: func(c *Config) { c.Handlers[0].ID = "" }, want: "handler id is required"},
		{name: "duplicate handler", mutate: func(c *Config) { c.Handlers[1].ID = "gpt" }, want: `duplicate handler "gpt"`},
		{name: "unknown handler provider", mutate: func(c *Config) { c.Handlers[1].Provider = "llama" }, want: `unknown provider "llama"`},
		{name: "route without name", mutate: func(c *Config) { c.Routes[1].Name = "" }, want: "route 1 has no name"},
		{name: "duplicate route", mutate: func(c *Config) { c.Routes[1].Name = "math" }, want: `duplicate route "math"`},
		{name: "unknown handler reference", mutate: func(c *Config) { c.Routes[1].HandlerID = "nope" }, want: `references unknown handler "nope"`},
		{name: "unknown default", mutate: func(c *Config) { c.DefaultRoute = "nope" }, want: `default route "nope" not found`},
		{name: "known default", mutate: func(c *Config) { c.DefaultRoute = "chat" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			err := cfg.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalid)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestHandlerLookup(t *testing.T) {
	cfg := validConfig()
	h, ok := cfg.Handler("echo")
	require.True(t, ok)
	assert.Equal(t, HandlerEcho, h.Provider)

	_, ok = cfg.Handler("missing")
	assert.False(t, ok)
}

func TestDefinitionsKeepOrder(t *testing.T) {
	defs := validConfig().Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "math", defs[0].Name)
	assert.Equal(t, "chat", defs[1].Name)
}
