package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egobogo/semroute/internal/config"
	"github.com/egobogo/semroute/internal/config/filesys"
	"github.com/egobogo/semroute/internal/embedding/cached"
	"github.com/egobogo/semroute/internal/embedding/hashed"
	"github.com/egobogo/semroute/internal/handler/inmemory"
	"github.com/egobogo/semroute/internal/route"
)

const testConfig = `
encoder:
  provider: hash
  dimensions: 1024
  concurrency: 2
index:
  enabled: true
  seed: 3
default_route: chitchat
routes:
  - name: shipping
    utterances: ["where is my package", "track my delivery"]
    score_threshold: 0.4
    handler: echo
  - name: chitchat
    utterances: ["hello there", "good morning"]
    score_threshold: 0.4
    handler: echo
handlers:
  - id: echo
    provider: echo
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "semroute.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRoutesCommand(t *testing.T) {
	out, err := run(t, "routes", "--config", writeConfig(t), "--env", filepath.Join(t.TempDir(), "none.env"))
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Regexp(t, `shipping\s+0\.400\s+2\s+echo\s+false`, out)
	assert.Regexp(t, `chitchat\s+0\.400\s+2\s+echo\s+true`, out)
}

func TestRouteCommand(t *testing.T) {
	cfg := writeConfig(t)
	env := filepath.Join(t.TempDir(), "none.env")

	out, err := run(t, "route", "--config", cfg, "--env", env, "where", "is", "my", "package")
	require.NoError(t, err)
	assert.Contains(t, out, "Route: shipping")
	assert.Contains(t, out, "Fallback: false")

	out, err = run(t, "route", "--config", cfg, "--env", env, "quantum chromodynamics lattice gauge theory renormalization group flow")
	require.NoError(t, err)
	assert.Contains(t, out, "Route: chitchat")
	assert.Contains(t, out, "Score: 0.000000")
	assert.Contains(t, out, "Fallback: true")
}

func TestChatCommand(t *testing.T) {
	out, err := run(t, "chat", "--config", writeConfig(t), "--env", filepath.Join(t.TempDir(), "none.env"), "track my delivery")
	require.NoError(t, err)
	assert.Equal(t, "[shipping] track my delivery\n", out)
}

func TestSimilarityCommand(t *testing.T) {
	out, err := run(t, "similarity", "--config", writeConfig(t), "--env", filepath.Join(t.TempDir(), "none.env"), "track my delivery", "track my delivery")
	require.NoError(t, err)
	assert.Contains(t, out, "Cosine similarity: 1.000000")
	assert.Regexp(t, `Cosine distance: -?0\.000000`, out)
}

func TestMissingConfig(t *testing.T) {
	_, err := run(t, "routes", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "failed to load config")
}

func TestNewProvider(t *testing.T) {
	p, err := newProvider(&config.Config{Encoder: config.Encoder{Provider: config.EncoderHash, Dimensions: 16}})
	require.NoError(t, err)
	assert.IsType(t, &hashed.Provider{}, p)

	p, err = newProvider(&config.Config{Encoder: config.Encoder{Provider: config.EncoderHash, CacheSize: 8}})
	require.NoError(t, err)
	assert.IsType(t, &cached.Provider{}, p)

	_, err = newProvider(&config.Config{Encoder: config.Encoder{Provider: config.EncoderOpenAI}})
	assert.ErrorContains(t, err, "OPENAI_API_KEY")
}

func TestNewRegistry(t *testing.T) {
	cfg := &config.Config{
		Handlers: []config.Handler{
			{ID: "echo", Provider: config.HandlerEcho},
			{ID: "gpt", Provider: config.HandlerOpenAI, Model: "gpt-4o-mini"},
			{ID: "claude", Provider: config.HandlerAnthropic, Stream: true},
		},
		Secrets: config.Secrets{OpenAIAPIKey: "sk-test", AnthropicAPIKey: "ant-test"},
	}
	reg, err := newRegistry(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"claude", "echo", "gpt"}, reg.IDs())

	h, err := reg.Lookup("claude")
	require.NoError(t, err)
	mh, ok := h.(*inmemory.ModelHandler)
	require.True(t, ok)
	assert.True(t, mh.Stream)

	cfg.Secrets.AnthropicAPIKey = ""
	_, err = newRegistry(cfg)
	assert.ErrorContains(t, err, "ANTHROPIC_API_KEY")
}

func TestNewRouterAppliesDefaultAndMetrics(t *testing.T) {
	cfg, err := filesys.Parse([]byte(testConfig))
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	r, err := newRouter(context.Background(), cfg, zerolog.Nop(), reg)
	require.NoError(t, err)
	assert.Equal(t, "chitchat", r.Store().Default().Name)

	_, err = r.Dispatch(context.Background(), "hello there", nil)
	require.NoError(t, err)
	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	cfg.Routes = append(cfg.Routes, route.Definition{Name: "shipping"})
	_, err = newRouter(context.Background(), cfg, zerolog.Nop(), nil)
	assert.ErrorIs(t, err, route.ErrDuplicateRoute)
}
