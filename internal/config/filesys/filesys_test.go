package filesys

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egobogo/semroute/internal/config"
)

const sampleYAML = `
encoder:
  provider: openai
  model: text-embedding-3-small
  concurrency: 2
  cache_size: 64
  max_retries: 3
index:
  enabled: true
  candidates: 8
default_route: chat
routes:
  - name: math
    description: Questions about mathematics
    utterances: ["what is 2+2", "solve this equation"]
    score_threshold: 0.5
    handler: math-gpt
  - name: chat
    utterances: ["hello"]
    score_threshold: 0.1
    handler: echo
handlers:
  - id: math-gpt
    provider: openai
    model: gpt-4o-mini
    temperature: 0.7
    max_tokens: 1024
    stream: true
  - id: echo
    provider: echo
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, config.EncoderOpenAI, cfg.Encoder.Provider)
	assert.Equal(t, 2, cfg.Encoder.Concurrency)
	assert.Equal(t, 64, cfg.Encoder.CacheSize)
	assert.Equal(t, 3, cfg.Encoder.MaxRetries)
	assert.True(t, cfg.Index.Enabled)
	assert.Equal(t, 8, cfg.Index.Candidates)
	assert.Equal(t, "chat", cfg.DefaultRoute)

	require.Len(t, cfg.Routes, 2)
	math := cfg.Routes[0]
	assert.Equal(t, "math", math.Name)
	assert.Equal(t, "Questions about mathematics", math.Description)
	assert.Equal(t, []string{"what is 2+2", "solve this equation"}, math.Utterances)
	assert.Equal(t, 0.5, math.ScoreThreshold)
	assert.Equal(t, "math-gpt", math.HandlerID)

	gpt, ok := cfg.Handler("math-gpt")
	require.True(t, ok)
	require.NotNil(t, gpt.Temperature)
	assert.Equal(t, 0.7, *gpt.Temperature)
	assert.Equal(t, 1024, gpt.MaxTokens)
	assert.True(t, gpt.Stream)
}

func TestParseRejectsInvalid(t *testing.T) {
	_, err := Parse([]byte("encoder: ["))
	assert.ErrorContains(t, err, "failed to unmarshal YAML config")

	_, err = Parse([]byte("routes:\n  - name: a\n"))
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "semroute.yaml")
	envPath := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(cfgPath, []byte(sampleYAML), 0o600))
	require.NoError(t, os.WriteFile(envPath, []byte("OPENAI_API_KEY=sk-file\nANTHROPIC_API_KEY=ant-file\n"), 0o600))

	t.Setenv(EnvOpenAIAPIKey, "")
	t.Setenv(EnvAnthropicAPIKey, "ant-env")
	t.Setenv(EnvOpenAIBaseURL, "")
	// godotenv never overrides variables that are already set, even to "".
	os.Unsetenv(EnvOpenAIAPIKey)
	os.Unsetenv(EnvOpenAIBaseURL)

	cfg, err := NewFilesysConfigProvider(envPath).LoadConfig(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "sk-file", cfg.Secrets.OpenAIAPIKey)
	assert.Equal(t, "ant-env", cfg.Secrets.AnthropicAPIKey)
	assert.Empty(t, cfg.Secrets.OpenAIBaseURL)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := NewFilesysConfigProvider("").LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to open config file")
}

func TestLoadSecretsToleratesMissingEnvFile(t *testing.T) {
	t.Setenv(EnvAnthropicAPIKey, "from-env")
	secrets, err := LoadSecrets(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", secrets.AnthropicAPIKey)
}
