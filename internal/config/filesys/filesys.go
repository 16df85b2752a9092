package filesys

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/egobogo/semroute/internal/config"
)

// Environment variables holding credentials.
const (
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvOpenAIBaseURL   = "OPENAI_BASE_URL"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
)

// FilesysConfigProvider is a concrete implementation of config.Provider that reads YAML config files.
type FilesysConfigProvider struct {
	envFile string
}

var _ config.Provider = (*FilesysConfigProvider)(nil)

// NewFilesysConfigProvider creates a provider. envFile names an optional
// dotenv file loaded before secrets are read; empty means ".env".
func NewFilesysConfigProvider(envFile string) *FilesysConfigProvider {
	return &FilesysConfigProvider{envFile: envFile}
}

// LoadConfig reads, unmarshals and validates the YAML configuration file,
// then attaches secrets from the environment.
func (f *FilesysConfigProvider) LoadConfig(path string) (*config.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	secrets, err := LoadSecrets(f.envFile)
	if err != nil {
		return nil, err
	}
	cfg.Secrets = secrets
	return cfg, nil
}

// Parse unmarshals and validates YAML configuration bytes.
func Parse(data []byte) (*config.Config, error) {
	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadSecrets loads envFile (if present) into the process environment and
// reads credentials from it. Variables already set take precedence over the file.
func LoadSecrets(envFile string) (config.Secrets, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config.Secrets{}, fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}
	return config.Secrets{
		OpenAIAPIKey:    os.Getenv(EnvOpenAIAPIKey),
		OpenAIBaseURL:   os.Getenv(EnvOpenAIBaseURL),
		AnthropicAPIKey: os.Getenv(EnvAnthropicAPIKey),
	}, nil
}
