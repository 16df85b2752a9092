package claude

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/egobogo/semroute/internal/model"
)

// Defaults used when the request leaves them unset.
const (
	DefaultModel     = "claude-3-5-haiku-latest"
	DefaultMaxTokens = 1024
)

// Config holds the settings for Client.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// Client implements model.Client using the Anthropic messages API.
type Client struct {
	client    anthropic.Client
	modelName string
}

var _ model.Client = (*Client)(nil)

// New creates a Client.
func New(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient), option.WithMaxRetries(0))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{
		client:    anthropic.NewClient(opts...),
		modelName: cfg.Model,
	}
}

// Model returns the default model.
func (c *Client) Model() string {
	return c.modelName
}

// Chat sends a request and concatenates the text blocks of the answer.
func (c *Client) Chat(ctx context.Context, req model.Request) (model.Response, error) {
	resp, err := c.client.Messages.New(ctx, c.params(req))
	if err != nil {
		return model.Response{}, fmt.Errorf("failed to call Anthropic API: %w", err)
	}
	var text strings.Builder
	for _, block := range resp.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(b.Text)
		}
	}
	if text.Len() == 0 {
		return model.Response{}, model.ErrEmptyCompletion
	}
	return model.Response{
		Text:         text.String(),
		Model:        string(resp.Model),
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}

// ChatStream streams the answer, calling onChunk for every text delta.
func (c *Client) ChatStream(ctx context.Context, req model.Request, onChunk model.ChunkFunc) (model.Response, error) {
	params := c.params(req)
	stream := c.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	var text strings.Builder
	out := model.Response{Model: string(params.Model)}
	for stream.Next() {
		event := stream.Current()
		switch event.Type {
		case "message_start":
			out.Model = string(event.Message.Model)
			out.InputTokens = event.Message.Usage.InputTokens
		case "content_block_delta":
			if event.Delta.Text == "" {
				continue
			}
			text.WriteString(event.Delta.Text)
			if onChunk != nil {
				if err := onChunk(event.Delta.Text); err != nil {
					return model.Response{}, err
				}
			}
		case "message_delta":
			out.OutputTokens = event.Usage.OutputTokens
		}
	}
	if err := stream.Err(); err != nil {
		return model.Response{}, fmt.Errorf("failed to stream from Anthropic API: %w", err)
	}
	if text.Len() == 0 {
		return model.Response{}, model.ErrEmptyCompletion
	}
	out.Text = text.String()
	return out, nil
}

func (c *Client) params(req model.Request) anthropic.MessageNewParams {
	name := req.Model
	if name == "" {
		name = c.modelName
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, msg := range req.Messages {
		role := model.RoleUser
		if msg.Role == model.RoleAssistant {
			role = model.RoleAssistant
		}
		messages = append(messages, anthropic.MessageParam{
			Role: anthropic.MessageParamRole(role),
			Content: []anthropic.ContentBlockParamUnion{{
				OfText: &anthropic.TextBlockParam{Text: msg.Content},
			}},
		})
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(name),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	return params
}
