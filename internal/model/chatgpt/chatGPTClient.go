package chatgpt

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/egobogo/semroute/internal/model"
)

// DefaultModel is used when neither the client nor the request names a model.
const DefaultModel = "gpt-4o-mini"

// Config holds the settings for ChatGPTClient.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// ChatGPTClient implements model.Client using the OpenAI chat completions API.
type ChatGPTClient struct {
	client    openai.Client
	modelName string
}

var _ model.Client = (*ChatGPTClient)(nil)

// NewChatGPTClient creates a new ChatGPTClient.
func NewChatGPTClient(cfg Config) *ChatGPTClient {
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
	return &ChatGPTClient{
		client:    openai.NewClient(opts...),
		modelName: cfg.Model,
	}
}

// Model returns the default model.
func (c *ChatGPTClient) Model() string {
	return c.modelName
}

// Chat sends a request and returns the first choice.
func (c *ChatGPTClient) Chat(ctx context.Context, req model.Request) (model.Response, error) {
	params := c.params(req)
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return model.Response{}, fmt.Errorf("failed to call OpenAI API: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return model.Response{}, model.ErrEmptyCompletion
	}
	return model.Response{
		Text:         resp.Choices[0].Message.Content,
		Model:        resp.Model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

// ChatStream streams the completion, calling onChunk for every text delta.
func (c *ChatGPTClient) ChatStream(ctx context.Context, req model.Request, onChunk model.ChunkFunc) (model.Response, error) {
	params := c.params(req)
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{
		IncludeUsage: openai.Bool(true),
	}
	stream := c.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	var text strings.Builder
	out := model.Response{Model: string(params.Model)}
	for stream.Next() {
		chunk := stream.Current()
		if chunk.Model != "" {
			out.Model = chunk.Model
		}
		if chunk.Usage.TotalTokens > 0 {
			out.InputTokens = chunk.Usage.PromptTokens
			out.OutputTokens = chunk.Usage.CompletionTokens
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		text.WriteString(delta)
		if onChunk != nil {
			if err := onChunk(delta); err != nil {
				return model.Response{}, err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return model.Response{}, fmt.Errorf("failed to stream from OpenAI API: %w", err)
	}
	if text.Len() == 0 {
		return model.Response{}, model.ErrEmptyCompletion
	}
	out.Text = text.String()
	return out, nil
}

func (c *ChatGPTClient) params(req model.Request) openai.ChatCompletionNewParams {
	name := req.Model
	if name == "" {
		name = c.modelName
	}
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessageParamUnion{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(req.System),
				},
			},
		})
	}
	for _, msg := range req.Messages {
		switch msg.Role {
		case model.RoleAssistant:
			messages = append(messages, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Content: openai.ChatCompletionAssistantMessageParamContentUnion{
						OfString: openai.String(msg.Content),
					},
				},
			})
		default:
			messages = append(messages, openai.ChatCompletionMessageParamUnion{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(msg.Content),
					},
				},
			})
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(name),
		Messages: messages,
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	return params
}
