package model

import (
	"context"
	"errors"
)

// Roles used in Message.Role.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrEmptyCompletion is returned when the provider answers without any text.
var ErrEmptyCompletion = errors.New("no output returned in response")

// Message represents a single message in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a provider-agnostic generation request.
type Request struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// Response is the text produced for a Request.
type Response struct {
	Text         string `json:"text"`
	Model        string `json:"model"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
}

// ChunkFunc receives streamed text deltas. Returning an error stops the stream.
type ChunkFunc func(chunk string) error

// Client is an abstract, model-agnostic interface for interacting with a language model.
type Client interface {
	// Chat sends the request and waits for the complete answer.
	Chat(ctx context.Context, req Request) (Response, error)
	// ChatStream sends the request and reports text deltas as they arrive.
	// The returned Response holds the accumulated text.
	ChatStream(ctx context.Context, req Request, onChunk ChunkFunc) (Response, error)
	// Model returns the default model name.
	Model() string
}
