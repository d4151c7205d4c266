// Package providers contains the transport layer for hosted LLM services.
// Each provider implements the Provider interface; a Registry maps provider
// ids to transports so callers route by id instead of switching on names.
package providers

import (
	"context"

	"github.com/hirebot-dev/hirebot/pkg/chat/models"
)

// Provider is the interface every LLM transport implements.
type Provider interface {
	// Chat sends the conversation and returns one complete response
	Chat(ctx context.Context, request Request) (*Response, error)

	// ChatStream sends the conversation and streams the response
	ChatStream(ctx context.Context, request Request) (<-chan StreamChunk, <-chan error)

	// Name returns the provider id
	Name() string

	// SupportedModels returns a list of supported model names
	SupportedModels() []string

	// SupportsTools returns whether this provider supports tool calling
	SupportsTools() bool
}

// Request carries the full ordered message history plus the tool definitions
// the provider may call. Model parameters live on the transport, fixed at
// construction from configuration.
type Request struct {
	Messages []*models.Message
	Tools    []ToolDefinition
}

// ToolDefinition defines a tool that can be called by the model
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"` // JSON Schema
}

// Response represents one complete model response
type Response struct {
	Content      string
	ToolCalls    []*models.ToolInvocation
	FinishReason string
	Usage        Usage
}

// Usage represents token usage information
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// StreamChunk represents a chunk of streaming response
type StreamChunk struct {
	Content      string
	ToolCalls    []*models.ToolInvocation
	FinishReason string
	Delta        bool // true if this is a delta update, false if complete
}
