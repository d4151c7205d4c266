package providers

import (
	"context"
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hirebot-dev/hirebot/pkg/chat/config"
	apperrors "github.com/hirebot-dev/hirebot/pkg/chat/errors"
	"github.com/hirebot-dev/hirebot/pkg/chat/models"
)

type anthropicProvider struct {
	client *anthropic.Client
	cfg    *config.ProviderConfig
}

// NewAnthropicProvider creates the Anthropic transport
func NewAnthropicProvider(cfg *config.ProviderConfig) (Provider, error) {
	if cfg == nil {
		return nil, apperrors.New(apperrors.ErrCodeConfigInvalid, "anthropic config is required", nil)
	}

	opts := []option.RequestOption{}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &anthropicProvider{
		client: anthropic.NewClient(opts...),
		cfg:    cfg,
	}, nil
}

func (p *anthropicProvider) Name() string {
	return config.ProviderAnthropic
}

func (p *anthropicProvider) SupportedModels() []string {
	return []string{
		"claude-3-5-sonnet-20241022",
		"claude-3-5-haiku-20241022",
		"claude-3-opus-20240229",
		"claude-3-haiku-20240307",
	}
}

func (p *anthropicProvider) SupportsTools() bool {
	return true
}

// Chat sends the conversation and returns one complete response
func (p *anthropicProvider) Chat(ctx context.Context, request Request) (*Response, error) {
	params := p.buildParams(request)

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeProviderError, "anthropic API call failed", err)
	}

	response := &Response{
		FinishReason: string(message.StopReason),
		Usage: Usage{
			PromptTokens:     int(message.Usage.InputTokens),
			CompletionTokens: int(message.Usage.OutputTokens),
			TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
		},
	}

	for _, block := range message.Content {
		switch block.Type {
		case anthropic.ContentBlockTypeText:
			response.Content += block.Text
		case anthropic.ContentBlockTypeToolUse:
			var args map[string]interface{}
			if err := json.Unmarshal(block.Input, &args); err != nil {
				return nil, apperrors.New(apperrors.ErrCodeProviderError, "failed to parse tool input", err)
			}
			response.ToolCalls = append(response.ToolCalls,
				models.NewToolInvocation(block.ID, block.Name, args))
		}
	}

	return response, nil
}

// ChatStream sends the conversation and streams the response
func (p *anthropicProvider) ChatStream(ctx context.Context, request Request) (<-chan StreamChunk, <-chan error) {
	chunkChan := make(chan StreamChunk, 10)
	errChan := make(chan error, 1)

	go func() {
		defer close(chunkChan)
		defer close(errChan)

		params := p.buildParams(request)
		stream := p.client.Messages.NewStreaming(ctx, params)

		for stream.Next() {
			event := stream.Current()

			switch event.Type {
			case anthropic.MessageStreamEventTypeContentBlockDelta:
				if delta, ok := event.Delta.(anthropic.ContentBlockDeltaEventDelta); ok && delta.Text != "" {
					chunkChan <- StreamChunk{
						Content: delta.Text,
						Delta:   true,
					}
				}

			case anthropic.MessageStreamEventTypeMessageStop:
				chunkChan <- StreamChunk{
					FinishReason: string(event.Message.StopReason),
					Delta:        false,
				}
			}
		}

		if err := stream.Err(); err != nil {
			errChan <- apperrors.New(apperrors.ErrCodeProviderError, "anthropic stream failed", err)
		}
	}()

	return chunkChan, errChan
}

func (p *anthropicProvider) buildParams(request Request) anthropic.MessageNewParams {
	messages := make([]anthropic.MessageParam, 0, len(request.Messages))
	var system string

	for _, msg := range renderHistory(request.Messages) {
		switch msg.Role {
		case models.RoleSystem:
			system = msg.Content
		case models.RoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case models.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.F(p.cfg.Model),
		Messages:  anthropic.F(messages),
		MaxTokens: anthropic.Int(int64(p.cfg.MaxTokens)),
	}

	if p.cfg.Temperature != nil {
		params.Temperature = anthropic.Float(*p.cfg.Temperature)
	}
	if p.cfg.TopP != nil {
		params.TopP = anthropic.Float(*p.cfg.TopP)
	}

	if system != "" {
		params.System = anthropic.F([]anthropic.TextBlockParam{
			anthropic.NewTextBlock(system),
		})
	}

	if len(request.Tools) > 0 {
		tools := make([]anthropic.ToolUnionUnionParam, 0, len(request.Tools))
		for _, tool := range request.Tools {
			tools = append(tools, anthropic.ToolParam{
				Name:        anthropic.F(tool.Name),
				Description: anthropic.F(tool.Description),
				InputSchema: anthropic.F[interface{}](tool.Parameters),
			})
		}
		params.Tools = anthropic.F(tools)
	}

	return params
}
