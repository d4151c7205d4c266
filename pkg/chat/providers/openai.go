package providers

import (
	"context"
	"encoding/json"
	"io"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hirebot-dev/hirebot/pkg/chat/config"
	apperrors "github.com/hirebot-dev/hirebot/pkg/chat/errors"
	"github.com/hirebot-dev/hirebot/pkg/chat/models"
)

// openaiCompatProvider implements Provider over the OpenAI chat completions
// API. Perplexity reuses it with a different base URL (its API is
// OpenAI-compatible but does not support tool calling).
type openaiCompatProvider struct {
	name          string
	client        *openai.Client
	cfg           *config.ProviderConfig
	supportsTools bool
	models        []string
}

// NewOpenAIProvider creates the OpenAI transport
func NewOpenAIProvider(cfg *config.ProviderConfig) (Provider, error) {
	return newOpenAICompat(config.ProviderOpenAI, cfg, true, []string{
		"gpt-4o",
		"gpt-4o-mini",
		"gpt-4-turbo",
		"gpt-4",
		"o1-preview",
		"o1-mini",
	})
}

func newOpenAICompat(name string, cfg *config.ProviderConfig, supportsTools bool, supportedModels []string) (Provider, error) {
	if cfg == nil {
		return nil, apperrors.New(apperrors.ErrCodeConfigInvalid, name+" config is required", nil)
	}

	opts := []option.RequestOption{}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &openaiCompatProvider{
		name:          name,
		client:        openai.NewClient(opts...),
		cfg:           cfg,
		supportsTools: supportsTools,
		models:        supportedModels,
	}, nil
}

func (p *openaiCompatProvider) Name() string {
	return p.name
}

func (p *openaiCompatProvider) SupportedModels() []string {
	return p.models
}

func (p *openaiCompatProvider) SupportsTools() bool {
	return p.supportsTools
}

// Chat sends the conversation and returns one complete response
func (p *openaiCompatProvider) Chat(ctx context.Context, request Request) (*Response, error) {
	params := p.buildParams(request)

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeProviderError, p.name+" API call failed", err)
	}

	if len(completion.Choices) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeProviderError, "no completion choices returned", nil)
	}

	choice := completion.Choices[0]
	response := &Response{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Usage: Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}

	for _, tc := range choice.Message.ToolCalls {
		var args map[string]interface{}
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			return nil, apperrors.New(apperrors.ErrCodeProviderError, "failed to parse tool arguments", err)
		}
		response.ToolCalls = append(response.ToolCalls, models.NewToolInvocation(tc.ID, tc.Function.Name, args))
	}

	return response, nil
}

// ChatStream sends the conversation and streams the response
func (p *openaiCompatProvider) ChatStream(ctx context.Context, request Request) (<-chan StreamChunk, <-chan error) {
	chunkChan := make(chan StreamChunk, 10)
	errChan := make(chan error, 1)

	go func() {
		defer close(chunkChan)
		defer close(errChan)

		params := p.buildParams(request)
		stream := p.client.Chat.Completions.NewStreaming(ctx, params)

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}

			delta := chunk.Choices[0].Delta
			if delta.Content != "" {
				chunkChan <- StreamChunk{
					Content: delta.Content,
					Delta:   true,
				}
			}

			for _, tc := range delta.ToolCalls {
				if tc.Function.Name == "" {
					continue
				}
				var args map[string]interface{}
				json.Unmarshal([]byte(tc.Function.Arguments), &args)
				chunkChan <- StreamChunk{
					ToolCalls: []*models.ToolInvocation{
						models.NewToolInvocation(tc.ID, tc.Function.Name, args),
					},
					Delta: true,
				}
			}

			if chunk.Choices[0].FinishReason != "" {
				chunkChan <- StreamChunk{
					FinishReason: string(chunk.Choices[0].FinishReason),
					Delta:        false,
				}
			}
		}

		if err := stream.Err(); err != nil && err != io.EOF {
			errChan <- apperrors.New(apperrors.ErrCodeProviderError, p.name+" stream failed", err)
		}
	}()

	return chunkChan, errChan
}

func (p *openaiCompatProvider) buildParams(request Request) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(request.Messages))
	for _, msg := range renderHistory(request.Messages) {
		switch msg.Role {
		case models.RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case models.RoleUser:
			messages = append(messages, openai.UserMessage(msg.Content))
		case models.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:     openai.F(p.cfg.Model),
		Messages:  openai.F(messages),
		MaxTokens: openai.Int(int64(p.cfg.MaxTokens)),
	}

	if p.cfg.Temperature != nil {
		params.Temperature = openai.Float(*p.cfg.Temperature)
	}
	if p.cfg.TopP != nil {
		params.TopP = openai.Float(*p.cfg.TopP)
	}

	if p.supportsTools && len(request.Tools) > 0 {
		tools := make([]openai.ChatCompletionToolParam, 0, len(request.Tools))
		for _, tool := range request.Tools {
			tools = append(tools, openai.ChatCompletionToolParam{
				Type: openai.F(openai.ChatCompletionToolTypeFunction),
				Function: openai.F(openai.FunctionDefinitionParam{
					Name:        openai.String(tool.Name),
					Description: openai.String(tool.Description),
					Parameters:  openai.F(openai.FunctionParameters(tool.Parameters)),
				}),
			})
		}
		params.Tools = openai.F(tools)
	}

	return params
}
