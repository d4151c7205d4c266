package providers

import (
	"context"

	"google.golang.org/genai"

	"github.com/hirebot-dev/hirebot/pkg/chat/config"
	apperrors "github.com/hirebot-dev/hirebot/pkg/chat/errors"
	"github.com/hirebot-dev/hirebot/pkg/chat/models"
)

type geminiProvider struct {
	client *genai.Client
	cfg    *config.ProviderConfig
}

// NewGeminiProvider creates the Google Gemini transport
func NewGeminiProvider(cfg *config.ProviderConfig) (Provider, error) {
	if cfg == nil {
		return nil, apperrors.New(apperrors.ErrCodeConfigInvalid, "gemini config is required", nil)
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeConfigInvalid, "failed to create gemini client", err)
	}

	return &geminiProvider{
		client: client,
		cfg:    cfg,
	}, nil
}

func (p *geminiProvider) Name() string {
	return config.ProviderGemini
}

func (p *geminiProvider) SupportedModels() []string {
	return []string{
		"gemini-2.0-flash",
		"gemini-1.5-pro",
		"gemini-1.5-flash",
	}
}

func (p *geminiProvider) SupportsTools() bool {
	return true
}

// Chat sends the conversation and returns one complete response
func (p *geminiProvider) Chat(ctx context.Context, request Request) (*Response, error) {
	contents := p.convertMessages(request.Messages)
	genConfig := p.buildConfig(request)

	resp, err := p.client.Models.GenerateContent(ctx, p.cfg.Model, contents, genConfig)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeProviderError, "gemini API call failed", err)
	}

	return p.convertResponse(resp), nil
}

// ChatStream sends the conversation and streams the response
func (p *geminiProvider) ChatStream(ctx context.Context, request Request) (<-chan StreamChunk, <-chan error) {
	chunkChan := make(chan StreamChunk, 10)
	errChan := make(chan error, 1)

	go func() {
		defer close(chunkChan)
		defer close(errChan)

		contents := p.convertMessages(request.Messages)
		genConfig := p.buildConfig(request)

		var finishReason string
		for resp, err := range p.client.Models.GenerateContentStream(ctx, p.cfg.Model, contents, genConfig) {
			if err != nil {
				errChan <- apperrors.New(apperrors.ErrCodeProviderError, "gemini stream failed", err)
				return
			}

			if len(resp.Candidates) == 0 {
				continue
			}
			candidate := resp.Candidates[0]
			if candidate.FinishReason != "" {
				finishReason = string(candidate.FinishReason)
			}
			if candidate.Content == nil {
				continue
			}

			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					chunkChan <- StreamChunk{
						Content: part.Text,
						Delta:   true,
					}
				}
				if part.FunctionCall != nil {
					chunkChan <- StreamChunk{
						ToolCalls: []*models.ToolInvocation{
							models.NewToolInvocation(part.FunctionCall.ID, part.FunctionCall.Name, part.FunctionCall.Args),
						},
						Delta: true,
					}
				}
			}
		}

		chunkChan <- StreamChunk{
			FinishReason: finishReason,
			Delta:        false,
		}
	}()

	return chunkChan, errChan
}

func (p *geminiProvider) convertMessages(messages []*models.Message) []*genai.Content {
	var contents []*genai.Content

	for _, msg := range renderHistory(messages) {
		role := string(msg.Role)
		if msg.Role == models.RoleAssistant {
			role = "model"
		}
		// Gemini has no dedicated system role in the contents list; system
		// turns ride along as user turns.
		if msg.Role == models.RoleSystem {
			role = "user"
		}

		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}

	return contents
}

func (p *geminiProvider) buildConfig(request Request) *genai.GenerateContentConfig {
	genConfig := &genai.GenerateContentConfig{}

	if p.cfg.MaxTokens > 0 {
		genConfig.MaxOutputTokens = int32(p.cfg.MaxTokens)
	}
	if p.cfg.Temperature != nil {
		genConfig.Temperature = genai.Ptr(float32(*p.cfg.Temperature))
	}
	if p.cfg.TopP != nil {
		genConfig.TopP = genai.Ptr(float32(*p.cfg.TopP))
	}

	if len(request.Tools) > 0 {
		var declarations []*genai.FunctionDeclaration
		for _, tool := range request.Tools {
			declarations = append(declarations, &genai.FunctionDeclaration{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  convertSchema(tool.Parameters),
			})
		}
		genConfig.Tools = []*genai.Tool{{FunctionDeclarations: declarations}}
	}

	return genConfig
}

// convertSchema maps a JSON-Schema parameter map onto the genai schema type.
func convertSchema(params map[string]interface{}) *genai.Schema {
	if params == nil {
		return nil
	}

	schema := &genai.Schema{}

	if schemaType, ok := params["type"].(string); ok {
		schema.Type = genai.Type(schemaType)
	}
	if desc, ok := params["description"].(string); ok {
		schema.Description = desc
	}

	if props, ok := params["properties"].(map[string]interface{}); ok {
		schema.Properties = make(map[string]*genai.Schema, len(props))
		for key, value := range props {
			if propMap, ok := value.(map[string]interface{}); ok {
				schema.Properties[key] = convertSchema(propMap)
			}
		}
	}

	if required, ok := params["required"].([]interface{}); ok {
		for _, field := range required {
			if fieldStr, ok := field.(string); ok {
				schema.Required = append(schema.Required, fieldStr)
			}
		}
	} else if required, ok := params["required"].([]string); ok {
		schema.Required = required
	}

	return schema
}

func (p *geminiProvider) convertResponse(resp *genai.GenerateContentResponse) *Response {
	response := &Response{}

	if resp.UsageMetadata != nil {
		response.Usage = Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	if len(resp.Candidates) == 0 {
		return response
	}
	candidate := resp.Candidates[0]
	response.FinishReason = string(candidate.FinishReason)

	if candidate.Content == nil {
		return response
	}

	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			response.Content += part.Text
		}
		if part.FunctionCall != nil {
			response.ToolCalls = append(response.ToolCalls,
				models.NewToolInvocation(part.FunctionCall.ID, part.FunctionCall.Name, part.FunctionCall.Args))
		}
	}

	return response
}
