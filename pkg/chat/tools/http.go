package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hirebot-dev/hirebot/pkg/chat/config"
	apperrors "github.com/hirebot-dev/hirebot/pkg/chat/errors"
)

const defaultHTTPToolTimeout = 2 * time.Minute

// HTTPHandler forwards invocations to an external HTTP endpoint as a
// `{name, arguments}` JSON POST and returns the response body as the result.
type HTTPHandler struct {
	BaseHandler
	endpoint   string
	authToken  string
	httpClient *http.Client
}

// NewHTTPHandler creates a handler from a tool configuration entry.
func NewHTTPHandler(cfg config.ToolConfig) *HTTPHandler {
	return &HTTPHandler{
		BaseHandler: NewBaseHandler(cfg.Name, cfg.Description, nil),
		endpoint:    cfg.Endpoint,
		authToken:   cfg.AuthToken,
		httpClient: &http.Client{
			Timeout: defaultHTTPToolTimeout,
		},
	}
}

func (h *HTTPHandler) Run(ctx context.Context, args map[string]interface{}) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"name":      h.Name(),
		"arguments": args,
	})
	if err != nil {
		return "", apperrors.New(apperrors.ErrCodeToolExecution, "failed to marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", apperrors.New(apperrors.ErrCodeToolExecution, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+h.authToken)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", apperrors.New(apperrors.ErrCodeToolExecution, "request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.New(apperrors.ErrCodeToolExecution, "failed to read response", err)
	}

	if resp.StatusCode >= 400 {
		return "", apperrors.New(apperrors.ErrCodeToolExecution,
			fmt.Sprintf("endpoint returned status %d: %s", resp.StatusCode, string(respBody)), nil)
	}

	return string(respBody), nil
}
