package tools

import (
	"context"
	"time"

	apperrors "github.com/hirebot-dev/hirebot/pkg/chat/errors"
)

// CurrentTimeHandler reports the current time, optionally in a named zone.
type CurrentTimeHandler struct {
	BaseHandler
	now func() time.Time
}

// NewCurrentTimeHandler creates a new CurrentTimeHandler
func NewCurrentTimeHandler() *CurrentTimeHandler {
	return &CurrentTimeHandler{
		BaseHandler: NewBaseHandler("current_time", "Get the current date and time",
			map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"zone": map[string]interface{}{
						"type":        "string",
						"description": "IANA time zone name, defaults to UTC",
					},
				},
			}),
		now: time.Now,
	}
}

func (h *CurrentTimeHandler) Run(_ context.Context, args map[string]interface{}) (string, error) {
	loc := time.UTC
	if zone, ok := args["zone"].(string); ok && zone != "" {
		var err error
		loc, err = time.LoadLocation(zone)
		if err != nil {
			return "", apperrors.New(apperrors.ErrCodeInvalidInput, "unknown time zone: "+zone, err)
		}
	}
	return h.now().In(loc).Format(time.RFC3339), nil
}
