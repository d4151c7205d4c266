package providers

import (
	"fmt"

	"github.com/hirebot-dev/hirebot/pkg/chat/models"
)

// renderedMessage is the provider-neutral form of one history entry.
type renderedMessage struct {
	Role    models.Role
	Content string
}

// renderHistory flattens the durable log into plain conversational turns.
// Tool-role messages are rendered as user turns carrying the tool outcome,
// since the wire-level tool-call/tool-result pairing is provider specific and
// the durable log keeps only our own invocation record.
func renderHistory(messages []*models.Message) []renderedMessage {
	rendered := make([]renderedMessage, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case models.RoleSystem, models.RoleUser, models.RoleAssistant:
			if msg.Content == "" {
				continue
			}
			rendered = append(rendered, renderedMessage{Role: msg.Role, Content: msg.Content})
		case models.RoleTool:
			rendered = append(rendered, renderedMessage{
				Role:    models.RoleUser,
				Content: renderToolResult(msg),
			})
		}
	}
	return rendered
}

func renderToolResult(msg *models.Message) string {
	inv := msg.ToolCall
	if inv == nil {
		return msg.Content
	}
	if inv.Status == models.StatusFailed {
		return fmt.Sprintf("[tool %s failed] %s", inv.Name, inv.Error)
	}
	return fmt.Sprintf("[tool %s] %s", inv.Name, inv.Result)
}
