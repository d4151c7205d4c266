// Package models defines the conversation data model: sessions, messages and
// tool invocations. Messages form an append-only log per session; nothing in
// this package or its consumers mutates a message after it has been persisted.
package models

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/hirebot-dev/hirebot/pkg/chat/errors"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Session represents one conversation between a user and a hired employee.
// The provider is fixed at creation and never changes.
type Session struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	EmployeeID string    `json:"employee_id"`
	Provider   string    `json:"provider"`
	Title      string    `json:"title,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Message is one immutable entry in a session's log.
// Seq is assigned by the store on append and gives the total order within a
// session; it is zero until the message has been persisted.
type Message struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Role      Role            `json:"role"`
	Content   string          `json:"content"`
	Truncated bool            `json:"truncated,omitempty"`
	ToolCall  *ToolInvocation `json:"tool_call,omitempty"`
	Seq       uint64          `json:"seq"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewMessage creates an unpersisted message with a fresh id and timestamp.
func NewMessage(sessionID string, role Role, content string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// InvocationStatus tracks a tool invocation through its lifecycle.
type InvocationStatus string

const (
	StatusPending   InvocationStatus = "pending"
	StatusRunning   InvocationStatus = "running"
	StatusCompleted InvocationStatus = "completed"
	StatusFailed    InvocationStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s InvocationStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from s to next is a legal forward step.
// Transitions are monotonic: pending -> running -> completed|failed.
func (s InvocationStatus) CanTransition(next InvocationStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusRunning || next == StatusFailed
	case StatusRunning:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// ToolInvocation describes a provider-requested side-effecting action.
type ToolInvocation struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
	Status    InvocationStatus       `json:"status"`
	Result    string                 `json:"result,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// NewToolInvocation creates a pending invocation. An empty id gets a fresh
// uuid; providers that supply call ids (OpenAI, Anthropic) keep theirs.
func NewToolInvocation(id, name string, args map[string]interface{}) *ToolInvocation {
	if id == "" {
		id = uuid.NewString()
	}
	return &ToolInvocation{
		ID:        id,
		Name:      name,
		Arguments: args,
		Status:    StatusPending,
	}
}

// Transition moves the invocation to the given status, rejecting backward or
// out-of-terminal transitions.
func (t *ToolInvocation) Transition(next InvocationStatus) error {
	if !t.Status.CanTransition(next) {
		return apperrors.New(apperrors.ErrCodeToolExecution,
			"illegal status transition "+string(t.Status)+" -> "+string(next), nil)
	}
	t.Status = next
	return nil
}
