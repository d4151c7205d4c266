// Package store persists sessions and their append-only message logs.
// Appending is the only mutation path for conversation history; messages are
// never updated or deleted individually, only together with their session.
package store

import (
	"context"

	"github.com/hirebot-dev/hirebot/pkg/chat/config"
	apperrors "github.com/hirebot-dev/hirebot/pkg/chat/errors"
	"github.com/hirebot-dev/hirebot/pkg/chat/models"
)

// Store defines the interface for session persistence
type Store interface {
	// CreateSession creates a session with an empty message log. An empty
	// userID fails with NOT_AUTHENTICATED.
	CreateSession(ctx context.Context, userID, employeeID, provider string) (*models.Session, error)

	// GetSession fails with NOT_FOUND for unknown ids.
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)

	// ListSessions returns the user's sessions, most recently updated first.
	// Each call recomputes from current storage state.
	ListSessions(ctx context.Context, userID string) ([]*models.Session, error)

	// ListMessages returns the session's messages in append order.
	ListMessages(ctx context.Context, sessionID string) ([]*models.Message, error)

	// AppendMessage atomically appends to the session's log and touches the
	// session's last-modified marker. The returned message carries the
	// assigned sequence number.
	AppendMessage(ctx context.Context, sessionID string, msg *models.Message) (*models.Message, error)

	// DeleteSession removes the session and its messages.
	DeleteSession(ctx context.Context, sessionID string) error
}

// New builds a Store from the database configuration.
func New(cfg config.DatabaseConfig) (Store, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite", "postgres":
		return newGormStore(cfg)
	default:
		return nil, apperrors.New(apperrors.ErrCodeConfigInvalid,
			"unsupported database driver: "+cfg.Driver, nil)
	}
}
