package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirebot-dev/hirebot/pkg/chat/config"
	apperrors "github.com/hirebot-dev/hirebot/pkg/chat/errors"
	"github.com/hirebot-dev/hirebot/pkg/chat/models"
)

// stores runs the conformance suite against every Store implementation.
func stores(t *testing.T) map[string]Store {
	t.Helper()

	sqliteStore, err := New(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "chat.db"),
	})
	require.NoError(t, err)

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqliteStore,
	}
}

func TestStore_CreateAndGetSession(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			sess, err := s.CreateSession(ctx, "user-1", "emp-researcher", "openai")
			require.NoError(t, err)
			assert.NotEmpty(t, sess.ID)
			assert.Equal(t, "user-1", sess.UserID)
			assert.Equal(t, "emp-researcher", sess.EmployeeID)
			assert.Equal(t, "openai", sess.Provider)

			got, err := s.GetSession(ctx, sess.ID)
			require.NoError(t, err)
			assert.Equal(t, sess.ID, got.ID)

			msgs, err := s.ListMessages(ctx, sess.ID)
			require.NoError(t, err)
			assert.Empty(t, msgs)
		})
	}
}

func TestStore_CreateSessionRequiresUser(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.CreateSession(context.Background(), "", "emp-1", "openai")
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrCodeNotAuthenticated, apperrors.CodeOf(err))
		})
	}
}

func TestStore_GetSessionNotFound(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.GetSession(context.Background(), "no-such-session")
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.CodeOf(err))
		})
	}
}

func TestStore_AppendPreservesOrder(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sess, err := s.CreateSession(ctx, "user-1", "emp-1", "anthropic")
			require.NoError(t, err)

			for i := 0; i < 5; i++ {
				msg := models.NewMessage(sess.ID, models.RoleUser, fmt.Sprintf("message %d", i))
				stored, err := s.AppendMessage(ctx, sess.ID, msg)
				require.NoError(t, err)
				assert.NotZero(t, stored.Seq)
			}

			msgs, err := s.ListMessages(ctx, sess.ID)
			require.NoError(t, err)
			require.Len(t, msgs, 5)
			for i, msg := range msgs {
				assert.Equal(t, fmt.Sprintf("message %d", i), msg.Content)
				if i > 0 {
					assert.Greater(t, msg.Seq, msgs[i-1].Seq)
				}
			}
		})
	}
}

func TestStore_AppendToUnknownSession(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			msg := models.NewMessage("ghost", models.RoleUser, "hello")
			_, err := s.AppendMessage(context.Background(), "ghost", msg)
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.CodeOf(err))
		})
	}
}

func TestStore_AppendTouchesSession(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sess, err := s.CreateSession(ctx, "user-1", "emp-1", "gemini")
			require.NoError(t, err)

			_, err = s.AppendMessage(ctx, sess.ID, models.NewMessage(sess.ID, models.RoleUser, "hi"))
			require.NoError(t, err)

			got, err := s.GetSession(ctx, sess.ID)
			require.NoError(t, err)
			assert.False(t, got.UpdatedAt.Before(sess.UpdatedAt))
		})
	}
}

func TestStore_ListSessionsMostRecentFirst(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			first, err := s.CreateSession(ctx, "user-1", "emp-1", "openai")
			require.NoError(t, err)
			second, err := s.CreateSession(ctx, "user-1", "emp-2", "openai")
			require.NoError(t, err)
			_, err = s.CreateSession(ctx, "user-2", "emp-1", "openai")
			require.NoError(t, err)

			// Touching the first session moves it ahead of the second.
			_, err = s.AppendMessage(ctx, first.ID, models.NewMessage(first.ID, models.RoleUser, "hi"))
			require.NoError(t, err)

			sessions, err := s.ListSessions(ctx, "user-1")
			require.NoError(t, err)
			require.Len(t, sessions, 2)
			assert.Equal(t, first.ID, sessions[0].ID)
			assert.Equal(t, second.ID, sessions[1].ID)
		})
	}
}

func TestStore_ToolCallRoundTrip(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sess, err := s.CreateSession(ctx, "user-1", "emp-1", "openai")
			require.NoError(t, err)

			inv := models.NewToolInvocation("call-1", "current_time", map[string]interface{}{"zone": "UTC"})
			require.NoError(t, inv.Transition(models.StatusRunning))
			require.NoError(t, inv.Transition(models.StatusCompleted))
			inv.Result = "2026-08-30T12:00:00Z"

			msg := models.NewMessage(sess.ID, models.RoleTool, inv.Result)
			msg.ToolCall = inv
			_, err = s.AppendMessage(ctx, sess.ID, msg)
			require.NoError(t, err)

			msgs, err := s.ListMessages(ctx, sess.ID)
			require.NoError(t, err)
			require.Len(t, msgs, 1)
			require.NotNil(t, msgs[0].ToolCall)
			assert.Equal(t, "call-1", msgs[0].ToolCall.ID)
			assert.Equal(t, "current_time", msgs[0].ToolCall.Name)
			assert.Equal(t, models.StatusCompleted, msgs[0].ToolCall.Status)
			assert.Equal(t, "UTC", msgs[0].ToolCall.Arguments["zone"])
		})
	}
}

func TestStore_DeleteSession(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sess, err := s.CreateSession(ctx, "user-1", "emp-1", "openai")
			require.NoError(t, err)
			_, err = s.AppendMessage(ctx, sess.ID, models.NewMessage(sess.ID, models.RoleUser, "hi"))
			require.NoError(t, err)

			require.NoError(t, s.DeleteSession(ctx, sess.ID))

			_, err = s.GetSession(ctx, sess.ID)
			assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.CodeOf(err))

			err = s.DeleteSession(ctx, sess.ID)
			assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.CodeOf(err))
		})
	}
}

func TestStore_UnsupportedDriver(t *testing.T) {
	_, err := New(config.DatabaseConfig{Driver: "oracle"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeConfigInvalid, apperrors.CodeOf(err))
}
