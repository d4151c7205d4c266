package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/hirebot-dev/hirebot/pkg/chat/errors"
	"github.com/hirebot-dev/hirebot/pkg/chat/models"
)

// MemoryStore keeps sessions and messages in process memory. Used by tests
// and by the "memory" database driver.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
	messages map[string][]*models.Message
	nextSeq  uint64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*models.Session),
		messages: make(map[string][]*models.Message),
	}
}

func (s *MemoryStore) CreateSession(_ context.Context, userID, employeeID, provider string) (*models.Session, error) {
	if userID == "" {
		return nil, apperrors.New(apperrors.ErrCodeNotAuthenticated, "user id is required", nil)
	}

	now := time.Now().UTC()
	sess := &models.Session{
		ID:         uuid.NewString(),
		UserID:     userID,
		EmployeeID: employeeID,
		Provider:   provider,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	s.messages[sess.ID] = nil

	return copySession(sess), nil
}

func (s *MemoryStore) GetSession(_ context.Context, sessionID string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeNotFound, "session not found: "+sessionID, nil)
	}
	return copySession(sess), nil
}

func (s *MemoryStore) ListSessions(_ context.Context, userID string) ([]*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]*models.Session, 0)
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			sessions = append(sessions, copySession(sess))
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

func (s *MemoryStore) ListMessages(_ context.Context, sessionID string) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return nil, apperrors.New(apperrors.ErrCodeNotFound, "session not found: "+sessionID, nil)
	}

	msgs := s.messages[sessionID]
	out := make([]*models.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, copyMessage(m))
	}
	return out, nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, sessionID string, msg *models.Message) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeNotFound, "session not found: "+sessionID, nil)
	}

	stored := copyMessage(msg)
	stored.SessionID = sessionID
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.nextSeq++
	stored.Seq = s.nextSeq

	s.messages[sessionID] = append(s.messages[sessionID], stored)
	sess.UpdatedAt = time.Now().UTC()

	return copyMessage(stored), nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return apperrors.New(apperrors.ErrCodeNotFound, "session not found: "+sessionID, nil)
	}
	delete(s.sessions, sessionID)
	delete(s.messages, sessionID)
	return nil
}

func copySession(sess *models.Session) *models.Session {
	c := *sess
	return &c
}

func copyMessage(msg *models.Message) *models.Message {
	c := *msg
	if msg.ToolCall != nil {
		tc := *msg.ToolCall
		c.ToolCall = &tc
	}
	return &c
}
