package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/hirebot-dev/hirebot/pkg/chat/config"
	apperrors "github.com/hirebot-dev/hirebot/pkg/chat/errors"
	"github.com/hirebot-dev/hirebot/pkg/chat/models"
)

// sessionRecord is the gorm row shape for sessions.
type sessionRecord struct {
	ID         string `gorm:"primaryKey;size:36"`
	UserID     string `gorm:"index;size:128"`
	EmployeeID string `gorm:"size:128"`
	Provider   string `gorm:"size:32"`
	Title      string `gorm:"size:255"`
	CreatedAt  time.Time
	UpdatedAt  time.Time `gorm:"index"`
}

func (sessionRecord) TableName() string { return "chat_sessions" }

// messageRecord is the gorm row shape for messages. Seq is the table's
// auto-increment primary key, which is what gives the append order.
type messageRecord struct {
	Seq       uint64 `gorm:"primaryKey;autoIncrement"`
	ID        string `gorm:"uniqueIndex;size:36"`
	SessionID string `gorm:"index;size:36"`
	Role      string `gorm:"size:16"`
	Content   string `gorm:"type:text"`
	Truncated bool
	ToolCall  string `gorm:"type:text"`
	CreatedAt time.Time
}

func (messageRecord) TableName() string { return "chat_messages" }

type gormStore struct {
	db *gorm.DB
}

func newGormStore(cfg config.DatabaseConfig) (*gormStore, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeStoreFailed, "failed to open database", err)
	}

	if err := db.AutoMigrate(&sessionRecord{}, &messageRecord{}); err != nil {
		return nil, apperrors.New(apperrors.ErrCodeStoreFailed, "failed to migrate schema", err)
	}

	return &gormStore{db: db}, nil
}

func (s *gormStore) CreateSession(ctx context.Context, userID, employeeID, provider string) (*models.Session, error) {
	if userID == "" {
		return nil, apperrors.New(apperrors.ErrCodeNotAuthenticated, "user id is required", nil)
	}

	now := time.Now().UTC()
	rec := sessionRecord{
		ID:         uuid.NewString(),
		UserID:     userID,
		EmployeeID: employeeID,
		Provider:   provider,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, apperrors.New(apperrors.ErrCodeSessionCreate, "failed to create session", err)
	}
	return sessionFromRecord(&rec), nil
}

func (s *gormStore) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	var rec sessionRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.ErrCodeNotFound, "session not found: "+sessionID, nil)
	}
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeStoreFailed, "failed to load session", err)
	}
	return sessionFromRecord(&rec), nil
}

func (s *gormStore) ListSessions(ctx context.Context, userID string) ([]*models.Session, error) {
	var recs []sessionRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&recs).Error
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeStoreFailed, "failed to list sessions", err)
	}

	sessions := make([]*models.Session, 0, len(recs))
	for i := range recs {
		sessions = append(sessions, sessionFromRecord(&recs[i]))
	}
	return sessions, nil
}

func (s *gormStore) ListMessages(ctx context.Context, sessionID string) ([]*models.Message, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	var recs []messageRecord
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("seq ASC").
		Find(&recs).Error
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeStoreFailed, "failed to list messages", err)
	}

	messages := make([]*models.Message, 0, len(recs))
	for i := range recs {
		msg, err := messageFromRecord(&recs[i])
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (s *gormStore) AppendMessage(ctx context.Context, sessionID string, msg *models.Message) (*models.Message, error) {
	rec, err := recordFromMessage(sessionID, msg)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sess sessionRecord
		if err := tx.First(&sess, "id = ?", sessionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.New(apperrors.ErrCodeNotFound, "session not found: "+sessionID, nil)
			}
			return apperrors.New(apperrors.ErrCodeStoreFailed, "failed to load session", err)
		}
		if err := tx.Create(rec).Error; err != nil {
			return apperrors.New(apperrors.ErrCodeStoreFailed, "failed to append message", err)
		}
		err := tx.Model(&sessionRecord{}).
			Where("id = ?", sessionID).
			Update("updated_at", time.Now().UTC()).Error
		if err != nil {
			return apperrors.New(apperrors.ErrCodeStoreFailed, "failed to touch session", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return messageFromRecord(rec)
}

func (s *gormStore) DeleteSession(ctx context.Context, sessionID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&sessionRecord{}, "id = ?", sessionID)
		if res.Error != nil {
			return apperrors.New(apperrors.ErrCodeStoreFailed, "failed to delete session", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.New(apperrors.ErrCodeNotFound, "session not found: "+sessionID, nil)
		}
		if err := tx.Delete(&messageRecord{}, "session_id = ?", sessionID).Error; err != nil {
			return apperrors.New(apperrors.ErrCodeStoreFailed, "failed to delete messages", err)
		}
		return nil
	})
}

func sessionFromRecord(rec *sessionRecord) *models.Session {
	return &models.Session{
		ID:         rec.ID,
		UserID:     rec.UserID,
		EmployeeID: rec.EmployeeID,
		Provider:   rec.Provider,
		Title:      rec.Title,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
}

func recordFromMessage(sessionID string, msg *models.Message) (*messageRecord, error) {
	id := msg.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var toolCall string
	if msg.ToolCall != nil {
		data, err := json.Marshal(msg.ToolCall)
		if err != nil {
			return nil, apperrors.New(apperrors.ErrCodeStoreFailed, "failed to encode tool call", err)
		}
		toolCall = string(data)
	}

	return &messageRecord{
		ID:        id,
		SessionID: sessionID,
		Role:      string(msg.Role),
		Content:   msg.Content,
		Truncated: msg.Truncated,
		ToolCall:  toolCall,
		CreatedAt: createdAt,
	}, nil
}

func messageFromRecord(rec *messageRecord) (*models.Message, error) {
	msg := &models.Message{
		ID:        rec.ID,
		SessionID: rec.SessionID,
		Role:      models.Role(rec.Role),
		Content:   rec.Content,
		Truncated: rec.Truncated,
		Seq:       rec.Seq,
		CreatedAt: rec.CreatedAt,
	}
	if rec.ToolCall != "" {
		var inv models.ToolInvocation
		if err := json.Unmarshal([]byte(rec.ToolCall), &inv); err != nil {
			return nil, apperrors.New(apperrors.ErrCodeStoreFailed, "failed to decode tool call", err)
		}
		msg.ToolCall = &inv
	}
	return msg, nil
}
