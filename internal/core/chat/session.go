package chat

import (
	"context"
	"time"

	"nutriplan/internal/pkg/common"

	"gorm.io/gorm"
)

// 訊息角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage 會話訊息，僅追加不修改
type ChatMessage struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	SessionID string    `gorm:"index;size:64" json:"session_id"`
	UserID    string    `gorm:"index;size:64" json:"user_id"`
	Role      string    `gorm:"size:16" json:"role"`
	Content   string    `gorm:"type:text" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定資料表名稱
func (ChatMessage) TableName() string {
	return "chat_messages"
}

// SessionStore 會話訊息存取介面
type SessionStore interface {
	Append(ctx context.Context, msg *ChatMessage) error
	Recent(ctx context.Context, sessionID string, limit int) ([]ChatMessage, error)
}

// GormSessionStore 以 PostgreSQL 實作的會話訊息存取層
type GormSessionStore struct {
	db *gorm.DB
}

// NewGormSessionStore 建立會話訊息存取層
func NewGormSessionStore(db *gorm.DB) *GormSessionStore {
	return &GormSessionStore{db: db}
}

// Append 追加一則訊息
func (s *GormSessionStore) Append(ctx context.Context, msg *ChatMessage) error {
	if msg.ID == "" {
		msg.ID = common.GenerateUUID()
	}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return common.NewDatabaseError("failed to append chat message", err)
	}
	return nil
}

// Recent 取最近 limit 則訊息，時間由舊到新
func (s *GormSessionStore) Recent(ctx context.Context, sessionID string, limit int) ([]ChatMessage, error) {
	if limit <= 0 {
		limit = 10
	}
	var msgs []ChatMessage
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, common.NewDatabaseError("failed to load chat history", err)
	}
	// 反轉成由舊到新
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
