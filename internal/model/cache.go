package model

import "time"

// CachedMessage 本地 SQLite 消息缓存模型
type CachedMessage struct {
	ID              uint      `gorm:"primaryKey;autoIncrement"`
	CacheKey        string    `gorm:"uniqueIndex;size:64"` // 出站消息用 LocalID，入站消息用 ServerID，跨身份确认保持稳定
	LocalID         string    `gorm:"size:64"`
	ServerID        string    `gorm:"index;size:64"`
	ConversationKey string    `gorm:"index;size:128"`
	SenderID        string    `gorm:"size:64"`
	Text            string
	Status          string    `gorm:"size:16"`
	AttachmentJSON  string    // Attachment 序列化，空串表示无附件
	ReactionsJSON   string    // Reactions 序列化
	IsPinned        bool
	CreatedAt       time.Time `gorm:"index"`
	UpdatedAt       time.Time
}

// Credential 本地持久化的凭证键值对（登录令牌、推送注册令牌）
type Credential struct {
	Key       string `gorm:"primaryKey;size:32"`
	Value     string
	UpdatedAt time.Time
}
