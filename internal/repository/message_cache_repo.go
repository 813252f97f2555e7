package repository

import (
	"Ripple/internal/model"
	"context"

	"github.com/goccy/go-json"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MessageCacheRepo 本地消息缓存，断网时支撑会话回显
type MessageCacheRepo interface {
	SaveMessage(ctx context.Context, msg *model.Message) error
	LoadConversation(ctx context.Context, conversationKey string) ([]*model.Message, error)
	DeleteMessage(ctx context.Context, msg *model.Message) error
}

type messageCacheRepoImpl struct {
	db *gorm.DB
}

func NewMessageCacheRepo(db *gorm.DB) MessageCacheRepo {
	return &messageCacheRepoImpl{db: db}
}

// SaveMessage 按缓存键幂等写入
func (r *messageCacheRepoImpl) SaveMessage(ctx context.Context, msg *model.Message) error {
	row, err := toCachedMessage(msg)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cache_key"}},
			UpdateAll: true,
		}).
		Create(row).Error
}

// LoadConversation 按会话键加载缓存，按时间从旧到新
func (r *messageCacheRepoImpl) LoadConversation(ctx context.Context, conversationKey string) ([]*model.Message, error) {
	var rows []model.CachedMessage
	err := r.db.WithContext(ctx).
		Where("conversation_key = ?", conversationKey).
		Order("created_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]*model.Message, 0, len(rows))
	for i := range rows {
		m, err := fromCachedMessage(&rows[i])
		if err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *messageCacheRepoImpl) DeleteMessage(ctx context.Context, msg *model.Message) error {
	return r.db.WithContext(ctx).
		Where("cache_key = ?", cacheKey(msg)).
		Delete(&model.CachedMessage{}).Error
}

// cacheKey 出站消息的 LocalID 在身份确认后仍然保留，是稳定的行键；
// 入站消息从未有过 LocalID，用 ServerID。
func cacheKey(msg *model.Message) string {
	if msg.LocalID != "" {
		return msg.LocalID
	}
	return msg.ServerID
}

func toCachedMessage(msg *model.Message) (*model.CachedMessage, error) {
	row := &model.CachedMessage{
		CacheKey:        cacheKey(msg),
		LocalID:         msg.LocalID,
		ServerID:        msg.ServerID,
		ConversationKey: msg.ConversationKey,
		SenderID:        msg.SenderID,
		Text:            msg.Text,
		Status:          string(msg.Status),
		IsPinned:        msg.IsPinned,
		CreatedAt:       msg.CreatedAt,
	}

	if msg.Attachment != nil {
		data, err := json.Marshal(msg.Attachment)
		if err != nil {
			return nil, err
		}
		row.AttachmentJSON = string(data)
	}
	if len(msg.Reactions) > 0 {
		data, err := json.Marshal(msg.Reactions)
		if err != nil {
			return nil, err
		}
		row.ReactionsJSON = string(data)
	}
	return row, nil
}

func fromCachedMessage(row *model.CachedMessage) (*model.Message, error) {
	msg := &model.Message{
		LocalID:         row.LocalID,
		ServerID:        row.ServerID,
		ConversationKey: row.ConversationKey,
		SenderID:        row.SenderID,
		Text:            row.Text,
		Status:          model.MessageStatus(row.Status),
		IsPinned:        row.IsPinned,
		CreatedAt:       row.CreatedAt,
	}

	if row.AttachmentJSON != "" {
		var att model.Attachment
		if err := json.Unmarshal([]byte(row.AttachmentJSON), &att); err != nil {
			return nil, err
		}
		msg.Attachment = &att
	}
	if row.ReactionsJSON != "" {
		if err := json.Unmarshal([]byte(row.ReactionsJSON), &msg.Reactions); err != nil {
			return nil, err
		}
	}
	return msg, nil
}
