package dto

import (
	"Ripple/internal/model"
	"time"

	"github.com/jinzhu/copier"
)

// MessageDTO 后端下发的消息明细，兼容 REST 与长连接两条通路
type MessageDTO struct {
	ID         string          `json:"_id"`
	Sender     *UserRef        `json:"sender"`
	User       *UserRef        `json:"user"`
	Text       string          `json:"text"`
	CreatedAt  time.Time       `json:"createdAt"`
	Status     string          `json:"status"`
	Attachment *AttachmentDTO  `json:"attachment"`
	Reactions  []ReactionDTO   `json:"reactions"`
	IsPinned   bool            `json:"isPinned"`
}

// AttachmentDTO 附件引用
type AttachmentDTO struct {
	URL      string  `json:"url"`
	MimeType string  `json:"mimeType"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Duration float64 `json:"duration"`
}

// ReactionDTO 表情回应
type ReactionDTO struct {
	Emoji  string `json:"emoji"`
	UserID string `json:"userId"`
}

// SenderID 统一取发送者 ID，兼容 sender/user 两种包裹
func (d *MessageDTO) SenderID() string {
	if d.Sender != nil {
		if id := d.Sender.UserID(); id != "" {
			return id
		}
	}
	if d.User != nil {
		return d.User.UserID()
	}
	return ""
}

// ToModel 将后端载荷一次性归一化为规范消息。
// 各处渲染不再做形态嗅探，所有兜底都收敛在这里。
func (d *MessageDTO) ToModel(conversationKey string) *model.Message {
	m := &model.Message{}
	_ = copier.Copy(m, d)

	m.ServerID = d.ID
	m.ConversationKey = conversationKey
	m.SenderID = d.SenderID()

	m.Status = model.MessageStatus(d.Status)
	if _, ok := m.Status.Rank(); !ok && m.Status != model.StatusFailed {
		// 对端视角没有 pending，未知状态按 sent 处理
		m.Status = model.StatusSent
	}

	if d.Attachment != nil {
		m.Attachment = &model.Attachment{}
		_ = copier.Copy(m.Attachment, d.Attachment)
	}

	m.Reactions = make([]model.Reaction, 0, len(d.Reactions))
	for _, r := range d.Reactions {
		m.Reactions = append(m.Reactions, model.Reaction{Emoji: r.Emoji, ReactorID: r.UserID})
	}

	return m
}

// SendMessageReq 发送消息请求体，文本与附件至少其一非空
type SendMessageReq struct {
	RecipientID string         `json:"recipientId" validate:"required"`
	Text        string         `json:"text" validate:"required_without=Attachment"`
	Attachment  *AttachmentDTO `json:"attachment,omitempty"`
}

// SendMessageResp 发送消息响应
type SendMessageResp struct {
	Success bool        `json:"success"`
	Message *MessageDTO `json:"message"`
}

// MessageListResp 历史消息响应，按时间从旧到新
type MessageListResp struct {
	Success bool          `json:"success"`
	Data    []*MessageDTO `json:"data"`
}

// ReadReceiptEvent 已读回执事件载荷
type ReadReceiptEvent struct {
	MessageID string `json:"messageId"`
	SenderID  string `json:"senderId"`
}

// StatusUpdateEvent 状态推进事件载荷
type StatusUpdateEvent struct {
	ID     string `json:"_id"`
	Status string `json:"status"`
}

// TypingEvent 正在输入事件载荷
type TypingEvent struct {
	UserID string `json:"userId"`
}

// SendMessageEvent 发送成功后的低延迟透传载荷
type SendMessageEvent struct {
	RecipientID string         `json:"recipientId"`
	MessageID   string         `json:"messageId"`
	Text        string         `json:"text"`
	Attachment  *AttachmentDTO `json:"attachment,omitempty"`
}
