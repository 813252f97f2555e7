package model

import (
	"fmt"
	"strings"
	"time"
)

// Message 会话内的一条消息，本地消息列表的规范形态
type Message struct {
	LocalID         string     // 客户端生成，未确认消息的稳定标识，永不复用
	ServerID        string     // 服务端持久化后分配，出现后全局唯一
	ConversationKey string     // 双方会话标识，由对端用户 ID 推导
	SenderID        string     // 发送者 UID
	Text            string     // 文本内容
	CreatedAt       time.Time  // 客户端观察到的发送时间，排序依据
	Attachment      *Attachment
	Status          MessageStatus
	Reactions       []Reaction
	IsPinned        bool
}

// Attachment 结构化附件引用
type Attachment struct {
	URL      string  `json:"url"`
	MimeType string  `json:"mimeType"`
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// Reaction 表情回应，(emoji, reactorId) 构成集合元素
type Reaction struct {
	Emoji     string `json:"emoji"`
	ReactorID string `json:"userId"`
}

// Identity 消息身份：有 ServerID 用 ServerID，否则用 LocalID
func (m *Message) Identity() string {
	if m.ServerID != "" {
		return m.ServerID
	}
	return m.LocalID
}

// IsEmpty 文本与附件均为空
func (m *Message) IsEmpty() bool {
	return strings.TrimSpace(m.Text) == "" && m.Attachment == nil
}

// DeriveConversationKey 生成单聊唯一的会话键，与参与方顺序无关
func DeriveConversationKey(userID, peerID string) string {
	if userID < peerID {
		return fmt.Sprintf("%s_%s", userID, peerID)
	}
	return fmt.Sprintf("%s_%s", peerID, userID)
}
