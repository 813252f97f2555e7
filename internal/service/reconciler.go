package service

import (
	"Ripple/internal/api/dto"
	"Ripple/internal/model"
	log "log/slog"
	"time"

	"github.com/goccy/go-json"
)

// 入站事件对账：长连接送达顺序即处理顺序，不做重排，
// 展示顺序由消息集合的排序负责。

// onReceiveMessage 对端新消息：按 ServerID 去重后追加，
// 成功插入才回执——重复投递连同副作用一起吞掉。
func (s *chatServiceImpl) onReceiveMessage(payload []byte) {
	var d dto.MessageDTO
	if err := json.Unmarshal(payload, &d); err != nil {
		log.Warn("新消息事件载荷解析失败", "err", err)
		return
	}

	// 其他会话的消息不归本实例管
	if d.SenderID() != s.peerID {
		return
	}
	if d.ID == "" {
		log.Warn("新消息事件缺少服务端 ID，丢弃", "sender", d.SenderID())
		return
	}

	if _, exists := s.store.FindByServerID(d.ID); exists {
		log.Debug("重复投递的新消息，忽略", "messageId", d.ID)
		return
	}

	m := d.ToModel(s.convKey)
	if m.Status == model.StatusPending {
		// 入站侧没有 pending 概念，消息在发送方早已存在
		m.Status = model.StatusSent
	}
	entry := s.store.Upsert(m)
	s.persist(entry)

	// 收件人正在查看会话，立即回执
	s.emitReadReceipt(d.ID)
}

// onStatusUpdate 回执推进：乱序回执静默丢弃，未知消息记对账冲突
func (s *chatServiceImpl) onStatusUpdate(payload []byte) {
	var ev dto.StatusUpdateEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		log.Warn("状态事件载荷解析失败", "err", err)
		return
	}

	if _, exists := s.store.FindByServerID(ev.ID); !exists {
		// 可能引用了尚未拉取到本地的消息，不视为致命
		log.Warn(ErrReconcileConflict.Error(), "messageId", ev.ID, "status", ev.Status)
		return
	}

	if !s.store.ApplyStatus(ev.ID, model.MessageStatus(ev.Status)) {
		// 对端视角可能滞后，回退性推进直接丢弃
		log.Debug("乱序状态回执，忽略", "messageId", ev.ID, "status", ev.Status)
		return
	}

	if entry, ok := s.store.FindByServerID(ev.ID); ok {
		s.persist(entry)
	}
}

// onTyping 置位对端输入标记；stopTyping 可能丢失，
// 静默期后由本地定时器自动清除。
func (s *chatServiceImpl) onTyping(payload []byte) {
	var ev dto.TypingEvent
	if err := json.Unmarshal(payload, &ev); err != nil || ev.UserID != s.peerID {
		return
	}

	s.typingMu.Lock()
	defer s.typingMu.Unlock()
	s.peerTyping = true
	if s.typingTimer != nil {
		s.typingTimer.Stop()
	}
	s.typingTimer = time.AfterFunc(s.typingQuiet, func() {
		s.typingMu.Lock()
		s.peerTyping = false
		s.typingMu.Unlock()
	})
}

func (s *chatServiceImpl) onStopTyping(payload []byte) {
	var ev dto.TypingEvent
	if err := json.Unmarshal(payload, &ev); err != nil || ev.UserID != s.peerID {
		return
	}

	s.typingMu.Lock()
	defer s.typingMu.Unlock()
	s.peerTyping = false
	if s.typingTimer != nil {
		s.typingTimer.Stop()
		s.typingTimer = nil
	}
}
