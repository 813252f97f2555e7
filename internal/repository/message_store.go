package repository

import (
	"Ripple/internal/model"
	"sort"
	"sync"
)

// MessageStore 单个会话的规范消息集合，UI 渲染的唯一数据源。
// 身份不变式：有 ServerID 按 ServerID 归并，否则按 LocalID；
// 任一身份同一时刻至多存在一个条目。发送管线与入站对账器
// 跑在不同的 goroutine 上，所有访问都经互斥锁串行化；
// 对外返回的条目一律是脱离集合的快照，内部条目指针不出锁。
type MessageStore struct {
	mu              sync.Mutex
	conversationKey string
	entries         []*model.Message // 保持插入顺序，排序时间相同时以此定序
	byLocal         map[string]*model.Message
	byServer        map[string]*model.Message
}

// NewMessageStore 构造会话消息集合
func NewMessageStore(conversationKey string) *MessageStore {
	return &MessageStore{
		conversationKey: conversationKey,
		byLocal:         make(map[string]*model.Message),
		byServer:        make(map[string]*model.Message),
	}
}

// ConversationKey 所属会话键
func (s *MessageStore) ConversationKey() string {
	return s.conversationKey
}

// Upsert 按身份归并写入：已存在则就地合并字段（不删除重插，
// 保持列表稳定），不存在则追加。返回归并后条目的快照。
func (s *MessageStore) Upsert(msg *model.Message) *model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.lookupLocked(msg)
	if target == nil {
		inserted := *msg
		if inserted.Status == "" {
			inserted.Status = model.StatusPending
		}
		s.entries = append(s.entries, &inserted)
		s.indexLocked(&inserted)
		return snapshot(&inserted)
	}

	s.mergeLocked(target, msg)
	return snapshot(target)
}

// snapshot 值拷贝一个条目，调用方持有的结果不再与内部状态共享
func snapshot(m *model.Message) *model.Message {
	out := *m
	if len(m.Reactions) > 0 {
		out.Reactions = append([]model.Reaction(nil), m.Reactions...)
	}
	return &out
}

// lookupLocked 先按 ServerID 再按 LocalID 定位条目
func (s *MessageStore) lookupLocked(msg *model.Message) *model.Message {
	if msg.ServerID != "" {
		if m, ok := s.byServer[msg.ServerID]; ok {
			return m
		}
	}
	if msg.LocalID != "" {
		if m, ok := s.byLocal[msg.LocalID]; ok {
			return m
		}
	}
	return nil
}

func (s *MessageStore) indexLocked(msg *model.Message) {
	if msg.LocalID != "" {
		s.byLocal[msg.LocalID] = msg
	}
	if msg.ServerID != "" {
		s.byServer[msg.ServerID] = msg
	}
}

// mergeLocked 增量合并：入站未携带的字段保持原值
func (s *MessageStore) mergeLocked(target, incoming *model.Message) {
	if incoming.ServerID != "" && target.ServerID == "" {
		target.ServerID = incoming.ServerID
		s.byServer[incoming.ServerID] = target
	}
	if incoming.Text != "" {
		target.Text = incoming.Text
	}
	if !incoming.CreatedAt.IsZero() && target.CreatedAt.IsZero() {
		target.CreatedAt = incoming.CreatedAt
	}
	if incoming.SenderID != "" {
		target.SenderID = incoming.SenderID
	}
	if incoming.Attachment != nil {
		target.Attachment = incoming.Attachment
	}
	if incoming.Reactions != nil {
		target.Reactions = incoming.Reactions
	}
	if incoming.IsPinned {
		target.IsPinned = true
	}
	if incoming.Status != "" && target.Status.CanTransition(incoming.Status) {
		target.Status = incoming.Status
	}
}

// GetAll 按 CreatedAt 升序返回全部条目的快照，时间相同保持插入顺序
func (s *MessageStore) GetAll() []*model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.Message, 0, len(s.entries))
	for _, m := range s.entries {
		out = append(out, snapshot(m))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len 当前条目数
func (s *MessageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// FindByLocalID 按客户端标识查找，返回快照
func (s *MessageStore) FindByLocalID(localID string) (*model.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byLocal[localID]
	if !ok {
		return nil, false
	}
	return snapshot(m), true
}

// FindByServerID 按服务端标识查找，返回快照
func (s *MessageStore) FindByServerID(serverID string) (*model.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byServer[serverID]
	if !ok {
		return nil, false
	}
	return snapshot(m), true
}

// FindByIdentity 按身份查找，先 ServerID 后 LocalID，返回快照
func (s *MessageStore) FindByIdentity(identity string) (*model.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.findByIdentityLocked(identity)
	if m == nil {
		return nil, false
	}
	return snapshot(m), true
}

// ApplyStatus 按单向状态机推进指定身份的状态。
// 身份不存在或推进非法（回退、逸出终态）时返回 false。
func (s *MessageStore) ApplyStatus(identity string, target model.MessageStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.findByIdentityLocked(identity)
	if m == nil {
		return false
	}
	if !m.Status.CanTransition(target) {
		return false
	}
	m.Status = target
	return true
}

// ResetForResend 将失败条目复位为 pending 以复用同一 LocalID 重发。
// 这是新的发送尝试而非状态推进，不经过单向状态机。
func (s *MessageStore) ResetForResend(localID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.byLocal[localID]
	if !ok || m.Status != model.StatusFailed {
		return false
	}
	m.Status = model.StatusPending
	return true
}

// Remove 按身份删除条目，这是条目被销毁的唯一途径
func (s *MessageStore) Remove(identity string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.findByIdentityLocked(identity)
	if m == nil {
		return false
	}

	for i, e := range s.entries {
		if e == m {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}
	if m.LocalID != "" {
		delete(s.byLocal, m.LocalID)
	}
	if m.ServerID != "" {
		delete(s.byServer, m.ServerID)
	}
	return true
}

// AddReaction 追加表情回应，(emoji, reactor) 重复时为幂等操作
func (s *MessageStore) AddReaction(identity string, r model.Reaction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.findByIdentityLocked(identity)
	if m == nil {
		return false
	}
	for _, existing := range m.Reactions {
		if existing.Emoji == r.Emoji && existing.ReactorID == r.ReactorID {
			return true
		}
	}
	m.Reactions = append(m.Reactions, r)
	return true
}

// SetPinned 设置置顶标记
func (s *MessageStore) SetPinned(identity string, pinned bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.findByIdentityLocked(identity)
	if m == nil {
		return false
	}
	m.IsPinned = pinned
	return true
}

func (s *MessageStore) findByIdentityLocked(identity string) *model.Message {
	if m, ok := s.byServer[identity]; ok {
		return m
	}
	if m, ok := s.byLocal[identity]; ok {
		return m
	}
	return nil
}
