package service

import (
	"Ripple/internal/api/dto"
	"Ripple/internal/api/rest"
	"Ripple/internal/app/config"
	"Ripple/internal/model"
	"Ripple/internal/pkg/consts"
	"Ripple/internal/pkg/logger"
	"Ripple/internal/pkg/ws"
	"Ripple/internal/repository"
	"context"
	"errors"
	log "log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Transport 聊天服务所依赖的长连接事件面
type Transport interface {
	On(kind string, fn ws.Handler) func()
	Emit(kind string, payload interface{}) error
}

// MessageSender 聊天服务所依赖的 REST 消息接口
type MessageSender interface {
	GetMessages(ctx context.Context, peerID string) ([]*dto.MessageDTO, error)
	SendMessage(ctx context.Context, req *dto.SendMessageReq) (*dto.MessageDTO, error)
}

// ChatService 单个会话的同步核心：乐观发送、身份对账、
// 入站事件归并与状态单向推进。
type ChatService interface {
	Open(ctx context.Context) error
	Close()
	Send(ctx context.Context, text string, attachment *model.Attachment) (*model.Message, error)
	Resend(ctx context.Context, localID string) (*model.Message, error)
	Messages() []*model.Message
	PeerTyping() bool
	NotifyComposing()
	DeleteMessage(ctx context.Context, identity string) error
	React(ctx context.Context, identity string, emoji string) error
	Pin(ctx context.Context, identity string, pinned bool) error
}

type chatServiceImpl struct {
	selfID  string
	peerID  string
	convKey string

	store     *repository.MessageStore
	cache     repository.MessageCacheRepo
	rest      MessageSender
	transport Transport
	validate  *validator.Validate

	sendTimeout time.Duration // pending 转 failed 的兜底，默认 30s
	typingQuiet time.Duration // 对端输入标记静默清除，默认 5s

	typingMu     sync.Mutex
	peerTyping   bool
	typingTimer  *time.Timer
	composeTimer *time.Timer

	unsubs []func()
}

// NewChatService 构造会话同步服务，不触发任何网络动作
func NewChatService(selfID, peerID string, store *repository.MessageStore,
	cache repository.MessageCacheRepo, restClient MessageSender,
	transport Transport, cfg config.ChatConfig) ChatService {

	s := &chatServiceImpl{
		selfID:      selfID,
		peerID:      peerID,
		convKey:     model.DeriveConversationKey(selfID, peerID),
		store:       store,
		cache:       cache,
		rest:        restClient,
		transport:   transport,
		validate:    validator.New(),
		sendTimeout: time.Duration(cfg.SendTimeout) * time.Second,
		typingQuiet: time.Duration(cfg.TypingQuiet) * time.Second,
	}
	if s.sendTimeout <= 0 {
		s.sendTimeout = 30 * time.Second
	}
	if s.typingQuiet <= 0 {
		s.typingQuiet = 5 * time.Second
	}
	return s
}

// Open 回放本地缓存、拉取远端历史并挂载事件处理器。
// 未读的对端消息在装载时立即回执。
func (s *chatServiceImpl) Open(ctx context.Context) error {
	ctx = logger.WithConversation(ctx, s.convKey)

	if s.cache != nil {
		cached, err := s.cache.LoadConversation(ctx, s.convKey)
		if err != nil {
			log.WarnContext(ctx, "本地消息缓存读取失败", "err", err)
		}
		for _, m := range cached {
			s.store.Upsert(m)
		}
	}

	history, err := s.rest.GetMessages(ctx, s.peerID)
	if err != nil {
		return s.translateRestErr(err)
	}
	for _, d := range history {
		m := d.ToModel(s.convKey)
		if m.ServerID == "" {
			continue
		}
		entry := s.store.Upsert(m)
		s.persist(entry)

		if entry.SenderID == s.peerID && entry.Status != model.StatusRead {
			s.emitReadReceipt(entry.ServerID)
		}
	}

	s.unsubs = append(s.unsubs,
		s.transport.On(consts.EventReceiveMessage, s.onReceiveMessage),
		s.transport.On(consts.EventStatusUpdate, s.onStatusUpdate),
		s.transport.On(consts.EventTyping, s.onTyping),
		s.transport.On(consts.EventStopTyping, s.onStopTyping),
	)

	log.InfoContext(ctx, "会话已打开", "history", len(history))
	return nil
}

// Close 注销本会话的事件处理器。共享长连接不受影响，
// 其他界面（如角标）可能仍依赖它。
func (s *chatServiceImpl) Close() {
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil

	s.typingMu.Lock()
	if s.typingTimer != nil {
		s.typingTimer.Stop()
	}
	if s.composeTimer != nil {
		s.composeTimer.Stop()
	}
	s.peerTyping = false
	s.typingMu.Unlock()
}

// Send 乐观发送：本地先插 pending 条目，REST 确认后就地
// 升级为 sent 并补上 ServerID，再通过长连接透传给对端。
func (s *chatServiceImpl) Send(ctx context.Context, text string, attachment *model.Attachment) (*model.Message, error) {
	req := &dto.SendMessageReq{
		RecipientID: s.peerID,
		Text:        strings.TrimSpace(text),
		Attachment:  toAttachmentDTO(attachment),
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, ErrInvalidMessage
	}

	localID := uuid.NewString()
	entry := s.store.Upsert(&model.Message{
		LocalID:         localID,
		ConversationKey: s.convKey,
		SenderID:        s.selfID,
		Text:            req.Text,
		Attachment:      attachment,
		CreatedAt:       time.Now(),
		Status:          model.StatusPending,
	})
	s.persist(entry)

	return s.deliver(ctx, localID, req)
}

// Resend 用户触发的重发，复用原 LocalID 替换失败占位而不产生新条目
func (s *chatServiceImpl) Resend(ctx context.Context, localID string) (*model.Message, error) {
	entry, ok := s.store.FindByLocalID(localID)
	if !ok {
		return nil, ErrMessageNotFound
	}
	if !s.store.ResetForResend(localID) {
		return nil, ErrResendState
	}
	// 复位后重取快照，落地的是 pending 而非原先的 failed
	entry, _ = s.store.FindByLocalID(localID)
	s.persist(entry)

	req := &dto.SendMessageReq{
		RecipientID: s.peerID,
		Text:        entry.Text,
		Attachment:  toAttachmentDTO(entry.Attachment),
	}
	return s.deliver(ctx, localID, req)
}

// deliver REST 确认回合：成功做身份对账并透传，失败置 failed。
// 失败不自动重试，等待用户触发 Resend。
func (s *chatServiceImpl) deliver(ctx context.Context, localID string, req *dto.SendMessageReq) (*model.Message, error) {
	reqCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	confirmed, err := s.rest.SendMessage(reqCtx, req)
	if err != nil {
		s.store.ApplyStatus(localID, model.StatusFailed)
		entry, _ := s.store.FindByLocalID(localID)
		s.persist(entry)
		translated := s.translateRestErr(err)
		log.Warn("消息发送失败", "localId", localID, "code", Code(translated), "err", err)
		return entry, translated
	}

	// 身份对账：同一条目就地携带 ServerID，LocalID 保留为稳定查找键
	entry := s.store.Upsert(&model.Message{
		LocalID:  localID,
		ServerID: confirmed.ID,
		Status:   model.StatusSent,
	})
	s.persist(entry)

	if err = s.transport.Emit(consts.EventSendMessage, dto.SendMessageEvent{
		RecipientID: s.peerID,
		MessageID:   entry.ServerID,
		Text:        req.Text,
		Attachment:  req.Attachment,
	}); err != nil {
		// 透传尽力而为，对端仍可经由服务端推送拿到消息
		log.Warn("长连接透传失败", "messageId", entry.ServerID, "err", err)
	}

	return entry, nil
}

// Messages 当前会话的全部消息，按时间从旧到新
func (s *chatServiceImpl) Messages() []*model.Message {
	return s.store.GetAll()
}

// PeerTyping 对端是否正在输入
func (s *chatServiceImpl) PeerTyping() bool {
	s.typingMu.Lock()
	defer s.typingMu.Unlock()
	return s.peerTyping
}

// NotifyComposing 广播本端正在输入，静默期后自动补发 stopTyping
func (s *chatServiceImpl) NotifyComposing() {
	if err := s.transport.Emit(consts.EventTyping, dto.TypingEvent{UserID: s.selfID}); err != nil {
		return
	}

	s.typingMu.Lock()
	defer s.typingMu.Unlock()
	if s.composeTimer != nil {
		s.composeTimer.Stop()
	}
	s.composeTimer = time.AfterFunc(s.typingQuiet, func() {
		_ = s.transport.Emit(consts.EventStopTyping, dto.TypingEvent{UserID: s.selfID})
	})
}

// DeleteMessage 显式本地删除，是条目被销毁的唯一途径
func (s *chatServiceImpl) DeleteMessage(ctx context.Context, identity string) error {
	entry, ok := s.store.FindByIdentity(identity)
	if !ok {
		return ErrMessageNotFound
	}
	s.store.Remove(identity)

	if s.cache != nil {
		if err := s.cache.DeleteMessage(ctx, entry); err != nil {
			log.Warn("本地缓存删除失败", "identity", identity, "err", err)
		}
	}
	return nil
}

// React 为消息追加表情回应
func (s *chatServiceImpl) React(ctx context.Context, identity string, emoji string) error {
	if !s.store.AddReaction(identity, model.Reaction{Emoji: emoji, ReactorID: s.selfID}) {
		return ErrMessageNotFound
	}
	if entry, ok := s.store.FindByIdentity(identity); ok {
		s.persist(entry)
	}
	return nil
}

// Pin 置顶或取消置顶
func (s *chatServiceImpl) Pin(ctx context.Context, identity string, pinned bool) error {
	if !s.store.SetPinned(identity, pinned) {
		return ErrMessageNotFound
	}
	if entry, ok := s.store.FindByIdentity(identity); ok {
		s.persist(entry)
	}
	return nil
}

// persist 异步落地到本地缓存，失败只记日志
func (s *chatServiceImpl) persist(entry *model.Message) {
	if s.cache == nil || entry == nil {
		return
	}
	ctx, cancel := context.WithTimeout(logger.WithConversation(context.Background(), s.convKey), 2*time.Second)
	defer cancel()
	if err := s.cache.SaveMessage(ctx, entry); err != nil {
		log.WarnContext(ctx, "本地消息缓存写入失败", "identity", entry.Identity(), "err", err)
	}
}

// emitReadReceipt 回执载荷与原事件形态保持一致：messageId + 对端 senderId
func (s *chatServiceImpl) emitReadReceipt(serverID string) {
	if err := s.transport.Emit(consts.EventMessageRead, dto.ReadReceiptEvent{
		MessageID: serverID,
		SenderID:  s.peerID,
	}); err != nil {
		log.Warn("已读回执发送失败", "messageId", serverID, "err", err)
	}
}

// translateRestErr 将 REST 层错误翻译为业务错误
func (s *chatServiceImpl) translateRestErr(err error) error {
	switch {
	case errors.Is(err, rest.ErrUnauthorized):
		return ErrAuthToken
	case errors.Is(err, rest.ErrNetwork), errors.Is(err, context.DeadlineExceeded):
		return ErrNetwork
	default:
		return ErrSendFailed
	}
}

func toAttachmentDTO(att *model.Attachment) *dto.AttachmentDTO {
	if att == nil {
		return nil
	}
	return &dto.AttachmentDTO{
		URL:      att.URL,
		MimeType: att.MimeType,
		Width:    att.Width,
		Height:   att.Height,
		Duration: att.Duration,
	}
}
