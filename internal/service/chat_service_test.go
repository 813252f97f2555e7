package service

import (
	"Ripple/internal/api/dto"
	"Ripple/internal/app/config"
	"Ripple/internal/model"
	"Ripple/internal/pkg/consts"
	"Ripple/internal/pkg/ws"
	"Ripple/internal/repository"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	selfID = "u1"
	peerID = "u2"
)

// fakeTransport 记录出站事件并支持向处理器注入入站事件
type fakeTransport struct {
	mu    sync.Mutex
	subs  map[string][]ws.Handler
	emits map[string][][]byte
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		subs:  make(map[string][]ws.Handler),
		emits: make(map[string][][]byte),
	}
}

func (f *fakeTransport) On(kind string, fn ws.Handler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[kind] = append(f.subs[kind], fn)
	return func() {}
}

func (f *fakeTransport) Emit(kind string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emits[kind] = append(f.emits[kind], data)
	return nil
}

func (f *fakeTransport) deliver(t *testing.T, kind string, payload interface{}) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)

	f.mu.Lock()
	handlers := append([]ws.Handler(nil), f.subs[kind]...)
	f.mu.Unlock()
	for _, h := range handlers {
		h(data)
	}
}

func (f *fakeTransport) emitted(kind string) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.emits[kind]...)
}

// fakeSender 可编程的 REST 消息接口替身
type fakeSender struct {
	history []*dto.MessageDTO
	sendFn  func(ctx context.Context, req *dto.SendMessageReq) (*dto.MessageDTO, error)
}

func (f *fakeSender) GetMessages(_ context.Context, _ string) ([]*dto.MessageDTO, error) {
	return f.history, nil
}

func (f *fakeSender) SendMessage(ctx context.Context, req *dto.SendMessageReq) (*dto.MessageDTO, error) {
	return f.sendFn(ctx, req)
}

func newChat(t *testing.T, transport *fakeTransport, sender *fakeSender) *chatServiceImpl {
	t.Helper()
	store := repository.NewMessageStore(model.DeriveConversationKey(selfID, peerID))
	svc := NewChatService(selfID, peerID, store, nil, sender, transport, config.ChatConfig{})
	return svc.(*chatServiceImpl)
}

func peerMessage(serverID, text string) *dto.MessageDTO {
	return &dto.MessageDTO{
		ID:        serverID,
		Sender:    &dto.UserRef{ID: peerID},
		Text:      text,
		CreatedAt: time.Now(),
		Status:    string(model.StatusSent),
	}
}

func TestSendReconciliation(t *testing.T) {
	transport := newFakeTransport()
	sender := &fakeSender{
		sendFn: func(_ context.Context, _ *dto.SendMessageReq) (*dto.MessageDTO, error) {
			return &dto.MessageDTO{ID: "S1"}, nil
		},
	}
	s := newChat(t, transport, sender)

	entry, err := s.Send(context.Background(), "hello", nil)
	require.NoError(t, err)

	// 确认前后条目数不变：身份对账就地合并
	assert.Equal(t, 1, s.store.Len())
	assert.Equal(t, "S1", entry.ServerID)
	assert.NotEmpty(t, entry.LocalID)
	assert.Equal(t, model.StatusSent, entry.Status)

	// REST 成功后通过长连接透传给对端
	emits := transport.emitted(consts.EventSendMessage)
	require.Len(t, emits, 1)
	var ev dto.SendMessageEvent
	require.NoError(t, json.Unmarshal(emits[0], &ev))
	assert.Equal(t, "S1", ev.MessageID)
	assert.Equal(t, peerID, ev.RecipientID)
}

func TestSendRejectsEmptyMessage(t *testing.T) {
	transport := newFakeTransport()
	s := newChat(t, transport, &fakeSender{})

	_, err := s.Send(context.Background(), "   ", nil)
	assert.ErrorIs(t, err, ErrInvalidMessage)
	assert.Equal(t, 0, s.store.Len())
}

func TestSendFailureThenResendReusesLocalID(t *testing.T) {
	transport := newFakeTransport()
	failing := true
	sender := &fakeSender{
		sendFn: func(_ context.Context, _ *dto.SendMessageReq) (*dto.MessageDTO, error) {
			if failing {
				return nil, ErrNetwork
			}
			return &dto.MessageDTO{ID: "S1"}, nil
		},
	}
	s := newChat(t, transport, sender)

	entry, err := s.Send(context.Background(), "hello", nil)
	require.Error(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, model.StatusFailed, entry.Status)
	localID := entry.LocalID

	// 失败不自动重试，由用户触发重发；复用原 LocalID，不产生新条目
	failing = false
	resent, err := s.Resend(context.Background(), localID)
	require.NoError(t, err)
	assert.Equal(t, localID, resent.LocalID)
	assert.Equal(t, "S1", resent.ServerID)
	assert.Equal(t, model.StatusSent, resent.Status)
	assert.Equal(t, 1, s.store.Len())
}

func TestResendRequiresFailedState(t *testing.T) {
	transport := newFakeTransport()
	sender := &fakeSender{
		sendFn: func(_ context.Context, _ *dto.SendMessageReq) (*dto.MessageDTO, error) {
			return &dto.MessageDTO{ID: "S1"}, nil
		},
	}
	s := newChat(t, transport, sender)

	entry, err := s.Send(context.Background(), "hello", nil)
	require.NoError(t, err)

	_, err = s.Resend(context.Background(), entry.LocalID)
	assert.ErrorIs(t, err, ErrResendState)

	_, err = s.Resend(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestSendTimeoutMarksFailed(t *testing.T) {
	transport := newFakeTransport()
	sender := &fakeSender{
		sendFn: func(ctx context.Context, _ *dto.SendMessageReq) (*dto.MessageDTO, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	s := newChat(t, transport, sender)
	s.sendTimeout = 50 * time.Millisecond

	entry, err := s.Send(context.Background(), "hello", nil)
	assert.ErrorIs(t, err, ErrNetwork)
	require.NotNil(t, entry)
	assert.Equal(t, model.StatusFailed, entry.Status)
}

func TestInboundDuplicateDeliveredOnce(t *testing.T) {
	transport := newFakeTransport()
	s := newChat(t, transport, &fakeSender{})
	require.NoError(t, s.Open(context.Background()))

	msg := peerMessage("S2", "hi")
	transport.deliver(t, consts.EventReceiveMessage, msg)
	transport.deliver(t, consts.EventReceiveMessage, msg)

	// 恰好一个条目，恰好一次回执：重复投递连同副作用一起吞掉
	assert.Equal(t, 1, s.store.Len())
	assert.Len(t, transport.emitted(consts.EventMessageRead), 1)

	entry, ok := s.store.FindByServerID("S2")
	require.True(t, ok)
	assert.Equal(t, model.StatusSent, entry.Status)
}

func TestInboundIgnoresOtherSenders(t *testing.T) {
	transport := newFakeTransport()
	s := newChat(t, transport, &fakeSender{})
	require.NoError(t, s.Open(context.Background()))

	stranger := &dto.MessageDTO{
		ID:        "S9",
		Sender:    &dto.UserRef{ID: "u3"},
		Text:      "wrong room",
		CreatedAt: time.Now(),
	}
	transport.deliver(t, consts.EventReceiveMessage, stranger)

	assert.Equal(t, 0, s.store.Len())
	assert.Empty(t, transport.emitted(consts.EventMessageRead))
}

func TestStatusUpdateScenario(t *testing.T) {
	transport := newFakeTransport()
	sender := &fakeSender{
		sendFn: func(_ context.Context, _ *dto.SendMessageReq) (*dto.MessageDTO, error) {
			return &dto.MessageDTO{ID: "S1"}, nil
		},
	}
	s := newChat(t, transport, sender)
	require.NoError(t, s.Open(context.Background()))

	_, err := s.Send(context.Background(), "hello", nil)
	require.NoError(t, err)

	transport.deliver(t, consts.EventStatusUpdate, dto.StatusUpdateEvent{ID: "S1", Status: "read"})
	entry, _ := s.store.FindByServerID("S1")
	assert.Equal(t, model.StatusRead, entry.Status)

	// 迟到的 delivered 回执被拒绝
	transport.deliver(t, consts.EventStatusUpdate, dto.StatusUpdateEvent{ID: "S1", Status: "delivered"})
	entry, _ = s.store.FindByServerID("S1")
	assert.Equal(t, model.StatusRead, entry.Status)
}

func TestStatusUpdateUnknownMessageDropped(t *testing.T) {
	transport := newFakeTransport()
	s := newChat(t, transport, &fakeSender{})
	require.NoError(t, s.Open(context.Background()))

	// 引用未拉取消息的回执丢弃，不崩溃不建条目
	transport.deliver(t, consts.EventStatusUpdate, dto.StatusUpdateEvent{ID: "S404", Status: "read"})
	assert.Equal(t, 0, s.store.Len())
}

func TestTypingAutoClears(t *testing.T) {
	transport := newFakeTransport()
	s := newChat(t, transport, &fakeSender{})
	s.typingQuiet = 50 * time.Millisecond
	require.NoError(t, s.Open(context.Background()))

	transport.deliver(t, consts.EventTyping, dto.TypingEvent{UserID: peerID})
	assert.True(t, s.PeerTyping())

	// stopTyping 丢失时静默期后自动清除
	time.Sleep(120 * time.Millisecond)
	assert.False(t, s.PeerTyping())
}

func TestStopTypingClearsImmediately(t *testing.T) {
	transport := newFakeTransport()
	s := newChat(t, transport, &fakeSender{})
	require.NoError(t, s.Open(context.Background()))

	transport.deliver(t, consts.EventTyping, dto.TypingEvent{UserID: peerID})
	require.True(t, s.PeerTyping())

	transport.deliver(t, consts.EventStopTyping, dto.TypingEvent{UserID: peerID})
	assert.False(t, s.PeerTyping())
}

func TestOpenAcksUnreadHistory(t *testing.T) {
	transport := newFakeTransport()
	own := &dto.MessageDTO{
		ID:        "S0",
		Sender:    &dto.UserRef{ID: selfID},
		Text:      "mine",
		CreatedAt: time.Now().Add(-time.Minute),
		Status:    string(model.StatusRead),
	}
	sender := &fakeSender{
		history: []*dto.MessageDTO{own, peerMessage("S1", "one"), peerMessage("S2", "two")},
	}
	s := newChat(t, transport, sender)
	require.NoError(t, s.Open(context.Background()))

	assert.Equal(t, 3, s.store.Len())
	// 仅对端未读消息补发回执
	assert.Len(t, transport.emitted(consts.EventMessageRead), 2)
}

func TestOrderingAcrossPipelines(t *testing.T) {
	transport := newFakeTransport()
	sender := &fakeSender{
		sendFn: func(_ context.Context, _ *dto.SendMessageReq) (*dto.MessageDTO, error) {
			return &dto.MessageDTO{ID: "S-out"}, nil
		},
	}
	s := newChat(t, transport, sender)
	require.NoError(t, s.Open(context.Background()))

	earlier := peerMessage("S-in", "late arrival")
	earlier.CreatedAt = time.Now().Add(-time.Hour)

	_, err := s.Send(context.Background(), "now", nil)
	require.NoError(t, err)
	transport.deliver(t, consts.EventReceiveMessage, earlier)

	// 展示顺序由集合排序决定，与到达顺序无关
	all := s.Messages()
	require.Len(t, all, 2)
	assert.Equal(t, "S-in", all[0].ServerID)
	assert.Equal(t, "S-out", all[1].ServerID)
}

func TestDeleteMessageRemovesEntry(t *testing.T) {
	transport := newFakeTransport()
	s := newChat(t, transport, &fakeSender{})
	require.NoError(t, s.Open(context.Background()))

	transport.deliver(t, consts.EventReceiveMessage, peerMessage("S1", "bye"))
	require.Equal(t, 1, s.store.Len())

	require.NoError(t, s.DeleteMessage(context.Background(), "S1"))
	assert.Equal(t, 0, s.store.Len())

	assert.ErrorIs(t, s.DeleteMessage(context.Background(), "S1"), ErrMessageNotFound)
}

func TestReactAndPin(t *testing.T) {
	transport := newFakeTransport()
	s := newChat(t, transport, &fakeSender{})
	require.NoError(t, s.Open(context.Background()))

	transport.deliver(t, consts.EventReceiveMessage, peerMessage("S1", "hey"))

	require.NoError(t, s.React(context.Background(), "S1", "❤️"))
	require.NoError(t, s.Pin(context.Background(), "S1", true))

	entry, _ := s.store.FindByServerID("S1")
	assert.Len(t, entry.Reactions, 1)
	assert.Equal(t, selfID, entry.Reactions[0].ReactorID)
	assert.True(t, entry.IsPinned)
}
