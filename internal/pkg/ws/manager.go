package ws

import (
	"Ripple/internal/app/config"
	"Ripple/internal/pkg/consts"
	"context"
	"errors"
	log "log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

var (
	ErrAuthRejected = errors.New("连接鉴权被拒绝")
	ErrNotConnected = errors.New("长连接未建立")
	ErrHandshake    = errors.New("握手响应异常")
)

// SessionState 连接会话状态
type SessionState string

const (
	StateDisconnected SessionState = "disconnected"
	StateConnecting   SessionState = "connecting"
	StateConnected    SessionState = "connected"
)

// Handler 事件处理器，payload 为事件数据的原始 JSON
type Handler func(payload []byte)

// Frame 长连接上的统一帧格式
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type authPayload struct {
	Token string `json:"token"`
}

// SessionStateEvent 本地合成的会话状态变更事件载荷
type SessionStateEvent struct {
	State SessionState `json:"state"`
}

type subscription struct {
	id   uint64
	kind string
	fn   Handler
}

// Manager 进程级唯一的长连接管理器。
// 登录时 Connect，登出时 Disconnect；处理器注册表跨重连保留，
// 连接意外断开后以指数退避自动重连并重新完成鉴权握手。
type Manager struct {
	url              string
	handshakeTimeout time.Duration
	writeTimeout     time.Duration
	backoffInitial   time.Duration
	backoffMax       time.Duration

	mu       sync.Mutex
	conn     *websocket.Conn
	state    SessionState
	token    string
	loggedIn bool
	gen      uint64 // 连接代次，用于使过期的读循环和重连循环失效
	nextSub  uint64
	subs     map[string][]*subscription

	stateQueue    []stateEvent // 待派发的状态事件，单 goroutine 顺序消费
	stateDraining bool

	writeMu sync.Mutex
}

type stateEvent struct {
	subs    []*subscription
	payload []byte
}

// NewManager 构造长连接管理器，零值配置采用默认参数
func NewManager(cfg config.TransportConfig) *Manager {
	m := &Manager{
		url:              cfg.URL,
		handshakeTimeout: time.Duration(cfg.HandshakeTimeout) * time.Second,
		writeTimeout:     time.Duration(cfg.WriteTimeout) * time.Second,
		backoffInitial:   time.Duration(cfg.BackoffInitialMS) * time.Millisecond,
		backoffMax:       time.Duration(cfg.BackoffMaxMS) * time.Millisecond,
		state:            StateDisconnected,
		subs:             make(map[string][]*subscription),
	}
	if m.handshakeTimeout <= 0 {
		m.handshakeTimeout = 10 * time.Second
	}
	if m.writeTimeout <= 0 {
		m.writeTimeout = 10 * time.Second
	}
	if m.backoffInitial <= 0 {
		m.backoffInitial = time.Second
	}
	if m.backoffMax <= 0 {
		m.backoffMax = 30 * time.Second
	}
	return m
}

// Connect 建立连接并完成鉴权握手。
// 已在连接中或已连接时幂等返回，不发起第二次拨号。
// 令牌被拒返回 ErrAuthRejected，网络不可达返回底层拨号错误。
func (m *Manager) Connect(ctx context.Context, token string) error {
	m.mu.Lock()
	if m.state != StateDisconnected {
		m.mu.Unlock()
		return nil
	}
	m.token = token
	m.loggedIn = true
	m.setStateLocked(StateConnecting)
	m.mu.Unlock()

	conn, err := m.dial(ctx, token)
	if err != nil {
		m.mu.Lock()
		m.loggedIn = false
		m.setStateLocked(StateDisconnected)
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	if !m.loggedIn {
		// 拨号期间发生了登出
		m.mu.Unlock()
		_ = conn.Close()
		return ErrNotConnected
	}
	m.conn = conn
	m.gen++
	gen := m.gen
	m.setStateLocked(StateConnected)
	m.mu.Unlock()

	go m.readPump(conn, gen)
	log.Info("长连接已建立", "url", m.url)
	return nil
}

// Disconnect 释放会话与底层连接，可重复调用
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loggedIn = false
	m.gen++
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	if m.state != StateDisconnected {
		m.setStateLocked(StateDisconnected)
		log.Info("长连接已断开")
	}
}

// On 注册事件处理器，返回注销函数。注册关系跨重连保留。
func (m *Manager) On(kind string, fn Handler) func() {
	m.mu.Lock()
	m.nextSub++
	sub := &subscription{id: m.nextSub, kind: kind, fn: fn}
	m.subs[kind] = append(m.subs[kind], sub)
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		list := m.subs[kind]
		for i, s := range list {
			if s.id == sub.id {
				m.subs[kind] = append(list[:i], list[i+1:]...)
				return
			}
		}
	}
}

// Emit 发送事件帧，尽力而为，不提供投递保证
func (m *Manager) Emit(kind string, payload interface{}) error {
	m.mu.Lock()
	conn := m.conn
	state := m.state
	m.mu.Unlock()

	if state != StateConnected || conn == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(Frame{Event: kind, Data: data})
	if err != nil {
		return err
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(m.writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, frame)
}

// State 当前会话状态
func (m *Manager) State() SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// dial 拨号并完成鉴权握手
func (m *Manager) dial(ctx context.Context, token string) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, m.url, nil)
	if err != nil {
		return nil, err
	}

	authData, _ := json.Marshal(authPayload{Token: token})
	frame, _ := json.Marshal(Frame{Event: consts.EventAuth, Data: authData})
	_ = conn.SetWriteDeadline(time.Now().Add(m.writeTimeout))
	if err = conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		_ = conn.Close()
		return nil, err
	}

	_ = conn.SetReadDeadline(time.Now().Add(m.handshakeTimeout))
	_, reply, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	_ = conn.SetReadDeadline(time.Time{})

	var ack Frame
	if err = json.Unmarshal(reply, &ack); err != nil {
		_ = conn.Close()
		return nil, ErrHandshake
	}
	switch ack.Event {
	case consts.EventAuthAck:
		return conn, nil
	case consts.EventAuthError:
		_ = conn.Close()
		return nil, ErrAuthRejected
	default:
		_ = conn.Close()
		return nil, ErrHandshake
	}
}

// readPump 读循环，错误即认为连接丢失
func (m *Manager) readPump(conn *websocket.Conn, gen uint64) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.handleDrop(gen, err)
			return
		}
		m.dispatch(data)
	}
}

// handleDrop 连接意外丢失后进入自动重连
func (m *Manager) handleDrop(gen uint64, cause error) {
	m.mu.Lock()
	if gen != m.gen || !m.loggedIn {
		m.mu.Unlock()
		return
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.setStateLocked(StateConnecting)
	m.mu.Unlock()

	log.Warn("长连接意外断开，准备重连", "err", cause)
	go m.reconnectLoop(gen)
}

// reconnectLoop 指数退避重连，登出或鉴权被拒时停止
func (m *Manager) reconnectLoop(gen uint64) {
	backoff := m.backoffInitial
	for {
		m.mu.Lock()
		if gen != m.gen || !m.loggedIn {
			m.mu.Unlock()
			return
		}
		token := m.token
		m.mu.Unlock()

		conn, err := m.dial(context.Background(), token)
		if err == nil {
			m.mu.Lock()
			if gen != m.gen || !m.loggedIn {
				m.mu.Unlock()
				_ = conn.Close()
				return
			}
			m.conn = conn
			m.gen++
			newGen := m.gen
			m.setStateLocked(StateConnected)
			m.mu.Unlock()

			go m.readPump(conn, newGen)
			log.Info("长连接重连成功")
			return
		}

		if errors.Is(err, ErrAuthRejected) {
			log.Error("重连鉴权失败，停止重试", "err", err)
			m.mu.Lock()
			if gen == m.gen {
				m.loggedIn = false
				m.setStateLocked(StateDisconnected)
			}
			m.mu.Unlock()
			return
		}

		log.Warn("重连失败，退避后重试", "err", err, "backoff", backoff)
		time.Sleep(backoff)
		backoff *= 2
		if backoff > m.backoffMax {
			backoff = m.backoffMax
		}
	}
}

// dispatch 将事件帧派发给注册的处理器
func (m *Manager) dispatch(data []byte) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		log.Warn("收到无法解析的事件帧", "err", err)
		return
	}

	m.mu.Lock()
	list := append([]*subscription(nil), m.subs[frame.Event]...)
	m.mu.Unlock()

	for _, sub := range list {
		sub.fn(frame.Data)
	}
}

// setStateLocked 更新状态并入队会话状态事件，调用方须持锁。
// 事件由单个 goroutine 顺序派发，订阅者观察到的顺序与状态变迁一致。
func (m *Manager) setStateLocked(s SessionState) {
	if m.state == s {
		return
	}
	m.state = s

	list := append([]*subscription(nil), m.subs[consts.EventSessionState]...)
	if len(list) == 0 {
		return
	}
	payload, _ := json.Marshal(SessionStateEvent{State: s})
	m.stateQueue = append(m.stateQueue, stateEvent{subs: list, payload: payload})
	if !m.stateDraining {
		m.stateDraining = true
		go m.drainStateEvents()
	}
}

// drainStateEvents 顺序消费状态事件队列，处理器在锁外执行
func (m *Manager) drainStateEvents() {
	for {
		m.mu.Lock()
		if len(m.stateQueue) == 0 {
			m.stateDraining = false
			m.mu.Unlock()
			return
		}
		ev := m.stateQueue[0]
		m.stateQueue = m.stateQueue[1:]
		m.mu.Unlock()

		for _, sub := range ev.subs {
			sub.fn(ev.payload)
		}
	}
}
