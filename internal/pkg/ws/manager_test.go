package ws

import (
	"Ripple/internal/app/config"
	"Ripple/internal/pkg/consts"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

// newAuthServer 模拟服务端：完成鉴权握手后把连接交给测试用例，
// ackDelay 用于模拟回执迟到的慢握手
func newAuthServer(t *testing.T, rejectAuth bool, ackDelay time.Duration) (*httptest.Server, chan *websocket.Conn) {
	t.Helper()
	conns := make(chan *websocket.Conn, 4)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame Frame
		require.NoError(t, json.Unmarshal(data, &frame))
		require.Equal(t, consts.EventAuth, frame.Event)

		if ackDelay > 0 {
			time.Sleep(ackDelay)
		}

		reply := consts.EventAuthAck
		if rejectAuth {
			reply = consts.EventAuthError
		}
		ack, _ := json.Marshal(Frame{Event: reply})
		if err = conn.WriteMessage(websocket.TextMessage, ack); err != nil {
			return
		}
		if rejectAuth {
			_ = conn.Close()
			return
		}
		conns <- conn
	}))
	t.Cleanup(srv.Close)
	return srv, conns
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func newTestManager(srv *httptest.Server) *Manager {
	return NewManager(config.TransportConfig{
		URL:              wsURL(srv),
		BackoffInitialMS: 10,
		BackoffMaxMS:     50,
	})
}

func waitConn(t *testing.T, conns chan *websocket.Conn) *websocket.Conn {
	t.Helper()
	select {
	case c := <-conns:
		return c
	case <-time.After(3 * time.Second):
		t.Fatal("服务端未在限期内收到连接")
		return nil
	}
}

func pushFrame(t *testing.T, conn *websocket.Conn, event string, payload interface{}) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	frame, err := json.Marshal(Frame{Event: event, Data: data})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

func TestConnectAndDispatch(t *testing.T) {
	srv, conns := newAuthServer(t, false, 0)
	m := newTestManager(srv)

	received := make(chan []byte, 1)
	m.On(consts.EventReceiveMessage, func(p []byte) { received <- p })

	require.NoError(t, m.Connect(context.Background(), "token-1"))
	defer m.Disconnect()
	assert.Equal(t, StateConnected, m.State())

	server := waitConn(t, conns)
	pushFrame(t, server, consts.EventReceiveMessage, map[string]string{"_id": "S1"})

	select {
	case p := <-received:
		assert.Contains(t, string(p), "S1")
	case <-time.After(2 * time.Second):
		t.Fatal("事件未派发到处理器")
	}
}

func TestReconnectHandlerSurvival(t *testing.T) {
	srv, conns := newAuthServer(t, false, 0)
	m := newTestManager(srv)

	received := make(chan []byte, 1)
	m.On(consts.EventReceiveMessage, func(p []byte) { received <- p })

	require.NoError(t, m.Connect(context.Background(), "token-1"))
	defer m.Disconnect()

	// 模拟传输层断开
	first := waitConn(t, conns)
	_ = first.Close()

	// 自动重连并重新握手，处理器无需重新注册
	second := waitConn(t, conns)
	pushFrame(t, second, consts.EventReceiveMessage, map[string]string{"_id": "S9"})

	select {
	case p := <-received:
		assert.Contains(t, string(p), "S9")
	case <-time.After(3 * time.Second):
		t.Fatal("重连后事件丢失")
	}
	assert.Equal(t, StateConnected, m.State())
}

func TestAuthRejected(t *testing.T) {
	srv, _ := newAuthServer(t, true, 0)
	m := newTestManager(srv)

	err := m.Connect(context.Background(), "bad-token")
	assert.ErrorIs(t, err, ErrAuthRejected)
	assert.Equal(t, StateDisconnected, m.State())
}

func TestDisconnectIdempotent(t *testing.T) {
	srv, conns := newAuthServer(t, false, 0)
	m := newTestManager(srv)

	require.NoError(t, m.Connect(context.Background(), "token-1"))
	waitConn(t, conns)

	m.Disconnect()
	m.Disconnect()
	assert.Equal(t, StateDisconnected, m.State())

	// 断开后可重新建立会话
	require.NoError(t, m.Connect(context.Background(), "token-1"))
	waitConn(t, conns)
	m.Disconnect()
}

func TestEmitRequiresConnection(t *testing.T) {
	m := NewManager(config.TransportConfig{URL: "ws://127.0.0.1:0"})
	err := m.Emit(consts.EventTyping, map[string]string{"userId": "u1"})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestSessionStateEventsOrdered(t *testing.T) {
	srv, conns := newAuthServer(t, false, 0)
	m := newTestManager(srv)

	states := make(chan SessionState, 8)
	m.On(consts.EventSessionState, func(p []byte) {
		var ev SessionStateEvent
		require.NoError(t, json.Unmarshal(p, &ev))
		states <- ev.State
	})

	require.NoError(t, m.Connect(context.Background(), "token-1"))
	waitConn(t, conns)
	m.Disconnect()

	// 订阅者观察到的顺序与状态变迁一致
	for _, expect := range []SessionState{StateConnecting, StateConnected, StateDisconnected} {
		select {
		case got := <-states:
			assert.Equal(t, expect, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("未等到状态事件 %s", expect)
		}
	}
}

func TestConnectWhileConnectingIsIdempotent(t *testing.T) {
	srv, conns := newAuthServer(t, false, 150*time.Millisecond)
	m := newTestManager(srv)

	done := make(chan error, 1)
	go func() { done <- m.Connect(context.Background(), "token-1") }()

	// 首次握手尚未完成，第二次 Connect 幂等返回且不重复拨号
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, m.Connect(context.Background(), "token-1"))

	require.NoError(t, <-done)
	defer m.Disconnect()

	waitConn(t, conns)
	select {
	case <-conns:
		t.Fatal("出现了第二条连接")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	srv, conns := newAuthServer(t, false, 0)
	m := newTestManager(srv)

	received := make(chan []byte, 1)
	unsub := m.On(consts.EventTyping, func(p []byte) { received <- p })
	require.NoError(t, m.Connect(context.Background(), "token-1"))
	defer m.Disconnect()

	server := waitConn(t, conns)
	unsub()
	pushFrame(t, server, consts.EventTyping, map[string]string{"userId": "u2"})

	select {
	case <-received:
		t.Fatal("注销后的处理器仍收到事件")
	case <-time.After(200 * time.Millisecond):
	}
}
