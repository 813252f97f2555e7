package consts

// 长连接事件
const (
	EventAuth           = "auth"
	EventAuthAck        = "authAck"
	EventAuthError      = "authError"
	EventReceiveMessage = "receiveMessage"
	EventSendMessage    = "sendMessage"
	EventStatusUpdate   = "messageStatusUpdate"
	EventMessageRead    = "messageRead"
	EventTyping         = "typing"
	EventStopTyping     = "stopTyping"
	EventSessionState   = "sessionState" // 本地合成事件，不走网络
)

// 本地凭证键
const (
	CredentialAuthToken = "auth_token"
	CredentialPushToken = "push_token"
)
