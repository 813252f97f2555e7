package model

// MessageStatus 消息投递状态
type MessageStatus string

const (
	StatusPending   MessageStatus = "pending"
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
	StatusFailed    MessageStatus = "failed"
)

// statusRank 状态只能沿该序号单向推进
var statusRank = map[MessageStatus]int{
	StatusPending:   0,
	StatusSent:      1,
	StatusDelivered: 2,
	StatusRead:      3,
}

// Rank 返回状态序号，failed 等终态不参与排序
func (s MessageStatus) Rank() (int, bool) {
	r, ok := statusRank[s]
	return r, ok
}

// CanTransition 校验状态推进是否合法：
// pending -> sent -> delivered -> read 单向推进，
// failed 仅能从 pending/sent 进入且为终态。
func (s MessageStatus) CanTransition(target MessageStatus) bool {
	if s == StatusFailed {
		return false
	}
	if target == StatusFailed {
		return s == StatusPending || s == StatusSent
	}

	from, ok := s.Rank()
	if !ok {
		return false
	}
	to, ok := target.Rank()
	if !ok {
		return false
	}
	return to > from
}
