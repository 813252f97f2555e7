package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	NotFound            = 404
	Conflict            = 409
	InternalServerError = 500
)

var (
	ErrAuthToken         = errors.New("登录凭证无效或已过期")
	ErrNetwork           = errors.New("网络不可用，请稍后重试")
	ErrInvalidMessage    = errors.New("消息内容不能为空")
	ErrMessageNotFound   = errors.New("消息不存在")
	ErrResendState       = errors.New("仅发送失败的消息可以重发")
	ErrSendFailed        = errors.New("消息发送失败")
	ErrReconcileConflict = errors.New("收到未知消息的状态回执")
	UnExpectedError      = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrAuthToken:         Unauthorized,
	ErrNetwork:           InternalServerError,
	ErrInvalidMessage:    BadRequest,
	ErrMessageNotFound:   NotFound,
	ErrResendState:       BadRequest,
	ErrSendFailed:        InternalServerError,
	ErrReconcileConflict: Conflict,
	UnExpectedError:      InternalServerError,
}

// Code 将业务错误映射为宿主可识别的分类码（重新登录、重试、提示），
// 未登记的错误按系统异常处理
func Code(err error) int {
	for sentinel, code := range ErrorMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return InternalServerError
}
