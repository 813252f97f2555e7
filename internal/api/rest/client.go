package rest

import (
	"Ripple/internal/app/config"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

var (
	ErrUnauthorized  = errors.New("rest: unauthorized")
	ErrRequestFailed = errors.New("rest: request failed")
	ErrNetwork       = errors.New("rest: network unreachable")
)

// TokenProvider 提供当前会话的鉴权令牌
type TokenProvider interface {
	AuthToken() (string, error)
}

// Client 后端 REST 接口客户端，每次请求自动附加 Bearer 令牌
type Client struct {
	http *resty.Client
}

// NewClient 构造 REST 客户端，超时默认 15 秒
func NewClient(cfg config.ServerConfig, tokens TokenProvider) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	http.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		token, err := tokens.AuthToken()
		if err != nil {
			return errors.Wrap(ErrUnauthorized, err.Error())
		}
		if token == "" {
			return errors.Wrap(ErrUnauthorized, "登录凭证缺失")
		}
		req.SetAuthToken(token)
		return nil
	})

	return &Client{http: http}
}

// wrapResponse 统一翻译传输层与业务层错误
func wrapResponse(resp *resty.Response, err error) error {
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return err
		}
		return errors.Wrap(ErrNetwork, err.Error())
	}
	if resp.StatusCode() == 401 || resp.StatusCode() == 403 {
		return ErrUnauthorized
	}
	if resp.IsError() {
		return errors.Wrap(ErrRequestFailed, fmt.Sprintf("status %d", resp.StatusCode()))
	}
	return nil
}
