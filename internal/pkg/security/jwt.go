package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenMalformed = errors.New("token 格式不正确")
	ErrTokenExpired   = errors.New("token 已过期")
)

// ParseClaims 解析 Token 中的 Claims。
// 客户端不持有签名密钥，签名校验由服务端完成，这里只做结构解析。
func ParseClaims(tokenString string) (*UserClaims, error) {
	claims := &UserClaims{}

	_, _, err := jwt.NewParser().ParseUnverified(tokenString, claims)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	return claims, nil
}

// EnsureUsable 在建立连接前本地检查令牌是否仍然可用
func EnsureUsable(tokenString string) (*UserClaims, error) {
	claims, err := ParseClaims(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, ErrTokenExpired
	}

	return claims, nil
}
