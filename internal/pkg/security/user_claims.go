package security

import "github.com/golang-jwt/jwt/v5"

// UserClaims 登录令牌中携带的用户信息
type UserClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}
