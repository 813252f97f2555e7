package dto

import "time"

// UserRef 后端用户对象的多形态载荷，_id 与 id 并存
type UserRef struct {
	ID     string `json:"_id"`
	AltID  string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// UserID 统一取用户 ID
func (u *UserRef) UserID() string {
	if u == nil {
		return ""
	}
	if u.ID != "" {
		return u.ID
	}
	return u.AltID
}

// ProfileDTO 用户资料
type ProfileDTO struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
	Bio      string `json:"bio"`
	IsOnline bool   `json:"isOnline"`
}

// FriendDTO 好友列表项
type FriendDTO struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
	IsOnline bool   `json:"isOnline"`
}

// FriendRequestDTO 好友请求
type FriendRequestDTO struct {
	ID        string    `json:"_id"`
	From      *UserRef  `json:"from"`
	CreatedAt time.Time `json:"createdAt"`
}

// NearbyUserDTO 附近的用户
type NearbyUserDTO struct {
	ID         string  `json:"_id"`
	Name       string  `json:"name"`
	Avatar     string  `json:"avatar"`
	DistanceKM float64 `json:"distance"`
}

// LocationReq 位置上报请求体
type LocationReq struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ListResp 通用列表响应包裹
type ListResp[T any] struct {
	Success bool `json:"success"`
	Data    []T  `json:"data"`
}

// ItemResp 通用单项响应包裹
type ItemResp[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}
