package rest

import (
	"Ripple/internal/api/dto"
	"context"
)

// GetFriends 好友列表
func (c *Client) GetFriends(ctx context.Context) ([]dto.FriendDTO, error) {
	var out dto.ListResp[dto.FriendDTO]
	resp, err := c.http.R().SetContext(ctx).SetResult(&out).Get("/api/friends")
	if err = wrapResponse(resp, err); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// GetPendingRequests 待处理的好友请求
func (c *Client) GetPendingRequests(ctx context.Context) ([]dto.FriendRequestDTO, error) {
	var out dto.ListResp[dto.FriendRequestDTO]
	resp, err := c.http.R().SetContext(ctx).SetResult(&out).Get("/api/friends/requests/pending")
	if err = wrapResponse(resp, err); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// SendFriendRequest 发起好友请求
func (c *Client) SendFriendRequest(ctx context.Context, targetID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"targetId": targetID}).
		Post("/api/friends/send-request")
	return wrapResponse(resp, err)
}

// AcceptFriendRequest 接受好友请求
func (c *Client) AcceptFriendRequest(ctx context.Context, requestID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("requestId", requestID).
		Post("/api/friends/requests/{requestId}/accept")
	return wrapResponse(resp, err)
}

// RejectFriendRequest 拒绝好友请求
func (c *Client) RejectFriendRequest(ctx context.Context, requestID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("requestId", requestID).
		Post("/api/friends/requests/{requestId}/reject")
	return wrapResponse(resp, err)
}

// GetSuggestions 好友推荐
func (c *Client) GetSuggestions(ctx context.Context) ([]dto.FriendDTO, error) {
	var out dto.ListResp[dto.FriendDTO]
	resp, err := c.http.R().SetContext(ctx).SetResult(&out).Get("/api/friends/suggestions")
	if err = wrapResponse(resp, err); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// GetProfile 拉取用户资料
func (c *Client) GetProfile(ctx context.Context, userID string) (*dto.ProfileDTO, error) {
	var out dto.ItemResp[*dto.ProfileDTO]
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetPathParam("userId", userID).
		Get("/api/user/profile/{userId}")
	if err = wrapResponse(resp, err); err != nil {
		return nil, err
	}
	return out.Data, nil
}
