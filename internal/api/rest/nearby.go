package rest

import (
	"Ripple/internal/api/dto"
	"context"
)

// ReportLocation 上报当前位置
func (c *Client) ReportLocation(ctx context.Context, req *dto.LocationReq) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		Post("/api/nearby/location")
	return wrapResponse(resp, err)
}

// GetNearbyUsers 拉取附近的用户
func (c *Client) GetNearbyUsers(ctx context.Context) ([]dto.NearbyUserDTO, error) {
	var out dto.ListResp[dto.NearbyUserDTO]
	resp, err := c.http.R().SetContext(ctx).SetResult(&out).Get("/api/nearby/users")
	if err = wrapResponse(resp, err); err != nil {
		return nil, err
	}
	return out.Data, nil
}
