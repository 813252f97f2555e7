package service

import (
	"Ripple/internal/api/dto"
	"Ripple/internal/api/rest"
	"context"
)

// NearbyService 附近的人：位置上报与列表拉取
type NearbyService interface {
	ReportLocation(ctx context.Context, latitude, longitude float64) error
	NearbyUsers(ctx context.Context) ([]dto.NearbyUserDTO, error)
}

type nearbyServiceImpl struct {
	rest *rest.Client
}

func NewNearbyService(restClient *rest.Client) NearbyService {
	return &nearbyServiceImpl{rest: restClient}
}

func (s *nearbyServiceImpl) ReportLocation(ctx context.Context, latitude, longitude float64) error {
	return translateErr(s.rest.ReportLocation(ctx, &dto.LocationReq{
		Latitude:  latitude,
		Longitude: longitude,
	}))
}

func (s *nearbyServiceImpl) NearbyUsers(ctx context.Context) ([]dto.NearbyUserDTO, error) {
	out, err := s.rest.GetNearbyUsers(ctx)
	return out, translateErr(err)
}
