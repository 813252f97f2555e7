package service

import (
	"Ripple/internal/api/dto"
	"Ripple/internal/api/rest"
	"context"
	"errors"
)

// FriendService 好友关系接口的瘦封装，后端拥有全部业务规则
type FriendService interface {
	List(ctx context.Context) ([]dto.FriendDTO, error)
	PendingRequests(ctx context.Context) ([]dto.FriendRequestDTO, error)
	SendRequest(ctx context.Context, targetID string) error
	AcceptRequest(ctx context.Context, requestID string) error
	RejectRequest(ctx context.Context, requestID string) error
	Suggestions(ctx context.Context) ([]dto.FriendDTO, error)
	Profile(ctx context.Context, userID string) (*dto.ProfileDTO, error)
}

type friendServiceImpl struct {
	rest *rest.Client
}

func NewFriendService(restClient *rest.Client) FriendService {
	return &friendServiceImpl{rest: restClient}
}

func (s *friendServiceImpl) List(ctx context.Context) ([]dto.FriendDTO, error) {
	out, err := s.rest.GetFriends(ctx)
	return out, translateErr(err)
}

func (s *friendServiceImpl) PendingRequests(ctx context.Context) ([]dto.FriendRequestDTO, error) {
	out, err := s.rest.GetPendingRequests(ctx)
	return out, translateErr(err)
}

func (s *friendServiceImpl) SendRequest(ctx context.Context, targetID string) error {
	return translateErr(s.rest.SendFriendRequest(ctx, targetID))
}

func (s *friendServiceImpl) AcceptRequest(ctx context.Context, requestID string) error {
	return translateErr(s.rest.AcceptFriendRequest(ctx, requestID))
}

func (s *friendServiceImpl) RejectRequest(ctx context.Context, requestID string) error {
	return translateErr(s.rest.RejectFriendRequest(ctx, requestID))
}

func (s *friendServiceImpl) Suggestions(ctx context.Context) ([]dto.FriendDTO, error) {
	out, err := s.rest.GetSuggestions(ctx)
	return out, translateErr(err)
}

func (s *friendServiceImpl) Profile(ctx context.Context, userID string) (*dto.ProfileDTO, error) {
	out, err := s.rest.GetProfile(ctx, userID)
	return out, translateErr(err)
}

// translateErr REST 层错误到业务错误的公共翻译
func translateErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rest.ErrUnauthorized):
		return ErrAuthToken
	case errors.Is(err, rest.ErrNetwork):
		return ErrNetwork
	default:
		return UnExpectedError
	}
}
