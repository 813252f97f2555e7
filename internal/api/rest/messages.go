package rest

import (
	"Ripple/internal/api/dto"
	"context"

	"github.com/pkg/errors"
)

// GetMessages 拉取与指定用户的历史消息，从旧到新
func (c *Client) GetMessages(ctx context.Context, peerID string) ([]*dto.MessageDTO, error) {
	var out dto.MessageListResp

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetPathParam("peerId", peerID).
		Get("/api/messages/{peerId}")
	if err = wrapResponse(resp, err); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, errors.Wrap(ErrRequestFailed, "history load rejected")
	}
	return out.Data, nil
}

// SendMessage 持久化一条消息，成功时返回携带服务端 ID 的明细
func (c *Client) SendMessage(ctx context.Context, req *dto.SendMessageReq) (*dto.MessageDTO, error) {
	var out dto.SendMessageResp

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/api/messages/send")
	if err = wrapResponse(resp, err); err != nil {
		return nil, err
	}
	if !out.Success || out.Message == nil {
		return nil, errors.Wrap(ErrRequestFailed, "send rejected by server")
	}
	return out.Message, nil
}
