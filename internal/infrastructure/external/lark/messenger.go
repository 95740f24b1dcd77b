package lark

import (
	"context"
	"encoding/json"
	"fmt"

	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/destiin/travel-booking/internal/application/port"
	"github.com/destiin/travel-booking/internal/pkg/errs"
)

const (
	receiveIDTypeOpenID = "open_id"
	msgTypeText         = "text"
)

// Messenger implements port.ChatMessenger with Lark IM text messages
type Messenger struct {
	sdk    *SDKClient
	logger *zap.Logger
}

// NewMessenger creates a new Lark message sender
func NewMessenger(sdk *SDKClient, logger *zap.Logger) *Messenger {
	return &Messenger{
		sdk:    sdk,
		logger: logger,
	}
}

// SendText sends a plain text message to the user identified by openID
func (m *Messenger) SendText(ctx context.Context, openID, text string) error {
	if openID == "" {
		return errs.Validationf("openID cannot be empty")
	}
	if text == "" {
		return errs.Validationf("text cannot be empty")
	}

	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveIDTypeOpenID).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(openID).
			MsgType(msgTypeText).
			Content(string(content)).
			Build()).
		Build()

	resp, err := m.sdk.GetClient().Im.Message.Create(ctx, req)
	if err != nil {
		m.logger.Error("Failed to send message",
			zap.String("receive_id", openID),
			zap.Error(err))
		return errs.Upstream(err, "lark message create failed")
	}

	if !resp.Success() {
		m.logger.Error("API returned failure",
			zap.String("receive_id", openID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return errs.Upstreamf("lark API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}
	m.logger.Info("Message sent successfully",
		zap.String("message_id", messageID),
		zap.String("receive_id", openID))
	return nil
}

// NopMessenger drops messages; used when Lark is not configured
type NopMessenger struct{}

// SendText does nothing
func (NopMessenger) SendText(ctx context.Context, openID, text string) error {
	return nil
}

var (
	_ port.ChatMessenger = (*Messenger)(nil)
	_ port.ChatMessenger = NopMessenger{}
)
