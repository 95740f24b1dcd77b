package gateway

import (
	"context"

	"go.uber.org/zap"

	"github.com/destiin/travel-booking/internal/application/port"
	"github.com/destiin/travel-booking/internal/pkg/errs"
)

const emailSendPath = "/email/send"

// EmailClient implements port.EmailSender over the notification service
type EmailClient struct {
	*client
}

// NewEmailClient creates an email client rooted at cfg.MainBaseURL
func NewEmailClient(cfg Config, logger *zap.Logger) *EmailClient {
	return &EmailClient{client: newClient(cfg.MainBaseURL, cfg.Timeout, logger)}
}

type emailBody struct {
	ToEmails []string `json:"toEmails"`
	Subject  string   `json:"subject"`
	Body     string   `json:"body"`
}

// SendEmail delivers one message to every recipient
func (e *EmailClient) SendEmail(ctx context.Context, to []string, subject, body string) error {
	if len(to) == 0 {
		return errs.Validationf("at least one recipient is required")
	}

	err := e.postJSON(ctx, emailSendPath, map[string]string{"info": "true"}, emailBody{
		ToEmails: to,
		Subject:  subject,
		Body:     body,
	}, nil)
	if err != nil {
		return err
	}

	e.logger.Info("Email sent", zap.Strings("to", to), zap.String("subject", subject))
	return nil
}

var _ port.EmailSender = (*EmailClient)(nil)
