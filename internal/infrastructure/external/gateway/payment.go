package gateway

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/destiin/travel-booking/internal/application/port"
	"github.com/destiin/travel-booking/internal/pkg/errs"
)

const (
	createPaymentPath = "/create-payment"
	refundPath        = "/refund"

	fallbackEmail = "customer@example.com"
	fallbackName  = "Customer"
)

// PaymentClient implements port.PaymentGateway
type PaymentClient struct {
	*client
}

// NewPaymentClient creates a payment gateway client rooted at cfg.PaymentsBaseURL
func NewPaymentClient(cfg Config, logger *zap.Logger) *PaymentClient {
	return &PaymentClient{client: newClient(cfg.PaymentsBaseURL, cfg.Timeout, logger)}
}

type createPaymentBody struct {
	Amount         float64  `json:"amount"`
	Currency       string   `json:"currency,omitempty"`
	Email          string   `json:"email"`
	Name           string   `json:"name"`
	Phone          string   `json:"phone"`
	Purpose        string   `json:"purpose"`
	PaymentMethods []string `json:"payment_methods"`
}

// CreatePayment requests a hosted payment page
func (p *PaymentClient) CreatePayment(ctx context.Context, req port.CreatePaymentRequest) (*port.CreatePaymentResult, error) {
	body := createPaymentBody{
		Amount:         req.Amount,
		Currency:       req.Currency,
		Email:          req.Email,
		Name:           req.Name,
		Phone:          req.Phone,
		Purpose:        req.Purpose,
		PaymentMethods: req.PaymentMethods,
	}
	if body.Email == "" {
		body.Email = fallbackEmail
	}
	if body.Name == "" {
		body.Name = fallbackName
	}
	if len(body.PaymentMethods) == 0 {
		body.PaymentMethods = []string{"card"}
	}

	var raw map[string]interface{}
	if err := p.postJSON(ctx, createPaymentPath, nil, body, &raw); err != nil {
		return nil, err
	}

	url := paymentURL(raw)
	if url == "" {
		return nil, errs.Upstreamf("payment URL not found in gateway response")
	}

	p.logger.Info("Payment link created", zap.Float64("amount", req.Amount), zap.String("purpose", req.Purpose))
	return &port.CreatePaymentResult{URL: url, Raw: raw}, nil
}

// paymentURL reads url, payment_url or data.url, in that order
func paymentURL(raw map[string]interface{}) string {
	if s, ok := raw["url"].(string); ok && s != "" {
		return s
	}
	if s, ok := raw["payment_url"].(string); ok && s != "" {
		return s
	}
	if data, ok := raw["data"].(map[string]interface{}); ok {
		if s, ok := data["url"].(string); ok {
			return s
		}
	}
	return ""
}

type refundBody struct {
	PaymentID string  `json:"payment_id"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency,omitempty"`
}

type refundResponse struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data"`
	Error   json.RawMessage        `json:"error"`
}

// Refund asks the gateway to refund a captured transaction. A 200 answer
// with success=false is returned as a result, not an error.
func (p *PaymentClient) Refund(ctx context.Context, req port.RefundRequest) (*port.RefundResult, error) {
	var resp refundResponse
	err := p.postJSON(ctx, refundPath, nil, refundBody{
		PaymentID: req.PaymentID,
		Amount:    req.Amount,
		Currency:  req.Currency,
	}, &resp)
	if err != nil {
		return nil, err
	}

	result := &port.RefundResult{
		Success: resp.Success,
		Data:    resp.Data,
		Error:   rawErrorString(resp.Error),
	}
	if !result.Success && result.Error == "" {
		result.Error = "refund was not accepted"
	}

	p.logger.Info("Refund requested",
		zap.String("payment_id", req.PaymentID),
		zap.Float64("amount", req.Amount),
		zap.Bool("success", result.Success))
	return result, nil
}

// rawErrorString flattens an error field that may be a string or an object
func rawErrorString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

var _ port.PaymentGateway = (*PaymentClient)(nil)
