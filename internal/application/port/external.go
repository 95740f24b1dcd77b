package port

//go:generate mockgen -destination=mocks/mock_external.go -package=mocks . PaymentGateway,EmailSender

import (
	"context"

	"github.com/destiin/travel-booking/internal/domain/entity"
)

// PaymentGateway creates payment links and refunds captured payments
type PaymentGateway interface {
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatePaymentResult, error)
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
}

// CreatePaymentRequest is the payload of a payment link request
type CreatePaymentRequest struct {
	Amount         float64
	Currency       string
	Email          string
	Name           string
	Phone          string
	Purpose        string
	PaymentMethods []string
}

// CreatePaymentResult carries the hosted payment page
type CreatePaymentResult struct {
	URL string
	Raw map[string]interface{}
}

// RefundRequest asks the gateway to refund a captured transaction
type RefundRequest struct {
	PaymentID string // gateway transaction id
	Amount    float64
	Currency  string
}

// RefundResult is the gateway's answer to a refund request
type RefundResult struct {
	Success bool
	Data    map[string]interface{}
	Error   string
}

// PriceComparator asks the comparison service for competitor prices
type PriceComparator interface {
	Compare(ctx context.Context, req PriceComparisonRequest) (*PriceComparisonResult, error)
}

// PriceComparisonRequest describes the stay to compare
type PriceComparisonRequest struct {
	HotelID   string
	HotelName string
	City      string
	Country   string
	CheckIn   string
	CheckOut  string
	Adults    int
	Children  int
	Rooms     int
	RoomNames []string
	Sites     []string
}

// SitePrice is one competitor site's answer
type SitePrice struct {
	Site         string
	Success      bool
	TotalWithTax float64
}

// PriceComparisonResult holds all site answers
type PriceComparisonResult struct {
	Results []SitePrice
}

// Lowest returns the cheapest successful site price
func (r *PriceComparisonResult) Lowest() (SitePrice, bool) {
	var best SitePrice
	found := false
	for _, res := range r.Results {
		if !res.Success || res.TotalWithTax <= 0 {
			continue
		}
		if !found || res.TotalWithTax < best.TotalWithTax {
			best = res
			found = true
		}
	}
	return best, found
}

// EmailSender delivers notification emails
type EmailSender interface {
	SendEmail(ctx context.Context, to []string, subject, body string) error
}

// ChatMessenger pushes short text notifications to a chat user
type ChatMessenger interface {
	SendText(ctx context.Context, openID, text string) error
}

// AgentAssigner picks the agent responsible for a new request
type AgentAssigner interface {
	Assign(ctx context.Context) (*entity.Agent, error)
}
