package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/destiin/travel-booking/internal/application/port"
	"github.com/destiin/travel-booking/internal/pkg/errs"
)

// recorder captures the last request a test server received
type recorder struct {
	path    string
	headers http.Header
	body    map[string]interface{}
}

func newServer(t *testing.T, status int, response string) (*httptest.Server, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST request, got %s", r.Method)
		}
		rec.path = r.URL.Path
		rec.headers = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&rec.body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestPaymentClient_CreatePayment(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantURL  string
	}{
		{"url field", `{"url":"https://pay/1"}`, "https://pay/1"},
		{"payment_url field", `{"payment_url":"https://pay/2"}`, "https://pay/2"},
		{"nested data url", `{"data":{"url":"https://pay/3"}}`, "https://pay/3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, rec := newServer(t, http.StatusOK, tt.response)
			c := NewPaymentClient(Config{PaymentsBaseURL: srv.URL + "/payments/v1/hitpay/"}, zap.NewNop())

			res, err := c.CreatePayment(context.Background(), port.CreatePaymentRequest{
				Amount:  118,
				Phone:   "+100",
				Purpose: "Booking 1 - Sea View",
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, res.URL)

			assert.Equal(t, "/payments/v1/hitpay/create-payment", rec.path)
			assert.Equal(t, 118.0, rec.body["amount"])
			assert.Equal(t, fallbackEmail, rec.body["email"])
			assert.Equal(t, fallbackName, rec.body["name"])
			assert.Equal(t, []interface{}{"card"}, rec.body["payment_methods"])
		})
	}

	t.Run("missing url is an upstream error", func(t *testing.T) {
		srv, _ := newServer(t, http.StatusOK, `{"status":"ok"}`)
		c := NewPaymentClient(Config{PaymentsBaseURL: srv.URL}, zap.NewNop())

		_, err := c.CreatePayment(context.Background(), port.CreatePaymentRequest{Amount: 1})
		require.Error(t, err)
		assert.True(t, errs.Is(err, errs.ErrUpstream))
	})

	t.Run("non-200 is an upstream error", func(t *testing.T) {
		srv, _ := newServer(t, http.StatusBadGateway, `bad gateway`)
		c := NewPaymentClient(Config{PaymentsBaseURL: srv.URL}, zap.NewNop())

		_, err := c.CreatePayment(context.Background(), port.CreatePaymentRequest{Amount: 1})
		require.Error(t, err)
		assert.True(t, errs.Is(err, errs.ErrUpstream))
		assert.Contains(t, err.Error(), "502")
	})
}

func TestPaymentClient_Refund(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		srv, rec := newServer(t, http.StatusOK, `{"success":true,"data":{"refund_id":"rf_1"}}`)
		c := NewPaymentClient(Config{PaymentsBaseURL: srv.URL}, zap.NewNop())

		res, err := c.Refund(context.Background(), port.RefundRequest{PaymentID: "tx_1", Amount: 118000, Currency: "USD"})
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "rf_1", res.Data["refund_id"])

		assert.Equal(t, "/refund", rec.path)
		assert.Equal(t, map[string]interface{}{"payment_id": "tx_1", "amount": 118000.0, "currency": "USD"}, rec.body)
	})

	t.Run("rejected with string error", func(t *testing.T) {
		srv, _ := newServer(t, http.StatusOK, `{"success":false,"error":"already refunded"}`)
		c := NewPaymentClient(Config{PaymentsBaseURL: srv.URL}, zap.NewNop())

		res, err := c.Refund(context.Background(), port.RefundRequest{PaymentID: "tx_1", Amount: 1})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "already refunded", res.Error)
	})

	t.Run("rejected with object error", func(t *testing.T) {
		srv, _ := newServer(t, http.StatusOK, `{"success":false,"error":{"code":42}}`)
		c := NewPaymentClient(Config{PaymentsBaseURL: srv.URL}, zap.NewNop())

		res, err := c.Refund(context.Background(), port.RefundRequest{PaymentID: "tx_1", Amount: 1})
		require.NoError(t, err)
		assert.Equal(t, `{"code":42}`, res.Error)
	})

	t.Run("malformed body", func(t *testing.T) {
		srv, _ := newServer(t, http.StatusOK, `not json`)
		c := NewPaymentClient(Config{PaymentsBaseURL: srv.URL}, zap.NewNop())

		_, err := c.Refund(context.Background(), port.RefundRequest{PaymentID: "tx_1", Amount: 1})
		assert.True(t, errs.Is(err, errs.ErrUpstream))
	})
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewPaymentClient(Config{PaymentsBaseURL: srv.URL, Timeout: 20 * time.Millisecond}, zap.NewNop())
	_, err := c.Refund(context.Background(), port.RefundRequest{PaymentID: "tx_1", Amount: 1})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrUpstream))
}

func TestPriceComparisonClient_Compare(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, `{"results":[
		{"site":"agoda","success":true,"price_breakdown":{"total_with_tax":390.5}},
		{"site":"booking","success":false},
		{"site":"expedia","success":true,"price_breakdown":{"total_with_tax":410}}
	]}`)
	c := NewPriceComparisonClient(Config{OpsBaseURL: srv.URL, PriceComparisonSites: []string{"agoda", "booking", "expedia"}}, zap.NewNop())

	res, err := c.Compare(context.Background(), port.PriceComparisonRequest{
		HotelID:   "H1",
		HotelName: "Sea View",
		CheckIn:   "2026-08-01",
		CheckOut:  "2026-08-02",
		Adults:    2,
		Rooms:     1,
	})
	require.NoError(t, err)
	require.Len(t, res.Results, 3)

	lowest, ok := res.Lowest()
	require.True(t, ok)
	assert.Equal(t, "agoda", lowest.Site)
	assert.Equal(t, 390.5, lowest.TotalWithTax)

	assert.Equal(t, "/priceComparison", rec.path)
	assert.Equal(t, []interface{}{"agoda", "booking", "expedia"}, rec.body["sites"])
	assert.Equal(t, []interface{}{}, rec.body["rooms"])
	occupancy, _ := rec.body["occupancy"].(map[string]interface{})
	assert.Equal(t, 2.0, occupancy["adults"])
}

func TestPriceComparisonClient_DefaultTimeout(t *testing.T) {
	c := NewPriceComparisonClient(Config{}, nil)
	assert.Equal(t, 900*time.Second, c.httpClient.Timeout)
}

func TestEmailClient_SendEmail(t *testing.T) {
	t.Run("sends with info header", func(t *testing.T) {
		srv, rec := newServer(t, http.StatusOK, `{}`)
		c := NewEmailClient(Config{MainBaseURL: srv.URL}, zap.NewNop())

		err := c.SendEmail(context.Background(), []string{"a@example.com", "b@example.com"}, "Hello", "<p>Hi</p>")
		require.NoError(t, err)

		assert.Equal(t, "/email/send", rec.path)
		assert.Equal(t, "true", rec.headers.Get("info"))
		assert.Equal(t, "application/json", rec.headers.Get("Content-Type"))
		assert.Equal(t, []interface{}{"a@example.com", "b@example.com"}, rec.body["toEmails"])
		assert.Equal(t, "Hello", rec.body["subject"])
	})

	t.Run("non-200 fails", func(t *testing.T) {
		srv, _ := newServer(t, http.StatusInternalServerError, `oops`)
		c := NewEmailClient(Config{MainBaseURL: srv.URL}, zap.NewNop())

		err := c.SendEmail(context.Background(), []string{"a@example.com"}, "s", "b")
		assert.True(t, errs.Is(err, errs.ErrUpstream))
	})

	t.Run("needs recipients", func(t *testing.T) {
		c := NewEmailClient(Config{MainBaseURL: "http://unused"}, zap.NewNop())
		err := c.SendEmail(context.Background(), nil, "s", "b")
		assert.True(t, errs.Is(err, errs.ErrValidation))
	})
}
