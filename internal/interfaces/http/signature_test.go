package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/destiin/travel-booking/internal/application/service"
)

func TestSignatureVerifier(t *testing.T) {
	body := []byte(`{"booking_id":"B1"}`)

	t.Run("disabled without secret", func(t *testing.T) {
		v := NewSignatureVerifier("")
		assert.False(t, v.Enabled())
		assert.True(t, v.VerifySignature("", "", "", body))
	})

	t.Run("accepts matching signature", func(t *testing.T) {
		v := NewSignatureVerifier("s3cret")
		sig := v.Sign("1700000000", "n1", body)
		assert.Len(t, sig, 64)
		assert.True(t, v.VerifySignature("1700000000", "n1", sig, body))
	})

	t.Run("rejects tampering", func(t *testing.T) {
		v := NewSignatureVerifier("s3cret")
		sig := v.Sign("1700000000", "n1", body)
		assert.False(t, v.VerifySignature("1700000001", "n1", sig, body))
		assert.False(t, v.VerifySignature("1700000000", "n1", sig, []byte(`{"booking_id":"B2"}`)))
		assert.False(t, v.VerifySignature("1700000000", "n1", "", body))
	})
}

func TestWebhookSignatureMiddleware(t *testing.T) {
	confirmations := &mockConfirmationService{res: &service.Result{Success: true}}
	cfg := DefaultServerConfig()
	cfg.WebhookSecret = "s3cret"
	s := NewServer(cfg, Services{Confirmations: confirmations}, nopLogger{})

	payload := `{"client_reference":"E1_2026-08-01_2026-08-02","booking_id":"B1","status":"confirmed","hotel":{"id":"H1"}}`
	send := func(signature string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/webhooks/bookings/create", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(HeaderSignatureTimestamp, "1700000000")
		req.Header.Set(HeaderSignatureNonce, "n1")
		req.Header.Set(HeaderSignature, signature)
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, req)
		return rec
	}

	rec := send("bogus")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, confirmations.webhooks)

	rec = send(NewSignatureVerifier("s3cret").Sign("1700000000", "n1", []byte(payload)))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, confirmations.webhooks, 1)
	assert.Equal(t, "B1", confirmations.webhooks[0].BookingID.String())
}
