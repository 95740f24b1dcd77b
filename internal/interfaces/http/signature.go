package http

import (
	"bytes"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/destiin/travel-booking/internal/application/service"
)

// Supplier webhook signature headers
const (
	HeaderSignatureTimestamp = "X-Webhook-Timestamp"
	HeaderSignatureNonce     = "X-Webhook-Nonce"
	HeaderSignature          = "X-Webhook-Signature"
)

// SignatureVerifier checks supplier webhook signatures
type SignatureVerifier struct {
	secret string
}

// NewSignatureVerifier creates a verifier. An empty secret accepts every request.
func NewSignatureVerifier(secret string) *SignatureVerifier {
	return &SignatureVerifier{secret: secret}
}

// Enabled reports whether signatures are checked
func (v *SignatureVerifier) Enabled() bool {
	return v.secret != ""
}

// Sign returns hex(sha256(timestamp + nonce + secret + body))
func (v *SignatureVerifier) Sign(timestamp, nonce string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(timestamp))
	h.Write([]byte(nonce))
	h.Write([]byte(v.secret))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifySignature verifies the webhook signature
func (v *SignatureVerifier) VerifySignature(timestamp, nonce, signature string, body []byte) bool {
	if !v.Enabled() {
		return true
	}
	if signature == "" {
		return false
	}
	expected := v.Sign(timestamp, nonce, body)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// webhookSignature rejects supplier callbacks whose signature does not match.
// The body is restored for the handler.
func (s *Server) webhookSignature() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.verifier.Enabled() {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			s.logger.Error("Failed to read webhook body", "error", err)
			c.AbortWithStatusJSON(http.StatusBadRequest, service.Result{Success: false, Error: "failed to read request body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if !s.verifier.VerifySignature(
			c.GetHeader(HeaderSignatureTimestamp),
			c.GetHeader(HeaderSignatureNonce),
			c.GetHeader(HeaderSignature),
			body,
		) {
			s.logger.Info("Webhook signature rejected", "path", c.FullPath(), "client_ip", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, service.Result{Success: false, Error: "invalid webhook signature"})
			return
		}
		c.Next()
	}
}
