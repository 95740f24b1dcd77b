// Package gateway holds the HTTP clients for the payment, price comparison
// and email services. Every call is a single attempt bounded by the client
// timeout; failures are reported as errs.ErrUpstream.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/destiin/travel-booking/internal/pkg/errs"
)

const maxErrorBody = 512

// Config holds the outbound service endpoints
type Config struct {
	PaymentsBaseURL        string
	OpsBaseURL             string
	MainBaseURL            string
	Timeout                time.Duration
	PriceComparisonTimeout time.Duration
	PriceComparisonSites   []string
}

// client posts JSON to one base URL
type client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func newClient(baseURL string, timeout time.Duration, logger *zap.Logger) *client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// postJSON sends body to path and decodes a 200 response into out (when non-nil)
func (c *client) postJSON(ctx context.Context, path string, headers map[string]string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Gateway call failed", zap.String("url", url), zap.Error(err))
		return errs.Upstream(err, "request to "+path+" failed")
	}
	defer resp.Body.Close()

	c.logger.Debug("Gateway call completed",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Error("Gateway returned error status",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(snippet)))
		return errs.Upstreamf("%s returned status code %d: %s", path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.Upstream(err, "malformed response from "+path)
	}
	return nil
}
