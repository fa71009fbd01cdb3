package xaman

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	httpclient "github.com/wefund/wefund-api/internal/client/http"
	"github.com/wefund/wefund-api/internal/logger"
)

const (
	// DefaultAPIBase is the production gateway endpoint
	DefaultAPIBase = "https://xumm.app/api/v1"

	// rateLimitCode is the error code the gateway wraps in an HTTP 400
	// when the application has exhausted its request quota
	rateLimitCode = 429

	// DefaultRetryAfterSeconds is the wait suggested to callers on rate limit
	DefaultRetryAfterSeconds = 300
)

// ErrRateLimited indicates the gateway rejected the request for quota reasons.
// RetryAfter is the suggested wait in seconds.
type ErrRateLimited struct {
	RetryAfter int
}

func (e *ErrRateLimited) Error() string {
	return fmt.Sprintf("gateway rate limit exceeded, retry after %d seconds", e.RetryAfter)
}

// Client talks to the signing gateway's platform API
type Client struct {
	httpClient *httpclient.HTTPClient
}

// NewClient creates a gateway client authenticating with the given key pair
func NewClient(apiBase, apiKey, apiSecret string) *Client {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	return &Client{
		httpClient: httpclient.NewHTTPClient(
			httpclient.WithBaseURL(apiBase),
			httpclient.WithDefaultHeader("X-API-Key", apiKey),
			httpclient.WithDefaultHeader("X-API-Secret", apiSecret),
			httpclient.WithTimeout(15*time.Second),
			httpclient.WithMetricsCollector(httpclient.NewPrometheusMetricsCollector("xaman")),
		),
	}
}

// CreatePayload registers a signing request with the gateway and returns the
// tracking UUID plus the QR/deeplink refs the user needs to sign it.
func (c *Client) CreatePayload(ctx context.Context, req CreatePayloadRequest) (*CreatePayloadResponse, error) {
	resp, err := c.httpClient.Post(ctx, "/platform/payload", req)
	if err != nil {
		if httpErr, ok := err.(*httpclient.HTTPError); ok {
			if rle := asRateLimit(httpErr); rle != nil {
				return nil, rle
			}
		}
		return nil, errors.Wrap(err, "failed to create payload")
	}

	var created CreatePayloadResponse
	if err := c.httpClient.ProcessJSONResponse(resp, &created); err != nil {
		return nil, errors.Wrap(err, "failed to decode payload response")
	}

	if created.UUID == "" || created.Refs.QRPng == "" {
		return nil, errors.New("invalid response from signing gateway")
	}

	return &created, nil
}

// GetPayload fetches the current resolution state of a payload
func (c *Client) GetPayload(ctx context.Context, payloadID string) (*PayloadStatus, error) {
	resp, err := c.httpClient.Get(ctx, "/platform/payload/"+payloadID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to check payload status")
	}

	var status PayloadStatus
	if err := c.httpClient.ProcessJSONResponse(resp, &status); err != nil {
		return nil, errors.Wrap(err, "failed to decode payload status")
	}

	return &status, nil
}

// WaitForResolution polls the payload until it reaches a terminal state, with
// exponential backoff between attempts. The wait is bounded by maxElapsed and
// by ctx; an abandoned flow stops polling instead of running forever.
func (c *Client) WaitForResolution(ctx context.Context, payloadID string, initial, maxInterval, maxElapsed time.Duration) (*PayloadStatus, error) {
	var status *PayloadStatus

	operation := func() error {
		s, err := c.GetPayload(ctx, payloadID)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !s.Terminal() {
			return errors.New("payload still pending")
		}
		status = s
		return nil
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = initial
	expBackoff.MaxInterval = maxInterval
	expBackoff.MaxElapsedTime = maxElapsed

	if err := backoff.Retry(operation, backoff.WithContext(expBackoff, ctx)); err != nil {
		if status == nil {
			logger.Warn("payload wait ended without resolution",
				zap.String("payload_id", payloadID),
				zap.Error(err))
			return nil, fmt.Errorf("payload %s did not resolve in time: %w", payloadID, err)
		}
	}

	return status, nil
}

// Ping verifies the gateway credentials
func (c *Client) Ping(ctx context.Context) (*PingResponse, error) {
	resp, err := c.httpClient.Get(ctx, "/platform/ping")
	if err != nil {
		return nil, errors.Wrap(err, "failed to ping gateway")
	}

	var ping PingResponse
	if err := c.httpClient.ProcessJSONResponse(resp, &ping); err != nil {
		return nil, errors.Wrap(err, "failed to decode ping response")
	}

	return &ping, nil
}

// asRateLimit translates the gateway's 400-wrapped quota error into
// ErrRateLimited, or returns nil when the failure is something else.
func asRateLimit(httpErr *httpclient.HTTPError) *ErrRateLimited {
	if httpErr.StatusCode != 400 {
		return nil
	}
	var gwErr gatewayError
	if err := json.Unmarshal([]byte(httpErr.Body), &gwErr); err != nil {
		return nil
	}
	if gwErr.Error.Code != rateLimitCode {
		return nil
	}
	return &ErrRateLimited{RetryAfter: DefaultRetryAfterSeconds}
}
