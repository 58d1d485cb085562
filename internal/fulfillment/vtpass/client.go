// Package vtpass adapts the VTpass HTTP API to the fulfillment provider interface.
package vtpass

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/vtuhub/walletledger/internal/fulfillment"
	"github.com/vtuhub/walletledger/pkg/logger"
	"github.com/vtuhub/walletledger/pkg/money"
)

const (
	Name = "vtpass"

	payPath     = "/api/pay"
	requeryPath = "/api/requery"

	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	defaultRetryBase  = 500 * time.Millisecond
	maxResponseBytes  = 1 << 20
)

// ErrInvalidResponse is returned when the provider answers with something other than a JSON object.
var ErrInvalidResponse = errors.New("vtpass: invalid provider response")

// Config configures the VTpass client.
type Config struct {
	BaseURL    string
	APIKey     string
	Username   string
	Password   string
	Timeout    time.Duration
	MaxRetries uint64
	RetryBase  time.Duration
}

// Client implements fulfillment.Provider against VTpass.
type Client struct {
	baseURL    string
	cfg        Config
	httpClient *http.Client
	logg       *logger.Logger
}

// New validates cfg and builds a client. httpClient may be nil.
func New(cfg Config, httpClient *http.Client, logg *logger.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("vtpass base url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = defaultRetryBase
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{baseURL: baseURL, cfg: cfg, httpClient: httpClient, logg: logg}, nil
}

func (c *Client) Name() string { return Name }

func (c *Client) PurchaseAirtime(ctx context.Context, req fulfillment.Request) (fulfillment.Result, error) {
	return c.do(ctx, payPath, map[string]any{
		"request_id": req.Reference,
		"serviceID":  req.ServiceCode,
		"amount":     money.Format(req.Amount),
		"phone":      req.Destination,
	})
}

func (c *Client) PurchaseData(ctx context.Context, req fulfillment.Request) (fulfillment.Result, error) {
	network, plan := fulfillment.SplitDataCode(req.ServiceCode)
	return c.do(ctx, payPath, map[string]any{
		"request_id":     req.Reference,
		"serviceID":      network,
		"billersCode":    req.Destination,
		"variation_code": plan,
		"phone":          req.Destination,
	})
}

func (c *Client) PurchaseBill(ctx context.Context, req fulfillment.Request) (fulfillment.Result, error) {
	return c.do(ctx, payPath, map[string]any{
		"request_id":  req.Reference,
		"serviceID":   req.ServiceCode,
		"billersCode": req.Destination,
		"amount":      money.Format(req.Amount),
	})
}

func (c *Client) Verify(ctx context.Context, reference, providerReference string) (fulfillment.Result, error) {
	return c.do(ctx, requeryPath, map[string]any{
		"request_id":     reference,
		"transaction_id": providerReference,
	})
}

// do posts payload and normalizes the answer. Transport failures, 429 and 5xx
// responses are retried; when retries run out the error is returned so the
// caller can keep the purchase pending.
func (c *Client) do(ctx context.Context, path string, payload map[string]any) (fulfillment.Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return fulfillment.Result{}, fmt.Errorf("encode vtpass payload: %w", err)
	}

	if c.logg != nil {
		ctx = c.logg.WithFields(ctx, map[string]any{"provider": Name, "path": path, "request_id": payload["request_id"]})
		c.logg.Info(ctx, "vtpass request")
	}

	var decoded map[string]any
	backoff := retry.WithMaxRetries(c.cfg.MaxRetries, retry.NewExponential(c.cfg.RetryBase))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		status, data, err := c.send(ctx, path, body)
		if err != nil {
			return retry.RetryableError(err)
		}
		if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
			return retry.RetryableError(fmt.Errorf("vtpass %s returned status %d", path, status))
		}
		decoded = nil
		if err := json.Unmarshal(data, &decoded); err != nil || decoded == nil {
			return fmt.Errorf("%w: status %d", ErrInvalidResponse, status)
		}
		return nil
	})
	if err != nil {
		if c.logg != nil {
			c.logg.Error(ctx, "vtpass request failed", err)
		}
		return fulfillment.Result{}, err
	}

	result := Normalize(decoded)
	if c.logg != nil {
		c.logg.Info(c.logg.WithFields(ctx, map[string]any{
			"status":             result.Status,
			"provider_reference": result.ProviderReference,
			"code":               decoded["code"],
		}), "vtpass response")
	}
	return result, nil
}

func (c *Client) send(ctx context.Context, path string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("api-key", c.cfg.APIKey)
	}
	if c.cfg.Username != "" && c.cfg.Password != "" {
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, data, nil
}
