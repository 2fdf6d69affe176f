// Package stripe 以表单 API 调用 Stripe Checkout 与 Connect 转账，并校验 Webhook 签名。
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrConfigInvalid    = errors.New("stripe config invalid")
	ErrRequestFailed    = errors.New("stripe request failed")
	ErrResponseInvalid  = errors.New("stripe response invalid")
	ErrSignatureInvalid = errors.New("stripe signature invalid")
)

const (
	defaultAPIBaseURL = "https://api.stripe.com"
	defaultCurrency   = "USD"
	defaultTimeout    = 12 * time.Second
	defaultTolerance  = 5 * time.Minute
	maxResponseBytes  = 1 << 20
)

// Config Stripe 配置
type Config struct {
	SecretKey               string
	WebhookSecret           string
	SuccessURL              string
	CancelURL               string
	APIBaseURL              string
	Currency                string
	WebhookToleranceSeconds int
	Timeout                 time.Duration
}

func (c Config) withDefaults() Config {
	c.SecretKey = strings.TrimSpace(c.SecretKey)
	c.WebhookSecret = strings.TrimSpace(c.WebhookSecret)
	c.SuccessURL = strings.TrimSpace(c.SuccessURL)
	c.CancelURL = strings.TrimSpace(c.CancelURL)
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	if c.APIBaseURL == "" {
		c.APIBaseURL = defaultAPIBaseURL
	}
	c.Currency = normalizeCurrency(c.Currency, defaultCurrency)
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return c
}

func (c Config) tolerance() time.Duration {
	if c.WebhookToleranceSeconds <= 0 {
		return defaultTolerance
	}
	return time.Duration(c.WebhookToleranceSeconds) * time.Second
}

// APIError Stripe 返回的非 2xx 响应
type APIError struct {
	Path       string
	StatusCode int
	Type       string `json:"type"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("stripe %s returned %d", e.Path, e.StatusCode)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Unwrap 使 errors.Is(err, ErrResponseInvalid) 成立
func (e *APIError) Unwrap() error {
	return ErrResponseInvalid
}

// Client Stripe HTTP 客户端
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient 创建客户端
func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{cfg: cfg, httpClient: &http.Client{Timeout: cfg.Timeout}}
}

// Enabled 是否已配置密钥
func (c *Client) Enabled() bool {
	return c != nil && c.cfg.SecretKey != ""
}

func (c *Client) requireKey() error {
	if !c.Enabled() {
		return fmt.Errorf("%w: secret_key is required", ErrConfigInvalid)
	}
	return nil
}

// post 提交表单并把 2xx 响应解码到 out
func (c *Client) post(ctx context.Context, path string, form url.Values, idempotencyKey string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIBaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrResponseInvalid, path, err)
	}

	if resp.StatusCode/100 != 2 {
		apiErr := &APIError{Path: path, StatusCode: resp.StatusCode}
		var envelope struct {
			Error *APIError `json:"error"`
		}
		if json.Unmarshal(body, &envelope) == nil && envelope.Error != nil {
			apiErr.Type = envelope.Error.Type
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrResponseInvalid, path, err)
	}
	return nil
}
