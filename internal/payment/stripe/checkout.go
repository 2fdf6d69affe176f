package stripe

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Stripe 拒绝 30 分钟内过期的 expires_at
const minSessionLifetime = 30 * time.Minute

// CheckoutInput 创建收银台会话输入
type CheckoutInput struct {
	ReservationNo string
	Description   string
	UnitAmount    string
	Quantity      int
	Currency      string
	CustomerEmail string
	ExpiresAt     time.Time
}

// CheckoutSession 收银台会话
type CheckoutSession struct {
	SessionID string `json:"id"`
	URL       string `json:"url"`
	Status    string `json:"status"`
}

// CreateCheckoutSession 创建单行商品的 Checkout Session，保留单号写入 client_reference_id 与 metadata
func (c *Client) CreateCheckoutSession(ctx context.Context, input CheckoutInput) (*CheckoutSession, error) {
	if err := c.requireKey(); err != nil {
		return nil, err
	}
	reservationNo := strings.TrimSpace(input.ReservationNo)
	switch {
	case reservationNo == "":
		return nil, fmt.Errorf("%w: reservation_no is required", ErrConfigInvalid)
	case input.Quantity <= 0:
		return nil, fmt.Errorf("%w: quantity must be positive", ErrConfigInvalid)
	}
	currency := normalizeCurrency(input.Currency, c.cfg.Currency)
	unitAmount, err := toMinorAmount(input.UnitAmount, currency)
	if err != nil {
		return nil, err
	}
	productName := strings.TrimSpace(input.Description)
	if productName == "" {
		productName = reservationNo
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", c.cfg.SuccessURL)
	form.Set("cancel_url", c.cfg.CancelURL)
	form.Set("client_reference_id", reservationNo)
	form.Set("metadata[reservation_no]", reservationNo)
	form.Set("payment_intent_data[metadata][reservation_no]", reservationNo)
	form.Set("line_items[0][quantity]", strconv.Itoa(input.Quantity))
	form.Set("line_items[0][price_data][currency]", strings.ToLower(currency))
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(unitAmount, 10))
	form.Set("line_items[0][price_data][product_data][name]", productName)
	if email := strings.TrimSpace(input.CustomerEmail); email != "" {
		form.Set("customer_email", email)
	}
	if !input.ExpiresAt.IsZero() && time.Until(input.ExpiresAt) >= minSessionLifetime {
		form.Set("expires_at", strconv.FormatInt(input.ExpiresAt.Unix(), 10))
	}

	var session CheckoutSession
	if err := c.post(ctx, "/v1/checkout/sessions", form, "", &session); err != nil {
		return nil, err
	}
	if session.SessionID == "" || session.URL == "" {
		return nil, fmt.Errorf("%w: checkout session without id or url", ErrResponseInvalid)
	}
	return &session, nil
}
