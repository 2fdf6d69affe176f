package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// 归一化后的事件状态
const (
	StatusSuccess = "success"
	StatusExpired = "expired"
	StatusFailed  = "failed"
	StatusPending = "pending"
)

// WebhookEvent Webhook 解析结果
type WebhookEvent struct {
	EventID         string
	EventType       string
	SessionID       string
	PaymentIntentID string
	ReservationNo   string
	Status          string
	Amount          string
	Currency        string
}

// PaymentRef 支付流水，优先 payment_intent
func (e *WebhookEvent) PaymentRef() string {
	if e == nil {
		return ""
	}
	if e.PaymentIntentID != "" {
		return e.PaymentIntentID
	}
	return e.SessionID
}

type eventEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type checkoutSessionObject struct {
	ID                string            `json:"id"`
	ClientReferenceID string            `json:"client_reference_id"`
	PaymentIntent     expandableID      `json:"payment_intent"`
	PaymentStatus     string            `json:"payment_status"`
	Status            string            `json:"status"`
	Currency          string            `json:"currency"`
	AmountTotal       int64             `json:"amount_total"`
	Metadata          map[string]string `json:"metadata"`
}

// expandableID 兼容未展开的 "pi_123" 与展开后的 {"id":"pi_123",...}
type expandableID string

func (e *expandableID) UnmarshalJSON(b []byte) error {
	var id string
	if err := json.Unmarshal(b, &id); err == nil {
		*e = expandableID(strings.TrimSpace(id))
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*e = expandableID(strings.TrimSpace(obj.ID))
	return nil
}

// VerifyWebhook 校验 Stripe-Signature 后解析 checkout.session 事件
func (c *Client) VerifyWebhook(header http.Header, body []byte, now time.Time) (*WebhookEvent, error) {
	if c == nil || c.cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("%w: webhook_secret is required", ErrConfigInvalid)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: body is empty", ErrResponseInvalid)
	}
	if now.IsZero() {
		now = time.Now()
	}
	if err := verifySignature(header.Get("Stripe-Signature"), body, c.cfg.WebhookSecret, now, c.cfg.tolerance()); err != nil {
		return nil, err
	}

	var envelope eventEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: decode event: %v", ErrResponseInvalid, err)
	}
	if envelope.Type == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrResponseInvalid)
	}
	if len(envelope.Data.Object) == 0 {
		return nil, fmt.Errorf("%w: missing event object", ErrResponseInvalid)
	}

	event := &WebhookEvent{EventID: envelope.ID, EventType: envelope.Type}
	var kind struct {
		Object string `json:"object"`
	}
	if err := json.Unmarshal(envelope.Data.Object, &kind); err != nil {
		return nil, fmt.Errorf("%w: decode event object: %v", ErrResponseInvalid, err)
	}
	if kind.Object == "checkout.session" {
		var session checkoutSessionObject
		if err := json.Unmarshal(envelope.Data.Object, &session); err != nil {
			return nil, fmt.Errorf("%w: decode checkout session: %v", ErrResponseInvalid, err)
		}
		event.SessionID = session.ID
		event.PaymentIntentID = string(session.PaymentIntent)
		event.ReservationNo = strings.TrimSpace(session.ClientReferenceID)
		if event.ReservationNo == "" {
			event.ReservationNo = strings.TrimSpace(session.Metadata["reservation_no"])
		}
		event.Currency = strings.ToUpper(session.Currency)
		if session.AmountTotal > 0 && event.Currency != "" {
			event.Amount = fromMinorAmount(session.AmountTotal, event.Currency)
		}
		event.Status = sessionStatus(session.PaymentStatus, session.Status)
	}
	if status, ok := eventTypeStatus[envelope.Type]; ok {
		event.Status = status
	}
	return event, nil
}

// eventTypeStatus 事件类型本身即可确定结果的情形
var eventTypeStatus = map[string]string{
	"checkout.session.completed":               StatusSuccess,
	"checkout.session.async_payment_succeeded": StatusSuccess,
	"checkout.session.async_payment_failed":    StatusFailed,
	"checkout.session.expired":                 StatusExpired,
}

func sessionStatus(paymentStatus, status string) string {
	switch {
	case paymentStatus == "paid":
		return StatusSuccess
	case status == "expired":
		return StatusExpired
	case status == "complete" && paymentStatus == "no_payment_required":
		return StatusSuccess
	}
	return StatusPending
}

// verifySignature 头部形如 "t=1700000000,v1=abc,v1=def"，任一 v1 匹配即通过
func verifySignature(headerValue string, body []byte, secret string, now time.Time, tolerance time.Duration) error {
	headerValue = strings.TrimSpace(headerValue)
	if headerValue == "" {
		return fmt.Errorf("%w: Stripe-Signature is required", ErrSignatureInvalid)
	}
	var (
		timestamp  int64
		signatures [][]byte
	)
	for _, part := range strings.Split(headerValue, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil || ts <= 0 {
				return fmt.Errorf("%w: invalid timestamp", ErrSignatureInvalid)
			}
			timestamp = ts
		case "v1":
			if sig, err := hex.DecodeString(value); err == nil {
				signatures = append(signatures, sig)
			}
		}
	}
	switch {
	case timestamp == 0:
		return fmt.Errorf("%w: timestamp is missing", ErrSignatureInvalid)
	case len(signatures) == 0:
		return fmt.Errorf("%w: no v1 signature", ErrSignatureInvalid)
	}
	if age := now.Sub(time.Unix(timestamp, 0)); age > tolerance || age < -tolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", ErrSignatureInvalid)
	}

	expected := signPayload(secret, timestamp, body)
	for _, sig := range signatures {
		if hmac.Equal(sig, expected) {
			return nil
		}
	}
	return fmt.Errorf("%w: no matching v1 signature", ErrSignatureInvalid)
}

func signPayload(secret string, timestamp int64, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(strconv.AppendInt(nil, timestamp, 10))
	mac.Write([]byte{'.'})
	mac.Write(body)
	return mac.Sum(nil)
}

// computeSignature 生成与 Stripe 相同的十六进制签名
func computeSignature(secret string, timestamp int64, body []byte) string {
	return hex.EncodeToString(signPayload(secret, timestamp, body))
}
