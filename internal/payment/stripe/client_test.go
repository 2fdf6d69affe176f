package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func TestCreateCheckoutSessionPostsLineItems(t *testing.T) {
	var form url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/checkout/sessions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk_test_1" {
			t.Fatalf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		body, _ := io.ReadAll(r.Body)
		form, _ = url.ParseQuery(string(body))
		_, _ = w.Write([]byte(`{"id":"cs_test_1","url":"https://checkout.stripe.com/c/cs_test_1","status":"open"}`))
	}))
	defer server.Close()

	client := NewClient(Config{SecretKey: "sk_test_1", APIBaseURL: server.URL, SuccessURL: "https://x/ok", CancelURL: "https://x/cancel"})
	session, err := client.CreateCheckoutSession(context.Background(), CheckoutInput{
		ReservationNo: "res-1",
		Description:   "Finals - VIP",
		UnitAmount:    "25.50",
		Quantity:      2,
		CustomerEmail: "fan@example.com",
		ExpiresAt:     time.Now().Add(15 * time.Minute),
	})
	if err != nil {
		t.Fatalf("create session failed: %v", err)
	}
	if session.SessionID != "cs_test_1" || session.URL == "" {
		t.Fatalf("unexpected session: %+v", session)
	}
	if form.Get("line_items[0][price_data][unit_amount]") != "2550" {
		t.Fatalf("unexpected unit amount: %s", form.Get("line_items[0][price_data][unit_amount]"))
	}
	if form.Get("line_items[0][quantity]") != "2" || form.Get("client_reference_id") != "res-1" {
		t.Fatalf("unexpected form: %v", form)
	}
	if form.Get("line_items[0][price_data][currency]") != "usd" {
		t.Fatalf("expected default currency usd, got %s", form.Get("line_items[0][price_data][currency]"))
	}
	if form.Get("expires_at") != "" {
		t.Fatalf("expires_at shorter than stripe minimum should be omitted")
	}
}

func TestCreateTransferUsesIdempotencyKey(t *testing.T) {
	var idempotencyKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idempotencyKey = r.Header.Get("Idempotency-Key")
		_ = r.ParseForm()
		if r.PostForm.Get("amount") != "4250" || r.PostForm.Get("destination") != "acct_123" {
			t.Fatalf("unexpected transfer form: %v", r.PostForm)
		}
		_, _ = w.Write([]byte(`{"id":"tr_1"}`))
	}))
	defer server.Close()

	client := NewClient(Config{SecretKey: "sk_test_1", APIBaseURL: server.URL})
	result, err := client.CreateTransfer(context.Background(), TransferInput{PayoutID: 9, Amount: "42.50", Destination: "acct_123"})
	if err != nil {
		t.Fatalf("create transfer failed: %v", err)
	}
	if result.TransferID != "tr_1" || idempotencyKey != "affiliate-payout-9" {
		t.Fatalf("unexpected transfer result=%+v key=%s", result, idempotencyKey)
	}
}

func TestCreateTransferNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"no such destination"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{SecretKey: "sk_test_1", APIBaseURL: server.URL})
	_, err := client.CreateTransfer(context.Background(), TransferInput{PayoutID: 1, Amount: "1.00", Destination: "acct_x"})
	if !errors.Is(err, ErrResponseInvalid) {
		t.Fatalf("expected ErrResponseInvalid, got %v", err)
	}
}

func TestVerifyWebhookCheckoutCompleted(t *testing.T) {
	now := time.Unix(1760000000, 0)
	client := NewClient(Config{WebhookSecret: "whsec_test_abc"})
	payload := map[string]interface{}{
		"id":   "evt_test_1",
		"type": "checkout.session.completed",
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"object":              "checkout.session",
				"id":                  "cs_test_123",
				"client_reference_id": "res-42",
				"payment_intent":      "pi_123",
				"payment_status":      "paid",
				"currency":            "usd",
				"amount_total":        5100,
			},
		},
	}
	body, _ := json.Marshal(payload)
	header := http.Header{}
	header.Set("Stripe-Signature", "t=1760000000,v1="+computeSignature("whsec_test_abc", now.Unix(), body))

	event, err := client.VerifyWebhook(header, body, now)
	if err != nil {
		t.Fatalf("verify webhook failed: %v", err)
	}
	if event.Status != StatusSuccess || event.ReservationNo != "res-42" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.PaymentRef() != "pi_123" || event.Amount != "51.00" {
		t.Fatalf("unexpected payment ref/amount: %s %s", event.PaymentRef(), event.Amount)
	}
}

func TestVerifyWebhookRejectsBadSignatureAndStaleTimestamp(t *testing.T) {
	now := time.Unix(1760000000, 0)
	client := NewClient(Config{WebhookSecret: "whsec_test_abc"})
	body := []byte(`{"id":"evt","type":"checkout.session.expired","data":{"object":{"object":"checkout.session","id":"cs_1"}}}`)

	header := http.Header{}
	header.Set("Stripe-Signature", "t=1760000000,v1=invalid")
	if _, err := client.VerifyWebhook(header, body, now); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected signature error, got %v", err)
	}

	header.Set("Stripe-Signature", "t=1760000000,v1="+computeSignature("whsec_test_abc", now.Unix(), body))
	if _, err := client.VerifyWebhook(header, body, now.Add(time.Hour)); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected tolerance error, got %v", err)
	}
	event, err := client.VerifyWebhook(header, body, now)
	if err != nil || event.Status != StatusExpired {
		t.Fatalf("expected expired event, got %+v err=%v", event, err)
	}
}

func TestToMinorAmount(t *testing.T) {
	if got, _ := toMinorAmount("12.34", "USD"); got != 1234 {
		t.Fatalf("unexpected minor amount: %d", got)
	}
	if got, _ := toMinorAmount("500", "JPY"); got != 500 {
		t.Fatalf("unexpected jpy amount: %d", got)
	}
	if _, err := toMinorAmount("1.005", "USD"); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected precision error, got %v", err)
	}
	if _, err := toMinorAmount("0", "USD"); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected non-positive error, got %v", err)
	}
}

func TestAPIErrorCarriesStripeMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"balance_insufficient","message":"insufficient funds"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{SecretKey: "sk_test_1", APIBaseURL: server.URL})
	_, err := client.CreateTransfer(context.Background(), TransferInput{PayoutID: 2, Amount: "5.00", Destination: "acct_y"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusPaymentRequired || apiErr.Code != "balance_insufficient" || apiErr.Message != "insufficient funds" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}

func TestVerifyWebhookExpandedPaymentIntentAndMetadataFallback(t *testing.T) {
	now := time.Unix(1760000000, 0)
	client := NewClient(Config{WebhookSecret: "whsec_test_abc"})
	body := []byte(`{"id":"evt_2","type":"checkout.session.async_payment_succeeded","data":{"object":{` +
		`"object":"checkout.session","id":"cs_2","payment_intent":{"id":"pi_exp"},` +
		`"metadata":{"reservation_no":"res-meta"},"currency":"jpy","amount_total":1500}}}`)
	header := http.Header{}
	header.Set("Stripe-Signature", "t=1760000000,v1=deadbeef,v1="+computeSignature("whsec_test_abc", now.Unix(), body))

	event, err := client.VerifyWebhook(header, body, now)
	if err != nil {
		t.Fatalf("verify webhook failed: %v", err)
	}
	if event.ReservationNo != "res-meta" || event.PaymentIntentID != "pi_exp" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.Status != StatusSuccess || event.Amount != "1500" {
		t.Fatalf("unexpected status/amount: %s %s", event.Status, event.Amount)
	}
}

func TestVerifyWebhookIgnoresNonSessionObjects(t *testing.T) {
	now := time.Unix(1760000000, 0)
	client := NewClient(Config{WebhookSecret: "whsec_test_abc"})
	body := []byte(`{"id":"evt_3","type":"charge.refunded","data":{"object":{"object":"charge","id":"ch_1","amount":100}}}`)
	header := http.Header{}
	header.Set("Stripe-Signature", "t=1760000000,v1="+computeSignature("whsec_test_abc", now.Unix(), body))

	event, err := client.VerifyWebhook(header, body, now)
	if err != nil {
		t.Fatalf("verify webhook failed: %v", err)
	}
	if event.SessionID != "" || event.ReservationNo != "" || event.Status != "" {
		t.Fatalf("non-session events should carry no reservation data: %+v", event)
	}
}
