package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/model"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/scheduling"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

const testSecret = "whsec_test"

func signedEvent(t *testing.T, eventType string, session map[string]any) ([]byte, string) {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":          "evt_1",
		"object":      "event",
		"type":        eventType,
		"created":     time.Now().Unix(),
		"api_version": stripe.APIVersion,
		"data":        map[string]any{"object": session},
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   body,
		Secret:    testSecret,
		Timestamp: time.Now(),
	})
	return signed.Payload, signed.Header
}

func TestWebhookMapsCheckoutEvents(t *testing.T) {
	v := NewWebhookVerifier(testSecret, 0)
	tests := []struct {
		eventType string
		payment   string
		want      model.PaymentStatus
	}{
		{"checkout.session.completed", "paid", model.PaymentPaid},
		{"checkout.session.async_payment_succeeded", "paid", model.PaymentPaid},
		{"checkout.session.expired", "unpaid", model.PaymentFailed},
		{"checkout.session.async_payment_failed", "unpaid", model.PaymentFailed},
	}
	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			body, header := signedEvent(t, tt.eventType, map[string]any{
				"id":             "cs_1",
				"object":         "checkout.session",
				"payment_status": tt.payment,
				"metadata":       map[string]string{MetadataAppointmentID: "appt-1"},
			})
			res, err := v.Parse(body, header)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if res.Status != tt.want || res.AppointmentID != "appt-1" || res.SessionID != "cs_1" {
				t.Fatalf("unexpected result: %+v", res)
			}
		})
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	body, header := signedEvent(t, "checkout.session.completed", map[string]any{"id": "cs_1"})
	v := NewWebhookVerifier("whsec_other", 0)
	if _, err := v.Parse(body, header); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected invalid signature, got %v", err)
	}
}

func TestWebhookIgnoresUnrelatedAndUnpaid(t *testing.T) {
	v := NewWebhookVerifier(testSecret, 0)
	body, header := signedEvent(t, "customer.created", map[string]any{"id": "cus_1"})
	if _, err := v.Parse(body, header); !errors.Is(err, ErrIgnored) {
		t.Fatalf("expected ignored, got %v", err)
	}
	body, header = signedEvent(t, "checkout.session.completed", map[string]any{
		"id":             "cs_2",
		"payment_status": "unpaid",
		"metadata":       map[string]string{MetadataAppointmentID: "appt-1"},
	})
	if _, err := v.Parse(body, header); !errors.Is(err, ErrIgnored) {
		t.Fatalf("expected delayed payment to be ignored, got %v", err)
	}
}

func TestWebhookFallsBackToClientReference(t *testing.T) {
	v := NewWebhookVerifier(testSecret, 0)
	body, header := signedEvent(t, "checkout.session.expired", map[string]any{
		"id":                  "cs_3",
		"client_reference_id": "appt-9",
	})
	res, err := v.Parse(body, header)
	if err != nil || res.AppointmentID != "appt-9" {
		t.Fatalf("expected client reference fallback, got %+v %v", res, err)
	}
}

func TestStripeGatewayCreatesPaymentSession(t *testing.T) {
	var form map[string][]string
	var idem string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/checkout/sessions" {
			http.NotFound(w, r)
			return
		}
		_ = r.ParseForm()
		form = r.PostForm
		idem = r.Header.Get("Idempotency-Key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_123","object":"checkout.session","url":"https://checkout.stripe.test/cs_test_123"}`))
	}))
	defer srv.Close()

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
	})
	gw, err := NewStripeGateway(StripeConfig{
		SecretKey:  "sk_test_123",
		Currency:   "EUR",
		SuccessURL: "https://app.test/ok",
		CancelURL:  "https://app.test/cancel",
		Backend:    backend,
	})
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}

	sess, err := gw.CreateCheckout(context.Background(), scheduling.CheckoutRequest{
		AppointmentID:  "appt-1",
		Amount:         37.5,
		Description:    "45 minute video counselling session",
		IdempotencyKey: "checkout-appt-1",
	})
	if err != nil {
		t.Fatalf("create checkout: %v", err)
	}
	if sess.ID != "cs_test_123" || sess.URL == "" {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if got := form["mode"]; len(got) != 1 || got[0] != "payment" {
		t.Fatalf("expected payment mode, got %v", got)
	}
	if got := form["line_items[0][price_data][unit_amount]"]; len(got) != 1 || got[0] != "3750" {
		t.Fatalf("expected 3750 minor units, got %v", got)
	}
	if got := form["line_items[0][price_data][currency]"]; len(got) != 1 || got[0] != "eur" {
		t.Fatalf("expected eur, got %v", got)
	}
	if got := form["metadata[appointment_id]"]; len(got) != 1 || got[0] != "appt-1" {
		t.Fatalf("expected appointment metadata, got %v", got)
	}
	if idem != "checkout-appt-1" {
		t.Fatalf("expected idempotency key, got %q", idem)
	}
}

func TestNewStripeGatewayRequiresKey(t *testing.T) {
	if _, err := NewStripeGateway(StripeConfig{}); err == nil {
		t.Fatalf("expected error without secret key")
	}
}

func TestMinorUnits(t *testing.T) {
	if got := MinorUnits(19.99); got != 1999 {
		t.Fatalf("expected 1999, got %d", got)
	}
}
