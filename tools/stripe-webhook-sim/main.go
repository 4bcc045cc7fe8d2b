// Command stripe-webhook-sim posts a signed Stripe Checkout event to a running
// counselling-service so the payment webhook can be exercised without Stripe.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

const webhookPath = "/api/v1/payments/webhooks/stripe"

func main() {
	var (
		baseURL     = flag.String("base-url", getenv("BASE_URL", "http://localhost:8080"), "counselling-service base url")
		evtType     = flag.String("type", getenv("STRIPE_EVENT_TYPE", string(stripe.EventTypeCheckoutSessionCompleted)), "checkout.session.* event type")
		appointment = flag.String("appointment-id", getenv("APPOINTMENT_ID", ""), "appointment_id metadata")
		sessionID   = flag.String("session-id", getenv("CHECKOUT_SESSION_ID", ""), "checkout session id (defaults to a generated cs_test_ id)")
		unpaid      = flag.Bool("unpaid", false, "mark a completed session as unpaid (deferred payment method)")
		secret      = flag.String("secret", getenv("STRIPE_WEBHOOK_SECRET", ""), "stripe webhook signing secret (whsec_...)")
	)
	flag.Parse()

	if strings.TrimSpace(*secret) == "" {
		fatal("STRIPE_WEBHOOK_SECRET is required")
	}
	if strings.TrimSpace(*appointment) == "" {
		fatal("APPOINTMENT_ID is required")
	}

	now := time.Now().UTC()
	if *sessionID == "" {
		*sessionID = fmt.Sprintf("cs_test_%d", now.UnixNano())
	}
	paymentStatus := "paid"
	if *unpaid {
		paymentStatus = "unpaid"
	}

	payload, err := buildEventJSON(fmt.Sprintf("evt_test_%d", now.UnixNano()), *evtType, now, *appointment, *sessionID, paymentStatus)
	if err != nil {
		fatal(err.Error())
	}

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    *secret,
		Timestamp: now,
		Scheme:    "v1",
	})

	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(*baseURL, "/")+webhookPath, bytes.NewReader(payload))
	if err != nil {
		fatal(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signed.Header)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	fmt.Printf("status=%d body=%s\n", resp.StatusCode, strings.TrimSpace(string(body)))
}

func buildEventJSON(eventID, eventType string, t time.Time, appointmentID, sessionID, paymentStatus string) ([]byte, error) {
	switch stripe.EventType(eventType) {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded,
		stripe.EventTypeCheckoutSessionAsyncPaymentFailed,
		stripe.EventTypeCheckoutSessionExpired:
	default:
		return nil, fmt.Errorf("unsupported event type: %s", eventType)
	}
	return json.Marshal(map[string]any{
		"id":          eventID,
		"object":      "event",
		"created":     t.Unix(),
		"type":        eventType,
		"api_version": stripe.APIVersion,
		"data": map[string]any{
			"object": map[string]any{
				"id":                  sessionID,
				"object":              "checkout.session",
				"mode":                "payment",
				"payment_status":      paymentStatus,
				"client_reference_id": appointmentID,
				"metadata": map[string]any{
					"appointment_id": appointmentID,
				},
			},
		},
	})
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
