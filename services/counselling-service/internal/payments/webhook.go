package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/model"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

var (
	ErrInvalidSignature = errors.New("invalid stripe signature")
	// ErrIgnored marks well-formed events that carry no payment outcome.
	ErrIgnored = errors.New("event ignored")
)

// PaymentResult is the outcome a webhook reports for one appointment.
type PaymentResult struct {
	EventID       string
	EventType     string
	AppointmentID string
	SessionID     string
	Status        model.PaymentStatus
	OccurredAt    time.Time
}

type WebhookVerifier struct {
	secret    string
	tolerance time.Duration
}

func NewWebhookVerifier(secret string, tolerance time.Duration) *WebhookVerifier {
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &WebhookVerifier{secret: strings.TrimSpace(secret), tolerance: tolerance}
}

func (v *WebhookVerifier) Configured() bool {
	return v != nil && v.secret != ""
}

// Parse verifies the signature and maps checkout session events to payment results.
func (v *WebhookVerifier) Parse(body []byte, sigHeader string) (PaymentResult, error) {
	evt, err := webhook.ConstructEventWithTolerance(body, sigHeader, v.secret, v.tolerance)
	if err != nil {
		return PaymentResult{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	res := PaymentResult{
		EventID:    evt.ID,
		EventType:  string(evt.Type),
		OccurredAt: time.Unix(evt.Created, 0).UTC(),
	}

	switch evt.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		res.Status = model.PaymentPaid
	case stripe.EventTypeCheckoutSessionExpired, stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		res.Status = model.PaymentFailed
	default:
		return res, ErrIgnored
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(evt.Data.Raw, &session); err != nil {
		return res, fmt.Errorf("decode checkout session: %w", err)
	}
	// Completed sessions paid by a delayed method are settled later by async_payment_succeeded.
	if evt.Type == stripe.EventTypeCheckoutSessionCompleted && session.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		return res, ErrIgnored
	}
	res.SessionID = session.ID
	res.AppointmentID = strings.TrimSpace(session.Metadata[MetadataAppointmentID])
	if res.AppointmentID == "" {
		res.AppointmentID = strings.TrimSpace(session.ClientReferenceID)
	}
	if res.AppointmentID == "" {
		return res, fmt.Errorf("checkout session %s has no %s metadata", session.ID, MetadataAppointmentID)
	}
	return res, nil
}
