package payments

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/scheduling"
	"github.com/stripe/stripe-go/v79"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
)

const MetadataAppointmentID = "appointment_id"

type StripeConfig struct {
	SecretKey  string
	Currency   string
	SuccessURL string
	CancelURL  string
	// Backend overrides the Stripe API backend, mainly for tests.
	Backend stripe.Backend
}

// StripeGateway opens Stripe Checkout sessions in payment mode.
type StripeGateway struct {
	client     checkoutsession.Client
	currency   string
	successURL string
	cancelURL  string
}

func NewStripeGateway(cfg StripeConfig) (*StripeGateway, error) {
	key := strings.TrimSpace(cfg.SecretKey)
	if key == "" {
		return nil, errors.New("stripe secret key is required")
	}
	backend := cfg.Backend
	if backend == nil {
		backend = stripe.GetBackend(stripe.APIBackend)
	}
	currency := strings.ToLower(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = "usd"
	}
	return &StripeGateway{
		client:     checkoutsession.Client{B: backend, Key: key},
		currency:   currency,
		successURL: strings.TrimSpace(cfg.SuccessURL),
		cancelURL:  strings.TrimSpace(cfg.CancelURL),
	}, nil
}

func (g *StripeGateway) CreateCheckout(ctx context.Context, req scheduling.CheckoutRequest) (scheduling.CheckoutSession, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(g.successURL),
		CancelURL:         stripe.String(g.cancelURL),
		ClientReferenceID: stripe.String(req.AppointmentID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(g.currency),
					UnitAmount: stripe.Int64(MinorUnits(req.Amount)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			MetadataAppointmentID: req.AppointmentID,
			"client_id":           req.ClientID,
			"counsellor_id":       req.CounsellorID,
		},
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.IdempotencyKey = stripe.String(req.IdempotencyKey)
	}

	sess, err := g.client.New(params)
	if err != nil {
		return scheduling.CheckoutSession{}, err
	}
	return scheduling.CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// MinorUnits converts a decimal amount to cents.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
