package scheduling

import (
	"context"
	"fmt"

	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/model"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/outbox"
)

// PaymentGateway opens hosted checkout sessions with a payment provider.
type PaymentGateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
}

type CheckoutRequest struct {
	AppointmentID  string
	ClientID       string
	CounsellorID   string
	Amount         float64
	Description    string
	IdempotencyKey string
}

type CheckoutSession struct {
	ID  string `json:"sessionId"`
	URL string `json:"checkoutUrl"`
}

// StartCheckout opens a checkout session for a pending, unpaid appointment.
func (s *Service) StartCheckout(ctx context.Context, req Requester, appointmentID string) (CheckoutSession, error) {
	if s.payments == nil {
		return CheckoutSession{}, fmt.Errorf("%w: payments are not configured", ErrUnavailable)
	}

	var appt model.Appointment
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		a, err := tx.GetAppointment(ctx, appointmentID)
		if err != nil {
			return err
		}
		if err := Authorize(PermAppointmentPay, req, Ownership{ClientID: a.ClientID}); err != nil {
			return err
		}
		if a.PaymentStatus != model.PaymentPending {
			return fmt.Errorf("%w: payment is already %s", ErrInvalidState, a.PaymentStatus)
		}
		if IsTerminal(a.Status) {
			return fmt.Errorf("%w: appointment is %s", ErrInvalidState, a.Status)
		}
		if a.Amount <= 0 {
			return fmt.Errorf("%w: nothing to pay", ErrInvalidState)
		}
		appt = a
		return nil
	})
	if err != nil {
		return CheckoutSession{}, err
	}

	session, err := s.payments.CreateCheckout(ctx, CheckoutRequest{
		AppointmentID:  appt.ID,
		ClientID:       appt.ClientID,
		CounsellorID:   appt.CounsellorID,
		Amount:         appt.Amount,
		Description:    fmt.Sprintf("%d minute %s counselling session", appt.Duration, appt.SessionType),
		IdempotencyKey: "checkout-" + appt.ID,
	})
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("create checkout session: %w", err)
	}

	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		a, err := tx.GetAppointment(ctx, appointmentID)
		if err != nil {
			return err
		}
		a.CheckoutSessionID = session.ID
		a.UpdatedAt = s.now().UTC()
		return tx.UpdateAppointment(ctx, a)
	})
	if err != nil {
		return CheckoutSession{}, err
	}
	s.logger.Info("checkout started", "appointment_id", appt.ID, "session_id", session.ID)
	return session, nil
}

// ApplyPaymentResult records a provider-confirmed payment outcome. A paid
// appointment is never moved back to failed by a late event.
func (s *Service) ApplyPaymentResult(ctx context.Context, appointmentID, sessionID string, status model.PaymentStatus) error {
	switch status {
	case model.PaymentPaid, model.PaymentFailed, model.PaymentRefunded:
	default:
		return fmt.Errorf("%w: unsupported payment status %q", ErrValidation, status)
	}
	var changed bool
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		a, err := tx.GetAppointment(ctx, appointmentID)
		if err != nil {
			return err
		}
		if a.PaymentStatus == status {
			return nil
		}
		if a.PaymentStatus == model.PaymentPaid && status == model.PaymentFailed {
			return nil
		}
		previous := a.PaymentStatus
		a.PaymentStatus = status
		if sessionID != "" {
			a.CheckoutSessionID = sessionID
		}
		a.UpdatedAt = s.now().UTC()
		if err := tx.UpdateAppointment(ctx, a); err != nil {
			return err
		}
		changed = true
		return appendEvent(ctx, tx, outbox.AggregateAppointment, a.ID, outbox.AppointmentPayment, map[string]any{
			"appointment_id":  a.ID,
			"session_id":      a.CheckoutSessionID,
			"previous_status": previous,
			"payment_status":  a.PaymentStatus,
			"amount":          a.Amount,
		})
	})
	if err != nil {
		return err
	}
	if changed {
		s.logger.Info("payment status updated", "appointment_id", appointmentID, "payment_status", status)
	}
	return nil
}
