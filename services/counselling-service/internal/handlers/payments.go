package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/counselbook/libs/httpx"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/payments"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/scheduling"
)

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	session, err := h.svc.StartCheckout(r.Context(), requesterFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ok(w, http.StatusCreated, session)
}

func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if !h.webhooks.Configured() {
		httpx.WriteError(w, http.StatusServiceUnavailable, "stripe webhook not configured")
		return
	}
	sigHeader := strings.TrimSpace(r.Header.Get("Stripe-Signature"))
	if sigHeader == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing Stripe-Signature header")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	res, err := h.webhooks.Parse(body, sigHeader)
	switch {
	case errors.Is(err, payments.ErrInvalidSignature):
		httpx.WriteError(w, http.StatusBadRequest, "invalid signature")
		return
	case errors.Is(err, payments.ErrIgnored):
		h.logger.Info("stripe event ignored", "provider_event_id", res.EventID, "event_type", res.EventType)
		httpx.WriteJSON(w, http.StatusOK, httpx.Envelope{Success: true, Message: "ignored"})
		return
	case err != nil:
		h.logger.Warn("stripe event rejected", "provider_event_id", res.EventID, "event_type", res.EventType, "err", err)
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Info("stripe event received",
		"provider_event_id", res.EventID,
		"event_type", res.EventType,
		"appointment_id", res.AppointmentID,
	)
	err = h.svc.ApplyPaymentResult(r.Context(), res.AppointmentID, res.SessionID, res.Status)
	if errors.Is(err, scheduling.ErrNotFound) {
		h.logger.Warn("stripe event for unknown appointment", "appointment_id", res.AppointmentID)
		httpx.WriteJSON(w, http.StatusOK, httpx.Envelope{Success: true, Message: "ignored"})
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.Envelope{Success: true, Message: "ok"})
}
