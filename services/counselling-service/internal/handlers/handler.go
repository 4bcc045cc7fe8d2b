package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/md-rashed-zaman/counselbook/libs/auth"
	"github.com/md-rashed-zaman/counselbook/libs/httpx"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/payments"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/scheduling"
)

const APIPrefix = "/api/v1"

type Handler struct {
	svc      *scheduling.Service
	verifier *auth.Verifier
	webhooks *payments.WebhookVerifier
	logger   *slog.Logger
}

// New builds the HTTP surface. webhooks may be nil when Stripe is not configured.
func New(svc *scheduling.Service, verifier *auth.Verifier, webhooks *payments.WebhookVerifier, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, verifier: verifier, webhooks: webhooks, logger: logger}
}

func (h *Handler) Register(mux *http.ServeMux) {
	// Public directory.
	mux.HandleFunc("GET "+APIPrefix+"/counsellors", h.ListCounsellors)
	mux.HandleFunc("GET "+APIPrefix+"/counsellors/{id}", h.GetCounsellor)
	mux.HandleFunc("GET "+APIPrefix+"/counsellors/{id}/availability", h.Availability)

	mux.HandleFunc("POST "+APIPrefix+"/counsellors", h.requireAuth(h.CreateCounsellor))
	mux.HandleFunc("PUT "+APIPrefix+"/counsellors/{id}", h.requireAuth(h.UpdateCounsellor))
	mux.HandleFunc("DELETE "+APIPrefix+"/counsellors/{id}", h.requireAuth(h.DeleteCounsellor))

	mux.HandleFunc("GET "+APIPrefix+"/appointments", h.requireAuth(h.ListAppointments))
	mux.HandleFunc("POST "+APIPrefix+"/appointments", h.requireAuth(h.CreateAppointment))
	mux.HandleFunc("GET "+APIPrefix+"/appointments/{id}", h.requireAuth(h.GetAppointment))
	mux.HandleFunc("PUT "+APIPrefix+"/appointments/{id}", h.requireAuth(h.UpdateAppointment))
	mux.HandleFunc("DELETE "+APIPrefix+"/appointments/{id}", h.requireAuth(h.DeleteAppointment))
	mux.HandleFunc("POST "+APIPrefix+"/appointments/{id}/checkout", h.requireAuth(h.Checkout))

	mux.HandleFunc("GET "+APIPrefix+"/users/profile", h.requireAuth(h.GetProfile))
	mux.HandleFunc("PUT "+APIPrefix+"/users/profile", h.requireAuth(h.PutProfile))
	mux.HandleFunc("PUT "+APIPrefix+"/users/{id}/role", h.requireAuth(h.SetRole))

	// Signature verification is the auth for Stripe.
	mux.HandleFunc("POST "+APIPrefix+"/payments/webhooks/stripe", h.StripeWebhook)
}

func ok(w http.ResponseWriter, code int, data any) {
	httpx.WriteJSON(w, code, httpx.Envelope{Success: true, Data: data})
}

func intPtr(n int) *int { return &n }

// queryInt parses an optional non-negative integer query parameter.
func queryInt(r *http.Request, name string) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
