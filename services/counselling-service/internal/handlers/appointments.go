package handlers

import (
	"net/http"

	"github.com/md-rashed-zaman/counselbook/libs/httpx"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/model"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/scheduling"
)

func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	limit, okLimit := queryInt(r, "limit")
	offset, okOffset := queryInt(r, "offset")
	if !okLimit || !okOffset {
		httpx.WriteError(w, http.StatusBadRequest, "limit and offset must be non-negative integers")
		return
	}
	appts, err := h.svc.ListAppointments(r.Context(), requesterFrom(r.Context()), scheduling.ListAppointmentsInput{
		Status: model.Status(r.URL.Query().Get("status")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.Envelope{Success: true, Count: intPtr(len(appts)), Data: appts})
}

func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var in scheduling.CreateAppointmentInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	appt, err := h.svc.CreateAppointment(r.Context(), requesterFrom(r.Context()), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ok(w, http.StatusCreated, appt)
}

func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	appt, err := h.svc.GetAppointment(r.Context(), requesterFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, appt)
}

func (h *Handler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	var patch scheduling.AppointmentPatch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	appt, err := h.svc.UpdateAppointment(r.Context(), requesterFrom(r.Context()), r.PathValue("id"), patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, appt)
}

func (h *Handler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteAppointment(r.Context(), requesterFrom(r.Context()), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.Envelope{Success: true, Message: "appointment deleted"})
}
