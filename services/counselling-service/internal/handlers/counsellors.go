package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/md-rashed-zaman/counselbook/libs/httpx"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/scheduling"
)

func (h *Handler) ListCounsellors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := scheduling.CounsellorQuery{
		Specialization: strings.TrimSpace(q.Get("specialization")),
		SessionType:    strings.TrimSpace(q.Get("sessionType")),
	}
	var valid bool
	if query.Page, valid = queryInt(r, "page"); !valid {
		httpx.WriteError(w, http.StatusBadRequest, "page must be a non-negative integer")
		return
	}
	if query.Limit, valid = queryInt(r, "limit"); !valid {
		httpx.WriteError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}
	if raw := q.Get("minRating"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "minRating must be a number")
			return
		}
		query.MinRating = v
	}
	if raw := q.Get("isVerified"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "isVerified must be true or false")
			return
		}
		query.IsVerified = &v
	}

	page, err := h.svc.ListCounsellors(r.Context(), query)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.Envelope{
		Success: true,
		Count:   intPtr(len(page.Counsellors)),
		Total:   intPtr(page.Total),
		Page:    intPtr(page.Page),
		Pages:   intPtr(page.Pages),
		Data:    page.Counsellors,
	})
}

func (h *Handler) GetCounsellor(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetCounsellor(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, c)
}

func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	day, err := h.svc.Resolve(r.Context(), r.PathValue("id"), r.URL.Query().Get("date"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, day)
}

func (h *Handler) CreateCounsellor(w http.ResponseWriter, r *http.Request) {
	var in scheduling.CounsellorInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.svc.CreateCounsellor(r.Context(), requesterFrom(r.Context()), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ok(w, http.StatusCreated, c)
}

func (h *Handler) UpdateCounsellor(w http.ResponseWriter, r *http.Request) {
	var patch scheduling.CounsellorPatch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.svc.UpdateCounsellor(r.Context(), requesterFrom(r.Context()), r.PathValue("id"), patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, c)
}

func (h *Handler) DeleteCounsellor(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteCounsellor(r.Context(), requesterFrom(r.Context()), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.Envelope{Success: true, Message: "counsellor deleted"})
}
