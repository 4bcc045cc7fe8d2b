package handlers

import (
	"net/http"

	"github.com/md-rashed-zaman/counselbook/libs/httpx"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/model"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/scheduling"
)

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Profile(r.Context(), requesterFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, p)
}

func (h *Handler) PutProfile(w http.ResponseWriter, r *http.Request) {
	var in scheduling.ProfileInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := h.svc.UpsertProfile(r.Context(), requesterFrom(r.Context()), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, u)
}

type roleRequest struct {
	Role model.Role `json:"role"`
}

func (h *Handler) SetRole(w http.ResponseWriter, r *http.Request) {
	var in roleRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := h.svc.SetRole(r.Context(), requesterFrom(r.Context()), r.PathValue("id"), in.Role)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, u)
}
