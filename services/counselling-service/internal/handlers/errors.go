package handlers

import (
	"errors"
	"net/http"

	"github.com/md-rashed-zaman/counselbook/libs/httpx"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/scheduling"
)

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, scheduling.ErrValidation):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, scheduling.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, scheduling.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, scheduling.ErrConflict), errors.Is(err, scheduling.ErrInvalidState):
		httpx.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, scheduling.ErrUnavailable):
		httpx.WriteError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.internalError(w, r, err)
	}
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("request failed",
		"request_id", httpx.RequestIDFromContext(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"err", err,
	)
	httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
}
