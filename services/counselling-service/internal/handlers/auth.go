package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/md-rashed-zaman/counselbook/libs/auth"
	"github.com/md-rashed-zaman/counselbook/libs/httpx"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/model"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/scheduling"
)

type ctxKey int

const ctxKeyRequester ctxKey = iota

func requesterFrom(ctx context.Context) scheduling.Requester {
	req, _ := ctx.Value(ctxKeyRequester).(scheduling.Requester)
	return req
}

// requireAuth verifies the bearer token and stores the requester in the context.
// The stored user's role wins over the token claim once the user exists.
func (h *Handler) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			httpx.WriteError(w, http.StatusUnauthorized, "missing or invalid Authorization header")
			return
		}
		claims, err := h.verifier.Verify(token)
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		req := scheduling.Requester{ID: claims.Subject, Role: model.Role(claims.Role)}
		u, err := h.svc.LookupUser(r.Context(), req.ID)
		switch {
		case err == nil:
			req.Role = u.Role
		case errors.Is(err, scheduling.ErrNotFound):
			if !req.Role.Valid() {
				req.Role = model.RoleClient
			}
		default:
			h.internalError(w, r, err)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ctxKeyRequester, req)))
	}
}
