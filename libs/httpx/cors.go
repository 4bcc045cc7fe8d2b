package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSPolicy lists the browser origins allowed to call the API. "*" allows any
// origin; with AllowCredentials the caller's origin is echoed instead.
type CORSPolicy struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

func DefaultCORSPolicy(origins []string) CORSPolicy {
	return CORSPolicy{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type", RequestIDHeader},
		MaxAge:         10 * time.Minute,
	}
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin, or "".
func (p CORSPolicy) allowOrigin(origin string) string {
	for _, candidate := range p.AllowedOrigins {
		switch {
		case candidate == "*" && p.AllowCredentials:
			return origin
		case candidate == "*":
			return "*"
		case strings.EqualFold(strings.TrimRight(candidate, "/"), origin):
			return origin
		}
	}
	return ""
}

// WithCORS answers preflight requests and decorates simple ones for allowed
// origins. With no origins configured it returns next untouched.
func WithCORS(p CORSPolicy) Middleware {
	p.AllowedOrigins = SplitList(strings.Join(p.AllowedOrigins, ","))
	if len(p.AllowedOrigins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	methods := strings.Join(append(SplitList(strings.Join(p.AllowedMethods, ",")), http.MethodOptions), ", ")
	headers := strings.Join(SplitList(strings.Join(p.AllowedHeaders, ",")), ", ")
	maxAge := strconv.Itoa(int(p.MaxAge.Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")
			origin := r.Header.Get("Origin")
			allowed := ""
			if origin != "" {
				allowed = p.allowOrigin(origin)
			}
			if allowed == "" {
				next.ServeHTTP(w, r)
				return
			}

			h.Set("Access-Control-Allow-Origin", allowed)
			if p.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			if r.Method != http.MethodOptions || r.Header.Get("Access-Control-Request-Method") == "" {
				h.Set("Access-Control-Expose-Headers", RequestIDHeader)
				next.ServeHTTP(w, r)
				return
			}

			h.Set("Access-Control-Allow-Methods", methods)
			if headers != "" {
				h.Set("Access-Control-Allow-Headers", headers)
			}
			if p.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", maxAge)
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

// SplitList splits a comma separated setting and drops blanks.
func SplitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
