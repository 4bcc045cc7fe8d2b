package runtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// ReadyCheck is a named dependency check for /readyz.
type ReadyCheck struct {
	Name  string
	Check func(context.Context) error
}

// RunChecks executes every check with its own timeout and returns failures by name.
func RunChecks(ctx context.Context, timeout time.Duration, checks ...ReadyCheck) map[string]string {
	failures := map[string]string{}
	for _, check := range checks {
		if check.Check == nil {
			continue
		}
		cctx, cancel := context.WithTimeout(ctx, timeout)
		err := check.Check(cctx)
		cancel()
		if err != nil {
			name := check.Name
			if name == "" {
				name = "dependency"
			}
			failures[name] = err.Error()
		}
	}
	return failures
}

// NewBaseMux registers /healthz and /readyz on a fresh mux.
func NewBaseMux(checks ...ReadyCheck) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		failures := RunChecks(r.Context(), 2*time.Second, checks...)
		if len(failures) > 0 {
			writeStatus(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failures": failures})
			return
		}
		writeStatus(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	return mux
}

func writeStatus(w http.ResponseWriter, code int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
