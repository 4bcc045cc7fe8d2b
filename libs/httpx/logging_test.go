package httpx

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAccessLogRecordsStatusAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}), WithRequestID, WithAccessLog(logger))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
	req.Header.Set(RequestIDHeader, "req-7")
	h.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected one json log line, got %q: %v", buf.String(), err)
	}
	if line["status"] != float64(http.StatusTeapot) || line["request_id"] != "req-7" || line["bytes"] != float64(15) {
		t.Fatalf("unexpected access log: %v", line)
	}
	if line["level"] != "INFO" {
		t.Fatalf("expected INFO, got %v", line["level"])
	}
}

func TestAccessLevel(t *testing.T) {
	cases := []struct {
		path   string
		status int
		want   slog.Level
	}{
		{"/healthz", http.StatusOK, slog.LevelDebug},
		{"/readyz", http.StatusServiceUnavailable, slog.LevelError},
		{"/api/v1/counsellors", http.StatusNotFound, slog.LevelInfo},
		{"/api/v1/counsellors", http.StatusInternalServerError, slog.LevelError},
	}
	for _, c := range cases {
		if got := accessLevel(c.path, c.status); got != c.want {
			t.Fatalf("accessLevel(%s, %d) = %v, want %v", c.path, c.status, got, c.want)
		}
	}
}
