package outbox

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/md-rashed-zaman/counselbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/counselbook/libs/otel"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestNewEventMarshalsPayload(t *testing.T) {
	evt, err := NewEvent(AggregateAppointment, "appt-1", AppointmentBooked, map[string]any{"status": "scheduled"})
	if err != nil {
		t.Fatalf("NewEvent failed: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		t.Fatalf("payload is not json: %v", err)
	}
	if payload["status"] != "scheduled" || evt.AggregateID != "appt-1" {
		t.Fatalf("unexpected event %+v", evt)
	}
	if evt.ID == "" || evt.OccurredAt.IsZero() {
		t.Fatalf("expected id and timestamp to be stamped, got %+v", evt)
	}
}

func TestBuildMessage(t *testing.T) {
	msg := BuildMessage(context.Background(), Record{
		EventID:       "evt-1",
		AggregateType: AggregateAppointment,
		AggregateID:   "appt-1",
		EventType:     AppointmentBooked,
		Payload:       []byte(`{"id":"appt-1"}`),
	})
	if msg.Topic != AppointmentBooked {
		t.Fatalf("unexpected topic %q", msg.Topic)
	}
	if string(msg.Key) != "appt-1" {
		t.Fatalf("messages must be keyed by aggregate id, got %q", msg.Key)
	}
	if kafkax.HeaderValue(msg.Headers, kafkax.HeaderEventID) != "evt-1" {
		t.Fatal("missing event_id header")
	}
}

func TestBuildMessageRestoresStoredTrace(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	parent := "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	msg := BuildMessage(context.Background(), Record{
		EventID:     "evt-2",
		AggregateID: "appt-2",
		EventType:   AppointmentUpdated,
		Trace:       otelx.TraceContext{Parent: parent},
	})
	if got := kafkax.HeaderValue(msg.Headers, "traceparent"); got != parent {
		t.Fatalf("expected traceparent header %q, got %q", parent, got)
	}
}

func TestPrunerRunOnceUsesRetentionCutoff(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	var gotCutoff time.Time
	var buf bytes.Buffer
	p := &Pruner{
		prune: func(_ context.Context, before time.Time) (int64, error) {
			gotCutoff = before
			return 3, nil
		},
		logger:    slog.New(slog.NewJSONHandler(&buf, nil)),
		retention: 48 * time.Hour,
		now:       func() time.Time { return now },
	}

	p.RunOnce(context.Background())
	if !gotCutoff.Equal(now.Add(-48 * time.Hour)) {
		t.Fatalf("unexpected cutoff %s", gotCutoff)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"deleted":3`)) {
		t.Fatalf("expected deleted count in log, got %s", buf.String())
	}
}

func TestPrunerStartRejectsBadSchedule(t *testing.T) {
	p := &Pruner{logger: slog.New(slog.NewJSONHandler(io.Discard, nil))}
	if _, err := p.Start(context.Background(), "not a schedule"); err == nil {
		t.Fatal("expected invalid cron spec error")
	}
}
