package scheduling_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/model"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/outbox"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/scheduling"
)

func TestMondayBookingScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt := f.book(t, f.client, monday0900)
	if appt.Amount != 60 {
		t.Fatalf("expected amount 60, got %v", appt.Amount)
	}
	if appt.Status != model.StatusScheduled || appt.PaymentStatus != model.PaymentPending {
		t.Fatalf("unexpected initial state: %s/%s", appt.Status, appt.PaymentStatus)
	}
	if appt.ClientID != f.client.ID {
		t.Fatalf("expected client %s, got %s", f.client.ID, appt.ClientID)
	}

	day, err := f.svc.Resolve(ctx, f.profile.ID, "2030-01-07")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if day.Day != "monday" {
		t.Fatalf("expected monday, got %s", day.Day)
	}
	if len(day.AvailableSlots) != 1 || day.AvailableSlots[0].StartTime != "10:00" {
		t.Fatalf("expected only 10:00, got %+v", day.AvailableSlots)
	}

	_, err = f.svc.CreateAppointment(ctx, f.other, scheduling.CreateAppointmentInput{
		CounsellorID:    f.profile.ID,
		AppointmentDate: monday0900.Add(30 * time.Minute),
		Duration:        60,
		SessionType:     "video",
	})
	if !errors.Is(err, scheduling.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreateAppointmentAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.svc.CreateAppointment(ctx, f.client, scheduling.CreateAppointmentInput{
		CounsellorID:    f.profile.ID,
		AppointmentDate: monday0900,
		Duration:        45,
		SessionType:     "phone",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if appt.Amount != 45 {
		t.Fatalf("expected derived amount 45, got %v", appt.Amount)
	}

	appt, err = f.svc.CreateAppointment(ctx, f.client, scheduling.CreateAppointmentInput{
		CounsellorID:    f.profile.ID,
		AppointmentDate: monday0900.Add(4 * time.Hour),
		SessionType:     "video",
		Amount:          ptr(12.5),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if appt.Amount != 12.5 || appt.Duration != scheduling.DefaultDuration {
		t.Fatalf("expected supplied amount and default duration, got %v/%d", appt.Amount, appt.Duration)
	}
}

func TestCreateAppointmentValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   scheduling.CreateAppointmentInput
		want error
	}{
		{
			name: "past date",
			in:   scheduling.CreateAppointmentInput{CounsellorID: f.profile.ID, AppointmentDate: testNow.Add(-time.Hour), SessionType: "video"},
			want: scheduling.ErrValidation,
		},
		{
			name: "duration too short",
			in:   scheduling.CreateAppointmentInput{CounsellorID: f.profile.ID, AppointmentDate: monday0900, Duration: 15, SessionType: "video"},
			want: scheduling.ErrValidation,
		},
		{
			name: "duration too long",
			in:   scheduling.CreateAppointmentInput{CounsellorID: f.profile.ID, AppointmentDate: monday0900, Duration: 121, SessionType: "video"},
			want: scheduling.ErrValidation,
		},
		{
			name: "unknown session type",
			in:   scheduling.CreateAppointmentInput{CounsellorID: f.profile.ID, AppointmentDate: monday0900, SessionType: "carrier-pigeon"},
			want: scheduling.ErrValidation,
		},
		{
			name: "modality not offered",
			in:   scheduling.CreateAppointmentInput{CounsellorID: f.profile.ID, AppointmentDate: monday0900, SessionType: "chat"},
			want: scheduling.ErrValidation,
		},
		{
			name: "negative amount",
			in:   scheduling.CreateAppointmentInput{CounsellorID: f.profile.ID, AppointmentDate: monday0900, SessionType: "video", Amount: ptr(-1.0)},
			want: scheduling.ErrValidation,
		},
		{
			name: "unknown counsellor",
			in:   scheduling.CreateAppointmentInput{CounsellorID: "nope", AppointmentDate: monday0900, SessionType: "video"},
			want: scheduling.ErrNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateAppointment(ctx, f.client, tt.in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCreateAppointmentInactiveCounsellor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.UpdateCounsellor(ctx, f.counsellor, f.profile.ID, scheduling.CounsellorPatch{IsActive: ptr(false)}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	_, err := f.svc.CreateAppointment(ctx, f.client, scheduling.CreateAppointmentInput{
		CounsellorID: f.profile.ID, AppointmentDate: monday0900, SessionType: "video",
	})
	if !errors.Is(err, scheduling.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCounsellorCannotBook(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateAppointment(context.Background(), f.counsellor, scheduling.CreateAppointmentInput{
		CounsellorID: f.profile.ID, AppointmentDate: monday0900, SessionType: "video",
	})
	if !errors.Is(err, scheduling.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestConcurrentCreateExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	start := make(chan struct{})
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			req := f.client
			if i%2 == 1 {
				req = f.other
			}
			_, errs[i] = f.svc.CreateAppointment(ctx, req, scheduling.CreateAppointmentInput{
				CounsellorID:    f.profile.ID,
				AppointmentDate: monday0900.Add(time.Duration(i) * time.Minute),
				Duration:        60,
				SessionType:     "video",
			})
		}()
	}
	close(start)
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case !errors.Is(err, scheduling.ErrConflict):
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one booking, got %d", wins)
	}
}

func TestListAppointmentsScopedByRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	later := f.book(t, f.client, monday0900.Add(3*time.Hour))
	first := f.book(t, f.client, monday0900)
	f.book(t, f.other, monday0900.Add(6*time.Hour))

	mine, err := f.svc.ListAppointments(ctx, f.client, scheduling.ListAppointmentsInput{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 2 || mine[0].ID != first.ID || mine[1].ID != later.ID {
		t.Fatalf("expected client's two appointments ordered by date, got %+v", mine)
	}

	assigned, err := f.svc.ListAppointments(ctx, f.counsellor, scheduling.ListAppointmentsInput{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(assigned) != 3 {
		t.Fatalf("expected counsellor to see 3, got %d", len(assigned))
	}

	all, err := f.svc.ListAppointments(ctx, f.admin, scheduling.ListAppointmentsInput{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected limit 2, got %d", len(all))
	}

	_, err = f.svc.ListAppointments(ctx, f.admin, scheduling.ListAppointmentsInput{Limit: 500})
	if !errors.Is(err, scheduling.ErrValidation) {
		t.Fatalf("expected validation error for limit, got %v", err)
	}

	stranger := scheduling.Requester{ID: "coun-without-profile", Role: model.RoleCounsellor}
	none, err := f.svc.ListAppointments(ctx, stranger, scheduling.ListAppointmentsInput{})
	if err != nil || len(none) != 0 {
		t.Fatalf("expected empty list, got %v %v", none, err)
	}
}

func TestGetAppointmentRoleIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, f.client, monday0900)

	if _, err := f.svc.GetAppointment(ctx, f.other, appt.ID); !errors.Is(err, scheduling.ErrForbidden) {
		t.Fatalf("expected forbidden for other client, got %v", err)
	}
	for _, req := range []scheduling.Requester{f.client, f.counsellor, f.admin} {
		if _, err := f.svc.GetAppointment(ctx, req, appt.ID); err != nil {
			t.Fatalf("%s should read appointment: %v", req.Role, err)
		}
	}
	foreign := scheduling.Requester{ID: "someone", Role: model.RoleCounsellor}
	if _, err := f.svc.GetAppointment(ctx, foreign, appt.ID); !errors.Is(err, scheduling.ErrForbidden) {
		t.Fatalf("expected forbidden for unassigned counsellor, got %v", err)
	}
	if _, err := f.svc.GetAppointment(ctx, f.admin, "missing"); !errors.Is(err, scheduling.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateAppointmentRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, f.client, monday0900)

	tests := []struct {
		name  string
		req   scheduling.Requester
		patch scheduling.AppointmentPatch
		want  error
	}{
		{"immutable date", f.admin, scheduling.AppointmentPatch{AppointmentDate: ptr(monday0900.Add(time.Hour))}, scheduling.ErrValidation},
		{"immutable counsellor", f.admin, scheduling.AppointmentPatch{Counsellor: ptr("other")}, scheduling.ErrValidation},
		{"client writes counsellor notes", f.client, scheduling.AppointmentPatch{CounsellorNotes: ptr("x")}, scheduling.ErrForbidden},
		{"counsellor writes client notes", f.counsellor, scheduling.AppointmentPatch{ClientNotes: ptr("x")}, scheduling.ErrForbidden},
		{"client confirms", f.client, scheduling.AppointmentPatch{Status: ptr(model.StatusConfirmed)}, scheduling.ErrForbidden},
		{"skip to completed", f.counsellor, scheduling.AppointmentPatch{Status: ptr(model.StatusCompleted)}, scheduling.ErrInvalidState},
		{"unknown status", f.counsellor, scheduling.AppointmentPatch{Status: ptr(model.Status("paused"))}, scheduling.ErrValidation},
		{"reason without cancel", f.client, scheduling.AppointmentPatch{CancellationReason: ptr("busy")}, scheduling.ErrInvalidState},
		{"rate before completion", f.client, scheduling.AppointmentPatch{ClientSatisfaction: &model.Satisfaction{Rating: 5}}, scheduling.ErrInvalidState},
		{"rating out of range", f.client, scheduling.AppointmentPatch{ClientSatisfaction: &model.Satisfaction{Rating: 6}}, scheduling.ErrValidation},
		{"stranger", f.other, scheduling.AppointmentPatch{ClientNotes: ptr("x")}, scheduling.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.UpdateAppointment(ctx, tt.req, appt.ID, tt.patch)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	got, err := f.svc.GetAppointment(ctx, f.admin, appt.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.StatusScheduled || got.ClientNotes != "" {
		t.Fatalf("rejected patches must not persist, got %+v", got)
	}
}

func TestAppointmentLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, f.client, monday0900)

	steps := []model.Status{model.StatusConfirmed, model.StatusInProgress, model.StatusCompleted}
	for _, st := range steps {
		if _, err := f.svc.UpdateAppointment(ctx, f.counsellor, appt.ID, scheduling.AppointmentPatch{Status: ptr(st)}); err != nil {
			t.Fatalf("move to %s: %v", st, err)
		}
	}
	rated, err := f.svc.UpdateAppointment(ctx, f.client, appt.ID, scheduling.AppointmentPatch{
		ClientSatisfaction: &model.Satisfaction{Rating: 4, Feedback: "helpful"},
	})
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if rated.ClientSatisfaction == nil || rated.ClientSatisfaction.Rating != 4 {
		t.Fatalf("expected rating 4, got %+v", rated.ClientSatisfaction)
	}
	if _, err := f.svc.UpdateAppointment(ctx, f.counsellor, appt.ID, scheduling.AppointmentPatch{Status: ptr(model.StatusCancelled)}); !errors.Is(err, scheduling.ErrInvalidState) {
		t.Fatalf("expected terminal state to hold, got %v", err)
	}

	var updates int
	for _, evt := range f.store.Events() {
		if evt.EventType == outbox.AppointmentUpdated {
			updates++
		}
	}
	if updates != 4 {
		t.Fatalf("expected 4 update events, got %d", updates)
	}
}

func TestClientCancelsWithReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, f.client, monday0900)

	got, err := f.svc.UpdateAppointment(ctx, f.client, appt.ID, scheduling.AppointmentPatch{
		Status:             ptr(model.StatusCancelled),
		CancellationReason: ptr("travelling"),
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != model.StatusCancelled || got.CancellationReason != "travelling" {
		t.Fatalf("unexpected result: %+v", got)
	}

	day, err := f.svc.Resolve(ctx, f.profile.ID, "2030-01-07")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(day.AvailableSlots) != 2 {
		t.Fatalf("cancelled booking must free the slot, got %+v", day.AvailableSlots)
	}
}

func TestDeleteAppointmentPolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("future appointment by owner", func(t *testing.T) {
		f := newFixture(t)
		appt := f.book(t, f.client, monday0900)
		if err := f.svc.DeleteAppointment(ctx, f.counsellor, appt.ID); !errors.Is(err, scheduling.ErrForbidden) {
			t.Fatalf("expected counsellor forbidden, got %v", err)
		}
		if err := f.svc.DeleteAppointment(ctx, f.other, appt.ID); !errors.Is(err, scheduling.ErrForbidden) {
			t.Fatalf("expected other client forbidden, got %v", err)
		}
		if err := f.svc.DeleteAppointment(ctx, f.client, appt.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := f.svc.GetAppointment(ctx, f.admin, appt.ID); !errors.Is(err, scheduling.ErrNotFound) {
			t.Fatalf("expected deleted, got %v", err)
		}
	})

	t.Run("past appointment", func(t *testing.T) {
		f := newFixture(t)
		appt := f.book(t, f.client, monday0900)

		clock := monday0900.Add(48 * time.Hour)
		late := scheduling.NewService(f.store, discardLogger(), scheduling.WithClock(func() time.Time { return clock }))
		if err := late.DeleteAppointment(ctx, f.admin, appt.ID); !errors.Is(err, scheduling.ErrInvalidState) {
			t.Fatalf("expected invalid state, got %v", err)
		}
		if _, err := late.UpdateAppointment(ctx, f.admin, appt.ID, scheduling.AppointmentPatch{Status: ptr(model.StatusCancelled)}); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if err := late.DeleteAppointment(ctx, f.client, appt.ID); err != nil {
			t.Fatalf("delete cancelled past appointment: %v", err)
		}
	})
}
