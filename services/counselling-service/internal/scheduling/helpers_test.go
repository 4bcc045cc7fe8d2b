package scheduling_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/model"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/scheduling"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/storage"
)

// Sunday 6 January 2030, noon UTC. The following day is a Monday.
var testNow = time.Date(2030, 1, 6, 12, 0, 0, 0, time.UTC)

var monday0900 = time.Date(2030, 1, 7, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc        *scheduling.Service
	store      *storage.Memory
	admin      scheduling.Requester
	client     scheduling.Requester
	other      scheduling.Requester
	counsellor scheduling.Requester
	profile    model.Counsellor
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T, opts ...scheduling.Option) *fixture {
	t.Helper()
	store := storage.NewMemory()
	opts = append([]scheduling.Option{scheduling.WithClock(func() time.Time { return testNow })}, opts...)
	f := &fixture{
		svc:        scheduling.NewService(store, discardLogger(), opts...),
		store:      store,
		admin:      scheduling.Requester{ID: "admin-1", Role: model.RoleAdmin},
		client:     scheduling.Requester{ID: "client-1", Role: model.RoleClient},
		other:      scheduling.Requester{ID: "client-2", Role: model.RoleClient},
		counsellor: scheduling.Requester{ID: "coun-user-1", Role: model.RoleClient},
	}
	ctx := context.Background()
	for _, r := range []scheduling.Requester{f.admin, f.client, f.other, f.counsellor} {
		if _, err := f.svc.UpsertProfile(ctx, r, scheduling.ProfileInput{FirstName: r.ID}); err != nil {
			t.Fatalf("seed user %s: %v", r.ID, err)
		}
	}
	profile, err := f.svc.CreateCounsellor(ctx, f.counsellor, scheduling.CounsellorInput{
		Specialization:    []string{"anxiety"},
		LicenseNumber:     "LIC-001",
		YearsOfExperience: 5,
		HourlyRate:        60,
		Availability: []model.DayAvailability{{
			Day: "monday",
			Slots: []model.TimeSlot{
				{StartTime: "09:00", EndTime: "10:00", IsAvailable: true},
				{StartTime: "10:00", EndTime: "11:00", IsAvailable: true},
			},
		}},
		SessionModalities: []string{"video", "phone"},
	})
	if err != nil {
		t.Fatalf("seed counsellor: %v", err)
	}
	f.profile = profile
	f.counsellor.Role = model.RoleCounsellor
	return f
}

func (f *fixture) book(t *testing.T, req scheduling.Requester, at time.Time) model.Appointment {
	t.Helper()
	appt, err := f.svc.CreateAppointment(context.Background(), req, scheduling.CreateAppointmentInput{
		CounsellorID:    f.profile.ID,
		AppointmentDate: at,
		Duration:        60,
		SessionType:     "video",
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	return appt
}

func ptr[T any](v T) *T { return &v }
