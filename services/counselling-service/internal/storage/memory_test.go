package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/model"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/outbox"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/scheduling"
)

func TestMemoryRollsBackFailedUnitOfWork(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	boom := errors.New("boom")

	err := m.InTx(ctx, func(ctx context.Context, tx scheduling.Tx) error {
		if _, err := tx.UpsertUser(ctx, model.User{ID: "u1", Role: model.RoleClient}); err != nil {
			return err
		}
		if err := tx.AppendEvent(ctx, outbox.Event{EventType: "x"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	err = m.InTx(ctx, func(ctx context.Context, tx scheduling.Tx) error {
		_, err := tx.GetUser(ctx, "u1")
		return err
	})
	if !errors.Is(err, scheduling.ErrNotFound) {
		t.Fatalf("expected rolled back user, got %v", err)
	}
	if n := len(m.Events()); n != 0 {
		t.Fatalf("expected no events, got %d", n)
	}
}

func TestMemoryLicenseNumberUnique(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	err := m.InTx(ctx, func(ctx context.Context, tx scheduling.Tx) error {
		if err := tx.InsertCounsellor(ctx, model.Counsellor{ID: "c1", UserID: "u1", LicenseNumber: "L-1"}); err != nil {
			return err
		}
		return tx.InsertCounsellor(ctx, model.Counsellor{ID: "c2", UserID: "u2", LicenseNumber: "L-1"})
	})
	if !errors.Is(err, scheduling.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestMemoryAppointmentFilterAndOrder(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	base := time.Date(2030, 1, 7, 9, 0, 0, 0, time.UTC)
	appts := []model.Appointment{
		{ID: "a3", ClientID: "cl", CounsellorID: "c1", AppointmentDate: base.Add(2 * time.Hour), Status: model.StatusScheduled},
		{ID: "a1", ClientID: "cl", CounsellorID: "c1", AppointmentDate: base, Status: model.StatusConfirmed},
		{ID: "a2", ClientID: "cl", CounsellorID: "c1", AppointmentDate: base.Add(time.Hour), Status: model.StatusCancelled},
		{ID: "a4", ClientID: "other", CounsellorID: "c2", AppointmentDate: base, Status: model.StatusScheduled},
	}

	var got []model.Appointment
	err := m.InTx(ctx, func(ctx context.Context, tx scheduling.Tx) error {
		for _, a := range appts {
			if err := tx.InsertAppointment(ctx, a); err != nil {
				return err
			}
		}
		var err error
		got, err = tx.ListAppointments(ctx, scheduling.AppointmentFilter{
			CounsellorID: "c1",
			Statuses:     model.ActiveStatuses,
			From:         base,
			To:           base.Add(2 * time.Hour),
		})
		return err
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a1" || got[1].ID != "a3" {
		t.Fatalf("unexpected appointments: %+v", got)
	}
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	if got := page(items, 1, 2); len(got) != 2 || got[0] != 2 {
		t.Fatalf("unexpected page: %v", got)
	}
	if got := page(items, 10, 2); len(got) != 0 {
		t.Fatalf("expected empty page, got %v", got)
	}
	if got := page(items, 0, 0); len(got) != 5 {
		t.Fatalf("expected all items, got %v", got)
	}
}
