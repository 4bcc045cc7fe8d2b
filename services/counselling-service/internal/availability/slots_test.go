package availability

import (
	"testing"
	"time"

	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/model"
)

func TestFreeSlots_RemovesBookedStart(t *testing.T) {
	template := []model.TimeSlot{
		{StartTime: "09:00", EndTime: "10:00", IsAvailable: true},
		{StartTime: "10:00", EndTime: "11:00", IsAvailable: true},
		{StartTime: "11:00", EndTime: "12:00", IsAvailable: false},
	}
	monday := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	booked := BookedStartTimes([]time.Time{monday}, time.UTC)

	free := FreeSlots(template, booked)
	if len(free) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(free))
	}
	if free[0].StartTime != "10:00" {
		t.Fatalf("expected 10:00 slot, got %s", free[0].StartTime)
	}
}

func TestFreeSlots_ExactMatchOnly(t *testing.T) {
	template := []model.TimeSlot{{StartTime: "09:00", EndTime: "10:00", IsAvailable: true}}
	// A 09:30 booking overlaps the slot but does not share its start string.
	booked := BookedStartTimes([]time.Time{time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)}, time.UTC)

	free := FreeSlots(template, booked)
	if len(free) != 1 {
		t.Fatalf("expected slot to remain, got %d", len(free))
	}
}

func TestBookedStartTimes_UsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	booked := BookedStartTimes([]time.Time{time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)}, loc)
	if _, ok := booked["09:00"]; !ok {
		t.Fatalf("expected 09:00 in local zone, got %v", booked)
	}
}

func TestWeekdayName(t *testing.T) {
	cases := map[string]string{
		"2026-03-01": "sunday",
		"2026-03-02": "monday",
		"2026-03-07": "saturday",
		"2024-02-29": "thursday",
	}
	for date, want := range cases {
		d, err := time.Parse(DateLayout, date)
		if err != nil {
			t.Fatalf("parse %s: %v", date, err)
		}
		if got := WeekdayName(d); got != want {
			t.Fatalf("%s: expected %s, got %s", date, want, got)
		}
	}
}

func TestDayBounds(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	b := DayBounds(time.Date(2026, 3, 2, 15, 0, 0, 0, loc), loc)
	if b.Start.Hour() != 0 || b.Start.Minute() != 0 {
		t.Fatalf("unexpected start %s", b.Start)
	}
	if b.End.Hour() != 23 || b.End.Minute() != 59 || b.End.Second() != 59 || b.End.Nanosecond() != int(999*time.Millisecond) {
		t.Fatalf("unexpected end %s", b.End)
	}
	if !b.Contains(time.Date(2026, 3, 2, 23, 59, 59, 0, loc)) {
		t.Fatal("expected last second to be inside the day")
	}
	if b.Contains(time.Date(2026, 3, 3, 0, 0, 0, 0, loc)) {
		t.Fatal("next midnight must be outside the day")
	}
}

func TestConflictWindow_IsClosed(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	w := ConflictWindow(start, 60)

	if !w.Contains(start.Add(-60 * time.Minute)) {
		t.Fatal("lower edge must be included")
	}
	if !w.Contains(start.Add(60 * time.Minute)) {
		t.Fatal("upper edge must be included")
	}
	if w.Contains(start.Add(61 * time.Minute)) {
		t.Fatal("beyond the window must be excluded")
	}
}

func TestValidSlot(t *testing.T) {
	if !ValidSlot(model.TimeSlot{StartTime: "09:00", EndTime: "09:50"}) {
		t.Fatal("expected valid slot")
	}
	if ValidSlot(model.TimeSlot{StartTime: "10:00", EndTime: "09:00"}) {
		t.Fatal("end before start must be invalid")
	}
	if ValidSlot(model.TimeSlot{StartTime: "9am", EndTime: "10:00"}) {
		t.Fatal("bad format must be invalid")
	}
}
