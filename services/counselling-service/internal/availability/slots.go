package availability

import (
	"strings"
	"time"

	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/model"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// Interval is a closed time range.
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && !t.After(i.End)
}

// ConflictWindow is [start - d, start + d] for a booking of d minutes.
// Any active booking whose start falls inside it collides with the new one.
func ConflictWindow(start time.Time, durationMinutes int) Interval {
	d := time.Duration(durationMinutes) * time.Minute
	return Interval{Start: start.Add(-d), End: start.Add(d)}
}

// WeekdayName returns the lowercase English weekday of t in its own location.
func WeekdayName(t time.Time) string {
	return strings.ToLower(t.Weekday().String())
}

// DayBounds returns 00:00:00.000 and 23:59:59.999 of t's calendar day in loc.
func DayBounds(t time.Time, loc *time.Location) Interval {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1).Add(-time.Millisecond)
	return Interval{Start: start, End: end}
}

// BookedStartTimes formats each booking start as "HH:MM" in loc.
func BookedStartTimes(starts []time.Time, loc *time.Location) map[string]struct{} {
	booked := make(map[string]struct{}, len(starts))
	for _, s := range starts {
		booked[s.In(loc).Format(ClockLayout)] = struct{}{}
	}
	return booked
}

// FreeSlots keeps template slots that are marked available and whose start time
// is not already booked. Matching is by exact "HH:MM" string, so a booking that
// starts mid-slot does not remove the slot.
func FreeSlots(template []model.TimeSlot, booked map[string]struct{}) []model.TimeSlot {
	free := make([]model.TimeSlot, 0, len(template))
	for _, slot := range template {
		if !slot.IsAvailable {
			continue
		}
		if _, taken := booked[slot.StartTime]; taken {
			continue
		}
		free = append(free, slot)
	}
	return free
}

// ValidSlot reports whether a template slot parses and ends after it starts.
func ValidSlot(slot model.TimeSlot) bool {
	start, err := time.Parse(ClockLayout, slot.StartTime)
	if err != nil {
		return false
	}
	end, err := time.Parse(ClockLayout, slot.EndTime)
	if err != nil {
		return false
	}
	return end.After(start)
}
