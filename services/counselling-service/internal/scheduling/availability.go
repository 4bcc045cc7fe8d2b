package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/availability"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/model"
)

type DayAvailability struct {
	Date           string           `json:"date"`
	Day            string           `json:"day"`
	AvailableSlots []model.TimeSlot `json:"availableSlots"`
}

// Resolve lists the free template slots of a counsellor on one calendar day.
// An empty date means today in the service location.
func (s *Service) Resolve(ctx context.Context, counsellorID, date string) (DayAvailability, error) {
	var target time.Time
	if strings.TrimSpace(date) == "" {
		target = s.now().In(s.loc)
	} else {
		t, err := time.ParseInLocation(availability.DateLayout, date, s.loc)
		if err != nil {
			return DayAvailability{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
		}
		target = t
	}
	day := availability.WeekdayName(target)
	out := DayAvailability{
		Date:           target.Format(availability.DateLayout),
		Day:            day,
		AvailableSlots: []model.TimeSlot{},
	}

	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		c, err := tx.GetCounsellor(ctx, counsellorID)
		if err != nil {
			return err
		}
		if !c.IsActive {
			return fmt.Errorf("%w: counsellor %s", ErrNotFound, counsellorID)
		}
		tmpl, ok := c.DayTemplate(day)
		if !ok {
			return nil
		}
		bounds := availability.DayBounds(target, s.loc)
		booked, err := tx.ListAppointments(ctx, AppointmentFilter{
			CounsellorID: c.ID,
			Statuses:     model.ActiveStatuses,
			From:         bounds.Start,
			To:           bounds.End,
		})
		if err != nil {
			return err
		}
		starts := make([]time.Time, 0, len(booked))
		for _, a := range booked {
			starts = append(starts, a.AppointmentDate)
		}
		out.AvailableSlots = availability.FreeSlots(tmpl.Slots, availability.BookedStartTimes(starts, s.loc))
		return nil
	})
	if err != nil {
		return DayAvailability{}, err
	}
	return out, nil
}
