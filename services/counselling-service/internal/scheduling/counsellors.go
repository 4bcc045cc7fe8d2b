package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/availability"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/model"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/outbox"
)

type CounsellorQuery struct {
	Specialization string  `json:"specialization,omitempty" validate:"omitempty,oneof=anxiety depression relationships trauma addiction career family lgbtq+"`
	SessionType    string  `json:"sessionType,omitempty" validate:"omitempty,oneof=video phone in-person chat"`
	MinRating      float64 `json:"minRating,omitempty" validate:"min=0,max=5"`
	IsVerified     *bool   `json:"isVerified,omitempty"`
	Page           int     `json:"page" validate:"min=0"`
	Limit          int     `json:"limit" validate:"min=0,max=100"`
}

type CounsellorPage struct {
	Counsellors []model.Counsellor `json:"counsellors"`
	Total       int                `json:"total"`
	Page        int                `json:"page"`
	Pages       int                `json:"pages"`
}

// ListCounsellors pages through active profiles, best rated first.
func (s *Service) ListCounsellors(ctx context.Context, q CounsellorQuery) (CounsellorPage, error) {
	if err := s.check(q); err != nil {
		return CounsellorPage{}, err
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = 10
	}
	page := CounsellorPage{Page: q.Page}
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		list, total, err := tx.ListCounsellors(ctx, CounsellorFilter{
			Specialization: q.Specialization,
			SessionType:    q.SessionType,
			MinRating:      q.MinRating,
			IsVerified:     q.IsVerified,
			ActiveOnly:     true,
			Limit:          q.Limit,
			Offset:         (q.Page - 1) * q.Limit,
		})
		if err != nil {
			return err
		}
		page.Counsellors = list
		page.Total = total
		return nil
	})
	if err != nil {
		return CounsellorPage{}, err
	}
	if page.Counsellors == nil {
		page.Counsellors = []model.Counsellor{}
	}
	page.Pages = (page.Total + q.Limit - 1) / q.Limit
	return page, nil
}

type CounsellorDetail struct {
	model.Counsellor
	UpcomingAppointments int `json:"upcomingAppointments"`
}

func (s *Service) GetCounsellor(ctx context.Context, id string) (CounsellorDetail, error) {
	var out CounsellorDetail
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		c, err := tx.GetCounsellor(ctx, id)
		if err != nil {
			return err
		}
		n, err := tx.CountAppointments(ctx, AppointmentFilter{
			CounsellorID: c.ID,
			Statuses:     model.ActiveStatuses,
			From:         s.now(),
		})
		if err != nil {
			return err
		}
		out = CounsellorDetail{Counsellor: c, UpcomingAppointments: n}
		return nil
	})
	return out, err
}

type CounsellorInput struct {
	// UserID lets an admin create a profile for someone else.
	UserID            string                  `json:"userId,omitempty"`
	Specialization    []string                `json:"specialization" validate:"required,min=1,dive,oneof=anxiety depression relationships trauma addiction career family lgbtq+"`
	Qualifications    []model.Qualification   `json:"qualifications" validate:"dive"`
	LicenseNumber     string                  `json:"licenseNumber" validate:"required,max=100"`
	YearsOfExperience int                     `json:"yearsOfExperience" validate:"min=0,max=80"`
	HourlyRate        float64                 `json:"hourlyRate" validate:"min=0"`
	Bio               string                  `json:"bio,omitempty" validate:"max=1000"`
	Languages         []string                `json:"languages" validate:"dive,required,max=50"`
	Availability      []model.DayAvailability `json:"availability" validate:"dive"`
	SessionModalities []string                `json:"sessionModalities" validate:"dive,oneof=video phone in-person chat"`
}

func checkTemplate(days []model.DayAvailability) error {
	seen := make(map[string]struct{}, len(days))
	for _, d := range days {
		if _, dup := seen[d.Day]; dup {
			return fmt.Errorf("%w: availability lists %s twice", ErrValidation, d.Day)
		}
		seen[d.Day] = struct{}{}
		for _, slot := range d.Slots {
			if !availability.ValidSlot(slot) {
				return fmt.Errorf("%w: slot %s-%s on %s must end after it starts", ErrValidation, slot.StartTime, slot.EndTime, d.Day)
			}
		}
	}
	return nil
}

// CreateCounsellor registers a counsellor profile and promotes its user.
func (s *Service) CreateCounsellor(ctx context.Context, req Requester, in CounsellorInput) (model.Counsellor, error) {
	if err := s.check(in); err != nil {
		return model.Counsellor{}, err
	}
	if err := checkTemplate(in.Availability); err != nil {
		return model.Counsellor{}, err
	}
	target := req.ID
	if in.UserID != "" {
		target = in.UserID
	}
	if err := Authorize(PermCounsellorCreate, req, Ownership{UserID: target}); err != nil {
		return model.Counsellor{}, err
	}

	now := s.now().UTC()
	c := model.Counsellor{
		ID:                uuid.NewString(),
		UserID:            target,
		Specialization:    in.Specialization,
		Qualifications:    nonNil(in.Qualifications),
		LicenseNumber:     in.LicenseNumber,
		YearsOfExperience: in.YearsOfExperience,
		HourlyRate:        in.HourlyRate,
		Bio:               in.Bio,
		Languages:         nonNil(in.Languages),
		Availability:      nonNil(in.Availability),
		SessionModalities: nonNil(in.SessionModalities),
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		u, err := tx.GetUser(ctx, target)
		if err != nil {
			return err
		}
		_, err = tx.GetCounsellorByUser(ctx, target)
		switch {
		case err == nil:
			return fmt.Errorf("%w: user %s already has a counsellor profile", ErrConflict, target)
		case !errors.Is(err, ErrNotFound):
			return err
		}
		if err := tx.InsertCounsellor(ctx, c); err != nil {
			return err
		}
		if u.Role != model.RoleAdmin {
			if err := tx.SetUserRole(ctx, u.ID, model.RoleCounsellor); err != nil {
				return err
			}
		}
		return appendEvent(ctx, tx, outbox.AggregateCounsellor, c.ID, outbox.CounsellorCreated, c)
	})
	if err != nil {
		return model.Counsellor{}, err
	}
	s.logger.Info("counsellor created", "counsellor_id", c.ID, "user_id", c.UserID)
	return c, nil
}

type CounsellorPatch struct {
	Specialization    *[]string                `json:"specialization,omitempty" validate:"omitempty,min=1,dive,oneof=anxiety depression relationships trauma addiction career family lgbtq+"`
	Qualifications    *[]model.Qualification   `json:"qualifications,omitempty" validate:"omitempty,dive"`
	LicenseNumber     *string                  `json:"licenseNumber,omitempty" validate:"omitempty,min=1,max=100"`
	YearsOfExperience *int                     `json:"yearsOfExperience,omitempty" validate:"omitempty,min=0,max=80"`
	HourlyRate        *float64                 `json:"hourlyRate,omitempty" validate:"omitempty,min=0"`
	Bio               *string                  `json:"bio,omitempty" validate:"omitempty,max=1000"`
	Languages         *[]string                `json:"languages,omitempty" validate:"omitempty,dive,required,max=50"`
	Availability      *[]model.DayAvailability `json:"availability,omitempty" validate:"omitempty,dive"`
	SessionModalities *[]string                `json:"sessionModalities,omitempty" validate:"omitempty,dive,oneof=video phone in-person chat"`
	IsActive          *bool                    `json:"isActive,omitempty"`
	IsVerified        *bool                    `json:"isVerified,omitempty"`
}

func (s *Service) UpdateCounsellor(ctx context.Context, req Requester, id string, p CounsellorPatch) (model.Counsellor, error) {
	if err := s.check(p); err != nil {
		return model.Counsellor{}, err
	}
	if p.Availability != nil {
		if err := checkTemplate(*p.Availability); err != nil {
			return model.Counsellor{}, err
		}
	}
	if p.IsVerified != nil && req.Role != model.RoleAdmin {
		return model.Counsellor{}, fmt.Errorf("%w: only admins can verify counsellors", ErrForbidden)
	}

	var updated model.Counsellor
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		c, err := tx.GetCounsellor(ctx, id)
		if err != nil {
			return err
		}
		if err := Authorize(PermCounsellorUpdate, req, Ownership{UserID: c.UserID}); err != nil {
			return err
		}
		if p.Specialization != nil {
			c.Specialization = *p.Specialization
		}
		if p.Qualifications != nil {
			c.Qualifications = nonNil(*p.Qualifications)
		}
		if p.LicenseNumber != nil {
			c.LicenseNumber = *p.LicenseNumber
		}
		if p.YearsOfExperience != nil {
			c.YearsOfExperience = *p.YearsOfExperience
		}
		if p.HourlyRate != nil {
			c.HourlyRate = *p.HourlyRate
		}
		if p.Bio != nil {
			c.Bio = *p.Bio
		}
		if p.Languages != nil {
			c.Languages = nonNil(*p.Languages)
		}
		if p.Availability != nil {
			c.Availability = nonNil(*p.Availability)
		}
		if p.SessionModalities != nil {
			c.SessionModalities = nonNil(*p.SessionModalities)
		}
		if p.IsActive != nil {
			c.IsActive = *p.IsActive
		}
		if p.IsVerified != nil {
			c.IsVerified = *p.IsVerified
		}
		c.UpdatedAt = s.now().UTC()
		if err := tx.UpdateCounsellor(ctx, c); err != nil {
			return err
		}
		updated = c
		return nil
	})
	return updated, err
}

// DeleteCounsellor removes a profile with no upcoming bookings and demotes its user to client.
func (s *Service) DeleteCounsellor(ctx context.Context, req Requester, id string) error {
	if err := Authorize(PermCounsellorDelete, req, Ownership{}); err != nil {
		return err
	}
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		c, err := tx.GetCounsellor(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.LockCounsellorSchedule(ctx, c.ID); err != nil {
			return err
		}
		upcoming, err := tx.CountAppointments(ctx, AppointmentFilter{
			CounsellorID: c.ID,
			Statuses:     model.ActiveStatuses,
			From:         s.now(),
		})
		if err != nil {
			return err
		}
		if upcoming > 0 {
			return fmt.Errorf("%w: counsellor has %d upcoming appointments", ErrInvalidState, upcoming)
		}
		if err := tx.DeleteCounsellor(ctx, c.ID); err != nil {
			return err
		}
		u, err := tx.GetUser(ctx, c.UserID)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return err
		case u.Role == model.RoleCounsellor:
			if err := tx.SetUserRole(ctx, u.ID, model.RoleClient); err != nil {
				return err
			}
		}
		return appendEvent(ctx, tx, outbox.AggregateCounsellor, c.ID, outbox.CounsellorDeleted, map[string]any{
			"id":         c.ID,
			"user_id":    c.UserID,
			"deleted_at": s.now().UTC().Format(time.RFC3339),
		})
	})
	if err != nil {
		return err
	}
	s.logger.Info("counsellor deleted", "counsellor_id", id, "actor_id", req.ID)
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
