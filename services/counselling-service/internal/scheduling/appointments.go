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

const DefaultDuration = 60

type CreateAppointmentInput struct {
	CounsellorID string `json:"counsellor" validate:"required"`
	// ClientID is honoured only for admins booking on a client's behalf.
	ClientID                string    `json:"client,omitempty"`
	AppointmentDate         time.Time `json:"appointmentDate" validate:"required"`
	Duration                int       `json:"duration" validate:"min=30,max=120"`
	SessionType             string    `json:"sessionType" validate:"required,oneof=video phone in-person chat"`
	ClientNotes             string    `json:"clientNotes,omitempty" validate:"max=500"`
	Amount                  *float64  `json:"amount,omitempty" validate:"omitempty,min=0"`
	EmergencyContactPresent bool      `json:"emergencyContactPresent"`
}

func (s *Service) CreateAppointment(ctx context.Context, req Requester, in CreateAppointmentInput) (model.Appointment, error) {
	if in.Duration == 0 {
		in.Duration = DefaultDuration
	}
	if err := s.check(in); err != nil {
		return model.Appointment{}, err
	}
	now := s.now()
	if !in.AppointmentDate.After(now) {
		return model.Appointment{}, fmt.Errorf("%w: appointmentDate must be in the future", ErrValidation)
	}

	clientID := req.ID
	if in.ClientID != "" && in.ClientID != req.ID {
		if req.Role != model.RoleAdmin {
			return model.Appointment{}, fmt.Errorf("%w: cannot book for another client", ErrForbidden)
		}
		clientID = in.ClientID
	}
	if err := Authorize(PermAppointmentCreate, req, Ownership{ClientID: clientID}); err != nil {
		return model.Appointment{}, err
	}

	var created model.Appointment
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.LockCounsellorSchedule(ctx, in.CounsellorID); err != nil {
			return err
		}
		c, err := tx.GetCounsellor(ctx, in.CounsellorID)
		if err != nil {
			return err
		}
		if !c.IsActive {
			return fmt.Errorf("%w: counsellor %s", ErrNotFound, in.CounsellorID)
		}
		if !c.OffersModality(in.SessionType) {
			return fmt.Errorf("%w: counsellor does not offer %s sessions", ErrValidation, in.SessionType)
		}

		window := availability.ConflictWindow(in.AppointmentDate, in.Duration)
		clashes, err := tx.CountAppointments(ctx, AppointmentFilter{
			CounsellorID: c.ID,
			Statuses:     model.ActiveStatuses,
			From:         window.Start,
			To:           window.End,
		})
		if err != nil {
			return err
		}
		if clashes > 0 {
			return fmt.Errorf("%w: counsellor already has a booking near %s", ErrConflict, in.AppointmentDate.UTC().Format(time.RFC3339))
		}

		amount := SessionAmount(c.HourlyRate, in.Duration)
		if in.Amount != nil {
			amount = *in.Amount
		}

		created = model.Appointment{
			ID:                      uuid.NewString(),
			ClientID:                clientID,
			CounsellorID:            c.ID,
			AppointmentDate:         in.AppointmentDate.UTC(),
			Duration:                in.Duration,
			SessionType:             in.SessionType,
			Status:                  model.StatusScheduled,
			Amount:                  amount,
			ClientNotes:             in.ClientNotes,
			EmergencyContactPresent: in.EmergencyContactPresent,
			PaymentStatus:           model.PaymentPending,
			CreatedAt:               now.UTC(),
			UpdatedAt:               now.UTC(),
		}
		if err := tx.InsertAppointment(ctx, created); err != nil {
			return err
		}
		return appendEvent(ctx, tx, outbox.AggregateAppointment, created.ID, outbox.AppointmentBooked, created)
	})
	if err != nil {
		return model.Appointment{}, err
	}
	s.logger.Info("appointment booked",
		"appointment_id", created.ID,
		"counsellor_id", created.CounsellorID,
		"appointment_date", created.AppointmentDate.Format(time.RFC3339),
	)
	return created, nil
}

type ListAppointmentsInput struct {
	Status model.Status `json:"status,omitempty" validate:"omitempty,oneof=scheduled confirmed in-progress completed cancelled no-show"`
	Limit  int          `json:"limit" validate:"min=0,max=200"`
	Offset int          `json:"offset" validate:"min=0"`
}

// ListAppointments scopes results to the requester: clients see their bookings,
// counsellors the bookings assigned to their profile, admins everything.
func (s *Service) ListAppointments(ctx context.Context, req Requester, in ListAppointmentsInput) ([]model.Appointment, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	if err := Authorize(PermAppointmentList, req, Ownership{}); err != nil {
		return nil, err
	}
	if in.Limit == 0 {
		in.Limit = 50
	}

	f := AppointmentFilter{Limit: in.Limit, Offset: in.Offset}
	if in.Status != "" {
		f.Statuses = []model.Status{in.Status}
	}

	var out []model.Appointment
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		switch req.Role {
		case model.RoleClient:
			f.ClientID = req.ID
		case model.RoleCounsellor:
			c, err := tx.GetCounsellorByUser(ctx, req.ID)
			if errors.Is(err, ErrNotFound) {
				out = []model.Appointment{}
				return nil
			}
			if err != nil {
				return err
			}
			f.CounsellorID = c.ID
		}
		var err error
		out, err = tx.ListAppointments(ctx, f)
		return err
	})
	return out, err
}

func (s *Service) GetAppointment(ctx context.Context, req Requester, id string) (model.Appointment, error) {
	var appt model.Appointment
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		a, err := tx.GetAppointment(ctx, id)
		if err != nil {
			return err
		}
		own, err := ownership(ctx, tx, a)
		if err != nil {
			return err
		}
		if err := Authorize(PermAppointmentRead, req, own); err != nil {
			return err
		}
		appt = a
		return nil
	})
	return appt, err
}

// AppointmentPatch lists the fields an update may carry. Client, Counsellor and
// AppointmentDate exist only so their presence can be rejected.
type AppointmentPatch struct {
	Status             *model.Status       `json:"status,omitempty"`
	ClientNotes        *string             `json:"clientNotes,omitempty" validate:"omitempty,max=500"`
	CounsellorNotes    *string             `json:"counsellorNotes,omitempty" validate:"omitempty,max=1000"`
	MeetingLink        *string             `json:"meetingLink,omitempty" validate:"omitempty,max=500,url"`
	CancellationReason *string             `json:"cancellationReason,omitempty" validate:"omitempty,max=200"`
	ClientSatisfaction *model.Satisfaction `json:"clientSatisfaction,omitempty"`

	Client          *string    `json:"client,omitempty"`
	Counsellor      *string    `json:"counsellor,omitempty"`
	AppointmentDate *time.Time `json:"appointmentDate,omitempty"`
}

func (s *Service) UpdateAppointment(ctx context.Context, req Requester, id string, p AppointmentPatch) (model.Appointment, error) {
	if p.Client != nil || p.Counsellor != nil || p.AppointmentDate != nil {
		return model.Appointment{}, fmt.Errorf("%w: client, counsellor and appointmentDate cannot be changed", ErrValidation)
	}
	if err := s.check(p); err != nil {
		return model.Appointment{}, err
	}

	var updated model.Appointment
	var previous model.Status
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		a, err := tx.GetAppointment(ctx, id)
		if err != nil {
			return err
		}
		own, err := ownership(ctx, tx, a)
		if err != nil {
			return err
		}
		if err := Authorize(PermAppointmentUpdate, req, own); err != nil {
			return err
		}
		previous = a.Status

		if err := applyPatch(&a, req, p); err != nil {
			return err
		}
		a.UpdatedAt = s.now().UTC()
		if err := tx.UpdateAppointment(ctx, a); err != nil {
			return err
		}
		updated = a
		return appendEvent(ctx, tx, outbox.AggregateAppointment, a.ID, outbox.AppointmentUpdated, map[string]any{
			"appointment":     a,
			"previous_status": previous,
			"status":          a.Status,
		})
	})
	if err != nil {
		return model.Appointment{}, err
	}
	if previous != updated.Status {
		s.logger.Info("appointment status changed",
			"appointment_id", updated.ID,
			"from", previous,
			"to", updated.Status,
			"actor_role", req.Role,
		)
	}
	return updated, nil
}

func applyPatch(a *model.Appointment, req Requester, p AppointmentPatch) error {
	if p.Status != nil {
		if req.Role == model.RoleClient && *p.Status != model.StatusCancelled && *p.Status != a.Status {
			return fmt.Errorf("%w: clients may only cancel appointments", ErrForbidden)
		}
		if err := Transition(a.Status, *p.Status); err != nil {
			return err
		}
		a.Status = *p.Status
	}
	if p.CounsellorNotes != nil {
		if req.Role != model.RoleCounsellor {
			return fmt.Errorf("%w: only the counsellor can write counsellorNotes", ErrForbidden)
		}
		a.CounsellorNotes = *p.CounsellorNotes
	}
	if p.ClientNotes != nil {
		if req.Role != model.RoleClient {
			return fmt.Errorf("%w: only the client can write clientNotes", ErrForbidden)
		}
		a.ClientNotes = *p.ClientNotes
	}
	if p.MeetingLink != nil {
		if req.Role == model.RoleClient {
			return fmt.Errorf("%w: clients cannot set meetingLink", ErrForbidden)
		}
		a.MeetingLink = *p.MeetingLink
	}
	if p.CancellationReason != nil {
		if a.Status != model.StatusCancelled {
			return fmt.Errorf("%w: cancellationReason requires a cancelled appointment", ErrInvalidState)
		}
		a.CancellationReason = *p.CancellationReason
	}
	if p.ClientSatisfaction != nil {
		if req.Role != model.RoleClient {
			return fmt.Errorf("%w: only the client can rate a session", ErrForbidden)
		}
		if a.Status != model.StatusCompleted {
			return fmt.Errorf("%w: only completed sessions can be rated", ErrInvalidState)
		}
		sat := *p.ClientSatisfaction
		a.ClientSatisfaction = &sat
	}
	return nil
}

// DeleteAppointment removes a booking. Past appointments are kept as history
// unless they were cancelled.
func (s *Service) DeleteAppointment(ctx context.Context, req Requester, id string) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		a, err := tx.GetAppointment(ctx, id)
		if err != nil {
			return err
		}
		if err := Authorize(PermAppointmentDelete, req, Ownership{ClientID: a.ClientID}); err != nil {
			return err
		}
		if a.AppointmentDate.Before(s.now()) && a.Status != model.StatusCancelled {
			return fmt.Errorf("%w: past appointments can only be deleted once cancelled", ErrInvalidState)
		}
		if err := tx.DeleteAppointment(ctx, id); err != nil {
			return err
		}
		return appendEvent(ctx, tx, outbox.AggregateAppointment, id, outbox.AppointmentDeleted, map[string]any{
			"id":         id,
			"counsellor": a.CounsellorID,
			"client":     a.ClientID,
			"deleted_by": req.ID,
		})
	})
}
