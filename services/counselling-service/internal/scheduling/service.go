package scheduling

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/model"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/outbox"
)

// Service implements availability, booking, counsellor and profile operations
// on top of a Store. It holds no mutable state of its own.
type Service struct {
	store    Store
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
	loc      *time.Location
	payments PaymentGateway
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the zone used for calendar days and "HH:MM" slot times.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithPayments(g PaymentGateway) Option {
	return func(s *Service) { s.payments = g }
}

func NewService(store Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		logger:   logger,
		validate: newValidator(),
		now:      time.Now,
		loc:      time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Location() *time.Location { return s.loc }

// appendEvent records a domain event inside the caller's unit of work.
func appendEvent(ctx context.Context, tx Tx, aggregateType, aggregateID, eventType string, payload any) error {
	evt, err := outbox.NewEvent(aggregateType, aggregateID, eventType, payload)
	if err != nil {
		return err
	}
	return tx.AppendEvent(ctx, evt)
}

// ownership resolves who owns an appointment, including the user behind the counsellor profile.
func ownership(ctx context.Context, tx Tx, a model.Appointment) (Ownership, error) {
	own := Ownership{ClientID: a.ClientID}
	c, err := tx.GetCounsellor(ctx, a.CounsellorID)
	switch {
	case err == nil:
		own.CounsellorUserID = c.UserID
	case errors.Is(err, ErrNotFound):
	default:
		return Ownership{}, err
	}
	return own, nil
}

// SessionAmount prices a session at hourlyRate pro rata, rounded to cents.
func SessionAmount(hourlyRate float64, durationMinutes int) float64 {
	return math.Round(hourlyRate*float64(durationMinutes)/60*100) / 100
}
