package scheduling

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/model"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/outbox"
)

// Store runs a unit of work atomically. fn's writes commit only if it returns nil.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// AppointmentFilter selects appointments. Zero fields do not filter.
type AppointmentFilter struct {
	ClientID     string
	CounsellorID string
	Statuses     []model.Status
	// From and To bound appointmentDate inclusively.
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

type CounsellorFilter struct {
	Specialization string
	SessionType    string
	MinRating      float64
	IsVerified     *bool
	ActiveOnly     bool
	Limit          int
	Offset         int
}

// Tx is the storage surface visible inside a unit of work. Lookups return
// ErrNotFound for missing rows, writes return ErrConflict on uniqueness violations.
type Tx interface {
	GetUser(ctx context.Context, id string) (model.User, error)
	UpsertUser(ctx context.Context, u model.User) (model.User, error)
	SetUserRole(ctx context.Context, id string, role model.Role) error

	GetCounsellor(ctx context.Context, id string) (model.Counsellor, error)
	GetCounsellorByUser(ctx context.Context, userID string) (model.Counsellor, error)
	// ListCounsellors returns one page ordered by rating and the total matching count.
	ListCounsellors(ctx context.Context, f CounsellorFilter) ([]model.Counsellor, int, error)
	InsertCounsellor(ctx context.Context, c model.Counsellor) error
	UpdateCounsellor(ctx context.Context, c model.Counsellor) error
	DeleteCounsellor(ctx context.Context, id string) error

	// LockCounsellorSchedule serialises bookings for one counsellor until the unit of work ends.
	LockCounsellorSchedule(ctx context.Context, counsellorID string) error
	GetAppointment(ctx context.Context, id string) (model.Appointment, error)
	// ListAppointments orders by appointmentDate ascending.
	ListAppointments(ctx context.Context, f AppointmentFilter) ([]model.Appointment, error)
	CountAppointments(ctx context.Context, f AppointmentFilter) (int, error)
	InsertAppointment(ctx context.Context, a model.Appointment) error
	UpdateAppointment(ctx context.Context, a model.Appointment) error
	DeleteAppointment(ctx context.Context, id string) error

	AppendEvent(ctx context.Context, evt outbox.Event) error
}
