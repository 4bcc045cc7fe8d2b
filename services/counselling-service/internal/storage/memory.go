package storage

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/model"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/outbox"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/scheduling"
)

// Memory is an in-process Store. A unit of work holds one mutex for its whole
// duration and is rolled back from a snapshot when it fails.
type Memory struct {
	mu           sync.Mutex
	users        map[string]model.User
	counsellors  map[string]model.Counsellor
	appointments map[string]model.Appointment
	events       []outbox.Event
}

func NewMemory() *Memory {
	return &Memory{
		users:        map[string]model.User{},
		counsellors:  map[string]model.Counsellor{},
		appointments: map[string]model.Appointment{},
	}
}

func (m *Memory) InTx(ctx context.Context, fn func(ctx context.Context, tx scheduling.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	users := maps.Clone(m.users)
	counsellors := maps.Clone(m.counsellors)
	appointments := maps.Clone(m.appointments)
	events := len(m.events)

	if err := fn(ctx, memTx{m: m}); err != nil {
		m.users = users
		m.counsellors = counsellors
		m.appointments = appointments
		m.events = m.events[:events]
		return err
	}
	return nil
}

// Events returns the outbox events committed so far.
func (m *Memory) Events() []outbox.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.events)
}

// memTx runs with Memory.mu held.
type memTx struct {
	m *Memory
}

func (t memTx) GetUser(_ context.Context, id string) (model.User, error) {
	u, ok := t.m.users[id]
	if !ok {
		return model.User{}, fmt.Errorf("%w: user %s", scheduling.ErrNotFound, id)
	}
	return u, nil
}

func (t memTx) UpsertUser(_ context.Context, u model.User) (model.User, error) {
	if prev, ok := t.m.users[u.ID]; ok && !prev.CreatedAt.IsZero() {
		u.CreatedAt = prev.CreatedAt
	}
	t.m.users[u.ID] = u
	return u, nil
}

func (t memTx) SetUserRole(_ context.Context, id string, role model.Role) error {
	u, ok := t.m.users[id]
	if !ok {
		return fmt.Errorf("%w: user %s", scheduling.ErrNotFound, id)
	}
	u.Role = role
	t.m.users[id] = u
	return nil
}

func (t memTx) GetCounsellor(_ context.Context, id string) (model.Counsellor, error) {
	c, ok := t.m.counsellors[id]
	if !ok {
		return model.Counsellor{}, fmt.Errorf("%w: counsellor %s", scheduling.ErrNotFound, id)
	}
	return c, nil
}

func (t memTx) GetCounsellorByUser(_ context.Context, userID string) (model.Counsellor, error) {
	for _, c := range t.m.counsellors {
		if c.UserID == userID {
			return c, nil
		}
	}
	return model.Counsellor{}, fmt.Errorf("%w: counsellor for user %s", scheduling.ErrNotFound, userID)
}

func (t memTx) ListCounsellors(_ context.Context, f scheduling.CounsellorFilter) ([]model.Counsellor, int, error) {
	var matched []model.Counsellor
	for _, c := range t.m.counsellors {
		if f.ActiveOnly && !c.IsActive {
			continue
		}
		if f.Specialization != "" && !slices.Contains(c.Specialization, f.Specialization) {
			continue
		}
		if f.SessionType != "" && !slices.Contains(c.SessionModalities, f.SessionType) {
			continue
		}
		if c.Rating.Average < f.MinRating {
			continue
		}
		if f.IsVerified != nil && c.IsVerified != *f.IsVerified {
			continue
		}
		matched = append(matched, c)
	}
	slices.SortFunc(matched, func(a, b model.Counsellor) int {
		return cmp.Or(
			cmp.Compare(b.Rating.Average, a.Rating.Average),
			cmp.Compare(b.Rating.TotalReviews, a.Rating.TotalReviews),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return page(matched, f.Offset, f.Limit), len(matched), nil
}

func (t memTx) InsertCounsellor(_ context.Context, c model.Counsellor) error {
	for _, existing := range t.m.counsellors {
		if existing.ID == c.ID || existing.UserID == c.UserID {
			return fmt.Errorf("%w: counsellor profile already exists", scheduling.ErrConflict)
		}
		if existing.LicenseNumber == c.LicenseNumber {
			return fmt.Errorf("%w: license number already registered", scheduling.ErrConflict)
		}
	}
	t.m.counsellors[c.ID] = c
	return nil
}

func (t memTx) UpdateCounsellor(_ context.Context, c model.Counsellor) error {
	if _, ok := t.m.counsellors[c.ID]; !ok {
		return fmt.Errorf("%w: counsellor %s", scheduling.ErrNotFound, c.ID)
	}
	for _, existing := range t.m.counsellors {
		if existing.ID != c.ID && existing.LicenseNumber == c.LicenseNumber {
			return fmt.Errorf("%w: license number already registered", scheduling.ErrConflict)
		}
	}
	t.m.counsellors[c.ID] = c
	return nil
}

func (t memTx) DeleteCounsellor(_ context.Context, id string) error {
	if _, ok := t.m.counsellors[id]; !ok {
		return fmt.Errorf("%w: counsellor %s", scheduling.ErrNotFound, id)
	}
	delete(t.m.counsellors, id)
	return nil
}

// LockCounsellorSchedule is a no-op; the unit of work already holds the store mutex.
func (t memTx) LockCounsellorSchedule(context.Context, string) error { return nil }

func (t memTx) GetAppointment(_ context.Context, id string) (model.Appointment, error) {
	a, ok := t.m.appointments[id]
	if !ok {
		return model.Appointment{}, fmt.Errorf("%w: appointment %s", scheduling.ErrNotFound, id)
	}
	return a, nil
}

func (t memTx) ListAppointments(_ context.Context, f scheduling.AppointmentFilter) ([]model.Appointment, error) {
	matched := t.filterAppointments(f)
	slices.SortFunc(matched, func(a, b model.Appointment) int {
		return cmp.Or(a.AppointmentDate.Compare(b.AppointmentDate), cmp.Compare(a.ID, b.ID))
	})
	return page(matched, f.Offset, f.Limit), nil
}

func (t memTx) CountAppointments(_ context.Context, f scheduling.AppointmentFilter) (int, error) {
	return len(t.filterAppointments(f)), nil
}

func (t memTx) filterAppointments(f scheduling.AppointmentFilter) []model.Appointment {
	out := []model.Appointment{}
	for _, a := range t.m.appointments {
		if f.ClientID != "" && a.ClientID != f.ClientID {
			continue
		}
		if f.CounsellorID != "" && a.CounsellorID != f.CounsellorID {
			continue
		}
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, a.Status) {
			continue
		}
		if !f.From.IsZero() && a.AppointmentDate.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && a.AppointmentDate.After(f.To) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func (t memTx) InsertAppointment(_ context.Context, a model.Appointment) error {
	if _, ok := t.m.appointments[a.ID]; ok {
		return fmt.Errorf("%w: appointment %s exists", scheduling.ErrConflict, a.ID)
	}
	t.m.appointments[a.ID] = a
	return nil
}

func (t memTx) UpdateAppointment(_ context.Context, a model.Appointment) error {
	if _, ok := t.m.appointments[a.ID]; !ok {
		return fmt.Errorf("%w: appointment %s", scheduling.ErrNotFound, a.ID)
	}
	t.m.appointments[a.ID] = a
	return nil
}

func (t memTx) DeleteAppointment(_ context.Context, id string) error {
	if _, ok := t.m.appointments[id]; !ok {
		return fmt.Errorf("%w: appointment %s", scheduling.ErrNotFound, id)
	}
	delete(t.m.appointments, id)
	return nil
}

func (t memTx) AppendEvent(_ context.Context, evt outbox.Event) error {
	t.m.events = append(t.m.events, evt)
	return nil
}

// page applies offset and limit. A zero limit returns everything after offset.
func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
