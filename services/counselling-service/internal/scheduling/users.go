package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/model"
)

type ProfileStats struct {
	ByStatus map[model.Status]int `json:"byStatus"`
	Upcoming int                  `json:"upcoming"`
}

type Profile struct {
	User  model.User   `json:"user"`
	Stats ProfileStats `json:"stats"`
}

// Profile returns the requester's user record with appointment counts.
func (s *Service) Profile(ctx context.Context, req Requester) (Profile, error) {
	if err := Authorize(PermProfileRead, req, Ownership{UserID: req.ID}); err != nil {
		return Profile{}, err
	}
	var out Profile
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		u, err := tx.GetUser(ctx, req.ID)
		if err != nil {
			return err
		}
		out.User = u
		out.Stats.ByStatus = make(map[model.Status]int, len(model.AllStatuses))

		scope := AppointmentFilter{ClientID: req.ID}
		if u.Role == model.RoleCounsellor {
			c, err := tx.GetCounsellorByUser(ctx, req.ID)
			if errors.Is(err, ErrNotFound) {
				for _, st := range model.AllStatuses {
					out.Stats.ByStatus[st] = 0
				}
				return nil
			}
			if err != nil {
				return err
			}
			scope = AppointmentFilter{CounsellorID: c.ID}
		}

		for _, st := range model.AllStatuses {
			f := scope
			f.Statuses = []model.Status{st}
			n, err := tx.CountAppointments(ctx, f)
			if err != nil {
				return err
			}
			out.Stats.ByStatus[st] = n
		}
		upcoming := scope
		upcoming.Statuses = model.ActiveStatuses
		upcoming.From = s.now()
		out.Stats.Upcoming, err = tx.CountAppointments(ctx, upcoming)
		return err
	})
	return out, err
}

type ProfileInput struct {
	Email     string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	FirstName string `json:"firstName" validate:"max=50"`
	LastName  string `json:"lastName" validate:"max=50"`
	Phone     string `json:"phone,omitempty" validate:"max=30"`
}

// UpsertProfile creates or refreshes the requester's record. New users take
// the role from their token, existing users keep the stored role.
func (s *Service) UpsertProfile(ctx context.Context, req Requester, in ProfileInput) (model.User, error) {
	if err := s.check(in); err != nil {
		return model.User{}, err
	}
	if req.ID == "" {
		return model.User{}, fmt.Errorf("%w: anonymous requester", ErrForbidden)
	}
	var out model.User
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		now := s.now().UTC()
		u, err := tx.GetUser(ctx, req.ID)
		switch {
		case errors.Is(err, ErrNotFound):
			role := req.Role
			if !role.Valid() {
				role = model.RoleClient
			}
			u = model.User{ID: req.ID, Role: role, CreatedAt: now}
		case err != nil:
			return err
		}
		if in.Email != "" {
			u.Email = in.Email
		}
		u.FirstName = in.FirstName
		u.LastName = in.LastName
		u.Phone = in.Phone
		u.UpdatedAt = now
		out, err = tx.UpsertUser(ctx, u)
		return err
	})
	return out, err
}

func (s *Service) SetRole(ctx context.Context, req Requester, userID string, role model.Role) (model.User, error) {
	if err := Authorize(PermUserRoleUpdate, req, Ownership{}); err != nil {
		return model.User{}, err
	}
	if !role.Valid() {
		return model.User{}, fmt.Errorf("%w: role must be one of client, counsellor, admin", ErrValidation)
	}
	var out model.User
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.SetUserRole(ctx, userID, role); err != nil {
			return err
		}
		u, err := tx.GetUser(ctx, userID)
		out = u
		return err
	})
	if err != nil {
		return model.User{}, err
	}
	s.logger.Info("user role changed", "user_id", userID, "role", role, "actor_id", req.ID)
	return out, nil
}

// LookupUser reads a user outside any requester context. The auth middleware
// uses it to refresh token roles.
func (s *Service) LookupUser(ctx context.Context, id string) (model.User, error) {
	var out model.User
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		u, err := tx.GetUser(ctx, id)
		out = u
		return err
	})
	return out, err
}
