package scheduling

import (
	"fmt"
	"slices"

	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/model"
)

// Requester is the authenticated caller of an operation.
type Requester struct {
	ID   string
	Role model.Role
}

type Permission string

const (
	PermAppointmentCreate Permission = "appointment:create"
	PermAppointmentList   Permission = "appointment:list"
	PermAppointmentRead   Permission = "appointment:read"
	PermAppointmentUpdate Permission = "appointment:update"
	PermAppointmentDelete Permission = "appointment:delete"
	PermAppointmentPay    Permission = "appointment:pay"
	PermCounsellorCreate  Permission = "counsellor:create"
	PermCounsellorUpdate  Permission = "counsellor:update"
	PermCounsellorDelete  Permission = "counsellor:delete"
	PermProfileRead       Permission = "profile:read"
	PermUserRoleUpdate    Permission = "user:role:update"
)

// Ownership names the users a resource belongs to. Empty fields never match.
type Ownership struct {
	// ClientID is the client who booked the appointment.
	ClientID string
	// CounsellorUserID is the user behind the assigned counsellor profile.
	CounsellorUserID string
	// UserID is the user a profile-level resource belongs to.
	UserID string
}

type rule struct {
	roles      []model.Role // allowed without any ownership check
	client     bool         // a client matching Ownership.ClientID
	counsellor bool         // a counsellor matching Ownership.CounsellorUserID
	self       bool         // any role matching Ownership.UserID
}

var policy = map[Permission]rule{
	PermAppointmentCreate: {roles: []model.Role{model.RoleClient, model.RoleAdmin}},
	PermAppointmentList:   {roles: []model.Role{model.RoleClient, model.RoleCounsellor, model.RoleAdmin}},
	PermAppointmentRead:   {roles: []model.Role{model.RoleAdmin}, client: true, counsellor: true},
	PermAppointmentUpdate: {roles: []model.Role{model.RoleAdmin}, client: true, counsellor: true},
	PermAppointmentDelete: {roles: []model.Role{model.RoleAdmin}, client: true},
	PermAppointmentPay:    {client: true},
	PermCounsellorCreate:  {roles: []model.Role{model.RoleAdmin}, self: true},
	PermCounsellorUpdate:  {roles: []model.Role{model.RoleAdmin}, self: true},
	PermCounsellorDelete:  {roles: []model.Role{model.RoleAdmin}},
	PermProfileRead:       {roles: []model.Role{model.RoleClient, model.RoleCounsellor, model.RoleAdmin}},
	PermUserRoleUpdate:    {roles: []model.Role{model.RoleAdmin}},
}

// Authorize is the single place role and ownership rules are decided.
func Authorize(perm Permission, req Requester, own Ownership) error {
	r, ok := policy[perm]
	if !ok || req.ID == "" {
		return fmt.Errorf("%w: %s", ErrForbidden, perm)
	}
	switch {
	case slices.Contains(r.roles, req.Role):
		return nil
	case r.client && req.Role == model.RoleClient && own.ClientID != "" && own.ClientID == req.ID:
		return nil
	case r.counsellor && req.Role == model.RoleCounsellor && own.CounsellorUserID != "" && own.CounsellorUserID == req.ID:
		return nil
	case r.self && own.UserID != "" && own.UserID == req.ID:
		return nil
	}
	return fmt.Errorf("%w: %s not permitted for %s", ErrForbidden, perm, req.Role)
}
