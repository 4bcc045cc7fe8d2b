package scheduling

import (
	"errors"
	"testing"

	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/model"
)

func TestAuthorize(t *testing.T) {
	client := Requester{ID: "c1", Role: model.RoleClient}
	counsellor := Requester{ID: "u9", Role: model.RoleCounsellor}
	admin := Requester{ID: "a1", Role: model.RoleAdmin}
	own := Ownership{ClientID: "c1", CounsellorUserID: "u9"}

	tests := []struct {
		name string
		perm Permission
		req  Requester
		own  Ownership
		ok   bool
	}{
		{"client reads own", PermAppointmentRead, client, own, true},
		{"client reads other", PermAppointmentRead, client, Ownership{ClientID: "c2"}, false},
		{"counsellor reads assigned", PermAppointmentRead, counsellor, own, true},
		{"counsellor reads unassigned", PermAppointmentRead, counsellor, Ownership{ClientID: "c1"}, false},
		{"admin reads any", PermAppointmentRead, admin, Ownership{}, true},
		{"counsellor cannot delete", PermAppointmentDelete, counsellor, own, false},
		{"client deletes own", PermAppointmentDelete, client, own, true},
		{"counsellor cannot book", PermAppointmentCreate, counsellor, Ownership{}, false},
		{"only client pays", PermAppointmentPay, admin, own, false},
		{"self creates profile", PermCounsellorCreate, client, Ownership{UserID: "c1"}, true},
		{"client cannot delete counsellor", PermCounsellorDelete, client, Ownership{UserID: "c1"}, false},
		{"anonymous", PermProfileRead, Requester{Role: model.RoleAdmin}, Ownership{}, false},
		{"unknown permission", Permission("nope"), admin, Ownership{}, false},
		{"empty ownership never matches", PermAppointmentRead, Requester{ID: "", Role: model.RoleClient}, Ownership{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.perm, tt.req, tt.own)
			if tt.ok && err != nil {
				t.Fatalf("expected allowed, got %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrForbidden) {
				t.Fatalf("expected forbidden, got %v", err)
			}
		})
	}
}
