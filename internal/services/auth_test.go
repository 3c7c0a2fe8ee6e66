package services

import (
	"testing"

	"github.com/communityvault/backend/internal/clients/whop"
	"github.com/communityvault/backend/internal/domain"
)

func TestMapWhopRole(t *testing.T) {
	cases := []struct {
		name    string
		profile *whop.User
		want    domain.UserRole
	}{
		{"nil profile", nil, domain.RoleViewer},
		{"no roles", &whop.User{}, domain.RoleViewer},
		{"admin role", &whop.User{Roles: []string{"admin"}}, domain.RoleAdmin},
		{"admin wins over creator", &whop.User{Roles: []string{"creator", "admin"}}, domain.RoleAdmin},
		{"creator role", &whop.User{Roles: []string{"creator"}}, domain.RoleCreator},
		{"owner type", &whop.User{Type: "owner"}, domain.RoleCreator},
		{"case and whitespace", &whop.User{Roles: []string{" Admin "}}, domain.RoleAdmin},
		{"unknown labels", &whop.User{Roles: []string{"member"}, Type: "user"}, domain.RoleViewer},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MapWhopRole(tc.profile); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}
