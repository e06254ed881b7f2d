package authz

import (
	"testing"

	"github.com/gdg-garage/vegfest-api/internal/models"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name  string
		user  models.User
		extra Capability
		can   []Capability
		not   []Capability
	}{
		{
			name: "applicant",
			user: models.User{Role: models.RoleUser},
			can:  []Capability{EditOwnRegistration},
			not:  []Capability{ReviewRegistrations, VoteRegistrations, ManageUsers},
		},
		{
			name: "admin without approver flag",
			user: models.User{Role: models.RoleAdmin},
			can:  []Capability{EditOwnRegistration, ReviewRegistrations},
			not:  []Capability{VoteRegistrations, ManageUsers},
		},
		{
			name: "approving admin",
			user: models.User{Role: models.RoleAdmin, Approver: true},
			can:  []Capability{ReviewRegistrations, VoteRegistrations},
			not:  []Capability{ManageUsers},
		},
		{
			name: "approver flag alone grants nothing",
			user: models.User{Role: models.RoleUser, Approver: true},
			not:  []Capability{ReviewRegistrations, VoteRegistrations},
		},
		{
			name: "super admin",
			user: models.User{Role: models.RoleSuperAdmin},
			can:  []Capability{ReviewRegistrations, VoteRegistrations, ManageUsers},
		},
		{
			name:  "discord approver role",
			user:  models.User{Role: models.RoleUser},
			extra: ReviewRegistrations | VoteRegistrations,
			can:   []Capability{ReviewRegistrations, VoteRegistrations},
			not:   []Capability{ManageUsers},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Resolve(tt.user, tt.extra)
			for _, c := range tt.can {
				assert.True(t, p.Can(c), "expected %s", c)
				assert.NoError(t, p.Require(c))
			}
			for _, c := range tt.not {
				assert.False(t, p.Can(c), "unexpected %s", c)
				assert.ErrorIs(t, p.Require(c), ErrForbidden)
			}
		})
	}
}

func TestPrincipal_CanNeedsEveryBit(t *testing.T) {
	p := NewPrincipal(1, "alice", models.RoleAdmin, ReviewRegistrations)
	assert.False(t, p.Can(ReviewRegistrations|VoteRegistrations))
	assert.False(t, p.Can(0))
}

func TestPrincipal_Capabilities(t *testing.T) {
	p := Resolve(models.User{Model: gorm.Model{ID: 3}, Username: "carol", Role: models.RoleSuperAdmin}, 0)
	assert.Equal(t, uint(3), p.UserID)
	assert.Equal(t, "carol", p.DisplayName)
	assert.Equal(t, []string{
		"edit_own_registration",
		"review_registrations",
		"vote_registrations",
		"manage_users",
	}, p.Capabilities())

	assert.Equal(t, "review_registrations|vote_registrations", (ReviewRegistrations | VoteRegistrations).String())
	assert.Equal(t, "none", Capability(0).String())
}
