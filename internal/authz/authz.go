// Package authz resolves a signed-in user into the set of things they may do.
// Handlers and services check capabilities, never role strings.
package authz

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gdg-garage/vegfest-api/internal/models"
)

var ErrForbidden = errors.New("forbidden")

type Capability uint8

const (
	EditOwnRegistration Capability = 1 << iota
	ReviewRegistrations
	VoteRegistrations
	ManageUsers
)

var capabilityNames = []struct {
	cap  Capability
	name string
}{
	{EditOwnRegistration, "edit_own_registration"},
	{ReviewRegistrations, "review_registrations"},
	{VoteRegistrations, "vote_registrations"},
	{ManageUsers, "manage_users"},
}

func (c Capability) String() string {
	var names []string
	for _, n := range capabilityNames {
		if c&n.cap != 0 {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Principal is the acting user for one request.
type Principal struct {
	UserID      uint
	DisplayName string
	Role        models.Role
	caps        Capability
}

func NewPrincipal(userID uint, displayName string, role models.Role, caps Capability) Principal {
	return Principal{UserID: userID, DisplayName: displayName, Role: role, caps: caps}
}

// Resolve derives capabilities from the stored user. extra carries grants
// from outside the database, such as a Discord approver role.
func Resolve(u models.User, extra Capability) Principal {
	caps := EditOwnRegistration
	switch u.Role {
	case models.RoleAdmin:
		caps |= ReviewRegistrations
		if u.Approver {
			caps |= VoteRegistrations
		}
	case models.RoleSuperAdmin:
		caps |= ReviewRegistrations | VoteRegistrations | ManageUsers
	}
	caps |= extra
	return NewPrincipal(u.ID, u.DisplayName(), u.Role, caps)
}

func (p Principal) Can(c Capability) bool {
	return c != 0 && p.caps&c == c
}

func (p Principal) Require(c Capability) error {
	if !p.Can(c) {
		return fmt.Errorf("%w: %s required", ErrForbidden, c)
	}
	return nil
}

// Capabilities lists granted capability names, for the /me response.
func (p Principal) Capabilities() []string {
	out := []string{}
	for _, n := range capabilityNames {
		if p.caps&n.cap != 0 {
			out = append(out, n.name)
		}
	}
	return out
}
