// Package auth verifies bearer tokens and answers role questions.
package auth

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/couchcryptid/turbine-dashboard/internal/domain"
)

// Role is a user role carried in the token's roles claim.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleOperator   Role = "operator"
	RoleTechnician Role = "technician"
	RoleViewer     Role = "viewer"
)

// KnownRoles lists every role the dashboard understands.
var KnownRoles = []Role{RoleAdmin, RoleManager, RoleOperator, RoleTechnician, RoleViewer}

// Role groups for the guarded operations.
var (
	EditRoles         = []Role{RoleAdmin, RoleManager, RoleOperator, RoleTechnician}
	DeleteRoles       = []Role{RoleAdmin, RoleManager}
	TurbineWriteRoles = []Role{RoleAdmin, RoleTechnician}
	UserAdminRoles    = []Role{RoleAdmin, RoleManager}
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("insufficient role")
)

// Principal is the authenticated caller.
type Principal struct {
	Subject string `json:"sub"`
	Roles   []Role `json:"roles"`
}

// Authenticated reports whether the principal came from a verified token.
func (p Principal) Authenticated() bool {
	return p.Subject != ""
}

// HasRole reports whether p holds any of roles.
func (p Principal) HasRole(roles ...Role) bool {
	for _, r := range p.Roles {
		if slices.Contains(roles, r) {
			return true
		}
	}
	return false
}

// CanEdit reports whether p may edit turbines and work orders.
func (p Principal) CanEdit() bool { return p.HasRole(EditRoles...) }

// CanDelete reports whether p may delete turbines.
func (p Principal) CanDelete() bool { return p.HasRole(DeleteRoles...) }

// IsKnownRole reports whether s names a role in KnownRoles.
func IsKnownRole(s string) bool {
	return slices.Contains(KnownRoles, Role(s))
}

// RoleUpdate replaces a user's roles.
type RoleUpdate struct {
	UserID string   `json:"userId"`
	Roles  []string `json:"roles"`
}

// ValidateRoleUpdate checks that actor may apply u. Only admins may change
// roles, every role must be known and an admin cannot drop their own admin
// role. It returns ErrForbidden or domain.ValidationErrors.
func ValidateRoleUpdate(actor Principal, u RoleUpdate) error {
	if !actor.HasRole(RoleAdmin) {
		return fmt.Errorf("role modifications require admin: %w", ErrForbidden)
	}
	if u.UserID == "" || u.Roles == nil {
		return domain.ValidationErrors{{Field: "userId", Message: "userId and roles array are required"}}
	}

	var invalid []string
	for _, r := range u.Roles {
		if !IsKnownRole(r) {
			invalid = append(invalid, r)
		}
	}
	if len(invalid) > 0 {
		return domain.ValidationErrors{{Field: "roles", Message: "invalid roles: " + strings.Join(invalid, ", ")}}
	}
	if u.UserID == actor.Subject && !slices.Contains(u.Roles, string(RoleAdmin)) {
		return domain.ValidationErrors{{Field: "roles", Message: "cannot remove your own admin role"}}
	}
	return nil
}
