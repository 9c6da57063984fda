package auth

// Package auth contains domain-level types for authentication, sessions and route access.
// It is pure and free of framework/adapter concerns.

import (
	"fmt"
	"strings"
	"time"
)

// Role represents an application's authorization role.
// Keep string form for easy persistence in profile documents.
// The set is closed: ParseRole rejects anything outside the constants below.
type Role string

const (
	RoleCitizen      Role = "citizen"
	RoleStationAdmin Role = "station_admin"
	RoleOfficial     Role = "official"
)

// Roles returns every role in privilege order.
func Roles() []Role {
	return []Role{RoleCitizen, RoleStationAdmin, RoleOfficial}
}

// ParseRole converts a stored role string into a Role.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.TrimSpace(strings.ToLower(s))); r {
	case RoleCitizen, RoleStationAdmin, RoleOfficial:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Rank orders roles for namespace containment: citizen < station_admin < official.
// Unknown roles rank below every known role.
func (r Role) Rank() int {
	switch r {
	case RoleCitizen:
		return 0
	case RoleStationAdmin:
		return 1
	case RoleOfficial:
		return 2
	default:
		return -1
	}
}

// Home returns the canonical landing path for the role.
func (r Role) Home() string {
	switch r {
	case RoleCitizen:
		return PathCitizenHome
	case RoleStationAdmin:
		return PathStationAdminHome
	case RoleOfficial:
		return PathOfficialHome
	default:
		return PathLogin
	}
}

// RequiresStation reports whether principals with this role must carry a station assignment.
func (r Role) RequiresStation() bool {
	switch r {
	case RoleStationAdmin, RoleOfficial:
		return true
	default:
		return false
	}
}

// Status is the lifecycle state of a Session.
type Status string

const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
)

// Credential is the opaque handle an identity provider hands out for a signed-in account.
// A nil *Credential means signed out.
type Credential struct {
	UID       string    `json:"uid"`
	Email     string    `json:"email"`
	Token     string    `json:"-"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Account is what an account backend reports after a successful check.
type Account struct {
	UID   string
	Email string
}

// Session is a read-only snapshot of the resolver state.
// Invariant: Credential == nil implies Principal == nil.
type Session struct {
	Status     Status
	Credential *Credential
	Principal  *Principal
}

// IsReady reports whether the session has finished resolving.
func (s Session) IsReady() bool { return s.Status == StatusReady }

// IsAuthenticated reports whether the session carries a usable principal.
func (s Session) IsAuthenticated() bool { return s.IsReady() && s.Principal != nil }
