package domain

import (
	"errors"
	"time"
)

// Role is the application role carried by an authenticated user.
type Role string

const (
	RoleSuperAdmin Role = "superadministrador"
	RoleAdmin      Role = "administrador"
	RoleOperator   Role = "maquinista"
	RoleGuest      Role = "invitado"
)

// Known reports whether r is one of the roles the backend can issue.
func (r Role) Known() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleOperator, RoleGuest:
		return true
	}
	return false
}

// User is the authenticated principal. Areas scopes administrators to the
// area ids they manage; Equipos scopes operators to the equipment ids they
// operate. Both are empty for roles they do not apply to.
type User struct {
	Username string
	Role     Role
	Areas    []int
	Equipos  []int
}

// Validate validates the user as part of a session. Returns an error
// describing the first validation failure.
func (u *User) Validate() error {
	if u.Username == "" {
		return errors.New("username is required")
	}
	if !u.Role.Known() {
		return errors.New("unknown role")
	}
	return nil
}

// Session is the authoritative record of an authenticated principal.
// RefreshToken is empty when the server issued none. ExpiresAt is nil when no
// expiration could be derived for the bearer token.
type Session struct {
	Token        string
	RefreshToken string
	ExpiresAt    *time.Time
	User         User
}

// Validate checks the structural invariants of a session: a non-empty bearer
// token and a valid user. It does not check expiration.
func (s *Session) Validate() error {
	if s.Token == "" {
		return errors.New("token is required")
	}
	return s.User.Validate()
}

// Expired reports whether the session's bearer token must no longer be used
// at the given instant. The skew window treats a session as expired slightly
// before its literal ExpiresAt to cover in-flight request time. A session
// without a known expiration never expires.
func (s *Session) Expired(now time.Time, skew time.Duration) bool {
	if s.ExpiresAt == nil {
		return false
	}
	return !now.Add(skew).Before(*s.ExpiresAt)
}
