// Package model defines the data structures used throughout the application.
package model

import "time"

// Role is the privilege level of a user account.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// User represents a registered account.
//
// There is no password. Users sign in by redeeming a confirmation code that
// was mailed to their address, so the only credential stored on the row is the
// bcrypt hash of the outstanding code and its expiry. Both are tagged json:"-"
// and never leave the process.
//
// WHY IS ID HIDDEN?
// Users are addressed by username in every URL (/users/{username}). The
// numeric ID is the foreign key for reviews and comments and the JWT subject,
// but clients never need it.
type User struct {
	ID          int64     `json:"-"`
	Username    string    `json:"username"`
	Email       string    `json:"email"` // always stored lower-case
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Bio         string    `json:"bio"`
	Role        Role      `json:"role"`
	IsSuperuser bool      `json:"-"`
	DateJoined  time.Time `json:"-"`

	ConfirmationCodeHash  string     `json:"-"`
	ConfirmationExpiresAt *time.Time `json:"-"`
}

// IsModerator reports whether the user holds the moderator role.
func (u *User) IsModerator() bool {
	return u != nil && u.Role == RoleModerator
}

// IsAdmin reports whether the user holds the admin role or the superuser flag.
func (u *User) IsAdmin() bool {
	return u != nil && (u.Role == RoleAdmin || u.IsSuperuser)
}
