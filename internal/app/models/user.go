package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Roles form a closed set. Reps create orders and collections, admins manage
// reps and see team dashboards, superadmins manage everything.
const (
	RoleRep        = "rep"
	RoleAdmin      = "admin"
	RoleSuperadmin = "superadmin"
)

// ValidRole reports whether role belongs to the closed role set.
func ValidRole(role string) bool {
	switch role {
	case RoleRep, RoleAdmin, RoleSuperadmin:
		return true
	}
	return false
}

// User is the public identity record returned by the API. The password hash
// never leaves UserAuth.
type User struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Phone     string     `json:"phone,omitempty"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// UserAuth carries the credential fields needed for login and password
// verification. Internal only.
type UserAuth struct {
	ID        uuid.UUID
	Email     string
	Role      string
	FirstName string
	LastName  string
	Password  string // bcrypt hash
	IsActive  bool
	CreatedAt time.Time
}

// Claims are the access-token claims. The client decodes these without
// verifying the signature; the server always verifies.
type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	Name      string `json:"name,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	jwt.RegisteredClaims
}

// UserFilter narrows user listings.
type UserFilter struct {
	Role     string
	IsActive *bool
	Search   string
	Page     int
	PerPage  int
}
