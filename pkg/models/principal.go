package models

import "github.com/google/uuid"

// Role is the marketplace side a principal acts for.
type Role string

const (
	RoleSeeker   Role = "seeker"
	RoleEmployer Role = "employer"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSeeker, RoleEmployer, RoleAdmin:
		return true
	}
	return false
}

// Principal is the authenticated actor on whose behalf an operation runs.
type Principal struct {
	ID   uuid.UUID `json:"id"`
	Role Role      `json:"role"`
}
