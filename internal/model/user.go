package model

import "time"

// Roles recognised by the service. Citizens book spaces for
// themselves; staff manage spaces and resolve reservations.
const (
	RoleCitizen = "CITIZEN"
	RoleStaff   = "STAFF"
)

// User mirrors the 'users' table.
type User struct {
	ID           uint64
	Email        string
	FullName     string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
