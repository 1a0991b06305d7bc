// Package repository holds the MySQL data access layer. This file
// defines error values reused across repositories so handlers can
// distinguish failure scenarios: ErrForbidden marks an operation on a
// resource the caller does not own, ErrConflict marks writes blocked
// by dependent records (e.g. deleting a space that still has active
// reservations).
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers translate this into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot proceed
// because of conflicting state. Handlers translate this into HTTP 409.
var ErrConflict = errors.New("conflict")
