package model

import "errors"

// Sentinel errors shared by the repository and service layers. Keeping
// them on the entity package lets both sides compare with errors.Is
// without importing each other.
var (
	ErrSpaceNotFound       = errors.New("space not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrSettingNotFound     = errors.New("setting not found")

	ErrQRCodeExists   = errors.New("qr code already in use")
	ErrAttendeeExists = errors.New("attendee already checked in")
)
