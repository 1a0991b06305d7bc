package model

import "time"

// ReservationStatus enumerates the lifecycle states of a reservation.
// PENDING and CONFIRMED are the only states still awaiting resolution;
// CANCELED, NO_SHOW and COMPLETED are terminal. CHECKED_IN is resolved
// but not terminal: a checked-in reservation may still be completed or,
// while it has not started, canceled.
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "PENDING"
	StatusConfirmed ReservationStatus = "CONFIRMED"
	StatusCanceled  ReservationStatus = "CANCELED"
	StatusCheckedIn ReservationStatus = "CHECKED_IN"
	StatusNoShow    ReservationStatus = "NO_SHOW"
	StatusCompleted ReservationStatus = "COMPLETED"
)

// Valid reports whether s is one of the known status values.
func (s ReservationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCanceled, StatusCheckedIn, StatusNoShow, StatusCompleted:
		return true
	}
	return false
}

// Final reports whether s is a terminal state. Final reservations accept
// no further normal transitions.
func (s ReservationStatus) Final() bool {
	return s == StatusCanceled || s == StatusNoShow || s == StatusCompleted
}

// Unresolved reports whether s is still awaiting resolution. Only
// unresolved reservations are candidates for the no-show sweep.
func (s ReservationStatus) Unresolved() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Reservation is a booking of a space for a time interval by a user.
// StartsAt and EndsAt are UTC; a zero value means the timestamp is
// missing (carried over from imports of legacy data) and such intervals
// never count as conflicts. The QR code string identifies the
// reservation at check-in and is unique among non-deleted rows.
type Reservation struct {
	ID                uint64
	UserID            uint64
	SpaceID           uint64
	StartsAt          time.Time
	EndsAt            time.Time
	Status            ReservationStatus
	QRCode            string
	ApproverID        *uint64    // set on approval, or pre-set when the space needs none
	CancelReason      *string    // set only on cancellation
	CanceledAt        *time.Time // set only on cancellation
	CheckedInAt       *time.Time // set on the first successful check-in
	ExpectedAttendees int
	Notes             string
	Attendees         []Attendee
	DeletedAt         *time.Time // soft-deletion marker; deleted rows are invisible to reads
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Attendee is one person registered at check-in, keyed by an external
// identifier that is unique within the reservation.
type Attendee struct {
	ID            uint64
	ReservationID uint64
	ExternalID    string
	FirstName     string
	LastName      string
	CheckedInAt   time.Time
}

// BlocksInterval reports whether the reservation participates in
// overlap checks. Canceled and no-show reservations free their slot;
// everything else keeps it occupied.
func (r *Reservation) BlocksInterval() bool {
	return r.Status != StatusCanceled && r.Status != StatusNoShow
}

// HasAttendee reports whether an attendee with the given external id is
// already registered on this reservation.
func (r *Reservation) HasAttendee(externalID string) bool {
	for _, a := range r.Attendees {
		if a.ExternalID == externalID {
			return true
		}
	}
	return false
}
