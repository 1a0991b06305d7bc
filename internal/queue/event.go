// Package queue defines the message payloads exchanged over the broker
// plus the publisher and background consumer that move them. Queues are
// durable and messages persistent so notifications survive broker
// restarts.
package queue

// Queue names for the reservation lifecycle events.
const (
	QueueReservationCreated  = "reservation.created"
	QueueReservationApproved = "reservation.approved"
	QueueReservationCanceled = "reservation.canceled"
)

// ReservationEvent is published on every notified lifecycle transition.
// It carries enough information for downstream consumers to log, email
// or feed analytics without querying the primary database.
type ReservationEvent struct {
	ReservationID uint64  `json:"reservation_id"`
	UserID        uint64  `json:"user_id"`
	SpaceID       uint64  `json:"space_id"`
	Status        string  `json:"status"`
	QRCode        string  `json:"qr_code"`
	StartsAt      string  `json:"starts_at"`
	EndsAt        string  `json:"ends_at"`
	CancelReason  *string `json:"cancel_reason,omitempty"`
	OccurredAt    string  `json:"occurred_at"`
}
