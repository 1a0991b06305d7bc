package service

import (
	"context"
	"time"

	"github.com/iliyamo/space-reservation/internal/model"
)

// ReservationStore is the persistence contract the core depends on.
// Implementations must hide soft-deleted rows from every read and
// return model.ErrReservationNotFound when a lookup misses.
type ReservationStore interface {
	// ByID returns a reservation with its attendees loaded.
	ByID(ctx context.Context, id uint64) (*model.Reservation, error)
	Create(ctx context.Context, r *model.Reservation) error
	Update(ctx context.Context, r *model.Reservation) error
	// ListBlockingBySpace returns the non-deleted reservations for a
	// space whose status still occupies the slot (not CANCELED, not
	// NO_SHOW). Used by the availability validator.
	ListBlockingBySpace(ctx context.Context, spaceID uint64) ([]*model.Reservation, error)
	// ListUnresolvedBefore returns non-deleted PENDING or CONFIRMED
	// reservations whose start time is before the cutoff. Used by the
	// no-show sweeper.
	ListUnresolvedBefore(ctx context.Context, cutoff time.Time) ([]*model.Reservation, error)
	ListByUser(ctx context.Context, userID uint64) ([]*model.Reservation, error)
	ListAll(ctx context.Context) ([]*model.Reservation, error)
	// QRCodeInUse reports whether a non-deleted reservation other than
	// excludeID already carries the code.
	QRCodeInUse(ctx context.Context, code string, excludeID uint64) (bool, error)
	AddAttendee(ctx context.Context, a *model.Attendee) error
	SoftDelete(ctx context.Context, id uint64, at time.Time) error
	HardDelete(ctx context.Context, id uint64) error
}

// SpaceStore looks up spaces together with their operating windows.
type SpaceStore interface {
	ByID(ctx context.Context, id uint64) (*model.Space, error)
}

// UserStore looks up users referenced by reservations.
type UserStore interface {
	ByID(ctx context.Context, id uint64) (*model.User, error)
}

// SettingStore resolves configuration values by key, returning
// model.ErrSettingNotFound for absent keys so callers can fall back to
// defaults.
type SettingStore interface {
	Value(ctx context.Context, key string) (string, error)
}

// Notifier is the outbound notification sink. It is an observer, not a
// participant: the engine logs and swallows any error it returns so a
// broken broker never fails a lifecycle operation.
type Notifier interface {
	ReservationCreated(ctx context.Context, r *model.Reservation) error
	ReservationApproved(ctx context.Context, r *model.Reservation) error
	ReservationCanceled(ctx context.Context, r *model.Reservation) error
}
