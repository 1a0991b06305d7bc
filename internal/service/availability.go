package service

import (
	"context"
	"time"

	"github.com/iliyamo/space-reservation/internal/model"
)

// CheckInWindow is how far around a reservation's start time a QR
// check-in is accepted, and equally how long past the start the no-show
// sweeper waits before resolving an unattended reservation. The two
// uses deliberately share one constant.
const CheckInWindow = 30 * time.Minute

// Availability decides whether a requested interval may be booked on a
// space, given the space's weekly operating windows and the other
// reservations already holding slots.
type Availability struct {
	reservations ReservationStore
}

// NewAvailability constructs the validator over a reservation store.
func NewAvailability(reservations ReservationStore) *Availability {
	if reservations == nil {
		panic("nil ReservationStore passed to NewAvailability")
	}
	return &Availability{reservations: reservations}
}

// IsAvailable is the boolean form of AssertAvailable. Rule violations
// come back as (false, nil); malformed intervals and store failures are
// returned as errors.
func (a *Availability) IsAvailable(ctx context.Context, space *model.Space, start, end time.Time, excludeID uint64) (bool, error) {
	err := a.AssertAvailable(ctx, space, start, end, excludeID)
	if err == nil {
		return true, nil
	}
	if IsRule(err) {
		return false, nil
	}
	return false, err
}

// AssertAvailable checks, in order: time-range sanity, space usability,
// operating-window containment, the space's maximum duration, and
// overlap with other slot-holding reservations. Sanity violations are
// validation errors; everything else surfaces as a business-rule error
// naming the failed check. excludeID skips the reservation being
// edited during an update and is ignored when zero.
func (a *Availability) AssertAvailable(ctx context.Context, space *model.Space, start, end time.Time, excludeID uint64) error {
	if start.IsZero() || end.IsZero() {
		return Validationf("start and end times are required")
	}
	if !end.After(start) {
		return Validationf("end time must be after start time")
	}
	if space == nil || !space.Usable() {
		return Rulef("space is not available")
	}
	if len(space.Windows) > 0 && !insideOperatingHours(space.Windows, start, end) {
		return Rulef("requested time is outside the space's operating hours")
	}
	if space.MaxDurationMins != nil {
		if minutes := int(end.Sub(start) / time.Minute); minutes > *space.MaxDurationMins {
			return Rulef("reservation exceeds the maximum duration of %d minutes", *space.MaxDurationMins)
		}
	}
	others, err := a.reservations.ListBlockingBySpace(ctx, space.ID)
	if err != nil {
		return err
	}
	for _, r := range others {
		if excludeID != 0 && r.ID == excludeID {
			continue
		}
		// Rows with a missing endpoint cannot define an interval and
		// never count as conflicts.
		if r.StartsAt.IsZero() || r.EndsAt.IsZero() {
			continue
		}
		// Strict open-interval overlap: back-to-back bookings sharing
		// an endpoint are allowed.
		if r.StartsAt.Before(end) && r.EndsAt.After(start) {
			return Rulef("the requested time is already reserved")
		}
	}
	return nil
}

// insideOperatingHours reports whether some window fully contains the
// interval. Containment requires a single window on the start date's
// weekday; intervals crossing midnight never qualify.
func insideOperatingHours(windows []model.OperatingWindow, start, end time.Time) bool {
	for _, w := range windows {
		if w.Covers(start, end) {
			return true
		}
	}
	return false
}
