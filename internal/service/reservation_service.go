package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/space-reservation/internal/model"
	"github.com/iliyamo/space-reservation/internal/utils"
)

// Actor identifies who is invoking an operation and with which role.
// Every mutating method checks the actor's capability at the top of the
// function body, independent of the transport that carried the request.
type Actor struct {
	UserID uint64
	Role   string
}

// Staff reports whether the actor holds the staff role.
func (a Actor) Staff() bool { return a.Role == model.RoleStaff }

// canTouch reports whether the actor may operate on a reservation owned
// by ownerID: staff may touch anything, citizens only their own.
func (a Actor) canTouch(ownerID uint64) bool {
	return a.Staff() || a.UserID == ownerID
}

// ReservationService is the lifecycle engine. It owns the reservation
// state machine, consults the availability validator on create/update
// and the cancellation policy on cancel, and emits notification events
// as side effects. Each operation is one read-decide-write sequence
// against the shared store; there is no cross-request serialization,
// so two concurrent overlapping creates can both pass validation (an
// accepted race documented in the design notes).
type ReservationService struct {
	reservations ReservationStore
	spaces       SpaceStore
	users        UserStore
	availability *Availability
	cancellation *CancellationPolicy
	notifier     Notifier
	clock        Clock
}

// NewReservationService wires the engine. Notifier may be nil, in which
// case no events are emitted.
func NewReservationService(
	reservations ReservationStore,
	spaces SpaceStore,
	users UserStore,
	availability *Availability,
	cancellation *CancellationPolicy,
	notifier Notifier,
	clock Clock,
) *ReservationService {
	if reservations == nil || spaces == nil || users == nil || availability == nil || cancellation == nil || clock == nil {
		panic("nil dependency passed to NewReservationService")
	}
	return &ReservationService{
		reservations: reservations,
		spaces:       spaces,
		users:        users,
		availability: availability,
		cancellation: cancellation,
		notifier:     notifier,
		clock:        clock,
	}
}

// CancellationPolicy exposes the engine's policy so the API layer can
// run the full threshold check before calling Cancel.
func (s *ReservationService) CancellationPolicy() *CancellationPolicy { return s.cancellation }

// CreateInput carries everything needed to create a reservation.
// Status may request PENDING or CONFIRMED; spaces that require approval
// always start PENDING regardless. A blank QRCode is replaced with a
// generated one.
type CreateInput struct {
	UserID            uint64
	SpaceID           uint64
	StartsAt          time.Time
	EndsAt            time.Time
	Status            model.ReservationStatus
	QRCode            string
	ApproverID        *uint64
	ExpectedAttendees int
	Notes             string
}

// Create validates the request against the target user, space and
// availability rules, decides the initial status, and persists the
// reservation. Emits a "reservation created" notification.
func (s *ReservationService) Create(ctx context.Context, actor Actor, in CreateInput) (*model.Reservation, error) {
	if !actor.canTouch(in.UserID) {
		return nil, ErrForbidden
	}
	if in.UserID == 0 || in.SpaceID == 0 {
		return nil, Validationf("user and space identifiers are required")
	}
	if _, err := s.users.ByID(ctx, in.UserID); err != nil {
		return nil, err
	}
	space, err := s.spaces.ByID(ctx, in.SpaceID)
	if err != nil {
		return nil, err
	}
	if err := s.availability.AssertAvailable(ctx, space, in.StartsAt, in.EndsAt, 0); err != nil {
		return nil, err
	}

	status := in.Status
	if status != "" && status != model.StatusPending && status != model.StatusConfirmed {
		return nil, Validationf("status %s cannot be requested at creation", status)
	}
	switch {
	case space.RequiresApproval:
		status = model.StatusPending
	case status == "":
		status = model.StatusConfirmed
	}
	if in.ApproverID != nil && space.RequiresApproval {
		return nil, Rulef("an approver cannot be pre-assigned on a space that requires approval")
	}

	qr := strings.TrimSpace(in.QRCode)
	if qr == "" {
		qr = utils.NewQRCode()
	}
	inUse, err := s.reservations.QRCodeInUse(ctx, qr, 0)
	if err != nil {
		return nil, err
	}
	if inUse {
		return nil, Rulef("qr code is already in use by another reservation")
	}

	now := s.clock.Now()
	r := &model.Reservation{
		UserID:            in.UserID,
		SpaceID:           in.SpaceID,
		StartsAt:          in.StartsAt,
		EndsAt:            in.EndsAt,
		Status:            status,
		QRCode:            qr,
		ApproverID:        in.ApproverID,
		ExpectedAttendees: in.ExpectedAttendees,
		Notes:             in.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.reservations.Create(ctx, r); err != nil {
		return nil, err
	}
	s.notify(ctx, "created", r, func(n Notifier) error { return n.ReservationCreated(ctx, r) })
	return r, nil
}

// UpdateInput lists the editable fields; nil pointers leave the current
// value untouched. Status is deliberately absent: updates never change
// status by themselves.
type UpdateInput struct {
	SpaceID           *uint64
	StartsAt          *time.Time
	EndsAt            *time.Time
	QRCode            *string
	ApproverID        *uint64
	ExpectedAttendees *int
	Notes             *string
}

// Update re-validates availability against the (possibly new) space and
// interval, excluding the reservation itself from the overlap check,
// and re-validates QR uniqueness when a new code is supplied.
func (s *ReservationService) Update(ctx context.Context, actor Actor, id uint64, in UpdateInput) (*model.Reservation, error) {
	r, err := s.reservations.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canTouch(r.UserID) {
		return nil, ErrForbidden
	}

	spaceID := r.SpaceID
	if in.SpaceID != nil {
		spaceID = *in.SpaceID
	}
	space, err := s.spaces.ByID(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	start, end := r.StartsAt, r.EndsAt
	if in.StartsAt != nil {
		start = *in.StartsAt
	}
	if in.EndsAt != nil {
		end = *in.EndsAt
	}
	if err := s.availability.AssertAvailable(ctx, space, start, end, r.ID); err != nil {
		return nil, err
	}
	if in.QRCode != nil {
		qr := strings.TrimSpace(*in.QRCode)
		if qr == "" {
			return nil, Validationf("qr code cannot be blank")
		}
		if qr != r.QRCode {
			inUse, err := s.reservations.QRCodeInUse(ctx, qr, r.ID)
			if err != nil {
				return nil, err
			}
			if inUse {
				return nil, Rulef("qr code is already in use by another reservation")
			}
		}
		r.QRCode = qr
	}

	r.SpaceID = spaceID
	r.StartsAt = start
	r.EndsAt = end
	if in.ApproverID != nil {
		r.ApproverID = in.ApproverID
	}
	if in.ExpectedAttendees != nil {
		r.ExpectedAttendees = *in.ExpectedAttendees
	}
	if in.Notes != nil {
		r.Notes = *in.Notes
	}
	r.UpdatedAt = s.clock.Now()
	if err := s.reservations.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Approve transitions PENDING to CONFIRMED and records the approving
// staff member. Emits a "reservation approved" notification.
func (s *ReservationService) Approve(ctx context.Context, actor Actor, id uint64) (*model.Reservation, error) {
	if !actor.Staff() {
		return nil, ErrForbidden
	}
	r, err := s.reservations.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status != model.StatusPending {
		return nil, Rulef("only pending reservations can be approved (current status %s)", r.Status)
	}
	approver := actor.UserID
	r.Status = model.StatusConfirmed
	r.ApproverID = &approver
	r.UpdatedAt = s.clock.Now()
	if err := s.reservations.Update(ctx, r); err != nil {
		return nil, err
	}
	s.notify(ctx, "approved", r, func(n Notifier) error { return n.ReservationApproved(ctx, r) })
	return r, nil
}

// Cancel transitions any non-final reservation to CANCELED, recording
// the reason and timestamp. Canceling an already-canceled reservation
// is an idempotent no-op. The full threshold policy is the API layer's
// concern; the engine only enforces that the reservation has not
// started yet. Emits a "reservation canceled" notification.
func (s *ReservationService) Cancel(ctx context.Context, actor Actor, id uint64, reason string) (*model.Reservation, error) {
	r, err := s.reservations.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canTouch(r.UserID) {
		return nil, ErrForbidden
	}
	if r.Status == model.StatusCanceled {
		return r, nil
	}
	if r.Status.Final() {
		return nil, Rulef("reservation is already resolved as %s", r.Status)
	}
	now := s.clock.Now()
	if !r.StartsAt.IsZero() && !r.StartsAt.After(now) {
		return nil, Rulef("reservation has already started and can no longer be canceled")
	}
	r.Status = model.StatusCanceled
	if reason = strings.TrimSpace(reason); reason != "" {
		r.CancelReason = &reason
	}
	r.CanceledAt = &now
	r.UpdatedAt = now
	if err := s.reservations.Update(ctx, r); err != nil {
		return nil, err
	}
	s.notify(ctx, "canceled", r, func(n Notifier) error { return n.ReservationCanceled(ctx, r) })
	return r, nil
}

// CheckInInput registers one attendee against the reservation's QR
// code. ExternalID must be unique within the reservation.
type CheckInInput struct {
	QRCode     string
	ExternalID string
	FirstName  string
	LastName   string
}

// CheckIn accepts attendee registrations while the reservation is
// CONFIRMED or already CHECKED_IN, the QR code matches, and "now" lies
// within the check-in window around the start time. The first accepted
// registration flips the status to CHECKED_IN; later ones only append
// attendees.
func (s *ReservationService) CheckIn(ctx context.Context, actor Actor, id uint64, in CheckInInput) (*model.Reservation, error) {
	r, err := s.reservations.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canTouch(r.UserID) {
		return nil, ErrForbidden
	}
	if r.Status != model.StatusConfirmed && r.Status != model.StatusCheckedIn {
		return nil, Rulef("reservation is not confirmed (current status %s)", r.Status)
	}
	if strings.TrimSpace(in.QRCode) != r.QRCode {
		return nil, Rulef("qr code does not match this reservation")
	}
	now := s.clock.Now()
	if now.Before(r.StartsAt.Add(-CheckInWindow)) {
		return nil, Rulef("qr code is not yet active: check-in opens %d minutes before start", int(CheckInWindow.Minutes()))
	}
	if now.After(r.StartsAt.Add(CheckInWindow)) {
		return nil, Rulef("qr code has expired: check-in closed %d minutes after start", int(CheckInWindow.Minutes()))
	}
	externalID := strings.TrimSpace(in.ExternalID)
	if externalID == "" {
		return nil, Validationf("attendee external id is required")
	}
	if r.HasAttendee(externalID) {
		return nil, Rulef("attendee %s is already checked in on this reservation", externalID)
	}
	attendee := &model.Attendee{
		ReservationID: r.ID,
		ExternalID:    externalID,
		FirstName:     strings.TrimSpace(in.FirstName),
		LastName:      strings.TrimSpace(in.LastName),
		CheckedInAt:   now,
	}
	if err := s.reservations.AddAttendee(ctx, attendee); err != nil {
		return nil, err
	}
	r.Attendees = append(r.Attendees, *attendee)
	if r.Status == model.StatusConfirmed {
		r.Status = model.StatusCheckedIn
		r.CheckedInAt = &now
	}
	r.UpdatedAt = now
	if err := s.reservations.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// MarkNoShow is the explicit staff action resolving a CONFIRMED
// reservation nobody checked into, once its start time has passed.
func (s *ReservationService) MarkNoShow(ctx context.Context, actor Actor, id uint64) (*model.Reservation, error) {
	if !actor.Staff() {
		return nil, ErrForbidden
	}
	r, err := s.reservations.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status != model.StatusConfirmed {
		return nil, Rulef("only confirmed reservations can be marked as no-show (current status %s)", r.Status)
	}
	if r.CheckedInAt != nil {
		return nil, Rulef("reservation has a recorded check-in")
	}
	now := s.clock.Now()
	if !r.StartsAt.Before(now) {
		return nil, Rulef("reservation has not started yet")
	}
	r.Status = model.StatusNoShow
	r.UpdatedAt = now
	if err := s.reservations.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Complete transitions a CHECKED_IN reservation to COMPLETED once its
// end time has passed. Staff only.
func (s *ReservationService) Complete(ctx context.Context, actor Actor, id uint64) (*model.Reservation, error) {
	if !actor.Staff() {
		return nil, ErrForbidden
	}
	r, err := s.reservations.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status != model.StatusCheckedIn {
		return nil, Rulef("only checked-in reservations can be completed (current status %s)", r.Status)
	}
	now := s.clock.Now()
	if r.EndsAt.IsZero() || !r.EndsAt.Before(now) {
		return nil, Rulef("reservation has not ended yet")
	}
	r.Status = model.StatusCompleted
	r.UpdatedAt = now
	if err := s.reservations.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// SoftDelete marks a deletion timestamp without removing the row. The
// reservation disappears from all subsequent reads; its status is left
// untouched.
func (s *ReservationService) SoftDelete(ctx context.Context, actor Actor, id uint64) error {
	r, err := s.reservations.ByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.canTouch(r.UserID) {
		return ErrForbidden
	}
	return s.reservations.SoftDelete(ctx, id, s.clock.Now())
}

// HardDelete permanently removes a reservation, permitted only once it
// has reached a resolved outcome (CHECKED_IN, NO_SHOW or CANCELED).
func (s *ReservationService) HardDelete(ctx context.Context, actor Actor, id uint64) error {
	if !actor.Staff() {
		return ErrForbidden
	}
	r, err := s.reservations.ByID(ctx, id)
	if err != nil {
		return err
	}
	switch r.Status {
	case model.StatusCheckedIn, model.StatusNoShow, model.StatusCanceled:
		return s.reservations.HardDelete(ctx, id)
	default:
		return Rulef("only resolved reservations can be permanently deleted (current status %s)", r.Status)
	}
}

// Get returns a reservation visible to the actor.
func (s *ReservationService) Get(ctx context.Context, actor Actor, id uint64) (*model.Reservation, error) {
	r, err := s.reservations.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canTouch(r.UserID) {
		return nil, ErrForbidden
	}
	return r, nil
}

// ListOwn returns the actor's reservations.
func (s *ReservationService) ListOwn(ctx context.Context, actor Actor) ([]*model.Reservation, error) {
	return s.reservations.ListByUser(ctx, actor.UserID)
}

// ListAll returns every reservation; staff only.
func (s *ReservationService) ListAll(ctx context.Context, actor Actor) ([]*model.Reservation, error) {
	if !actor.Staff() {
		return nil, ErrForbidden
	}
	return s.reservations.ListAll(ctx)
}

// notify runs a notifier call and logs any failure instead of
// propagating it; the sink observes the lifecycle, it does not take
// part in it.
func (s *ReservationService) notify(ctx context.Context, event string, r *model.Reservation, fn func(Notifier) error) {
	if s.notifier == nil {
		return
	}
	if err := fn(s.notifier); err != nil {
		logrus.WithError(err).Warnf("reservation %s notification failed for id=%d", event, r.ID)
	}
}
