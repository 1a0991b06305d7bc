package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/space-reservation/internal/model"
)

var (
	citizen      = Actor{UserID: 7, Role: model.RoleCitizen}
	otherCitizen = Actor{UserID: 9, Role: model.RoleCitizen}
	staff        = Actor{UserID: 2, Role: model.RoleStaff}
)

type engineFixture struct {
	store    *memReservations
	spaces   *memSpaces
	notifier *recordingNotifier
	svc      *ReservationService
}

// newEngine wires the lifecycle engine over in-memory stores with two
// spaces: space 1 is open Mondays 09:00-18:00, space 2 additionally
// requires approval.
func newEngine(now time.Time) *engineFixture {
	store := newMemReservations()
	spaces := &memSpaces{rows: map[uint64]*model.Space{
		1: testSpace(),
		2: {
			ID:               2,
			Name:             "Council Chamber",
			Capacity:         80,
			IsActive:         true,
			RequiresApproval: true,
			Windows: []model.OperatingWindow{
				{Weekday: time.Monday, OpensAt: "09:00", ClosesAt: "18:00"},
			},
		},
	}}
	users := &memUsers{rows: map[uint64]*model.User{
		citizen.UserID:      {ID: citizen.UserID, Email: "resident@example.org", Role: model.RoleCitizen},
		otherCitizen.UserID: {ID: otherCitizen.UserID, Email: "neighbor@example.org", Role: model.RoleCitizen},
		staff.UserID:        {ID: staff.UserID, Email: "clerk@example.org", Role: model.RoleStaff},
	}}
	notifier := &recordingNotifier{}
	clock := fixedClock{t: now}
	svc := NewReservationService(store, spaces, users,
		NewAvailability(store),
		NewCancellationPolicy(&memSettings{values: map[string]string{}}, clock),
		notifier, clock)
	return &engineFixture{store: store, spaces: spaces, notifier: notifier, svc: svc}
}

func (f *engineFixture) mustCreate(t *testing.T, actor Actor, in CreateInput) *model.Reservation {
	t.Helper()
	r, err := f.svc.Create(context.Background(), actor, in)
	require.NoError(t, err)
	return r
}

func baseInput(start, end time.Time) CreateInput {
	return CreateInput{
		UserID:   citizen.UserID,
		SpaceID:  1,
		StartsAt: start,
		EndsAt:   end,
	}
}

func TestCreateDefaultsToConfirmed(t *testing.T) {
	f := newEngine(at(monday, 8, 0))
	r := f.mustCreate(t, citizen, baseInput(at(monday, 10, 0), at(monday, 11, 0)))

	assert.Equal(t, model.StatusConfirmed, r.Status)
	assert.NotEmpty(t, r.QRCode, "blank qr code gets generated")
	assert.True(t, strings.HasPrefix(r.QRCode, "RSV-"))
	assert.Equal(t, []uint64{r.ID}, f.notifier.created)
}

func TestCreateApprovalSpaceForcesPending(t *testing.T) {
	f := newEngine(at(monday, 8, 0))
	in := baseInput(at(monday, 10, 0), at(monday, 11, 0))
	in.SpaceID = 2
	in.Status = model.StatusConfirmed // explicitly requested, still overridden

	r := f.mustCreate(t, citizen, in)
	assert.Equal(t, model.StatusPending, r.Status)
}

func TestCreateRejectsResolvedRequestedStatus(t *testing.T) {
	f := newEngine(at(monday, 8, 0))
	for _, status := range []model.ReservationStatus{model.StatusCanceled, model.StatusNoShow, model.StatusCheckedIn, model.StatusCompleted} {
		in := baseInput(at(monday, 10, 0), at(monday, 11, 0))
		in.Status = status
		_, err := f.svc.Create(context.Background(), citizen, in)
		assert.True(t, IsValidation(err), "status %s at creation, got %v", status, err)
	}
}

func TestCreateRejectsPreAssignedApproverOnApprovalSpace(t *testing.T) {
	f := newEngine(at(monday, 8, 0))
	approver := staff.UserID
	in := baseInput(at(monday, 10, 0), at(monday, 11, 0))
	in.SpaceID = 2
	in.ApproverID = &approver

	_, err := f.svc.Create(context.Background(), citizen, in)
	assert.True(t, IsRule(err))
}

func TestCreateRejectsDuplicateQRCode(t *testing.T) {
	f := newEngine(at(monday, 8, 0))
	in := baseInput(at(monday, 10, 0), at(monday, 11, 0))
	in.QRCode = "RSV-fixed"
	f.mustCreate(t, citizen, in)

	in2 := baseInput(at(monday, 14, 0), at(monday, 15, 0))
	in2.QRCode = "RSV-fixed"
	_, err := f.svc.Create(context.Background(), citizen, in2)
	assert.True(t, IsRule(err))
}

func TestCreateOwnership(t *testing.T) {
	f := newEngine(at(monday, 8, 0))

	in := baseInput(at(monday, 10, 0), at(monday, 11, 0))
	_, err := f.svc.Create(context.Background(), otherCitizen, in)
	assert.ErrorIs(t, err, ErrForbidden, "citizens cannot book for somebody else")

	// Staff may book on behalf of any user.
	in = baseInput(at(monday, 14, 0), at(monday, 15, 0))
	r := f.mustCreate(t, staff, in)
	assert.Equal(t, citizen.UserID, r.UserID)
}

func TestCreateUnknownReferences(t *testing.T) {
	f := newEngine(at(monday, 8, 0))

	in := baseInput(at(monday, 10, 0), at(monday, 11, 0))
	in.UserID = 999
	_, err := f.svc.Create(context.Background(), staff, in)
	assert.ErrorIs(t, err, model.ErrUserNotFound)

	in = baseInput(at(monday, 10, 0), at(monday, 11, 0))
	in.SpaceID = 999
	_, err = f.svc.Create(context.Background(), citizen, in)
	assert.ErrorIs(t, err, model.ErrSpaceNotFound)
}

func TestUpdateRevalidatesAvailability(t *testing.T) {
	f := newEngine(at(monday, 8, 0))
	first := f.mustCreate(t, citizen, baseInput(at(monday, 10, 0), at(monday, 11, 0)))
	second := f.mustCreate(t, citizen, baseInput(at(monday, 12, 0), at(monday, 13, 0)))

	// Stretching into the other reservation is rejected.
	newEnd := at(monday, 12, 30)
	_, err := f.svc.Update(context.Background(), citizen, first.ID, UpdateInput{EndsAt: &newEnd})
	assert.True(t, IsRule(err))

	// Moving within free time succeeds, overlap with itself ignored.
	newStart, newEnd2 := at(monday, 10, 30), at(monday, 11, 30)
	r, err := f.svc.Update(context.Background(), citizen, first.ID, UpdateInput{StartsAt: &newStart, EndsAt: &newEnd2})
	require.NoError(t, err)
	assert.Equal(t, newStart, r.StartsAt)
	assert.Equal(t, newEnd2, r.EndsAt)

	// The second reservation is untouched.
	got, err := f.svc.Get(context.Background(), citizen, second.ID)
	require.NoError(t, err)
	assert.Equal(t, at(monday, 12, 0), got.StartsAt)
}

func TestUpdateQRCode(t *testing.T) {
	f := newEngine(at(monday, 8, 0))
	in := baseInput(at(monday, 10, 0), at(monday, 11, 0))
	in.QRCode = "RSV-one"
	first := f.mustCreate(t, citizen, in)

	in2 := baseInput(at(monday, 12, 0), at(monday, 13, 0))
	in2.QRCode = "RSV-two"
	second := f.mustCreate(t, citizen, in2)

	taken := "RSV-one"
	_, err := f.svc.Update(context.Background(), citizen, second.ID, UpdateInput{QRCode: &taken})
	assert.True(t, IsRule(err))

	blank := "  "
	_, err = f.svc.Update(context.Background(), citizen, second.ID, UpdateInput{QRCode: &blank})
	assert.True(t, IsValidation(err))

	// Re-submitting its own code is a no-op, not a conflict.
	own := "RSV-one"
	_, err = f.svc.Update(context.Background(), citizen, first.ID, UpdateInput{QRCode: &own})
	assert.NoError(t, err)
}

func TestApprove(t *testing.T) {
	f := newEngine(at(monday, 8, 0))
	in := baseInput(at(monday, 10, 0), at(monday, 11, 0))
	in.SpaceID = 2
	r := f.mustCreate(t, citizen, in)
	require.Equal(t, model.StatusPending, r.Status)

	_, err := f.svc.Approve(context.Background(), citizen, r.ID)
	assert.ErrorIs(t, err, ErrForbidden, "citizens cannot approve")

	approved, err := f.svc.Approve(context.Background(), staff, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, approved.Status)
	require.NotNil(t, approved.ApproverID)
	assert.Equal(t, staff.UserID, *approved.ApproverID)
	assert.Equal(t, []uint64{r.ID}, f.notifier.approved)

	_, err = f.svc.Approve(context.Background(), staff, r.ID)
	assert.True(t, IsRule(err), "approving twice")
}

func TestCancel(t *testing.T) {
	f := newEngine(at(monday, 8, 0))
	r := f.mustCreate(t, citizen, baseInput(at(monday, 10, 0), at(monday, 11, 0)))

	_, err := f.svc.Cancel(context.Background(), otherCitizen, r.ID, "")
	assert.ErrorIs(t, err, ErrForbidden)

	canceled, err := f.svc.Cancel(context.Background(), citizen, r.ID, "weather")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCanceled, canceled.Status)
	require.NotNil(t, canceled.CancelReason)
	assert.Equal(t, "weather", *canceled.CancelReason)
	require.NotNil(t, canceled.CanceledAt)
	assert.Equal(t, at(monday, 8, 0), *canceled.CanceledAt)
	assert.Equal(t, []uint64{r.ID}, f.notifier.canceled)

	// Canceling again is an idempotent no-op with no extra event.
	again, err := f.svc.Cancel(context.Background(), citizen, r.ID, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, "weather", *again.CancelReason)
	assert.Len(t, f.notifier.canceled, 1)
}

func TestCancelRejectsStartedAndFinal(t *testing.T) {
	f := newEngine(at(monday, 12, 30))
	started := f.store.add(&model.Reservation{
		UserID:   citizen.UserID,
		SpaceID:  1,
		Status:   model.StatusConfirmed,
		StartsAt: at(monday, 12, 0),
		EndsAt:   at(monday, 13, 0),
	})
	_, err := f.svc.Cancel(context.Background(), citizen, started.ID, "")
	assert.True(t, IsRule(err), "already started")

	for _, status := range []model.ReservationStatus{model.StatusNoShow, model.StatusCompleted} {
		r := f.store.add(&model.Reservation{
			UserID:   citizen.UserID,
			SpaceID:  1,
			Status:   status,
			StartsAt: at(monday, 15, 0),
			EndsAt:   at(monday, 16, 0),
		})
		_, err := f.svc.Cancel(context.Background(), citizen, r.ID, "")
		assert.True(t, IsRule(err), "final status %s", status)
	}
}

func TestCheckInWindowBounds(t *testing.T) {
	start := at(monday, 12, 0)
	mk := func(now time.Time) (*engineFixture, *model.Reservation) {
		f := newEngine(now)
		r := f.store.add(&model.Reservation{
			UserID:   citizen.UserID,
			SpaceID:  1,
			Status:   model.StatusConfirmed,
			StartsAt: start,
			EndsAt:   at(monday, 14, 0),
			QRCode:   "RSV-gate",
		})
		return f, r
	}
	in := CheckInInput{QRCode: "RSV-gate", ExternalID: "P-100"}

	tests := []struct {
		name string
		now  time.Time
		ok   bool
	}{
		{"too early", start.Add(-31 * time.Minute), false},
		{"window opens", start.Add(-30 * time.Minute), true},
		{"at start", start, true},
		{"window closes", start.Add(30 * time.Minute), true},
		{"too late", start.Add(31 * time.Minute), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, r := mk(tt.now)
			_, err := f.svc.CheckIn(context.Background(), citizen, r.ID, in)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, IsRule(err), "want rule error, got %v", err)
			}
		})
	}
}

func TestCheckInFlow(t *testing.T) {
	f := newEngine(at(monday, 12, 0))
	r := f.store.add(&model.Reservation{
		UserID:   citizen.UserID,
		SpaceID:  1,
		Status:   model.StatusConfirmed,
		StartsAt: at(monday, 12, 0),
		EndsAt:   at(monday, 14, 0),
		QRCode:   "RSV-gate",
	})

	_, err := f.svc.CheckIn(context.Background(), citizen, r.ID, CheckInInput{QRCode: "RSV-wrong", ExternalID: "P-1"})
	assert.True(t, IsRule(err), "qr mismatch")

	_, err = f.svc.CheckIn(context.Background(), citizen, r.ID, CheckInInput{QRCode: "RSV-gate"})
	assert.True(t, IsValidation(err), "missing external id")

	first, err := f.svc.CheckIn(context.Background(), citizen, r.ID, CheckInInput{QRCode: "RSV-gate", ExternalID: "P-1", FirstName: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCheckedIn, first.Status)
	require.NotNil(t, first.CheckedInAt)
	assert.Len(t, first.Attendees, 1)

	// A second registration appends without touching status.
	second, err := f.svc.CheckIn(context.Background(), citizen, r.ID, CheckInInput{QRCode: "RSV-gate", ExternalID: "P-2"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCheckedIn, second.Status)
	assert.Len(t, second.Attendees, 2)
	assert.Equal(t, *first.CheckedInAt, *second.CheckedInAt, "first check-in time is preserved")

	_, err = f.svc.CheckIn(context.Background(), citizen, r.ID, CheckInInput{QRCode: "RSV-gate", ExternalID: "P-1"})
	assert.True(t, IsRule(err), "duplicate attendee")
}

func TestCheckInRequiresConfirmed(t *testing.T) {
	for _, status := range []model.ReservationStatus{model.StatusPending, model.StatusCanceled, model.StatusNoShow, model.StatusCompleted} {
		f := newEngine(at(monday, 12, 0))
		r := f.store.add(&model.Reservation{
			UserID:   citizen.UserID,
			SpaceID:  1,
			Status:   status,
			StartsAt: at(monday, 12, 0),
			EndsAt:   at(monday, 14, 0),
			QRCode:   "RSV-gate",
		})
		_, err := f.svc.CheckIn(context.Background(), citizen, r.ID, CheckInInput{QRCode: "RSV-gate", ExternalID: "P-1"})
		assert.True(t, IsRule(err), "status %s", status)
	}
}

func TestMarkNoShow(t *testing.T) {
	f := newEngine(at(monday, 13, 0))
	r := f.store.add(&model.Reservation{
		UserID:   citizen.UserID,
		SpaceID:  1,
		Status:   model.StatusConfirmed,
		StartsAt: at(monday, 12, 0),
		EndsAt:   at(monday, 14, 0),
	})

	_, err := f.svc.MarkNoShow(context.Background(), citizen, r.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	marked, err := f.svc.MarkNoShow(context.Background(), staff, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusNoShow, marked.Status)
}

func TestMarkNoShowGuards(t *testing.T) {
	f := newEngine(at(monday, 13, 0))

	future := f.store.add(&model.Reservation{
		UserID: citizen.UserID, SpaceID: 1, Status: model.StatusConfirmed,
		StartsAt: at(monday, 15, 0), EndsAt: at(monday, 16, 0),
	})
	_, err := f.svc.MarkNoShow(context.Background(), staff, future.ID)
	assert.True(t, IsRule(err), "not started yet")

	checkedInAt := at(monday, 12, 5)
	attended := f.store.add(&model.Reservation{
		UserID: citizen.UserID, SpaceID: 1, Status: model.StatusConfirmed,
		StartsAt: at(monday, 12, 0), EndsAt: at(monday, 14, 0),
		CheckedInAt: &checkedInAt,
	})
	_, err = f.svc.MarkNoShow(context.Background(), staff, attended.ID)
	assert.True(t, IsRule(err), "has a recorded check-in")

	pending := f.store.add(&model.Reservation{
		UserID: citizen.UserID, SpaceID: 1, Status: model.StatusCheckedIn,
		StartsAt: at(monday, 12, 0), EndsAt: at(monday, 14, 0),
	})
	_, err = f.svc.MarkNoShow(context.Background(), staff, pending.ID)
	assert.True(t, IsRule(err), "only confirmed reservations")
}

func TestComplete(t *testing.T) {
	f := newEngine(at(monday, 15, 0))
	r := f.store.add(&model.Reservation{
		UserID: citizen.UserID, SpaceID: 1, Status: model.StatusCheckedIn,
		StartsAt: at(monday, 12, 0), EndsAt: at(monday, 14, 0),
	})

	_, err := f.svc.Complete(context.Background(), citizen, r.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	done, err := f.svc.Complete(context.Background(), staff, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, done.Status)

	running := f.store.add(&model.Reservation{
		UserID: citizen.UserID, SpaceID: 1, Status: model.StatusCheckedIn,
		StartsAt: at(monday, 14, 30), EndsAt: at(monday, 16, 0),
	})
	_, err = f.svc.Complete(context.Background(), staff, running.ID)
	assert.True(t, IsRule(err), "has not ended yet")
}

func TestSoftDeleteHidesReservation(t *testing.T) {
	f := newEngine(at(monday, 8, 0))
	r := f.mustCreate(t, citizen, baseInput(at(monday, 10, 0), at(monday, 11, 0)))

	require.NoError(t, f.svc.SoftDelete(context.Background(), citizen, r.ID))

	_, err := f.svc.Get(context.Background(), citizen, r.ID)
	assert.ErrorIs(t, err, model.ErrReservationNotFound)

	// The freed slot can be booked again.
	_ = f.mustCreate(t, citizen, baseInput(at(monday, 10, 0), at(monday, 11, 0)))
}

func TestHardDeleteRequiresResolvedStatus(t *testing.T) {
	f := newEngine(at(monday, 8, 0))

	tests := []struct {
		status model.ReservationStatus
		ok     bool
	}{
		{model.StatusPending, false},
		{model.StatusConfirmed, false},
		{model.StatusCompleted, false},
		{model.StatusCheckedIn, true},
		{model.StatusNoShow, true},
		{model.StatusCanceled, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			r := f.store.add(&model.Reservation{
				UserID: citizen.UserID, SpaceID: 1, Status: tt.status,
				StartsAt: at(monday, 12, 0), EndsAt: at(monday, 13, 0),
			})
			err := f.svc.HardDelete(context.Background(), staff, r.ID)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, IsRule(err), "status %s, got %v", tt.status, err)
			}
		})
	}

	r := f.store.add(&model.Reservation{
		UserID: citizen.UserID, SpaceID: 1, Status: model.StatusCanceled,
	})
	err := f.svc.HardDelete(context.Background(), citizen, r.ID)
	assert.ErrorIs(t, err, ErrForbidden, "staff only")
}

func TestListVisibility(t *testing.T) {
	f := newEngine(at(monday, 8, 0))
	mine := f.mustCreate(t, citizen, baseInput(at(monday, 10, 0), at(monday, 11, 0)))
	in := baseInput(at(monday, 12, 0), at(monday, 13, 0))
	in.UserID = otherCitizen.UserID
	theirs := f.mustCreate(t, otherCitizen, in)

	own, err := f.svc.ListOwn(context.Background(), citizen)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, mine.ID, own[0].ID)

	_, err = f.svc.Get(context.Background(), citizen, theirs.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.ListAll(context.Background(), citizen)
	assert.ErrorIs(t, err, ErrForbidden)

	all, err := f.svc.ListAll(context.Background(), staff)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestNotifierFailureDoesNotFailOperation(t *testing.T) {
	f := newEngine(at(monday, 8, 0))
	f.notifier.fail = true

	r, err := f.svc.Create(context.Background(), citizen, baseInput(at(monday, 10, 0), at(monday, 11, 0)))
	require.NoError(t, err, "a broken notifier must not block creation")
	assert.NotZero(t, r.ID)
}
