package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/space-reservation/internal/model"
)

// fixedClock pins "now" for deterministic window checks.
type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// memReservations is an in-memory ReservationStore with the same
// visibility rules as the MySQL repository: soft-deleted rows are
// invisible to every read.
type memReservations struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]*model.Reservation
}

func newMemReservations() *memReservations {
	return &memReservations{rows: map[uint64]*model.Reservation{}}
}

func (s *memReservations) add(r *model.Reservation) *model.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	r.ID = s.nextID
	cp := *r
	s.rows[r.ID] = &cp
	return r
}

func (s *memReservations) ByID(_ context.Context, id uint64) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok || r.DeletedAt != nil {
		return nil, model.ErrReservationNotFound
	}
	cp := *r
	cp.Attendees = append([]model.Attendee(nil), r.Attendees...)
	return &cp, nil
}

func (s *memReservations) Create(_ context.Context, r *model.Reservation) error {
	s.add(r)
	return nil
}

func (s *memReservations) Update(_ context.Context, r *model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.rows[r.ID]
	if !ok || cur.DeletedAt != nil {
		return model.ErrReservationNotFound
	}
	cp := *r
	cp.Attendees = append([]model.Attendee(nil), r.Attendees...)
	s.rows[r.ID] = &cp
	return nil
}

func (s *memReservations) ListBlockingBySpace(_ context.Context, spaceID uint64) ([]*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Reservation
	for _, r := range s.rows {
		if r.DeletedAt == nil && r.SpaceID == spaceID && r.BlocksInterval() {
			cp := *r
			out = append(out, &cp)
		}
	}
	sortByID(out)
	return out, nil
}

func (s *memReservations) ListUnresolvedBefore(_ context.Context, cutoff time.Time) ([]*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Reservation
	for _, r := range s.rows {
		if r.DeletedAt == nil && r.Status.Unresolved() && !r.StartsAt.IsZero() && r.StartsAt.Before(cutoff) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sortByID(out)
	return out, nil
}

func (s *memReservations) ListByUser(_ context.Context, userID uint64) ([]*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Reservation
	for _, r := range s.rows {
		if r.DeletedAt == nil && r.UserID == userID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sortByID(out)
	return out, nil
}

func (s *memReservations) ListAll(_ context.Context) ([]*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Reservation
	for _, r := range s.rows {
		if r.DeletedAt == nil {
			cp := *r
			out = append(out, &cp)
		}
	}
	sortByID(out)
	return out, nil
}

func (s *memReservations) QRCodeInUse(_ context.Context, code string, excludeID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.DeletedAt == nil && r.ID != excludeID && r.QRCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (s *memReservations) AddAttendee(_ context.Context, a *model.Attendee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[a.ReservationID]
	if !ok || r.DeletedAt != nil {
		return model.ErrReservationNotFound
	}
	for _, existing := range r.Attendees {
		if strings.EqualFold(existing.ExternalID, a.ExternalID) {
			return model.ErrAttendeeExists
		}
	}
	a.ID = uint64(len(r.Attendees) + 1)
	r.Attendees = append(r.Attendees, *a)
	return nil
}

func (s *memReservations) SoftDelete(_ context.Context, id uint64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok || r.DeletedAt != nil {
		return model.ErrReservationNotFound
	}
	t := at
	r.DeletedAt = &t
	return nil
}

func (s *memReservations) HardDelete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return model.ErrReservationNotFound
	}
	delete(s.rows, id)
	return nil
}

func sortByID(rs []*model.Reservation) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].ID < rs[j].ID })
}

// memSpaces is a fixed map of spaces.
type memSpaces struct{ rows map[uint64]*model.Space }

func (s *memSpaces) ByID(_ context.Context, id uint64) (*model.Space, error) {
	sp, ok := s.rows[id]
	if !ok || sp.DeletedAt != nil {
		return nil, model.ErrSpaceNotFound
	}
	cp := *sp
	return &cp, nil
}

// memUsers is a fixed map of users.
type memUsers struct{ rows map[uint64]*model.User }

func (s *memUsers) ByID(_ context.Context, id uint64) (*model.User, error) {
	u, ok := s.rows[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// memSettings backs the cancellation policy in tests.
type memSettings struct{ values map[string]string }

func (s *memSettings) Value(_ context.Context, key string) (string, error) {
	v, ok := s.values[key]
	if !ok {
		return "", model.ErrSettingNotFound
	}
	return v, nil
}

// recordingNotifier captures which events fired.
type recordingNotifier struct {
	created  []uint64
	approved []uint64
	canceled []uint64
	fail     bool
}

func (n *recordingNotifier) ReservationCreated(_ context.Context, r *model.Reservation) error {
	n.created = append(n.created, r.ID)
	if n.fail {
		return context.DeadlineExceeded
	}
	return nil
}

func (n *recordingNotifier) ReservationApproved(_ context.Context, r *model.Reservation) error {
	n.approved = append(n.approved, r.ID)
	if n.fail {
		return context.DeadlineExceeded
	}
	return nil
}

func (n *recordingNotifier) ReservationCanceled(_ context.Context, r *model.Reservation) error {
	n.canceled = append(n.canceled, r.ID)
	if n.fail {
		return context.DeadlineExceeded
	}
	return nil
}
