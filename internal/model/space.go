package model

import (
	"strconv"
	"time"
)

// Space is a bookable municipal resource such as an auditorium, court
// or hall. A space declares zero or more weekly operating windows; a
// space with no windows at all is considered open around the clock.
// MaxDurationMins limits the length of a single reservation in minutes
// and is unbounded when nil.
type Space struct {
	ID               uint64
	Name             string
	Description      string
	Capacity         int
	MaxDurationMins  *int
	RequiresApproval bool
	IsActive         bool
	Windows          []OperatingWindow
	DeletedAt        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Usable reports whether the space can accept reservations at all:
// it must be active and not soft-deleted.
func (s *Space) Usable() bool {
	return s.IsActive && s.DeletedAt == nil
}

// OperatingWindow is one day-of-week open/close range during which a
// space may be booked. OpensAt and ClosesAt use the 24-hour "HH:MM"
// form and must fall on the same calendar day: windows never wrap past
// midnight.
type OperatingWindow struct {
	ID       uint64
	SpaceID  uint64
	Weekday  time.Weekday
	OpensAt  string
	ClosesAt string
}

// Covers reports whether the interval [start, end] fits entirely inside
// this window on the start date. Intervals that cross midnight never
// fit, and an interval on a different weekday never fits.
func (w OperatingWindow) Covers(start, end time.Time) bool {
	if start.Weekday() != w.Weekday {
		return false
	}
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	if sy != ey || sm != em || sd != ed {
		return false
	}
	open, ok := parseMinuteOfDay(w.OpensAt)
	if !ok {
		return false
	}
	close_, ok := parseMinuteOfDay(w.ClosesAt)
	if !ok {
		return false
	}
	startMin := start.Hour()*60 + start.Minute()
	endMin := end.Hour()*60 + end.Minute()
	return open <= startMin && endMin <= close_
}

// parseMinuteOfDay converts an "HH:MM" string into minutes since
// midnight. It returns false for malformed values.
func parseMinuteOfDay(s string) (int, bool) {
	if len(s) != 5 || s[2] != ':' {
		return 0, false
	}
	h, err := strconv.Atoi(s[:2])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(s[3:])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}
