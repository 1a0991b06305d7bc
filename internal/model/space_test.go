package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOperatingWindowCovers(t *testing.T) {
	w := OperatingWindow{Weekday: time.Monday, OpensAt: "09:00", ClosesAt: "18:00"}
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	hm := func(day time.Time, h, m int) time.Time {
		return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, time.UTC)
	}

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  bool
	}{
		{"inside", hm(monday, 10, 0), hm(monday, 12, 0), true},
		{"exact bounds", hm(monday, 9, 0), hm(monday, 18, 0), true},
		{"before opening", hm(monday, 8, 59), hm(monday, 10, 0), false},
		{"after closing", hm(monday, 17, 0), hm(monday, 18, 1), false},
		{"wrong weekday", hm(monday.AddDate(0, 0, 1), 10, 0), hm(monday.AddDate(0, 0, 1), 11, 0), false},
		{"crosses midnight", hm(monday, 17, 0), hm(monday.AddDate(0, 0, 1), 9, 30), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.Covers(tt.start, tt.end))
		})
	}
}

func TestOperatingWindowMalformedTimes(t *testing.T) {
	monday := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	for _, bad := range []string{"", "9:00", "25:00", "09:60", "ab:cd", "09-00"} {
		w := OperatingWindow{Weekday: time.Monday, OpensAt: bad, ClosesAt: "18:00"}
		assert.False(t, w.Covers(monday, monday.Add(time.Hour)), "opens_at %q", bad)
	}
}

func TestStatusPredicates(t *testing.T) {
	tests := []struct {
		status     ReservationStatus
		valid      bool
		final      bool
		unresolved bool
	}{
		{StatusPending, true, false, true},
		{StatusConfirmed, true, false, true},
		{StatusCheckedIn, true, false, false},
		{StatusCanceled, true, true, false},
		{StatusNoShow, true, true, false},
		{StatusCompleted, true, true, false},
		{ReservationStatus("ARCHIVED"), false, false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.status.Valid())
			assert.Equal(t, tt.final, tt.status.Final())
			assert.Equal(t, tt.unresolved, tt.status.Unresolved())
		})
	}
}

func TestBlocksInterval(t *testing.T) {
	blocking := []ReservationStatus{StatusPending, StatusConfirmed, StatusCheckedIn, StatusCompleted}
	for _, s := range blocking {
		r := Reservation{Status: s}
		assert.True(t, r.BlocksInterval(), "status %s", s)
	}
	for _, s := range []ReservationStatus{StatusCanceled, StatusNoShow} {
		r := Reservation{Status: s}
		assert.False(t, r.BlocksInterval(), "status %s", s)
	}
}
