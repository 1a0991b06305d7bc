package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/space-reservation/internal/model"
)

func policyAt(now time.Time, values map[string]string) *CancellationPolicy {
	if values == nil {
		values = map[string]string{}
	}
	return NewCancellationPolicy(&memSettings{values: values}, fixedClock{t: now})
}

func reservationStarting(start time.Time) *model.Reservation {
	return &model.Reservation{
		ID:       1,
		Status:   model.StatusConfirmed,
		StartsAt: start,
		EndsAt:   start.Add(time.Hour),
	}
}

func TestCancellationDefaults(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		hoursAhead time.Duration
		ok         bool
	}{
		{"well inside window", 48 * time.Hour, true},
		{"just above minimum", 3 * time.Hour, true},
		{"exactly minimum", 2 * time.Hour, true},
		{"below minimum", 90 * time.Minute, false},
		{"exactly maximum", 720 * time.Hour, true},
		{"beyond maximum", 721 * time.Hour, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := policyAt(now, nil)
			err := p.AssertAllowed(context.Background(), reservationStarting(now.Add(tt.hoursAhead)))
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, IsRule(err), "want rule error, got %v", err)
			}
		})
	}
}

func TestCancellationConfiguredThresholds(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	p := policyAt(now, map[string]string{
		model.SettingCancelMinHours: "24",
		model.SettingCancelMaxHours: "168",
	})

	err := p.AssertAllowed(context.Background(), reservationStarting(now.Add(48*time.Hour)))
	assert.NoError(t, err)

	err = p.AssertAllowed(context.Background(), reservationStarting(now.Add(12*time.Hour)))
	assert.True(t, IsRule(err), "inside the 24h minimum")

	err = p.AssertAllowed(context.Background(), reservationStarting(now.Add(200*time.Hour)))
	assert.True(t, IsRule(err), "beyond the 168h maximum")
}

func TestCancellationZeroMinDisablesLowerBound(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	p := policyAt(now, map[string]string{model.SettingCancelMinHours: "0"})

	// Ten minutes before start is 0 whole hours out, allowed when the
	// minimum is zero.
	err := p.AssertAllowed(context.Background(), reservationStarting(now.Add(10*time.Minute)))
	assert.NoError(t, err)
}

func TestCancellationRejectsStartedAndMissingStart(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	p := policyAt(now, nil)

	err := p.AssertAllowed(context.Background(), reservationStarting(now.Add(-time.Hour)))
	assert.True(t, IsRule(err), "already started")

	err = p.AssertAllowed(context.Background(), reservationStarting(now))
	assert.True(t, IsRule(err), "starting exactly now counts as started")

	err = p.AssertAllowed(context.Background(), &model.Reservation{ID: 1, Status: model.StatusConfirmed})
	assert.True(t, IsRule(err), "missing start time")
}

func TestCancellationBadConfiguration(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	r := reservationStarting(now.Add(48 * time.Hour))

	tests := []struct {
		name   string
		values map[string]string
	}{
		{"non-numeric min", map[string]string{model.SettingCancelMinHours: "soon"}},
		{"negative max", map[string]string{model.SettingCancelMaxHours: "-5"}},
		{"min above max", map[string]string{
			model.SettingCancelMinHours: "100",
			model.SettingCancelMaxHours: "10",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := policyAt(now, tt.values)
			err := p.AssertAllowed(context.Background(), r)
			assert.True(t, IsValidation(err), "want validation error, got %v", err)
		})
	}
}

func TestCancellationWholeHourTruncation(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	p := policyAt(now, map[string]string{model.SettingCancelMinHours: "2"})

	// 1h59m truncates to 1 whole hour, below the 2 hour minimum.
	err := p.AssertAllowed(context.Background(), reservationStarting(now.Add(119*time.Minute)))
	assert.True(t, IsRule(err))

	// 2h01m truncates to 2 whole hours, exactly the minimum.
	err = p.AssertAllowed(context.Background(), reservationStarting(now.Add(121*time.Minute)))
	assert.NoError(t, err)
}
