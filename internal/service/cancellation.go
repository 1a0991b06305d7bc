package service

import (
	"context"
	"errors"
	"strconv"

	"github.com/iliyamo/space-reservation/internal/model"
)

// CancellationPolicy gates cancellations by a configurable window
// before the reservation's start: no earlier than max hours out, no
// later than min hours out. Thresholds come from the settings store and
// fall back to the documented defaults when the keys are absent.
type CancellationPolicy struct {
	settings SettingStore
	clock    Clock
}

// NewCancellationPolicy constructs the policy over a settings store and
// a clock.
func NewCancellationPolicy(settings SettingStore, clock Clock) *CancellationPolicy {
	if settings == nil || clock == nil {
		panic("nil dependency passed to NewCancellationPolicy")
	}
	return &CancellationPolicy{settings: settings, clock: clock}
}

// AssertAllowed returns nil when the reservation may be canceled right
// now. A reservation without a start time, or one that has already
// started, is rejected outright; otherwise the whole-hour distance to
// the start must lie within [min, max].
func (p *CancellationPolicy) AssertAllowed(ctx context.Context, r *model.Reservation) error {
	if r.StartsAt.IsZero() {
		return Rulef("reservation has no start time")
	}
	now := p.clock.Now()
	if !r.StartsAt.After(now) {
		return Rulef("reservation has already started and can no longer be canceled")
	}
	minHours, err := p.hoursSetting(ctx, model.SettingCancelMinHours, model.DefaultCancelMinHours)
	if err != nil {
		return err
	}
	maxHours, err := p.hoursSetting(ctx, model.SettingCancelMaxHours, model.DefaultCancelMaxHours)
	if err != nil {
		return err
	}
	if minHours > maxHours {
		return Validationf("cancellation window misconfigured: minimum %d hours exceeds maximum %d hours", minHours, maxHours)
	}
	hoursUntilStart := int(r.StartsAt.Sub(now).Hours())
	if hoursUntilStart < minHours {
		return Rulef("reservations must be canceled at least %d hours before they start", minHours)
	}
	if hoursUntilStart > maxHours {
		return Rulef("reservations cannot be canceled more than %d hours before they start", maxHours)
	}
	return nil
}

// hoursSetting resolves a threshold from configuration, falling back to
// def when the key is absent. Values that do not parse as non-negative
// integers make the configuration itself invalid.
func (p *CancellationPolicy) hoursSetting(ctx context.Context, key string, def int) (int, error) {
	raw, err := p.settings.Value(ctx, key)
	if errors.Is(err, model.ErrSettingNotFound) {
		return def, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, Validationf("setting %s must be a non-negative integer, got %q", key, raw)
	}
	return n, nil
}
