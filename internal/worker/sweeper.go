// Package worker contains background tasks that run alongside the HTTP
// server. The no-show sweeper shares the service layer's store
// contracts and clock so it applies the same state invariants as the
// synchronous engine.
package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/space-reservation/internal/model"
	"github.com/iliyamo/space-reservation/internal/service"
)

// DefaultSweepInterval is how often the sweeper scans for expired
// reservations when no interval is configured.
const DefaultSweepInterval = 5 * time.Minute

// NoShowSweeper periodically resolves reservations nobody checked into.
// It widens the manual no-show action on purpose: PENDING reservations
// that were never approved are swept too, so abandoned requests do not
// linger forever.
type NoShowSweeper struct {
	reservations service.ReservationStore
	clock        service.Clock
	interval     time.Duration
}

// NewNoShowSweeper builds a sweeper over the reservation store. A
// non-positive interval falls back to DefaultSweepInterval.
func NewNoShowSweeper(reservations service.ReservationStore, clock service.Clock, interval time.Duration) *NoShowSweeper {
	if reservations == nil || clock == nil {
		panic("nil dependency passed to NewNoShowSweeper")
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &NoShowSweeper{reservations: reservations, clock: clock, interval: interval}
}

// Start runs the sweep loop until ctx is canceled. An in-progress sweep
// finishes before the loop observes cancellation on the next tick.
func (w *NoShowSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logrus.Infof("no-show sweeper started (interval %s)", w.interval)
	for {
		select {
		case <-ctx.Done():
			logrus.Info("no-show sweeper stopped")
			return
		case <-ticker.C:
			w.SweepOnce(ctx)
		}
	}
}

// SweepOnce performs a single sweep pass. Any failure, including a
// panic from the store layer, is logged and swallowed: the sweep must
// never crash the scheduler.
func (w *NoShowSweeper) SweepOnce(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			logrus.Errorf("no-show sweep panicked: %v", rec)
		}
	}()

	cutoff := w.clock.Now().Add(-service.CheckInWindow)
	expired, err := w.reservations.ListUnresolvedBefore(ctx, cutoff)
	if err != nil {
		logrus.WithError(err).Error("no-show sweep failed to list expired reservations")
		return
	}
	if len(expired) == 0 {
		return
	}

	swept := 0
	for _, r := range expired {
		select {
		case <-ctx.Done():
			logrus.Infof("no-show sweep interrupted after %d of %d reservations", swept, len(expired))
			return
		default:
		}
		r.Status = model.StatusNoShow
		r.UpdatedAt = w.clock.Now()
		if err := w.reservations.Update(ctx, r); err != nil {
			logrus.WithError(err).Errorf("no-show sweep failed to update reservation %d", r.ID)
			continue
		}
		swept++
	}
	logrus.Infof("no-show sweep resolved %d of %d expired reservations", swept, len(expired))
}
