package service

import "time"

// Clock abstracts "now" so that window and threshold comparisons can be
// tested deterministically. Production code uses SystemClock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC, matching the storage layer
// which keeps every DATETIME in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
