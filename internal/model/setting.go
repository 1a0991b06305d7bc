package model

// Setting is a key/value pair used to externally configure runtime
// policy. Absent keys fall back to the documented defaults below.
type Setting struct {
	Key   string
	Value string
}

// Keys for the cancellation-window thresholds and their defaults. The
// minimum is how many hours before start a cancellation must arrive;
// the maximum caps how far in advance cancellation is accepted
// (720 hours = 30 days).
const (
	SettingCancelMinHours = "reservation.cancel_min_hours"
	SettingCancelMaxHours = "reservation.cancel_max_hours"

	DefaultCancelMinHours = 2
	DefaultCancelMaxHours = 720
)
