package domain

import "time"

// Clock returns the current time. Components take one so tests can control time.
type Clock func() time.Time

// SystemClock returns the wall clock in UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}
