package clock

import "time"

// Clock provides the current time; game timestamps are always UTC
type Clock interface {
	Now() time.Time
}

// UTCClock implements Clock using the system clock
type UTCClock struct{}

// New creates a new UTCClock
func New() *UTCClock {
	return &UTCClock{}
}

// Now returns the current wall-clock time in UTC, truncated to milliseconds
// so values survive a round trip through every storage backend unchanged
func (c *UTCClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
