package engine

import "time"

// Clock produces monotonic microsecond timestamps measured from the moment
// the engine started. input_ts and output_ts are observational only (see
// the format functions in events.go) — they are never used for matching
// priority — so a process-local monotonic counter is all either needs.
type Clock struct {
	start time.Time
}

// NewClock starts a new monotonic clock at the current instant.
func NewClock() *Clock {
	return &Clock{start: time.Now()}
}

// NowMicros returns microseconds elapsed since the clock was created.
func (c *Clock) NowMicros() int64 {
	return time.Since(c.start).Microseconds()
}
