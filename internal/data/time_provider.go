package data

import "time"

// TimeProvider stamps profile rows and reset expiries.
type TimeProvider interface {
	Now() time.Time
}

// TimeFunc adapts a plain function to TimeProvider. Results are always UTC.
type TimeFunc func() time.Time

// Now implements TimeProvider.
func (f TimeFunc) Now() time.Time { return f().UTC() }

// SystemClock reads the wall clock.
var SystemClock TimeProvider = TimeFunc(time.Now)

// NewFixedTimeProvider returns a clock stopped at t.
func NewFixedTimeProvider(t time.Time) TimeProvider {
	return TimeFunc(func() time.Time { return t })
}

func clockOrDefault(tp TimeProvider) TimeProvider {
	if tp == nil {
		return SystemClock
	}
	return tp
}
