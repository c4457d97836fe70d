package clock

import "time"

// Clock abstracts time so accrual can be tested deterministically.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

// Now returns the current UTC time at Postgres timestamp precision.
func (RealClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
