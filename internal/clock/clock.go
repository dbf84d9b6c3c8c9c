// Package clock provides a timezone-aware clock abstraction so that
// every time-sensitive operation receives a single unambiguous local
// time instead of reading the ambient wall clock.
package clock

import "time"

// Clock yields the current time localized to the schedule timezone.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

type realClock struct {
	loc *time.Location
}

// New returns a Clock reporting wall time in loc.
func New(loc *time.Location) Clock {
	return &realClock{loc: loc}
}

func (c *realClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c *realClock) Location() *time.Location {
	return c.loc
}

// Fixed is a Clock pinned to a single instant, for tests and
// dry-run evaluation at a chosen time.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time {
	return f.T
}

func (f Fixed) Location() *time.Location {
	return f.T.Location()
}
