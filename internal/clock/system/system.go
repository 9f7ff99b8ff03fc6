// Package system provides the wall clock used for date keys and timestamps.
package system

import "time"

// Clock implements snapshot.Clock. It reports time in a fixed location so the
// date key follows that location's calendar day.
type Clock struct {
	loc *time.Location
}

// New creates a Clock in the process's local time zone.
func New() *Clock {
	return &Clock{loc: time.Local}
}

// NewIn creates a Clock reporting time in loc; nil means local time.
func NewIn(loc *time.Location) *Clock {
	if loc == nil {
		loc = time.Local
	}
	return &Clock{loc: loc}
}

// Now returns the current time in the clock's location.
func (c *Clock) Now() time.Time {
	return time.Now().In(c.loc)
}
