// Package system provides wall-clock and fixed clock implementations.
package system

import "time"

// Clock implements relay.Clock and the health endpoint clock using UTC wall time.
type Clock struct {
	now func() time.Time
}

// New creates a Clock backed by time.Now.
func New() *Clock {
	return &Clock{now: time.Now}
}

// Fixed creates a Clock that always reports t.
func Fixed(t time.Time) *Clock {
	return &Clock{now: func() time.Time { return t }}
}

// Now returns the current time in UTC.
func (c *Clock) Now() time.Time {
	if c == nil || c.now == nil {
		return time.Now().UTC()
	}
	return c.now().UTC()
}
