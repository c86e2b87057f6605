// Package clock abstracts the time source so that expiration arithmetic
// can be tested deterministically.
package clock

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// System is a Clock backed by the wall clock.
type System struct{}

// Now returns the current UTC time.
func (System) Now() time.Time {
	return time.Now().UTC()
}

// Fixed is a Clock that always reports the same instant. Intended for tests.
type Fixed struct {
	Time time.Time
}

// Now returns the configured instant.
func (f Fixed) Now() time.Time {
	return f.Time
}
