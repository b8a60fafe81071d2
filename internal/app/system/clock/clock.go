// internal/app/system/clock/clock.go
package clock

import "time"

// Func returns the current time. Stores that care about expiry take one of
// these so tests can pin the clock.
type Func func() time.Time

// Real returns the wall clock.
func Real() Func {
	return time.Now
}
