package clock

import "time"

// Clock returns the current time. Services and repositories take it as a
// dependency so tests can simulate elapsed time instead of sleeping.
type Clock func() time.Time

func System() Clock {
	return func() time.Time { return time.Now().UTC() }
}
