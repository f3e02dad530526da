package workspace

import "time"

// Clock abstracts time for components that timestamp records or expire
// state, so tests can substitute a controlled clock.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
