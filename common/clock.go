package common

import "time"

// Clock abstracts wall-clock reads so TTL behavior can be simulated in tests
// instead of sleeping. All time reads in the codebase go through a Clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }
