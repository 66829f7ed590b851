package graph

import "time"

// Clock yields ordered instants. The store never calls time.Now()
// directly so tests can supply a fake, advancing clock.
type Clock interface {
	Now() time.Time
}

// SystemClock is the default Clock, backed by the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
