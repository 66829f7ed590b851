// Package deedtest collects the fakes and builders shared across the
// module's test suites: a deterministic clock, a sequential id
// generator, and a helper for constructing a fully-wired Engine with
// reproducible time, ids, and randomness.
package deedtest

import (
	"math/rand"
	"strconv"
	"time"

	"github.com/deed-db/deed"
	"github.com/deed-db/deed/graph"
)

// FixedClock is a deterministic graph.Clock: Now always returns the
// same instant, for tests that assert on exact timestamps.
type FixedClock struct{ T time.Time }

func (c FixedClock) Now() time.Time { return c.T }

// StepClock is a graph.Clock that advances by a fixed step every call
// to Now, for tests asserting on relative ordering or elapsed time
// without depending on wall-clock speed.
type StepClock struct {
	current time.Time
	step    time.Duration
}

// NewStepClock returns a StepClock starting at start and advancing by
// step on every Now() call.
func NewStepClock(start time.Time, step time.Duration) *StepClock {
	return &StepClock{current: start, step: step}
}

func (c *StepClock) Now() time.Time {
	t := c.current
	c.current = c.current.Add(c.step)
	return t
}

// Advance moves the clock forward by d without returning a value,
// for tests that need a jump between two Now() reads.
func (c *StepClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}

// SeqIDGen produces predictable, incrementing decimal ids ("1", "2",
// ...), for tests that assert on specific entity/edge identifiers.
type SeqIDGen struct{ n int }

func (g *SeqIDGen) NewID() string {
	g.n++
	return strconv.Itoa(g.n)
}

// NewDeterministicEngine builds an Engine with a fixed clock, sequential
// ids, and a seeded random source, so colony exploration and trail
// fingerprints are reproducible across test runs.
func NewDeterministicEngine(start time.Time, seed int64) *deed.Engine {
	return deed.New(
		deed.WithClock(FixedClock{T: start}),
		deed.WithIDGen(&SeqIDGen{}),
		deed.WithRandSource(rand.NewSource(seed)),
	)
}

// Person is a minimal property-map builder for the "Person" collection
// used across select/match test fixtures.
func Person(name string, age int64) map[string]graph.Value {
	return map[string]graph.Value{
		"name": graph.NewValue(name),
		"age":  graph.NewValue(age),
	}
}
