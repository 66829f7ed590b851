// Package stigmergy implements the pheromone-trail query cache: digital
// pheromone trails left by successful query execution guide future
// optimization without any centralized planner, keyed by the plan
// package's Pattern/Plan fingerprints.
package stigmergy

import (
	"time"

	"github.com/deed-db/deed/plan"
)

const (
	InitialPheromone = 1.0
	MinPheromone     = 0.1
	MaxPheromone     = 10.0

	reinforceAlpha = 0.3 // EMA smoothing factor for avg execution time
	failureDecay   = 0.8
)

// Trail is a single pheromone trail: one (query pattern, execution
// plan) pair and its accumulated performance history.
type Trail struct {
	QuerySignature string
	PathSignature  string

	Pheromone float64

	AvgExecutionTimeMs float64
	SuccessCount       int64
	FailureCount       int64

	CreatedAt      time.Time
	LastReinforced time.Time
	LastUsed       time.Time

	Plan plan.Plan
}

func newTrail(querySig, pathSig string, p plan.Plan, now time.Time) *Trail {
	return &Trail{
		QuerySignature: querySig,
		PathSignature:  pathSig,
		Pheromone:      InitialPheromone,
		CreatedAt:      now,
		LastReinforced: now,
		LastUsed:       now,
		Plan:           p,
	}
}

// Reinforce strengthens or weakens the trail following one execution.
// On success: success count increments, the EMA of execution time
// updates, and pheromone increases by 1/(1+latency/100), clamped at 10.
// On failure: failure count increments and pheromone is multiplied by
// 0.8, floored at 0.1.
func (t *Trail) Reinforce(executionTimeMs float64, success bool, now time.Time) {
	if success {
		t.SuccessCount++
		if t.AvgExecutionTimeMs == 0 {
			t.AvgExecutionTimeMs = executionTimeMs
		} else {
			t.AvgExecutionTimeMs = reinforceAlpha*executionTimeMs + (1-reinforceAlpha)*t.AvgExecutionTimeMs
		}
		reinforcement := 1.0 / (1.0 + executionTimeMs/100.0)
		t.Pheromone = clamp(t.Pheromone+reinforcement, MinPheromone, MaxPheromone)
	} else {
		t.FailureCount++
		t.Pheromone = clamp(t.Pheromone*failureDecay, MinPheromone, MaxPheromone)
	}
	t.LastReinforced = now
	t.LastUsed = now
}

// Evaporate applies natural pheromone decay, floored at MinPheromone.
func (t *Trail) Evaporate(decayRate float64) {
	t.Pheromone = clamp(t.Pheromone*(1-decayRate), MinPheromone, MaxPheromone)
}

// IsStale reports whether the trail has gone unused for longer than
// maxAge, as of now.
func (t *Trail) IsStale(maxAge time.Duration, now time.Time) bool {
	return now.Sub(t.LastUsed) > maxAge
}

// QualityScore combines pheromone strength, success rate, and
// performance into one ranking score. Zero if the trail has never been
// reinforced either way.
func (t *Trail) QualityScore() float64 {
	total := t.SuccessCount + t.FailureCount
	if total == 0 {
		return 0
	}
	successRate := float64(t.SuccessCount) / float64(total)
	timeScore := 1.0 / (1.0 + t.AvgExecutionTimeMs/100.0)
	return t.Pheromone * successRate * timeScore
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
