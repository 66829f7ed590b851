package colony

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deed-db/deed/graph"
	"github.com/deed-db/deed/plan"
	"github.com/deed-db/deed/stigmergy"
)

func TestExplorerOptimizeConvergesToNonNilPlan(t *testing.T) {
	cache := stigmergy.NewCache(stigmergy.DefaultConfig(), graph.SystemClock{}, nil)
	rnd := rand.New(rand.NewSource(1))
	ex := NewExplorer(DefaultConfig(), cache, rnd, nil)

	query := plan.Plan{
		Operation:  plan.OpSelect,
		Collection: "Person",
		Filters: []plan.Filter{
			{Property: "age", Comparator: plan.CmpGt, Literal: graph.NewValue(int64(30))},
		},
	}

	best := ex.Optimize(query, DefaultGraphStats())
	assert.Equal(t, plan.OpSelect, best.Operation)

	stats := ex.GetStats()
	assert.Equal(t, int64(1), stats.TotalOptimizations)
	assert.Greater(t, stats.AvgPlansExplored, 0.0)
}

func TestExplorerDepositsTrailsPerIteration(t *testing.T) {
	cache := stigmergy.NewCache(stigmergy.DefaultConfig(), graph.SystemClock{}, nil)
	rnd := rand.New(rand.NewSource(2))
	cfg := Config{NumAnts: 10, NumIterations: 3}
	ex := NewExplorer(cfg, cache, rnd, nil)

	query := plan.Plan{Operation: plan.OpSelect, Collection: "Person"}
	ex.Optimize(query, DefaultGraphStats())

	trails := cache.Lookup(query)
	require.NotEmpty(t, trails)
}

func TestExplorerSensitivityIncreasesExploitationOverIterations(t *testing.T) {
	// Sanity check on the formula itself: 0.5 at iteration 0, approaching
	// 0.8 as iteration -> numIterations.
	numIterations := 3
	for iteration, want := range map[int]float64{0: 0.5, 1: 0.5 + 0.1} {
		got := 0.5 + (float64(iteration)/float64(numIterations))*0.3
		assert.InDelta(t, want, got, 1e-9)
	}
}
