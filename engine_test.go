package deed

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deed-db/deed/graph"
	"github.com/deed-db/deed/plan"
)

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

type seqIDGen struct{ n int }

func (g *seqIDGen) NewID() string {
	g.n++
	return itoaTest(g.n)
}

func itoaTest(n int) string {
	digits := "0123456789"
	if n == 0 {
		return "0"
	}
	var buf []byte
	for n > 0 {
		buf = append([]byte{digits[n%10]}, buf...)
		n /= 10
	}
	return string(buf)
}

func newTestEngine() *Engine {
	return New(
		WithClock(fixedClock{t: time.Unix(0, 0)}),
		WithIDGen(&seqIDGen{}),
		WithRandSource(rand.NewSource(7)),
	)
}

func TestNewWiresEverySubsystemWithDefaults(t *testing.T) {
	e := New()
	require.NotNil(t, e.Store)
	require.NotNil(t, e.Cache)
	require.NotNil(t, e.Explorer)
	require.NotNil(t, e.Executor)
}

func TestEngineExecuteCreateTableInsertSelect(t *testing.T) {
	e := newTestEngine()

	_, err := e.Execute(plan.Plan{Operation: plan.OpCreateTable, Collection: "Person"})
	require.NoError(t, err)

	_, err = e.Execute(plan.Plan{
		Operation:        plan.OpInsert,
		InsertCollection: "Person",
		InsertValues:     map[string]graph.Value{"name": graph.NewValue("ada")},
	})
	require.NoError(t, err)

	items, err := e.Execute(plan.Plan{
		Operation:   plan.OpSelect,
		Collection:  "Person",
		Projections: []string{"*"},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestEngineExecuteWrapsUnderlyingError(t *testing.T) {
	e := newTestEngine()
	_, err := e.Execute(plan.Plan{Operation: plan.OpSelect, Collection: "Ghost"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execute select")
}

func TestEngineMaintainDoesNotPanicOnEmptyStore(t *testing.T) {
	e := newTestEngine()
	assert.NotPanics(t, func() { e.Maintain(0.1) })
}

func TestEngineGetStatsAggregatesSubsystems(t *testing.T) {
	e := newTestEngine()
	e.Execute(plan.Plan{Operation: plan.OpCreateTable, Collection: "Person"})
	stats := e.GetStats()
	assert.GreaterOrEqual(t, stats.Executor.TotalQueries, int64(1))
	assert.GreaterOrEqual(t, stats.Store.TotalCollections, 1)
}

func TestWithStigmergyOverridesCacheConfig(t *testing.T) {
	e := New(WithStigmergy(5, 0.2, time.Minute))
	require.NotNil(t, e.Cache)

	for i := 1; i <= 6; i++ {
		q := plan.Plan{Operation: plan.OpSelect, Collection: "Person", Limit: i}
		e.Cache.AddTrail(q, q, 1, true)
	}
	assert.Equal(t, 5, e.Cache.GetStats().TotalTrails)
}

func TestWithAntColonyOverridesExplorerConfig(t *testing.T) {
	e := New(WithAntColony(3, 1))
	require.NotNil(t, e.Explorer)

	_, err := e.Execute(plan.Plan{Operation: plan.OpCreateTable, Collection: "Person"})
	require.NoError(t, err)
	_, err = e.Execute(plan.Plan{Operation: plan.OpSelect, Collection: "Person"})
	require.NoError(t, err)
	assert.Equal(t, 3.0, e.GetStats().Colony.AvgPlansExplored)
}
