package exec

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deed-db/deed/colony"
	"github.com/deed-db/deed/deederr"
	"github.com/deed-db/deed/graph"
	"github.com/deed-db/deed/plan"
	"github.com/deed-db/deed/stigmergy"
)

func newTestExecutor() (*Executor, *graph.Store) {
	clock := graph.SystemClock{}
	store := graph.NewStore(clock, graph.UUIDGen{}, nil)
	cache := stigmergy.NewCache(stigmergy.DefaultConfig(), clock, nil)
	explorer := colony.NewExplorer(colony.DefaultConfig(), cache, rand.New(rand.NewSource(1)), nil)
	return New(store, cache, explorer, colony.DefaultGraphStats(), clock, nil), store
}

func TestExecutorSelectUnknownCollection(t *testing.T) {
	ex, _ := newTestExecutor()
	_, err := ex.Execute(plan.Plan{Operation: plan.OpSelect, Collection: "Ghost"})
	require.Error(t, err)
	assert.True(t, deederr.ErrUnknownCollection.Is(err))
}

func TestExecutorUnsupportedOperation(t *testing.T) {
	ex, _ := newTestExecutor()
	_, err := ex.Execute(plan.Plan{Operation: "bogus"})
	require.Error(t, err)
	assert.True(t, deederr.ErrUnsupportedOperation.Is(err))
}

func TestExecutorCreateTableAndInsertAndSelect(t *testing.T) {
	ex, _ := newTestExecutor()

	_, err := ex.Execute(plan.Plan{Operation: plan.OpCreateTable, Collection: "Person"})
	require.NoError(t, err)

	_, err = ex.Execute(plan.Plan{
		Operation:        plan.OpInsert,
		InsertCollection: "Person",
		InsertValues:     map[string]graph.Value{"name": graph.NewValue("ada"), "age": graph.NewValue(int64(36))},
	})
	require.NoError(t, err)

	items, err := ex.Execute(plan.Plan{
		Operation:   plan.OpSelect,
		Collection:  "Person",
		Projections: []string{"*"},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	name, _ := items[0].Entity.GetProperty("name")
	assert.Equal(t, "ada", name.Raw())
}

func TestExecutorSelectFiltersAndCoercesOneStep(t *testing.T) {
	ex, _ := newTestExecutor()
	ex.Execute(plan.Plan{Operation: plan.OpCreateTable, Collection: "Person"})
	ex.Execute(plan.Plan{
		Operation: plan.OpInsert, InsertCollection: "Person",
		InsertValues: map[string]graph.Value{"age": graph.NewValue(30.0)}, // stored as float
	})

	items, err := ex.Execute(plan.Plan{
		Operation:  plan.OpSelect,
		Collection: "Person",
		Filters: []plan.Filter{
			{Property: "age", Comparator: plan.CmpEq, Literal: graph.NewValue(int64(30))}, // literal int vs stored float
		},
		Projections: []string{"*"},
	})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestExecutorSelectRejectsRowOnTypeMismatch(t *testing.T) {
	ex, _ := newTestExecutor()
	ex.Execute(plan.Plan{Operation: plan.OpCreateTable, Collection: "Person"})
	ex.Execute(plan.Plan{
		Operation: plan.OpInsert, InsertCollection: "Person",
		InsertValues: map[string]graph.Value{"active": graph.NewValue(true)},
	})

	items, err := ex.Execute(plan.Plan{
		Operation:  plan.OpSelect,
		Collection: "Person",
		Filters: []plan.Filter{
			{Property: "active", Comparator: plan.CmpEq, Literal: graph.NewValue("yes")}, // bool never coerces
		},
		Projections: []string{"*"},
	})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestExecutorUpdateAndDelete(t *testing.T) {
	ex, _ := newTestExecutor()
	ex.Execute(plan.Plan{Operation: plan.OpCreateTable, Collection: "Person"})
	ex.Execute(plan.Plan{
		Operation: plan.OpInsert, InsertCollection: "Person",
		InsertValues: map[string]graph.Value{"name": graph.NewValue("ada")},
	})

	updated, err := ex.Execute(plan.Plan{
		Operation:         plan.OpUpdate,
		Collection:        "Person",
		UpdateAssignments: map[string]graph.Value{"name": graph.NewValue("grace")},
	})
	require.NoError(t, err)
	require.Len(t, updated, 1)
	name, _ := updated[0].Entity.GetProperty("name")
	assert.Equal(t, "grace", name.Raw())

	deleted, err := ex.Execute(plan.Plan{Operation: plan.OpDelete, Collection: "Person"})
	require.NoError(t, err)
	require.Len(t, deleted, 1)

	remaining, err := ex.Execute(plan.Plan{Operation: plan.OpSelect, Collection: "Person", Projections: []string{"*"}})
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestExecutorMatchPattern(t *testing.T) {
	ex, store := newTestExecutor()
	a := store.AddEntity("Person", map[string]graph.Value{"name": graph.NewValue("ada")}, "a")
	b := store.AddEntity("Person", map[string]graph.Value{"name": graph.NewValue("grace")}, "b")
	store.AddEdge(a.ID, b.ID, "KNOWS", nil)

	items, err := ex.Execute(plan.Plan{
		Operation: plan.OpMatch,
		Nodes: []plan.PatternNode{
			{Var: "p", Label: "Person"},
			{Var: "f", Label: "Person"},
		},
		Edges: []plan.PatternEdge{
			{Type: "KNOWS", Direction: plan.DirOut, FromVar: "p", ToVar: "f"},
		},
		Projections: []string{"p.name", "f.name"},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "ada", items[0].Row["p.name"].Value.Raw())
	assert.Equal(t, "grace", items[0].Row["f.name"].Value.Raw())
}

func TestExecutorMatchPatternFansOutOverMultipleTargets(t *testing.T) {
	ex, store := newTestExecutor()
	alice := store.AddEntity("User", map[string]graph.Value{"name": graph.NewValue("Alice")}, "")
	bob := store.AddEntity("User", map[string]graph.Value{"name": graph.NewValue("Bob")}, "")
	carol := store.AddEntity("User", map[string]graph.Value{"name": graph.NewValue("Carol")}, "")
	store.AddEdge(alice.ID, bob.ID, "FOLLOWS", nil)
	store.AddEdge(alice.ID, carol.ID, "FOLLOWS", nil)

	items, err := ex.Execute(plan.Plan{
		Operation: plan.OpMatch,
		Nodes: []plan.PatternNode{
			{Var: "u", Label: "User", Properties: map[string]graph.Value{"name": graph.NewValue("Alice")}},
			{Var: "f", Label: "User"},
		},
		Edges: []plan.PatternEdge{
			{Type: "FOLLOWS", Direction: plan.DirOut, FromVar: "u", ToVar: "f"},
		},
		Projections: []string{"f.name"},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)

	var names []string
	for _, item := range items {
		names = append(names, item.Row["f.name"].Value.Raw().(string))
	}
	assert.ElementsMatch(t, []string{"Bob", "Carol"}, names)
}

func TestExecutorMatchNoNodesReturnsEmpty(t *testing.T) {
	ex, _ := newTestExecutor()
	items, err := ex.Execute(plan.Plan{Operation: plan.OpMatch})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestExecutorCreatePatternWithEdge(t *testing.T) {
	ex, _ := newTestExecutor()
	items, err := ex.Execute(plan.Plan{
		Operation: plan.OpCreate,
		Nodes: []plan.PatternNode{
			{Var: "a", Label: "Person", Properties: map[string]graph.Value{"name": graph.NewValue("ada")}},
			{Var: "b", Label: "Person", Properties: map[string]graph.Value{"name": graph.NewValue("grace")}},
		},
		Edges: []plan.PatternEdge{
			{Type: "KNOWS", FromVar: "a", ToVar: "b"},
		},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
}

func TestExecutorStatsAccumulate(t *testing.T) {
	ex, _ := newTestExecutor()
	ex.Execute(plan.Plan{Operation: plan.OpCreateTable, Collection: "Person"})
	stats := ex.GetStats()
	assert.Equal(t, int64(1), stats.TotalQueries)
	assert.GreaterOrEqual(t, stats.AvgExecutionTimeMs(), 0.0)
}
