package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPerson(id, name string, age int64) *Entity {
	e := NewEntity(id, "Person", time.Unix(0, 0))
	e.SetProperty("name", NewValue(name), time.Unix(0, 0))
	e.SetProperty("age", NewValue(age), time.Unix(0, 0))
	return e
}

func TestCollectionAddAndGetEntity(t *testing.T) {
	c := NewCollection("Person", nil, nil)
	e := newPerson("a", "ada", 30)
	c.AddEntity(e)

	got, ok := c.GetEntity("a")
	require.True(t, ok)
	assert.Equal(t, "Person", got.Type)
	assert.Equal(t, 1, c.Count())
}

func TestCollectionRemoveEntityUpdatesIndexAndStats(t *testing.T) {
	c := NewCollection("Person", nil, nil)
	e := newPerson("a", "ada", 30)
	c.AddEntity(e)
	c.CreateIndex("name")

	removed, ok := c.RemoveEntity("a")
	require.True(t, ok)
	assert.Equal(t, "a", removed.ID)
	assert.Equal(t, 0, c.Count())

	ids := c.LookupEqual("name", NewValue("ada"))
	assert.Empty(t, ids)
}

func TestCollectionCreateIndexBackfillsExistingEntities(t *testing.T) {
	c := NewCollection("Person", nil, nil)
	c.AddEntity(newPerson("a", "ada", 30))
	c.AddEntity(newPerson("b", "grace", 40))

	c.CreateIndex("age")
	results := c.LookupEqual("age", NewValue(int64(30)))
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}

func TestCollectionLookupEqualAutoCreatesIndex(t *testing.T) {
	c := NewCollection("Person", nil, nil)
	c.AddEntity(newPerson("a", "ada", 30))

	results := c.LookupEqual("name", NewValue("ada"))
	require.Len(t, results, 1)
}

func TestCollectionLookupRangePropagatesMismatchError(t *testing.T) {
	c := NewCollection("Person", nil, nil)
	c.AddEntity(newPerson("a", "ada", 30))

	bound := NewValue(true)
	_, err := c.LookupRange("age", &bound, nil)
	require.Error(t, err)
}

func TestCollectionStatsTracksMeanPropsAndDegree(t *testing.T) {
	c := NewCollection("Person", nil, nil)
	c.AddEntity(newPerson("a", "ada", 30))
	c.AddEntity(newPerson("b", "grace", 40))

	stats := c.Stats()
	assert.Equal(t, 2, stats.Count)
	assert.Equal(t, 2.0, stats.MeanProps)
	assert.Equal(t, 0.0, stats.MeanDegree)
}

func TestCollectionFilterAppliesPredicate(t *testing.T) {
	c := NewCollection("Person", nil, nil)
	c.AddEntity(newPerson("a", "ada", 30))
	c.AddEntity(newPerson("b", "grace", 40))

	older := c.Filter(func(e *Entity) bool {
		age, _ := e.GetProperty("age")
		c, ok := age.Compare(NewValue(int64(35)))
		return ok && c > 0
	})
	require.Len(t, older, 1)
	assert.Equal(t, "b", older[0].ID)
}
