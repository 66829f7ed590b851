package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entityWithAge(id string, age int64) *Entity {
	e := NewEntity(id, "Person", time.Unix(0, 0))
	e.SetProperty("age", NewValue(age), time.Unix(0, 0))
	return e
}

func TestIndexInsertAndLookupExact(t *testing.T) {
	ix := NewIndex("age")
	a := entityWithAge("a", 30)
	b := entityWithAge("b", 30)
	c := entityWithAge("c", 40)
	ix.Insert(a)
	ix.Insert(b)
	ix.Insert(c)

	ids := ix.LookupExact(NewValue(int64(30)))
	assert.Len(t, ids, 2)
	assert.Contains(t, ids, "a")
	assert.Contains(t, ids, "b")
}

func TestIndexInsertSkipsEntityWithoutProperty(t *testing.T) {
	ix := NewIndex("age")
	e := NewEntity("a", "Person", time.Unix(0, 0))
	ix.Insert(e)

	ids := ix.LookupExact(NewValue(nil))
	assert.Empty(t, ids)
}

func TestIndexRemoveDropsFromBothStructures(t *testing.T) {
	ix := NewIndex("age")
	a := entityWithAge("a", 30)
	ix.Insert(a)
	ix.Remove(a)

	ids := ix.LookupExact(NewValue(int64(30)))
	assert.Empty(t, ids)

	ids, err := ix.LookupRange(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestIndexLookupRangeBounds(t *testing.T) {
	ix := NewIndex("age")
	for _, age := range []int64{10, 20, 30, 40, 50} {
		ix.Insert(entityWithAge(age2id(age), age))
	}

	min := NewValue(int64(20))
	max := NewValue(int64(40))
	ids, err := ix.LookupRange(&min, &max)
	require.NoError(t, err)
	assert.Len(t, ids, 3)

	ids, err = ix.LookupRange(nil, &max)
	require.NoError(t, err)
	assert.Len(t, ids, 4)
}

func TestIndexLookupRangeReturnsMismatchOnIncomparableBound(t *testing.T) {
	ix := NewIndex("age")
	ix.Insert(entityWithAge("a", 30))

	bound := NewValue(true)
	_, err := ix.LookupRange(&bound, nil)
	require.Error(t, err)
}

func age2id(age int64) string {
	return "e" + itoa(age)
}
