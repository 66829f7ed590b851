package graph

import "sort"

// Index is a per-property secondary index supporting equality and range
// lookups over ordered values: a hash map keyed by value for equality,
// and a sorted slice of entries for range scans.
type Index struct {
	PropertyName string

	valueMap map[string]map[string]struct{} // value cache key -> entity ids
	sorted   []indexEntry                   // sorted by (value, id)

	values map[string]Value // value cache key -> canonical Value, for comparisons
}

type indexEntry struct {
	value Value
	key   string // cache key, see valueKey
	id    string
}

// NewIndex constructs an empty index over propertyName.
func NewIndex(propertyName string) *Index {
	return &Index{
		PropertyName: propertyName,
		valueMap:     make(map[string]map[string]struct{}),
		values:       make(map[string]Value),
	}
}

// valueKey produces a map key for a Value usable in Go maps (Value
// itself is not comparable across kinds in a way useful for grouping
// distinct dynamic types under one key scheme).
func valueKey(v Value) string {
	switch t := v.Raw().(type) {
	case nil:
		return "n:"
	case int64:
		return "i:" + itoa(t)
	case float64:
		return "f:" + ftoa(t)
	case string:
		return "s:" + t
	case bool:
		if t {
			return "b:1"
		}
		return "b:0"
	default:
		return "?:"
	}
}

// Insert adds entity to both structures if it carries PropertyName; a
// no-op otherwise. Safe to call twice with the same entity only if the
// property value has not changed between calls (idempotent on unchanged
// state) — calling it again after a value change leaves stale entries
// for the old value, which is why the executor's update takes the
// entity out of its collection before changing a value and adds it
// back afterward.
func (ix *Index) Insert(e *Entity) {
	value, ok := e.GetProperty(ix.PropertyName)
	if !ok {
		return
	}
	key := valueKey(value)

	ids, ok := ix.valueMap[key]
	if !ok {
		ids = make(map[string]struct{})
		ix.valueMap[key] = ids
	}
	if _, already := ids[e.ID]; already {
		return
	}
	ids[e.ID] = struct{}{}
	ix.values[key] = value

	i := sort.Search(len(ix.sorted), func(i int) bool {
		return !indexLess(ix.sorted[i], indexEntry{value: value, key: key, id: e.ID})
	})
	ix.sorted = append(ix.sorted, indexEntry{})
	copy(ix.sorted[i+1:], ix.sorted[i:])
	ix.sorted[i] = indexEntry{value: value, key: key, id: e.ID}
}

func indexLess(a, b indexEntry) bool {
	if c, ok := a.value.Compare(b.value); ok && c != 0 {
		return c < 0
	}
	return a.id < b.id
}

// Remove removes entity from both structures for its current value; a
// no-op if the property is absent.
func (ix *Index) Remove(e *Entity) {
	value, ok := e.GetProperty(ix.PropertyName)
	if !ok {
		return
	}
	key := valueKey(value)

	if ids, ok := ix.valueMap[key]; ok {
		delete(ids, e.ID)
		if len(ids) == 0 {
			delete(ix.valueMap, key)
			delete(ix.values, key)
		}
	}

	for i, entry := range ix.sorted {
		if entry.id == e.ID && entry.key == key {
			ix.sorted = append(ix.sorted[:i], ix.sorted[i+1:]...)
			break
		}
	}
}

// LookupExact returns a copy of the id set carrying value exactly.
func (ix *Index) LookupExact(value Value) map[string]struct{} {
	key := valueKey(value)
	out := make(map[string]struct{})
	for id := range ix.valueMap[key] {
		out[id] = struct{}{}
	}
	return out
}

// LookupRange returns ids where min <= value <= max; either bound may be
// a nil pointer, meaning unbounded on that side.
// Comparison uses the value-type's natural ordering (with the one-step
// coercion ladder in Value.Compare); if an entry cannot be compared
// against a supplied bound at all, LookupRange returns a TypeMismatch
// error that aborts the call, unlike the row-level filter rejection
// used during select/match.
func (ix *Index) LookupRange(min, max *Value) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	for _, entry := range ix.sorted {
		if min != nil {
			c, ok := entry.value.Compare(*min)
			if !ok {
				return nil, MismatchError(entry.value, *min)
			}
			if c < 0 {
				continue
			}
		}
		if max != nil {
			c, ok := entry.value.Compare(*max)
			if !ok {
				return nil, MismatchError(entry.value, *max)
			}
			if c > 0 {
				continue
			}
		}
		out[entry.id] = struct{}{}
	}
	return out, nil
}
