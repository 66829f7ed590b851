package graph

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Schema is an advisory property-name -> declared-kind hint; the entity
// never validates against it.
type Schema map[string]string

// CollectionStats are the rolling statistics kept per collection for use
// by the ant-colony cost model.
type CollectionStats struct {
	Count      int
	MeanProps  float64
	MeanDegree float64
}

// Collection holds a typed group of entities, their secondary indexes,
// and rolling statistics.
type Collection struct {
	Name   string
	Schema Schema

	mu       sync.RWMutex
	entities map[string]*Entity
	indexes  map[string]*Index
	stats    CollectionStats

	log *logrus.Entry
}

// NewCollection constructs an empty Collection.
func NewCollection(name string, schema Schema, log *logrus.Entry) *Collection {
	if schema == nil {
		schema = Schema{}
	}
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	return &Collection{
		Name:     name,
		Schema:   schema,
		entities: make(map[string]*Entity),
		indexes:  make(map[string]*Index),
		log:      log.WithField("collection", name),
	}
}

// AddEntity sets entity.Type to the collection name, inserts it, updates
// every existing index, and recomputes stats.
func (c *Collection) AddEntity(e *Entity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e.Type = c.Name
	c.entities[e.ID] = e
	for _, idx := range c.indexes {
		idx.Insert(e)
	}
	c.updateStatsLocked()
}

// RemoveEntity removes the entity from the collection and every index,
// and updates stats. It does not touch the graph store's edge/adjacency
// tables — the store coordinates cascades (§4.4).
func (c *Collection) RemoveEntity(id string) (*Entity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entities[id]
	if !ok {
		return nil, false
	}
	delete(c.entities, id)
	for _, idx := range c.indexes {
		idx.Remove(e)
	}
	c.updateStatsLocked()
	return e, true
}

func (c *Collection) GetEntity(id string) (*Entity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entities[id]
	return e, ok
}

// Scan returns all entities; iteration order is unspecified.
func (c *Collection) Scan() []*Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Entity, 0, len(c.entities))
	for _, e := range c.entities {
		out = append(out, e)
	}
	return out
}

// Filter returns entities matching predicate, unspecified order.
func (c *Collection) Filter(predicate func(*Entity) bool) []*Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*Entity
	for _, e := range c.entities {
		if predicate(e) {
			out = append(out, e)
		}
	}
	return out
}

// CreateIndex is idempotent: on first creation it populates the index
// from every entity currently in the collection (lazy-indexing friendly
// since LookupEqual and LookupRange create the index automatically on
// first use).
func (c *Collection) CreateIndex(property string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.createIndexLocked(property)
}

func (c *Collection) createIndexLocked(property string) *Index {
	if idx, ok := c.indexes[property]; ok {
		return idx
	}
	idx := NewIndex(property)
	for _, e := range c.entities {
		idx.Insert(e)
	}
	c.indexes[property] = idx
	c.log.WithField("property", property).Debug("index created")
	return idx
}

// DropIndex is idempotent.
func (c *Collection) DropIndex(property string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.indexes, property)
}

// LookupEqual performs an indexed equality lookup, auto-creating the
// index on first use.
func (c *Collection) LookupEqual(property string, value Value) []*Entity {
	c.mu.Lock()
	idx := c.createIndexLocked(property)
	ids := idx.LookupExact(value)
	c.mu.Unlock()
	return c.resolve(ids)
}

// LookupRange performs an indexed range lookup, auto-creating the index
// on first use. Either bound may be nil for unbounded.
func (c *Collection) LookupRange(property string, min, max *Value) ([]*Entity, error) {
	c.mu.Lock()
	idx := c.createIndexLocked(property)
	ids, err := idx.LookupRange(min, max)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return c.resolve(ids), nil
}

func (c *Collection) resolve(ids map[string]struct{}) []*Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Entity, 0, len(ids))
	for id := range ids {
		if e, ok := c.entities[id]; ok {
			out = append(out, e)
		}
	}
	return out
}

func (c *Collection) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entities)
}

func (c *Collection) Stats() CollectionStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// updateStatsLocked recomputes count/mean-properties/mean-degree. Caller
// must hold c.mu.
func (c *Collection) updateStatsLocked() {
	n := len(c.entities)
	if n == 0 {
		c.stats = CollectionStats{}
		return
	}
	var props, degree int
	for _, e := range c.entities {
		props += len(e.properties)
		degree += e.Degree(DirBoth)
	}
	c.stats = CollectionStats{
		Count:      n,
		MeanProps:  float64(props) / float64(n),
		MeanDegree: float64(degree) / float64(n),
	}
}

// entityIDs returns the ids of every member, used by Store.DropCollection
// to drive the remove_entity cascade.
func (c *Collection) entityIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.entities))
	for id := range c.entities {
		out = append(out, id)
	}
	return out
}
