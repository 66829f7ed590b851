package graph

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/deed-db/deed/deederr"
)

// StoreStats are the coarse statistics exposed by Store.GetStats.
type StoreStats struct {
	TotalEntities    int
	TotalEdges       int
	TotalCollections int
	AvgEntityDegree  float64
	AvgPheromone     float64
}

// Store is the authoritative data structure: the entity table, the edge
// table, adjacency (kept on each Entity), the collection registry, and
// the pheromone-weighted traversal primitives. Entities and edges are
// owned by the Store rather than holding pointers to each other, so a
// single lock boundary covers every mutation.
type Store struct {
	mu sync.RWMutex

	clock Clock
	ids   IDGen
	log   *logrus.Entry

	entities    map[string]*Entity
	edges       map[string]*Edge
	collections map[string]*Collection
}

// NewStore constructs an empty Store. A nil clock/ids/log defaults to
// SystemClock{}, UUIDGen{}, and a fresh logrus.New() logger respectively.
func NewStore(clock Clock, ids IDGen, log *logrus.Entry) *Store {
	if clock == nil {
		clock = SystemClock{}
	}
	if ids == nil {
		ids = UUIDGen{}
	}
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	return &Store{
		clock:       clock,
		ids:         ids,
		log:         log.WithField("component", "store"),
		entities:    make(map[string]*Entity),
		edges:       make(map[string]*Edge),
		collections: make(map[string]*Collection),
	}
}

// AddEntity creates an entity, optionally placing it in a named
// collection (created if absent). If id is non-empty it is used as the
// entity's identifier instead of generating one.
func (s *Store) AddEntity(collectionName string, properties map[string]Value, id string) *Entity {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		id = s.ids.NewID()
	}
	typ := collectionName
	if typ == "" {
		typ = "Unknown"
	}
	now := s.clock.Now()
	e := NewEntity(id, typ, now)
	for k, v := range properties {
		e.SetProperty(k, v, now)
	}
	s.entities[id] = e

	if collectionName != "" {
		col := s.getOrCreateCollectionLocked(collectionName)
		col.AddEntity(e)
	}
	s.log.WithFields(logrus.Fields{"id": id, "collection": collectionName}).Debug("entity added")
	return e
}

// GetEntity looks up an entity by id, marking it accessed as a side
// effect (the entity-level analogue of pheromone reinforcement).
func (s *Store) GetEntity(id string) (*Entity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[id]
	if !ok {
		return nil, false
	}
	e.MarkAccessed(s.clock.Now())
	return e, true
}

// RemoveEntity removes the entity from its collection, deletes every
// incident edge on both sides of adjacency, and erases the entity. The
// cascade is total: no edge referencing the removed entity survives.
func (s *Store) RemoveEntity(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeEntityLocked(id)
}

func (s *Store) removeEntityLocked(id string) bool {
	e, ok := s.entities[id]
	if !ok {
		return false
	}

	if col, ok := s.collections[e.Type]; ok {
		col.RemoveEntity(id)
	}

	for edgeType, targets := range e.outgoing {
		for targetID, edgeID := range targets {
			delete(s.edges, edgeID)
			if target, ok := s.entities[targetID]; ok {
				target.removeIncomingEdge(edgeType, id)
			}
		}
	}
	for edgeType, sources := range e.incoming {
		for sourceID, edgeID := range sources {
			delete(s.edges, edgeID)
			if source, ok := s.entities[sourceID]; ok {
				source.removeOutgoingEdge(edgeType, id)
			}
		}
	}

	delete(s.entities, id)
	s.log.WithField("id", id).Debug("entity removed")
	return true
}

// AddEdge creates a directed edge between two existing entities. Returns
// nil if either endpoint does not exist. Multiple AddEdge calls with the
// same (source, target, type) collapse to a single edge record: a
// repeated call overwrites the adjacency entry AND removes the prior
// edge record from the edge table, so no orphaned record survives a
// re-add on the same triple.
func (s *Store) AddEdge(sourceID, targetID, edgeType string, properties map[string]Value) *Edge {
	s.mu.Lock()
	defer s.mu.Unlock()

	source, ok := s.entities[sourceID]
	if !ok {
		return nil
	}
	target, ok := s.entities[targetID]
	if !ok {
		return nil
	}

	if existingID, ok := source.outgoing[edgeType][targetID]; ok {
		delete(s.edges, existingID)
	}

	now := s.clock.Now()
	id := s.ids.NewID()
	edge := NewEdge(id, sourceID, targetID, edgeType, now)
	for k, v := range properties {
		edge.SetProperty(k, v, now)
	}
	s.edges[id] = edge

	source.setOutgoingEdge(edgeType, targetID, id)
	target.setIncomingEdge(edgeType, sourceID, id)

	s.log.WithFields(logrus.Fields{"source": sourceID, "target": targetID, "type": edgeType}).Debug("edge added")
	return edge
}

// RemoveEdge removes an edge by id from the edge table and from both
// endpoints' adjacency directories, symmetric with AddEdge. Returns
// false if id is unknown.
func (s *Store) RemoveEdge(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	edge, ok := s.edges[id]
	if !ok {
		return false
	}
	delete(s.edges, id)
	if source, ok := s.entities[edge.SourceID]; ok {
		source.removeOutgoingEdge(edge.Type, edge.TargetID)
	}
	if target, ok := s.entities[edge.TargetID]; ok {
		target.removeIncomingEdge(edge.Type, edge.SourceID)
	}
	return true
}

// AllEntities returns every entity in the store regardless of
// collection membership, for unlabeled graph-pattern scans.
func (s *Store) AllEntities() []*Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Entity, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, e)
	}
	return out
}

// GetEdge looks up an edge by id.
func (s *Store) GetEdge(id string) (*Edge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.edges[id]
	return e, ok
}

// GetEdgesBetween returns every edge from source to target, optionally
// filtered by type.
func (s *Store) GetEdgesBetween(sourceID, targetID, edgeType string) []*Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	source, ok := s.entities[sourceID]
	if !ok {
		return nil
	}
	var out []*Edge
	if edgeType != "" {
		if edgeID, ok := source.outgoing[edgeType][targetID]; ok {
			if e, ok := s.edges[edgeID]; ok {
				out = append(out, e)
			}
		}
		return out
	}
	for _, targets := range source.outgoing {
		if edgeID, ok := targets[targetID]; ok {
			if e, ok := s.edges[edgeID]; ok {
				out = append(out, e)
			}
		}
	}
	return out
}

// CreateCollection creates a new collection, or returns the existing one
// by that name.
func (s *Store) CreateCollection(name string, schema Schema) *Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateCollectionLocked(name, schema)
}

func (s *Store) getOrCreateCollectionLocked(name string, schema ...Schema) *Collection {
	if col, ok := s.collections[name]; ok {
		return col
	}
	var sch Schema
	if len(schema) > 0 {
		sch = schema[0]
	}
	col := NewCollection(name, sch, s.log)
	s.collections[name] = col
	return col
}

// GetOrCreateCollection gets the named collection, or creates it with no
// schema hint if absent.
func (s *Store) GetOrCreateCollection(name string) *Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateCollectionLocked(name)
}

// GetCollection retrieves a collection by name.
func (s *Store) GetCollection(name string) (*Collection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.collections[name]
	return col, ok
}

// DropCollection removes a collection and cascades through RemoveEntity
// for every member.
func (s *Store) DropCollection(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, ok := s.collections[name]
	if !ok {
		return false
	}
	for _, id := range col.entityIDs() {
		s.removeEntityLocked(id)
	}
	delete(s.collections, name)
	return true
}

// Traverse performs a breadth-first exploration from startID. The start
// node is never included in the output; a node is visited at most once
// (earliest-depth wins). predicate, if non-nil, filters emission only —
// a non-matching node is not emitted but its successors are still
// queued. Order of emission is BFS order; within one frontier, order is
// unspecified (map iteration order).
func (s *Store) Traverse(startID, edgeType string, dir Direction, maxDepth int, predicate func(*Entity) bool) []*Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.entities[startID]; !ok {
		return nil
	}

	type frame struct {
		id    string
		depth int
	}
	visited := map[string]struct{}{startID: {}}
	queue := []frame{{startID, 0}}
	var result []*Entity

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		entity := s.entities[cur.id]
		if cur.id != startID {
			if predicate == nil || predicate(entity) {
				result = append(result, entity)
			}
		}

		if cur.depth >= maxDepth {
			continue
		}
		for neighborID := range entity.Neighbors(dir, edgeType) {
			if _, seen := visited[neighborID]; seen {
				continue
			}
			visited[neighborID] = struct{}{}
			queue = append(queue, frame{neighborID, cur.depth + 1})
		}
	}
	return result
}

// pathCandidate is an entry in the best-first search frontier used by
// GetStrongestPath.
type pathCandidate struct {
	negPheromone float64
	path         []string
}

// GetStrongestPath finds, among simple paths from source to target over
// edges of the optional given type, one that maximizes the sum of edge
// pheromones. It uses a best-first search on accumulated pheromone sum,
// terminating the first time the target is popped off the frontier
// (lowest negPheromone = highest pheromone sum). This is a greedy
// approximation, not a shortest-path algorithm with an optimality
// guarantee: because the priority is a pheromone sum rather than a
// monotone distance, a later-discovered path could in principle beat
// the one already returned. It is intentionally simple and fast rather
// than exhaustive.
func (s *Store) GetStrongestPath(sourceID, targetID, edgeType string) ([]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.entities[sourceID]; !ok {
		return nil, false
	}
	if _, ok := s.entities[targetID]; !ok {
		return nil, false
	}

	visited := make(map[string]struct{})
	frontier := []pathCandidate{{0, []string{sourceID}}}

	for len(frontier) > 0 {
		bestIdx := 0
		for i, c := range frontier {
			if c.negPheromone < frontier[bestIdx].negPheromone {
				bestIdx = i
			}
		}
		cand := frontier[bestIdx]
		frontier = append(frontier[:bestIdx], frontier[bestIdx+1:]...)

		current := cand.path[len(cand.path)-1]
		if current == targetID {
			return cand.path, true
		}
		if _, seen := visited[current]; seen {
			continue
		}
		visited[current] = struct{}{}

		entity := s.entities[current]
		for neighborID := range entity.Neighbors(DirOut, edgeType) {
			if _, seen := visited[neighborID]; seen {
				continue
			}
			edges := s.edgesBetweenLocked(current, neighborID, edgeType)
			if len(edges) == 0 {
				continue
			}
			newPath := append(append([]string{}, cand.path...), neighborID)
			frontier = append(frontier, pathCandidate{
				negPheromone: cand.negPheromone - edges[0].Pheromone,
				path:         newPath,
			})
		}
	}
	return nil, false
}

func (s *Store) edgesBetweenLocked(sourceID, targetID, edgeType string) []*Edge {
	source, ok := s.entities[sourceID]
	if !ok {
		return nil
	}
	var out []*Edge
	if edgeType != "" {
		if edgeID, ok := source.outgoing[edgeType][targetID]; ok {
			if e, ok := s.edges[edgeID]; ok {
				out = append(out, e)
			}
		}
		return out
	}
	for _, targets := range source.outgoing {
		if edgeID, ok := targets[targetID]; ok {
			if e, ok := s.edges[edgeID]; ok {
				out = append(out, e)
			}
		}
	}
	return out
}

// EvaporatePheromones multiplies every edge's pheromone by
// (1 - decayRate), clamped at MinPheromone. Independent of any trail in
// the stigmergy cache.
func (s *Store) EvaporatePheromones(decayRate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.edges {
		e.Evaporate(decayRate)
	}
}

// GetStats returns coarse store-wide statistics.
func (s *Store) GetStats() StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := StoreStats{
		TotalEntities:    len(s.entities),
		TotalEdges:       len(s.edges),
		TotalCollections: len(s.collections),
	}
	if len(s.entities) > 0 {
		var degreeSum int
		for _, e := range s.entities {
			degreeSum += e.Degree(DirBoth)
		}
		stats.AvgEntityDegree = float64(degreeSum) / float64(len(s.entities))
	}
	if len(s.edges) > 0 {
		var pheromoneSum float64
		for _, e := range s.edges {
			pheromoneSum += e.Pheromone
		}
		stats.AvgPheromone = pheromoneSum / float64(len(s.edges))
	}
	return stats
}

// CheckInvariants validates that adjacency, the edge table, and
// collection membership all agree with each other, returning a
// deederr.ErrInvariantViolation describing the first violation found,
// or nil. Intended for use in tests and debugging, not the hot path.
func (s *Store) CheckInvariants() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for id, e := range s.entities {
		for edgeType, targets := range e.outgoing {
			for targetID, edgeID := range targets {
				if _, ok := s.edges[edgeID]; !ok {
					return deederr.ErrInvariantViolation.New(fmt.Sprintf(
						"outgoing adjacency names missing edge %s (%s -[%s]-> %s)", edgeID, id, edgeType, targetID))
				}
			}
		}
	}
	for id, edge := range s.edges {
		if _, ok := s.entities[edge.SourceID]; !ok {
			return deederr.ErrInvariantViolation.New(fmt.Sprintf("edge %s has missing source %s", id, edge.SourceID))
		}
		if _, ok := s.entities[edge.TargetID]; !ok {
			return deederr.ErrInvariantViolation.New(fmt.Sprintf("edge %s has missing target %s", id, edge.TargetID))
		}
	}
	for name, col := range s.collections {
		for _, id := range col.entityIDs() {
			e, ok := s.entities[id]
			if !ok {
				return deederr.ErrInvariantViolation.New(fmt.Sprintf("collection %s contains missing entity %s", name, id))
			}
			if e.Type != name {
				return deederr.ErrInvariantViolation.New(fmt.Sprintf("entity %s has type %s, not collection %s", id, e.Type, name))
			}
		}
	}
	return nil
}
