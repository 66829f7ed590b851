package graph

import "time"

// Direction selects which adjacency directory neighbors/degree consult.
type Direction int

const (
	DirOut Direction = iota
	DirIn
	DirBoth
)

// Entity is the universal node type: a property bag plus a local
// adjacency view, with properties held as the tagged-union Value type.
type Entity struct {
	ID   string
	Type string

	properties map[string]Value

	outgoing map[string]map[string]string // edgeType -> targetID -> edgeID
	incoming map[string]map[string]string // edgeType -> sourceID -> edgeID

	CreatedAt    time.Time
	UpdatedAt    time.Time
	AccessCount  int64
	LastAccessed time.Time
}

// NewEntity constructs an Entity with empty adjacency directories. The
// graph store is the only caller that should construct one directly;
// everything else goes through Store.AddEntity.
func NewEntity(id, typ string, now time.Time) *Entity {
	return &Entity{
		ID:         id,
		Type:       typ,
		properties: make(map[string]Value),
		outgoing:   make(map[string]map[string]string),
		incoming:   make(map[string]map[string]string),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// SetProperty records value and updates UpdatedAt.
func (e *Entity) SetProperty(key string, value Value, now time.Time) {
	e.properties[key] = value
	e.UpdatedAt = now
}

// GetProperty returns the stored value and whether the key is present
// at all (present-with-null is distinct from absent).
func (e *Entity) GetProperty(key string) (Value, bool) {
	v, ok := e.properties[key]
	return v, ok
}

// Properties returns a shallow copy of the property map; callers may
// not mutate the Entity through it.
func (e *Entity) Properties() map[string]Value {
	out := make(map[string]Value, len(e.properties))
	for k, v := range e.properties {
		out[k] = v
	}
	return out
}

// setOutgoingEdge records target under edgeType in the outgoing
// directory, idempotent for the (type, target) pair.
func (e *Entity) setOutgoingEdge(edgeType, targetID, edgeID string) {
	m, ok := e.outgoing[edgeType]
	if !ok {
		m = make(map[string]string)
		e.outgoing[edgeType] = m
	}
	m[targetID] = edgeID
}

func (e *Entity) setIncomingEdge(edgeType, sourceID, edgeID string) {
	m, ok := e.incoming[edgeType]
	if !ok {
		m = make(map[string]string)
		e.incoming[edgeType] = m
	}
	m[sourceID] = edgeID
}

func (e *Entity) removeOutgoingEdge(edgeType, targetID string) {
	if m, ok := e.outgoing[edgeType]; ok {
		delete(m, targetID)
		if len(m) == 0 {
			delete(e.outgoing, edgeType)
		}
	}
}

func (e *Entity) removeIncomingEdge(edgeType, sourceID string) {
	if m, ok := e.incoming[edgeType]; ok {
		delete(m, sourceID)
		if len(m) == 0 {
			delete(e.incoming, edgeType)
		}
	}
}

// Neighbors returns the set of endpoint ids for the given direction,
// filtered by edgeType if non-empty, else the union across types.
func (e *Entity) Neighbors(dir Direction, edgeType string) map[string]struct{} {
	result := make(map[string]struct{})
	collect := func(dirMap map[string]map[string]string) {
		if edgeType != "" {
			for target := range dirMap[edgeType] {
				result[target] = struct{}{}
			}
			return
		}
		for _, targets := range dirMap {
			for target := range targets {
				result[target] = struct{}{}
			}
		}
	}
	if dir == DirOut || dir == DirBoth {
		collect(e.outgoing)
	}
	if dir == DirIn || dir == DirBoth {
		collect(e.incoming)
	}
	return result
}

// Degree returns the total neighbor count for the given direction.
func (e *Entity) Degree(dir Direction) int {
	count := func(dirMap map[string]map[string]string) int {
		n := 0
		for _, targets := range dirMap {
			n += len(targets)
		}
		return n
	}
	switch dir {
	case DirOut:
		return count(e.outgoing)
	case DirIn:
		return count(e.incoming)
	default:
		return count(e.outgoing) + count(e.incoming)
	}
}

// MarkAccessed increments the access counter and updates LastAccessed.
// Called by Store.GetEntity as the entity-level pheromone mechanism.
func (e *Entity) MarkAccessed(now time.Time) {
	e.AccessCount++
	e.LastAccessed = now
}
