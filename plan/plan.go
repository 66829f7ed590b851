// Package plan represents the structured query plan the executor
// dispatches on: a typed Go struct rather than a loosely-typed map, so
// every operation's shape is checked at compile time.
package plan

import (
	"encoding/binary"
	"sort"

	"github.com/mitchellh/hashstructure"

	"github.com/deed-db/deed/graph"
)

// Operation enumerates the dispatchable plan kinds.
type Operation string

const (
	OpSelect       Operation = "select"
	OpMatch        Operation = "match"
	OpInsert       Operation = "insert"
	OpCreate       Operation = "create"
	OpUpdate       Operation = "update"
	OpDelete       Operation = "delete"
	OpCreateTable  Operation = "create_table"
	OpCreateIndex  Operation = "create_index"
)

// Comparator enumerates the filter predicate operators.
type Comparator string

const (
	CmpEq  Comparator = "="
	CmpNeq Comparator = "!="
	CmpLt  Comparator = "<"
	CmpLte Comparator = "<="
	CmpGt  Comparator = ">"
	CmpGte Comparator = ">="
)

// TraversalStrategy tags the preferred pattern-walk strategy; advisory
// only (§4.5: "the executor must produce identical result sets
// regardless of hints").
type TraversalStrategy string

const (
	StrategyBFS           TraversalStrategy = "bfs"
	StrategyDFS           TraversalStrategy = "dfs"
	StrategyBidirectional TraversalStrategy = "bidirectional"
)

// Filter is one (property, comparator, literal) predicate. For a select
// plan, Property is a bare property name ("age"). For a match plan,
// Property may be dotted ("p.age") to scope a WHERE-clause filter to a
// specific pattern variable, mirroring the Cypher surface the pattern
// vocabulary is borrowed from.
type Filter struct {
	Property   string
	Comparator Comparator
	Literal    graph.Value
}

// PatternNode is one node reference in a match pattern.
type PatternNode struct {
	Var        string
	Label      string
	Properties map[string]graph.Value
}

// Direction mirrors graph.Direction at the plan boundary so this package
// does not need to know how the store represents adjacency internally.
type Direction string

const (
	DirIn  Direction = "in"
	DirOut Direction = "out"
)

// PatternEdge is one edge step in a match pattern.
type PatternEdge struct {
	Var       string
	Type      string
	Direction Direction
	FromVar   string
	ToVar     string
}

// Hints are advisory planner hints (§4.5): they may change the
// execution strategy but never the result set.
type Hints struct {
	FilterOrder       []string
	UseIndexes        []string
	JoinOrder         []string
	TraversalStrategy TraversalStrategy
}

// Plan is the structured record the executor dispatches on.
type Plan struct {
	Operation  Operation
	Collection string

	Filters     []Filter
	Projections []string
	Limit       int // 0 means unset/unbounded

	Nodes []PatternNode
	Edges []PatternEdge

	InsertValues     map[string]graph.Value
	InsertCollection string

	UpdateAssignments map[string]graph.Value

	Schema        graph.Schema
	IndexProperty string

	Hints Hints
}

// canonicalFilter/canonicalNode/canonicalEdge are plain-Go-typed mirrors
// used only by MarshalCanonical, since graph.Value hides its scalar
// behind an unexported field that hashstructure's reflection can't see
// into; flattening it through Value.Raw() first gives hashstructure a
// plain interface{} it can hash directly.
type canonicalPlan struct {
	Operation     Operation
	Collection    string
	Filters       []canonicalFilter
	Projections   []string
	Limit         int
	Nodes         []canonicalNode
	Edges         []canonicalEdge
	Insert        map[string]interface{}
	InsertColl    string
	Update        map[string]interface{}
	Schema        map[string]string
	IndexProperty string
	Hints         canonicalHints
}

type canonicalFilter struct {
	Property   string
	Comparator Comparator
	Literal    interface{}
}

type canonicalNode struct {
	Var        string
	Label      string
	Properties map[string]interface{}
}

type canonicalEdge struct {
	Var       string
	Type      string
	Direction Direction
	FromVar   string
	ToVar     string
}

type canonicalHints struct {
	FilterOrder       []string
	UseIndexes        []string
	JoinOrder         []string
	TraversalStrategy TraversalStrategy
}

func valuesToInterfaceMap(m map[string]graph.Value) map[string]interface{} {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v.Raw()
	}
	return out
}

// MarshalCanonical produces a deterministic structural fingerprint of
// the plan via hashstructure.Hash, which hashes map entries independent
// of iteration order, so field and key order never affects the result.
// Used as the plan-fingerprint input by the stigmergy cache.
func (p Plan) MarshalCanonical() ([]byte, error) {
	cp := canonicalPlan{
		Operation:     p.Operation,
		Collection:    p.Collection,
		Limit:         p.Limit,
		InsertColl:    p.InsertCollection,
		Insert:        valuesToInterfaceMap(p.InsertValues),
		Update:        valuesToInterfaceMap(p.UpdateAssignments),
		IndexProperty: p.IndexProperty,
		Hints: canonicalHints{
			FilterOrder:       p.Hints.FilterOrder,
			UseIndexes:        p.Hints.UseIndexes,
			JoinOrder:         p.Hints.JoinOrder,
			TraversalStrategy: p.Hints.TraversalStrategy,
		},
	}
	cp.Projections = append(cp.Projections, p.Projections...)

	for _, f := range p.Filters {
		cp.Filters = append(cp.Filters, canonicalFilter{
			Property:   f.Property,
			Comparator: f.Comparator,
			Literal:    f.Literal.Raw(),
		})
	}
	for _, n := range p.Nodes {
		cp.Nodes = append(cp.Nodes, canonicalNode{
			Var:        n.Var,
			Label:      n.Label,
			Properties: valuesToInterfaceMap(n.Properties),
		})
	}
	for _, e := range p.Edges {
		cp.Edges = append(cp.Edges, canonicalEdge{
			Var: e.Var, Type: e.Type, Direction: e.Direction,
			FromVar: e.FromVar, ToVar: e.ToVar,
		})
	}
	if len(p.Schema) > 0 {
		cp.Schema = map[string]string(p.Schema)
	}

	sum, err := hashstructure.Hash(cp, nil)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8)
	binary.BigEndian.PutUint64(out, sum)
	return out, nil
}

// FilterKeys returns the sorted list of filter property names, used by
// the stigmergy cache's query-pattern fingerprint (§4.6: "sorted filter
// keys... literal values are excluded").
func (p Plan) FilterKeys() []string {
	keys := make([]string, 0, len(p.Filters))
	for _, f := range p.Filters {
		keys = append(keys, f.Property)
	}
	sort.Strings(keys)
	return keys
}

// JoinsList returns the join-order hint, defaulting to an empty slice
// (never nil) for stable fingerprinting.
func (p Plan) JoinsList() []string {
	if p.Hints.JoinOrder == nil {
		return []string{}
	}
	return p.Hints.JoinOrder
}

// TraversalsList returns a normalized description of the pattern's edge
// steps (type+direction pairs) for fingerprinting, ignoring variable
// names (which are query-instance-specific, not pattern-shape).
func (p Plan) TraversalsList() []string {
	out := make([]string, 0, len(p.Edges))
	for _, e := range p.Edges {
		out = append(out, string(e.Type)+":"+string(e.Direction))
	}
	return out
}

// Pattern is the normalized, literal-free shape of a query used for the
// stigmergy cache's query-pattern fingerprint (§4.6: "{operation,
// collection, sorted filter keys, joins list, traversals list}. Literal
// values are excluded.").
type Pattern struct {
	Operation  Operation
	Collection string
	FilterKeys []string
	Joins      []string
	Traversals []string
}

// Pattern derives the Plan's normalized query pattern.
func (p Plan) Pattern() Pattern {
	return Pattern{
		Operation:  p.Operation,
		Collection: p.Collection,
		FilterKeys: p.FilterKeys(),
		Joins:      p.JoinsList(),
		Traversals: p.TraversalsList(),
	}
}

// MarshalCanonical hashes the pattern's struct fields directly: every
// field is already a scalar or pre-sorted slice, so no flattening step
// is needed before handing it to hashstructure.Hash.
func (p Pattern) MarshalCanonical() ([]byte, error) {
	sum, err := hashstructure.Hash(p, nil)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8)
	binary.BigEndian.PutUint64(out, sum)
	return out, nil
}
