// Package exec implements the query executor: it dispatches a plan.Plan
// to the graph store, consulting the stigmergy cache and ant-colony
// explorer to choose an execution strategy for select/match queries.
package exec

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/deed-db/deed/colony"
	"github.com/deed-db/deed/deederr"
	"github.com/deed-db/deed/graph"
	"github.com/deed-db/deed/plan"
	"github.com/deed-db/deed/stigmergy"
)

// Cell is one projected field: either a scalar Value, or (for a bound
// pattern variable projected whole, e.g. "p") the entity itself.
type Cell struct {
	Value  graph.Value
	Entity *graph.Entity
}

// Row is a projected result record, keyed by projection expression.
type Row map[string]Cell

// Item is one element of a result list. Exactly one of Entity, Row, or
// Collection is set, depending on what the operation produces.
type Item struct {
	Entity     *graph.Entity
	Row        Row
	Collection *graph.Collection
}

// Stats are the executor-wide counters exposed by GetStats.
type Stats struct {
	TotalQueries         int64
	CacheHits            int64
	CacheMisses          int64
	TotalExecutionTimeMs float64
}

// AvgExecutionTimeMs is total_execution_time_ms / total_queries, or 0.
func (s Stats) AvgExecutionTimeMs() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return s.TotalExecutionTimeMs / float64(s.TotalQueries)
}

// Executor ties the graph store, the stigmergy cache, and the ant-colony
// explorer together to run plans.
type Executor struct {
	store    *graph.Store
	cache    *stigmergy.Cache
	explorer *colony.Explorer

	graphStats colony.GraphStats
	clock      graph.Clock
	log        *logrus.Entry

	stats Stats
}

// New constructs an Executor. A nil clock defaults to graph.SystemClock{}.
func New(store *graph.Store, cache *stigmergy.Cache, explorer *colony.Explorer, graphStats colony.GraphStats, clock graph.Clock, log *logrus.Entry) *Executor {
	if clock == nil {
		clock = graph.SystemClock{}
	}
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	return &Executor{
		store:      store,
		cache:      cache,
		explorer:   explorer,
		graphStats: graphStats,
		clock:      clock,
		log:        log.WithField("component", "executor"),
	}
}

// Execute dispatches p to the matching operation handler.
func (ex *Executor) Execute(p plan.Plan) ([]Item, error) {
	start := time.Now()

	var (
		items []Item
		err   error
	)
	switch p.Operation {
	case plan.OpSelect:
		items, err = ex.executeSelect(p)
	case plan.OpMatch:
		items, err = ex.executeMatch(p)
	case plan.OpInsert, plan.OpCreate:
		items, err = ex.executeInsert(p)
	case plan.OpUpdate:
		items, err = ex.executeUpdate(p)
	case plan.OpDelete:
		items, err = ex.executeDelete(p)
	case plan.OpCreateTable:
		items, err = ex.executeCreateTable(p)
	case plan.OpCreateIndex:
		items, err = ex.executeCreateIndex(p)
	default:
		return nil, deederr.ErrUnsupportedOperation.New(string(p.Operation))
	}

	ex.stats.TotalQueries++
	ex.stats.TotalExecutionTimeMs += float64(time.Since(start)) / float64(time.Millisecond)
	return items, err
}

// executeSelect resolves the target collection, consults the cache (and
// falls back to the ant-colony explorer on a miss) for a filter-order
// hint, scans or index-looks-up accordingly, row-filters, limits, and
// projects.
func (ex *Executor) executeSelect(p plan.Plan) ([]Item, error) {
	start := time.Now()

	col, ok := ex.store.GetCollection(p.Collection)
	if !ok {
		return nil, deederr.ErrUnknownCollection.New(p.Collection)
	}

	execPlan, hit := ex.cache.BestPlan(p)
	if hit {
		ex.stats.CacheHits++
	} else {
		ex.stats.CacheMisses++
		execPlan = ex.explorer.Optimize(p, ex.graphStats)
	}

	filterOrder := execPlan.Hints.FilterOrder
	if len(filterOrder) == 0 {
		filterOrder = p.FilterKeys()
	}

	candidates, err := ex.scanOrLookup(col, p.Filters, filterOrder)
	if err != nil {
		return nil, err
	}

	var matched []*graph.Entity
	for _, e := range candidates {
		if matchesAllFilters(e, p.Filters) {
			matched = append(matched, e)
		}
	}

	if p.Limit > 0 && len(matched) > p.Limit {
		matched = matched[:p.Limit]
	}

	items := projectEntities(matched, p.Projections)

	latencyMs := float64(time.Since(start)) / float64(time.Millisecond)
	ex.cache.AddTrail(p, execPlan, latencyMs, true)
	return items, nil
}

// scanOrLookup picks the first filterOrder property whose comparator is
// one of {=, <, >} and pushes it into an index lookup; every other
// filter (including the pushed one, for correctness independent of the
// hint) is still re-verified row by row by the caller. Equality is
// looked up as the closed range [literal, literal] so that values
// equal only after coercion are found too. Falls back to a full
// collection scan if no filter is pushable, or if the index holds a
// value that cannot be compared with the literal (such rows are then
// rejected by the row-level filters rather than aborting the query).
func (ex *Executor) scanOrLookup(col *graph.Collection, filters []plan.Filter, filterOrder []string) ([]*graph.Entity, error) {
	for _, property := range filterOrder {
		f, ok := findPushableFilter(filters, property)
		if !ok {
			continue
		}
		lit := f.Literal
		var (
			candidates []*graph.Entity
			err        error
		)
		switch f.Comparator {
		case plan.CmpEq:
			candidates, err = col.LookupRange(f.Property, &lit, &lit)
		case plan.CmpGt:
			candidates, err = col.LookupRange(f.Property, &lit, nil)
		case plan.CmpLt:
			candidates, err = col.LookupRange(f.Property, nil, &lit)
		}
		if err != nil {
			return col.Scan(), nil
		}
		return candidates, nil
	}
	return col.Scan(), nil
}

func findPushableFilter(filters []plan.Filter, property string) (plan.Filter, bool) {
	for _, f := range filters {
		if f.Property != property {
			continue
		}
		switch f.Comparator {
		case plan.CmpEq, plan.CmpLt, plan.CmpGt:
			return f, true
		}
	}
	return plan.Filter{}, false
}

// matchesAllFilters evaluates every predicate against e, rejecting the
// row (returning false) if any property is absent or fails to compare
// even after the one-coercion ladder in graph.Value.Compare.
func matchesAllFilters(e *graph.Entity, filters []plan.Filter) bool {
	for _, f := range filters {
		value, ok := e.GetProperty(f.Property)
		if !ok {
			return false
		}
		c, ok := value.Compare(f.Literal)
		if !ok {
			return false
		}
		if !compareSatisfies(c, f.Comparator) {
			return false
		}
	}
	return true
}

func compareSatisfies(c int, cmp plan.Comparator) bool {
	switch cmp {
	case plan.CmpEq:
		return c == 0
	case plan.CmpNeq:
		return c != 0
	case plan.CmpLt:
		return c < 0
	case plan.CmpLte:
		return c <= 0
	case plan.CmpGt:
		return c > 0
	case plan.CmpGte:
		return c >= 0
	default:
		return false
	}
}

// projectEntities applies the projection list to a flat entity result
// set. "*" (or an empty list) emits the whole entity; any other
// expression is treated as a bare property name and emits {expr: value}.
func projectEntities(entities []*graph.Entity, projections []string) []Item {
	if len(projections) == 0 || (len(projections) == 1 && projections[0] == "*") {
		items := make([]Item, len(entities))
		for i, e := range entities {
			items[i] = Item{Entity: e}
		}
		return items
	}

	items := make([]Item, len(entities))
	for i, e := range entities {
		row := make(Row, len(projections))
		for _, expr := range projections {
			v, _ := e.GetProperty(expr)
			row[expr] = Cell{Value: v}
		}
		items[i] = Item{Row: row}
	}
	return items
}
