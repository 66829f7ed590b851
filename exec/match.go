package exec

import (
	"strings"
	"time"

	"github.com/deed-db/deed/graph"
	"github.com/deed-db/deed/plan"
)

// matchState is one partial walk of a pattern: the variable bindings
// accumulated so far, and the entity the next edge step traverses from.
type matchState struct {
	bindings map[string]*graph.Entity
	current  *graph.Entity
}

// executeMatch walks a graph pattern: an ordered list of nodes and the
// edges connecting them. The first node seeds the candidate set; each
// subsequent edge step fans every in-progress walk out across all of
// its surviving traversal targets, filtered by the next node's
// constraints, so a step with several matching neighbors yields one
// continuation per neighbor rather than just the first. A walk is
// emitted only if every edge step finds at least one surviving target.
func (ex *Executor) executeMatch(p plan.Plan) ([]Item, error) {
	start := time.Now()

	if len(p.Nodes) == 0 {
		return nil, nil
	}

	first := p.Nodes[0]
	starts := ex.startCandidates(first)
	starts = filterByNode(starts, first)
	starts = filterByVarWhere(starts, p.Filters, first.Var)

	states := make([]matchState, 0, len(starts))
	for _, startEntity := range starts {
		states = append(states, matchState{
			bindings: map[string]*graph.Entity{first.Var: startEntity},
			current:  startEntity,
		})
	}

	for i, edgeSpec := range p.Edges {
		dir := graph.DirOut
		if edgeSpec.Direction == plan.DirIn {
			dir = graph.DirIn
		}

		next := make([]matchState, 0, len(states))
		for _, state := range states {
			frontier := ex.store.Traverse(state.current.ID, edgeSpec.Type, dir, 1, nil)

			if i+1 < len(p.Nodes) {
				nextNode := p.Nodes[i+1]
				frontier = filterByNode(frontier, nextNode)
				frontier = filterByVarWhere(frontier, p.Filters, edgeSpec.ToVar)
			}

			for _, target := range frontier {
				branch := make(map[string]*graph.Entity, len(state.bindings)+1)
				for k, v := range state.bindings {
					branch[k] = v
				}
				if edgeSpec.ToVar != "" {
					branch[edgeSpec.ToVar] = target
				}
				next = append(next, matchState{bindings: branch, current: target})
			}
		}
		states = next
	}

	var bindingsList []map[string]*graph.Entity
	for _, state := range states {
		if len(state.bindings) == len(p.Nodes) {
			bindingsList = append(bindingsList, state.bindings)
		}
	}

	if p.Limit > 0 && len(bindingsList) > p.Limit {
		bindingsList = bindingsList[:p.Limit]
	}

	items := projectBindings(bindingsList, p.Projections)

	execPlan := plan.Plan{Operation: plan.OpMatch, Hints: p.Hints}
	latencyMs := float64(time.Since(start)) / float64(time.Millisecond)
	ex.cache.AddTrail(p, execPlan, latencyMs, true)

	return items, nil
}

func (ex *Executor) startCandidates(node plan.PatternNode) []*graph.Entity {
	if node.Label == "" {
		return ex.store.AllEntities()
	}
	col, ok := ex.store.GetCollection(node.Label)
	if !ok {
		return nil
	}
	return col.Scan()
}

func filterByNode(entities []*graph.Entity, node plan.PatternNode) []*graph.Entity {
	var out []*graph.Entity
	for _, e := range entities {
		if node.Label != "" && e.Type != node.Label {
			continue
		}
		if !hasAllProperties(e, node.Properties) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func hasAllProperties(e *graph.Entity, properties map[string]graph.Value) bool {
	for k, want := range properties {
		got, ok := e.GetProperty(k)
		if !ok || !got.Equal(want) {
			return false
		}
	}
	return true
}

// filterByVarWhere applies the subset of p.Filters scoped to variable
// v (Property of the form "v.prop") against each candidate.
func filterByVarWhere(entities []*graph.Entity, filters []plan.Filter, v string) []*graph.Entity {
	scoped := filtersForVar(filters, v)
	if len(scoped) == 0 {
		return entities
	}
	var out []*graph.Entity
	for _, e := range entities {
		if matchesAllFilters(e, scoped) {
			out = append(out, e)
		}
	}
	return out
}

func filtersForVar(filters []plan.Filter, v string) []plan.Filter {
	if v == "" {
		return nil
	}
	prefix := v + "."
	var out []plan.Filter
	for _, f := range filters {
		if !strings.HasPrefix(f.Property, prefix) {
			continue
		}
		out = append(out, plan.Filter{
			Property:   strings.TrimPrefix(f.Property, prefix),
			Comparator: f.Comparator,
			Literal:    f.Literal,
		})
	}
	return out
}

// projectBindings maps each match's variable bindings through the
// projection list: "var" emits the whole bound entity, "var.prop" emits
// its property.
func projectBindings(bindingsList []map[string]*graph.Entity, projections []string) []Item {
	items := make([]Item, 0, len(bindingsList))
	for _, bindings := range bindingsList {
		if len(projections) == 0 {
			row := make(Row, len(bindings))
			for v, e := range bindings {
				row[v] = Cell{Entity: e}
			}
			items = append(items, Item{Row: row})
			continue
		}

		row := make(Row, len(projections))
		for _, expr := range projections {
			v, prop, hasDot := strings.Cut(expr, ".")
			entity, bound := bindings[v]
			if !bound {
				continue
			}
			if !hasDot {
				row[expr] = Cell{Entity: entity}
				continue
			}
			value, _ := entity.GetProperty(prop)
			row[expr] = Cell{Value: value}
		}
		items = append(items, Item{Row: row})
	}
	return items
}
