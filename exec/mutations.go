package exec

import (
	"github.com/deed-db/deed/deederr"
	"github.com/deed-db/deed/graph"
	"github.com/deed-db/deed/plan"
)

// executeInsert materializes a single entity from a collection+value-map
// insert, or every node (then every edge between named variables) for a
// pattern-based create.
func (ex *Executor) executeInsert(p plan.Plan) ([]Item, error) {
	if p.InsertCollection != "" && len(p.InsertValues) > 0 {
		e := ex.store.AddEntity(p.InsertCollection, p.InsertValues, "")
		return []Item{{Entity: e}}, nil
	}

	if len(p.Nodes) > 0 {
		created := make(map[string]*graph.Entity, len(p.Nodes))
		order := make([]string, 0, len(p.Nodes))

		for _, node := range p.Nodes {
			label := node.Label
			if label == "" {
				label = "Unknown"
			}
			e := ex.store.AddEntity(label, node.Properties, "")
			if node.Var != "" {
				created[node.Var] = e
				order = append(order, node.Var)
			}
		}

		for _, edgeSpec := range p.Edges {
			from, fromOK := created[edgeSpec.FromVar]
			to, toOK := created[edgeSpec.ToVar]
			if fromOK && toOK {
				ex.store.AddEdge(from.ID, to.ID, edgeSpec.Type, nil)
			}
		}

		items := make([]Item, 0, len(order))
		for _, v := range order {
			items = append(items, Item{Entity: created[v]})
		}
		return items, nil
	}

	return nil, nil
}

// executeUpdate runs the equivalent select, then applies the assignment
// map to every result. Each entity is taken out of its collection (and
// so out of every index) before the change and added back afterward,
// so the indexes hold the new values.
func (ex *Executor) executeUpdate(p plan.Plan) ([]Item, error) {
	items, err := ex.executeSelect(plan.Plan{
		Operation:   plan.OpSelect,
		Collection:  p.Collection,
		Filters:     p.Filters,
		Projections: []string{"*"},
	})
	if err != nil {
		return nil, err
	}

	col, _ := ex.store.GetCollection(p.Collection)
	now := ex.clock.Now()
	for _, item := range items {
		if item.Entity == nil {
			continue
		}
		col.RemoveEntity(item.Entity.ID)
		for key, value := range p.UpdateAssignments {
			item.Entity.SetProperty(key, value, now)
		}
		col.AddEntity(item.Entity)
	}
	return items, nil
}

// executeDelete runs the equivalent select, then removes each result
// from the store.
func (ex *Executor) executeDelete(p plan.Plan) ([]Item, error) {
	items, err := ex.executeSelect(plan.Plan{
		Operation:   plan.OpSelect,
		Collection:  p.Collection,
		Filters:     p.Filters,
		Projections: []string{"*"},
	})
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		if item.Entity != nil {
			ex.store.RemoveEntity(item.Entity.ID)
		}
	}
	return items, nil
}

// executeCreateTable creates a named collection with the given schema.
func (ex *Executor) executeCreateTable(p plan.Plan) ([]Item, error) {
	col := ex.store.CreateCollection(p.Collection, p.Schema)
	return []Item{{Collection: col}}, nil
}

// executeCreateIndex creates a secondary index on an existing
// collection. Raises UnknownCollection if the collection does not
// exist — create_table must run first.
func (ex *Executor) executeCreateIndex(p plan.Plan) ([]Item, error) {
	col, ok := ex.store.GetCollection(p.Collection)
	if !ok {
		return nil, deederr.ErrUnknownCollection.New(p.Collection)
	}
	col.CreateIndex(p.IndexProperty)
	return []Item{{Collection: col}}, nil
}

// GetStats returns the executor's running counters.
func (ex *Executor) GetStats() Stats {
	return ex.stats
}
