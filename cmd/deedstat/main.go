// Command deedstat is a small one-shot demo: it seeds a handful of
// entities and edges, runs a few queries through the engine, and
// prints the resulting store/cache/colony statistics.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/deed-db/deed"
	"github.com/deed-db/deed/graph"
	"github.com/deed-db/deed/plan"
)

var (
	collectionName = "Person"
	configPath     = flag.String("config", "", "path to a YAML config file overriding the engine's default tuning")
)

func main() {
	flag.Parse()

	cfg := deed.Config{}
	opts := []deed.Option{}
	if *configPath != "" {
		loaded, err := deed.LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "deedstat: load config failed:", err)
			os.Exit(1)
		}
		cfg = loaded
		opts = append(opts,
			deed.WithStigmergy(cfg.MaxTrails, cfg.EvaporationRate, cfg.StalenessWindow),
			deed.WithAntColony(cfg.NumAnts, cfg.NumIterations),
			deed.WithGraphStats(cfg.GraphStats),
		)
	}
	e := deed.New(opts...)

	if err := seed(e); err != nil {
		fmt.Fprintln(os.Stderr, "deedstat: seed failed:", err)
		os.Exit(1)
	}

	if err := run(e); err != nil {
		fmt.Fprintln(os.Stderr, "deedstat: query failed:", err)
		os.Exit(1)
	}

	printStats(e)
}

func seed(e *deed.Engine) error {
	if _, err := e.Execute(plan.Plan{
		Operation:  plan.OpCreateTable,
		Collection: collectionName,
	}); err != nil {
		return err
	}

	people := []map[string]graph.Value{
		{"name": graph.NewValue("Jane Doe"), "age": graph.NewValue(int64(34))},
		{"name": graph.NewValue("John Doe"), "age": graph.NewValue(int64(41))},
	}

	var created []string
	for _, props := range people {
		items, err := e.Execute(plan.Plan{
			Operation:        plan.OpInsert,
			InsertCollection: collectionName,
			InsertValues:     props,
		})
		if err != nil {
			return err
		}
		created = append(created, items[0].Entity.ID)
	}

	if len(created) == 2 {
		e.Store.AddEdge(created[0], created[1], "KNOWS", nil)
	}
	return nil
}

func run(e *deed.Engine) error {
	items, err := e.Execute(plan.Plan{
		Operation:  plan.OpSelect,
		Collection: collectionName,
		Filters: []plan.Filter{
			{Property: "age", Comparator: plan.CmpGt, Literal: graph.NewValue(int64(30))},
		},
		Projections: []string{"name"},
	})
	if err != nil {
		return err
	}
	for _, item := range items {
		fmt.Println("match:", item.Row["name"].Value.Raw())
	}

	e.Maintain(0.05)
	return nil
}

func printStats(e *deed.Engine) {
	stats := e.GetStats()
	fmt.Printf("store: entities=%d edges=%d collections=%d avg_degree=%.2f avg_pheromone=%.2f\n",
		stats.Store.TotalEntities, stats.Store.TotalEdges, stats.Store.TotalCollections,
		stats.Store.AvgEntityDegree, stats.Store.AvgPheromone)
	fmt.Printf("cache: trails=%d hits=%d misses=%d hit_rate=%.2f\n",
		stats.Cache.TotalTrails, stats.Cache.CacheHits, stats.Cache.CacheMisses, stats.Cache.HitRate())
	fmt.Printf("colony: optimizations=%d avg_plans_explored=%.2f avg_improvement_ratio=%.2f\n",
		stats.Colony.TotalOptimizations, stats.Colony.AvgPlansExplored, stats.Colony.AvgImprovementRatio)
	fmt.Printf("executor: queries=%d avg_latency_ms=%.3f\n",
		stats.Executor.TotalQueries, stats.Executor.AvgExecutionTimeMs())
}
