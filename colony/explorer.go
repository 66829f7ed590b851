// Package colony implements the ant-colony plan explorer: when the
// stigmergy cache has no good trail for a query, a colony of lightweight
// "ants" each try a candidate execution plan, and the best-performing
// ants deposit new trails.
package colony

import (
	"math"
	"math/rand"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/deed-db/deed/plan"
	"github.com/deed-db/deed/stigmergy"
)

// GraphStats are the coarse cost-model inputs the explorer consults,
// analogous to ant_colony.py's graph_stats dict.
type GraphStats struct {
	AvgScanCost     float64
	AvgLookupCost   float64
	AvgTraverseCost float64
}

// DefaultGraphStats mirrors the Python cost model's fallback constants
// (graph_stats.get(key, default)).
func DefaultGraphStats() GraphStats {
	return GraphStats{AvgScanCost: 100.0, AvgLookupCost: 10.0, AvgTraverseCost: 50.0}
}

var traversalStrategies = []plan.TraversalStrategy{
	plan.StrategyBFS, plan.StrategyDFS, plan.StrategyBidirectional,
}

// Stats are the optimizer-wide counters exposed by GetStats.
type Stats struct {
	TotalOptimizations  int64
	AvgPlansExplored    float64
	AvgImprovementRatio float64
}

// Explorer deploys ants across num_iterations rounds to find a plan for
// a query the cache does not already have a strong trail for.
type Explorer struct {
	numAnts       int
	numIterations int

	cache *stigmergy.Cache
	rand  *rand.Rand
	log   *logrus.Entry

	stats Stats
}

// Config configures ant count and iteration count.
type Config struct {
	NumAnts       int
	NumIterations int
}

// DefaultConfig mirrors ant_colony.py's constructor defaults.
func DefaultConfig() Config {
	return Config{NumAnts: 20, NumIterations: 3}
}

// NewExplorer constructs an Explorer. A zero-value Config is replaced
// with DefaultConfig(). rnd must not be nil: the caller supplies the
// source so the colony never touches math/rand's shared global state.
func NewExplorer(cfg Config, cache *stigmergy.Cache, rnd *rand.Rand, log *logrus.Entry) *Explorer {
	if cfg.NumAnts == 0 && cfg.NumIterations == 0 {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	return &Explorer{
		numAnts:       cfg.NumAnts,
		numIterations: cfg.NumIterations,
		cache:         cache,
		rand:          rnd,
		log:           log.WithField("component", "colony"),
	}
}

type planCost struct {
	plan plan.Plan
	cost float64
}

// Optimize runs the full ACO search and returns the best plan found
// across every ant and iteration. The cache is seeded with the top 20%
// (at least one) of each iteration's ants as a side effect.
func (ex *Explorer) Optimize(query plan.Plan, graphStats GraphStats) plan.Plan {
	var (
		bestPlan plan.Plan
		bestCost = math.Inf(1)
		allPlans []planCost
	)

	for iteration := 0; iteration < ex.numIterations; iteration++ {
		sensitivity := 0.5 + (float64(iteration)/float64(ex.numIterations))*0.3

		iterationPlans := make([]planCost, 0, ex.numAnts)
		for ant := 0; ant < ex.numAnts; ant++ {
			p, cost := ex.explore(query, graphStats, sensitivity)
			pc := planCost{p, cost}
			iterationPlans = append(iterationPlans, pc)
			allPlans = append(allPlans, pc)

			if cost < bestCost {
				bestCost = cost
				bestPlan = p
			}
		}

		sort.Slice(iterationPlans, func(i, j int) bool {
			return iterationPlans[i].cost < iterationPlans[j].cost
		})

		topCount := ex.numAnts / 5
		if topCount < 1 {
			topCount = 1
		}
		if topCount > len(iterationPlans) {
			topCount = len(iterationPlans)
		}
		for _, pc := range iterationPlans[:topCount] {
			ex.cache.AddTrail(query, pc.plan, pc.cost, true)
		}
		ex.log.WithField("iteration", iteration).Debug("ant colony iteration complete")
	}

	ex.stats.TotalOptimizations++
	ex.stats.AvgPlansExplored = float64(len(allPlans))
	if worst := worstCost(allPlans); worst > 0 && bestCost > 0 {
		ex.stats.AvgImprovementRatio = worst / bestCost
	}

	return bestPlan
}

func worstCost(plans []planCost) float64 {
	var worst float64
	for _, pc := range plans {
		if pc.cost > worst {
			worst = pc.cost
		}
	}
	return worst
}

// explore runs one ant: with probability sensitivity, vary the cache's
// top trail for this query; otherwise synthesize a random candidate.
func (ex *Explorer) explore(query plan.Plan, graphStats GraphStats, sensitivity float64) (plan.Plan, float64) {
	trails := ex.cache.Lookup(query)

	var candidate plan.Plan
	if len(trails) > 0 && ex.rand.Float64() < sensitivity {
		candidate = ex.varyPlan(trails[0].Plan, query)
	} else {
		candidate = ex.randomPlan(query)
	}

	cost := ex.estimateCost(candidate, graphStats)
	return candidate, cost
}

// randomPlan synthesizes a fresh candidate by shuffling join/filter
// order, sampling a random subset of indexable properties (the query's
// own filtered properties — only a filtered property is worth an
// index), and picking a random traversal strategy.
func (ex *Explorer) randomPlan(query plan.Plan) plan.Plan {
	p := query
	p.Hints = plan.Hints{}

	joins := append([]string{}, query.Hints.JoinOrder...)
	ex.rand.Shuffle(len(joins), func(i, j int) { joins[i], joins[j] = joins[j], joins[i] })
	p.Hints.JoinOrder = joins

	filterKeys := query.FilterKeys()
	ex.rand.Shuffle(len(filterKeys), func(i, j int) { filterKeys[i], filterKeys[j] = filterKeys[j], filterKeys[i] })
	p.Hints.FilterOrder = filterKeys

	if len(filterKeys) > 0 {
		k := ex.rand.Intn(len(filterKeys) + 1)
		pool := append([]string{}, filterKeys...)
		ex.rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		p.Hints.UseIndexes = append([]string{}, pool[:k]...)
	}

	p.Hints.TraversalStrategy = traversalStrategies[ex.rand.Intn(len(traversalStrategies))]

	return p
}

// varyPlan copies base and mutates exactly one aspect of its hints,
// biased toward leveraging a known-good plan while still exploring.
func (ex *Explorer) varyPlan(base plan.Plan, query plan.Plan) plan.Plan {
	p := base
	p.Hints.JoinOrder = append([]string{}, base.Hints.JoinOrder...)
	p.Hints.UseIndexes = append([]string{}, base.Hints.UseIndexes...)
	p.Hints.FilterOrder = append([]string{}, base.Hints.FilterOrder...)

	mutation := ex.rand.Float64()
	switch {
	case mutation < 0.3 && len(p.Hints.JoinOrder) >= 2:
		i, j := ex.distinctPair(len(p.Hints.JoinOrder))
		p.Hints.JoinOrder[i], p.Hints.JoinOrder[j] = p.Hints.JoinOrder[j], p.Hints.JoinOrder[i]

	case mutation < 0.6:
		if ex.rand.Float64() < 0.5 {
			available := setDiff(query.FilterKeys(), p.Hints.UseIndexes)
			if len(available) > 0 {
				p.Hints.UseIndexes = append(p.Hints.UseIndexes, available[ex.rand.Intn(len(available))])
			}
		} else if len(p.Hints.UseIndexes) > 0 {
			idx := ex.rand.Intn(len(p.Hints.UseIndexes))
			p.Hints.UseIndexes = append(p.Hints.UseIndexes[:idx], p.Hints.UseIndexes[idx+1:]...)
		}

	case p.Hints.TraversalStrategy != "":
		remaining := make([]plan.TraversalStrategy, 0, len(traversalStrategies)-1)
		for _, s := range traversalStrategies {
			if s != p.Hints.TraversalStrategy {
				remaining = append(remaining, s)
			}
		}
		if len(remaining) > 0 {
			p.Hints.TraversalStrategy = remaining[ex.rand.Intn(len(remaining))]
		}
	}

	return p
}

func (ex *Explorer) distinctPair(n int) (int, int) {
	i := ex.rand.Intn(n)
	j := ex.rand.Intn(n)
	for j == i && n > 1 {
		j = ex.rand.Intn(n)
	}
	return i, j
}

func setDiff(all, exclude []string) []string {
	excluded := make(map[string]struct{}, len(exclude))
	for _, s := range exclude {
		excluded[s] = struct{}{}
	}
	var out []string
	for _, s := range all {
		if _, ok := excluded[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}

// estimateCost implements a dimensionless cost model. The base term
// keys off plan shape rather than a literal "scan"/"lookup"/"traverse"
// operation tag, since plan.Operation is the executor's
// select/match/insert vocabulary: a match plan traverses, any other
// plan that pushes a filter into an index lookup is a lookup, and
// everything else is a scan.
func (ex *Explorer) estimateCost(p plan.Plan, graphStats GraphStats) float64 {
	var cost float64
	switch {
	case p.Operation == plan.OpMatch:
		cost = graphStats.AvgTraverseCost
	case len(p.Hints.UseIndexes) > 0:
		cost = graphStats.AvgLookupCost
	default:
		cost = graphStats.AvgScanCost
	}

	if n := len(p.Hints.JoinOrder); n > 0 {
		cost += float64(n) * 50.0 * pow(1.5, n)
	}

	if n := len(p.Hints.UseIndexes); n > 0 {
		cost *= pow(0.7, n)
	}

	switch p.Hints.TraversalStrategy {
	case plan.StrategyDFS:
		cost *= 0.9
	case plan.StrategyBidirectional:
		cost *= 0.8
	}

	cost *= 0.9 + ex.rand.Float64()*0.2 // uniform(0.9, 1.1)

	return cost
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}

// GetStats returns the optimizer's running counters.
func (ex *Explorer) GetStats() Stats {
	return ex.stats
}
