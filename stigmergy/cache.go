package stigmergy

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/deed-db/deed/graph"
	"github.com/deed-db/deed/plan"
)

const fingerprintLen = 16

// Stats are the cache-wide counters exposed by GetStats.
type Stats struct {
	TotalTrails         int
	TotalReinforcements int64
	CacheHits           int64
	CacheMisses         int64
}

// HitRate is cache_hits / (cache_hits + cache_misses), or 0 if neither
// has happened yet.
func (s Stats) HitRate() float64 {
	total := s.CacheHits + s.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(total)
}

// Cache is the pheromone-trail query cache. Safe for concurrent use:
// every mutating and read operation takes the internal mutex.
type Cache struct {
	mu sync.Mutex

	maxTrails       int
	evaporationRate float64
	stalenessWindow time.Duration

	clock graph.Clock
	log   *logrus.Entry

	trails map[string][]*Trail // query signature -> trails
	stats  Stats
}

// Config configures a Cache's capacity and decay behavior.
type Config struct {
	MaxTrails       int
	EvaporationRate float64
	StalenessWindow time.Duration
}

// DefaultConfig mirrors stigmergy.py's constructor defaults
// (max_trails=10000, evaporation_rate=0.05, staleness_threshold=60min).
func DefaultConfig() Config {
	return Config{
		MaxTrails:       10000,
		EvaporationRate: 0.05,
		StalenessWindow: 60 * time.Minute,
	}
}

// NewCache constructs a Cache. A zero-value Config is replaced with
// DefaultConfig(). A nil clock defaults to graph.SystemClock{}.
func NewCache(cfg Config, clock graph.Clock, log *logrus.Entry) *Cache {
	if cfg.MaxTrails == 0 && cfg.EvaporationRate == 0 && cfg.StalenessWindow == 0 {
		cfg = DefaultConfig()
	}
	if clock == nil {
		clock = graph.SystemClock{}
	}
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	return &Cache{
		maxTrails:       cfg.MaxTrails,
		evaporationRate: cfg.EvaporationRate,
		stalenessWindow: cfg.StalenessWindow,
		clock:           clock,
		log:             log.WithField("component", "stigmergy"),
		trails:          make(map[string][]*Trail),
	}
}

// querySignature hashes a plan's normalized pattern (operation,
// collection, sorted filter keys, joins, traversals — no literals).
func querySignature(p plan.Plan) string {
	data, err := p.Pattern().MarshalCanonical()
	if err != nil {
		panic(err) // Pattern is a plain struct; marshaling cannot fail
	}
	return truncatedSHA256(data)
}

// pathSignature hashes the full canonical plan.
func pathSignature(p plan.Plan) string {
	data, err := p.MarshalCanonical()
	if err != nil {
		panic(err)
	}
	return truncatedSHA256(data)
}

func truncatedSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:fingerprintLen]
}

// Lookup returns the trails for query's pattern, stale ones filtered
// out, sorted by quality score descending. Updates hit/miss counters.
func (c *Cache) Lookup(query plan.Plan) []*Trail {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookupLocked(query)
}

func (c *Cache) lookupLocked(query plan.Plan) []*Trail {
	sig := querySignature(query)
	all, ok := c.trails[sig]
	if !ok {
		c.stats.CacheMisses++
		return nil
	}

	now := c.clock.Now()
	var fresh []*Trail
	for _, t := range all {
		if !t.IsStale(c.stalenessWindow, now) {
			fresh = append(fresh, t)
		}
	}
	sort.SliceStable(fresh, func(i, j int) bool {
		return fresh[i].QualityScore() > fresh[j].QualityScore()
	})

	c.stats.CacheHits++
	return fresh
}

// AddTrail records one query execution. If a trail with the same
// (pattern, plan) fingerprint already exists it is reinforced in place;
// otherwise a new trail is created, reinforced, and inserted, with
// capacity enforcement applied afterward.
func (c *Cache) AddTrail(query plan.Plan, executed plan.Plan, executionTimeMs float64, success bool) *Trail {
	c.mu.Lock()
	defer c.mu.Unlock()

	querySig := querySignature(query)
	pathSig := pathSignature(executed)
	now := c.clock.Now()

	for _, t := range c.trails[querySig] {
		if t.PathSignature == pathSig {
			t.Reinforce(executionTimeMs, success, now)
			c.stats.TotalReinforcements++
			return t
		}
	}

	t := newTrail(querySig, pathSig, executed, now)
	t.Reinforce(executionTimeMs, success, now)
	c.trails[querySig] = append(c.trails[querySig], t)
	c.stats.TotalTrails++

	c.enforceCapacityLocked()
	c.log.WithFields(logrus.Fields{"query": querySig, "path": pathSig, "success": success}).Debug("trail added")
	return t
}

// enforceCapacityLocked evicts the lowest-quality trails until the total
// is at or under maxTrails. Caller must hold c.mu.
func (c *Cache) enforceCapacityLocked() {
	if c.maxTrails <= 0 {
		return
	}
	total := 0
	for _, ts := range c.trails {
		total += len(ts)
	}
	if total <= c.maxTrails {
		return
	}

	type ref struct {
		sig   string
		trail *Trail
	}
	all := make([]ref, 0, total)
	for sig, ts := range c.trails {
		for _, t := range ts {
			all = append(all, ref{sig, t})
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].trail.QualityScore() < all[j].trail.QualityScore()
	})

	toRemove := total - c.maxTrails
	for i := 0; i < toRemove; i++ {
		sig, victim := all[i].sig, all[i].trail
		c.trails[sig] = removeTrail(c.trails[sig], victim)
		if len(c.trails[sig]) == 0 {
			delete(c.trails, sig)
		}
	}
	c.stats.TotalTrails = c.maxTrails
}

func removeTrail(list []*Trail, victim *Trail) []*Trail {
	out := list[:0]
	for _, t := range list {
		if t != victim {
			out = append(out, t)
		}
	}
	return out
}

// EvaporateAll multiplies every trail's pheromone by (1 - rate) and
// prunes trails whose pheromone falls below 0.2.
func (c *Cache) EvaporateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	const pruneThreshold = 0.2
	for sig, trails := range c.trails {
		for _, t := range trails {
			t.Evaporate(c.evaporationRate)
		}
		kept := trails[:0]
		for _, t := range trails {
			if t.Pheromone >= pruneThreshold {
				kept = append(kept, t)
			}
		}
		if len(kept) == 0 {
			delete(c.trails, sig)
		} else {
			c.trails[sig] = kept
		}
	}

	total := 0
	for _, ts := range c.trails {
		total += len(ts)
	}
	c.stats.TotalTrails = total
	c.log.Debug("evaporation cycle complete")
}

// BestPlan returns the plan of the highest-quality non-stale trail for
// query, or ok=false if no trail exists.
func (c *Cache) BestPlan(query plan.Plan) (plan.Plan, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	trails := c.lookupLocked(query)
	if len(trails) == 0 {
		return plan.Plan{}, false
	}
	return trails[0].Plan, true
}

// GetStats returns the cache-wide counters.
func (c *Cache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
