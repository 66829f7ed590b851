// Package deed is a hybrid property-graph / relational engine: entities
// and typed edges with adjacency, typed collections with secondary
// indexes, and a query executor guided by an adaptive stigmergy cache
// and an ant-colony plan explorer. See graph, plan, stigmergy, colony,
// and exec for the component packages this Engine wires together.
package deed

import (
	"math/rand"
	"time"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/deed-db/deed/colony"
	"github.com/deed-db/deed/exec"
	"github.com/deed-db/deed/graph"
	"github.com/deed-db/deed/plan"
	"github.com/deed-db/deed/stigmergy"
)

// Config holds every tunable the Engine's subsystems need. Build one
// with New(opts...) rather than constructing it directly; the zero
// value is not ready to use. Fields are tagged for LoadConfigFile/
// WriteConfigFile; the interface-valued fields below are never
// serialized and always come back as defaultConfig()'s values.
type Config struct {
	MaxTrails       int           `yaml:"max_trails"`
	EvaporationRate float64       `yaml:"evaporation_rate"`
	StalenessWindow time.Duration `yaml:"staleness_window"`

	NumAnts       int               `yaml:"num_ants"`
	NumIterations int               `yaml:"num_iterations"`
	GraphStats    colony.GraphStats `yaml:"graph_stats"`

	Clock      graph.Clock        `yaml:"-"`
	IDGen      graph.IDGen        `yaml:"-"`
	Logger     *logrus.Logger     `yaml:"-"`
	RandSource rand.Source        `yaml:"-"`
	Tracer     opentracing.Tracer `yaml:"-"`
}

func defaultConfig() Config {
	return Config{
		MaxTrails:       stigmergy.DefaultConfig().MaxTrails,
		EvaporationRate: stigmergy.DefaultConfig().EvaporationRate,
		StalenessWindow: stigmergy.DefaultConfig().StalenessWindow,
		NumAnts:         colony.DefaultConfig().NumAnts,
		NumIterations:   colony.DefaultConfig().NumIterations,
		GraphStats:      colony.DefaultGraphStats(),
		Clock:           graph.SystemClock{},
		IDGen:           graph.UUIDGen{},
		Logger:          logrus.New(),
		RandSource:      rand.NewSource(time.Now().UnixNano()),
		Tracer:          opentracing.GlobalTracer(),
	}
}

// Option configures a Config; see the WithXxx functions below.
type Option func(*Config)

// WithStigmergy overrides the cache's capacity, decay rate, and
// staleness window.
func WithStigmergy(maxTrails int, evaporationRate float64, stalenessWindow time.Duration) Option {
	return func(c *Config) {
		c.MaxTrails = maxTrails
		c.EvaporationRate = evaporationRate
		c.StalenessWindow = stalenessWindow
	}
}

// WithAntColony overrides the explorer's ant and iteration counts.
func WithAntColony(numAnts, numIterations int) Option {
	return func(c *Config) { c.NumAnts = numAnts; c.NumIterations = numIterations }
}

// WithGraphStats overrides the cost model's baseline scan/lookup/
// traverse costs.
func WithGraphStats(stats colony.GraphStats) Option {
	return func(c *Config) { c.GraphStats = stats }
}

// WithClock injects a Clock, overriding graph.SystemClock{}. Tests use
// this to supply a fixed or advancing fake.
func WithClock(clock graph.Clock) Option {
	return func(c *Config) { c.Clock = clock }
}

// WithIDGen injects an IDGen, overriding the satori/go.uuid-backed
// default.
func WithIDGen(idGen graph.IDGen) Option {
	return func(c *Config) { c.IDGen = idGen }
}

// WithLogger overrides the base *logrus.Logger every component's
// *logrus.Entry is built from.
func WithLogger(logger *logrus.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// WithRandSource overrides the ant colony's random source, overriding
// the time-seeded default. Tests use this for determinism.
func WithRandSource(src rand.Source) Option {
	return func(c *Config) { c.RandSource = src }
}

// WithTracer overrides the opentracing.Tracer Execute reports spans to,
// overriding the process-wide global tracer (a no-op by default).
func WithTracer(tracer opentracing.Tracer) Option {
	return func(c *Config) { c.Tracer = tracer }
}

// Engine wires the graph store, the stigmergy cache, the ant-colony
// explorer, and the executor together into one handle for embedders.
type Engine struct {
	Store    *graph.Store
	Cache    *stigmergy.Cache
	Explorer *colony.Explorer
	Executor *exec.Executor

	tracer opentracing.Tracer
	log    *logrus.Entry
}

// New creates a new Engine with the given options applied over
// defaultConfig(). Should be constructed once per database instance.
// The graph store and the stigmergy cache guard their own state with
// locks; the explorer and the executor hold no lock, so concurrent
// Execute calls on one Engine are not synchronized.
func New(opts ...Option) *Engine {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	log := cfg.Logger.WithField("component", "engine")

	store := graph.NewStore(cfg.Clock, cfg.IDGen, log)
	cache := stigmergy.NewCache(stigmergy.Config{
		MaxTrails:       cfg.MaxTrails,
		EvaporationRate: cfg.EvaporationRate,
		StalenessWindow: cfg.StalenessWindow,
	}, cfg.Clock, log)
	rnd := rand.New(cfg.RandSource)
	explorer := colony.NewExplorer(colony.Config{
		NumAnts:       cfg.NumAnts,
		NumIterations: cfg.NumIterations,
	}, cache, rnd, log)
	executor := exec.New(store, cache, explorer, cfg.GraphStats, cfg.Clock, log)

	tracer := cfg.Tracer
	if tracer == nil {
		tracer = opentracing.GlobalTracer()
	}

	return &Engine{
		Store:    store,
		Cache:    cache,
		Explorer: explorer,
		Executor: executor,
		tracer:   tracer,
		log:      log,
	}
}

// Execute runs a plan through the executor inside an opentracing span
// tagged with the operation and collection, wrapping any structural
// failure with a stack trace at this public boundary.
func (e *Engine) Execute(p plan.Plan) ([]exec.Item, error) {
	span := e.tracer.StartSpan("deed.execute")
	span.SetTag("operation", string(p.Operation))
	if p.Collection != "" {
		span.SetTag("collection", p.Collection)
	}
	defer span.Finish()

	items, err := e.Executor.Execute(p)
	if err != nil {
		span.SetTag("error", true)
		return nil, errors.Wrapf(err, "deed: execute %s", p.Operation)
	}
	return items, nil
}

// Maintain applies one pheromone-decay cycle to both the graph store's
// edges and the stigmergy cache's trails. The core never schedules this
// itself; callers are expected to invoke it periodically (e.g. from a
// time.Ticker).
func (e *Engine) Maintain(edgeDecayRate float64) {
	e.Store.EvaporatePheromones(edgeDecayRate)
	e.Cache.EvaporateAll()
	e.log.Debug("maintenance cycle complete")
}

// Stats aggregates every subsystem's statistics in one snapshot, for a
// status endpoint or CLI (cmd/deedstat).
type Stats struct {
	Store    graph.StoreStats
	Cache    stigmergy.Stats
	Colony   colony.Stats
	Executor exec.Stats
}

// GetStats returns a snapshot of every subsystem's counters.
func (e *Engine) GetStats() Stats {
	return Stats{
		Store:    e.Store.GetStats(),
		Cache:    e.Cache.GetStats(),
		Colony:   e.Explorer.GetStats(),
		Executor: e.Executor.GetStats(),
	}
}
