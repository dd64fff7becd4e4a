package trajopt

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/sourcegraph/conc/pool"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// Simulation evaluates maneuver plans. Implementations must be safe for concurrent use.
type Simulation interface {
	Simulate(c Chromosome) (Outcome, error)
}

// transfer is implemented by simulations which know their origin and target bodies.
type transfer interface {
	Transfer() (origin, target Body)
	LambertLaunch(tof time.Duration) (launch, vInf r3.Vec, err error)
}

// Transfer returns the origin and target bodies.
func (s *Simulator) Transfer() (origin, target Body) {
	return s.Origin, s.Target
}

// DefaultOptimizerConfig returns the settings of a forty by seventy-five run.
func DefaultOptimizerConfig() OptimizerConfig {
	return OptimizerConfig{
		Population:       40,
		Generations:      75,
		Seed:             42,
		Elites:           2,
		Tournament:       3,
		MutationRate:     0.1,
		MutationStrength: 0.2,
		MutationFloor:    100,
		Seeded:           5,
		Seeding:          FixedSeeding.String(),
		LogEvery:         5,
		Bounds:           DefaultBounds(),
	}
}

// HistoryEntry is the fitness summary of one generation.
type HistoryEntry struct {
	Generation int     `json:"generation" yaml:"generation"`
	Best       float64 `json:"best" yaml:"best"`
	Mean       float64 `json:"mean" yaml:"mean"`
}

// Generation is reported to observers after each evaluation.
type Generation struct {
	HistoryEntry
	BestEver        float64
	BestChromosome  Chromosome // of this generation
	BestOutcome     Outcome    // of this generation
	PopulationSize  int
	NonNominalCount int
}

// Result is the outcome of an optimization.
type Result struct {
	Best        Chromosome
	BestFitness float64
	Outcome     Outcome
	History     []HistoryEntry
}

// Optimizer is a genetic algorithm searching maneuver plans.
type Optimizer struct {
	Bounds       Bounds
	SeedBounds   Bounds
	Seeded       int
	Elites       int
	Tournament   int
	Mutation     Mutation
	Workers      int
	LogEvery     int
	OnGeneration func(Generation) // optional, called synchronously
	sim          Simulation
	fitness      Fitness
	logger       kitlog.Logger
	metrics      *Metrics
}

// NewOptimizer returns an optimizer evaluating chromosomes with sim and scoring them with fit.
func NewOptimizer(sim Simulation, fit Fitness, conf OptimizerConfig, logger kitlog.Logger, metrics *Metrics) (*Optimizer, error) {
	if sim == nil {
		return nil, fmt.Errorf("%w: no simulation", ErrInvalidConfig)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if err := fit.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	seeding, _ := SeedingFromString(conf.Seeding)
	seedBounds := FixedSeedRanges(conf.Bounds)
	if seeding != FixedSeeding {
		t, ok := sim.(transfer)
		if !ok {
			return nil, fmt.Errorf("%w: %s seeding needs the origin and target bodies", ErrInvalidConfig, seeding)
		}
		origin, target := t.Transfer()
		seedBounds = HohmannSeedRanges(origin, target, conf.Bounds)
		if seeding == LambertSeeding {
			_, _, tof := Hohmann(origin.OrbitRadius, target.OrbitRadius, Sun.GM())
			launch, vInf, err := t.LambertLaunch(tof)
			if err != nil {
				// Keep the Hohmann ranges.
				level.Warn(logger).Log("subsys", "ga", "seeding", seeding, "err", err, "fallback", HohmannSeeding)
			} else {
				level.Info(logger).Log("subsys", "ga", "seeding", seeding, "launch_vx", launch.X, "launch_vy", launch.Y, "vInf(m/s)", norm(vInf))
				seedBounds = LambertSeedRanges(launch, tof, conf.Bounds)
			}
		}
	}
	workers := conf.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Optimizer{
		Bounds:     conf.Bounds,
		SeedBounds: seedBounds,
		Seeded:     conf.Seeded,
		Elites:     conf.Elites,
		Tournament: conf.Tournament,
		Mutation:   Mutation{conf.MutationRate, conf.MutationStrength, conf.MutationFloor},
		Workers:    workers,
		LogEvery:   conf.LogEvery,
		sim:        sim,
		fitness:    fit,
		logger:     kitlog.With(logger, "subsys", "ga"),
		metrics:    metrics,
	}, nil
}

// Optimize evolves a population of populationSize chromosomes over exactly generations generations and
// returns the best chromosome ever evaluated. A given seed always yields the same result.
// The context is checked between evaluations; on cancellation the partial history is returned
// with the context error.
func (o *Optimizer) Optimize(ctx context.Context, populationSize, generations int, seed int64) (Result, error) {
	if populationSize <= 0 || generations <= 0 {
		return Result{}, fmt.Errorf("%w: population (%d) and generations (%d) must be positive", ErrInvalidConfig, populationSize, generations)
	}
	rng := rand.New(rand.NewSource(seed))
	pop := o.initialPopulation(rng, populationSize)
	rslt := Result{BestFitness: math.Inf(1), History: make([]HistoryEntry, 0, generations)}
	level.Info(o.logger).Log("status", "starting", "population", populationSize, "generations", generations, "seed", seed, "workers", o.Workers)

	for gen := 0; gen < generations; gen++ {
		if err := ctx.Err(); err != nil {
			return rslt, err
		}
		fitness, outcomes, err := o.evaluate(ctx, pop)
		if err != nil {
			return rslt, err
		}
		bi := bestIndex(fitness)
		if fitness[bi] < rslt.BestFitness {
			rslt.BestFitness = fitness[bi]
			rslt.Best = pop[bi]
			rslt.Outcome = outcomes[bi]
		}
		entry := HistoryEntry{Generation: gen, Best: fitness[bi], Mean: stat.Mean(fitness, nil)}
		rslt.History = append(rslt.History, entry)
		o.report(Generation{
			HistoryEntry:    entry,
			BestEver:        rslt.BestFitness,
			BestChromosome:  pop[bi],
			BestOutcome:     outcomes[bi],
			PopulationSize:  len(pop),
			NonNominalCount: nonNominal(outcomes),
		}, gen == generations-1)
		if gen < generations-1 {
			pop = o.reproduce(rng, pop, fitness)
		}
	}
	level.Info(o.logger).Log("status", "finished", "fitness", rslt.BestFitness, "min(AU)", rslt.Outcome.MinDistance/AU, "Δv(m/s)", rslt.Outcome.TotalDeltaV, "days", rslt.Outcome.MissionDays, "best", rslt.Best)
	return rslt, nil
}

// initialPopulation draws the heuristic chromosomes first, then fills with uniform ones.
func (o *Optimizer) initialPopulation(rng *rand.Rand, size int) Population {
	pop := make(Population, 0, size)
	for i := 0; i < o.Seeded && len(pop) < size; i++ {
		pop = append(pop, o.Bounds.Clip(o.SeedBounds.Random(rng)))
	}
	for len(pop) < size {
		pop = append(pop, o.Bounds.Random(rng))
	}
	return pop
}

// evaluate simulates every chromosome in parallel and returns once all are scored.
func (o *Optimizer) evaluate(ctx context.Context, pop Population) ([]float64, []Outcome, error) {
	fitness := make([]float64, len(pop))
	outcomes := make([]Outcome, len(pop))
	p := pool.New().WithMaxGoroutines(o.Workers).WithContext(ctx).WithCancelOnError()
	for i := range pop {
		c := pop[i]
		idx := i
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := o.sim.Simulate(c)
			if err != nil {
				return fmt.Errorf("chromosome %d (%s): %w", idx, c, err)
			}
			outcomes[idx] = out
			fitness[idx] = o.fitness.Evaluate(out)
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, nil, err
	}
	return fitness, outcomes, nil
}

// reproduce builds the next generation: elites first, then mutated children of tournament winners.
func (o *Optimizer) reproduce(rng *rand.Rand, pop Population, fitness []float64) Population {
	size := len(pop)
	next := make(Population, 0, size+1)
	for _, i := range eliteIndices(fitness, o.Elites) {
		next = append(next, pop[i])
	}
	for len(next) < size {
		p1 := pop[Tournament(rng, fitness, o.Tournament)]
		p2 := pop[Tournament(rng, fitness, o.Tournament)]
		c1, c2 := Crossover(rng, p1, p2)
		next = append(next, o.Mutation.Mutate(rng, c1, o.Bounds), o.Mutation.Mutate(rng, c2, o.Bounds))
	}
	return next[:size]
}

func (o *Optimizer) report(g Generation, last bool) {
	o.metrics.ObserveGeneration(g)
	if o.OnGeneration != nil {
		o.OnGeneration(g)
	}
	if o.LogEvery > 0 && (g.Generation%o.LogEvery == 0 || last) {
		level.Info(o.logger).Log("gen", g.Generation, "best", g.Best, "mean", g.Mean, "bestEver", g.BestEver,
			"dist(AU)", g.BestOutcome.MinDistance/AU, "Δv(m/s)", g.BestOutcome.TotalDeltaV, "days", g.BestOutcome.MissionDays,
			"penalized", g.NonNominalCount)
	}
}

func nonNominal(outcomes []Outcome) (n int) {
	for _, o := range outcomes {
		if o.Status != Nominal {
			n++
		}
	}
	return
}
