package trajopt

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

// goalSim scores chromosomes by their distance to a goal, and fails on request.
type goalSim struct {
	goal Chromosome
	err  error
}

func (s goalSim) Simulate(c Chromosome) (Outcome, error) {
	if s.err != nil {
		return Outcome{}, s.err
	}
	var d float64
	for i := range c {
		d += math.Abs(c[i] - s.goal[i])
	}
	return Outcome{MinDistance: AU * d / 1e4, TotalDeltaV: 1000, MissionDays: 900, Status: Nominal}, nil
}

// transferSim also knows its transfer.
type transferSim struct {
	goalSim
	launch     r3.Vec
	lambertErr error
}

func (s transferSim) Transfer() (origin, target Body) {
	return Earth, Jupiter
}

func (s transferSim) LambertLaunch(tof time.Duration) (launch, vInf r3.Vec, err error) {
	return s.launch, r3.Vec{X: 5000}, s.lambertErr
}

var goal = Chromosome{1000, 10000, 200, 0, 100, 600, -100, 0}

func testOptimizerConfig() OptimizerConfig {
	conf := DefaultOptimizerConfig()
	conf.Workers = 4
	conf.LogEvery = 0
	return conf
}

func testOptimizer(t *testing.T, sim Simulation, conf OptimizerConfig) *Optimizer {
	t.Helper()
	o, err := NewOptimizer(sim, DefaultFitness(), conf, nil, nil)
	require.NoError(t, err)
	return o
}

func TestOptimizeDeterministic(t *testing.T) {
	run := func(seed int64) Result {
		rslt, err := testOptimizer(t, goalSim{goal: goal}, testOptimizerConfig()).Optimize(context.Background(), 20, 10, seed)
		require.NoError(t, err)
		return rslt
	}
	a, b := run(7), run(7)
	assert.Equal(t, a.Best, b.Best)
	assert.Equal(t, a.BestFitness, b.BestFitness)
	assert.Equal(t, a.History, b.History)
	c := run(8)
	assert.NotEqual(t, a.History, c.History)
}

func TestOptimizeHistory(t *testing.T) {
	o := testOptimizer(t, goalSim{goal: goal}, testOptimizerConfig())
	var gens []Generation
	o.OnGeneration = func(g Generation) { gens = append(gens, g) }
	rslt, err := o.Optimize(context.Background(), 11, 8, 42)
	require.NoError(t, err)
	require.Len(t, rslt.History, 8)
	require.Len(t, gens, 8)

	best := math.Inf(1)
	for i, h := range rslt.History {
		assert.Equal(t, i, h.Generation)
		assert.Equal(t, 11, gens[i].PopulationSize)
		assert.Equal(t, 0, gens[i].NonNominalCount)
		assert.LessOrEqual(t, h.Best, h.Mean)
		if i > 0 {
			// The elites carry the best chromosome over.
			assert.LessOrEqual(t, h.Best, rslt.History[i-1].Best)
		}
		best = math.Min(best, h.Best)
		assert.Equal(t, best, gens[i].BestEver)
	}
	assert.Equal(t, best, rslt.BestFitness)
	assert.Equal(t, DefaultFitness().Evaluate(rslt.Outcome), rslt.BestFitness)
	assert.True(t, o.Bounds.Contains(rslt.Best))
	out, _ := goalSim{goal: goal}.Simulate(rslt.Best)
	assert.Equal(t, out, rslt.Outcome)
}

func TestOptimizeInvalid(t *testing.T) {
	o := testOptimizer(t, goalSim{goal: goal}, testOptimizerConfig())
	for _, pg := range [][2]int{{0, 5}, {5, 0}, {-1, 3}} {
		_, err := o.Optimize(context.Background(), pg[0], pg[1], 1)
		assert.ErrorIs(t, err, ErrInvalidConfig, "population %d generations %d", pg[0], pg[1])
	}

	_, err := NewOptimizer(nil, DefaultFitness(), testOptimizerConfig(), nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	conf := testOptimizerConfig()
	conf.Tournament = 0
	_, err = NewOptimizer(goalSim{}, DefaultFitness(), conf, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	fit := DefaultFitness()
	fit.ReferenceDays = 0
	_, err = NewOptimizer(goalSim{}, fit, testOptimizerConfig(), nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	// Heuristic seeding needs the transfer bodies.
	for _, seeding := range []Seeding{HohmannSeeding, LambertSeeding} {
		conf = testOptimizerConfig()
		conf.Seeding = seeding.String()
		_, err = NewOptimizer(goalSim{}, DefaultFitness(), conf, nil, nil)
		assert.ErrorIs(t, err, ErrInvalidConfig, seeding.String())
	}
}

func TestSeedBounds(t *testing.T) {
	conf := testOptimizerConfig()
	o := testOptimizer(t, goalSim{}, conf)
	assert.Equal(t, FixedSeedRanges(conf.Bounds), o.SeedBounds)

	conf.Seeding = HohmannSeeding.String()
	o = testOptimizer(t, transferSim{}, conf)
	assert.Equal(t, HohmannSeedRanges(Earth, Jupiter, conf.Bounds), o.SeedBounds)

	_, _, tof := Hohmann(Earth.OrbitRadius, Jupiter.OrbitRadius, Sun.GM())
	conf.Seeding = LambertSeeding.String()
	launch := r3.Vec{X: 2000, Y: 9000}
	o = testOptimizer(t, transferSim{launch: launch}, conf)
	assert.Equal(t, LambertSeedRanges(launch, tof, conf.Bounds), o.SeedBounds)

	// A failed Lambert solution keeps the Hohmann ranges.
	o = testOptimizer(t, transferSim{launch: launch, lambertErr: ErrLambert}, conf)
	assert.Equal(t, HohmannSeedRanges(Earth, Jupiter, conf.Bounds), o.SeedBounds)
}

func TestInitialPopulation(t *testing.T) {
	o := testOptimizer(t, goalSim{}, testOptimizerConfig())
	rng := rand.New(rand.NewSource(1))
	pop := o.initialPopulation(rng, 40)
	require.Len(t, pop, 40)
	for i, c := range pop {
		assert.True(t, o.Bounds.Contains(c), "chromosome %d: %s", i, c)
		if i < o.Seeded {
			assert.True(t, o.SeedBounds.Contains(c), "seeded chromosome %d: %s", i, c)
		}
	}
	// Fewer slots than seeded chromosomes.
	assert.Len(t, o.initialPopulation(rng, 3), 3)
}

func TestReproduce(t *testing.T) {
	o := testOptimizer(t, goalSim{}, testOptimizerConfig())
	rng := rand.New(rand.NewSource(2))
	for _, size := range []int{2, 7, 40} {
		pop := o.initialPopulation(rng, size)
		fitness := make([]float64, size)
		for i := range fitness {
			fitness[i] = float64(size - i)
		}
		next := o.reproduce(rng, pop, fitness)
		require.Len(t, next, size)
		// Elites first, best first.
		assert.Equal(t, pop[size-1], next[0])
		assert.Equal(t, pop[size-2], next[1])
		for _, c := range next {
			assert.True(t, o.Bounds.Contains(c))
		}
	}
}

func TestOptimizeCanceled(t *testing.T) {
	o := testOptimizer(t, goalSim{goal: goal}, testOptimizerConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rslt, err := o.Optimize(ctx, 10, 5, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rslt.History)

	ctx, cancel = context.WithCancel(context.Background())
	defer cancel()
	o.OnGeneration = func(g Generation) {
		if g.Generation == 2 {
			cancel()
		}
	}
	rslt, err = o.Optimize(ctx, 10, 5, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, rslt.History, 3)
	assert.False(t, math.IsInf(rslt.BestFitness, 0))
}

func TestOptimizeSimulationError(t *testing.T) {
	errBoom := errors.New("boom")
	o := testOptimizer(t, goalSim{err: errBoom}, testOptimizerConfig())
	_, err := o.Optimize(context.Background(), 10, 5, 1)
	assert.ErrorIs(t, err, errBoom)
}

func TestOptimizeSimulator(t *testing.T) {
	conf, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	sim := testSimulator(t, NewCircularEphemeris(conf.Mission.Start), conf.Mission, conf.Termination)
	run := func() Result {
		o, err := NewOptimizer(sim, conf.Fitness, conf.Optimizer, nil, nil)
		require.NoError(t, err)
		rslt, err := o.Optimize(context.Background(), 10, 5, 42)
		require.NoError(t, err)
		return rslt
	}
	a, b := run(), run()
	assert.Equal(t, a.Best, b.Best)
	assert.Equal(t, a.History, b.History)
	assert.Len(t, a.History, 5)
	out, err := sim.Simulate(a.Best)
	require.NoError(t, err)
	assert.Equal(t, a.Outcome, out)
	assert.LessOrEqual(t, out.MissionDays, 1200.0)
}
