package trajopt

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// GeneCount is the number of genes of a Chromosome.
const GeneCount = 8

// Gene indices.
const (
	LaunchVX = iota
	LaunchVY
	Burn1Day
	Burn1VX
	Burn1VY
	Burn2Day
	Burn2VX
	Burn2VY
)

// GeneNames are the configuration names of each gene, in order.
var GeneNames = [GeneCount]string{"launch_vx", "launch_vy", "t1_days", "dv1x", "dv1y", "t2_days", "dv2x", "dv2y"}

// Chromosome is a maneuver plan: the launch velocity offset from the origin body (m/s) and two
// impulsive burns, each defined by its day after launch and its in-plane Δv (m/s).
// It is a value: operators return new chromosomes.
type Chromosome [GeneCount]float64

// Launch returns the launch velocity offset.
func (c Chromosome) Launch() (vx, vy float64) {
	return c[LaunchVX], c[LaunchVY]
}

// Burns returns the two scheduled maneuvers.
func (c Chromosome) Burns() [2]Burn {
	return [2]Burn{
		{Day: c[Burn1Day], VX: c[Burn1VX], VY: c[Burn1VY]},
		{Day: c[Burn2Day], VX: c[Burn2VX], VY: c[Burn2VY]},
	}
}

func (c Chromosome) String() string {
	return fmt.Sprintf("launch=[%.0f, %.0f] m/s burn1=day %.1f [%.0f, %.0f] m/s burn2=day %.1f [%.0f, %.0f] m/s",
		c[LaunchVX], c[LaunchVY], c[Burn1Day], c[Burn1VX], c[Burn1VY], c[Burn2Day], c[Burn2VX], c[Burn2VY])
}

// ParseChromosome parses comma separated genes.
func ParseChromosome(s string) (Chromosome, error) {
	var c Chromosome
	fields := strings.Split(s, ",")
	if len(fields) != GeneCount {
		return c, fmt.Errorf("%w: chromosome needs %d genes, got %d", ErrInvalidConfig, GeneCount, len(fields))
	}
	for i, field := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return c, fmt.Errorf("%w: gene %s: %s", ErrInvalidConfig, GeneNames[i], err)
		}
		c[i] = v
	}
	return c, nil
}

// ChromosomeFromSlice copies genes from a slice of exactly GeneCount values.
func ChromosomeFromSlice(genes []float64) (Chromosome, error) {
	var c Chromosome
	if len(genes) != GeneCount {
		return c, fmt.Errorf("%w: chromosome needs %d genes, got %d", ErrInvalidConfig, GeneCount, len(genes))
	}
	copy(c[:], genes)
	return c, nil
}

// Burn is an impulsive in-plane maneuver.
type Burn struct {
	Day    float64 // days after launch
	VX, VY float64 // m/s
}

// Step returns the index of the integration step nearest to the burn time.
func (b Burn) Step(step time.Duration) int {
	return int(math.Round(b.Day * 86400 / step.Seconds()))
}

// Interval is a closed interval.
type Interval struct {
	Min, Max float64
}

// Contains returns whether v is in the interval.
func (i Interval) Contains(v float64) bool {
	return v >= i.Min && v <= i.Max
}

// Clip returns v clipped into the interval.
func (i Interval) Clip(v float64) float64 {
	return math.Max(i.Min, math.Min(i.Max, v))
}

// Uniform draws uniformly from the interval.
func (i Interval) Uniform(rng *rand.Rand) float64 {
	return i.Clip(i.Min + rng.Float64()*(i.Max-i.Min))
}

// Intersect returns the intersection of both intervals, and whether it is non-empty.
func (i Interval) Intersect(o Interval) (Interval, bool) {
	rslt := Interval{math.Max(i.Min, o.Min), math.Min(i.Max, o.Max)}
	return rslt, rslt.Min <= rslt.Max
}

// Bounds holds the closed interval of each gene.
type Bounds [GeneCount]Interval

// DefaultBounds returns the search space of an Earth to Jupiter transfer.
func DefaultBounds() Bounds {
	return Bounds{
		{-10000, 10000}, // launch vx
		{5000, 15000},   // launch vy
		{50, 600},       // t1, days
		{-3000, 3000},   // dv1x
		{-3000, 3000},   // dv1y
		{200, 1000},     // t2, days
		{-3000, 3000},   // dv2x
		{-3000, 3000},   // dv2y
	}
}

// Validate returns an error if any interval is empty or not finite.
func (b Bounds) Validate() error {
	for i, bnd := range b {
		if math.IsNaN(bnd.Min) || math.IsNaN(bnd.Max) || math.IsInf(bnd.Min, 0) || math.IsInf(bnd.Max, 0) {
			return fmt.Errorf("%w: bound of %s is not finite", ErrInvalidConfig, GeneNames[i])
		}
		if bnd.Min > bnd.Max {
			return fmt.Errorf("%w: bound of %s is empty [%f, %f]", ErrInvalidConfig, GeneNames[i], bnd.Min, bnd.Max)
		}
	}
	for _, i := range []int{Burn1Day, Burn2Day} {
		if b[i].Min < 0 {
			return fmt.Errorf("%w: maneuver %s may not be before launch", ErrInvalidConfig, GeneNames[i])
		}
	}
	return nil
}

// Contains returns whether every gene is within its bound.
func (b Bounds) Contains(c Chromosome) bool {
	for i, bnd := range b {
		if !bnd.Contains(c[i]) {
			return false
		}
	}
	return true
}

// Clip returns a copy of c with every gene clipped into its bound.
func (b Bounds) Clip(c Chromosome) Chromosome {
	for i, bnd := range b {
		c[i] = bnd.Clip(c[i])
	}
	return c
}

// Random draws a chromosome uniformly within the bounds.
func (b Bounds) Random(rng *rand.Rand) (c Chromosome) {
	for i, bnd := range b {
		c[i] = bnd.Uniform(rng)
	}
	return
}
