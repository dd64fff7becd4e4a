package trajopt

import (
	"math"
	"math/rand"
	"sort"
)

// Population is an ordered set of chromosomes of one generation.
type Population []Chromosome

// sampleIndices draws k distinct indices in [0, n) with a partial Fisher-Yates shuffle.
func sampleIndices(rng *rand.Rand, n, k int) []int {
	if k > n {
		k = n
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + rng.Intn(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}

// Tournament samples size distinct indices of the fitness slice and returns the one of lowest fitness.
// Ties go to the first index drawn. The size is capped at the population size.
func Tournament(rng *rand.Rand, fitness []float64, size int) int {
	if size < 1 {
		size = 1
	}
	contenders := sampleIndices(rng, len(fitness), size)
	best := contenders[0]
	for _, i := range contenders[1:] {
		if fitness[i] < fitness[best] {
			best = i
		}
	}
	return best
}

// CrossoverAt swaps the genes of a and b from the provided cut point onward.
func CrossoverAt(a, b Chromosome, point int) (Chromosome, Chromosome) {
	for i := point; i < GeneCount; i++ {
		a[i], b[i] = b[i], a[i]
	}
	return a, b
}

// Crossover is a single point crossover with a cut drawn uniformly in [1, GeneCount-1].
func Crossover(rng *rand.Rand, a, b Chromosome) (Chromosome, Chromosome) {
	return CrossoverAt(a, b, 1+rng.Intn(GeneCount-1))
}

// Mutation perturbs each gene independently with probability Rate by a Gaussian noise of standard
// deviation |gene|*Strength + Floor.
type Mutation struct {
	Rate, Strength, Floor float64
}

// Mutate returns a mutated copy of c, clipped into the bounds.
func (m Mutation) Mutate(rng *rand.Rand, c Chromosome, bounds Bounds) Chromosome {
	for i := range c {
		if rng.Float64() < m.Rate {
			σ := math.Abs(c[i])*m.Strength + m.Floor
			c[i] += rng.NormFloat64() * σ
		}
	}
	return bounds.Clip(c)
}

// eliteIndices returns the indices of the k lowest fitness values, ties broken by earliest index.
func eliteIndices(fitness []float64, k int) []int {
	idx := make([]int, len(fitness))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return fitness[idx[i]] < fitness[idx[j]] })
	if k > len(idx) {
		k = len(idx)
	}
	return idx[:k]
}

// bestIndex returns the index of the lowest fitness, first occurrence wins.
func bestIndex(fitness []float64) int {
	best := 0
	for i, f := range fitness {
		if f < fitness[best] {
			best = i
		}
	}
	return best
}
