package trajopt

import (
	"math/rand"
	"testing"
)

func TestSampleIndices(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for n := 0; n < 200; n++ {
		idx := sampleIndices(rng, 10, 3)
		if len(idx) != 3 {
			t.Fatalf("%d indices", len(idx))
		}
		seen := map[int]bool{}
		for _, i := range idx {
			if i < 0 || i >= 10 || seen[i] {
				t.Fatalf("invalid draw %v", idx)
			}
			seen[i] = true
		}
	}
	if idx := sampleIndices(rng, 2, 5); len(idx) != 2 {
		t.Fatalf("sample larger than the population: %v", idx)
	}
}

func TestTournament(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	fitness := []float64{5, 1, 3, 7, 2}
	wins := make([]int, len(fitness))
	for n := 0; n < 2000; n++ {
		wins[Tournament(rng, fitness, 3)]++
	}
	// The worst is never the best of three distinct contenders, the best wins whenever drawn.
	if wins[3] != 0 {
		t.Fatalf("the worst won %d times", wins[3])
	}
	if wins[1] < wins[4] || wins[4] < wins[2] {
		t.Fatalf("wins=%v", wins)
	}
	// A tournament as large as the population always picks the best.
	for n := 0; n < 50; n++ {
		if i := Tournament(rng, fitness, 10); i != 1 {
			t.Fatalf("picked %d", i)
		}
	}
	// Ties go to the first contender drawn, i.e. any of the tied.
	if i := Tournament(rng, []float64{1, 1}, 2); i != 0 && i != 1 {
		t.Fatalf("picked %d", i)
	}
}

func TestCrossover(t *testing.T) {
	a := Chromosome{1, 2, 3, 4, 5, 6, 7, 8}
	b := Chromosome{-1, -2, -3, -4, -5, -6, -7, -8}
	c1, c2 := CrossoverAt(a, b, 3)
	if c1 != (Chromosome{1, 2, 3, -4, -5, -6, -7, -8}) || c2 != (Chromosome{-1, -2, -3, 4, 5, 6, 7, 8}) {
		t.Fatalf("c1=%v c2=%v", c1, c2)
	}
	if a[3] != 4 || b[3] != -4 {
		t.Fatal("parents modified")
	}
	rng := rand.New(rand.NewSource(11))
	for n := 0; n < 500; n++ {
		c1, c2 := Crossover(rng, a, b)
		// Prefix from one parent, suffix from the other, cut in [1, 7].
		cut := -1
		for i := 0; i < GeneCount; i++ {
			if c1[i] == b[i] {
				cut = i
				break
			}
		}
		if cut < 1 || cut > GeneCount-1 {
			t.Fatalf("cut at %d: %v", cut, c1)
		}
		for i := 0; i < GeneCount; i++ {
			want1, want2 := a[i], b[i]
			if i >= cut {
				want1, want2 = b[i], a[i]
			}
			if c1[i] != want1 || c2[i] != want2 {
				t.Fatalf("gene %d from the wrong parent: %v %v", i, c1, c2)
			}
		}
	}
}

func TestMutate(t *testing.T) {
	bounds := DefaultBounds()
	c := Chromosome{9900, 14900, 590, 2900, -2900, 990, 0, 0}
	for seed := int64(0); seed < 50; seed++ {
		rng := rand.New(rand.NewSource(seed))
		m := Mutation{Rate: 1, Strength: 0.2, Floor: 100}
		mc := m.Mutate(rng, c, bounds)
		if !bounds.Contains(mc) {
			t.Fatalf("seed %d: %v out of bounds", seed, mc)
		}
		if mc == c {
			t.Fatalf("seed %d: no gene mutated at rate 1", seed)
		}
	}
	rng := rand.New(rand.NewSource(1))
	if mc := (Mutation{Rate: 0, Strength: 0.2, Floor: 100}).Mutate(rng, c, bounds); mc != c {
		t.Fatalf("mutated at rate 0: %v", mc)
	}
}

func TestElites(t *testing.T) {
	fitness := []float64{3, 1, 2, 1, 0}
	if idx := eliteIndices(fitness, 3); len(idx) != 3 || idx[0] != 4 || idx[1] != 1 || idx[2] != 3 {
		t.Fatalf("elites %v", idx)
	}
	if idx := eliteIndices(fitness, 10); len(idx) != len(fitness) {
		t.Fatalf("elites %v", idx)
	}
	if i := bestIndex([]float64{2, 1, 1}); i != 1 {
		t.Fatalf("best %d", i)
	}
}
