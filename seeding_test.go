package trajopt

import (
	"errors"
	"testing"
	"time"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"
)

func intervalEqual(a, b Interval, tol float64) bool {
	return scalar.EqualWithinAbs(a.Min, b.Min, tol) && scalar.EqualWithinAbs(a.Max, b.Max, tol)
}

func TestSeedingFromString(t *testing.T) {
	for name, exp := range map[string]Seeding{"": FixedSeeding, "fixed": FixedSeeding, "Hohmann": HohmannSeeding, "lambert": LambertSeeding} {
		s, err := SeedingFromString(name)
		if err != nil || s != exp {
			t.Fatalf("%q: %s %v", name, s, err)
		}
		if name != "" && s.String() != exp.String() {
			t.Fatalf("%q: %s", name, s)
		}
	}
	if _, err := SeedingFromString("random"); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("unknown seeding: %v", err)
	}
}

func TestFixedSeedRanges(t *testing.T) {
	rngs := FixedSeedRanges(DefaultBounds())
	exp := Bounds{{0, 5000}, {8000, 12000}, {100, 400}, {-1000, 1000}, {-1000, 1000}, {400, 800}, {-1000, 1000}, {-1000, 1000}}
	if rngs != exp {
		t.Fatalf("got %v", rngs)
	}
	// Disjoint ranges fall back to the bound, overlapping ones are narrowed.
	bounds := DefaultBounds()
	bounds[LaunchVY] = Interval{0, 100}
	bounds[Burn1Day] = Interval{300, 600}
	rngs = FixedSeedRanges(bounds)
	if rngs[LaunchVY] != bounds[LaunchVY] || rngs[Burn1Day] != (Interval{300, 400}) {
		t.Fatalf("got %v", rngs)
	}
}

func TestHohmannSeedRanges(t *testing.T) {
	rngs := HohmannSeedRanges(Earth, Jupiter, DefaultBounds())
	for i, exp := range map[int]Interval{
		LaunchVX: {0, 4397},
		LaunchVY: {7914, 11871},
		Burn1Day: {99.7, 398.6},
		Burn2Day: {398.6, 797.3},
		Burn2VY:  {-1000, 1000},
	} {
		if !intervalEqual(rngs[i], exp, 5) {
			t.Fatalf("%s: got %v exp %v", GeneNames[i], rngs[i], exp)
		}
	}
	// The seeded chromosomes stay within the bounds.
	bnds := DefaultBounds()
	for i := range rngs {
		if _, ok := rngs[i].Intersect(bnds[i]); !ok || rngs[i].Min < bnds[i].Min || rngs[i].Max > bnds[i].Max {
			t.Fatalf("%s: %v out of %v", GeneNames[i], rngs[i], bnds[i])
		}
	}
}

func TestLambertSeedRanges(t *testing.T) {
	launch := r3.Vec{X: 3000, Y: 9000}
	rngs := LambertSeedRanges(launch, 1000*24*time.Hour, DefaultBounds())
	spread := 0.1*9486.833 + 200
	for i, exp := range map[int]Interval{
		LaunchVX: {3000 - spread, 3000 + spread},
		LaunchVY: {9000 - spread, 9000 + spread},
		Burn1Day: {100, 400},
		Burn2Day: {400, 800},
		Burn1VX:  {-1000, 1000},
	} {
		if !intervalEqual(rngs[i], exp, 1e-2) {
			t.Fatalf("%s: got %v exp %v", GeneNames[i], rngs[i], exp)
		}
	}
}
