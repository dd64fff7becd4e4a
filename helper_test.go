package trajopt

import (
	"fmt"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"
)

func assertPanic(t *testing.T, f func()) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("code did not panic")
		}
	}()
	f()
}

func vectorsEqual(a, b r3.Vec) bool {
	for _, p := range [][2]float64{{a.X, b.X}, {a.Y, b.Y}, {a.Z, b.Z}} {
		if !scalar.EqualWithinAbs(p[0], p[1], 1e-9) && !scalar.EqualWithinRel(p[0], p[1], 1e-3) {
			return false
		}
	}
	return true
}

// anglesEqual returns whether two angles in degrees are equal.
func anglesEqual(a, b float64) (bool, error) {
	diff := math.Mod(math.Abs(a-b), 360)
	if diff < 5e-3 || 360-diff < 5e-3 {
		return true, nil
	}
	return false, fmt.Errorf("difference of %3.10f degrees", diff)
}
