package trajopt

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	deg2rad = math.Pi / 180
)

// norm returns the norm of a given vector.
func norm(v r3.Vec) float64 {
	return r3.Norm(v)
}

// unit returns the unit vector of a given vector, or the zero vector.
func unit(a r3.Vec) r3.Vec {
	n := norm(a)
	if scalar.EqualWithinAbs(n, 0, 1e-12) {
		return r3.Vec{}
	}
	return r3.Scale(1/n, a)
}

// isFinite returns whether every component of the vector is finite.
func isFinite(v r3.Vec) bool {
	for _, c := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// packState flattens position and velocity into a state vector.
func packState(R, V r3.Vec) []float64 {
	return []float64{R.X, R.Y, R.Z, V.X, V.Y, V.Z}
}

// unpackState is the inverse of packState.
func unpackState(s []float64) (R, V r3.Vec) {
	R = r3.Vec{X: s[0], Y: s[1], Z: s[2]}
	V = r3.Vec{X: s[3], Y: s[4], Z: s[5]}
	return
}

// Ecliptic2Cartesian returns the Cartesian position in meters from the heliocentric
// ecliptic longitude l, latitude b (radians) and range r in meters.
func Ecliptic2Cartesian(l, b, r float64) r3.Vec {
	sB, cB := math.Sincos(b)
	sL, cL := math.Sincos(l)
	return r3.Vec{X: r * cB * cL, Y: r * cB * sL, Z: r * sB}
}

// Deg2rad converts degrees to radians, and enforced only positive numbers.
func Deg2rad(a float64) float64 {
	if a < 0 {
		a += 360
	}
	return math.Mod(a*deg2rad, 2*math.Pi)
}

// Rad2deg converts radians to degrees, and enforced only positive numbers.
func Rad2deg(a float64) float64 {
	if a < 0 {
		a += 2 * math.Pi
	}
	return math.Mod(a/deg2rad, 360)
}
