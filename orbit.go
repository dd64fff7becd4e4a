package trajopt

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	eccentricityε = 5e-5
	angleε        = (5e-3 / 360) * (2 * math.Pi) // 0.005 degrees
)

// Orbit holds the osculating heliocentric elements of a state. Angles are in radians, A in meters
// (negative for hyperbolic orbits).
type Orbit struct {
	A, E, I, Ω, ω, ν float64
	μ                float64
}

// NewOrbitFromRV returns the osculating elements of the state about a body of gravitational parameter mu.
func NewOrbitFromRV(R, V r3.Vec, mu float64) Orbit {
	// From Vallado's RV2COE, page 113
	hVec := r3.Cross(R, V)
	n := r3.Cross(r3.Vec{Z: 1}, hVec)
	v := norm(V)
	r := norm(R)
	ξ := (v*v)/2 - mu/r
	a := -mu / (2 * ξ)
	eVec := r3.Scale(1/mu, r3.Sub(r3.Scale(v*v-mu/r, R), r3.Scale(r3.Dot(R, V), V)))
	e := norm(eVec)
	var i float64 // zero for radial trajectories
	if hHat := unit(hVec); hHat != (r3.Vec{}) {
		i = math.Acos(clamp(hHat.Z))
	}
	var Ω, ω float64
	if nn := norm(n); nn > 0 {
		Ω = math.Acos(clamp(n.X / nn))
		if n.Y < 0 {
			Ω = 2*math.Pi - Ω
		}
		if e > eccentricityε {
			ω = math.Acos(clamp(r3.Dot(n, eVec) / (nn * e)))
			if eVec.Z < 0 {
				ω = 2*math.Pi - ω
			}
		}
	} else if e > eccentricityε {
		// Equatorial, ω is the longitude of periapsis.
		ω = math.Atan2(eVec.Y, eVec.X)
		if ω < 0 {
			ω += 2 * math.Pi
		}
	}
	var ν float64
	if e > eccentricityε {
		ν = math.Acos(clamp(r3.Dot(eVec, R) / (e * r)))
		if r3.Dot(R, V) < 0 {
			ν = 2*math.Pi - ν
		}
	}
	return Orbit{a, e, math.Mod(i, 2*math.Pi), math.Mod(Ω, 2*math.Pi), math.Mod(ω, 2*math.Pi), math.Mod(ν, 2*math.Pi), mu}
}

// clamp fixes the rounding errors of cosines just beyond ±1.
func clamp(cos float64) float64 {
	return math.Max(-1, math.Min(1, cos))
}

// Bound returns whether the orbit is elliptical.
func (o Orbit) Bound() bool {
	return o.E < 1 && o.A > 0
}

// Periapsis returns the periapsis radius.
func (o Orbit) Periapsis() float64 {
	return o.A * (1 - o.E)
}

// Apoapsis returns the apoapsis radius, +Inf if the orbit is not bound.
func (o Orbit) Apoapsis() float64 {
	if !o.Bound() {
		return math.Inf(1)
	}
	return o.A * (1 + o.E)
}

// Period returns the orbital period, zero if the orbit is not bound.
func (o Orbit) Period() time.Duration {
	if !o.Bound() {
		return 0
	}
	return time.Duration(2*math.Pi*math.Sqrt(o.A*o.A*o.A/o.μ)) * time.Second
}

// Equals returns whether two orbits have the same shape and orientation, with free true anomaly.
func (o Orbit) Equals(o1 Orbit, distanceε float64) (bool, error) {
	if !scalar.EqualWithinAbs(o.A, o1.A, distanceε) {
		return false, fmt.Errorf("semi major axis invalid: %f != %f", o.A, o1.A)
	}
	if !scalar.EqualWithinAbs(o.E, o1.E, eccentricityε) {
		return false, fmt.Errorf("eccentricity invalid: %f != %f", o.E, o1.E)
	}
	if !scalar.EqualWithinAbs(o.I, o1.I, angleε) {
		return false, fmt.Errorf("inclination invalid: %f != %f", o.I, o1.I)
	}
	return true, nil
}

func (o Orbit) String() string {
	if o.E < eccentricityε {
		return fmt.Sprintf("a=%.4f AU e=%.5f i=%.3f Ω=%.3f", o.A/AU, o.E, Rad2deg(o.I), Rad2deg(o.Ω))
	}
	return fmt.Sprintf("a=%.4f AU e=%.5f i=%.3f Ω=%.3f ω=%.3f ν=%.3f", o.A/AU, o.E, Rad2deg(o.I), Rad2deg(o.Ω), Rad2deg(o.ω), Rad2deg(o.ν))
}
