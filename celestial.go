package trajopt

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	// G is the gravitational constant in m^3 kg^-1 s^-2.
	G = 6.67430e-11
	// AU is one astronomical unit in meters.
	AU = 1.496e11
	// defaultCrashRadius applies to every body without its own value.
	defaultCrashRadius = 7e6
	day                = 24 * time.Hour
)

// Body defines a point-mass celestial body on a nominally circular heliocentric orbit.
type Body struct {
	Name        string
	Mass        float64       // kg
	OrbitRadius float64       // m, zero for the Sun
	Period      time.Duration // sidereal period, zero for the Sun
	CrashRadius float64       // m
	vsop        int           // VSOP87 file index, -1 if not provided
}

// GM returns μ.
func (b Body) GM() float64 {
	return G * b.Mass
}

// IsSun returns whether this body is the central body.
func (b Body) IsSun() bool {
	return b.OrbitRadius == 0
}

// String implements the Stringer interface.
func (b Body) String() string {
	return b.Name
}

// Equals returns whether the provided body is the same.
func (b Body) Equals(o Body) bool {
	return b.Name == o.Name && b.Mass == o.Mass && b.OrbitRadius == o.OrbitRadius && b.Period == o.Period
}

// MeanMotion returns the angular rate of the circular orbit in rad/s.
func (b Body) MeanMotion() float64 {
	if b.Period <= 0 {
		return 0
	}
	return 2 * math.Pi / b.Period.Seconds()
}

// BodyFromString returns the body from its name.
func BodyFromString(name string) (Body, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sun":
		return Sun, nil
	case "mercury":
		return Mercury, nil
	case "venus":
		return Venus, nil
	case "earth":
		return Earth, nil
	case "mars":
		return Mars, nil
	case "jupiter":
		return Jupiter, nil
	case "saturn":
		return Saturn, nil
	default:
		return Body{}, fmt.Errorf("%w: undefined body %q", ErrInvalidConfig, name)
	}
}

// BodiesFromStrings resolves each name in order and drops duplicates.
func BodiesFromStrings(names []string) ([]Body, error) {
	bodies := make([]Body, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		b, err := BodyFromString(name)
		if err != nil {
			return nil, err
		}
		if seen[b.Name] {
			continue
		}
		seen[b.Name] = true
		bodies = append(bodies, b)
	}
	return bodies, nil
}

// Hohmann computes the speeds at both ends of a Hohmann transfer between two circular orbits
// of radii rI and rF about a body of gravitational parameter mu, and the time of flight.
// The speeds are those of the transfer ellipse, not the Δv.
func Hohmann(rI, rF, mu float64) (vDeparture, vArrival float64, tof time.Duration) {
	aTransfer := 0.5 * (rI + rF)
	vDeparture = math.Sqrt((2 * mu / rI) - (mu / aTransfer))
	vArrival = math.Sqrt((2 * mu / rF) - (mu / aTransfer))
	tof = time.Duration(math.Pi*math.Sqrt(math.Pow(aTransfer, 3)/mu)) * time.Second
	return
}

/* Definitions */

// Sun is our closest star.
var Sun = Body{"Sun", 1.989e30, 0, 0, 7e8, -1}

// Mercury is the closest planet to the Sun.
var Mercury = Body{"Mercury", 3.285e23, 0.39 * AU, 88 * day, defaultCrashRadius, 0}

// Venus is poisonous.
var Venus = Body{"Venus", 4.867e24, 0.72 * AU, 225 * day, defaultCrashRadius, 1}

// Earth is home.
var Earth = Body{"Earth", 5.972e24, 1.0 * AU, time.Duration(365.25 * float64(day)), defaultCrashRadius, 2}

// Mars is the vacation place.
var Mars = Body{"Mars", 6.39e23, 1.52 * AU, 687 * day, defaultCrashRadius, 3}

// Jupiter is big.
var Jupiter = Body{"Jupiter", 1.898e27, 5.2 * AU, 4333 * day, 7.5e7, 4}

// Saturn has rings.
var Saturn = Body{"Saturn", 5.683e26, 9.54 * AU, 10759 * day, defaultCrashRadius, 5}
