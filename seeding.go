package trajopt

import (
	"fmt"
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

// Seeding selects the narrow gene ranges of the heuristic chromosomes of the first generation.
type Seeding uint8

const (
	// FixedSeeding uses ranges tuned for an Earth to Jupiter transfer.
	FixedSeeding Seeding = iota + 1
	// HohmannSeeding derives the ranges from the Hohmann transfer between the origin and target orbits.
	HohmannSeeding
	// LambertSeeding centers the launch genes on the Lambert transfer reaching the target after the
	// Hohmann time of flight, from the ephemeris positions.
	LambertSeeding
)

func (s Seeding) String() string {
	switch s {
	case FixedSeeding:
		return "fixed"
	case HohmannSeeding:
		return "hohmann"
	case LambertSeeding:
		return "lambert"
	default:
		return fmt.Sprintf("seeding(%d)", uint8(s))
	}
}

// SeedingFromString returns the seeding from its name.
func SeedingFromString(name string) (Seeding, error) {
	switch strings.ToLower(name) {
	case "fixed", "":
		return FixedSeeding, nil
	case "hohmann":
		return HohmannSeeding, nil
	case "lambert":
		return LambertSeeding, nil
	default:
		return 0, fmt.Errorf("%w: unknown seeding %q", ErrInvalidConfig, name)
	}
}

// trimΔv bounds each component of the seeded burns, in m/s.
const trimΔv = 1000

// FixedSeedRanges returns the heuristic ranges of an Earth to Jupiter transfer, within bounds.
func FixedSeedRanges(bounds Bounds) Bounds {
	return narrow(bounds, Bounds{
		{0, 5000},
		{8000, 12000},
		{100, 400},
		{-trimΔv, trimΔv},
		{-trimΔv, trimΔv},
		{400, 800},
		{-trimΔv, trimΔv},
		{-trimΔv, trimΔv},
	})
}

// HohmannSeedRanges returns heuristic ranges around the Hohmann transfer from the orbit of origin to
// the orbit of target: a prograde launch boost near the transfer Δv, a first trim burn early in the
// transfer and a second one in its second half. The ranges are intersected with the bounds.
func HohmannSeedRanges(origin, target Body, bounds Bounds) Bounds {
	vDep, _, tof := Hohmann(origin.OrbitRadius, target.OrbitRadius, Sun.GM())
	boost := vDep - math.Sqrt(Sun.GM()/origin.OrbitRadius)
	tofDays := tof.Hours() / 24
	return narrow(bounds, Bounds{
		{0, 0.5 * math.Abs(boost)},
		ordered(0.9*boost, 1.35*boost),
		{0.1 * tofDays, 0.4 * tofDays},
		{-trimΔv, trimΔv},
		{-trimΔv, trimΔv},
		{0.4 * tofDays, 0.8 * tofDays},
		{-trimΔv, trimΔv},
		{-trimΔv, trimΔv},
	})
}

// LambertSeedRanges returns heuristic ranges around a launch velocity offset, e.g. from LambertLaunch,
// with the maneuver days of HohmannSeedRanges scaled to the time of flight.
func LambertSeedRanges(launch r3.Vec, tof time.Duration, bounds Bounds) Bounds {
	spread := 0.1*math.Hypot(launch.X, launch.Y) + 200
	tofDays := tof.Hours() / 24
	return narrow(bounds, Bounds{
		{launch.X - spread, launch.X + spread},
		{launch.Y - spread, launch.Y + spread},
		{0.1 * tofDays, 0.4 * tofDays},
		{-trimΔv, trimΔv},
		{-trimΔv, trimΔv},
		{0.4 * tofDays, 0.8 * tofDays},
		{-trimΔv, trimΔv},
		{-trimΔv, trimΔv},
	})
}

// LambertLaunch returns the launch velocity offset from the origin body of the heliocentric Lambert
// transfer reaching the target position after tof, and the arrival velocity relative to the target.
func (s *Simulator) LambertLaunch(tof time.Duration) (launch, vInf r3.Vec, err error) {
	arrival := s.Start.Add(tof)
	Ri, err := s.Ephemeris.Position(s.Origin, s.Start)
	if err != nil {
		return
	}
	Rf, err := s.Ephemeris.Position(s.Target, arrival)
	if err != nil {
		return
	}
	Vi, Vf, _, err := Lambert(Ri, Rf, tof, TTypeAuto, Sun.GM())
	if err != nil {
		return
	}
	Vo, err := Velocity(s.Ephemeris, s.Origin, s.Start)
	if err != nil {
		return
	}
	Vt, err := Velocity(s.Ephemeris, s.Target, arrival)
	if err != nil {
		return
	}
	return r3.Sub(Vi, Vo), r3.Sub(Vf, Vt), nil
}

func ordered(a, b float64) Interval {
	if a > b {
		a, b = b, a
	}
	return Interval{a, b}
}

// narrow intersects each range with its bound, falling back to the bound when they are disjoint.
func narrow(bounds, ranges Bounds) Bounds {
	for i := range ranges {
		in, ok := ranges[i].Intersect(bounds[i])
		if !ok {
			in = bounds[i]
		}
		ranges[i] = in
	}
	return ranges
}
