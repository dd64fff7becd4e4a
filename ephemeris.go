package trajopt

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrDataUnavailable is returned when an ephemeris cannot provide a position.
var ErrDataUnavailable = errors.New("ephemeris data unavailable")

// velocityΔt is the half width of the central difference used by Velocity.
const velocityΔt = time.Hour

// Ephemeris provides heliocentric positions of bodies, in meters.
// Implementations must be safe for concurrent reads.
type Ephemeris interface {
	Position(b Body, dt time.Time) (r3.Vec, error)
	Name() string
}

// Velocity returns the heliocentric velocity of a body in m/s from a central difference of positions.
func Velocity(e Ephemeris, b Body, dt time.Time) (r3.Vec, error) {
	before, err := e.Position(b, dt.Add(-velocityΔt))
	if err != nil {
		return r3.Vec{}, err
	}
	after, err := e.Position(b, dt.Add(velocityΔt))
	if err != nil {
		return r3.Vec{}, err
	}
	return r3.Scale(1/(2*velocityΔt.Seconds()), r3.Sub(after, before)), nil
}

// CircularEphemeris places every body on a circular orbit in the ecliptic plane
// at its catalog radius and period, with all bodies on the +X axis at Epoch.
type CircularEphemeris struct {
	Epoch time.Time
}

// NewCircularEphemeris returns a circular ephemeris anchored at the provided epoch.
func NewCircularEphemeris(epoch time.Time) CircularEphemeris {
	return CircularEphemeris{Epoch: epoch.UTC()}
}

// Name implements the Ephemeris interface.
func (e CircularEphemeris) Name() string {
	return "circular"
}

// Position implements the Ephemeris interface. It never fails.
func (e CircularEphemeris) Position(b Body, dt time.Time) (r3.Vec, error) {
	if b.IsSun() || b.Period <= 0 {
		return r3.Vec{}, nil
	}
	θ := b.MeanMotion() * dt.Sub(e.Epoch).Seconds()
	sθ, cθ := math.Sincos(θ)
	return r3.Vec{X: b.OrbitRadius * cθ, Y: b.OrbitRadius * sθ}, nil
}

// EphemerisConfig configures the precise ephemeris.
type EphemerisConfig struct {
	Source    string        // vsop87, horizons or circular
	Directory string        // data directory of the source
	Cadence   time.Duration // tabulation cadence of generated tables
	Frame     string        // frame of the Horizons tables, ecliptic or equatorial
}

// SelectEphemeris builds the precise ephemeris once for the provided bodies and mission window.
// On any failure, including partial coverage of [start, end], the failure is logged and the circular
// fallback is returned with degraded set. Only an unknown source name is returned as an error.
func SelectEphemeris(conf EphemerisConfig, bodies []Body, start, end time.Time, logger kitlog.Logger) (eph Ephemeris, degraded bool, err error) {
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	logger = kitlog.With(logger, "subsys", "ephem")
	fallback := NewCircularEphemeris(start)

	var table *TableEphemeris
	switch strings.ToLower(conf.Source) {
	case "circular", "":
		level.Info(logger).Log("source", fallback.Name())
		return fallback, false, nil
	case "vsop87":
		first, last := tabulationWindow(start, end, conf.Cadence)
		table, err = TabulateVSOP87(conf.Directory, bodies, first, last, conf.Cadence)
	case "horizons":
		var frame Frame
		if frame, err = FrameFromString(conf.Frame); err != nil {
			return nil, false, err
		}
		table, err = LoadHorizonsDir(conf.Directory, bodies, frame)
	default:
		return nil, false, fmt.Errorf("%w: unknown ephemeris source %q", ErrInvalidConfig, conf.Source)
	}
	if err == nil {
		for _, b := range bodies {
			if !table.Covers(b, start.Add(-velocityΔt), end.Add(velocityΔt)) {
				err = fmt.Errorf("%w: %s table does not cover %s to %s", ErrDataUnavailable, b.Name, start, end)
				break
			}
		}
	}
	if err != nil {
		level.Warn(logger).Log("status", "degraded", "source", conf.Source, "fallback", fallback.Name(), "err", err)
		return fallback, true, nil
	}
	level.Info(logger).Log("source", table.Name(), "bodies", len(bodies))
	return table, false, nil
}

// tabulationWindow pads the mission window by one cadence, and by at least the half width of the
// velocity difference so that Velocity stays in range at both ends.
func tabulationWindow(start, end time.Time, cadence time.Duration) (first, last time.Time) {
	pad := max(cadence, velocityΔt)
	return start.Add(-pad), end.Add(pad)
}
