package trajopt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/planetposition"
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/spatial/r3"
)

// auIAU is the IAU astronomical unit in meters, the unit of the VSOP87 range.
const auIAU = 1.49597870700e11

// Sample is a tabulated heliocentric position.
type Sample struct {
	DT       time.Time
	Position r3.Vec // m
}

type bodyTable struct {
	first, last time.Time
	x, y, z     interp.PiecewiseLinear
}

// TableEphemeris interpolates tabulated positions linearly between samples.
// It is read-only after construction.
type TableEphemeris struct {
	name   string
	ref    time.Time
	tables map[string]*bodyTable
}

// NewTableEphemeris builds the interpolation tables. Each body needs at least two samples,
// and no two samples of a body may share an epoch.
func NewTableEphemeris(name string, samples map[string][]Sample) (*TableEphemeris, error) {
	e := &TableEphemeris{name: name, tables: make(map[string]*bodyTable, len(samples))}
	for _, ss := range samples {
		for _, s := range ss {
			if e.ref.IsZero() || s.DT.Before(e.ref) {
				e.ref = s.DT
			}
		}
	}
	for body, ss := range samples {
		if len(ss) < 2 {
			return nil, fmt.Errorf("%w: %s table has %d samples", ErrDataUnavailable, body, len(ss))
		}
		sorted := append([]Sample(nil), ss...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].DT.Before(sorted[j].DT) })
		ts := make([]float64, len(sorted))
		xs, ys, zs := make([]float64, len(sorted)), make([]float64, len(sorted)), make([]float64, len(sorted))
		for i, s := range sorted {
			if i > 0 && !s.DT.After(sorted[i-1].DT) {
				return nil, fmt.Errorf("%w: %s table has duplicate epoch %s", ErrDataUnavailable, body, s.DT)
			}
			ts[i] = s.DT.Sub(e.ref).Seconds()
			xs[i], ys[i], zs[i] = s.Position.X, s.Position.Y, s.Position.Z
		}
		tbl := &bodyTable{first: sorted[0].DT, last: sorted[len(sorted)-1].DT}
		for _, fit := range []struct {
			pl *interp.PiecewiseLinear
			ys []float64
		}{{&tbl.x, xs}, {&tbl.y, ys}, {&tbl.z, zs}} {
			if err := fit.pl.Fit(ts, fit.ys); err != nil {
				return nil, fmt.Errorf("%w: %s: %s", ErrDataUnavailable, body, err)
			}
		}
		e.tables[strings.ToLower(body)] = tbl
	}
	return e, nil
}

// Name implements the Ephemeris interface.
func (e *TableEphemeris) Name() string {
	return e.name
}

// Covers returns whether positions of b are available over [start, end].
func (e *TableEphemeris) Covers(b Body, start, end time.Time) bool {
	if b.IsSun() {
		return true
	}
	tbl, ok := e.tables[strings.ToLower(b.Name)]
	if !ok {
		return false
	}
	return !start.Before(tbl.first) && !end.After(tbl.last)
}

// Position implements the Ephemeris interface.
func (e *TableEphemeris) Position(b Body, dt time.Time) (r3.Vec, error) {
	if b.IsSun() {
		return r3.Vec{}, nil
	}
	tbl, ok := e.tables[strings.ToLower(b.Name)]
	if !ok {
		return r3.Vec{}, fmt.Errorf("%w: no %s table in %s", ErrDataUnavailable, b.Name, e.name)
	}
	if dt.Before(tbl.first) || dt.After(tbl.last) {
		return r3.Vec{}, fmt.Errorf("%w: %s outside of %s table [%s, %s]", ErrDataUnavailable, dt.UTC(), b.Name, tbl.first, tbl.last)
	}
	t := dt.Sub(e.ref).Seconds()
	return r3.Vec{X: tbl.x.Predict(t), Y: tbl.y.Predict(t), Z: tbl.z.Predict(t)}, nil
}

// TabulateVSOP87 samples the VSOP87 heliocentric ecliptic J2000 positions of the bodies every cadence
// over [start, end]. The directory must hold the VSOP87B files; if empty, the VSOP87 environment
// variable names it.
func TabulateVSOP87(dir string, bodies []Body, start, end time.Time, cadence time.Duration) (*TableEphemeris, error) {
	if cadence <= 0 {
		return nil, fmt.Errorf("%w: VSOP87 cadence must be positive", ErrDataUnavailable)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("%w: VSOP87 window ends before it starts", ErrDataUnavailable)
	}
	samples := make(map[string][]Sample)
	for _, b := range bodies {
		if b.IsSun() {
			continue
		}
		if b.vsop < 0 {
			return nil, fmt.Errorf("%w: no VSOP87 theory for %s", ErrDataUnavailable, b.Name)
		}
		var planet *planetposition.V87Planet
		var err error
		if dir == "" {
			planet, err = planetposition.LoadPlanet(b.vsop) // from $VSOP87
		} else {
			planet, err = planetposition.LoadPlanetPath(b.vsop, dir)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: could not load %s: %s", ErrDataUnavailable, b.Name, err)
		}
		var ss []Sample
		for dt := start; !dt.After(end); dt = dt.Add(cadence) {
			l, lat, r := planet.Position2000(julian.TimeToJD(dt))
			ss = append(ss, Sample{dt, Ecliptic2Cartesian(l.Rad(), lat.Rad(), r*auIAU)})
		}
		if last := ss[len(ss)-1].DT; last.Before(end) {
			l, lat, r := planet.Position2000(julian.TimeToJD(end))
			ss = append(ss, Sample{end, Ecliptic2Cartesian(l.Rad(), lat.Rad(), r*auIAU)})
		}
		samples[b.Name] = ss
	}
	return NewTableEphemeris("vsop87", samples)
}

// LoadHorizonsDir reads one JPL Horizons vector table per body, named after the lower case body name
// with a csv extension, and rotates the positions from the frame of the tables to the ecliptic.
func LoadHorizonsDir(dir string, bodies []Body, frame Frame) (*TableEphemeris, error) {
	samples := make(map[string][]Sample)
	for _, b := range bodies {
		if b.IsSun() {
			continue
		}
		f, err := os.Open(filepath.Join(dir, strings.ToLower(b.Name)+".csv"))
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrDataUnavailable, err)
		}
		ss, err := LoadHorizons(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name, err)
		}
		for i := range ss {
			ss[i].Position = frame.ToEcliptic(ss[i].Position)
		}
		samples[b.Name] = ss
	}
	return NewTableEphemeris("horizons", samples)
}

// LoadHorizons parses a JPL Horizons CSV vector table: rows of JDTDB, calendar date, X, Y, Z in km.
// When $$SOE and $$EOE markers are present only the rows between them are read, otherwise every row
// after the JDTDB header is.
func LoadHorizons(r io.Reader) ([]Sample, error) {
	var (
		samples           []Sample
		header, soe, data bool
	)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "", strings.HasPrefix(line, "*"):
			continue
		case strings.HasPrefix(line, "$$SOE"):
			soe, data = true, true
			continue
		case strings.HasPrefix(line, "$$EOE"):
			data = false
			continue
		case strings.Contains(line, "JDTDB"):
			header = true
			continue
		}
		if !data && (soe || !header) {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) < 5 {
			return nil, fmt.Errorf("%w: line %d: expected at least 5 fields, got %d", ErrDataUnavailable, lineNo, len(fields))
		}
		vals := make([]float64, 4)
		for i, idx := range []int{0, 2, 3, 4} {
			v, err := strconv.ParseFloat(strings.TrimSpace(fields[idx]), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %s", ErrDataUnavailable, lineNo, err)
			}
			vals[i] = v
		}
		dt := julian.JDToTime(vals[0]).UTC().Round(time.Second)
		samples = append(samples, Sample{dt, r3.Scale(1e3, r3.Vec{X: vals[1], Y: vals[2], Z: vals[3]})})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDataUnavailable, err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no Horizons records found", ErrDataUnavailable)
	}
	return samples, nil
}
