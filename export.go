package trajopt

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

const dateFormat = "2006-01-02 15:04:05"

// WriteTraceCSV writes one row per trace point, positions in AU.
func WriteTraceCSV(w io.Writer, trace []TracePoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "body", "x_au", "y_au", "z_au"}); err != nil {
		return err
	}
	for _, pt := range trace {
		rec := []string{
			pt.DT.UTC().Format(time.RFC3339),
			pt.Body,
			strconv.FormatFloat(pt.Position.X/AU, 'f', 9, 64),
			strconv.FormatFloat(pt.Position.Y/AU, 'f', 9, 64),
			strconv.FormatFloat(pt.Position.Z/AU, 'f', 9, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteHistoryCSV writes the per generation fitness summary.
func WriteHistoryCSV(w io.Writer, history []HistoryEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"generation", "best", "mean"}); err != nil {
		return err
	}
	for _, h := range history {
		if err := cw.Write([]string{strconv.Itoa(h.Generation), strconv.FormatFloat(h.Best, 'g', -1, 64), strconv.FormatFloat(h.Mean, 'g', -1, 64)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Gene is a named gene value of a report.
type Gene struct {
	Name  string  `json:"name" yaml:"name"`
	Value float64 `json:"value" yaml:"value"`
}

// ReportOutcome is the serializable form of an Outcome. MinDistanceAU is nil when the target
// distance was never sampled or not finite.
type ReportOutcome struct {
	Status        string       `json:"status" yaml:"status"`
	Reason        string       `json:"reason" yaml:"reason"`
	CrashedInto   string       `json:"crashed_into,omitempty" yaml:"crashed_into,omitempty"`
	MinDistanceAU *float64     `json:"min_distance_au" yaml:"min_distance_au"`
	ClosestDT     string       `json:"closest_approach,omitempty" yaml:"closest_approach,omitempty"`
	TotalDeltaV   float64      `json:"total_delta_v" yaml:"total_delta_v"`
	MissionDays   float64      `json:"mission_days" yaml:"mission_days"`
	Steps         uint64       `json:"steps" yaml:"steps"`
	FinalOrbit    *ReportOrbit `json:"final_orbit,omitempty" yaml:"final_orbit,omitempty"`
}

// ReportOrbit is the heliocentric orbit at the end of a simulation.
type ReportOrbit struct {
	SemiMajorAxisAU float64 `json:"a_au" yaml:"a_au"`
	Eccentricity    float64 `json:"e" yaml:"e"`
	InclinationDeg  float64 `json:"i_deg" yaml:"i_deg"`
	PerihelionAU    float64 `json:"perihelion_au" yaml:"perihelion_au"`
}

// Report is the best solution of an optimization.
type Report struct {
	Created     string         `json:"created" yaml:"created"`
	Ephemeris   string         `json:"ephemeris" yaml:"ephemeris"`
	Degraded    bool           `json:"degraded" yaml:"degraded"`
	Seed        int64          `json:"seed" yaml:"seed"`
	Population  int            `json:"population" yaml:"population"`
	Generations int            `json:"generations" yaml:"generations"`
	Fitness     float64        `json:"fitness" yaml:"fitness"`
	Chromosome  []Gene         `json:"chromosome" yaml:"chromosome"`
	Outcome     ReportOutcome  `json:"outcome" yaml:"outcome"`
	History     []HistoryEntry `json:"history" yaml:"history"`
}

// NewReport summarizes a result.
func NewReport(rslt Result, eph Ephemeris, degraded bool, seed int64, population int) Report {
	rpt := Report{
		Created:     time.Now().UTC().Format(time.RFC3339),
		Degraded:    degraded,
		Seed:        seed,
		Population:  population,
		Generations: len(rslt.History),
		Fitness:     rslt.BestFitness,
		Outcome:     NewReportOutcome(rslt.Outcome),
		History:     rslt.History,
	}
	if eph != nil {
		rpt.Ephemeris = eph.Name()
	}
	for i, name := range GeneNames {
		rpt.Chromosome = append(rpt.Chromosome, Gene{name, rslt.Best[i]})
	}
	return rpt
}

// NewReportOutcome converts an outcome.
func NewReportOutcome(o Outcome) ReportOutcome {
	ro := ReportOutcome{
		Status:      o.Status.String(),
		Reason:      o.Reason,
		CrashedInto: o.CrashedInto,
		TotalDeltaV: o.TotalDeltaV,
		MissionDays: o.MissionDays,
		Steps:       o.Steps,
	}
	if d := o.MinDistance / AU; !math.IsInf(d, 0) && !math.IsNaN(d) {
		ro.MinDistanceAU = &d
	}
	if !o.Closest.IsZero() {
		ro.ClosestDT = o.Closest.UTC().Format(time.RFC3339)
	}
	if isFinite(o.FinalPosition) && isFinite(o.FinalVelocity) && norm(o.FinalPosition) > 0 {
		orb := o.FinalOrbit()
		if rpt := (ReportOrbit{orb.A / AU, orb.E, Rad2deg(orb.I), orb.Periapsis() / AU}); isFinite(r3.Vec{X: rpt.SemiMajorAxisAU, Y: rpt.Eccentricity, Z: rpt.PerihelionAU}) {
			ro.FinalOrbit = &rpt
		}
	}
	return ro
}

// BestChromosome returns the chromosome of the report.
func (r Report) BestChromosome() (Chromosome, error) {
	genes := make([]float64, len(r.Chromosome))
	for i, g := range r.Chromosome {
		genes[i] = g.Value
	}
	return ChromosomeFromSlice(genes)
}

// WriteJSON writes the indented JSON report.
func (r Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteYAML writes the YAML report.
func (r Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}

// CgCatalog definition.
type CgCatalog struct {
	Version string     `json:"version"`
	Name    string     `json:"name"`
	Items   []*CgItems `json:"items"`
	Require []string   `json:"require,omitempty"`
}

func (c *CgCatalog) String() string {
	return c.Name + "(" + c.Version + ")"
}

// CgItems definition.
type CgItems struct {
	Class           string            `json:"class"`
	Name            string            `json:"name"`
	StartTime       string            `json:"startTime"`
	EndTime         string            `json:"endTime"`
	Center          string            `json:"center"`
	TrajectoryFrame string            `json:"trajectoryFrame"`
	Trajectory      *CgTrajectory     `json:"trajectory,omitempty"`
	Label           *CgLabel          `json:"label,omitempty"`
	TrajectoryPlot  *CgTrajectoryPlot `json:"trajectoryPlot,omitempty"`
}

// CgTrajectory definition.
type CgTrajectory struct {
	Type   string `json:"type,omitempty"`
	Source string `json:"source,omitempty"`
}

// Validate validates a CgTrajectory.
func (t *CgTrajectory) Validate() error {
	if t.Type != "InterpolatedStates" || !strings.HasSuffix(t.Source, "xyzv") {
		return errors.New("only InterpolatedStates are currently supported in Cosmographia trajectory types")
	}
	return nil
}

// CgLabel definition.
type CgLabel struct {
	Color    []float64 `json:"color,omitempty"`
	FadeSize int       `json:"fadeSize,omitempty"`
	ShowText bool      `json:"showText,omitempty"`
}

// CgTrajectoryPlot definition.
type CgTrajectoryPlot struct {
	Color       []float64 `json:"color,omitempty"`
	LineWidth   int       `json:"lineWidth,omitempty"`
	Duration    string    `json:"duration,omitempty"`
	Lead        string    `json:"lead,omitempty"`
	Fade        int       `json:"fade,omitempty"`
	SampleCount int       `json:"sampleCount,omitempty"`
}

// CgInterpolatedState is one record of an xyzv file: positions in km and velocities in km/s.
type CgInterpolatedState struct {
	JD       float64
	Position r3.Vec
	Velocity r3.Vec
}

// ToText converts to text for written output.
func (i CgInterpolatedState) ToText() string {
	return fmt.Sprintf("%f %f %f %f %f %f %f", i.JD, i.Position.X, i.Position.Y, i.Position.Z, i.Velocity.X, i.Velocity.Y, i.Velocity.Z)
}

// InterpolatedStates returns the spacecraft states of a trace, velocities from finite differences.
func InterpolatedStates(trace []TracePoint) []CgInterpolatedState {
	var pts []TracePoint
	for _, pt := range trace {
		if pt.Body == SpacecraftName {
			pts = append(pts, pt)
		}
	}
	states := make([]CgInterpolatedState, len(pts))
	for i, pt := range pts {
		var vel r3.Vec
		if len(pts) > 1 {
			prev, next := pts[max(i-1, 0)], pts[min(i+1, len(pts)-1)]
			if dt := next.DT.Sub(prev.DT).Seconds(); dt > 0 {
				vel = r3.Scale(1e-3/dt, r3.Sub(next.Position, prev.Position))
			}
		}
		states[i] = CgInterpolatedState{JD: julian.TimeToJD(pt.DT), Position: r3.Scale(1e-3, pt.Position), Velocity: vel}
	}
	return states
}

// WriteCosmographia writes the spacecraft trajectory of the trace as a Cosmographia catalog
// (catalog-<name>.json) and its interpolated states (traj-<name>.xyzv) in dir.
func WriteCosmographia(dir, name string, trace []TracePoint) error {
	states := InterpolatedStates(trace)
	if len(states) == 0 {
		return errors.New("no spacecraft state in trace")
	}
	first, last := julian.JDToTime(states[0].JD).UTC(), julian.JDToTime(states[len(states)-1].JD).UTC()
	source := fmt.Sprintf("traj-%s.xyzv", name)
	f, err := os.Create(filepath.Join(dir, source))
	if err != nil {
		return err
	}
	defer f.Close()
	// Header
	if _, err := fmt.Fprintf(f, `# Creation date (UTC): %s
# Records are <jd> <x> <y> <z> <vel x> <vel y> <vel z>
#   Time is a TDB Julian date
#   Position in km
#   Velocity in km/sec
#   Simulation time start (UTC): %s`, time.Now().UTC().Format(dateFormat), first.Format(dateFormat)); err != nil {
		return err
	}
	for _, st := range states {
		if _, err := f.WriteString("\n" + st.ToText()); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(f, "\n# Simulation time end (UTC): %s\n", last.Format(dateFormat)); err != nil {
		return err
	}

	traj := CgTrajectory{Type: "InterpolatedStates", Source: source}
	if err := traj.Validate(); err != nil {
		return err
	}
	color := []float64{0.6, 1, 1}
	longerEnd := last.Add(24 * time.Hour)
	item := &CgItems{
		Class:           "spacecraft",
		Name:            name,
		StartTime:       first.Format(dateFormat),
		EndTime:         longerEnd.Format(dateFormat),
		Center:          "Sun",
		TrajectoryFrame: "EclipticJ2000",
		Trajectory:      &traj,
		Label:           &CgLabel{Color: color, FadeSize: 1000000, ShowText: true},
		TrajectoryPlot: &CgTrajectoryPlot{Color: color, LineWidth: 1, Lead: "0 d", SampleCount: 10,
			Duration: fmt.Sprintf("%d d", int(longerEnd.Sub(first).Hours()/24+1))},
	}
	c := CgCatalog{Version: "1.0", Name: name, Items: []*CgItems{item}}
	marsh, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, fmt.Sprintf("catalog-%s.json", name)), marsh, 0o644)
}
