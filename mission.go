package trajopt

import (
	"errors"
	"fmt"
	"math"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrPrerequisiteUnavailable is returned when the mission cannot start, e.g. when the origin body
// cannot be located at the start epoch.
var ErrPrerequisiteUnavailable = errors.New("mission prerequisite unavailable")

const (
	// SpacecraftName is the body name of the spacecraft in traces.
	SpacecraftName = "spacecraft"
	// singularityFloor is the separation below which a body exerts no force.
	singularityFloor = 1e3
)

/* Handles the propagation of a maneuver plan. */

// Simulator propagates maneuver plans through the gravity field of the tracked bodies.
// It is read-only after construction and safe for concurrent use.
type Simulator struct {
	Ephemeris         Ephemeris
	Origin, Target    Body
	Bodies            []Body // bodies exerting gravity
	Start, End        time.Time
	Step, MaxDuration time.Duration
	DepartureVicinity float64 // m
	Integrator        Integrator
	Termination       Termination
	TraceEvery        int
	metrics           *Metrics
	logger            kitlog.Logger
	tracked           []trackedBody
	originIdx         int
	targetIdx         int
}

type trackedBody struct {
	Body
	gravity bool
}

// NewSimulator returns a simulator of the configured mission using the provided ephemeris.
func NewSimulator(eph Ephemeris, conf MissionConfig, term Termination, logger kitlog.Logger, metrics *Metrics) (*Simulator, error) {
	if eph == nil {
		return nil, fmt.Errorf("%w: no ephemeris", ErrInvalidConfig)
	}
	origin, err := BodyFromString(conf.Origin)
	if err != nil {
		return nil, err
	}
	target, err := BodyFromString(conf.Target)
	if err != nil {
		return nil, err
	}
	if origin.IsSun() || target.IsSun() || origin.Equals(target) {
		return nil, fmt.Errorf("%w: origin %s and target %s must be distinct planets", ErrInvalidConfig, origin, target)
	}
	bodies, err := BodiesFromStrings(conf.Bodies)
	if err != nil {
		return nil, err
	}
	method, err := IntegratorFromString(conf.Integrator)
	if err != nil {
		return nil, err
	}
	if conf.Step <= 0 || conf.MaxDuration < conf.Step {
		return nil, fmt.Errorf("%w: step %s and max duration %s", ErrInvalidConfig, conf.Step, conf.MaxDuration)
	}
	if err := term.Validate(); err != nil {
		return nil, err
	}
	if conf.TraceEvery <= 0 {
		conf.TraceEvery = 1
	}
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	s := &Simulator{
		Ephemeris:         eph,
		Origin:            origin,
		Target:            target,
		Bodies:            bodies,
		Start:             conf.Start.UTC(),
		End:               conf.End.UTC(),
		Step:              conf.Step,
		MaxDuration:       conf.MaxDuration,
		DepartureVicinity: conf.DepartureVicinity,
		Integrator:        method,
		Termination:       term,
		TraceEvery:        conf.TraceEvery,
		metrics:           metrics,
		logger:            kitlog.With(logger, "subsys", "sim"),
	}
	s.track()
	return s, nil
}

// track builds the list of bodies located at each step: the gravity bodies, then the origin and
// the target if they exert no gravity.
func (s *Simulator) track() {
	s.tracked = s.tracked[:0]
	s.originIdx, s.targetIdx = -1, -1
	for _, b := range s.Bodies {
		s.tracked = append(s.tracked, trackedBody{b, true})
	}
	for _, b := range []Body{s.Origin, s.Target} {
		found := false
		for _, tb := range s.tracked {
			if tb.Name == b.Name {
				found = true
				break
			}
		}
		if !found {
			s.tracked = append(s.tracked, trackedBody{b, false})
		}
	}
	for i, tb := range s.tracked {
		switch tb.Name {
		case s.Origin.Name:
			s.originIdx = i
		case s.Target.Name:
			s.targetIdx = i
		}
	}
}

// WithStep returns a copy of the simulator using another step size, e.g. for finer traces.
func (s *Simulator) WithStep(step time.Duration) *Simulator {
	cpy := *s
	cpy.tracked = nil
	cpy.track()
	if step > 0 {
		cpy.Step = step
	}
	if cpy.MaxDuration < cpy.Step {
		cpy.MaxDuration = cpy.Step
	}
	return &cpy
}

// MaxSteps returns the upper bound of integration steps of any simulation.
func (s *Simulator) MaxSteps() uint64 {
	return uint64(s.MaxDuration / s.Step)
}

// Simulate propagates the plan and classifies its outcome.
func (s *Simulator) Simulate(c Chromosome) (Outcome, error) {
	o, _, err := s.simulate(c, false)
	return o, err
}

// SimulateTrace is Simulate but also returns the positions of the spacecraft and of every tracked body
// at launch, every TraceEvery steps and at the end of the simulation.
func (s *Simulator) SimulateTrace(c Chromosome) (Outcome, []TracePoint, error) {
	return s.simulate(c, true)
}

func (s *Simulator) simulate(c Chromosome, record bool) (Outcome, []TracePoint, error) {
	began := time.Now()
	a, err := s.newMission(c, record)
	if err != nil {
		return Outcome{}, nil, err
	}
	if record {
		a.recordTrace()
	}
	iters, _ := s.Integrator.Solve(0, s.Step.Seconds(), a) // Blocking.
	if a.err != nil {
		return Outcome{}, nil, a.err
	}
	a.outcome.Steps = iters
	a.outcome.MissionDays = a.CurrentDT.Sub(a.StartDT).Hours() / 24
	a.outcome.FinalPosition, a.outcome.FinalVelocity = a.R, a.V
	if record && (len(a.trace) == 0 || a.trace[len(a.trace)-1].DT.Before(a.CurrentDT)) {
		a.recordTrace()
	}
	s.metrics.ObserveSimulation(a.outcome.Status, time.Since(began))
	level.Debug(s.logger).Log("status", a.outcome.Status, "reason", a.outcome.Reason, "steps", iters, "min(AU)", a.outcome.MinDistance/AU, "Δv(m/s)", a.outcome.TotalDeltaV, "days", a.outcome.MissionDays)
	return a.outcome, a.trace, nil
}

// Status is the terminal condition of a simulation.
type Status uint8

const (
	// Nominal simulations ended on duration, mission end or by the receding rule.
	Nominal Status = iota
	// Crashed simulations came within the crash radius of a body.
	Crashed
	// Escaped simulations left the system of the target.
	Escaped
)

func (s Status) String() string {
	switch s {
	case Nominal:
		return "nominal"
	case Crashed:
		return "crashed"
	case Escaped:
		return "escaped"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Outcome is the immutable result of one simulation.
type Outcome struct {
	MinDistance float64 // m, +Inf if never sampled or not finite
	Closest     time.Time
	TotalDeltaV float64 // m/s
	MissionDays float64
	Status      Status
	Reason      string
	CrashedInto string
	Steps       uint64

	// Heliocentric state at the end of the simulation.
	FinalPosition, FinalVelocity r3.Vec
}

// FinalOrbit returns the osculating heliocentric orbit at the end of the simulation.
func (o Outcome) FinalOrbit() Orbit {
	return NewOrbitFromRV(o.FinalPosition, o.FinalVelocity, Sun.GM())
}

// TracePoint is a heliocentric position of a body or of the spacecraft.
type TracePoint struct {
	DT       time.Time
	Body     string
	Position r3.Vec
}

// Mission is one propagation of a maneuver plan and implements ode.Integrable.
type Mission struct {
	sim                *Simulator
	burns              [2]Burn
	burnSteps          [2]int
	R, V               r3.Vec
	StartDT, CurrentDT time.Time
	positions          []r3.Vec // of the tracked bodies at CurrentDT
	departed, done     bool
	prevSample         float64
	outcome            Outcome
	record             bool
	trace              []TracePoint
	err                error
}

func (s *Simulator) newMission(c Chromosome, record bool) (*Mission, error) {
	R, err := s.Ephemeris.Position(s.Origin, s.Start)
	if err != nil {
		return nil, fmt.Errorf("%w: %s position at %s: %s", ErrPrerequisiteUnavailable, s.Origin, s.Start, err)
	}
	V, err := Velocity(s.Ephemeris, s.Origin, s.Start)
	if err != nil {
		return nil, fmt.Errorf("%w: %s velocity at %s: %s", ErrPrerequisiteUnavailable, s.Origin, s.Start, err)
	}
	vx, vy := c.Launch()
	a := &Mission{
		sim:        s,
		burns:      c.Burns(),
		R:          R,
		V:          r3.Add(V, r3.Vec{X: vx, Y: vy}),
		StartDT:    s.Start,
		CurrentDT:  s.Start,
		positions:  make([]r3.Vec, len(s.tracked)),
		prevSample: math.Inf(1),
		record:     record,
	}
	for i, b := range a.burns {
		a.burnSteps[i] = b.Step(s.Step)
	}
	if err := a.locate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPrerequisiteUnavailable, err)
	}
	a.outcome = Outcome{MinDistance: math.Inf(1), TotalDeltaV: math.Hypot(vx, vy), Status: Nominal}
	return a, nil
}

// locate updates the positions of the tracked bodies at the current epoch.
func (a *Mission) locate() error {
	for i, tb := range a.sim.tracked {
		pos, err := a.sim.Ephemeris.Position(tb.Body, a.CurrentDT)
		if err != nil {
			return err
		}
		a.positions[i] = pos
	}
	return nil
}

func (a *Mission) recordTrace() {
	a.trace = append(a.trace, TracePoint{a.CurrentDT, SpacecraftName, a.R})
	for i, tb := range a.sim.tracked {
		a.trace = append(a.trace, TracePoint{a.CurrentDT, tb.Name, a.positions[i]})
	}
}

func (a *Mission) finish(status Status, reason string) {
	a.outcome.Status = status
	a.outcome.Reason = reason
	a.done = true
}

// stepIndex returns the index of the step starting at t seconds after launch.
func (a *Mission) stepIndex(t float64) uint64 {
	return uint64(math.Round(t / a.sim.Step.Seconds()))
}

// Stop implements the stop call of the integrator. It also advances the epoch to the end of
// the step starting at t, fires the burns scheduled at that step and locates the bodies for the
// force evaluation.
func (a *Mission) Stop(t float64) bool {
	i := a.stepIndex(t)
	if a.done || a.err != nil {
		return true
	}
	if i >= a.sim.MaxSteps() {
		a.finish(Nominal, "duration")
		return true
	}
	next := a.CurrentDT.Add(a.sim.Step)
	if !a.sim.End.IsZero() && next.After(a.sim.End) {
		a.finish(Nominal, "mission end")
		return true
	}
	a.CurrentDT = next
	for j, b := range a.burns {
		if uint64(a.burnSteps[j]) == i {
			Δv := r3.Vec{X: b.VX, Y: b.VY}
			a.V = r3.Add(a.V, Δv)
			a.outcome.TotalDeltaV += norm(Δv)
		}
	}
	if err := a.locate(); err != nil {
		a.err = fmt.Errorf("step %d: %w", i, err)
		return true
	}
	return false
}

// GetState returns the position and velocity.
func (a *Mission) GetState() []float64 {
	return packState(a.R, a.V)
}

// Func returns the derivative of the state from point mass gravity of the bodies at the current epoch.
// The origin body exerts no force until the spacecraft has left its vicinity.
func (a *Mission) Func(t float64, f []float64) (fDot []float64) {
	R, V := unpackState(f)
	var acc r3.Vec
	for i, tb := range a.sim.tracked {
		if !tb.gravity || (i == a.sim.originIdx && !a.departed) {
			continue
		}
		rVec := r3.Sub(a.positions[i], R)
		r := norm(rVec)
		if r < singularityFloor {
			continue
		}
		acc = r3.Add(acc, r3.Scale(tb.GM()/(r*r*r), rVec))
	}
	return packState(V, acc)
}

// SetState sets the updated state and classifies it.
func (a *Mission) SetState(t float64, s []float64) {
	i := a.stepIndex(t)
	a.R, a.V = unpackState(s)
	if !isFinite(a.R) || !isFinite(a.V) {
		a.outcome.MinDistance = math.Inf(1)
		a.finish(Nominal, "non-finite state")
		return
	}

	if !a.departed && norm(r3.Sub(a.R, a.positions[a.sim.originIdx])) > a.sim.DepartureVicinity {
		a.departed = true
	}
	for j, tb := range a.sim.tracked {
		if j == a.sim.originIdx && !a.departed {
			continue
		}
		if norm(r3.Sub(a.R, a.positions[j])) < tb.CrashRadius {
			a.outcome.CrashedInto = tb.Name
			a.finish(Crashed, "crashed into "+tb.Name)
			return
		}
	}

	sunDist := norm(a.R)
	targetRadius := a.sim.Target.OrbitRadius
	if a.sim.Termination.Escaped(sunDist, targetRadius) {
		a.finish(Escaped, "escaped")
		return
	}

	if a.record && i%uint64(a.sim.TraceEvery) == 0 {
		a.recordTrace()
	}

	if !a.sim.Termination.Sampled(i) {
		return
	}
	dist := norm(r3.Sub(a.R, a.positions[a.sim.targetIdx]))
	if dist < a.outcome.MinDistance {
		a.outcome.MinDistance = dist
		a.outcome.Closest = a.CurrentDT
	}
	sample := DistanceSample{Step: i, SunDistance: sunDist, TargetDistance: dist, PrevDistance: a.prevSample, MinDistance: a.outcome.MinDistance}
	a.prevSample = dist
	if a.sim.Termination.Receding(sample, targetRadius) {
		a.finish(Nominal, "receding")
	}
}
