package trajopt

import (
	"fmt"
	"math"
)

// Termination decides whether a trajectory is escaping or unproductive. Distances are in meters,
// factors are multiples of the target's orbital radius about the Sun.
//
// The receding rule may abandon a trajectory which would come back to the target on a later pass:
// it trades those for shorter simulations of clearly failed plans.
type Termination struct {
	MinSteps       int     // no early termination before this step
	SampleEvery    int     // distance to target is sampled every SampleEvery steps
	EscapeFactor   float64 // escaped once the distance to the Sun exceeds EscapeFactor target radii
	PastFactor     float64 // receding checks apply beyond PastFactor target radii from the Sun
	RecedeDistance float64 // receding checks apply beyond this distance to the target
	RecedeFactor   float64 // receding once beyond RecedeFactor times the closest approach
}

// DefaultTermination returns the thresholds of a Jupiter transfer: escape beyond 10 AU and receding
// checks beyond 7 AU from the Sun.
func DefaultTermination() Termination {
	return Termination{
		MinSteps:       200,
		SampleEvery:    10,
		EscapeFactor:   10 / 5.2,
		PastFactor:     7 / 5.2,
		RecedeDistance: 3 * AU,
		RecedeFactor:   2,
	}
}

// Validate checks the thresholds.
func (t Termination) Validate() error {
	if t.SampleEvery <= 0 {
		return fmt.Errorf("%w: termination sample_every must be positive", ErrInvalidConfig)
	}
	if t.MinSteps < 0 || t.EscapeFactor <= 0 || t.PastFactor <= 0 || t.RecedeDistance < 0 || t.RecedeFactor < 1 {
		return fmt.Errorf("%w: invalid termination thresholds %+v", ErrInvalidConfig, t)
	}
	return nil
}

// Sampled returns whether the distance to the target is sampled at this step.
func (t Termination) Sampled(step uint64) bool {
	return step%uint64(t.SampleEvery) == 0
}

// Escaped returns whether the spacecraft at sunDistance has left the system of a target
// orbiting at targetRadius.
func (t Termination) Escaped(sunDistance, targetRadius float64) bool {
	return sunDistance > t.EscapeFactor*targetRadius
}

// DistanceSample is one periodic measurement of the trajectory.
type DistanceSample struct {
	Step           uint64
	SunDistance    float64
	TargetDistance float64
	PrevDistance   float64 // previous sample, +Inf if none
	MinDistance    float64 // closest approach so far, including this sample
}

// Receding returns whether the spacecraft is well past the target's orbit and clearly moving away
// from the target.
func (t Termination) Receding(s DistanceSample, targetRadius float64) bool {
	if s.Step <= uint64(t.MinSteps) {
		return false
	}
	if s.SunDistance <= t.PastFactor*targetRadius {
		return false
	}
	if math.IsInf(s.PrevDistance, 1) || s.TargetDistance <= s.PrevDistance {
		return false
	}
	return s.TargetDistance > t.RecedeDistance && s.TargetDistance > t.RecedeFactor*s.MinDistance
}
