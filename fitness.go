package trajopt

import (
	"fmt"
	"math"
)

// Fitness scores simulation outcomes, lower is better.
type Fitness struct {
	Penalty           float64 // score of crashed, escaped and non-finite outcomes
	DistanceWeight    float64
	FuelWeight        float64
	TimeWeight        float64
	ReferenceDistance float64 // m
	ReferenceDeltaV   float64 // m/s
	ReferenceDays     float64
	CaptureRadius     float64 // m, the arrival bonus only applies within this distance
	BonusScale        float64
	BonusOffset       float64 // in units of ReferenceDistance
}

// DefaultFitness returns the weights of a Jupiter flyby search.
func DefaultFitness() Fitness {
	return Fitness{
		Penalty:           10000,
		DistanceWeight:    2,
		FuelWeight:        0.3,
		TimeWeight:        0.1,
		ReferenceDistance: AU,
		ReferenceDeltaV:   10000,
		ReferenceDays:     365,
		CaptureRadius:     0.5 * AU,
		BonusScale:        50,
		BonusOffset:       0.1,
	}
}

// Validate checks the weights.
func (f Fitness) Validate() error {
	if f.ReferenceDistance <= 0 || f.ReferenceDeltaV <= 0 || f.ReferenceDays <= 0 {
		return fmt.Errorf("%w: fitness references must be positive", ErrInvalidConfig)
	}
	if f.DistanceWeight < 0 || f.FuelWeight < 0 || f.TimeWeight < 0 || f.BonusScale < 0 || f.BonusOffset <= 0 || f.CaptureRadius < 0 {
		return fmt.Errorf("%w: fitness weights may not be negative and the bonus offset must be positive", ErrInvalidConfig)
	}
	if math.IsNaN(f.Penalty) || math.IsInf(f.Penalty, 0) {
		return fmt.Errorf("%w: fitness penalty must be finite", ErrInvalidConfig)
	}
	return nil
}

// Evaluate returns the fitness of an outcome. The result is always finite.
func (f Fitness) Evaluate(o Outcome) float64 {
	if o.Status != Nominal {
		return f.Penalty
	}
	dist := o.MinDistance / f.ReferenceDistance
	if math.IsNaN(dist) || math.IsInf(dist, 0) {
		return f.Penalty
	}
	fuel := o.TotalDeltaV / f.ReferenceDeltaV
	days := o.MissionDays / f.ReferenceDays
	var bonus float64
	if o.MinDistance < f.CaptureRadius {
		bonus = f.BonusScale / (dist + f.BonusOffset)
	}
	score := f.DistanceWeight*dist + f.FuelWeight*fuel + f.TimeWeight*days - bonus
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return f.Penalty
	}
	return score
}
