package trajopt

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"
)

// TransferType defines the type of a zero revolution Lambert transfer.
type TransferType uint8

const (
	// TTypeAuto picks the short or long way from the in-plane angle swept between both positions.
	TTypeAuto TransferType = iota + 1
	// TType1 is the short way.
	TType1
	// TType2 is the long way.
	TType2
)

const (
	lambertε             = 1e-4
	lambertεt            = 1e-4                   // s
	lambertεν            = (5e-5 / 180) * math.Pi // 0.00005 degrees
	lambertMaxIterations = 10000
)

// Longway returns whether this is the long way.
func (t TransferType) Longway() bool {
	return t == TType2
}

func (t TransferType) String() string {
	switch t {
	case TTypeAuto:
		return "auto"
	case TType1:
		return "type-1"
	case TType2:
		return "type-2"
	default:
		return fmt.Sprintf("ttype(%d)", uint8(t))
	}
}

// ErrLambert is returned when the Lambert problem has no solution or the solver does not converge.
var ErrLambert = errors.New("lambert")

// Lambert solves the Lambert boundary problem about a central body of gravitational parameter mu:
// the velocities at Ri and Rf of the conic joining them in Δt. φ is the square of the difference
// in universal anomaly. Universal variables with bisection, Vallado algorithm 58.
func Lambert(Ri, Rf r3.Vec, Δt time.Duration, ttype TransferType, mu float64) (Vi, Vf r3.Vec, φ float64, err error) {
	Δt0 := Δt.Seconds()
	if Δt0 <= 0 || mu <= 0 {
		err = fmt.Errorf("%w: time of flight %s and mu %f must be positive", ErrLambert, Δt, mu)
		return
	}
	rI, rF := norm(Ri), norm(Rf)
	if rI == 0 || rF == 0 {
		err = fmt.Errorf("%w: positions may not be at the central body", ErrLambert)
		return
	}
	cosΔν := r3.Dot(Ri, Rf) / (rI * rF)
	dm := 1.0
	switch ttype {
	case TType2:
		dm = -1
	case TTypeAuto:
		Δν := math.Atan2(Rf.Y, Rf.X) - math.Atan2(Ri.Y, Ri.X)
		if Δν < 0 {
			Δν += 2 * math.Pi
		}
		if Δν > math.Pi {
			dm = -1
		}
	}
	A := dm * math.Sqrt(rI*rF*(1+cosΔν))
	if math.Pi-math.Acos(clamp(cosΔν)) < lambertεν || scalar.EqualWithinAbs(A, 0, lambertε) {
		err = fmt.Errorf("%w: Δν ~= 180 degrees and A ~= 0, the transfer plane is undefined", ErrLambert)
		return
	}

	φup, φlow := 4*math.Pi*math.Pi, -4*math.Pi
	c2, c3 := 1/2., 1/6.
	var tof, y float64
	for iter := 0; math.Abs(tof-Δt0) > lambertεt; iter++ {
		if iter > lambertMaxIterations {
			err = fmt.Errorf("%w: did not converge after %d iterations", ErrLambert, lambertMaxIterations)
			return
		}
		y = rI + rF + A*(φ*c3-1)/math.Sqrt(c2)
		for tmp := 0; A > 0 && y < 0; tmp++ {
			if tmp > lambertMaxIterations {
				err = fmt.Errorf("%w: could not increase φ to a positive y", ErrLambert)
				return
			}
			φ += 0.1
			y = rI + rF + A*(φ*c3-1)/math.Sqrt(c2)
		}
		χ := math.Sqrt(y / c2)
		tof = (χ*χ*χ*c3 + A*math.Sqrt(y)) / math.Sqrt(mu)
		if tof <= Δt0 {
			φlow = φ
		} else {
			φup = φ
		}
		φ = (φup + φlow) / 2
		c2, c3 = stumpff(φ)
		if φup-φlow < 1e-14 && math.Abs(tof-Δt0) > lambertεt {
			err = fmt.Errorf("%w: bisection collapsed with a %f s time of flight error", ErrLambert, tof-Δt0)
			return
		}
	}
	f := 1 - y/rI
	gDot := 1 - y/rF
	g := A * math.Sqrt(y/mu)
	Vi = r3.Scale(1/g, r3.Sub(Rf, r3.Scale(f, Ri)))
	Vf = r3.Scale(1/g, r3.Sub(r3.Scale(gDot, Rf), Ri))
	return
}

// stumpff returns the c2 and c3 Stumpff functions of φ.
func stumpff(φ float64) (c2, c3 float64) {
	switch {
	case φ > lambertε:
		sφ := math.Sqrt(φ)
		ssφ, csφ := math.Sincos(sφ)
		return (1 - csφ) / φ, (sφ - ssφ) / math.Sqrt(φ*φ*φ)
	case φ < -lambertε:
		sφ := math.Sqrt(-φ)
		return (1 - math.Cosh(sφ)) / φ, (math.Sinh(sφ) - sφ) / math.Sqrt(-φ*φ*φ)
	default:
		return 1 / 2., 1 / 6.
	}
}
