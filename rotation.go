package trajopt

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// obliquityJ2000 is the mean obliquity of the ecliptic at J2000, IAU 2006.
var obliquityJ2000 = Deg2rad(23.4392911)

// Frame is the reference frame of tabulated positions.
type Frame uint8

const (
	// Ecliptic is the heliocentric ecliptic J2000 frame, the frame of every simulation.
	Ecliptic Frame = iota + 1
	// Equatorial is the heliocentric ICRF frame, e.g. the default of JPL Horizons vector tables.
	Equatorial
)

func (f Frame) String() string {
	switch f {
	case Ecliptic:
		return "ecliptic"
	case Equatorial:
		return "equatorial"
	default:
		return fmt.Sprintf("frame(%d)", uint8(f))
	}
}

// FrameFromString returns the frame from its name, ecliptic if empty.
func FrameFromString(name string) (Frame, error) {
	switch strings.ToLower(name) {
	case "ecliptic", "":
		return Ecliptic, nil
	case "equatorial", "icrf":
		return Equatorial, nil
	default:
		return 0, fmt.Errorf("%w: unknown frame %q", ErrInvalidConfig, name)
	}
}

// ToEcliptic returns v, expressed in f, in the ecliptic frame.
func (f Frame) ToEcliptic(v r3.Vec) r3.Vec {
	if f == Equatorial {
		return MxV33(R1(obliquityJ2000), v)
	}
	return v
}

// R1 rotation about the 1st axis.
func R1(x float64) *mat.Dense {
	s, c := math.Sincos(x)
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, c, s, 0, -s, c})
}

// MxV33 multiplies a 3x3 matrix with a vector.
func MxV33(m mat.Matrix, v r3.Vec) r3.Vec {
	var rVec mat.VecDense
	rVec.MulVec(m, mat.NewVecDense(3, []float64{v.X, v.Y, v.Z}))
	return r3.Vec{X: rVec.AtVec(0), Y: rVec.AtVec(1), Z: rVec.AtVec(2)}
}
