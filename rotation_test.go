package trajopt

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestR1(t *testing.T) {
	// A passive rotation of 90 degrees about X maps Z onto Y.
	v := MxV33(R1(math.Pi/2), r3.Vec{Z: 1})
	if !scalar.EqualWithinAbs(v.X, 0, 1e-12) || !scalar.EqualWithinAbs(v.Y, 1, 1e-12) || !scalar.EqualWithinAbs(v.Z, 0, 1e-12) {
		t.Fatalf("v=%+v", v)
	}
	// Rotations preserve norms and the X axis.
	for _, x := range []float64{0.1, 1, -2, 3} {
		in := r3.Vec{X: 1, Y: 2, Z: 3}
		out := MxV33(R1(x), in)
		if !scalar.EqualWithinRel(norm(out), norm(in), 1e-12) || out.X != in.X {
			t.Fatalf("R1(%f) %+v", x, out)
		}
	}
}

func TestFrames(t *testing.T) {
	ε := Deg2rad(23.4392911)
	// The March equinox direction is common to both frames.
	if v := Equatorial.ToEcliptic(r3.Vec{X: AU}); !vectorsEqual(v, r3.Vec{X: AU}) {
		t.Fatalf("equinox %+v", v)
	}
	// The celestial north pole is inclined by the obliquity on the ecliptic.
	pole := Equatorial.ToEcliptic(r3.Vec{Z: 1})
	if !scalar.EqualWithinAbs(pole.Z, math.Cos(ε), 1e-12) || !scalar.EqualWithinAbs(pole.Y, math.Sin(ε), 1e-12) {
		t.Fatalf("pole %+v", pole)
	}
	// A position in the ecliptic plane expressed in the equatorial frame returns to the plane.
	eq := r3.Vec{Y: math.Cos(ε), Z: math.Sin(ε)}
	if v := Equatorial.ToEcliptic(eq); !scalar.EqualWithinAbs(v.Z, 0, 1e-12) || !scalar.EqualWithinAbs(v.Y, 1, 1e-12) {
		t.Fatalf("v=%+v", v)
	}
	if v := Ecliptic.ToEcliptic(eq); v != eq {
		t.Fatal("ecliptic positions are not rotated")
	}
	for name, exp := range map[string]Frame{"": Ecliptic, "Ecliptic": Ecliptic, "equatorial": Equatorial, "ICRF": Equatorial} {
		if f, err := FrameFromString(name); err != nil || f != exp {
			t.Fatalf("%q: %s %v", name, f, err)
		}
	}
	if _, err := FrameFromString("galactic"); !errors.Is(err, ErrInvalidConfig) {
		t.Fatal(err)
	}
}
