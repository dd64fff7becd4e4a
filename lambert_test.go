package trajopt

import (
	"errors"
	"testing"
	"time"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"
)

const μEarthKm = 3.986004415e5 // km^3/s^2

func equalVec(t *testing.T, label string, got, exp r3.Vec, tol float64) {
	t.Helper()
	for i, p := range [][2]float64{{got.X, exp.X}, {got.Y, exp.Y}, {got.Z, exp.Z}} {
		if !scalar.EqualWithinAbs(p[0], p[1], tol) {
			t.Fatalf("%s[%d]: got %+v exp %+v", label, i, got, exp)
		}
	}
}

func TestLambertVallado(t *testing.T) {
	// From Vallado 4th edition, page 497
	Ri := r3.Vec{X: 15945.34}
	Rf := r3.Vec{X: 12214.83899, Y: 10249.46731}
	for _, dm := range []TransferType{TTypeAuto, TType1} {
		Vi, Vf, φ, err := Lambert(Ri, Rf, 76*time.Minute, dm, μEarthKm)
		if err != nil {
			t.Fatalf("[%s] %s", dm, err)
		}
		t.Logf("φ=%f", φ)
		equalVec(t, dm.String()+" Vi", Vi, r3.Vec{X: 2.058913, Y: 2.915965}, 1e-5)
		equalVec(t, dm.String()+" Vf", Vf, r3.Vec{X: -3.451565, Y: 0.910315}, 1e-5)
		t.Logf("[OK] %s", dm)
	}
	Vi, Vf, _, err := Lambert(Ri, Rf, 76*time.Minute, TType2, μEarthKm)
	if err != nil {
		t.Fatal(err)
	}
	equalVec(t, "long way Vi", Vi, r3.Vec{X: -3.811158, Y: -2.003854}, 1e-5)
	equalVec(t, "long way Vf", Vf, r3.Vec{X: 4.207569, Y: 0.914724}, 1e-5)
	if !TType2.Longway() || TType1.Longway() {
		t.Fatal("invalid long way flag")
	}
}

func TestLambertErrors(t *testing.T) {
	Ri := r3.Vec{X: 15945.34}
	if _, _, _, err := Lambert(Ri, r3.Vec{Y: 15945.34}, 0, TType1, μEarthKm); !errors.Is(err, ErrLambert) {
		t.Fatalf("zero time of flight: %v", err)
	}
	if _, _, _, err := Lambert(Ri, r3.Vec{Y: 15945.34}, time.Hour, TType1, 0); !errors.Is(err, ErrLambert) {
		t.Fatalf("zero mu: %v", err)
	}
	// Opposite positions: the transfer plane is undefined.
	if _, _, _, err := Lambert(Ri, r3.Scale(-1, Ri), time.Hour, TType1, μEarthKm); !errors.Is(err, ErrLambert) {
		t.Fatalf("opposite positions: %v", err)
	}
	if _, _, _, err := Lambert(r3.Vec{}, Ri, time.Hour, TType1, μEarthKm); !errors.Is(err, ErrLambert) {
		t.Fatalf("position at the central body: %v", err)
	}
}

func TestLambertLaunch(t *testing.T) {
	conf := testMission()
	conf.MaxDuration = 1200 * 24 * time.Hour
	eph := NewCircularEphemeris(epoch)
	sim := testSimulator(t, eph, conf, DefaultTermination())
	_, _, tof := Hohmann(Earth.OrbitRadius, Jupiter.OrbitRadius, Sun.GM())
	launch, vInf, err := sim.LambertLaunch(tof)
	if err != nil {
		t.Fatal(err)
	}
	if s := norm(launch); s == 0 || s > 40000 || !isFinite(vInf) {
		t.Fatalf("launch=%+v (%f m/s) vInf=%+v", launch, s, vInf)
	}
	// The transfer leaves from the Earth with the Lambert velocity and reaches the Jupiter position.
	Ri, _ := eph.Position(Earth, epoch)
	Rf, _ := eph.Position(Jupiter, epoch.Add(tof))
	vEarth, _ := Velocity(eph, Earth, epoch)
	orb := NewOrbitFromRV(Ri, r3.Add(vEarth, launch), Sun.GM())
	if !orb.Bound() || orb.Periapsis() > norm(Ri)*1.0001 || orb.Apoapsis() < norm(Rf)*0.9999 {
		t.Fatalf("transfer orbit %s", orb)
	}
}
