package trajopt

import (
	"fmt"
	"strings"

	"github.com/ChristopherRabotin/ode"
)

// Integrator identifies a fixed step integration method of an ode.Integrable, integrated from
// x0 so that Stop and SetState receive the time x_i of the start of each step.
type Integrator uint8

const (
	// SymplecticEuler updates the velocity from the acceleration, then the position from the new velocity.
	// The state must be [position..., velocity...] with as many velocity as position components.
	SymplecticEuler Integrator = iota + 1
	// RK4 is the classic fourth order Runge-Kutta method of ode.
	RK4
)

func (m Integrator) String() string {
	switch m {
	case SymplecticEuler:
		return "euler"
	case RK4:
		return "rk4"
	default:
		return fmt.Sprintf("integrator(%d)", uint8(m))
	}
}

// IntegratorFromString returns the integration method from its name.
func IntegratorFromString(name string) (Integrator, error) {
	switch strings.ToLower(name) {
	case "euler", "":
		return SymplecticEuler, nil
	case "rk4":
		return RK4, nil
	default:
		return 0, fmt.Errorf("%w: unknown integrator %q", ErrInvalidConfig, name)
	}
}

// Solve integrates from x0 with a fixed step until the integrable requests to stop.
// Returns the number of iterations performed and the last x_i.
func (m Integrator) Solve(x0, stepSize float64, inte ode.Integrable) (uint64, float64) {
	if stepSize <= 0 {
		panic("config StepSize must be positive")
	}
	if inte == nil {
		panic("config Integator may not be nil")
	}
	if m == RK4 {
		c := &checkedIntegrable{Integrable: inte}
		ode.NewRK4(x0, stepSize, c).Solve() // Blocking.
		return c.steps, x0 + float64(c.steps)*stepSize
	}
	return solveEuler(x0, stepSize, inte)
}

// checkedIntegrable counts the steps and checks the size of each derivative.
type checkedIntegrable struct {
	ode.Integrable
	steps uint64
}

func (c *checkedIntegrable) SetState(t float64, s []float64) {
	c.steps++
	c.Integrable.SetState(t, s)
}

func (c *checkedIntegrable) Func(t float64, s []float64) []float64 {
	return derivative(c.Integrable, t, s)
}

// solveEuler is the semi-implicit Euler scheme, ode only provides RK4.
func solveEuler(x0, stepSize float64, inte ode.Integrable) (uint64, float64) {
	iterNum := uint64(0)
	xi := x0
	for !inte.Stop(xi) {
		state := inte.GetState()
		if len(state)%2 != 0 {
			panic(fmt.Errorf("euler requires an even state size, got %d", len(state)))
		}
		half := len(state) / 2
		fDot := derivative(inte, xi, state)
		newState := make([]float64, len(state))
		for i := half; i < len(state); i++ {
			newState[i] = state[i] + fDot[i]*stepSize
			newState[i-half] = state[i-half] + newState[i]*stepSize
		}
		inte.SetState(xi, newState)
		iterNum++
		xi = x0 + float64(iterNum)*stepSize
	}
	return iterNum, xi
}

func derivative(inte ode.Integrable, t float64, s []float64) []float64 {
	fDot := inte.Func(t, s)
	if len(fDot) != len(s) {
		panic(fmt.Errorf("state size %d but derivative size %d", len(s), len(fDot)))
	}
	return fDot
}
