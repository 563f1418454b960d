package stepper

import (
	"fmt"

	"github.com/kmatsu/odelab/internal/ode"
)

// Interpolant is the dense output of one accepted step: a quartic
// continuous extension of the Dormand-Prince solution, queryable at any
// time within [T0, T1] without re-integrating.
type Interpolant struct {
	t0, h              float64
	r1, r2, r3, r4, r5 ode.State
}

func newInterpolant(t0, h float64, y0, y1, k1, k3, k4, k5, k6, k7 ode.State) *Interpolant {
	n := len(y0)
	ip := &Interpolant{
		t0: t0,
		h:  h,
		r1: make(ode.State, n),
		r2: make(ode.State, n),
		r3: make(ode.State, n),
		r4: make(ode.State, n),
		r5: make(ode.State, n),
	}
	for i := 0; i < n; i++ {
		diff := y1[i] - y0[i]
		ip.r1[i] = y0[i]
		ip.r2[i] = diff
		ip.r3[i] = h*k1[i] - diff
		ip.r4[i] = diff - h*k7[i] - ip.r3[i]
		ip.r5[i] = h * (d1*k1[i] + d3*k3[i] + d4*k4[i] + d5*k5[i] + d6*k6[i] + d7*k7[i])
	}
	return ip
}

func (ip *Interpolant) T0() float64 { return ip.t0 }
func (ip *Interpolant) T1() float64 { return ip.t0 + ip.h }

// At evaluates the interpolant. Queries outside [T0, T1] fail; boundary
// times are accepted.
func (ip *Interpolant) At(t float64) (ode.State, error) {
	x := (t - ip.t0) / ip.h
	if x < 0 || x > 1 {
		return nil, fmt.Errorf("%w: t=%g outside [%g, %g]",
			ode.ErrOutOfRange, t, ip.T0(), ip.T1())
	}
	return ip.eval(x), nil
}

func (ip *Interpolant) eval(x float64) ode.State {
	x1 := 1 - x
	y := make(ode.State, len(ip.r1))
	for i := range y {
		y[i] = ip.r1[i] + x*(ip.r2[i]+x1*(ip.r3[i]+x*(ip.r4[i]+x1*ip.r5[i])))
	}
	return y
}
