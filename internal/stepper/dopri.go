// Package stepper implements an adaptive Dormand-Prince 5(4) integrator
// with dense output. Each accepted step produces an interpolant valid
// over exactly that step; callers stitch interpolants into a continuous
// solution.
package stepper

import (
	"fmt"
	"math"

	"github.com/kmatsu/odelab/internal/ode"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0

	// Dense output coefficients (Hairer's continuous extension).
	d1 = -12715105075.0 / 11282082432.0
	d3 = 87487479700.0 / 32700410799.0
	d4 = -10690763975.0 / 1880347072.0
	d5 = 701980252875.0 / 199316789632.0
	d6 = -1453857185.0 / 822651844.0
	d7 = 69997945.0 / 29380423.0
)

// Fixed local error tolerances; not configurable per call.
const (
	relTol = 1e-6
	absTol = 1e-10

	safety   = 0.9
	minScale = 0.2
	maxScale = 10.0

	// A step rejected this many times in a row cannot converge.
	maxRejects = 32
)

// Func evaluates the right-hand side dy/dt = f(t, y).
type Func func(t float64, y ode.State) (ode.State, error)

// Bounds constrains internal step sizes. Zero Initial selects the first
// step automatically; zero Max means unbounded.
type Bounds struct {
	Initial float64
	Min     float64
	Max     float64
}

// DormandPrince advances an ODE system by variable-size internal steps.
// Instances carry integration history (the FSAL stage) and must be
// discarded after any external change to t or y.
type DormandPrince struct {
	f      Func
	t      float64
	y      ode.State
	h      float64
	bounds Bounds
	k1     ode.State // FSAL: derivative at (t, y)
	dense  *Interpolant
}

// New seeds a stepper at (t0, y0). The right-hand side is evaluated
// immediately, so a failing Func fails construction.
func New(f Func, t0 float64, y0 ode.State, bounds Bounds) (*DormandPrince, error) {
	if bounds.Max <= 0 {
		bounds.Max = math.Inf(1)
	}
	if bounds.Min < 0 {
		bounds.Min = 0
	}
	if bounds.Min > bounds.Max {
		return nil, fmt.Errorf("stepper: min step %g exceeds max step %g", bounds.Min, bounds.Max)
	}

	k1, err := f(t0, y0)
	if err != nil {
		return nil, err
	}
	if len(k1) != len(y0) {
		return nil, fmt.Errorf("%w: derivative length %d, state length %d",
			ode.ErrShapeMismatch, len(k1), len(y0))
	}

	s := &DormandPrince{
		f:      f,
		t:      t0,
		y:      y0.Clone(),
		bounds: bounds,
		k1:     k1,
	}
	h := bounds.Initial
	if h <= 0 {
		h, err = s.selectInitialStep()
		if err != nil {
			return nil, err
		}
	}
	s.h = clamp(h, bounds.Min, bounds.Max)
	if s.h <= 0 {
		s.h = math.SmallestNonzeroFloat64
	}
	return s, nil
}

func (s *DormandPrince) T() float64   { return s.t }
func (s *DormandPrince) Y() ode.State { return s.y.Clone() }

// selectInitialStep estimates a first step from the local derivative
// scale, in the manner of Hairer's hinit.
func (s *DormandPrince) selectInitialStep() (float64, error) {
	n := len(s.y)
	if n == 0 {
		return 1e-3, nil
	}
	d0, d1 := 0.0, 0.0
	for i := 0; i < n; i++ {
		sc := absTol + relTol*math.Abs(s.y[i])
		d0 += (s.y[i] / sc) * (s.y[i] / sc)
		d1 += (s.k1[i] / sc) * (s.k1[i] / sc)
	}
	d0 = math.Sqrt(d0 / float64(n))
	d1 = math.Sqrt(d1 / float64(n))

	var h0 float64
	if d0 < 1e-5 || d1 < 1e-5 {
		h0 = 1e-6
	} else {
		h0 = 0.01 * d0 / d1
	}

	y1 := make(ode.State, n)
	for i := 0; i < n; i++ {
		y1[i] = s.y[i] + h0*s.k1[i]
	}
	f1, err := s.f(s.t+h0, y1)
	if err != nil {
		return 0, err
	}

	d2 := 0.0
	for i := 0; i < n; i++ {
		sc := absTol + relTol*math.Abs(s.y[i])
		diff := (f1[i] - s.k1[i]) / sc
		d2 += diff * diff
	}
	d2 = math.Sqrt(d2/float64(n)) / h0

	var h1 float64
	if math.Max(d1, d2) <= 1e-15 {
		h1 = math.Max(1e-6, h0*1e-3)
	} else {
		h1 = math.Pow(0.01/math.Max(d1, d2), 1.0/5.0)
	}
	return math.Min(100*h0, h1), nil
}

// Step advances by one internally chosen step satisfying the fixed error
// tolerances, or fails. On success the interpolant for the step just
// taken is available through DenseOutput.
func (s *DormandPrince) Step() error {
	n := len(s.y)
	h := clamp(s.h, s.bounds.Min, s.bounds.Max)

	for rejects := 0; ; rejects++ {
		if rejects > maxRejects {
			return fmt.Errorf("%w: %d consecutive rejected steps at t=%g",
				ode.ErrStepTooSmall, rejects, s.t)
		}

		k1 := s.k1

		y2 := make(ode.State, n)
		for i := 0; i < n; i++ {
			y2[i] = s.y[i] + h*b21*k1[i]
		}
		k2, err := s.f(s.t+a2*h, y2)
		if err != nil {
			return err
		}

		y3 := make(ode.State, n)
		for i := 0; i < n; i++ {
			y3[i] = s.y[i] + h*(b31*k1[i]+b32*k2[i])
		}
		k3, err := s.f(s.t+a3*h, y3)
		if err != nil {
			return err
		}

		y4 := make(ode.State, n)
		for i := 0; i < n; i++ {
			y4[i] = s.y[i] + h*(b41*k1[i]+b42*k2[i]+b43*k3[i])
		}
		k4, err := s.f(s.t+a4*h, y4)
		if err != nil {
			return err
		}

		y5 := make(ode.State, n)
		for i := 0; i < n; i++ {
			y5[i] = s.y[i] + h*(b51*k1[i]+b52*k2[i]+b53*k3[i]+b54*k4[i])
		}
		k5, err := s.f(s.t+a5*h, y5)
		if err != nil {
			return err
		}

		y6 := make(ode.State, n)
		for i := 0; i < n; i++ {
			y6[i] = s.y[i] + h*(b61*k1[i]+b62*k2[i]+b63*k3[i]+b64*k4[i]+b65*k5[i])
		}
		k6, err := s.f(s.t+h, y6)
		if err != nil {
			return err
		}

		yNew := make(ode.State, n)
		for i := 0; i < n; i++ {
			yNew[i] = s.y[i] + h*(c1*k1[i]+c3*k3[i]+c4*k4[i]+c5*k5[i]+c6*k6[i])
		}
		k7, err := s.f(s.t+h, yNew)
		if err != nil {
			return err
		}
		if !yNew.IsValid() {
			return fmt.Errorf("state diverged (NaN/Inf) at t=%g", s.t)
		}

		errNorm := 0.0
		for i := 0; i < n; i++ {
			e := h * (dc1*k1[i] + dc3*k3[i] + dc4*k4[i] + dc5*k5[i] + dc6*k6[i] + dc7*k7[i])
			sc := absTol + relTol*math.Max(math.Abs(s.y[i]), math.Abs(yNew[i]))
			errNorm += (e / sc) * (e / sc)
		}
		if n > 0 {
			errNorm = math.Sqrt(errNorm / float64(n))
		}

		if errNorm <= 1 {
			s.dense = newInterpolant(s.t, h, s.y, yNew, k1, k3, k4, k5, k6, k7)
			s.t += h
			s.y = yNew
			s.k1 = k7 // FSAL

			scale := maxScale
			if errNorm > 0 {
				scale = math.Min(maxScale, safety*math.Pow(errNorm, -0.2))
			}
			s.h = clamp(h*scale, s.bounds.Min, s.bounds.Max)
			return nil
		}

		scale := math.Max(minScale, safety*math.Pow(errNorm, -0.25))
		hNext := h * scale
		if hNext < s.bounds.Min {
			if h <= s.bounds.Min {
				return fmt.Errorf("%w: required step %g below minimum %g at t=%g",
					ode.ErrStepTooSmall, hNext, s.bounds.Min, s.t)
			}
			hNext = s.bounds.Min
		}
		if hNext <= math.Abs(s.t)*1e-16 {
			return fmt.Errorf("%w: step size %g vanished at t=%g",
				ode.ErrStepTooSmall, hNext, s.t)
		}
		h = hNext
	}
}

// DenseOutput returns the interpolant for the step just taken, or nil
// before the first successful Step.
func (s *DormandPrince) DenseOutput() *Interpolant {
	return s.dense
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
