package engine

import (
	"fmt"
	"sort"

	"github.com/kmatsu/odelab/internal/ode"
	"github.com/kmatsu/odelab/internal/stepper"
)

// Solution is a composite interpolant: the ordered concatenation of the
// dense-output segments retained since the last invalidation. Segments
// are contiguous; segment i covers [ts[i], ts[i+1]].
type Solution struct {
	ts   []float64
	segs []*stepper.Interpolant
	y0   ode.State
}

func (s *Solution) Start() float64 { return s.ts[0] }
func (s *Solution) End() float64   { return s.ts[len(s.ts)-1] }

// At evaluates the stitched solution. Queries outside
// [Start(), End()] fail with a range error.
func (s *Solution) At(t float64) (ode.State, error) {
	if t < s.Start() || t > s.End() {
		return nil, fmt.Errorf("%w: t=%g outside [%g, %g]",
			ode.ErrOutOfRange, t, s.Start(), s.End())
	}
	if len(s.segs) == 0 {
		// Zero-length anchor: only the seed point is queryable.
		return s.y0.Clone(), nil
	}
	// Index of the first boundary >= t; segment i covers (ts[i], ts[i+1]].
	i := sort.SearchFloat64s(s.ts, t)
	if i > 0 {
		i--
	}
	if i >= len(s.segs) {
		i = len(s.segs) - 1
	}
	return s.segs[i].At(t)
}

// Grid builds the inclusive sampling grid from t0 to tn stepped by
// interval: t0, t0+dt, ..., ending at tn when (tn-t0) is a multiple of
// the interval.
func Grid(t0, tn, interval float64) []float64 {
	if interval <= 0 || tn < t0 {
		return nil
	}
	n := int((tn-t0)/interval + 1e-9)
	out := make([]float64, 0, n+1)
	for k := 0; k <= n; k++ {
		tv := t0 + float64(k)*interval
		if tv > tn {
			tv = tn
		}
		out = append(out, tv)
	}
	return out
}

// Sample evaluates the solution at every grid time.
func (s *Solution) Sample(times []float64) ([]ode.State, error) {
	out := make([]ode.State, len(times))
	for i, t := range times {
		y, err := s.At(t)
		if err != nil {
			return nil, err
		}
		out[i] = y
	}
	return out, nil
}

func newSolution(ts []float64, segs []*stepper.Interpolant, y0 ode.State) *Solution {
	return &Solution{
		ts:   append(ts[:0:0], ts...),
		segs: append(segs[:0:0], segs...),
		y0:   y0.Clone(),
	}
}
