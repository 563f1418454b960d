// Package engine drives an ODE model through an adaptive stepper across
// repeated, resumable advance calls, stitching per-step dense output into
// a continuous queryable solution.
package engine

import (
	"fmt"

	"github.com/kmatsu/odelab/internal/ode"
	"github.com/kmatsu/odelab/internal/stepper"
)

// Options configures a new engine. Zero values mean t0 = 0 and automatic
// step bounds.
type Options struct {
	T0     float64
	Bounds stepper.Bounds
}

// Checkpoint carries restart overrides. Nil fields keep the current
// value. No consistency check between T/Y and the model is performed.
type Checkpoint struct {
	T      *float64
	Y      ode.State
	Bounds *stepper.Bounds
}

// EvalPoint selects the (t, y) pair for an Eval call. Nil fields use the
// engine's current values.
type EvalPoint struct {
	T *float64
	Y ode.State
}

// Engine owns one simulation stream: the clock, the state vector, the
// stepper handle and the retained interpolation segments. Instances are
// not safe for concurrent use; callers serialize access.
type Engine struct {
	model   ode.Model
	binding *ode.Binding
	t       float64
	y       ode.State
	bounds  stepper.Bounds

	// nil between construction/restart and the next Advance.
	sp   *stepper.DormandPrince
	ts   []float64
	segs []*stepper.Interpolant
}

func New(model ode.Model, opts Options) (*Engine, error) {
	if model == nil {
		return nil, ode.ErrNotInitialized
	}
	schema := model.Vars()
	if schema.Len() == 0 {
		return nil, fmt.Errorf("%w: model declares no differential variables", ode.ErrNotInitialized)
	}
	y := make(ode.State, schema.Len())
	binding, err := ode.NewBinding(schema, y)
	if err != nil {
		return nil, err
	}
	return &Engine{
		model:   model,
		binding: binding,
		t:       opts.T0,
		y:       y,
		bounds:  opts.Bounds,
	}, nil
}

// T returns the current simulation time.
func (e *Engine) T() float64 { return e.t }

// Y returns a copy of the current state vector.
func (e *Engine) Y() ode.State { return e.y.Clone() }

// Model returns the engine's model.
func (e *Engine) Model() ode.Model { return e.model }

// Bounds returns the step bounds the next stepper will be seeded with.
func (e *Engine) Bounds() stepper.Bounds { return e.bounds }

// Binding returns named access into the engine's live state vector.
// After writing through it the caller must Restart before the next
// Advance; the stepper's internal history assumes an unbroken flow.
func (e *Engine) Binding() *ode.Binding { return e.binding }

// derive evaluates the model and enforces the schema length contract.
func (e *Engine) derive(t float64, y ode.State) (ode.State, error) {
	dy, err := e.model.Derive(t, y)
	if err != nil {
		return nil, &ode.ModelError{Model: modelName(e.model), Op: "derive", Wrapped: err}
	}
	if len(dy) != e.binding.Schema().Len() {
		return nil, &ode.ModelError{
			Model: modelName(e.model),
			Op:    "derive",
			Wrapped: fmt.Errorf("%w: derivative length %d, state length %d",
				ode.ErrShapeMismatch, len(dy), e.binding.Schema().Len()),
		}
	}
	return dy, nil
}

// Advance integrates from the current time to tn and commits (tn, y(tn)).
// The returned solution is valid for queries from the earliest retained
// segment boundary through the last internal step taken.
//
// On a continuing advance only the two most recent timestamps and the
// single most recent segment survive from prior history; earlier time
// ranges become unqueryable. This is a deliberate bounded-memory policy.
func (e *Engine) Advance(tn float64) (*Solution, error) {
	if tn < e.t {
		return nil, fmt.Errorf("%w: advance to t=%g from t=%g", ode.ErrBackwardTime, tn, e.t)
	}

	if e.sp == nil {
		sp, err := stepper.New(e.derive, e.t, e.y, e.bounds)
		if err != nil {
			return nil, &ode.IntegrationError{T: e.t, Wrapped: err}
		}
		e.sp = sp
		e.ts = []float64{e.t}
		e.segs = nil
	} else {
		if len(e.ts) > 2 {
			e.ts = append(e.ts[:0:0], e.ts[len(e.ts)-2:]...)
		}
		if len(e.segs) > 1 {
			e.segs = append(e.segs[:0:0], e.segs[len(e.segs)-1:]...)
		}
	}

	for e.ts[len(e.ts)-1] < tn {
		if err := e.sp.Step(); err != nil {
			// Commit to the last successfully completed step boundary.
			e.t = e.sp.T()
			copy(e.y, e.sp.Y())
			return nil, &ode.IntegrationError{T: e.t, Wrapped: err}
		}
		e.ts = append(e.ts, e.sp.T())
		e.segs = append(e.segs, e.sp.DenseOutput())
	}

	sol := newSolution(e.ts, e.segs, e.y)
	y, err := sol.At(tn)
	if err != nil {
		return nil, err
	}
	e.t = tn
	copy(e.y, y)
	return sol, nil
}

// Restart discards the stepper so the next Advance reseeds a fresh
// initial-value problem from the (possibly overridden) current state.
// Required after any external mutation of variables or constants.
func (e *Engine) Restart(cp Checkpoint) error {
	if cp.T != nil {
		e.t = *cp.T
	}
	if cp.Y != nil {
		if len(cp.Y) != len(e.y) {
			return fmt.Errorf("%w: restart state length %d, schema length %d",
				ode.ErrShapeMismatch, len(cp.Y), len(e.y))
		}
		copy(e.y, cp.Y)
	}
	if cp.Bounds != nil {
		e.bounds = *cp.Bounds
	}
	e.sp = nil
	return nil
}

// Eval recomputes the model's derivatives at the supplied or current
// (t, y) and then invokes fn. The derivative refresh is a deliberate side
// effect: it populates the model's per-variable derivative fields and
// derived attributes so fn can read them. The engine's own timeline and
// state are never touched, regardless of which point was evaluated.
func (e *Engine) Eval(at *EvalPoint, fn func(ode.Model) error) error {
	t, y := e.t, e.y
	if at != nil {
		if at.T != nil {
			t = *at.T
		}
		if at.Y != nil {
			if len(at.Y) != len(e.y) {
				return fmt.Errorf("%w: eval state length %d, schema length %d",
					ode.ErrShapeMismatch, len(at.Y), len(e.y))
			}
			y = at.Y
		}
	}
	if _, err := e.derive(t, y); err != nil {
		return err
	}
	return fn(e.model)
}

type named interface {
	Name() string
}

func modelName(m ode.Model) string {
	if n, ok := m.(named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", m)
}
