// Package models provides the built-in differential models and the
// factory registry that binds model identifiers to constructors.
package models

import (
	"fmt"
	"math"

	"github.com/kmatsu/odelab/internal/ode"
)

// Decay is first-order exponential decay, dy/dt = -tau*y, with tau the
// externally alterable decay rate.
type Decay struct {
	Tau float64

	schema ode.Schema
	y      float64
	ydot   float64
}

func NewDecay() *Decay {
	return &Decay{
		Tau:    1.0,
		schema: ode.NewSchemaBuilder().Scalar("y").MustBuild(),
	}
}

func (d *Decay) Name() string     { return "decay" }
func (d *Decay) Vars() ode.Schema { return d.schema }

func (d *Decay) Derive(t float64, y ode.State) (ode.State, error) {
	d.y = y[0]
	d.ydot = -d.Tau * y[0]
	return ode.State{d.ydot}, nil
}

func (d *Decay) Params() map[string]float64 {
	return map[string]float64{"tau": d.Tau}
}

func (d *Decay) SetParam(name string, value float64) error {
	if name != "tau" {
		return fmt.Errorf("%w: %s", ode.ErrUnknownConstant, name)
	}
	d.Tau = value
	return nil
}

// Attr values reflect the most recent Derive call.
func (d *Decay) Attr(name string) (float64, error) {
	switch name {
	case "y":
		return d.y, nil
	case "ydot":
		return d.ydot, nil
	}
	return 0, fmt.Errorf("%w: %s", ode.ErrUnknownAttr, name)
}

func (d *Decay) Methods() map[string]ode.Method {
	return map[string]ode.Method{
		"halflife":  d.halflife,
		"normalize": normalize,
	}
}

func (d *Decay) halflife(map[string]ode.Value) ([]ode.Value, error) {
	if d.Tau <= 0 {
		return nil, fmt.Errorf("halflife undefined for tau=%g", d.Tau)
	}
	return []ode.Value{ode.ScalarValue(math.Ln2 / d.Tau)}, nil
}

// normalize scales an array to unit norm, returning the scaled array and
// the original norm as two tagged entries.
func normalize(args map[string]ode.Value) ([]ode.Value, error) {
	v, ok := args["values"]
	if !ok || v.Scalar {
		return nil, fmt.Errorf("%w: normalize requires array argument 'values'", ode.ErrShapeMismatch)
	}
	norm := ode.State(v.Values).Norm()
	if norm == 0 {
		return nil, fmt.Errorf("cannot normalize zero vector")
	}
	unit := make([]float64, len(v.Values))
	for i, x := range v.Values {
		unit[i] = x / norm
	}
	return []ode.Value{ode.ArrayValue(unit), ode.ScalarValue(norm)}, nil
}
