package models

import (
	"fmt"

	"github.com/kmatsu/odelab/internal/ode"
)

// FitzHugh is the FitzHugh-Nagumo two-variable excitable membrane model:
//
//	dv/dt = v - v^3/3 - w + iext
//	dw/dt = (v + a - b*w) / tau
type FitzHugh struct {
	A, B, TauW, Iext float64

	schema ode.Schema
	vdot   float64
	wdot   float64
}

func NewFitzHugh() *FitzHugh {
	return &FitzHugh{
		A:      0.7,
		B:      0.8,
		TauW:   12.5,
		Iext:   0.5,
		schema: ode.NewSchemaBuilder().Scalar("v").Scalar("w").MustBuild(),
	}
}

func (f *FitzHugh) Name() string     { return "fitzhugh" }
func (f *FitzHugh) Vars() ode.Schema { return f.schema }

func (f *FitzHugh) Derive(t float64, y ode.State) (ode.State, error) {
	v, w := y[0], y[1]
	f.vdot = v - v*v*v/3 - w + f.Iext
	f.wdot = (v + f.A - f.B*w) / f.TauW
	return ode.State{f.vdot, f.wdot}, nil
}

func (f *FitzHugh) Params() map[string]float64 {
	return map[string]float64{"a": f.A, "b": f.B, "tau": f.TauW, "iext": f.Iext}
}

func (f *FitzHugh) SetParam(name string, value float64) error {
	switch name {
	case "a":
		f.A = value
	case "b":
		f.B = value
	case "tau":
		f.TauW = value
	case "iext":
		f.Iext = value
	default:
		return fmt.Errorf("%w: %s", ode.ErrUnknownConstant, name)
	}
	return nil
}

func (f *FitzHugh) Attr(name string) (float64, error) {
	switch name {
	case "vdot":
		return f.vdot, nil
	case "wdot":
		return f.wdot, nil
	}
	return 0, fmt.Errorf("%w: %s", ode.ErrUnknownAttr, name)
}
