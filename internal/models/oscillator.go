package models

import (
	"fmt"

	"github.com/kmatsu/odelab/internal/ode"
)

// Oscillator is an undamped harmonic oscillator: dx/dt = v,
// dv/dt = -omega^2 * x.
type Oscillator struct {
	Omega float64

	schema ode.Schema
	energy float64
}

func NewOscillator() *Oscillator {
	return &Oscillator{
		Omega:  1.0,
		schema: ode.NewSchemaBuilder().Scalar("x").Scalar("v").MustBuild(),
	}
}

func (o *Oscillator) Name() string     { return "oscillator" }
func (o *Oscillator) Vars() ode.Schema { return o.schema }

func (o *Oscillator) Derive(t float64, y ode.State) (ode.State, error) {
	x, v := y[0], y[1]
	o.energy = 0.5 * (v*v + o.Omega*o.Omega*x*x)
	return ode.State{v, -o.Omega * o.Omega * x}, nil
}

func (o *Oscillator) Params() map[string]float64 {
	return map[string]float64{"omega": o.Omega}
}

func (o *Oscillator) SetParam(name string, value float64) error {
	if name != "omega" {
		return fmt.Errorf("%w: %s", ode.ErrUnknownConstant, name)
	}
	o.Omega = value
	return nil
}

func (o *Oscillator) Attr(name string) (float64, error) {
	if name == "energy" {
		return o.energy, nil
	}
	return 0, fmt.Errorf("%w: %s", ode.ErrUnknownAttr, name)
}
