package models

import (
	"fmt"
	"math"

	"github.com/kmatsu/odelab/internal/ode"
)

// Pendulum is a damped rigid pendulum:
// dtheta/dt = omega, domega/dt = (-c*omega - m*g*l*sin(theta)) / (m*l^2).
type Pendulum struct {
	Mass    float64
	Length  float64
	Damping float64
	Gravity float64

	schema ode.Schema
	energy float64
}

func NewPendulum() *Pendulum {
	return &Pendulum{
		Mass:    1.0,
		Length:  1.0,
		Damping: 0.1,
		Gravity: 9.81,
		schema:  ode.NewSchemaBuilder().Scalar("theta").Scalar("omega").MustBuild(),
	}
}

func (p *Pendulum) Name() string     { return "pendulum" }
func (p *Pendulum) Vars() ode.Schema { return p.schema }

func (p *Pendulum) Derive(t float64, y ode.State) (ode.State, error) {
	theta, omega := y[0], y[1]
	alpha := (-p.Damping*omega - p.Mass*p.Gravity*p.Length*math.Sin(theta)) /
		(p.Mass * p.Length * p.Length)

	v := omega * p.Length
	p.energy = 0.5*p.Mass*v*v + p.Mass*p.Gravity*p.Length*(1-math.Cos(theta))

	return ode.State{omega, alpha}, nil
}

func (p *Pendulum) Params() map[string]float64 {
	return map[string]float64{
		"mass":    p.Mass,
		"length":  p.Length,
		"damping": p.Damping,
		"gravity": p.Gravity,
	}
}

func (p *Pendulum) SetParam(name string, value float64) error {
	switch name {
	case "mass":
		p.Mass = value
	case "length":
		p.Length = value
	case "damping":
		p.Damping = value
	case "gravity":
		p.Gravity = value
	default:
		return fmt.Errorf("%w: %s", ode.ErrUnknownConstant, name)
	}
	return nil
}

// Attr exposes the mechanical energy computed by the last Derive call.
func (p *Pendulum) Attr(name string) (float64, error) {
	if name == "energy" {
		return p.energy, nil
	}
	return 0, fmt.Errorf("%w: %s", ode.ErrUnknownAttr, name)
}
