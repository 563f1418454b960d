package models

import (
	"fmt"
	"sort"

	"github.com/kmatsu/odelab/internal/ode"
)

// Registry maps model identifiers to constructors. The set of known
// identifiers is fixed at construction; there is no dynamic loading.
type Registry struct {
	factories map[string]func() ode.Model
}

func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]func() ode.Model)}

	r.factories["decay"] = func() ode.Model { return NewDecay() }
	r.factories["oscillator"] = func() ode.Model { return NewOscillator() }
	r.factories["fitzhugh"] = func() ode.Model { return NewFitzHugh() }
	r.factories["pendulum"] = func() ode.Model { return NewPendulum() }

	return r
}

// Get constructs a fresh model instance for the identifier.
func (r *Registry) Get(name string) (ode.Model, error) {
	fn, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ode.ErrUnknownModel, name)
	}
	return fn(), nil
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
