package ode

import "fmt"

// Binding provides bidirectional named access into a flat state vector.
// It aliases the buffer it is constructed over: writes through SetValues
// are visible to the buffer's owner and vice versa.
type Binding struct {
	schema Schema
	buf    State
}

func NewBinding(schema Schema, buf State) (*Binding, error) {
	if len(buf) != schema.Len() {
		return nil, fmt.Errorf("%w: buffer length %d, schema length %d",
			ErrShapeMismatch, len(buf), schema.Len())
	}
	return &Binding{schema: schema, buf: buf}, nil
}

func (b *Binding) Schema() Schema { return b.schema }

// Resolve maps a declared name to its slice of the state vector.
func (b *Binding) Resolve(name string) (VarSpec, error) {
	return b.schema.Index(name)
}

// SetValues overwrites the named subset of the state vector. Names not
// present in vals are untouched. Scalar variables take a single-element
// slice; array variables must match their declared length exactly.
// Mutating state invalidates stepper continuity: the owner must restart
// before the next advance.
func (b *Binding) SetValues(vals map[string][]float64) error {
	for name, v := range vals {
		spec, err := b.schema.Index(name)
		if err != nil {
			return err
		}
		if len(v) != spec.Length {
			return fmt.Errorf("%w: variable %s has length %d, got %d",
				ErrShapeMismatch, name, spec.Length, len(v))
		}
		copy(b.buf[spec.Offset:spec.Offset+spec.Length], v)
	}
	return nil
}

// SetScalars is SetValues for all-scalar value maps.
func (b *Binding) SetScalars(vals map[string]float64) error {
	m := make(map[string][]float64, len(vals))
	for name, v := range vals {
		m[name] = []float64{v}
	}
	return b.SetValues(m)
}

// GetValues returns a full snapshot of all declared variables.
func (b *Binding) GetValues() map[string][]float64 {
	out := make(map[string][]float64, len(b.schema.vars))
	for _, spec := range b.schema.vars {
		v := make([]float64, spec.Length)
		copy(v, b.buf[spec.Offset:spec.Offset+spec.Length])
		out[spec.Name] = v
	}
	return out
}

// Get returns a copy of one named variable's values.
func (b *Binding) Get(name string) ([]float64, error) {
	spec, err := b.schema.Index(name)
	if err != nil {
		return nil, err
	}
	v := make([]float64, spec.Length)
	copy(v, b.buf[spec.Offset:spec.Offset+spec.Length])
	return v, nil
}
