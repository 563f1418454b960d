package ode

import "fmt"

// VarSpec describes one named slice of the flat state vector.
type VarSpec struct {
	Name   string
	Offset int
	Length int
}

// Schema is the immutable, ordered layout of a model's state vector.
// Variable order is assigned once at construction and never changes.
type Schema struct {
	vars  []VarSpec
	index map[string]int
	size  int
}

// Len returns the total flat size of the state vector.
func (s Schema) Len() int { return s.size }

// Names returns the declared variable names in declaration order.
func (s Schema) Names() []string {
	names := make([]string, len(s.vars))
	for i, v := range s.vars {
		names[i] = v.Name
	}
	return names
}

func (s Schema) Specs() []VarSpec {
	specs := make([]VarSpec, len(s.vars))
	copy(specs, s.vars)
	return specs
}

// Index resolves a declared name to its slice of the state vector.
func (s Schema) Index(name string) (VarSpec, error) {
	i, ok := s.index[name]
	if !ok {
		return VarSpec{}, fmt.Errorf("%w: %s", ErrUnknownVariable, name)
	}
	return s.vars[i], nil
}

// SchemaBuilder accumulates variable declarations. Declaration order
// determines state vector order.
type SchemaBuilder struct {
	vars []VarSpec
	err  error
}

func NewSchemaBuilder() *SchemaBuilder {
	return &SchemaBuilder{}
}

func (b *SchemaBuilder) Scalar(name string) *SchemaBuilder {
	return b.add(name, 1)
}

func (b *SchemaBuilder) Array(name string, length int) *SchemaBuilder {
	if length < 1 {
		b.err = fmt.Errorf("variable %s: length must be positive, got %d", name, length)
		return b
	}
	return b.add(name, length)
}

func (b *SchemaBuilder) add(name string, length int) *SchemaBuilder {
	for _, v := range b.vars {
		if v.Name == name {
			b.err = fmt.Errorf("variable %s declared twice", name)
			return b
		}
	}
	b.vars = append(b.vars, VarSpec{Name: name, Length: length})
	return b
}

func (b *SchemaBuilder) Build() (Schema, error) {
	if b.err != nil {
		return Schema{}, b.err
	}
	s := Schema{
		vars:  make([]VarSpec, len(b.vars)),
		index: make(map[string]int, len(b.vars)),
	}
	offset := 0
	for i, v := range b.vars {
		v.Offset = offset
		s.vars[i] = v
		s.index[v.Name] = i
		offset += v.Length
	}
	s.size = offset
	return s, nil
}

// MustBuild is for models declaring a fixed schema at construction,
// where a declaration error is a programming bug.
func (b *SchemaBuilder) MustBuild() Schema {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}
