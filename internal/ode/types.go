package ode

import "math"

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Value is a tagged scalar-or-array quantity passed to and returned from
// model methods. A scalar carries exactly one element in Values.
type Value struct {
	Scalar bool      `json:"scalar"`
	Values []float64 `json:"values"`
}

func ScalarValue(v float64) Value {
	return Value{Scalar: true, Values: []float64{v}}
}

func ArrayValue(vs []float64) Value {
	return Value{Scalar: false, Values: vs}
}

// Float returns the scalar payload, or an error for array values.
func (v Value) Float() (float64, error) {
	if !v.Scalar || len(v.Values) != 1 {
		return 0, ErrShapeMismatch
	}
	return v.Values[0], nil
}
