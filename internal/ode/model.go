package ode

// Model is an autonomous ODE system with declaratively registered
// variables. Derive must return a vector of exactly Vars().Len()
// derivatives, in schema order. Implementations may record intermediate
// quantities during Derive and expose them through AttrReader; such
// attributes are valid only until the next Derive call.
type Model interface {
	Vars() Schema
	Derive(t float64, y State) (State, error)
}

// Configurable exposes externally alterable model constants.
type Configurable interface {
	Params() map[string]float64
	SetParam(name string, value float64) error
}

// AttrReader exposes derived scalar attributes computed during the most
// recent Derive call.
type AttrReader interface {
	Attr(name string) (float64, error)
}

// Method is a pre-declared invokable model operation. Arguments are
// named tagged values; results are ordered tagged values, so a
// multi-value return is reported as multiple entries.
type Method func(args map[string]Value) ([]Value, error)

// MethodProvider exposes the model's explicit method registry.
// Names absent from the map fail at lookup; there is no reflection.
type MethodProvider interface {
	Methods() map[string]Method
}
