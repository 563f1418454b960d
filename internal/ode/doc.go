// Package ode defines the core contracts for incremental ODE simulation:
//
//   - [State]: flat vector of differential variable values
//   - [Schema]: immutable name -> {offset, length} layout of the state vector
//   - [Model]: an ODE system dy/dt = f(t, y) with declared variables
//   - [Binding]: named get/set access into a state vector
//
// Models declare their variables once at construction through a
// [SchemaBuilder]; the resulting variable order is fixed for the model's
// lifetime. Optional capability interfaces ([Configurable], [AttrReader],
// [MethodProvider]) expose constants, derived attributes and invokable
// methods without reflection.
package ode
