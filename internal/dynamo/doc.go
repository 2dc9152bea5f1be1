// Package dynamo provides core primitives shared by the simulation packages.
//
// The package defines the value types and error taxonomy used by the
// physics engine and the session driver:
//
//   - [Vec2]: two-component vector for positions, velocities and accelerations
//   - [ValidationError]: malformed setup input, reported synchronously
//   - [SimulationError]: a step that failed at runtime, with step context
//
// # Errors
//
// All errors can be classified with [errors.Is] against the sentinel values
// [ErrValidation], [ErrDegenerate], [ErrUnknownSession], [ErrNoControllable]
// and [ErrInvalidDirection].
package dynamo
