// Package physics implements the 2D gravitational N-body engine.
//
// An [Engine] owns an ordered collection of [Body] values and a set of
// global [Params]. Each call to [Engine.Step] advances the simulation by one
// fixed time delta:
//
//  1. collisions are detected against the current positions and resolved
//     according to the [CollisionType] (traversing, destructive, elastic)
//  2. the acceleration of every non-static body is recomputed from the
//     current positions
//  3. positions advance with the old velocity, then velocities advance with
//     the new acceleration (explicit Euler)
//
// Gravity falls off with distance^1.5 in vector form:
//
//	a_i = Σ_j G·m_j / |p_j − p_i|^1.5 · (p_j − p_i)
//
// # Thread Safety
//
// An Engine is owned by a single goroutine that calls Step. The only method
// safe to call from other goroutines is [Engine.SetControl], which records
// the controllable body's input flags for the next step.
package physics
