package physics

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/san-kum/spacesim/internal/dynamo"
)

const (
	DefaultTimeDelta        = 1e-5
	DefaultSimulationTime   = 10.0
	DefaultG                = 10.0
	DefaultCollision        = Elastic
	DefaultAccelerationRate = 1.0
	DefaultElasticity       = 5.0
)

// Params are the session-wide simulation parameters.
type Params struct {
	TimeDelta      float64
	SimulationTime float64
	G              float64
	Collision      CollisionType
	// AccelerationRate scales the controllable body's directional input.
	AccelerationRate float64
	// Elasticity is the e coefficient of the elastic response. It is not a
	// restitution coefficient and is never clamped.
	Elasticity float64
}

func DefaultParams() Params {
	return Params{
		TimeDelta:        DefaultTimeDelta,
		SimulationTime:   DefaultSimulationTime,
		G:                DefaultG,
		Collision:        DefaultCollision,
		AccelerationRate: DefaultAccelerationRate,
		Elasticity:       DefaultElasticity,
	}
}

// stepTolerance is the relative distance from an integer under which a
// step quotient is treated as that integer.
const stepTolerance = 1e-9

// TotalSteps is floor(SimulationTime / TimeDelta). Quotients that land just
// below an integer through rounding (10 / 1e-5, 0.3 / 0.1) count as that
// integer.
func (p Params) TotalSteps() int {
	if p.TimeDelta <= 0 || p.SimulationTime <= 0 {
		return 0
	}
	q := p.SimulationTime / p.TimeDelta
	if n := math.Round(q); math.Abs(q-n) <= stepTolerance*math.Max(1, n) {
		return int(n)
	}
	return int(math.Floor(q))
}

type Engine struct {
	bodies []*Body
	params Params

	controls        controls
	input           Input
	hasControllable atomic.Bool

	steps int
	time  float64
}

// NewEngine takes ownership of bodies. It rejects unknown enum values and
// more than one controllable body.
func NewEngine(bodies []*Body, params Params) (*Engine, error) {
	if !params.Collision.Valid() {
		return nil, dynamo.Invalid("collision_type", "unknown value %d", int(params.Collision))
	}

	controllable := -1
	for i, b := range bodies {
		if b == nil {
			return nil, dynamo.Invalid(fmt.Sprintf("space_objects[%d]", i), "is nil")
		}
		if !b.Movement.Valid() {
			return nil, dynamo.Invalid(fmt.Sprintf("space_objects[%d].movement_type", i), "unknown value %d", int(b.Movement))
		}
		if b.Movement == Controllable {
			if controllable >= 0 {
				return nil, dynamo.Invalid("space_objects", "has more than one controllable body (%d and %d)", controllable, i)
			}
			controllable = i
		}
	}

	e := &Engine{
		bodies: append([]*Body(nil), bodies...),
		params: params,
	}
	e.hasControllable.Store(controllable >= 0)
	return e, nil
}

func (e *Engine) Params() Params { return e.params }

func (e *Engine) Len() int { return len(e.bodies) }

// Steps returns the number of completed steps.
func (e *Engine) Steps() int { return e.steps }

// Time returns the simulated time covered by completed steps.
func (e *Engine) Time() float64 { return e.time }

// Bodies returns copies of the bodies in collection order.
func (e *Engine) Bodies() []Body {
	out := make([]Body, len(e.bodies))
	for i, b := range e.bodies {
		out[i] = *b
	}
	return out
}

// Body returns a copy of the i-th body.
func (e *Engine) Body(i int) Body {
	return *e.bodies[i]
}

// Snapshot returns the render state of every body in collection order.
func (e *Engine) Snapshot() []BodyState {
	out := make([]BodyState, len(e.bodies))
	for i, b := range e.bodies {
		out[i] = BodyState{X: b.Position.X, Y: b.Position.Y, Radius: b.Radius}
	}
	return out
}

// HasControllable reports whether a controllable body is still alive. Safe
// for concurrent use.
func (e *Engine) HasControllable() bool {
	return e.hasControllable.Load()
}

// SetControl presses or releases a direction on the controllable body. The
// change is picked up at the start of the next step. Safe for concurrent use.
func (e *Engine) SetControl(d Direction, pressed bool) error {
	if d > Right {
		return dynamo.ErrInvalidDirection
	}
	if !e.hasControllable.Load() {
		return dynamo.ErrNoControllable
	}
	e.controls.set(d, pressed)
	return nil
}

// Pending returns the input the next step will latch. Safe for concurrent use.
func (e *Engine) Pending() Input { return e.controls.latch() }

// Step advances the simulation by one time delta.
func (e *Engine) Step() error {
	e.input = e.controls.latch()

	if err := e.resolveCollisions(); err != nil {
		return e.fail(err)
	}

	for i, b := range e.bodies {
		if b.Movement == Static {
			continue
		}
		acc, err := e.AccelerationOf(i)
		if err != nil {
			return e.fail(err)
		}
		b.Acceleration = acc
	}

	dt := e.params.TimeDelta
	for _, b := range e.bodies {
		if b.Movement == Static {
			continue
		}
		b.Position = b.Position.Add(b.Velocity.Scale(dt))
		b.Velocity = b.Velocity.Add(b.Acceleration.Scale(dt))
	}

	e.steps++
	e.time += dt
	return nil
}

func (e *Engine) fail(err error) error {
	return &dynamo.SimulationError{Step: e.steps, Time: e.time, Wrapped: err}
}

func (e *Engine) refreshControllable() {
	for _, b := range e.bodies {
		if b.Movement == Controllable {
			e.hasControllable.Store(true)
			return
		}
	}
	e.hasControllable.Store(false)
}
