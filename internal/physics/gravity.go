package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/spacesim/internal/dynamo"
)

// gravityExponent is the falloff applied to the separation vector, which
// is not normalised. It is 1.5, not 3.
const gravityExponent = 1.5

// AccelerationOf returns the acceleration of the i-th body from all other
// bodies at their current positions, plus the latched directional input for
// a controllable body.
func (e *Engine) AccelerationOf(i int) (dynamo.Vec2, error) {
	b := e.bodies[i]

	switch b.Movement {
	case Static:
		return dynamo.Vec2{}, nil
	case Ordinary, Controllable:
	default:
		return dynamo.Vec2{}, dynamo.Invalid("movement_type", "unknown value %d", int(b.Movement))
	}

	var acc dynamo.Vec2
	for j, other := range e.bodies {
		if j == i {
			continue
		}
		r := other.Position.Sub(b.Position)
		dist := r.Norm()
		if dist == 0 {
			return dynamo.Vec2{}, fmt.Errorf("gravity between %d and %d: %w", i, j, dynamo.ErrDegenerate)
		}
		f := e.params.G * other.Mass / math.Pow(dist, gravityExponent)
		acc = acc.Add(r.Scale(f))
	}

	if b.Movement == Controllable {
		acc = acc.Add(e.input.Acceleration(e.params.AccelerationRate))
	}
	return acc, nil
}
