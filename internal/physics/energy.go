package physics

import "github.com/san-kum/spacesim/internal/dynamo"

// KineticEnergy sums ½·m·|v|² over all bodies.
func (e *Engine) KineticEnergy() float64 {
	ke := 0.0
	for _, b := range e.bodies {
		ke += 0.5 * b.Mass * b.Velocity.Dot(b.Velocity)
	}
	return ke
}

// Momentum sums m·v over all bodies.
func (e *Engine) Momentum() dynamo.Vec2 {
	var p dynamo.Vec2
	for _, b := range e.bodies {
		p = p.Add(b.Velocity.Scale(b.Mass))
	}
	return p
}

// CenterOfMass returns the mass-weighted mean position, or the zero vector
// when the total mass is zero.
func (e *Engine) CenterOfMass() dynamo.Vec2 {
	var sum dynamo.Vec2
	total := 0.0
	for _, b := range e.bodies {
		sum = sum.Add(b.Position.Scale(b.Mass))
		total += b.Mass
	}
	if total == 0 {
		return dynamo.Vec2{}
	}
	return sum.Scale(1 / total)
}
