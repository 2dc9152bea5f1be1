package physics

import (
	"fmt"

	"github.com/san-kum/spacesim/internal/dynamo"
)

// MovementType classifies how a body takes part in integration.
type MovementType int

const (
	// Static bodies never move and are never accelerated.
	Static MovementType = iota
	// Ordinary bodies are freely integrated.
	Ordinary
	// Controllable bodies are integrated and also receive directional input.
	Controllable
)

// ParseMovementType maps a wire value to a MovementType.
func ParseMovementType(v int) (MovementType, error) {
	mt := MovementType(v)
	if !mt.Valid() {
		return 0, dynamo.Invalid("movement_type", "unknown value %d", v)
	}
	return mt, nil
}

func (m MovementType) Valid() bool {
	switch m {
	case Static, Ordinary, Controllable:
		return true
	default:
		return false
	}
}

func (m MovementType) String() string {
	switch m {
	case Static:
		return "static"
	case Ordinary:
		return "ordinary"
	case Controllable:
		return "controllable"
	default:
		return fmt.Sprintf("MovementType(%d)", int(m))
	}
}

// Body is a point mass with a collision radius.
type Body struct {
	Name         string
	Mass         float64
	Radius       float64
	Position     dynamo.Vec2
	Velocity     dynamo.Vec2
	Acceleration dynamo.Vec2
	Movement     MovementType
}

// NewBody creates a body from raw vectors. Position and velocity must hold
// exactly two finite components; mass and radius are taken as given.
func NewBody(name string, mass, radius float64, position, velocity []float64, mt MovementType) (*Body, error) {
	if !mt.Valid() {
		return nil, dynamo.Invalid("movement_type", "unknown value %d", int(mt))
	}
	pos, err := dynamo.VecFromSlice("position", position)
	if err != nil {
		return nil, err
	}
	vel, err := dynamo.VecFromSlice("velocity", velocity)
	if err != nil {
		return nil, err
	}
	if !pos.IsValid() {
		return nil, dynamo.Invalid("position", "non-finite component in %v", pos)
	}
	if !vel.IsValid() {
		return nil, dynamo.Invalid("velocity", "non-finite component in %v", vel)
	}
	return &Body{
		Name:     name,
		Mass:     mass,
		Radius:   radius,
		Position: pos,
		Velocity: vel,
		Movement: mt,
	}, nil
}

func (b *Body) String() string {
	return fmt.Sprintf("Body(%s, mass:%g, radius:%g, position:%v, velocity:%v, acceleration:%v, %s)",
		b.Name, b.Mass, b.Radius, b.Position, b.Velocity, b.Acceleration, b.Movement)
}

// BodyState is the render-relevant part of a body.
type BodyState struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
}
