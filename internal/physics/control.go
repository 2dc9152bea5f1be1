package physics

import (
	"sync/atomic"

	"github.com/san-kum/spacesim/internal/dynamo"
)

// Direction is one of the four control axes.
type Direction uint8

const (
	Up Direction = iota
	Down
	Left
	Right
)

var directionNames = [...]string{Up: "up", Down: "down", Left: "left", Right: "right"}

// ParseDirection maps "up", "down", "left" and "right" to a Direction.
func ParseDirection(s string) (Direction, error) {
	for d, name := range directionNames {
		if name == s {
			return Direction(d), nil
		}
	}
	return 0, dynamo.ErrInvalidDirection
}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return "unknown"
}

func (d Direction) unit() dynamo.Vec2 {
	switch d {
	case Up:
		return dynamo.Vec2{Y: 1}
	case Down:
		return dynamo.Vec2{Y: -1}
	case Left:
		return dynamo.Vec2{X: -1}
	case Right:
		return dynamo.Vec2{X: 1}
	default:
		return dynamo.Vec2{}
	}
}

// Input is a set of pressed directions.
type Input uint32

func (in Input) Pressed(d Direction) bool {
	return in&(1<<d) != 0
}

// Acceleration sums rate along the unit axis of each pressed direction.
func (in Input) Acceleration(rate float64) dynamo.Vec2 {
	var acc dynamo.Vec2
	for d := Up; d <= Right; d++ {
		if in.Pressed(d) {
			acc = acc.Add(d.unit().Scale(rate))
		}
	}
	return acc
}

// controls holds input flags written by control events and latched by the
// stepping goroutine once per step.
type controls struct {
	flags atomic.Uint32
}

func (c *controls) set(d Direction, pressed bool) {
	bit := uint32(1) << d
	for {
		old := c.flags.Load()
		next := old &^ bit
		if pressed {
			next = old | bit
		}
		if c.flags.CompareAndSwap(old, next) {
			return
		}
	}
}

func (c *controls) latch() Input {
	return Input(c.flags.Load())
}
