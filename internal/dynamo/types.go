package dynamo

import (
	"fmt"
	"math"
)

// Vec2 is a 2D vector.
type Vec2 struct {
	X, Y float64
}

// VecFromSlice converts a slice to a Vec2. It fails unless v has exactly two
// components.
func VecFromSlice(field string, v []float64) (Vec2, error) {
	if len(v) != 2 {
		return Vec2{}, &ValidationError{
			Field:  field,
			Reason: fmt.Sprintf("must contain 2 values, got %d", len(v)),
		}
	}
	return Vec2{X: v[0], Y: v[1]}, nil
}

func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Y: v.Y - o.Y}
}

func (v Vec2) Scale(factor float64) Vec2 {
	return Vec2{X: v.X * factor, Y: v.Y * factor}
}

func (v Vec2) Dot(o Vec2) float64 {
	return v.X*o.X + v.Y*o.Y
}

// Norm returns the euclidean length.
func (v Vec2) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

// Perp returns v rotated by 90 degrees counter-clockwise.
func (v Vec2) Perp() Vec2 {
	return Vec2{X: -v.Y, Y: v.X}
}

func (v Vec2) IsValid() bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}

func (v Vec2) String() string {
	return fmt.Sprintf("(%g, %g)", v.X, v.Y)
}
