package physics

import (
	"fmt"

	"github.com/san-kum/spacesim/internal/dynamo"
)

// CollisionType selects how overlapping bodies are resolved.
type CollisionType int

const (
	// Traversing lets bodies pass through each other.
	Traversing CollisionType = iota
	// Destructive removes every body that touches another.
	Destructive
	// Elastic exchanges normal velocity components.
	Elastic
)

// ParseCollisionType maps a wire value to a CollisionType.
func ParseCollisionType(v int) (CollisionType, error) {
	ct := CollisionType(v)
	if !ct.Valid() {
		return 0, dynamo.Invalid("collision_type", "unknown value %d", v)
	}
	return ct, nil
}

func (c CollisionType) Valid() bool {
	switch c {
	case Traversing, Destructive, Elastic:
		return true
	default:
		return false
	}
}

func (c CollisionType) String() string {
	switch c {
	case Traversing:
		return "traversing"
	case Destructive:
		return "destructive"
	case Elastic:
		return "elastic"
	default:
		return fmt.Sprintf("CollisionType(%d)", int(c))
	}
}

// Pair is an unordered pair of body indices with I < J.
type Pair struct {
	I, J int
}

// Collisions returns every pair of bodies whose distance does not exceed the
// sum of their radii, in index order.
func (e *Engine) Collisions() []Pair {
	var pairs []Pair
	for i := 0; i < len(e.bodies); i++ {
		a := e.bodies[i]
		for j := i + 1; j < len(e.bodies); j++ {
			b := e.bodies[j]
			if b.Position.Sub(a.Position).Norm() <= a.Radius+b.Radius {
				pairs = append(pairs, Pair{I: i, J: j})
			}
		}
	}
	return pairs
}

func (e *Engine) resolveCollisions() error {
	switch e.params.Collision {
	case Traversing:
		return nil
	case Destructive:
		e.destroy(e.Collisions())
		return nil
	case Elastic:
		return e.bounce(e.Collisions())
	default:
		return dynamo.Invalid("collision_type", "unknown value %d", int(e.params.Collision))
	}
}

// destroy drops every body named in pairs. Survivors keep their order.
func (e *Engine) destroy(pairs []Pair) {
	if len(pairs) == 0 {
		return
	}
	doomed := make(map[*Body]struct{}, 2*len(pairs))
	for _, p := range pairs {
		doomed[e.bodies[p.I]] = struct{}{}
		doomed[e.bodies[p.J]] = struct{}{}
	}

	survivors := make([]*Body, 0, len(e.bodies)-len(doomed))
	for _, b := range e.bodies {
		if _, ok := doomed[b]; !ok {
			survivors = append(survivors, b)
		}
	}
	e.bodies = survivors
	e.refreshControllable()
}

// bounce applies the elastic response pair by pair; later pairs see the
// velocities produced by earlier ones.
func (e *Engine) bounce(pairs []Pair) error {
	k := e.params.Elasticity
	for _, p := range pairs {
		a, b := e.bodies[p.I], e.bodies[p.J]

		r := b.Position.Sub(a.Position)
		dist := r.Norm()
		if dist == 0 {
			return fmt.Errorf("collision normal between %d and %d: %w", p.I, p.J, dynamo.ErrDegenerate)
		}
		normal := dynamo.Vec2{X: r.X / dist, Y: r.Y / dist}
		tangent := normal.Perp()

		na, ta := a.Velocity.Dot(normal), a.Velocity.Dot(tangent)
		nb, tb := b.Velocity.Dot(normal), b.Velocity.Dot(tangent)

		if a.Movement != Static {
			a.Velocity = normal.Scale(normalVelocity(a.Mass, b.Mass, na, nb, k)).Add(tangent.Scale(ta))
		}
		if b.Movement != Static {
			b.Velocity = normal.Scale(normalVelocity(b.Mass, a.Mass, nb, na, k)).Add(tangent.Scale(tb))
		}
	}
	return nil
}

// normalVelocity is the 1D response of a body with mass m1 and normal
// velocity u1 hit by a body with mass m2 and normal velocity u2.
func normalVelocity(m1, m2, u1, u2, k float64) float64 {
	return ((m1-k*m2)*u1 + (1+k)*m2*u2) / (m1 + m2)
}
