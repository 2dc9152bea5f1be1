package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/spacesim/internal/physics"
)

// Launch is the session setup payload. Every scalar is optional and
// defaults to the engine defaults.
type Launch struct {
	SpaceObjects          []SpaceObject `json:"space_objects" yaml:"space_objects"`
	TimeDelta             float64       `json:"time_delta" yaml:"time_delta"`
	SimulationTime        float64       `json:"simulation_time" yaml:"simulation_time"`
	G                     float64       `json:"G" yaml:"G"`
	CollisionType         int           `json:"collision_type" yaml:"collision_type"`
	AccelerationRate      float64       `json:"acceleration_rate" yaml:"acceleration_rate"`
	ElasticityCoefficient float64       `json:"elasticity_coefficient" yaml:"elasticity_coefficient"`
}

type SpaceObject struct {
	Name     string  `json:"name" yaml:"name"`
	Mass     float64 `json:"mass" yaml:"mass"`
	Radius   float64 `json:"radius" yaml:"radius"`
	Position Vector  `json:"position" yaml:"position"`
	Velocity Vector  `json:"velocity" yaml:"velocity"`
	// MovementType defaults to ordinary when omitted.
	MovementType *int `json:"movement_type,omitempty" yaml:"movement_type,omitempty"`
}

func DefaultLaunch() *Launch {
	return &Launch{
		TimeDelta:             physics.DefaultTimeDelta,
		SimulationTime:        physics.DefaultSimulationTime,
		G:                     physics.DefaultG,
		CollisionType:         int(physics.DefaultCollision),
		AccelerationRate:      physics.DefaultAccelerationRate,
		ElasticityCoefficient: physics.DefaultElasticity,
	}
}

// Parse decodes a JSON launch payload over the defaults.
func Parse(data []byte) (*Launch, error) {
	cfg := DefaultLaunch()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse launch: %w", err)
	}
	return cfg, nil
}

// Load reads a YAML scenario file over the defaults.
func Load(path string) (*Launch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultLaunch()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Launch) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (l *Launch) Clone() *Launch {
	c := *l
	c.SpaceObjects = make([]SpaceObject, len(l.SpaceObjects))
	for i, obj := range l.SpaceObjects {
		obj.Position = append(Vector(nil), obj.Position...)
		obj.Velocity = append(Vector(nil), obj.Velocity...)
		if obj.MovementType != nil {
			mt := *obj.MovementType
			obj.MovementType = &mt
		}
		c.SpaceObjects[i] = obj
	}
	return &c
}

// Build validates the launch and constructs a fresh engine. Nothing is
// retained when it fails.
func Build(l *Launch) (*physics.Engine, error) {
	ct, err := physics.ParseCollisionType(l.CollisionType)
	if err != nil {
		return nil, err
	}

	bodies := make([]*physics.Body, 0, len(l.SpaceObjects))
	for i, obj := range l.SpaceObjects {
		mt := physics.Ordinary
		if obj.MovementType != nil {
			if mt, err = physics.ParseMovementType(*obj.MovementType); err != nil {
				return nil, fmt.Errorf("space_objects[%d]: %w", i, err)
			}
		}
		b, err := physics.NewBody(obj.Name, obj.Mass, obj.Radius, obj.Position, obj.Velocity, mt)
		if err != nil {
			return nil, fmt.Errorf("space_objects[%d]: %w", i, err)
		}
		bodies = append(bodies, b)
	}

	return physics.NewEngine(bodies, physics.Params{
		TimeDelta:        l.TimeDelta,
		SimulationTime:   l.SimulationTime,
		G:                l.G,
		Collision:        ct,
		AccelerationRate: l.AccelerationRate,
		Elasticity:       l.ElasticityCoefficient,
	})
}

// Vector decodes either {"x": .., "y": ..} or [a, b]. A missing component
// leaves the vector short so body construction rejects it.
type Vector []float64

type point struct {
	X *float64 `json:"x" yaml:"x"`
	Y *float64 `json:"y" yaml:"y"`
}

func (p point) vector() Vector {
	v := make(Vector, 0, 2)
	if p.X != nil {
		v = append(v, *p.X)
	}
	if p.Y != nil {
		v = append(v, *p.Y)
	}
	return v
}

func Vec(x, y float64) Vector { return Vector{x, y} }

func (v *Vector) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var arr []float64
		if err := json.Unmarshal(data, &arr); err != nil {
			return err
		}
		*v = arr
		return nil
	}
	var p point
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*v = p.vector()
	return nil
}

func (v Vector) MarshalJSON() ([]byte, error) {
	if len(v) != 2 {
		return json.Marshal([]float64(v))
	}
	return json.Marshal(map[string]float64{"x": v[0], "y": v[1]})
}

func (v *Vector) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var arr []float64
		if err := node.Decode(&arr); err != nil {
			return err
		}
		*v = arr
		return nil
	case yaml.MappingNode:
		var p point
		if err := node.Decode(&p); err != nil {
			return err
		}
		*v = p.vector()
		return nil
	default:
		return fmt.Errorf("line %d: vector must be a mapping or a sequence", node.Line)
	}
}

func (v Vector) MarshalYAML() (interface{}, error) {
	if len(v) != 2 {
		return []float64(v), nil
	}
	return struct {
		X float64 `yaml:"x"`
		Y float64 `yaml:"y"`
	}{v[0], v[1]}, nil
}
