package config

import "sort"

func movement(v int) *int { return &v }

var Presets = map[string]*Launch{
	"binary": {
		TimeDelta: 1e-3, SimulationTime: 30, G: 10, CollisionType: 2,
		AccelerationRate: 1, ElasticityCoefficient: 5,
		SpaceObjects: []SpaceObject{
			{Name: "alpha", Mass: 1, Radius: 0.1, Position: Vec(1, 0), Velocity: Vec(0, 2.66)},
			{Name: "beta", Mass: 1, Radius: 0.1, Position: Vec(-1, 0), Velocity: Vec(0, -2.66)},
		},
	},
	"solar": {
		TimeDelta: 1e-4, SimulationTime: 10, G: 10, CollisionType: 2,
		AccelerationRate: 1, ElasticityCoefficient: 5,
		SpaceObjects: []SpaceObject{
			{Name: "sun", Mass: 100, Radius: 0.3, Position: Vec(0, 0), Velocity: Vec(0, 0), MovementType: movement(0)},
			{Name: "mercury", Mass: 0.1, Radius: 0.05, Position: Vec(2, 0), Velocity: Vec(0, 37.6)},
			{Name: "venus", Mass: 0.3, Radius: 0.08, Position: Vec(0, 3), Velocity: Vec(-41.6, 0)},
			{Name: "earth", Mass: 0.4, Radius: 0.09, Position: Vec(-5, 0), Velocity: Vec(0, -47.3)},
		},
	},
	"billiards": {
		TimeDelta: 1e-3, SimulationTime: 20, G: 0, CollisionType: 2,
		AccelerationRate: 1, ElasticityCoefficient: 1,
		SpaceObjects: []SpaceObject{
			{Name: "cue", Mass: 1, Radius: 0.2, Position: Vec(-3, 0), Velocity: Vec(4, 0.1)},
			{Name: "one", Mass: 1, Radius: 0.2, Position: Vec(0, 0), Velocity: Vec(0, 0)},
			{Name: "two", Mass: 1, Radius: 0.2, Position: Vec(0.4, 0.21), Velocity: Vec(0, 0)},
			{Name: "three", Mass: 1, Radius: 0.2, Position: Vec(0.4, -0.21), Velocity: Vec(0, 0)},
		},
	},
	"pilot": {
		TimeDelta: 1e-3, SimulationTime: 60, G: 10, CollisionType: 2,
		AccelerationRate: 20, ElasticityCoefficient: 1,
		SpaceObjects: []SpaceObject{
			{Name: "planet", Mass: 20, Radius: 0.5, Position: Vec(0, 0), Velocity: Vec(0, 0), MovementType: movement(0)},
			{Name: "ship", Mass: 0.01, Radius: 0.05, Position: Vec(3, 0), Velocity: Vec(0, 8), MovementType: movement(2)},
			{Name: "moon", Mass: 1, Radius: 0.15, Position: Vec(-4, 0), Velocity: Vec(0, -7.5)},
		},
	},
	"demolition": {
		TimeDelta: 1e-3, SimulationTime: 15, G: 10, CollisionType: 1,
		AccelerationRate: 1, ElasticityCoefficient: 5,
		SpaceObjects: []SpaceObject{
			{Name: "core", Mass: 50, Radius: 0.4, Position: Vec(0, 0), Velocity: Vec(0, 0), MovementType: movement(0)},
			{Name: "a", Mass: 1, Radius: 0.1, Position: Vec(4, 0), Velocity: Vec(0, 3)},
			{Name: "b", Mass: 1, Radius: 0.1, Position: Vec(-3, 1), Velocity: Vec(1, -2)},
			{Name: "c", Mass: 1, Radius: 0.1, Position: Vec(0, -5), Velocity: Vec(-4, 0)},
			{Name: "d", Mass: 1, Radius: 0.1, Position: Vec(2, 2), Velocity: Vec(0, 0)},
		},
	},
}

// GetPreset returns a copy of the named scenario, or nil.
func GetPreset(name string) *Launch {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
