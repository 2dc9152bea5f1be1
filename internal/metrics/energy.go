package metrics

import (
	"math"

	"github.com/san-kum/spacesim/internal/physics"
)

// KineticEnergy tracks the total kinetic energy after each step. Value is
// the last observation; Series keeps up to capacity samples for plotting.
type KineticEnergy struct {
	capacity int
	last     float64
	series   []float64
}

func NewKineticEnergy(capacity int) *KineticEnergy {
	return &KineticEnergy{capacity: capacity}
}

func (k *KineticEnergy) Name() string { return "kinetic_energy" }

func (k *KineticEnergy) Observe(e *physics.Engine) {
	k.last = e.KineticEnergy()
	if k.capacity <= 0 {
		return
	}
	if len(k.series) == k.capacity {
		copy(k.series, k.series[1:])
		k.series = k.series[:len(k.series)-1]
	}
	k.series = append(k.series, k.last)
}

func (k *KineticEnergy) Value() float64 { return k.last }

func (k *KineticEnergy) Series() []float64 {
	return append([]float64(nil), k.series...)
}

func (k *KineticEnergy) Reset() {
	k.last = 0
	k.series = k.series[:0]
}

// MomentumDrift is the largest relative change of the total momentum
// magnitude seen against the first observation.
type MomentumDrift struct {
	initial  float64
	maxDrift float64
	samples  int
}

func NewMomentumDrift() *MomentumDrift {
	return &MomentumDrift{}
}

func (m *MomentumDrift) Name() string { return "momentum_drift" }

func (m *MomentumDrift) Observe(e *physics.Engine) {
	p := e.Momentum().Norm()
	if m.samples == 0 {
		m.initial = p
	}
	m.samples++

	if m.initial != 0 {
		drift := math.Abs(p-m.initial) / m.initial
		m.maxDrift = math.Max(m.maxDrift, drift)
	}
}

func (m *MomentumDrift) Value() float64 { return m.maxDrift }

func (m *MomentumDrift) Reset() {
	m.initial = 0
	m.maxDrift = 0
	m.samples = 0
}
