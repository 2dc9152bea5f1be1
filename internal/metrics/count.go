package metrics

import "github.com/san-kum/spacesim/internal/physics"

// BodyCount reports how many bodies survived the last step.
type BodyCount struct {
	count int
}

func NewBodyCount() *BodyCount { return &BodyCount{} }

func (b *BodyCount) Name() string              { return "bodies" }
func (b *BodyCount) Observe(e *physics.Engine) { b.count = e.Len() }
func (b *BodyCount) Value() float64            { return float64(b.count) }
func (b *BodyCount) Reset()                    { b.count = 0 }
