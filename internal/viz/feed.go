package viz

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/san-kum/spacesim/internal/physics"
	"github.com/san-kum/spacesim/internal/sim"
)

// Update is one frame as the viewer sees it.
type Update struct {
	Frame  sim.Frame
	Energy float64
}

// Feed is a sim.Emitter that hands frames to the viewer. When the viewer
// falls behind, frames are dropped instead of stalling the driver.
type Feed struct {
	engine  *physics.Engine
	updates chan Update
	dropped atomic.Int64
	once    sync.Once
}

func NewFeed(e *physics.Engine, buffer int) *Feed {
	return &Feed{engine: e, updates: make(chan Update, buffer)}
}

// Emit runs on the driver goroutine, so reading the engine here is safe.
func (f *Feed) Emit(_ context.Context, frame sim.Frame) error {
	u := Update{Frame: frame, Energy: f.engine.KineticEnergy()}
	select {
	case f.updates <- u:
	default:
		f.dropped.Add(1)
	}
	return nil
}

func (f *Feed) Updates() <-chan Update { return f.updates }

func (f *Feed) Dropped() int64 { return f.dropped.Load() }

// Close ends the update stream once the driver has stopped emitting.
// Buffered updates are still delivered.
func (f *Feed) Close() {
	f.once.Do(func() { close(f.updates) })
}
