package storage

import (
	"sync"

	"github.com/san-kum/spacesim/internal/sim"
)

// Recorder keeps every Nth frame it observes plus the last one.
type Recorder struct {
	mu     sync.Mutex
	every  int
	seen   int
	frames []sim.Frame
	last   *sim.Frame
}

func NewRecorder(every int) *Recorder {
	if every < 1 {
		every = 1
	}
	return &Recorder{every: every}
}

func (r *Recorder) OnFrame(f sim.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen%r.every == 0 {
		r.frames = append(r.frames, f)
		r.last = nil
	} else {
		r.last = &f
	}
	r.seen++
}

func (r *Recorder) Frames() []sim.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sim.Frame, len(r.frames), len(r.frames)+1)
	copy(out, r.frames)
	if r.last != nil {
		out = append(out, *r.last)
	}
	return out
}
