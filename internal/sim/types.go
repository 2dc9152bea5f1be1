package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/san-kum/spacesim/internal/physics"
)

// Status is the lifecycle state of a Driver.
type Status int32

const (
	Idle Status = iota
	Running
	Completed
	Cancelled
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int32(s))
	}
}

// Terminal reports whether the driver has stopped for good.
func (s Status) Terminal() bool {
	return s == Completed || s == Cancelled || s == Failed
}

// Frame is one emitted snapshot. Bodies are in collection order, so the
// index of an entry is positional and shifts after a destructive collision.
type Frame struct {
	Step   int
	Time   float64
	Bodies []physics.BodyState
}

// MarshalJSON encodes the frame as [{"0": {...}}, {"1": {...}}, ...].
func (f Frame) MarshalJSON() ([]byte, error) {
	entries := make([]map[string]physics.BodyState, len(f.Bodies))
	for i, b := range f.Bodies {
		entries[i] = map[string]physics.BodyState{strconv.Itoa(i): b}
	}
	return json.Marshal(entries)
}

func (f *Frame) UnmarshalJSON(data []byte) error {
	var entries []map[string]physics.BodyState
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	f.Bodies = make([]physics.BodyState, len(entries))
	for _, entry := range entries {
		for key, b := range entry {
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(entries) {
				return fmt.Errorf("frame: bad body index %q", key)
			}
			f.Bodies[i] = b
		}
	}
	return nil
}

// Emitter delivers frames to a consumer. Emit is called from the driver's
// goroutine and must return before the next step starts.
type Emitter interface {
	Emit(ctx context.Context, f Frame) error
}

type EmitterFunc func(ctx context.Context, f Frame) error

func (fn EmitterFunc) Emit(ctx context.Context, f Frame) error { return fn(ctx, f) }

// Discard drops every frame.
var Discard Emitter = EmitterFunc(func(context.Context, Frame) error { return nil })

// Metric accumulates a scalar over the steps of a run.
type Metric interface {
	Name() string
	Observe(e *physics.Engine)
	Value() float64
	Reset()
}

// Observer sees every frame after it was emitted.
type Observer interface {
	OnFrame(f Frame)
}

type Result struct {
	Status     Status
	StepsTaken int
	Metrics    map[string]float64
}
