package sim

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/spacesim/internal/physics"
)

// DefaultInterval is the wall-clock time between two frames.
const DefaultInterval = 16 * time.Millisecond

var ErrAlreadyStarted = errors.New("sim: driver already started")

// Driver steps one engine at a fixed wall-clock cadence and emits a frame
// after every step. It is the only goroutine allowed to call Step.
type Driver struct {
	engine    *physics.Engine
	emitter   Emitter
	interval  time.Duration
	metrics   []Metric
	observers []Observer
	logger    *zap.Logger
	status    atomic.Int32
	ran       atomic.Bool
}

type Option func(*Driver)

// WithInterval sets the time between frames. Zero runs as fast as possible.
func WithInterval(d time.Duration) Option {
	return func(dr *Driver) { dr.interval = d }
}

func WithMetric(m Metric) Option {
	return func(dr *Driver) { dr.metrics = append(dr.metrics, m) }
}

func WithObserver(o Observer) Option {
	return func(dr *Driver) { dr.observers = append(dr.observers, o) }
}

func WithLogger(l *zap.Logger) Option {
	return func(dr *Driver) { dr.logger = l }
}

func NewDriver(engine *physics.Engine, emitter Emitter, opts ...Option) *Driver {
	if emitter == nil {
		emitter = Discard
	}
	d := &Driver{
		engine:   engine,
		emitter:  emitter,
		interval: DefaultInterval,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Status is safe to call from any goroutine.
func (d *Driver) Status() Status {
	return Status(d.status.Load())
}

// Start moves an idle driver to Running without stepping it. Run must
// follow. Callers that hand Run to another goroutine use it so Status is
// Running as soon as they return.
func (d *Driver) Start() error {
	if !d.status.CompareAndSwap(int32(Idle), int32(Running)) {
		if s := d.Status(); s.Terminal() {
			return fmt.Errorf("%w: already %s", ErrAlreadyStarted, s)
		}
		return ErrAlreadyStarted
	}
	return nil
}

// Run steps the engine until SimulationTime is covered, ctx is cancelled or
// a step fails. Cancellation is checked between iterations only: a step and
// its emission always complete once started. On cancellation Run returns
// ctx.Err() along with the partial result.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	if !d.ran.CompareAndSwap(false, true) {
		return nil, ErrAlreadyStarted
	}
	if d.Status() == Idle {
		if err := d.Start(); err != nil {
			return nil, err
		}
	}

	total := d.engine.Params().TotalSteps()
	result := &Result{Metrics: make(map[string]float64, len(d.metrics))}
	for _, m := range d.metrics {
		m.Reset()
	}

	d.logger.Debug("driver started",
		zap.Int("total_steps", total),
		zap.Int("bodies", d.engine.Len()),
		zap.Duration("interval", d.interval))

	var tick <-chan time.Time
	if d.interval > 0 {
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for i := 0; i < total; i++ {
		select {
		case <-ctx.Done():
			return d.finish(result, Cancelled, ctx.Err())
		default:
		}

		if err := d.engine.Step(); err != nil {
			return d.finish(result, Failed, err)
		}
		result.StepsTaken++

		for _, m := range d.metrics {
			m.Observe(d.engine)
		}

		frame := Frame{Step: i, Time: d.engine.Time(), Bodies: d.engine.Snapshot()}
		if err := d.emitter.Emit(ctx, frame); err != nil {
			return d.finish(result, Failed, fmt.Errorf("emit frame %d: %w", i, err))
		}
		for _, o := range d.observers {
			o.OnFrame(frame)
		}

		if tick == nil || i == total-1 {
			continue
		}
		select {
		case <-ctx.Done():
			return d.finish(result, Cancelled, ctx.Err())
		case <-tick:
		}
	}

	return d.finish(result, Completed, nil)
}

func (d *Driver) finish(result *Result, status Status, err error) (*Result, error) {
	for _, m := range d.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	result.Status = status
	d.status.Store(int32(status))

	fields := []zap.Field{
		zap.Stringer("status", status),
		zap.Int("steps", result.StepsTaken),
	}
	switch status {
	case Failed:
		d.logger.Warn("driver failed", append(fields, zap.Error(err))...)
	default:
		d.logger.Debug("driver stopped", fields...)
	}
	return result, err
}
