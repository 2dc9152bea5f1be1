package sim_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/spacesim/internal/dynamo"
	"github.com/san-kum/spacesim/internal/physics"
	"github.com/san-kum/spacesim/internal/sim"
)

type recorder struct {
	mu     sync.Mutex
	frames []sim.Frame
	onEmit func(n int)
}

func (r *recorder) Emit(_ context.Context, f sim.Frame) error {
	r.mu.Lock()
	r.frames = append(r.frames, f)
	n := len(r.frames)
	r.mu.Unlock()
	if r.onEmit != nil {
		r.onEmit(n)
	}
	return nil
}

func (r *recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

type countMetric struct{ n int }

func (c *countMetric) Name() string              { return "count" }
func (c *countMetric) Observe(_ *physics.Engine) { c.n++ }
func (c *countMetric) Value() float64            { return float64(c.n) }
func (c *countMetric) Reset()                    { c.n = 0 }

func newEngine(dt, total float64, bodies ...*physics.Body) *physics.Engine {
	p := physics.DefaultParams()
	p.TimeDelta = dt
	p.SimulationTime = total
	e, err := physics.NewEngine(bodies, p)
	Expect(err).NotTo(HaveOccurred())
	return e
}

func body(name string, x, y float64) *physics.Body {
	b, err := physics.NewBody(name, 1, 0.01, []float64{x, y}, []float64{0, 0}, physics.Ordinary)
	Expect(err).NotTo(HaveOccurred())
	return b
}

var _ = Describe("Driver", func() {
	It("emits one frame per step and completes", func() {
		rec := &recorder{}
		metric := &countMetric{}
		d := sim.NewDriver(newEngine(0.1, 1.0, body("a", 1, 0), body("b", -1, -1)), rec,
			sim.WithInterval(0), sim.WithMetric(metric))

		Expect(d.Status()).To(Equal(sim.Idle))
		res, err := d.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Status).To(Equal(sim.Completed))
		Expect(res.StepsTaken).To(Equal(10))
		Expect(rec.Len()).To(Equal(10))
		Expect(d.Status()).To(Equal(sim.Completed))
		Expect(res.Metrics).To(HaveKeyWithValue("count", 10.0))

		for i, f := range rec.frames {
			Expect(f.Step).To(Equal(i))
			Expect(f.Bodies).To(HaveLen(2))
		}
	})

	It("paces frames at the configured interval", func() {
		rec := &recorder{}
		d := sim.NewDriver(newEngine(0.1, 0.5, body("a", 0, 0)), rec, sim.WithInterval(10*time.Millisecond))

		start := time.Now()
		_, err := d.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Len()).To(Equal(5))
		Expect(time.Since(start)).To(BeNumerically(">=", 40*time.Millisecond))
	})

	It("delivers the in-flight frame and nothing after cancellation", func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		rec := &recorder{}
		rec.onEmit = func(n int) {
			if n == 3 {
				cancel()
			}
		}
		d := sim.NewDriver(newEngine(0.1, 1.0, body("a", 0, 0)), rec, sim.WithInterval(0))

		res, err := d.Run(ctx)
		Expect(err).To(MatchError(context.Canceled))
		Expect(res.Status).To(Equal(sim.Cancelled))
		Expect(res.StepsTaken).To(Equal(3))
		Expect(rec.Len()).To(Equal(3))
	})

	It("stops while waiting for the next tick", func() {
		ctx, cancel := context.WithCancel(context.Background())
		rec := &recorder{}
		d := sim.NewDriver(newEngine(1e-5, 10, body("a", 0, 0)), rec, sim.WithInterval(5*time.Millisecond))

		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = d.Run(ctx)
		}()

		Eventually(rec.Len).Should(BeNumerically(">=", 2))
		cancel()
		Eventually(done).Should(BeClosed())
		Expect(d.Status()).To(Equal(sim.Cancelled))

		n := rec.Len()
		Consistently(rec.Len, 30*time.Millisecond).Should(Equal(n))
	})

	It("fails on coincident bodies instead of stalling", func() {
		rec := &recorder{}
		d := sim.NewDriver(newEngine(0.1, 1.0, body("a", 2, 2), body("b", 2, 2)), rec, sim.WithInterval(0))

		res, err := d.Run(context.Background())
		Expect(errors.Is(err, dynamo.ErrDegenerate)).To(BeTrue())
		Expect(res.Status).To(Equal(sim.Failed))
		Expect(rec.Len()).To(Equal(0))
	})

	It("fails when the consumer rejects a frame", func() {
		gone := errors.New("consumer gone")
		emitter := sim.EmitterFunc(func(context.Context, sim.Frame) error { return gone })
		d := sim.NewDriver(newEngine(0.1, 1.0, body("a", 0, 0)), emitter, sim.WithInterval(0))

		res, err := d.Run(context.Background())
		Expect(err).To(MatchError(gone))
		Expect(res.Status).To(Equal(sim.Failed))
		Expect(res.StepsTaken).To(Equal(1))
	})

	It("refuses to run twice", func() {
		d := sim.NewDriver(newEngine(0.1, 0.2, body("a", 0, 0)), nil, sim.WithInterval(0))
		_, err := d.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		_, err = d.Run(context.Background())
		Expect(err).To(MatchError(sim.ErrAlreadyStarted))
		Expect(d.Start()).To(MatchError(sim.ErrAlreadyStarted))
	})

	It("is running after Start and before Run", func() {
		d := sim.NewDriver(newEngine(0.1, 0.2, body("a", 0, 0)), nil, sim.WithInterval(0))
		Expect(d.Start()).To(Succeed())
		Expect(d.Status()).To(Equal(sim.Running))
		Expect(d.Start()).To(MatchError(sim.ErrAlreadyStarted))

		res, err := d.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.StepsTaken).To(Equal(2))
		Expect(d.Status()).To(Equal(sim.Completed))
	})

	It("passes frames to observers after emission", func() {
		var seen []int
		obs := observerFunc(func(f sim.Frame) { seen = append(seen, f.Step) })
		d := sim.NewDriver(newEngine(0.25, 0.75, body("a", 0, 0)), nil, sim.WithInterval(0), sim.WithObserver(obs))
		_, err := d.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(seen).To(Equal([]int{0, 1, 2}))
	})
})

type observerFunc func(sim.Frame)

func (fn observerFunc) OnFrame(f sim.Frame) { fn(f) }

var _ = Describe("Frame", func() {
	It("encodes bodies keyed by positional index", func() {
		f := sim.Frame{Bodies: []physics.BodyState{{X: 1, Y: 2, Radius: 0.5}, {X: -1, Y: 0, Radius: 1}}}
		data, err := json.Marshal(f)
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(MatchJSON(`[{"0":{"x":1,"y":2,"radius":0.5}},{"1":{"x":-1,"y":0,"radius":1}}]`))

		var back sim.Frame
		Expect(json.Unmarshal(data, &back)).To(Succeed())
		Expect(back.Bodies).To(Equal(f.Bodies))
	})

	It("rejects out of range indices", func() {
		var f sim.Frame
		Expect(json.Unmarshal([]byte(`[{"4":{"x":1,"y":2,"radius":0.5}}]`), &f)).NotTo(Succeed())
	})
})

var _ = Describe("Status", func() {
	DescribeTable("terminal states",
		func(s sim.Status, terminal bool) {
			Expect(s.Terminal()).To(Equal(terminal))
		},
		Entry("idle", sim.Idle, false),
		Entry("running", sim.Running, false),
		Entry("completed", sim.Completed, true),
		Entry("cancelled", sim.Cancelled, true),
		Entry("failed", sim.Failed, true),
	)
})
