package session_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/spacesim/internal/dynamo"
	"github.com/san-kum/spacesim/internal/physics"
	"github.com/san-kum/spacesim/internal/session"
	"github.com/san-kum/spacesim/internal/sim"
)

type counter struct {
	mu sync.Mutex
	n  int
}

func (c *counter) Emit(context.Context, sim.Frame) error {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
	return nil
}

func (c *counter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

type frameCounter struct{ counter }

func (f *frameCounter) OnFrame(sim.Frame) {
	f.mu.Lock()
	f.n++
	f.mu.Unlock()
}

type finished struct {
	mu      sync.Mutex
	ids     []session.ID
	results []*sim.Result
}

func (f *finished) record(id session.ID, _ *physics.Engine, res *sim.Result, _ error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, id)
	f.results = append(f.results, res)
}

func (f *finished) IDs() []session.ID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]session.ID(nil), f.ids...)
}

func engine(dt, total float64, mt physics.MovementType) *physics.Engine {
	a, err := physics.NewBody("a", 1, 0.01, []float64{0, 0}, []float64{0, 0}, mt)
	Expect(err).NotTo(HaveOccurred())
	b, err := physics.NewBody("b", 1, 0.01, []float64{100, 0}, []float64{0, 0}, physics.Ordinary)
	Expect(err).NotTo(HaveOccurred())

	p := physics.DefaultParams()
	p.TimeDelta = dt
	p.SimulationTime = total
	e, err := physics.NewEngine([]*physics.Body{a, b}, p)
	Expect(err).NotTo(HaveOccurred())
	return e
}

// longEngine runs for far longer than any test waits.
func longEngine(mt physics.MovementType) *physics.Engine {
	return engine(1, 100000, mt)
}

var _ = Describe("Manager", func() {
	var (
		m    *session.Manager
		done *finished
	)

	BeforeEach(func() {
		done = &finished{}
		m = session.NewManager(
			session.WithInterval(time.Millisecond),
			session.WithOnFinish(done.record),
		)
	})

	AfterEach(func() {
		m.Shutdown()
	})

	It("runs a session to completion and unregisters it", func() {
		out := &counter{}
		s, err := m.Create("u1", engine(0.1, 1.0, physics.Ordinary), out)
		Expect(err).NotTo(HaveOccurred())

		res, err := s.Result()
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Status).To(Equal(sim.Completed))
		Expect(out.Len()).To(Equal(10))

		Eventually(m.Len).Should(BeZero())
		Expect(done.IDs()).To(Equal([]session.ID{"u1"}))
	})

	It("stops a live session and waits for its driver", func() {
		out := &counter{}
		s, err := m.Create("u1", longEngine(physics.Ordinary), out)
		Expect(err).NotTo(HaveOccurred())
		Eventually(out.Len).Should(BeNumerically(">", 2))

		m.Stop("u1")

		Expect(s.Done()).To(BeClosed())
		Expect(s.Status()).To(Equal(sim.Cancelled))
		Expect(m.Len()).To(BeZero())

		n := out.Len()
		Consistently(out.Len, 30*time.Millisecond).Should(Equal(n))
	})

	It("treats stopping an unknown session as a no-op", func() {
		Expect(func() { m.Stop("ghost") }).NotTo(Panic())
		m.Stop("ghost")
	})

	It("is running as soon as Create returns", func() {
		s, err := m.Create("u1", longEngine(physics.Ordinary), &counter{})
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Status()).To(Equal(sim.Running))
	})

	It("replaces an existing session with the same id", func() {
		first, err := m.Create("u1", longEngine(physics.Ordinary), &counter{})
		Expect(err).NotTo(HaveOccurred())

		second, err := m.Create("u1", longEngine(physics.Ordinary), &counter{})
		Expect(err).NotTo(HaveOccurred())

		Expect(first.Done()).To(BeClosed())
		Expect(first.Status()).To(Equal(sim.Cancelled))
		Expect(second.Status()).To(Equal(sim.Running))
		Expect(m.Len()).To(Equal(1))

		got, ok := m.Get("u1")
		Expect(ok).To(BeTrue())
		Expect(got).To(BeIdenticalTo(second))
	})

	It("keeps sessions independent", func() {
		_, err := m.Create("u1", longEngine(physics.Ordinary), &counter{})
		Expect(err).NotTo(HaveOccurred())
		other, err := m.Create("u2", longEngine(physics.Ordinary), &counter{})
		Expect(err).NotTo(HaveOccurred())

		m.Stop("u1")

		Expect(other.Status()).To(Equal(sim.Running))
		Expect(m.Len()).To(Equal(1))
	})

	It("forwards control to the session engine", func() {
		e := longEngine(physics.Controllable)
		_, err := m.Create("u1", e, &counter{})
		Expect(err).NotTo(HaveOccurred())

		Expect(m.Control("u1", physics.Right, true)).To(Succeed())
		Eventually(func() dynamo.Vec2 { return e.Pending().Acceleration(1) }).
			Should(Equal(dynamo.Vec2{X: 1}))
	})

	It("reports control errors", func() {
		err := m.Control("ghost", physics.Up, true)
		Expect(errors.Is(err, dynamo.ErrUnknownSession)).To(BeTrue())

		_, err = m.Create("u1", longEngine(physics.Ordinary), &counter{})
		Expect(err).NotTo(HaveOccurred())
		err = m.Control("u1", physics.Up, true)
		Expect(errors.Is(err, dynamo.ErrNoControllable)).To(BeTrue())
	})

	It("fails the session when a step is degenerate", func() {
		a, err := physics.NewBody("a", 1, 0.01, []float64{1, 1}, []float64{0, 0}, physics.Ordinary)
		Expect(err).NotTo(HaveOccurred())
		b, err := physics.NewBody("b", 1, 0.01, []float64{1, 1}, []float64{0, 0}, physics.Ordinary)
		Expect(err).NotTo(HaveOccurred())
		p := physics.DefaultParams()
		p.Collision = physics.Traversing
		p.TimeDelta, p.SimulationTime = 0.1, 1
		e, err := physics.NewEngine([]*physics.Body{a, b}, p)
		Expect(err).NotTo(HaveOccurred())

		s, err := m.Create("u1", e, &counter{})
		Expect(err).NotTo(HaveOccurred())

		res, err := s.Result()
		Expect(errors.Is(err, dynamo.ErrDegenerate)).To(BeTrue())
		Expect(res.Status).To(Equal(sim.Failed))
		Eventually(done.IDs).Should(ContainElement(session.ID("u1")))
	})

	It("applies manager and per-call driver options", func() {
		var built []session.ID
		withOpts := session.NewManager(
			session.WithInterval(0),
			session.WithDriverOptions(func(id session.ID) []sim.Option {
				built = append(built, id)
				return nil
			}),
		)
		defer withOpts.Shutdown()

		obs := &frameCounter{}
		s, err := withOpts.Create("u1", engine(0.1, 1.0, physics.Ordinary), nil, sim.WithObserver(obs))
		Expect(err).NotTo(HaveOccurred())
		_, err = s.Result()
		Expect(err).NotTo(HaveOccurred())

		Expect(built).To(Equal([]session.ID{"u1"}))
		Expect(obs.Len()).To(Equal(10))
	})

	It("enforces the session limit", func() {
		limited := session.NewManager(session.WithLimit(1), session.WithInterval(time.Millisecond))
		defer limited.Shutdown()

		_, err := limited.Create("u1", longEngine(physics.Ordinary), &counter{})
		Expect(err).NotTo(HaveOccurred())
		_, err = limited.Create("u2", longEngine(physics.Ordinary), &counter{})
		Expect(err).To(MatchError(session.ErrTooManySessions))

		By("replacing under the same id does not count twice")
		_, err = limited.Create("u1", longEngine(physics.Ordinary), &counter{})
		Expect(err).NotTo(HaveOccurred())
	})

	It("waits for a live session", func() {
		_, err := m.Create("u1", engine(0.1, 1.0, physics.Ordinary), &counter{})
		Expect(err).NotTo(HaveOccurred())

		res, err := m.Wait("u1")
		if errors.Is(err, dynamo.ErrUnknownSession) {
			Skip("session finished before Wait")
		}
		Expect(err).NotTo(HaveOccurred())
		Expect(res.StepsTaken).To(Equal(10))
	})

	It("shuts down every session and rejects new ones", func() {
		a, err := m.Create("u1", longEngine(physics.Ordinary), &counter{})
		Expect(err).NotTo(HaveOccurred())
		b, err := m.Create("u2", longEngine(physics.Ordinary), &counter{})
		Expect(err).NotTo(HaveOccurred())

		m.Shutdown()

		Expect(a.Done()).To(BeClosed())
		Expect(b.Done()).To(BeClosed())
		Expect(m.Len()).To(BeZero())
		Expect(done.IDs()).To(ConsistOf(session.ID("u1"), session.ID("u2")))

		_, err = m.Create("u3", longEngine(physics.Ordinary), &counter{})
		Expect(err).To(MatchError(session.ErrClosed))
	})
})
