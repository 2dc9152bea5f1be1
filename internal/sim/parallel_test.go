package sim_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/spacesim/internal/dynamo"
	"github.com/san-kum/spacesim/internal/sim"
)

var _ = Describe("Ensemble", func() {
	It("runs every driver and keeps failures local", func() {
		ok := &recorder{}
		bad := &recorder{}
		other := &recorder{}
		e := sim.NewEnsemble(2,
			sim.NewDriver(newEngine(0.1, 1.0, body("a", 0, 0)), ok, sim.WithInterval(0)),
			sim.NewDriver(newEngine(0.1, 1.0, body("a", 2, 2), body("b", 2, 2)), bad, sim.WithInterval(0)),
			sim.NewDriver(newEngine(0.25, 1.0, body("a", 0, 0)), other, sim.WithInterval(0)),
		)

		results, errs := e.Run(context.Background())
		Expect(results).To(HaveLen(3))
		Expect(errs).To(HaveLen(3))

		Expect(errs[0]).NotTo(HaveOccurred())
		Expect(results[0].StepsTaken).To(Equal(10))

		Expect(errors.Is(errs[1], dynamo.ErrDegenerate)).To(BeTrue())
		Expect(results[1].Status).To(Equal(sim.Failed))

		Expect(errs[2]).NotTo(HaveOccurred())
		Expect(other.Len()).To(Equal(4))
	})

	It("cancels every driver with the shared context", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		e := sim.NewEnsemble(0,
			sim.NewDriver(newEngine(0.1, 1.0, body("a", 0, 0)), nil, sim.WithInterval(0)),
			sim.NewDriver(newEngine(0.1, 1.0, body("a", 0, 0)), nil, sim.WithInterval(0)),
		)
		results, errs := e.Run(ctx)
		for i := range results {
			Expect(errs[i]).To(MatchError(context.Canceled))
			Expect(results[i].Status).To(Equal(sim.Cancelled))
			Expect(results[i].StepsTaken).To(BeZero())
		}
	})
})
