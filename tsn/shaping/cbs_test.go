package shaping

import (
	"github.com/miamuminovic/nesting/sim/hooking"
	"github.com/miamuminovic/nesting/sim/timing"
	"github.com/miamuminovic/nesting/tsn/frame"
	"github.com/miamuminovic/nesting/tsn/gating"
	"github.com/miamuminovic/nesting/tsn/tsnerr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("CreditBasedShaper", func() {
	var (
		engine   *timing.SerialEngine
		q        *Queue
		gate     *gating.Gate
		notifier *countingNotifier
		cbs      *CreditBasedShaper
	)

	BeforeEach(func() {
		engine = timing.NewSerialEngine()
		q = MakeQueueBuilder().WithClock(engine).Build("Queue")
		gate = gating.NewGate(0, false)
		notifier = &countingNotifier{}

		var err error
		cbs, err = MakeCBSBuilder().
			WithEngine(engine).
			WithQueue(q).
			WithGate(gate).
			WithLink(fixedLink{rate: frame.Gbps}).
			WithNotifier(notifier).
			Build("CBS")
		Expect(err).NotTo(HaveOccurred())
	})

	send := func() {
		f := q.Dequeue()
		cbs.Sent(f)
	}

	It("should split the link rate into slopes", func() {
		Expect(cbs.IdleSlope()).To(Equal(500 * frame.Mbps))
		Expect(cbs.SendSlope()).To(Equal(500 * frame.Mbps))
	})

	It("should reject idle slope factors outside (0,1)", func() {
		for _, factor := range []float64{0, 1, 1.5, -0.1} {
			_, err := MakeCBSBuilder().
				WithEngine(engine).
				WithQueue(q).
				WithGate(gate).
				WithLink(fixedLink{rate: frame.Gbps}).
				WithNotifier(notifier).
				WithIdleSlopeFactor(factor).
				Build("Bad")

			Expect(tsnerr.IsKind(err, tsnerr.KindOutOfRange)).To(BeTrue())
		}
	})

	It("should conserve credit over an earn and spend cycle", func() {
		states := []interface{}{}
		cbs.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			states = append(states, ctx.Detail)
		}))

		q.Enqueue(payloadFrame("a", 100))
		Expect(cbs.State()).To(Equal(StateEarnCredit))
		Expect(notifier.count).To(Equal(1))

		Expect(engine.RunUntil(1136 * timing.Nanosecond)).To(Succeed())
		send()
		Expect(cbs.Credit()).To(BeNumerically("==", 0))
		Expect(cbs.State()).To(Equal(StateSpendCredit))

		Expect(engine.Run()).To(Succeed())
		Expect(engine.Now()).To(Equal(2272 * timing.Nanosecond))
		Expect(cbs.Credit()).To(BeNumerically("==", 0))
		Expect(cbs.State()).To(Equal(StateIdle))
		Expect(states).To(Equal([]interface{}{
			StateEarnCredit, StateSpendCredit, StateIdle,
		}))
	})

	Context("when credit is negative after a send", func() {
		BeforeEach(func() {
			q.Enqueue(payloadFrame("a", 100))
			q.Enqueue(payloadFrame("b", 100))
			send()
			Expect(cbs.Credit()).To(BeNumerically("==", -568))
			Expect(engine.RunUntil(1136 * timing.Nanosecond)).To(Succeed())
		})

		It("should hold the queue until credit is back to zero", func() {
			Expect(cbs.State()).To(Equal(StateEarnCredit))
			Expect(notifier.count).To(Equal(2))

			Expect(engine.RunUntil(1500 * timing.Nanosecond)).To(Succeed())
			Expect(cbs.IsEmpty(frame.MaxFrameBits)).To(BeTrue())

			Expect(engine.Run()).To(Succeed())
			Expect(engine.Now()).To(Equal(2272 * timing.Nanosecond))
			Expect(cbs.Credit()).To(BeNumerically("==", 0))
			Expect(cbs.IsEmpty(frame.MaxFrameBits)).To(BeFalse())
			Expect(notifier.count).To(Equal(3))
		})

		It("should refuse to send", func() {
			Expect(func() { cbs.Sent(q.Front()) }).To(
				PanicWith(BeAssignableToTypeOf(&tsnerr.InvariantViolation{})))
		})

		It("should freeze credit while the gate is closed", func() {
			Expect(engine.RunUntil(1500 * timing.Nanosecond)).To(Succeed())
			gate.SetState(false, false)
			Expect(cbs.State()).To(Equal(StateIdle))
			Expect(cbs.Credit()).To(BeNumerically("==", -386))

			Expect(engine.RunUntil(3000 * timing.Nanosecond)).To(Succeed())
			Expect(cbs.Credit()).To(BeNumerically("==", -386))

			gate.SetState(true, false)
			Expect(cbs.State()).To(Equal(StateEarnCredit))

			Expect(engine.Run()).To(Succeed())
			Expect(engine.Now()).To(Equal(3772 * timing.Nanosecond))
			Expect(cbs.Credit()).To(BeNumerically("==", 0))
		})
	})

	It("should not earn while the gate is closed", func() {
		gate.SetState(false, false)
		q.Enqueue(payloadFrame("a", 100))

		Expect(cbs.State()).To(Equal(StateIdle))

		gate.SetState(true, false)
		Expect(cbs.State()).To(Equal(StateEarnCredit))
	})
})
