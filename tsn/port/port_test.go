package port

import (
	"github.com/miamuminovic/nesting/sim/hooking"
	"github.com/miamuminovic/nesting/sim/timing"
	"github.com/miamuminovic/nesting/tsn/clock"
	"github.com/miamuminovic/nesting/tsn/frame"
	"github.com/miamuminovic/nesting/tsn/mac"
	"github.com/miamuminovic/nesting/tsn/schedule"
	"github.com/miamuminovic/nesting/tsn/tsnerr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const (
	ns = timing.Nanosecond
	us = timing.Microsecond
)

type txRecord struct {
	at timing.VTime
	id string
}

func tagged(id string, pcp uint8) *frame.Frame {
	return &frame.Frame{
		ID:           id,
		Vlan:         frame.VlanTag{PCP: pcp},
		PayloadBytes: 100,
	}
}

var _ = Describe("EgressPort", func() {
	var (
		engine  *timing.SerialEngine
		clk     *clock.Base
		started []txRecord
	)

	BeforeEach(func() {
		var err error

		engine = timing.NewSerialEngine()
		clk, err = clock.MakeBuilder().
			WithEngine(engine).
			WithRate(us).
			Build("Clock")
		Expect(err).NotTo(HaveOccurred())

		started = nil
	})

	watch := func(p *EgressPort) {
		p.MAC().AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			if ctx.Pos == mac.HookPosTxStart {
				started = append(started, txRecord{
					at: engine.Now(),
					id: ctx.Item.(*frame.Frame).ID,
				})
			}
		}))
	}

	It("should classify frames by priority code point", func() {
		p, err := MakeBuilder().
			WithEngine(engine).
			WithClock(clk).
			Build("Port")
		Expect(err).NotTo(HaveOccurred())

		p.Send(tagged("a", 0))
		p.Send(tagged("b", 1))
		p.Send(tagged("c", 7))

		Expect(p.NumQueues()).To(Equal(8))
		Expect(p.Queue(1).Len()).To(Equal(1))
		Expect(p.Queue(0).Len()).To(Equal(1))
		Expect(p.Queue(7).Len()).To(Equal(1))
	})

	It("should hold frames behind closed gates", func() {
		desc, err := schedule.ReadDescription("", []byte(`
cycle: 100
switches:
  - name: Switch
    ports:
      - id: 1
        entries:
          - {length: 50, bitvector: "10"}
          - {length: 50, bitvector: "01"}
`))
		Expect(err).NotTo(HaveOccurred())

		p, err := MakeBuilder().
			WithEngine(engine).
			WithClock(clk).
			WithQueues(DefaultQueues(2)...).
			WithIdentity("Switch", 1).
			WithDescription(desc).
			Build("Port")
		Expect(err).NotTo(HaveOccurred())
		watch(p)

		p.Send(tagged("high", 5))
		p.Send(tagged("low", 0))

		Expect(engine.RunUntil(99 * us)).To(Succeed())

		Expect(started).To(Equal([]txRecord{
			{at: 0, id: "low"},
			{at: 50 * us, id: "high"},
		}))
		Expect(p.MAC().NumSent()).To(Equal(uint64(2)))
	})

	It("should release a hold when the empty schedule takes over", func() {
		desc, err := schedule.ReadDescription("", []byte(`
cycle: 100
switches:
  - name: Switch
    ports:
      - id: 1
        entries:
          - {length: 50, bitvector: "01"}
          - {length: 50, bitvector: "10"}
`))
		Expect(err).NotTo(HaveOccurred())

		queues := DefaultQueues(2)
		queues[1].Express = true

		p, err := MakeBuilder().
			WithEngine(engine).
			WithClock(clk).
			WithQueues(queues...).
			WithPreemption(true, 2*us).
			WithHoldAndRelease(true).
			WithIdentity("Switch", 1).
			WithDescription(desc).
			Build("Port")
		Expect(err).NotTo(HaveOccurred())
		watch(p)

		Expect(engine.RunUntil(60 * us)).To(Succeed())
		p.Controller().LoadSchedule(schedule.EmptySchedule())

		Expect(engine.RunUntil(110 * us)).To(Succeed())
		Expect(p.Controller().CurrentSchedule().IsEmpty()).To(BeTrue())
		Expect(p.MAC().IsOnHold()).To(BeFalse())

		p.Send(tagged("low", 0))
		Expect(engine.RunUntil(120 * us)).To(Succeed())

		Expect(started).To(Equal([]txRecord{{at: 110 * us, id: "low"}}))
		Expect(p.MAC().NumSent()).To(Equal(uint64(1)))
	})

	It("should pace a credit based queue", func() {
		p, err := MakeBuilder().
			WithEngine(engine).
			WithClock(clk).
			WithQueues(QueueConfig{
				Shaper:          CreditBased,
				IdleSlopeFactor: 0.5,
			}).
			Build("Port")
		Expect(err).NotTo(HaveOccurred())
		watch(p)

		p.Send(tagged("a", 3))
		p.Send(tagged("b", 3))
		p.Send(tagged("c", 3))

		Expect(engine.Run()).To(Succeed())

		Expect(started).To(Equal([]txRecord{
			{at: 0, id: "a"},
			{at: 2272 * ns, id: "b"},
			{at: 4544 * ns, id: "c"},
		}))
	})

	It("should report configuration errors", func() {
		_, err := MakeBuilder().
			WithEngine(engine).
			WithClock(clk).
			WithQueues().
			Build("Port")
		Expect(tsnerr.IsKind(err, tsnerr.KindOutOfRange)).To(BeTrue())

		_, err = MakeBuilder().
			WithEngine(engine).
			WithClock(clk).
			WithQueues(QueueConfig{Shaper: "fancy"}).
			Build("Port")
		Expect(tsnerr.IsKind(err, tsnerr.KindUnsupported)).To(BeTrue())

		_, err = MakeBuilder().
			WithEngine(engine).
			WithClock(clk).
			WithQueues(QueueConfig{Shaper: CreditBased, IdleSlopeFactor: 2}).
			Build("Port")
		Expect(tsnerr.IsKind(err, tsnerr.KindOutOfRange)).To(BeTrue())
	})
})
