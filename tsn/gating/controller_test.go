package gating

import (
	"github.com/miamuminovic/nesting/sim/hooking"
	"github.com/miamuminovic/nesting/sim/timing"
	"github.com/miamuminovic/nesting/tsn/clock"
	"github.com/miamuminovic/nesting/tsn/frame"
	"github.com/miamuminovic/nesting/tsn/schedule"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

type bv = schedule.GateBitvector

type appliedEntry struct {
	at      timing.VTime
	vector  bv
	release bool
}

type changeRecorder struct {
	engine  timing.TimeTeller
	applied []appliedEntry
	swaps   []timing.VTime
	details []SwapDetail
}

func (r *changeRecorder) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case HookPosGateStateChange:
		r.applied = append(r.applied, appliedEntry{
			at:      r.engine.Now(),
			vector:  ctx.Item.(bv),
			release: ctx.Detail.(bool),
		})
	case HookPosScheduleSwap:
		r.swaps = append(r.swaps, r.engine.Now())
		r.details = append(r.details, ctx.Detail.(SwapDetail))
	}
}

func gateSched(entries ...schedule.Entry[bv]) *schedule.Schedule[bv] {
	return schedule.New(entries...)
}

func entry(length uint64, s string) schedule.Entry[bv] {
	v, err := schedule.ParseGateBitvector(s)
	Expect(err).NotTo(HaveOccurred())

	return schedule.Entry[bv]{Length: length, Object: v}
}

const us = timing.Microsecond

var _ = Describe("Controller", func() {
	var (
		mockCtrl *gomock.Controller
		port     *MockPreemptionPort
		engine   *timing.SerialEngine
		clk      *clock.Base
		recorder *changeRecorder
	)

	BeforeEach(func() {
		var err error

		mockCtrl = gomock.NewController(GinkgoT())
		port = NewMockPreemptionPort(mockCtrl)
		port.EXPECT().TxRate().Return(frame.Gbps).AnyTimes()
		port.EXPECT().HoldAdvance().Return(2 * us).AnyTimes()

		engine = timing.NewSerialEngine()
		clk, err = clock.MakeBuilder().
			WithEngine(engine).
			WithRate(us).
			Build("Clock")
		Expect(err).NotTo(HaveOccurred())

		recorder = &changeRecorder{engine: engine}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	build := func(
		s *schedule.Schedule[bv],
		holdAndRelease bool,
		gates ...*Gate,
	) *Controller {
		c, err := MakeBuilder().
			WithClock(clk).
			WithPort(port).
			WithGates(gates...).
			WithHoldAndRelease(holdAndRelease).
			WithSchedule(s).
			Build("GateController")
		Expect(err).NotTo(HaveOccurred())

		c.AcceptHook(recorder)

		return c
	}

	Context("without hold and release", func() {
		BeforeEach(func() {
			port.EXPECT().PreemptionEnabled().Return(false).AnyTimes()
		})

		It("should alternate an open and a closed entry", func() {
			gate := NewGate(0, false)
			c := build(gateSched(entry(50, "1"), entry(50, "0")), false, gate)

			Expect(engine.RunUntil(0)).To(Succeed())
			Expect(gate.IsOpen()).To(BeTrue())
			Expect(c.ScheduleIndex()).To(Equal(1))

			Expect(engine.RunUntil(50 * us)).To(Succeed())
			Expect(gate.IsOpen()).To(BeFalse())
			Expect(c.ScheduleIndex()).To(Equal(0))

			Expect(engine.RunUntil(100 * us)).To(Succeed())
			Expect(gate.IsOpen()).To(BeTrue())

			Expect(recorder.applied).To(Equal([]appliedEntry{
				{at: 0, vector: 0b1},
				{at: 50 * us, vector: 0},
				{at: 100 * us, vector: 0b1},
			}))
		})

		It("should notify gate listeners on changes only", func() {
			gate := NewGate(0, false)
			listener := NewMockGateListener(mockCtrl)
			gate.AcceptListener(listener)

			listener.EXPECT().GateStateChanged(gate).Times(2)

			build(gateSched(entry(50, "1"), entry(50, "0")), false, gate)

			Expect(engine.RunUntil(100 * us)).To(Succeed())
		})

		It("should give the full budget when the gate never closes", func() {
			c := build(gateSched(entry(100, "1")), false,
				NewGate(0, false), NewGate(1, false))

			Expect(engine.RunUntil(30 * us)).To(Succeed())
			Expect(c.CalculateMaxBit(0)).To(Equal(uint64(frame.MaxFrameBits)))
			Expect(c.CalculateMaxBit(1)).To(Equal(uint64(0)))

			Expect(engine.RunUntil(99 * us)).To(Succeed())
			Expect(c.CalculateMaxBit(0)).To(Equal(uint64(frame.MaxFrameBits)))
		})

		It("should stop the budget at the next closure", func() {
			c := build(gateSched(entry(50, "1"), entry(50, "0")), false,
				NewGate(0, false))

			Expect(engine.RunUntil(45 * us)).To(Succeed())
			Expect(c.CalculateMaxBit(0)).To(Equal(uint64(5000)))

			Expect(engine.RunUntil(60 * us)).To(Succeed())
			Expect(c.CalculateMaxBit(0)).To(Equal(uint64(0)))
		})

		It("should look into the pending schedule", func() {
			c := build(gateSched(entry(50, "0"), entry(50, "1")), false,
				NewGate(0, false))

			Expect(engine.RunUntil(90 * us)).To(Succeed())
			Expect(c.CalculateMaxBit(0)).To(Equal(uint64(10000)))

			c.LoadSchedule(gateSched(entry(100, "1")))
			Expect(c.CalculateMaxBit(0)).To(Equal(uint64(frame.MaxFrameBits)))
		})

		It("should not loop on zero length entries", func() {
			c := build(gateSched(entry(100, "1")), false, NewGate(0, false))

			c.current = gateSched(entry(0, "1"), entry(0, "1"))
			c.next = nil
			c.index = 1
			Expect(c.CalculateMaxBit(0)).To(Equal(uint64(frame.MaxFrameBits)))
		})

		It("should swap schedules only at the cycle boundary", func() {
			gate := NewGate(0, false)
			c := build(gateSched(entry(30, "1"), entry(70, "0")), false, gate)

			Expect(engine.RunUntil(10 * us)).To(Succeed())
			next := gateSched(entry(50, "0"), entry(50, "1"))
			c.LoadSchedule(next)

			Expect(engine.RunUntil(99 * us)).To(Succeed())
			Expect(c.NextSchedule()).To(BeIdenticalTo(next))
			Expect(c.CurrentSchedule()).NotTo(BeIdenticalTo(next))

			Expect(engine.RunUntil(200 * us)).To(Succeed())
			Expect(c.CurrentSchedule()).To(BeIdenticalTo(next))
			Expect(c.NextSchedule()).To(BeNil())

			Expect(recorder.swaps).To(Equal([]timing.VTime{0, 100 * us}))
			Expect(recorder.applied).To(Equal([]appliedEntry{
				{at: 0, vector: 0b1},
				{at: 30 * us, vector: 0},
				{at: 100 * us, vector: 0},
				{at: 150 * us, vector: 0b1},
				{at: 200 * us, vector: 0},
			}))
		})

		It("should open all gates on the empty schedule and stop ticking", func() {
			g0 := NewGate(0, false)
			g1 := NewGate(1, false)
			g1.SetState(false, false)

			c := build(schedule.EmptySchedule(), false, g0, g1)

			Expect(engine.RunUntil(10 * us)).To(Succeed())
			Expect(g1.IsOpen()).To(BeTrue())
			Expect(clk.NumPendingTicks()).To(Equal(0))
			Expect(c.CalculateMaxBit(1)).To(Equal(uint64(frame.MaxFrameBits)))

			c.LoadSchedule(gateSched(entry(20, "01")))
			Expect(engine.RunUntil(10 * us)).To(Succeed())
			Expect(g0.IsOpen()).To(BeFalse())
			Expect(g1.IsOpen()).To(BeTrue())
		})

		It("should load the default schedule for unknown ports", func() {
			cycle := uint64(100)
			desc := &schedule.Description{Cycle: &cycle}
			gate := NewGate(3, false)

			c, err := MakeBuilder().
				WithClock(clk).
				WithPort(port).
				WithGates(gate).
				WithIdentity("Switch0", 1).
				WithDescription(desc).
				Build("GateController")
			Expect(err).NotTo(HaveOccurred())

			Expect(engine.RunUntil(0)).To(Succeed())
			Expect(c.CurrentSchedule().Size()).To(Equal(1))
			Expect(c.CurrentSchedule().ScheduledObject(0)).
				To(Equal(schedule.AllOpen))
		})
	})

	Context("with hold and release", func() {
		It("should hold before express windows and release after", func() {
			express := NewGate(0, true)
			normal := NewGate(1, false)

			port.EXPECT().PreemptionEnabled().Return(false).AnyTimes()
			port.EXPECT().Hold(38 * us).Times(2)
			port.EXPECT().IsOnHold().Return(false)
			port.EXPECT().IsOnHold().Return(true)
			port.EXPECT().Release().Times(1)

			build(gateSched(entry(40, "01"), entry(60, "10")), true,
				express, normal)

			Expect(engine.RunUntil(100 * us)).To(Succeed())
			Expect(recorder.applied[2]).To(Equal(
				appliedEntry{at: 100 * us, vector: 0b10, release: true}))
		})

		It("should hold at once when the first entry is express", func() {
			port.EXPECT().PreemptionEnabled().Return(false).AnyTimes()
			port.EXPECT().Hold(timing.VTime(0))
			port.EXPECT().Hold(98 * us)

			build(gateSched(entry(100, "1")), true, NewGate(0, true))

			Expect(engine.RunUntil(0)).To(Succeed())
		})

		It("should release when swapping to the empty schedule", func() {
			port.EXPECT().PreemptionEnabled().Return(false).AnyTimes()
			port.EXPECT().Hold(timing.VTime(0))
			port.EXPECT().IsOnHold().Return(true)
			port.EXPECT().Hold(48 * us)
			port.EXPECT().Release().Times(2)

			normal := NewGate(0, false)
			c := build(gateSched(entry(50, "01"), entry(50, "10")), true,
				normal, NewGate(1, true))

			Expect(engine.RunUntil(60 * us)).To(Succeed())
			c.LoadSchedule(schedule.EmptySchedule())
			Expect(engine.RunUntil(200 * us)).To(Succeed())

			Expect(normal.IsOpen()).To(BeTrue())
			Expect(clk.NumPendingTicks()).To(Equal(0))
			Expect(recorder.applied[len(recorder.applied)-1]).To(Equal(
				appliedEntry{at: 100 * us, vector: schedule.AllOpen,
					release: true}))
		})

		It("should not plan a hold into the empty schedule", func() {
			port.EXPECT().PreemptionEnabled().Return(false).AnyTimes()
			port.EXPECT().Hold(timing.VTime(0))
			port.EXPECT().IsOnHold().Return(true)
			port.EXPECT().Release().Times(2)

			c := build(gateSched(entry(50, "01"), entry(50, "10")), true,
				NewGate(0, false), NewGate(1, true))

			Expect(engine.RunUntil(20 * us)).To(Succeed())
			c.LoadSchedule(schedule.EmptySchedule())
			Expect(engine.RunUntil(200 * us)).To(Succeed())

			Expect(c.CurrentSchedule().IsEmpty()).To(BeTrue())
		})

		It("should flag swaps that may break hold periods", func() {
			port.EXPECT().PreemptionEnabled().Return(true).AnyTimes()
			port.EXPECT().IsOnHold().Return(false).AnyTimes()

			build(gateSched(entry(100, "01")), true,
				NewGate(0, true), NewGate(1, false))

			Expect(engine.RunUntil(0)).To(Succeed())
			Expect(recorder.details).To(Equal(
				[]SwapDetail{{HoldConflict: true}}))
		})
	})
})

var _ = Describe("Builder", func() {
	It("should panic on duplicated gates", func() {
		mockCtrl := gomock.NewController(GinkgoT())
		engine := timing.NewSerialEngine()
		clk, _ := clock.MakeBuilder().WithEngine(engine).Build("Clock")

		Expect(func() {
			_, _ = MakeBuilder().
				WithClock(clk).
				WithPort(NewMockPreemptionPort(mockCtrl)).
				WithGates(NewGate(0, false), NewGate(0, false)).
				Build("GateController")
		}).To(Panic())
	})

	It("should panic without a port", func() {
		engine := timing.NewSerialEngine()
		clk, _ := clock.MakeBuilder().WithEngine(engine).Build("Clock")

		Expect(func() {
			_, _ = MakeBuilder().WithClock(clk).Build("GateController")
		}).To(Panic())
	})
})
