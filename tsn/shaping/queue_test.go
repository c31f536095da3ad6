package shaping

import (
	"github.com/miamuminovic/nesting/sim/hooking"
	"github.com/miamuminovic/nesting/sim/timing"
	"github.com/miamuminovic/nesting/tsn/frame"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Queue", func() {
	var (
		engine *timing.SerialEngine
		q      *Queue
	)

	BeforeEach(func() {
		engine = timing.NewSerialEngine()
		q = MakeQueueBuilder().
			WithClock(engine).
			WithCapacityBits(1500).
			Build("Queue")
	})

	It("should drop frames that do not fit", func() {
		dropped := []interface{}{}
		q.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			if ctx.Pos == HookPosFrameDropped {
				dropped = append(dropped, ctx.Item)
			}
		}))

		a := payloadFrame("a", 100)
		b := payloadFrame("b", 100)
		q.Enqueue(a)
		q.Enqueue(b)

		Expect(q.Len()).To(Equal(1))
		Expect(q.NumReceived()).To(Equal(uint64(2)))
		Expect(q.NumEnqueued()).To(Equal(uint64(1)))
		Expect(q.NumDropped()).To(Equal(uint64(1)))
		Expect(dropped).To(ConsistOf(b))
		Expect(q.AvailableBits()).To(Equal(uint64(1500 - 976)))
	})

	It("should free capacity on dequeue", func() {
		q.Enqueue(payloadFrame("a", 100))
		Expect(q.Dequeue().ID).To(Equal("a"))
		Expect(q.AvailableBits()).To(Equal(uint64(1500)))
		Expect(q.Dequeue()).To(BeNil())
	})

	It("should compare the head frame with the budget", func() {
		Expect(q.IsEmpty(frame.MaxFrameBits)).To(BeTrue())

		q.Enqueue(payloadFrame("a", 100))

		Expect(q.IsEmpty(1039)).To(BeTrue())
		Expect(q.IsEmpty(1040)).To(BeFalse())
	})

	It("should report the queueing time on dequeue", func() {
		var waited interface{}
		q.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			if ctx.Pos == HookPosFrameDequeued {
				waited = ctx.Detail
			}
		}))

		q.Enqueue(payloadFrame("a", 10))
		Expect(engine.RunUntil(3 * timing.Microsecond)).To(Succeed())
		q.Dequeue()

		Expect(waited).To(Equal(3 * timing.Microsecond))
	})

	It("should tell the algorithm about arrivals", func() {
		n := &countingNotifier{}
		NewStrictPriority(q, n)

		q.Enqueue(payloadFrame("a", 10))

		Expect(n.count).To(Equal(1))
	})
})

var _ = Describe("TrafficClass", func() {
	It("should follow the standard mapping", func() {
		cases := []struct {
			queues int
			pcp    uint8
			want   int
		}{
			{8, 0, 1}, {8, 1, 0}, {8, 7, 7},
			{1, 7, 0}, {2, 4, 1}, {3, 7, 2}, {6, 0, 1},
		}

		for _, c := range cases {
			tc, err := TrafficClass(c.queues, c.pcp)
			Expect(err).NotTo(HaveOccurred())
			Expect(tc).To(Equal(c.want))
		}
	})

	It("should reject bad inputs", func() {
		_, err := TrafficClass(0, 1)
		Expect(err).To(HaveOccurred())

		_, err = TrafficClass(9, 1)
		Expect(err).To(HaveOccurred())

		_, err = TrafficClass(8, 8)
		Expect(err).To(HaveOccurred())
	})
})
