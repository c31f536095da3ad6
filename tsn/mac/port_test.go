package mac

import (
	"github.com/miamuminovic/nesting/sim/timing"
	"github.com/miamuminovic/nesting/tsn/frame"
	"github.com/miamuminovic/nesting/tsn/tsnerr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type sink struct {
	engine   timing.TimeTeller
	received []*frame.Frame
	at       []timing.VTime
}

func (s *sink) Receive(f *frame.Frame) {
	s.received = append(s.received, f)
	s.at = append(s.at, s.engine.Now())
}

type availability struct {
	count int
}

func (a *availability) TransmitterAvailable(*Port) {
	a.count++
}

var _ = Describe("Port", func() {
	var (
		engine *timing.SerialEngine
		port   *Port
		rx     *sink
		avail  *availability
	)

	BeforeEach(func() {
		engine = timing.NewSerialEngine()
		port = MakeBuilder().
			WithEngine(engine).
			WithTxRate(frame.Gbps).
			WithHoldAdvance(500 * timing.Nanosecond).
			WithPreemption(true).
			Build("Port")

		rx = &sink{engine: engine}
		avail = &availability{}
		port.SetReceiver(rx)
		port.AcceptListener(avail)
	})

	It("should transmit a frame at the link rate", func() {
		f := &frame.Frame{ID: "f", PayloadBytes: 100}

		port.Send(f)
		Expect(port.IsBusy()).To(BeTrue())

		Expect(engine.Run()).To(Succeed())

		// 122 byte frame plus 20 bytes of preamble and gap at 1 bit/ns.
		Expect(rx.at).To(Equal([]timing.VTime{1136 * timing.Nanosecond}))
		Expect(rx.received).To(ConsistOf(f))
		Expect(port.IsBusy()).To(BeFalse())
		Expect(port.NumSent()).To(Equal(uint64(1)))
		Expect(port.NumBitsSent()).To(Equal(uint64(1136)))
		Expect(avail.count).To(Equal(1))
	})

	It("should round transmission times up to the engine resolution", func() {
		fast := MakeBuilder().
			WithEngine(engine).
			WithTxRate(10 * frame.Gbps).
			Build("FastPort")

		Expect(fast.TxTime(&frame.Frame{})).To(Equal(68 * timing.Nanosecond))
	})

	It("should panic when sending while busy", func() {
		port.Send(&frame.Frame{ID: "a"})

		Expect(func() { port.Send(&frame.Frame{ID: "b"}) }).To(PanicWith(
			BeAssignableToTypeOf(&tsnerr.InvariantViolation{})))
	})

	It("should go on hold after the delay", func() {
		port.Hold(2 * timing.Microsecond)
		Expect(port.IsOnHold()).To(BeFalse())

		Expect(engine.RunUntil(2 * timing.Microsecond)).To(Succeed())
		Expect(port.IsOnHold()).To(BeTrue())

		port.Release()
		Expect(port.IsOnHold()).To(BeFalse())
		Expect(avail.count).To(Equal(1))
	})

	It("should replace a pending hold", func() {
		port.Hold(2 * timing.Microsecond)
		port.Hold(5 * timing.Microsecond)

		Expect(engine.RunUntil(4 * timing.Microsecond)).To(Succeed())
		Expect(port.IsOnHold()).To(BeFalse())

		Expect(engine.RunUntil(5 * timing.Microsecond)).To(Succeed())
		Expect(port.IsOnHold()).To(BeTrue())
	})

	It("should drop a pending hold on release", func() {
		port.Hold(2 * timing.Microsecond)
		port.Release()

		Expect(engine.RunUntil(5 * timing.Microsecond)).To(Succeed())
		Expect(port.IsOnHold()).To(BeFalse())
	})

	It("should ignore a release when not on hold", func() {
		port.Release()
		Expect(avail.count).To(Equal(0))
	})

	It("should expose its configuration", func() {
		Expect(port.TxRate()).To(Equal(frame.Gbps))
		Expect(port.HoldAdvance()).To(Equal(500 * timing.Nanosecond))
		Expect(port.PreemptionEnabled()).To(BeTrue())
	})
})
