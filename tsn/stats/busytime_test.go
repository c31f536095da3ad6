package stats

import (
	"strconv"

	"github.com/miamuminovic/nesting/sim/hooking"
	"github.com/miamuminovic/nesting/sim/timing"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gmeasure"
)

type stubTimeTeller struct {
	now timing.VTime
}

func (t *stubTimeTeller) Now() timing.VTime {
	return t.now
}

var _ = Describe("BusyTimeTracer", func() {
	const ns = timing.Nanosecond

	var (
		timeTeller *stubTimeTeller
		t          *BusyTimeTracer
	)

	BeforeEach(func() {
		timeTeller = &stubTimeTeller{}
		t = NewBusyTimeTracer(timeTeller, posA, posB)
	})

	at := func(now timing.VTime, pos *hooking.HookPos, id string) {
		timeTeller.now = now * ns
		t.Func(hooking.HookCtx{Pos: pos, Item: id})
	}

	It("should track one interval", func() {
		at(10, posA, "1")
		at(20, posB, "1")

		Expect(t.BusyTime()).To(Equal(10 * ns))
	})

	It("should add disjoint intervals", func() {
		at(10, posA, "1")
		at(20, posB, "1")
		at(30, posA, "2")
		at(40, posB, "2")

		Expect(t.BusyTime()).To(Equal(20 * ns))
	})

	It("should count overlapping intervals once", func() {
		at(10, posA, "1")
		at(15, posA, "2")
		at(20, posB, "1")
		at(25, posB, "2")

		Expect(t.BusyTime()).To(Equal(15 * ns))
	})

	It("should handle nested and trailing intervals", func() {
		at(10, posA, "1")
		at(11, posA, "2")
		at(12, posB, "2")
		at(19, posA, "3")
		at(20, posB, "1")
		at(21, posB, "3")
		at(31, posA, "4")
		at(32, posB, "4")

		Expect(t.BusyTime()).To(Equal(12 * ns))
	})

	It("should ignore unknown ends and other positions", func() {
		at(10, posB, "1")
		at(12, &hooking.HookPos{Name: "C"}, "1")

		Expect(t.BusyTime()).To(BeZero())
	})

	It("should terminate open intervals", func() {
		at(10, posA, "1")
		at(11, posA, "2")
		at(19, posA, "3")
		at(21, posB, "3")

		timeTeller.now = 35 * ns
		t.TerminateAll()

		Expect(t.BusyTime()).To(Equal(25 * ns))
	})

	It("measure busy time tracer", func() {
		experiment := gmeasure.NewExperiment("Busy Time Tracer Performance")
		AddReportEntry(experiment.Name, experiment)

		experiment.MeasureDuration("runtime", func() {
			for i := 0; i < 10000; i++ {
				id := strconv.Itoa(i)
				at(timing.VTime(2*i), posA, id)
				at(timing.VTime(2*i+1), posB, id)
			}

			Expect(t.BusyTime()).To(Equal(10000 * ns))
		})
	})
})
