package relay

import (
	"github.com/miamuminovic/nesting/sim/hooking"
	"github.com/miamuminovic/nesting/sim/timing"
	"github.com/miamuminovic/nesting/tsn/clock"
	"github.com/miamuminovic/nesting/tsn/frame"
	"github.com/miamuminovic/nesting/tsn/tsnerr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func rulesFor(switchID string, cycle uint64, addr string, port int) *DatabaseDescription {
	return &DatabaseDescription{
		Cycle: &cycle,
		Switches: []SwitchDatabase{{
			ID: switchID,
			Static: &StaticRules{Forward: &ForwardRules{
				Individual: []IndividualAddressRule{
					{MacAddress: &addr, Port: &port},
				},
			}},
		}},
	}
}

var _ = Describe("FilteringDatabase", func() {
	var (
		engine *timing.SerialEngine
		clk    *clock.Base
		hostA  frame.MacAddress
		hostB  frame.MacAddress
	)

	BeforeEach(func() {
		var err error

		engine = timing.NewSerialEngine()
		clk, err = clock.MakeBuilder().
			WithEngine(engine).
			WithRate(timing.Microsecond).
			Build("Clock")
		Expect(err).NotTo(HaveOccurred())

		hostA = frame.MustParseMacAddress("00:00:00:00:00:0a")
		hostB = frame.MustParseMacAddress("00:00:00:00:00:0b")
	})

	Context("with aging", func() {
		var db *FilteringDatabase

		BeforeEach(func() {
			var err error
			db, err = MakeBuilder().
				WithClock(clk).
				WithAging(10 * timing.Microsecond).
				Build("FDB")
			Expect(err).NotTo(HaveOccurred())
		})

		It("should refresh entries on lookup and age them out", func() {
			aged := []interface{}{}
			db.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
				if ctx.Pos == HookPosEntryAged {
					aged = append(aged, ctx.Item)
				}
			}))

			db.Insert(hostA, 2, 0)

			port, ok := db.GetPort(hostA, 9*timing.Microsecond)
			Expect(ok).To(BeTrue())
			Expect(port).To(Equal(2))

			_, ok = db.GetPort(hostA, 18*timing.Microsecond)
			Expect(ok).To(BeTrue())

			_, ok = db.GetPort(hostA, 28*timing.Microsecond)
			Expect(ok).To(BeFalse())
			Expect(db.Len()).To(Equal(0))
			Expect(aged).To(Equal([]interface{}{hostA}))
		})

		It("should age entries learned at time zero", func() {
			db.Insert(hostA, 1, 0)

			_, ok := db.GetPort(hostA, 10*timing.Microsecond)
			Expect(ok).To(BeFalse())
		})

		It("should never age static entries", func() {
			Expect(db.LoadDatabase(rulesFor("", 0, "00:00:00:00:00:0a", 4), 0)).
				To(Succeed())
			Expect(engine.RunUntil(0)).To(Succeed())

			port, ok := db.GetPort(hostA, timing.Second)
			Expect(ok).To(BeTrue())
			Expect(port).To(Equal(4))
		})

		It("should reject a zero threshold", func() {
			_, err := MakeBuilder().
				WithClock(clk).
				WithAging(0).
				Build("FDB")
			Expect(tsnerr.IsKind(err, tsnerr.KindOutOfRange)).To(BeTrue())
		})
	})

	It("should separate individual and group lookups", func() {
		db, err := MakeBuilder().WithClock(clk).Build("FDB")
		Expect(err).NotTo(HaveOccurred())

		group := frame.MustParseMacAddress("01:00:5e:00:00:01")
		db.oper[group] = &entry{ports: []int{1, 2}, static: true}
		db.Insert(hostA, 3, 0)

		_, ok := db.GetPort(group, 0)
		Expect(ok).To(BeFalse())

		_, ok = db.GetPorts(hostA, 0)
		Expect(ok).To(BeFalse())

		ports, ok := db.GetPorts(group, 0)
		Expect(ok).To(BeTrue())
		Expect(ports).To(Equal([]int{1, 2}))

		ports[0] = 9
		Expect(db.Entries()[group]).To(Equal([]int{1, 2}))
	})

	Context("with a cycle", func() {
		var db *FilteringDatabase

		BeforeEach(func() {
			var err error
			db, err = MakeBuilder().
				WithClock(clk).
				WithSwitchID("sw1").
				WithDescription(rulesFor("sw1", 100, "00:00:00:00:00:0a", 1)).
				Build("FDB")
			Expect(err).NotTo(HaveOccurred())
			Expect(engine.RunUntil(0)).To(Succeed())
		})

		It("should make the initial rules operational on the first tick", func() {
			port, ok := db.GetPort(hostA, 0)
			Expect(ok).To(BeTrue())
			Expect(port).To(Equal(1))
			Expect(db.NumPending()).To(Equal(0))
			Expect(db.Cycle()).To(Equal(uint64(100)))
		})

		It("should only swap at the cycle boundary", func() {
			swaps := 0
			db.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
				if ctx.Pos == HookPosDatabaseSwap {
					swaps++
				}
			}))

			Expect(engine.RunUntil(50 * timing.Microsecond)).To(Succeed())
			Expect(db.LoadDatabase(
				rulesFor("sw1", 200, "00:00:00:00:00:0b", 2), 200)).To(Succeed())

			_, ok := db.GetPort(hostB, 50*timing.Microsecond)
			Expect(ok).To(BeFalse())
			Expect(db.NumPending()).To(Equal(1))

			Expect(engine.RunUntil(99 * timing.Microsecond)).To(Succeed())
			_, ok = db.GetPort(hostB, 99*timing.Microsecond)
			Expect(ok).To(BeFalse())

			Expect(engine.RunUntil(100 * timing.Microsecond)).To(Succeed())
			port, ok := db.GetPort(hostB, 100*timing.Microsecond)
			Expect(ok).To(BeTrue())
			Expect(port).To(Equal(2))

			_, ok = db.GetPort(hostA, 100*timing.Microsecond)
			Expect(ok).To(BeFalse())
			Expect(db.NumPending()).To(Equal(0))
			Expect(db.Cycle()).To(Equal(uint64(200)))
			Expect(swaps).To(Equal(1))
		})

		It("should ignore descriptions for other switches", func() {
			Expect(db.LoadDatabase(
				rulesFor("sw2", 100, "00:00:00:00:00:0b", 2), 100)).To(Succeed())
			Expect(db.NumPending()).To(Equal(0))

			Expect(engine.RunUntil(100 * timing.Microsecond)).To(Succeed())
			_, ok := db.GetPort(hostA, 100*timing.Microsecond)
			Expect(ok).To(BeTrue())
		})

		It("should keep the tables on a malformed load", func() {
			err := db.LoadDatabase(
				rulesFor("sw1", 100, "not-an-address", 2), 100)
			Expect(tsnerr.IsKind(err, tsnerr.KindMalformed)).To(BeTrue())
			Expect(db.NumPending()).To(Equal(0))
		})
	})

	It("should wake up for a load after running without a cycle", func() {
		db, err := MakeBuilder().WithClock(clk).WithSwitchID("sw1").Build("FDB")
		Expect(err).NotTo(HaveOccurred())
		Expect(engine.Run()).To(Succeed())
		Expect(clk.NumPendingTicks()).To(Equal(0))

		Expect(db.LoadDatabase(
			rulesFor("sw1", 0, "00:00:00:00:00:0a", 1), 0)).To(Succeed())
		Expect(engine.Run()).To(Succeed())

		_, ok := db.GetPort(hostA, engine.Now())
		Expect(ok).To(BeTrue())
	})
})
