package hooking

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type countingHook struct {
	count int
	last  HookCtx
}

func (h *countingHook) Func(ctx HookCtx) {
	h.count++
	h.last = ctx
}

var _ = Describe("HookableBase", func() {
	var (
		base *HookableBase
		pos  = &HookPos{Name: "Test"}
	)

	BeforeEach(func() {
		base = &HookableBase{}
	})

	It("should invoke every hook", func() {
		h1 := &countingHook{}
		h2 := &countingHook{}
		base.AcceptHook(h1)
		base.AcceptHook(h2)

		base.InvokeHook(HookCtx{Pos: pos, Item: 3})

		Expect(base.NumHooks()).To(Equal(2))
		Expect(h1.count).To(Equal(1))
		Expect(h2.last.Item).To(Equal(3))
	})

	It("should reject a hook registered twice", func() {
		h := &countingHook{}
		base.AcceptHook(h)

		Expect(func() { base.AcceptHook(h) }).To(Panic())
	})

	It("should adapt functions", func() {
		called := false
		base.AcceptHook(HookFunc(func(ctx HookCtx) {
			called = ctx.Pos == pos
		}))

		base.InvokeHook(HookCtx{Pos: pos})

		Expect(called).To(BeTrue())
	})
})

var _ = Describe("PosFilter", func() {
	var (
		a = &HookPos{Name: "A"}
		b = &HookPos{Name: "B"}
	)

	It("should forward selected positions only", func() {
		h := &countingHook{}
		f := NewPosFilter(h, "B")

		f.Func(HookCtx{Pos: a})
		f.Func(HookCtx{Pos: b, Item: 1})

		Expect(h.count).To(Equal(1))
		Expect(h.last.Pos).To(BeIdenticalTo(b))
	})

	It("should forward everything without a selection", func() {
		h := &countingHook{}
		f := NewPosFilter(h)

		f.Func(HookCtx{Pos: a})
		f.Func(HookCtx{Pos: b})

		Expect(h.count).To(Equal(2))
	})
})
