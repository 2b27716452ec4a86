package ticking

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/frameticker/hooking"
	"github.com/sarchlab/frameticker/idgen"
	"github.com/sarchlab/frameticker/listener"
)

var _ = Describe("Ticker", func() {
	var (
		ticker *Ticker[string, int]
		result string
	)

	appendOnCall := func(s string) func(int) {
		return func(int) { result += s }
	}

	BeforeEach(func() {
		result = ""
		ticker = MakeBuilder[string, int]().
			WithPhases("a", "b", "c").
			WithIDGenerator(idgen.NewSequential()).
			Build()
	})

	It("should run phases in order regardless of registration order", func() {
		_, _ = ticker.On("c", appendOnCall("c"))
		_, _ = ticker.On("a", appendOnCall("a"))
		_, _ = ticker.On("b", appendOnCall("b"))

		Expect(ticker.Tick(0)).To(Succeed())

		Expect(result).To(Equal("abc"))
	})

	It("should call listeners of a phase in registration order", func() {
		_, _ = ticker.On("a", appendOnCall("1"))
		_, _ = ticker.On("a", appendOnCall("2"))
		_, _ = ticker.On("a", appendOnCall("3"))

		Expect(ticker.Tick(0)).To(Succeed())

		Expect(result).To(Equal("123"))
	})

	It("should not call listeners on registration", func() {
		_, _ = ticker.On("a", appendOnCall("a"))

		Expect(result).To(BeEmpty())
	})

	It("should ignore listeners of phases not in the list", func() {
		_, _ = ticker.On("z", appendOnCall("z"))
		_, _ = ticker.On("a", appendOnCall("a"))

		Expect(ticker.Tick(0)).To(Succeed())

		Expect(result).To(Equal("a"))
		Expect(ticker.Count("z")).To(Equal(1))
	})

	It("should run repeated phases independently", func() {
		ticker.SetPhases([]string{"b", "a", "a", "b"})
		_, _ = ticker.On("a", appendOnCall("a"))
		_, _ = ticker.On("b", appendOnCall("b"))

		Expect(ticker.Tick(0)).To(Succeed())

		Expect(result).To(Equal("baab"))
	})

	It("should join the phase list when each phase appends its name", func() {
		ticker.SetPhases([]string{"b", "c", "a", "a", "b"})
		for _, phase := range []string{"a", "b", "c"} {
			_, _ = ticker.On(phase, appendOnCall(phase))
		}

		Expect(ticker.Tick(0)).To(Succeed())

		Expect(result).To(Equal("bcaab"))
	})

	It("should reverse the phases from the next tick when a listener swaps them", func() {
		ticker.SetPhases([]string{"a", "b"})
		_, _ = ticker.On("a", appendOnCall("a"))
		_, _ = ticker.On("b", func(int) {
			result += "b"
			ticker.SetPhases([]string{"b", "a"})
		})

		Expect(ticker.Tick(0)).To(Succeed())
		Expect(result).To(Equal("ab"))

		Expect(ticker.Tick(0)).To(Succeed())
		Expect(result).To(Equal("abba"))
		Expect(ticker.Phases()).To(Equal([]string{"b", "a"}))
	})

	It("should pass the argument to every listener", func() {
		var got []int
		for _, phase := range []string{"a", "b", "c"} {
			_, _ = ticker.On(phase, func(v int) { got = append(got, v) })
		}

		Expect(ticker.Tick(10)).To(Succeed())

		Expect(got).To(Equal([]int{10, 10, 10}))
	})

	It("should refuse to tick from a listener", func() {
		var inner error
		_, _ = ticker.On("a", func(v int) {
			inner = ticker.Tick(v)
			result += "a"
		})

		Expect(ticker.Tick(0)).To(Succeed())

		Expect(inner).To(MatchError(ErrReentrantTick))
		Expect(result).To(Equal("a"))
		Expect(ticker.Ticks()).To(Equal(uint64(1)))
	})

	It("should be able to tick again after a listener panics", func() {
		calls := 0
		_, _ = ticker.On("a", func(int) {
			calls++
			if calls == 1 {
				panic("listener failure")
			}
		})

		Expect(func() { _ = ticker.Tick(0) }).To(PanicWith("listener failure"))
		Expect(ticker.Dispatching()).To(BeFalse())

		Expect(ticker.Tick(0)).To(Succeed())
		Expect(calls).To(Equal(2))
	})

	It("should call once listeners only once", func() {
		_, _ = ticker.Once("a", appendOnCall("o"))
		_, _ = ticker.On("a", appendOnCall("a"))

		Expect(ticker.Tick(0)).To(Succeed())
		Expect(ticker.Tick(0)).To(Succeed())

		Expect(result).To(Equal("oaa"))
		Expect(ticker.Count("a")).To(Equal(1))
	})

	It("should call a once listener registered from itself on the next tick", func() {
		var again func(int)
		again = func(int) {
			result += "x"
			_, _ = ticker.OnceWithID("a", "again", again)
		}
		_, _ = ticker.OnceWithID("a", "again", again)

		Expect(ticker.Tick(0)).To(Succeed())
		Expect(result).To(Equal("x"))
		Expect(ticker.Count("a")).To(Equal(1))

		Expect(ticker.Tick(0)).To(Succeed())
		Expect(result).To(Equal("xx"))
	})

	It("should apply a changed phase list from the next tick", func() {
		ticker.SetPhases([]string{"a", "b", "x"})
		_, _ = ticker.On("a", appendOnCall("a"))
		_, _ = ticker.On("b", appendOnCall("b"))
		_, _ = ticker.On("x", func(int) {
			ticker.SetPhases([]string{"b", "a", "x"})
			if len(result) >= 4 {
				ticker.OffAll()
			}
		})

		Expect(ticker.Tick(0)).To(Succeed())
		Expect(ticker.Tick(0)).To(Succeed())
		Expect(ticker.Tick(0)).To(Succeed())

		Expect(result).To(Equal("abba"))
		Expect(ticker.TotalCount()).To(Equal(0))
	})

	It("should capture each phase's listeners right before it runs", func() {
		_, _ = ticker.On("a", func(int) {
			result += "a"
			_, _ = ticker.OnWithID("a", "late-a", appendOnCall("A"))
			_, _ = ticker.OnWithID("b", "late-b", appendOnCall("B"))
		})

		Expect(ticker.Tick(0)).To(Succeed())

		Expect(result).To(Equal("aB"))
	})

	It("should still call listeners removed during the running phase", func() {
		_, _ = ticker.On("a", func(int) {
			result += "1"
			ticker.Off("a", "second")
		})
		_, _ = ticker.OnWithID("a", "second", appendOnCall("2"))

		Expect(ticker.Tick(0)).To(Succeed())
		Expect(ticker.Tick(0)).To(Succeed())

		Expect(result).To(Equal("121"))
	})

	It("should remove listeners by id", func() {
		id, err := ticker.On("a", appendOnCall("a"))
		Expect(err).NotTo(HaveOccurred())
		_, _ = ticker.OnWithID("a", 0, appendOnCall("0"))
		_, _ = ticker.OnWithID("b", "", appendOnCall("e"))

		ticker.Off("a", id)
		ticker.Off("a", 0)
		ticker.Off("b", "")
		ticker.Off("b", "not there")

		Expect(ticker.Tick(0)).To(Succeed())
		Expect(result).To(BeEmpty())
		Expect(ticker.TotalCount()).To(Equal(0))
	})

	It("should remove all listeners of a phase", func() {
		_, _ = ticker.On("a", appendOnCall("a"))
		_, _ = ticker.On("a", appendOnCall("a"))
		_, _ = ticker.On("b", appendOnCall("b"))

		ticker.OffPhase("a")

		Expect(ticker.Count("a")).To(Equal(0))
		Expect(ticker.TotalCount()).To(Equal(1))
	})

	It("should return copies of the phase list", func() {
		phases := ticker.Phases()
		phases[0] = "z"

		Expect(ticker.Phases()).To(Equal([]string{"a", "b", "c"}))
	})

	Context("when ids collide", func() {
		It("should move the listener to the end in append mode", func() {
			_, _ = ticker.OnWithID("a", "foo", appendOnCall("1"))
			_, _ = ticker.On("a", appendOnCall("2"))
			_, _ = ticker.OnWithID("a", "foo", appendOnCall("3"))

			Expect(ticker.Tick(0)).To(Succeed())

			Expect(result).To(Equal("23"))
		})

		It("should keep the position in replace mode", func() {
			ticker.SetDedupeMode(listener.DedupeReplace)
			_, _ = ticker.OnWithID("a", "foo", appendOnCall("1"))
			_, _ = ticker.On("a", appendOnCall("2"))
			_, _ = ticker.OnWithID("a", "foo", appendOnCall("3"))

			Expect(ticker.Tick(0)).To(Succeed())

			Expect(result).To(Equal("32"))
		})

		It("should keep the old listener in ignore mode", func() {
			ticker.SetDedupeMode(listener.DedupeIgnore)
			_, _ = ticker.OnWithID("a", "foo", appendOnCall("1"))
			id, err := ticker.OnWithID("a", "foo", appendOnCall("2"))

			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal("foo"))
			Expect(ticker.Tick(0)).To(Succeed())
			Expect(result).To(Equal("1"))
		})

		It("should pass the registry error through in throw mode", func() {
			ticker.SetDedupeMode(listener.DedupeThrow)
			_, _ = ticker.OnWithID("a", "foo", appendOnCall("1"))
			_, err := ticker.OnWithID("a", "foo", appendOnCall("2"))

			Expect(err).To(MatchError(listener.ErrDuplicateID))
			Expect(ticker.DedupeMode()).To(Equal(listener.DedupeThrow))
		})
	})

	Context("with hooks", func() {
		var (
			mockCtrl *gomock.Controller
			hook     *MockHook
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
			hook = NewMockHook(mockCtrl)
			ticker.AcceptHook(hook)
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should report ticks and the phases that ran", func() {
			var positions []string
			var phases []PhaseInfo
			var args []any
			hook.EXPECT().Func(gomock.Any()).
				Do(func(ctx hooking.HookCtx) {
					positions = append(positions, ctx.Pos.Name)
					args = append(args, ctx.Arg)
					if info, ok := ctx.Item.(PhaseInfo); ok &&
						ctx.Pos == HookPosBeforePhase {
						phases = append(phases, info)
					}
				}).
				Times(6)

			_, _ = ticker.On("a", appendOnCall("a"))
			_, _ = ticker.On("c", appendOnCall("c"))
			_, _ = ticker.On("c", appendOnCall("c"))

			Expect(ticker.Tick(7)).To(Succeed())

			Expect(args).To(HaveLen(6))
			Expect(args).To(HaveEach(BeEquivalentTo(7)))
			Expect(positions).To(Equal([]string{
				"BeforeTick",
				"BeforePhase", "AfterPhase",
				"BeforePhase", "AfterPhase",
				"AfterTick",
			}))
			Expect(phases).To(Equal([]PhaseInfo{
				{Seq: 1, Index: 0, Phase: "a", NumListeners: 1},
				{Seq: 1, Index: 2, Phase: "c", NumListeners: 2},
			}))
		})

		It("should not call hooks for a rejected tick", func() {
			var inner error
			hook.EXPECT().Func(gomock.Any()).Times(4)
			_, _ = ticker.On("a", func(v int) { inner = ticker.Tick(v) })

			Expect(ticker.Tick(0)).To(Succeed())
			Expect(inner).To(MatchError(ErrReentrantTick))
		})
	})
})
