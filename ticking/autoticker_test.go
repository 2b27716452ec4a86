package ticking

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/frameticker/frame"
	"github.com/sarchlab/frameticker/hooking"
)

var _ = Describe("AutoTicker", func() {
	var (
		source *frame.ManualSource[int]
		result string
	)

	appendOnCall := func(s string) func(int) {
		return func(int) { result += s }
	}

	build := func(b Builder[string, int]) *AutoTicker[string, int] {
		at, err := b.WithPhases("a", "b").WithSource(source).BuildAuto()
		Expect(err).NotTo(HaveOccurred())

		return at
	}

	BeforeEach(func() {
		result = ""
		source = frame.NewManualSource[int]()
	})

	It("should request the first frame when built", func() {
		at := build(MakeBuilder[string, int]())

		Expect(at.Pending()).To(BeTrue())
		Expect(source.Requests()).To(Equal(1))
		Expect(at.Status().Empty).To(BeTrue())
	})

	It("should keep requesting frames in continuous mode", func() {
		at := build(MakeBuilder[string, int]())
		_, _ = at.On("a", appendOnCall("a"))

		Expect(source.Fire(1)).To(Succeed())
		Expect(source.Fire(2)).To(Succeed())

		Expect(result).To(Equal("aa"))
		Expect(at.Pending()).To(BeTrue())
		Expect(source.Requests()).To(Equal(3))
	})

	It("should pass the frame argument to listeners", func() {
		at := build(MakeBuilder[string, int]())
		var got []int
		_, _ = at.On("b", func(v int) { got = append(got, v) })

		Expect(source.Fire(16)).To(Succeed())
		Expect(source.Fire(33)).To(Succeed())

		Expect(got).To(Equal([]int{16, 33}))
	})

	It("should not request frames when built paused", func() {
		at := build(MakeBuilder[string, int]().WithPaused(true))
		_, _ = at.On("a", appendOnCall("a"))

		Expect(at.Pending()).To(BeFalse())
		Expect(source.Requests()).To(Equal(0))

		Expect(at.SetPaused(false)).To(Succeed())
		Expect(at.Paused()).To(BeFalse())
		Expect(at.Pending()).To(BeTrue())
	})

	It("should cancel the pending frame when paused", func() {
		at := build(MakeBuilder[string, int]())
		_, _ = at.On("a", appendOnCall("a"))

		Expect(at.SetPaused(true)).To(Succeed())

		Expect(at.Pending()).To(BeFalse())
		Expect(source.Cancels()).To(Equal(1))
		Expect(source.Fire(1)).To(MatchError(frame.ErrNothingPending))
		Expect(result).To(BeEmpty())

		Expect(at.SetPaused(false)).To(Succeed())
		Expect(source.Fire(1)).To(Succeed())
		Expect(result).To(Equal("a"))
	})

	It("should still dispatch manual ticks while paused", func() {
		at := build(MakeBuilder[string, int]().WithPaused(true))
		_, _ = at.On("a", appendOnCall("a"))

		Expect(at.Tick(0)).To(Succeed())

		Expect(result).To(Equal("a"))
		Expect(at.Pending()).To(BeFalse())
	})

	Context("in on-demand mode", func() {
		var at *AutoTicker[string, int]

		BeforeEach(func() {
			at = build(MakeBuilder[string, int]().WithOnDemand(true))
		})

		It("should not request a frame until a listener is added", func() {
			Expect(at.OnDemand()).To(BeTrue())
			Expect(at.Pending()).To(BeFalse())

			_, _ = at.On("a", appendOnCall("a"))

			Expect(at.Pending()).To(BeTrue())
		})

		It("should stop requesting after a frame with no work", func() {
			id, _ := at.On("a", appendOnCall("a"))

			Expect(source.Fire(1)).To(Succeed())
			Expect(at.Pending()).To(BeTrue())

			at.Off("a", id)
			Expect(source.Fire(2)).To(Succeed())

			Expect(result).To(Equal("a"))
			Expect(at.Pending()).To(BeFalse())
			Expect(at.Status().Empty).To(BeTrue())
			Expect(source.Requests()).To(Equal(2))
		})

		It("should go quiet after a once listener ran", func() {
			_, _ = at.Once("a", appendOnCall("o"))

			Expect(source.Fire(1)).To(Succeed())
			Expect(source.Fire(2)).To(Succeed())

			Expect(result).To(Equal("o"))
			Expect(at.Pending()).To(BeFalse())
		})

		It("should request again when leaving on-demand mode", func() {
			Expect(at.SetOnDemand(false)).To(Succeed())

			Expect(at.OnDemand()).To(BeFalse())
			Expect(at.Pending()).To(BeTrue())
		})
	})

	It("should keep an outstanding request across a manual tick", func() {
		at := build(MakeBuilder[string, int]())
		_, _ = at.On("a", appendOnCall("a"))

		Expect(at.Tick(0)).To(Succeed())

		Expect(result).To(Equal("a"))
		Expect(at.Pending()).To(BeTrue())
		Expect(source.Requests()).To(Equal(1))

		Expect(source.Fire(1)).To(Succeed())
		Expect(result).To(Equal("aa"))
		Expect(source.Requests()).To(Equal(2))
	})

	It("should refuse to tick from a listener", func() {
		at := build(MakeBuilder[string, int]())
		var inner error
		_, _ = at.On("a", func(v int) { inner = at.Tick(v) })

		Expect(source.Fire(1)).To(Succeed())

		Expect(inner).To(MatchError(ErrReentrantTick))
		Expect(at.Pending()).To(BeTrue())
	})

	It("should go idle on an empty phase list and wake on a new one", func() {
		at := build(MakeBuilder[string, int]().WithOnDemand(true))
		_, _ = at.On("a", appendOnCall("a"))
		Expect(source.Fire(1)).To(Succeed())

		Expect(at.SetPhases(nil)).To(Succeed())
		Expect(source.Fire(2)).To(Succeed())
		Expect(at.Pending()).To(BeFalse())
		Expect(at.Status().Empty).To(BeTrue())

		Expect(at.SetPhases([]string{"a"})).To(Succeed())
		Expect(at.Pending()).To(BeTrue())
		Expect(source.Fire(3)).To(Succeed())

		Expect(result).To(Equal("aa"))
	})

	Context("when the source changes", func() {
		It("should move the pending request to the new source", func() {
			at := build(MakeBuilder[string, int]())
			other := frame.NewManualSource[int]()

			Expect(at.SetSource(other)).To(Succeed())

			Expect(at.Source()).To(BeIdenticalTo(other))
			Expect(source.Cancels()).To(Equal(1))
			Expect(source.Pending()).To(BeFalse())
			Expect(other.Pending()).To(BeTrue())
		})

		It("should not request when nothing was pending", func() {
			at := build(MakeBuilder[string, int]().WithPaused(true))
			other := frame.NewManualSource[int]()

			Expect(at.SetSource(other)).To(Succeed())

			Expect(other.Requests()).To(Equal(0))
		})

		It("should do nothing when the source is the same", func() {
			at := build(MakeBuilder[string, int]())

			Expect(at.SetSource(source)).To(Succeed())

			Expect(source.Cancels()).To(Equal(0))
			Expect(source.Requests()).To(Equal(1))
		})

		It("should reject a nil source", func() {
			at := build(MakeBuilder[string, int]())

			Expect(at.SetSource(nil)).To(MatchError(ErrNoFrameSource))
		})
	})

	Context("when the source fails", func() {
		boom := errors.New("boom")

		It("should fail the build", func() {
			source.FailWith(boom)

			_, err := MakeBuilder[string, int]().
				WithSource(source).
				BuildAuto()

			Expect(err).To(MatchError(boom))
		})

		It("should return the error from registration but keep the listener",
			func() {
				at := build(MakeBuilder[string, int]().WithPaused(true))
				source.FailWith(boom)
				Expect(at.SetPaused(false)).To(MatchError(boom))

				_, err := at.On("a", appendOnCall("a"))

				Expect(err).To(MatchError(boom))
				Expect(at.Count("a")).To(Equal(1))
			})

		It("should return the error from the frame", func() {
			at := build(MakeBuilder[string, int]())
			_, _ = at.On("a", appendOnCall("a"))
			source.FailWith(boom)

			Expect(source.Fire(1)).To(MatchError(boom))
			Expect(at.Pending()).To(BeFalse())
			Expect(at.Dispatching()).To(BeFalse())
		})
	})

	It("should remove listeners and cancel the frame on close", func() {
		at := build(MakeBuilder[string, int]())
		_, _ = at.On("a", appendOnCall("a"))

		Expect(at.Close()).To(Succeed())

		Expect(at.TotalCount()).To(Equal(0))
		Expect(at.Pending()).To(BeFalse())
		Expect(source.Cancels()).To(Equal(1))
	})

	It("should report its status", func() {
		at := build(MakeBuilder[string, int]().WithOnDemand(true))
		_, _ = at.On("a", appendOnCall("a"))
		_, _ = at.On("b", appendOnCall("b"))
		Expect(source.Fire(1)).To(Succeed())

		Expect(at.Status()).To(Equal(Status{
			OnDemand:  true,
			Pending:   true,
			Ticks:     1,
			Phases:    2,
			Listeners: 2,
		}))
	})

	It("should report frame requests and cancellations to hooks", func() {
		mockCtrl := gomock.NewController(GinkgoT())
		defer mockCtrl.Finish()

		at := build(MakeBuilder[string, int]().WithPaused(true))
		hook := NewMockHook(mockCtrl)
		at.AcceptHook(hook)

		var positions []*hooking.HookPos
		hook.EXPECT().Func(gomock.Any()).
			Do(func(ctx hooking.HookCtx) {
				positions = append(positions, ctx.Pos)
			}).
			Times(2)

		Expect(at.SetPaused(false)).To(Succeed())
		Expect(at.SetPaused(true)).To(Succeed())

		Expect(positions).To(Equal([]*hooking.HookPos{
			HookPosFrameRequested,
			HookPosFrameCancelled,
		}))
	})

	Context("without an explicit source", func() {
		It("should fail without a dispatcher", func() {
			_, err := MakeBuilder[string, int]().BuildAuto()

			Expect(err).To(MatchError(ErrNoFrameSource))
		})

		It("should fail when the argument is not a frame time", func() {
			_, err := MakeBuilder[string, int]().
				WithDispatcher(frame.NewLoop()).
				BuildAuto()

			Expect(err).To(MatchError(ErrNoFrameSource))
		})

		It("should fall back to a timer source", func() {
			at, err := MakeBuilder[string, time.Duration]().
				WithDispatcher(frame.NewLoop()).
				WithFallbackFreq(30 * frame.Hz).
				WithPaused(true).
				BuildAuto()
			Expect(err).NotTo(HaveOccurred())

			timer, ok := at.Source().(*frame.TimerSource)
			Expect(ok).To(BeTrue())
			Expect(timer.Freq()).To(Equal(30 * frame.Hz))
		})
	})
})
