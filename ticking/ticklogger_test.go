package ticking

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var _ = Describe("TickLogger", func() {
	It("should log ticks and phases at debug level", func() {
		core, logs := observer.New(zapcore.DebugLevel)
		ticker := NewTicker[string, int]("a", "b")
		ticker.AcceptHook(NewTickLogger(zap.New(core)))
		_, _ = ticker.On("b", func(int) {})

		Expect(ticker.Tick(0)).To(Succeed())

		var messages []string
		for _, entry := range logs.All() {
			messages = append(messages, entry.Message)
		}
		Expect(messages).To(Equal([]string{
			"BeforeTick", "BeforePhase", "AfterPhase", "AfterTick",
		}))
		Expect(logs.FilterField(zap.Any("phase", "b")).Len()).To(Equal(2))
	})
})
