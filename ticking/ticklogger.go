package ticking

import (
	"go.uber.org/zap"

	"github.com/sarchlab/frameticker/hooking"
)

// TickLogger is a hook that writes every tick, phase and frame request to a
// logger at debug level.
type TickLogger struct {
	log *zap.Logger
}

// NewTickLogger returns a TickLogger writing to log.
func NewTickLogger(log *zap.Logger) *TickLogger {
	return &TickLogger{log: log}
}

// Func writes the hook information into the logger.
func (h *TickLogger) Func(ctx hooking.HookCtx) {
	switch item := ctx.Item.(type) {
	case TickInfo:
		h.log.Debug(ctx.Pos.Name,
			zap.Uint64("seq", item.Seq),
			zap.Int("phases", item.NumPhases),
			zap.Any("arg", ctx.Arg))
	case PhaseInfo:
		h.log.Debug(ctx.Pos.Name,
			zap.Uint64("seq", item.Seq),
			zap.Int("index", item.Index),
			zap.Any("phase", item.Phase),
			zap.Int("listeners", item.NumListeners))
	default:
		h.log.Debug(ctx.Pos.Name, zap.Any("item", item))
	}
}
