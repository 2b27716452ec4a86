package cmd

import (
	"github.com/sarchlab/frameticker/hooking"
	"github.com/sarchlab/frameticker/monitoring"
	"github.com/sarchlab/frameticker/ticking"
)

type progressHook struct {
	bar *monitoring.ProgressBar
}

func (h progressHook) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case ticking.HookPosBeforeTick:
		h.bar.IncrementInProgress(1)
	case ticking.HookPosAfterTick:
		h.bar.MoveInProgressToFinished(1)
	}
}
