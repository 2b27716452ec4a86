package recording

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sarchlab/frameticker/hooking"
	"github.com/sarchlab/frameticker/ticking"
)

// Table names used by TickRecorder.
const (
	TickTable  = "tick"
	PhaseTable = "phase"
	FrameTable = "frame"
)

// TickEntry is one dispatching tick. FrameNanos is the frame time the tick
// ran with, or 0 when the ticker argument is not a time.Duration.
type TickEntry struct {
	Seq        uint64
	NumPhases  int
	FrameNanos int64
	StartNanos int64
	Duration   int64
}

// PhaseEntry is one phase occurrence that had listeners.
type PhaseEntry struct {
	Seq          uint64
	PhaseIndex   int
	Phase        string
	NumListeners int
	StartNanos   int64
	Duration     int64
}

// FrameEntry is one frame request or cancellation.
type FrameEntry struct {
	Seq        uint64
	Event      string
	StartNanos int64
}

// TickRecorder is a hook that records ticks and phases. Attach it with
// AcceptHook to a Ticker or an AutoTicker.
type TickRecorder struct {
	recorder DataRecorder
	log      *zap.Logger
	now      func() time.Time

	tickStart  time.Time
	phaseStart time.Time
}

// NewTickRecorder creates the recorder tables and returns the hook.
func NewTickRecorder(
	recorder DataRecorder,
	log *zap.Logger,
) (*TickRecorder, error) {
	if log == nil {
		log = zap.NewNop()
	}

	tables := map[string]any{
		TickTable:  TickEntry{},
		PhaseTable: PhaseEntry{},
		FrameTable: FrameEntry{},
	}

	for name, sample := range tables {
		if err := recorder.CreateTable(name, sample); err != nil {
			return nil, err
		}
	}

	return &TickRecorder{
		recorder: recorder,
		log:      log,
		now:      time.Now,
	}, nil
}

// Func records the hook context.
func (r *TickRecorder) Func(ctx hooking.HookCtx) {
	now := r.now()

	switch ctx.Pos {
	case ticking.HookPosBeforeTick:
		r.tickStart = now
	case ticking.HookPosAfterTick:
		info := ctx.Item.(ticking.TickInfo)
		frameTime, _ := ctx.Arg.(time.Duration)
		r.insert(TickTable, TickEntry{
			Seq:        info.Seq,
			NumPhases:  info.NumPhases,
			FrameNanos: int64(frameTime),
			StartNanos: r.tickStart.UnixNano(),
			Duration:   int64(now.Sub(r.tickStart)),
		})
	case ticking.HookPosBeforePhase:
		r.phaseStart = now
	case ticking.HookPosAfterPhase:
		info := ctx.Item.(ticking.PhaseInfo)
		r.insert(PhaseTable, PhaseEntry{
			Seq:          info.Seq,
			PhaseIndex:   info.Index,
			Phase:        fmt.Sprint(info.Phase),
			NumListeners: info.NumListeners,
			StartNanos:   r.phaseStart.UnixNano(),
			Duration:     int64(now.Sub(r.phaseStart)),
		})
	case ticking.HookPosFrameRequested, ticking.HookPosFrameCancelled:
		seq, _ := ctx.Item.(uint64)
		r.insert(FrameTable, FrameEntry{
			Seq:        seq,
			Event:      ctx.Pos.Name,
			StartNanos: now.UnixNano(),
		})
	}
}

func (r *TickRecorder) insert(tableName string, entry any) {
	if err := r.recorder.InsertData(tableName, entry); err != nil {
		r.log.Warn("failed to record entry",
			zap.String("table", tableName), zap.Error(err))
	}
}
