package ticking

import "github.com/sarchlab/frameticker/hooking"

// HookPosBeforeTick marks the start of a dispatching tick.
var HookPosBeforeTick = &hooking.HookPos{Name: "BeforeTick"}

// HookPosAfterTick marks the end of a dispatching tick.
var HookPosAfterTick = &hooking.HookPos{Name: "AfterTick"}

// HookPosBeforePhase fires before the listeners of one phase occurrence run.
var HookPosBeforePhase = &hooking.HookPos{Name: "BeforePhase"}

// HookPosAfterPhase fires after the listeners of one phase occurrence ran.
var HookPosAfterPhase = &hooking.HookPos{Name: "AfterPhase"}

// HookPosFrameRequested fires when an AutoTicker requests a frame.
var HookPosFrameRequested = &hooking.HookPos{Name: "FrameRequested"}

// HookPosFrameCancelled fires when an AutoTicker cancels its pending frame.
var HookPosFrameCancelled = &hooking.HookPos{Name: "FrameCancelled"}

// TickInfo is the hook item of the tick positions.
type TickInfo struct {
	// Seq counts dispatching ticks, starting from 1.
	Seq uint64

	// NumPhases is the length of the phase list the tick runs over.
	NumPhases int
}

// PhaseInfo is the hook item of the phase positions.
type PhaseInfo struct {
	// Seq is the tick the phase belongs to.
	Seq uint64

	// Index is the position of the occurrence in the phase list, so a phase
	// listed twice is reported twice with different indexes.
	Index int

	// Phase is the phase value.
	Phase any

	// NumListeners is the size of the batch captured for this occurrence.
	NumListeners int
}
