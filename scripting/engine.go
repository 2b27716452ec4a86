// Package scripting lets Lua scripts register phase listeners on a ticker.
//
// Scripts see a global table named ticker:
//
//	local h = ticker.on("update", function(ms) ... end)
//	ticker.once("render", function(ms) ... end)
//	ticker.off("update", h)   -- one listener
//	ticker.off("update")      -- every listener of the phase
//	ticker.count("update")
//
// Listeners receive the frame time in milliseconds.
package scripting

import (
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/sarchlab/frameticker/listener"
)

// Registrar is the part of a ticker that scripts can use. Both
// ticking.Ticker and ticking.AutoTicker over string phases and
// time.Duration arguments satisfy it.
type Registrar interface {
	On(phase string, fn func(time.Duration)) (listener.ID, error)
	Once(phase string, fn func(time.Duration)) (listener.ID, error)
	Off(phase string, id listener.ID)
	OffPhase(phase string)
	Count(phase string) int
}

type handle struct {
	phase string
	id    listener.ID
}

// Engine wraps a single gopher-lua VM. Single-goroutine access only: the VM
// is used from the ticker's listeners, so it lives on the ticker goroutine.
type Engine struct {
	vm      *lua.LState
	log     *zap.Logger
	ticker  Registrar
	handles map[int]handle
	next    int
	errors  int
}

// NewEngine creates a Lua VM bound to ticker.
func NewEngine(ticker Registrar, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}

	e := &Engine{
		vm:      lua.NewState(),
		log:     log,
		ticker:  ticker,
		handles: make(map[int]handle),
	}

	e.vm.SetGlobal("API_VERSION", lua.LNumber(1))
	e.vm.SetGlobal("ticker", e.vm.SetFuncs(e.vm.NewTable(), map[string]lua.LGFunction{
		"on":    e.luaOn,
		"once":  e.luaOnce,
		"off":   e.luaOff,
		"count": e.luaCount,
	}))

	return e
}

// LoadFile runs a script file.
func (e *Engine) LoadFile(path string) error {
	if err := e.vm.DoFile(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	e.log.Debug("loaded lua script", zap.String("file", path))

	return nil
}

// LoadString runs a script given as source.
func (e *Engine) LoadString(source string) error {
	if err := e.vm.DoString(source); err != nil {
		return fmt.Errorf("load script: %w", err)
	}

	return nil
}

// Errors returns the number of listener calls that failed.
func (e *Engine) Errors() int {
	return e.errors
}

// Close removes the listeners the scripts registered and closes the VM.
func (e *Engine) Close() {
	for _, h := range e.handles {
		e.ticker.Off(h.phase, h.id)
	}

	e.handles = make(map[int]handle)
	e.vm.Close()
}

func (e *Engine) luaOn(L *lua.LState) int {
	return e.register(L, false)
}

func (e *Engine) luaOnce(L *lua.LState) int {
	return e.register(L, true)
}

func (e *Engine) register(L *lua.LState, once bool) int {
	phase := L.CheckString(1)
	fn := L.CheckFunction(2)

	e.next++
	h := e.next

	listenerFn := func(t time.Duration) {
		if once {
			delete(e.handles, h)
		}

		e.call(phase, fn, t)
	}

	var (
		id  listener.ID
		err error
	)

	if once {
		id, err = e.ticker.Once(phase, listenerFn)
	} else {
		id, err = e.ticker.On(phase, listenerFn)
	}

	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))

		return 2
	}

	e.handles[h] = handle{phase: phase, id: id}
	L.Push(lua.LNumber(h))

	return 1
}

func (e *Engine) luaOff(L *lua.LState) int {
	phase := L.CheckString(1)

	if L.GetTop() < 2 {
		e.ticker.OffPhase(phase)

		for k, h := range e.handles {
			if h.phase == phase {
				delete(e.handles, k)
			}
		}

		return 0
	}

	k := L.CheckInt(2)
	if h, ok := e.handles[k]; ok && h.phase == phase {
		e.ticker.Off(h.phase, h.id)
		delete(e.handles, k)
	}

	return 0
}

func (e *Engine) luaCount(L *lua.LState) int {
	L.Push(lua.LNumber(e.ticker.Count(L.CheckString(1))))
	return 1
}

func (e *Engine) call(phase string, fn *lua.LFunction, t time.Duration) {
	ms := lua.LNumber(float64(t) / float64(time.Millisecond))

	err := e.vm.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, ms)
	if err != nil {
		e.errors++
		e.log.Error("lua listener failed",
			zap.String("phase", phase), zap.Error(err))
	}
}
