// Package idgen provides the token factories used to identify listeners.
package idgen

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
)

var defaultGeneratorMutex sync.Mutex
var defaultGeneratorInstantiated bool
var defaultGenerator Generator

// Generator produces unique tokens. Every call returns a value that is not
// equal to any value returned before by the same generator.
type Generator interface {
	Generate() any
}

// Token is a sequential listener token. Tokens are only equal to tokens with
// the same sequence number, never to plain integers.
type Token uint64

// String returns the decimal form of the token.
func (t Token) String() string {
	return strconv.FormatUint(uint64(t), 10)
}

// NewSequential returns a generator whose first token is 1.
func NewSequential() Generator {
	return &sequentialGenerator{}
}

// NewParallel returns a generator backed by xid. Tokens are globally unique
// but not deterministic.
func NewParallel() Generator {
	return parallelGenerator{}
}

// UseSequential configures the default generator to emit sequential tokens.
func UseSequential() {
	setDefault(&sequentialGenerator{})
}

// UseParallel configures the default generator to emit xid tokens.
func UseParallel() {
	setDefault(parallelGenerator{})
}

func setDefault(g Generator) {
	defaultGeneratorMutex.Lock()
	defer defaultGeneratorMutex.Unlock()

	if defaultGeneratorInstantiated {
		panic("idgen: cannot change the default generator after using it")
	}

	defaultGenerator = g
	defaultGeneratorInstantiated = true
}

// Default returns the process-wide generator. It is sequential unless
// UseParallel was called before the first use.
func Default() Generator {
	defaultGeneratorMutex.Lock()
	defer defaultGeneratorMutex.Unlock()

	if !defaultGeneratorInstantiated {
		defaultGenerator = &sequentialGenerator{}
		defaultGeneratorInstantiated = true
	}

	return defaultGenerator
}

// Func adapts a function to the Generator interface.
type Func func() any

// Generate calls f.
func (f Func) Generate() any {
	return f()
}

type sequentialGenerator struct {
	next uint64
}

func (g *sequentialGenerator) Generate() any {
	return Token(atomic.AddUint64(&g.next, 1))
}

type parallelGenerator struct{}

func (parallelGenerator) Generate() any {
	return xid.New()
}
