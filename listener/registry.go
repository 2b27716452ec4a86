// Package listener implements a keyed listener registry. Each key owns an
// ordered list of listeners; every listener carries an id that can later be
// used to remove it.
package listener

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sarchlab/frameticker/idgen"
)

// ID identifies a registered listener. Any comparable value except nil is a
// valid ID. A value whose dynamic contents cannot be compared, such as a
// struct holding a slice in an interface field, is rejected.
type ID = any

// DedupeMode decides what happens when a listener is registered under an id
// that already exists for the same key.
type DedupeMode int

// Enumeration of dedupe modes.
const (
	// DedupeAppend removes the existing listener and appends the new one at
	// the end of the list.
	DedupeAppend DedupeMode = iota

	// DedupeReplace replaces the existing listener in place, keeping its
	// position in the list.
	DedupeReplace

	// DedupeIgnore keeps the existing listener and silently drops the new one.
	DedupeIgnore

	// DedupeThrow refuses the registration with ErrDuplicateID.
	DedupeThrow
)

var dedupeModeNames = map[DedupeMode]string{
	DedupeAppend:  "append",
	DedupeReplace: "replace",
	DedupeIgnore:  "ignore",
	DedupeThrow:   "throw",
}

func (m DedupeMode) String() string {
	if name, ok := dedupeModeNames[m]; ok {
		return name
	}

	return fmt.Sprintf("DedupeMode(%d)", int(m))
}

// ParseDedupeMode converts a configuration string into a DedupeMode.
func ParseDedupeMode(s string) (DedupeMode, error) {
	for mode, name := range dedupeModeNames {
		if strings.EqualFold(s, name) {
			return mode, nil
		}
	}

	return DedupeAppend, fmt.Errorf("listener: unknown dedupe mode %q", s)
}

var (
	// ErrDuplicateID is returned when an id is reused under DedupeThrow.
	ErrDuplicateID = errors.New("listener: duplicate listener id")

	// ErrIncomparableID is returned when an id cannot be compared with ==.
	ErrIncomparableID = errors.New("listener: listener id is not comparable")
)

// Entry is one registered listener.
type Entry[A any] struct {
	id   ID
	fn   func(A)
	once bool
}

// ID returns the id the entry was registered with.
func (e *Entry[A]) ID() ID {
	return e.id
}

// Once reports whether the entry is removed after its first call.
func (e *Entry[A]) Once() bool {
	return e.once
}

// Registry maps keys to ordered listener lists.
//
// The slice stored for a key is never modified in place. Every mutation
// builds a new slice, so a slice returned by Listeners stays valid and
// unchanged while the registry keeps changing.
type Registry[K comparable, A any] struct {
	mode    DedupeMode
	idGen   idgen.Generator
	buckets map[K][]*Entry[A]
	total   int
}

// NewRegistry creates an empty registry. A nil generator selects
// idgen.Default().
func NewRegistry[K comparable, A any](
	mode DedupeMode,
	gen idgen.Generator,
) *Registry[K, A] {
	if gen == nil {
		gen = idgen.Default()
	}

	return &Registry[K, A]{
		mode:    mode,
		idGen:   gen,
		buckets: make(map[K][]*Entry[A]),
	}
}

// DedupeMode returns the current dedupe mode.
func (r *Registry[K, A]) DedupeMode() DedupeMode {
	return r.mode
}

// SetDedupeMode changes how later registrations treat duplicate ids.
func (r *Registry[K, A]) SetDedupeMode(mode DedupeMode) {
	r.mode = mode
}

// On registers fn under key. A nil id asks the registry to generate one. The
// resolved id is returned.
func (r *Registry[K, A]) On(key K, fn func(A), id ID) (ID, error) {
	return r.add(key, fn, id, false)
}

// Once registers fn under key so that it is removed right before its first
// call.
func (r *Registry[K, A]) Once(key K, fn func(A), id ID) (ID, error) {
	return r.add(key, fn, id, true)
}

func (r *Registry[K, A]) add(key K, fn func(A), id ID, once bool) (ID, error) {
	if fn == nil {
		panic("listener: nil listener function")
	}

	if id == nil {
		id = r.idGen.Generate()
		if id == nil {
			panic("listener: id generator returned nil")
		}
	}

	if !isComparable(id) {
		return nil, fmt.Errorf("%w: %T", ErrIncomparableID, id)
	}

	entry := &Entry[A]{id: id, fn: fn, once: once}
	list := r.buckets[key]

	index := indexOf(list, id)
	if index < 0 {
		r.buckets[key] = appendEntry(list, entry)
		r.total++

		return id, nil
	}

	switch r.mode {
	case DedupeIgnore:
		return id, nil
	case DedupeThrow:
		return nil, fmt.Errorf("%w: %v", ErrDuplicateID, id)
	case DedupeReplace:
		replaced := make([]*Entry[A], len(list))
		copy(replaced, list)
		replaced[index] = entry
		r.buckets[key] = replaced
	default:
		r.buckets[key] = appendEntry(removeAt(list, index), entry)
	}

	return id, nil
}

// Off removes the listener registered under key with the given id.
func (r *Registry[K, A]) Off(key K, id ID) {
	if id == nil || !isComparable(id) {
		return
	}

	list := r.buckets[key]

	index := indexOf(list, id)
	if index < 0 {
		return
	}

	r.store(key, removeAt(list, index))
	r.total--
}

// OffKey removes every listener of key.
func (r *Registry[K, A]) OffKey(key K) {
	list, ok := r.buckets[key]
	if !ok {
		return
	}

	r.total -= len(list)
	delete(r.buckets, key)
}

// Clear removes all listeners.
func (r *Registry[K, A]) Clear() {
	r.buckets = make(map[K][]*Entry[A])
	r.total = 0
}

// Count returns the number of listeners registered under key.
func (r *Registry[K, A]) Count(key K) int {
	return len(r.buckets[key])
}

// Total returns the number of listeners across all keys.
func (r *Registry[K, A]) Total() int {
	return r.total
}

// Listeners returns the current listener list of key, or nil if the key has
// no listener. The returned slice must not be modified.
func (r *Registry[K, A]) Listeners(key K) []*Entry[A] {
	return r.buckets[key]
}

// Call invokes entry with arg. A once-entry is removed from key first, so a
// listener that re-registers itself is not removed again.
func (r *Registry[K, A]) Call(key K, entry *Entry[A], arg A) {
	if entry.once {
		r.removeEntry(key, entry)
	}

	entry.fn(arg)
}

func (r *Registry[K, A]) removeEntry(key K, entry *Entry[A]) {
	list := r.buckets[key]
	for i, e := range list {
		if e == entry {
			r.store(key, removeAt(list, i))
			r.total--

			return
		}
	}
}

func (r *Registry[K, A]) store(key K, list []*Entry[A]) {
	if len(list) == 0 {
		delete(r.buckets, key)
		return
	}

	r.buckets[key] = list
}

// isComparable reports whether id can be compared with == without panicking.
// The check has to compare a value, since a comparable type can still hold
// an incomparable value in an interface field.
func isComparable(id ID) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	other := id
	_ = id == other

	return true
}

func indexOf[A any](list []*Entry[A], id ID) int {
	for i, e := range list {
		if e.id == id {
			return i
		}
	}

	return -1
}

func appendEntry[A any](list []*Entry[A], entry *Entry[A]) []*Entry[A] {
	grown := make([]*Entry[A], len(list), len(list)+1)
	copy(grown, list)

	return append(grown, entry)
}

func removeAt[A any](list []*Entry[A], index int) []*Entry[A] {
	shrunk := make([]*Entry[A], 0, len(list)-1)
	shrunk = append(shrunk, list[:index]...)

	return append(shrunk, list[index+1:]...)
}
