// Package heap implements the object/array factory and the append-only
// heap table that backs object and array references (spec §3, §4.4).
//
// Per the spec's own §9 design note, this implementation does not use the
// source's "header byte just before the body" pointer-arithmetic trick.
// Instead each heap entry carries its class/array-type tag in a parallel
// metadata field alongside a plain byte slice body, addressed by Word
// heap index rather than by raw pointer.
package heap

import (
	"github.com/corevm/stackvm/vm/class"
	"github.com/corevm/stackvm/vm/vmerr"
	"github.com/corevm/stackvm/vm/word"
)

// Kind distinguishes an object entry from an array entry.
type Kind byte

const (
	KindObject Kind = iota
	KindArray
)

// Entry is one heap-table slot: either an object body sized by its
// class's ObjectSize, or an array body sized by element count × element
// size. Body is zero-initialised at allocation.
type Entry struct {
	Kind       Kind
	ClassIndex int             // valid when Kind == KindObject
	ElemType   class.FieldType // valid when Kind == KindArray
	Length     int             // element count, valid when Kind == KindArray
	Body       []byte
}

// Heap is the append-only ordered sequence of object/array bodies (spec
// §3 Heap table). Entries are never removed or reused during execution —
// there is no garbage collector, by design (spec §1 Non-goals).
type Heap struct {
	registry *class.Registry
	entries  []*Entry
}

// New creates an empty heap backed by the given class registry.
func New(registry *class.Registry) *Heap {
	return &Heap{registry: registry}
}

// Len returns the number of heap entries allocated so far.
func (h *Heap) Len() int { return len(h.entries) }

// CreateObject allocates a zeroed object body for the class at classIdx
// and appends it to the heap, returning its new heap index (spec §4.4).
func (h *Heap) CreateObject(ip int64, classIdx int) (word.Word, *vmerr.Fault) {
	c, ok := h.registry.ByIndex(classIdx)
	if !ok {
		return 0, vmerr.Bounds(vmerr.PhaseExec, ip, "class", classIdx, h.registry.Len())
	}
	e := &Entry{
		Kind:       KindObject,
		ClassIndex: classIdx,
		Body:       make([]byte, c.ObjectSize),
	}
	h.entries = append(h.entries, e)
	return word.FromHeapIndex(uint32(len(h.entries)-1)), nil
}

// CreateArray allocates a zeroed array body of n elements of the given
// type and appends it to the heap, returning its new heap index (spec
// §4.4). n == 0 is a valid, zero-length array.
func (h *Heap) CreateArray(ip int64, elemType class.FieldType, n int) (word.Word, *vmerr.Fault) {
	if n < 0 {
		return 0, vmerr.New(vmerr.PhaseExec, vmerr.KindBoundsFault).IP(ip).
			Detail("negative array length %d", n).Build()
	}
	e := &Entry{
		Kind:     KindArray,
		ElemType: elemType,
		Length:   n,
		Body:     make([]byte, n*elemType.Size()),
	}
	h.entries = append(h.entries, e)
	return word.FromHeapIndex(uint32(len(h.entries)-1)), nil
}

// Get resolves a heap reference to its entry, producing a BoundsFault on
// an out-of-range or negative index.
func (h *Heap) Get(ip int64, ref word.Word) (*Entry, *vmerr.Fault) {
	idx := ref.HeapIndex()
	if int(idx) >= len(h.entries) {
		return nil, vmerr.Bounds(vmerr.PhaseExec, ip, "heap", int(idx), len(h.entries))
	}
	return h.entries[idx], nil
}

// Class resolves the class owning an object entry.
func (h *Heap) Class(e *Entry) (*class.Info, bool) {
	return h.registry.ByIndex(e.ClassIndex)
}

// Registry returns the class registry the heap was created with.
func (h *Heap) Registry() *class.Registry { return h.registry }
