package heap

import (
	"github.com/corevm/stackvm/vm/vmerr"
	"github.com/corevm/stackvm/vm/word"
)

// ALoad reads element index from an array entry, sign/bit-extending
// CHAR/FLOAT values into a Word per spec §3 and §4.6 ALOAD.
func (h *Heap) ALoad(ip int64, e *Entry, index int) (word.Word, *vmerr.Fault) {
	if index < 0 || index >= e.Length {
		return 0, vmerr.Bounds(vmerr.PhaseExec, ip, "array", index, e.Length)
	}
	size := e.ElemType.Size()
	off := index * size
	return readWord(e.Body, off, size), nil
}

// AStore writes v to element index of an array entry, truncating or
// reinterpreting to the element size per spec §4.6 ASTORE.
func (h *Heap) AStore(ip int64, e *Entry, index int, v word.Word) *vmerr.Fault {
	if index < 0 || index >= e.Length {
		return vmerr.Bounds(vmerr.PhaseExec, ip, "array", index, e.Length)
	}
	size := e.ElemType.Size()
	off := index * size
	writeWord(e.Body, off, size, v)
	return nil
}

// Bytes returns the raw element bytes of a CHAR array, used by the
// syscall bridge for file I/O (spec §4.7).
func (e *Entry) Bytes() []byte {
	return e.Body
}
