package heap

import (
	"github.com/corevm/stackvm/vm/vmerr"
	"github.com/corevm/stackvm/vm/word"
)

// GetField reads the 32-bit word at fieldIdx within an object entry,
// resolving the byte offset through the owning class's layout (spec
// §4.6 GETFIELD). Fields narrower than a Word (CHAR) are sign-extended,
// the same widening readWord gives ALOAD (spec §3, §4.6 ALOAD); see
// DESIGN.md's Open Question decisions for why GETFIELD follows suit
// even though §4.6 is silent on its extension behavior.
func (h *Heap) GetField(ip int64, e *Entry, fieldIdx int) (word.Word, *vmerr.Fault) {
	c, ok := h.Class(e)
	if !ok {
		return 0, vmerr.Bounds(vmerr.PhaseExec, ip, "class", e.ClassIndex, h.registry.Len())
	}
	if fieldIdx < 0 || fieldIdx >= len(c.Fields) {
		return 0, vmerr.Bounds(vmerr.PhaseExec, ip, "field", fieldIdx, len(c.Fields))
	}
	off := c.FieldOffsets[fieldIdx]
	size := c.Fields[fieldIdx].Type.Size()
	return readWord(e.Body, off, size), nil
}

// PutField writes v to the byte offset of fieldIdx within an object
// entry, truncating to the field's declared size (spec §4.6 PUTFIELD).
func (h *Heap) PutField(ip int64, e *Entry, fieldIdx int, v word.Word) *vmerr.Fault {
	c, ok := h.Class(e)
	if !ok {
		return vmerr.Bounds(vmerr.PhaseExec, ip, "class", e.ClassIndex, h.registry.Len())
	}
	if fieldIdx < 0 || fieldIdx >= len(c.Fields) {
		return vmerr.Bounds(vmerr.PhaseExec, ip, "field", fieldIdx, len(c.Fields))
	}
	off := c.FieldOffsets[fieldIdx]
	size := c.Fields[fieldIdx].Type.Size()
	writeWord(e.Body, off, size, v)
	return nil
}

func readWord(body []byte, off, size int) word.Word {
	if size == 1 {
		return word.FromInt32(int32(int8(body[off])))
	}
	return word.FromBytes(body[off : off+4])
}

func writeWord(body []byte, off, size int, v word.Word) {
	if size == 1 {
		body[off] = byte(v)
		return
	}
	b := v.Bytes()
	copy(body[off:off+4], b[:])
}
