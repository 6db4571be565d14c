package interp

import "github.com/corevm/stackvm/vm/vmerr"

// codeCursor reads fixed-width little-endian fields from the code
// segment, faulting with BoundsFault on any fetch past code end (spec
// §4.6: "Target ≥ code length → BoundsFault on next fetch").
type codeCursor struct {
	code []byte
	ip   int64
}

func (c *codeCursor) need(n int64) *vmerr.Fault {
	if c.ip < 0 || c.ip+n > int64(len(c.code)) {
		return vmerr.Bounds(vmerr.PhaseExec, c.ip, "code", int(c.ip), len(c.code))
	}
	return nil
}

func (c *codeCursor) u8() (byte, *vmerr.Fault) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	b := c.code[c.ip]
	c.ip++
	return b, nil
}

// u16 reads a little-endian uint16, low byte first (spec §9 Q2).
func (c *codeCursor) u16() (uint16, *vmerr.Fault) {
	if err := c.need(2); err != nil {
		return 0, err
	}
	v := uint16(c.code[c.ip]) | uint16(c.code[c.ip+1])<<8
	c.ip += 2
	return v, nil
}

func (c *codeCursor) u32() (uint32, *vmerr.Fault) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := uint32(c.code[c.ip]) | uint32(c.code[c.ip+1])<<8 |
		uint32(c.code[c.ip+2])<<16 | uint32(c.code[c.ip+3])<<24
	c.ip += 4
	return v, nil
}

func (c *codeCursor) i32() (int32, *vmerr.Fault) {
	v, err := c.u32()
	return int32(v), err
}
