package loader

import (
	"bytes"

	"github.com/corevm/stackvm/vm/loader/internal/bitreader"
	"github.com/corevm/stackvm/vm/vmerr"
)

func parseHeader(data []byte) (Header, *vmerr.Fault) {
	var h Header
	if len(data) < HeaderSize {
		return h, vmerr.InvalidBinary("file too small: %d bytes, need at least %d", len(data), HeaderSize)
	}

	magic := data[0:4]
	if !bytes.Equal(magic, Magic[:]) {
		return h, vmerr.InvalidBinary("bad magic %x, want %x", magic, Magic)
	}

	r := bitreader.New(data)
	r.Seek(4)

	version, _ := r.U32()
	if version != Version {
		return h, vmerr.InvalidBinary("unsupported version %d, want %d", version, Version)
	}
	h.Version = version

	h.EntryPoint, _ = r.U32()
	h.ConstOffset, _ = r.U32()
	h.ConstSize, _ = r.U32()
	h.CodeOffset, _ = r.U32()
	h.CodeSize, _ = r.U32()
	h.GlobalsOffset, _ = r.U32()
	h.GlobalsSize, _ = r.U32()
	h.ClassOffset, _ = r.U32()
	h.ClassSize, _ = r.U32()

	total := uint64(len(data))
	if err := checkSection(total, uint64(h.ConstOffset), uint64(h.ConstSize), "constant pool"); err != nil {
		return h, err
	}
	if h.ConstSize%4 != 0 {
		return h, vmerr.InvalidBinary("constant-pool size %d not a multiple of 4", h.ConstSize)
	}
	if err := checkSection(total, uint64(h.CodeOffset), uint64(h.CodeSize), "code"); err != nil {
		return h, err
	}
	if err := checkSection(total, uint64(h.GlobalsOffset), uint64(h.GlobalsSize), "globals"); err != nil {
		return h, err
	}
	if h.GlobalsSize%4 != 0 {
		return h, vmerr.InvalidBinary("globals size %d not a multiple of 4", h.GlobalsSize)
	}
	if err := checkSection(total, uint64(h.ClassOffset), uint64(h.ClassSize), "class metadata"); err != nil {
		return h, err
	}
	if uint64(h.EntryPoint) >= uint64(h.CodeSize) {
		return h, vmerr.InvalidBinary("entry point %d outside code section (size %d)", h.EntryPoint, h.CodeSize)
	}

	return h, nil
}

func checkSection(total, offset, size uint64, name string) *vmerr.Fault {
	if offset+size > total {
		return vmerr.InvalidBinary("%s section [%d,%d) extends past end of file (%d bytes)", name, offset, offset+size, total)
	}
	return nil
}
