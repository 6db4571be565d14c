package interp

import (
	"fmt"

	"github.com/corevm/stackvm/vm/vmerr"
)

// operandWidth reports how many operand bytes follow an opcode byte,
// reusing the same byte layout the interpreter's fetch loop decodes
// (spec §4.6 opcode table).
func operandWidth(op Opcode) int {
	switch op {
	case PUSH, FPUSH, LOAD, STORE:
		return 4
	case JMP, JZ, JNZ:
		return 2
	case LOAD_ARG, NEW, GETFIELD, PUTFIELD, NEWARRAY, SYS_CALL:
		return 1
	case CALL:
		return 5 // u32 offset + u8 argCount
	case INVOKEVIRTUAL:
		return 5 // u32 vtableIdx + u8 argCount
	default:
		return 0
	}
}

// Disassemble walks a code buffer opcode-by-opcode and renders one
// mnemonic line per instruction, read-only and independent of any live
// VM state — a companion to the interpreter loop for the `--disasm` CLI
// mode.
func Disassemble(code []byte) ([]string, error) {
	lines, _, err := DisassembleWithOffsets(code)
	return lines, err
}

// DisassembleWithOffsets is Disassemble plus the starting IP of each
// rendered line, so a caller (the interactive step debugger) can map a
// live IP back to its listing line.
func DisassembleWithOffsets(code []byte) ([]string, []int64, error) {
	var lines []string
	var offsets []int64
	cur := &codeCursor{code: code}

	for cur.ip < int64(len(code)) {
		offset := cur.ip
		opByte, err := cur.u8()
		if err != nil {
			return lines, offsets, err
		}
		op := Opcode(opByte)
		name, known := mnemonics[op]
		if !known {
			lines = append(lines, fmt.Sprintf("%6d: DB 0x%02x", offset, opByte))
			offsets = append(offsets, offset)
			continue
		}

		width := operandWidth(op)
		if cur.ip+int64(width) > int64(len(code)) {
			return lines, offsets, vmerr.Bounds(vmerr.PhaseExec, offset, "code", int(cur.ip), len(code))
		}

		var operandText string
		switch op {
		case PUSH, FPUSH:
			v, _ := cur.i32()
			operandText = fmt.Sprintf(" %d", v)
		case LOAD, STORE:
			v, _ := cur.u32()
			operandText = fmt.Sprintf(" %d", v)
		case JMP, JZ, JNZ:
			v, _ := cur.u16()
			operandText = fmt.Sprintf(" %d", v)
		case LOAD_ARG, NEW, GETFIELD, PUTFIELD, NEWARRAY, SYS_CALL:
			v, _ := cur.u8()
			operandText = fmt.Sprintf(" %d", v)
		case CALL:
			target, _ := cur.u32()
			argCount, _ := cur.u8()
			operandText = fmt.Sprintf(" %d %d", target, argCount)
		case INVOKEVIRTUAL:
			vtableIdx, _ := cur.u32()
			argCount, _ := cur.u8()
			operandText = fmt.Sprintf(" %d %d", vtableIdx, argCount)
		}

		lines = append(lines, fmt.Sprintf("%6d: %s%s", offset, name, operandText))
		offsets = append(offsets, offset)
	}

	return lines, offsets, nil
}
