package interp

import (
	"bytes"

	"github.com/corevm/stackvm/vm/class"
	"github.com/corevm/stackvm/vm/frame"
	"github.com/corevm/stackvm/vm/heap"
	"github.com/corevm/stackvm/vm/hostio"
	"github.com/corevm/stackvm/vm/loader"
	"github.com/corevm/stackvm/vm/trace"
	"github.com/corevm/stackvm/vm/vmerr"
	"github.com/corevm/stackvm/vm/word"
)

// VM is the interpreter core: instruction fetch-and-dispatch loop driving
// the frame machine, the heap, and the syscall bridge (spec §4.6, §2
// data flow).
type VM struct {
	Program *loader.Program
	Machine *frame.Machine
	Heap    *heap.Heap
	FDs     *hostio.Table

	ip       int64
	exitCode int
}

// New assembles a VM over an already-loaded Program.
func New(prog *loader.Program, fds *hostio.Table) *VM {
	return &VM{
		Program: prog,
		Machine: frame.NewMachine(prog.Globals()),
		Heap:    heap.New(prog.Registry),
		FDs:     fds,
		ip:      int64(prog.EntryPoint),
	}
}

// IP returns the instruction pointer of the next instruction to fetch,
// used by the step-debugger TUI to render current position.
func (vm *VM) IP() int64 { return vm.ip }

// ExitCode returns the code recorded by the most recent SYS_EXIT or
// base-frame RET.
func (vm *VM) ExitCode() int { return vm.exitCode }

// Step executes exactly one instruction, reporting whether execution
// halted (base-frame RET or SYS_EXIT) and any fault raised. It is the
// single-instruction entry point the interactive step-debugger drives
// (spec §5: "instruction boundaries are the only observable execution
// points").
func (vm *VM) Step() (halted bool, fault *vmerr.Fault) {
	didHalt, exitRequested, err := vm.step()
	return didHalt || exitRequested, err
}

// Run drives the fetch-and-dispatch loop until a base-frame RET, a
// SYS_EXIT, or a fault. The returned exit code matches spec §6: 0 on
// normal RET, the SYS_EXIT code otherwise.
func (vm *VM) Run() (int, *vmerr.Fault) {
	for {
		halted, exitRequested, fault := vm.step()
		if fault != nil {
			return 1, fault
		}
		if halted || exitRequested {
			return vm.exitCode, nil
		}
	}
}

func (vm *VM) step() (halted bool, exitRequested bool, fault *vmerr.Fault) {
	cur := &codeCursor{code: vm.Program.Code, ip: vm.ip}
	opByte, err := cur.u8()
	if err != nil {
		return false, false, err
	}
	op := Opcode(opByte)
	m := vm.Machine

	switch op {
	case IADD, ISUB, IMUL, IDIV, IMOD:
		b, err := vm.popInt(cur.ip)
		if err != nil {
			return false, false, err
		}
		a, err := vm.popInt(cur.ip)
		if err != nil {
			return false, false, err
		}
		var r int32
		switch op {
		case IADD:
			r = a + b
		case ISUB:
			r = a - b
		case IMUL:
			r = a * b
		case IDIV:
			if b == 0 {
				return false, false, vmerr.Arithmetic(cur.ip, "integer division")
			}
			r = a / b
		case IMOD:
			if b == 0 {
				return false, false, vmerr.Arithmetic(cur.ip, "integer modulo")
			}
			r = a % b
		}
		if err := vm.pushInt(cur.ip, r); err != nil {
			return false, false, err
		}

	case INEG:
		a, err := vm.popInt(cur.ip)
		if err != nil {
			return false, false, err
		}
		if err := vm.pushInt(cur.ip, -a); err != nil {
			return false, false, err
		}

	case FADD, FSUB, FMUL, FDIV:
		b, err := vm.popFloat(cur.ip)
		if err != nil {
			return false, false, err
		}
		a, err := vm.popFloat(cur.ip)
		if err != nil {
			return false, false, err
		}
		var r float32
		switch op {
		case FADD:
			r = a + b
		case FSUB:
			r = a - b
		case FMUL:
			r = a * b
		case FDIV:
			if b == 0 {
				return false, false, vmerr.Arithmetic(cur.ip, "float division")
			}
			r = a / b
		}
		if err := vm.pushFloat(cur.ip, r); err != nil {
			return false, false, err
		}

	case FNEG:
		a, err := vm.popFloat(cur.ip)
		if err != nil {
			return false, false, err
		}
		if err := vm.pushFloat(cur.ip, -a); err != nil {
			return false, false, err
		}

	case PUSH, FPUSH:
		v, err := cur.i32()
		if err != nil {
			return false, false, err
		}
		if err := m.Stack.Push(cur.ip, word.FromInt32(v)); err != nil {
			return false, false, err
		}

	case POP, FPOP:
		if _, err := m.Stack.Pop(cur.ip); err != nil {
			return false, false, err
		}

	case DUP:
		v, err := m.Stack.Peek(cur.ip)
		if err != nil {
			return false, false, err
		}
		if err := m.Stack.Push(cur.ip, v); err != nil {
			return false, false, err
		}

	case LOAD:
		idx, err := cur.u32()
		if err != nil {
			return false, false, err
		}
		v, err := m.LoadLocal(cur.ip, int(idx))
		if err != nil {
			return false, false, err
		}
		if err := m.Stack.Push(cur.ip, v); err != nil {
			return false, false, err
		}

	case STORE:
		idx, err := cur.u32()
		if err != nil {
			return false, false, err
		}
		v, err := m.Stack.Pop(cur.ip)
		if err != nil {
			return false, false, err
		}
		if err := m.StoreLocal(cur.ip, int(idx), v); err != nil {
			return false, false, err
		}

	case LOAD_ARG:
		k, err := cur.u8()
		if err != nil {
			return false, false, err
		}
		v, err := m.LoadArg(cur.ip, int(k))
		if err != nil {
			return false, false, err
		}
		if err := m.Stack.Push(cur.ip, v); err != nil {
			return false, false, err
		}

	case JMP:
		target, err := cur.u16()
		if err != nil {
			return false, false, err
		}
		cur.ip = int64(target)

	case JZ, JNZ:
		target, err := cur.u16()
		if err != nil {
			return false, false, err
		}
		v, err := m.Stack.Pop(cur.ip)
		if err != nil {
			return false, false, err
		}
		take := v == 0
		if op == JNZ {
			take = v != 0
		}
		if take {
			cur.ip = int64(target)
		}

	case CALL:
		target, err := cur.u32()
		if err != nil {
			return false, false, err
		}
		argCount, err := cur.u8()
		if err != nil {
			return false, false, err
		}
		returnIP := cur.ip
		if err := m.Call(cur.ip, returnIP, int(argCount)); err != nil {
			return false, false, err
		}
		trace.Debugf("CALL -> %d, argCount=%d, return ip=%d", target, argCount, returnIP)
		cur.ip = int64(target)

	case RET:
		newIP, didHalt, err := m.Ret(cur.ip)
		if err != nil {
			return false, false, err
		}
		if didHalt {
			trace.Debugf("RET at base frame, halting")
			vm.exitCode = 0
			return true, false, nil
		}
		trace.Debugf("RET to ip %d, FP=%d", newIP, m.FP)
		cur.ip = newIP

	case ICMP_EQ, ICMP_LT, ICMP_GT, ICMP_GEQ, ICMP_NEQ, ICMP_LEQ:
		b, err := vm.popInt(cur.ip)
		if err != nil {
			return false, false, err
		}
		a, err := vm.popInt(cur.ip)
		if err != nil {
			return false, false, err
		}
		var r bool
		switch op {
		case ICMP_EQ:
			r = a == b
		case ICMP_LT:
			r = a < b
		case ICMP_GT:
			r = a > b
		case ICMP_GEQ:
			r = a >= b
		case ICMP_NEQ:
			r = a != b
		case ICMP_LEQ:
			r = a <= b
		}
		if err := vm.pushBool(cur.ip, r); err != nil {
			return false, false, err
		}

	case FCMP_EQ, FCMP_LT, FCMP_GT, FCMP_GEQ, FCMP_NEQ, FCMP_LEQ:
		b, err := vm.popFloat(cur.ip)
		if err != nil {
			return false, false, err
		}
		a, err := vm.popFloat(cur.ip)
		if err != nil {
			return false, false, err
		}
		// Unordered comparisons (NaN operand) return 0 except FCMP_NEQ,
		// which returns 1 (spec §4.6 comparisons table).
		var r bool
		switch op {
		case FCMP_EQ:
			r = a == b
		case FCMP_LT:
			r = a < b
		case FCMP_GT:
			r = a > b
		case FCMP_GEQ:
			r = a >= b
		case FCMP_NEQ:
			r = a != b || isNaN(a) || isNaN(b)
		case FCMP_LEQ:
			r = a <= b
		}
		if err := vm.pushBool(cur.ip, r); err != nil {
			return false, false, err
		}

	case NEW:
		classIdx, err := cur.u8()
		if err != nil {
			return false, false, err
		}
		ref, ferr := vm.Heap.CreateObject(cur.ip, int(classIdx))
		if ferr != nil {
			return false, false, ferr
		}
		if err := m.Stack.Push(cur.ip, ref); err != nil {
			return false, false, err
		}

	case GETFIELD:
		fieldIdx, err := cur.u8()
		if err != nil {
			return false, false, err
		}
		objRef, err := m.Stack.Pop(cur.ip)
		if err != nil {
			return false, false, err
		}
		e, ferr := vm.Heap.Get(cur.ip, objRef)
		if ferr != nil {
			return false, false, ferr
		}
		v, ferr := vm.Heap.GetField(cur.ip, e, int(fieldIdx))
		if ferr != nil {
			return false, false, ferr
		}
		if err := m.Stack.Push(cur.ip, v); err != nil {
			return false, false, err
		}

	case PUTFIELD:
		fieldIdx, err := cur.u8()
		if err != nil {
			return false, false, err
		}
		v, err := m.Stack.Pop(cur.ip)
		if err != nil {
			return false, false, err
		}
		objRef, err := m.Stack.Pop(cur.ip)
		if err != nil {
			return false, false, err
		}
		e, ferr := vm.Heap.Get(cur.ip, objRef)
		if ferr != nil {
			return false, false, ferr
		}
		if ferr := vm.Heap.PutField(cur.ip, e, int(fieldIdx), v); ferr != nil {
			return false, false, ferr
		}

	case INVOKEVIRTUAL:
		vtableIdx, err := cur.u32()
		if err != nil {
			return false, false, err
		}
		argCount, err := cur.u8()
		if err != nil {
			return false, false, err
		}
		objRef, err := m.Stack.Pop(cur.ip)
		if err != nil {
			return false, false, err
		}
		e, ferr := vm.Heap.Get(cur.ip, objRef)
		if ferr != nil {
			return false, false, ferr
		}
		c, ok := vm.Heap.Class(e)
		if !ok {
			return false, false, vmerr.Bounds(vmerr.PhaseExec, cur.ip, "class", e.ClassIndex, vm.Program.Registry.Len())
		}
		if int(vtableIdx) >= len(c.VTable) {
			return false, false, vmerr.Bounds(vmerr.PhaseExec, cur.ip, "vtable", int(vtableIdx), len(c.VTable))
		}
		method := c.VTable[vtableIdx]
		returnIP := cur.ip
		if err := m.Call(cur.ip, returnIP, int(argCount)); err != nil {
			return false, false, err
		}
		trace.Debugf("INVOKEVIRTUAL %s on class %s -> %d", method.Name, c.Name, method.BytecodeOffset)
		cur.ip = int64(method.BytecodeOffset)

	case INVOKESPECIAL:
		return false, false, vmerr.New(vmerr.PhaseExec, vmerr.KindUnknownOpcode).IP(cur.ip).
			Detail("INVOKESPECIAL is reserved").Build()

	case NEWARRAY:
		t, err := cur.u8()
		if err != nil {
			return false, false, err
		}
		size, err := m.Stack.Pop(cur.ip)
		if err != nil {
			return false, false, err
		}
		ref, ferr := vm.Heap.CreateArray(cur.ip, class.FieldType(t), int(size.Int32()))
		if ferr != nil {
			return false, false, ferr
		}
		if err := m.Stack.Push(cur.ip, ref); err != nil {
			return false, false, err
		}

	case ALOAD:
		index, err := m.Stack.Pop(cur.ip)
		if err != nil {
			return false, false, err
		}
		arrRef, err := m.Stack.Pop(cur.ip)
		if err != nil {
			return false, false, err
		}
		e, ferr := vm.Heap.Get(cur.ip, arrRef)
		if ferr != nil {
			return false, false, ferr
		}
		v, ferr := vm.Heap.ALoad(cur.ip, e, int(index.Int32()))
		if ferr != nil {
			return false, false, ferr
		}
		if err := m.Stack.Push(cur.ip, v); err != nil {
			return false, false, err
		}

	case ASTORE:
		v, err := m.Stack.Pop(cur.ip)
		if err != nil {
			return false, false, err
		}
		index, err := m.Stack.Pop(cur.ip)
		if err != nil {
			return false, false, err
		}
		arrRef, err := m.Stack.Pop(cur.ip)
		if err != nil {
			return false, false, err
		}
		e, ferr := vm.Heap.Get(cur.ip, arrRef)
		if ferr != nil {
			return false, false, ferr
		}
		if ferr := vm.Heap.AStore(cur.ip, e, int(index.Int32()), v); ferr != nil {
			return false, false, ferr
		}

	case SYS_CALL:
		sub, err := cur.u8()
		if err != nil {
			return false, false, err
		}
		exitReq, ferr := vm.syscall(cur.ip, SyscallOp(sub))
		if ferr != nil {
			return false, false, ferr
		}
		if exitReq {
			return false, true, nil
		}

	default:
		return false, false, vmerr.UnknownOpcode(cur.ip, byte(op))
	}

	vm.ip = cur.ip
	return false, false, nil
}

func (vm *VM) popInt(ip int64) (int32, *vmerr.Fault) {
	w, err := vm.Machine.Stack.Pop(ip)
	if err != nil {
		return 0, err
	}
	return w.Int32(), nil
}

func (vm *VM) pushInt(ip int64, v int32) *vmerr.Fault {
	return vm.Machine.Stack.Push(ip, word.FromInt32(v))
}

func (vm *VM) popFloat(ip int64) (float32, *vmerr.Fault) {
	w, err := vm.Machine.Stack.Pop(ip)
	if err != nil {
		return 0, err
	}
	return w.Float32(), nil
}

func (vm *VM) pushFloat(ip int64, v float32) *vmerr.Fault {
	return vm.Machine.Stack.Push(ip, word.FromFloat32(v))
}

func (vm *VM) pushBool(ip int64, v bool) *vmerr.Fault {
	if v {
		return vm.pushInt(ip, 1)
	}
	return vm.pushInt(ip, 0)
}

func isNaN(f float32) bool { return f != f }

// cString extracts a NUL-terminated (or full-length, if unterminated)
// byte string from a CHAR array heap entry, used by SYS_OPEN to read a
// filename.
func cString(body []byte) string {
	if i := bytes.IndexByte(body, 0); i >= 0 {
		return string(body[:i])
	}
	return string(body)
}
