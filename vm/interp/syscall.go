package interp

import (
	"github.com/corevm/stackvm/vm/class"
	"github.com/corevm/stackvm/vm/trace"
	"github.com/corevm/stackvm/vm/vmerr"
)

// charType is the array element type used for the byte buffers SYS_OPEN,
// SYS_READ, and SYS_WRITE hand to host I/O (spec §4.7).
const charType = class.TypeCHAR

// syscall dispatches one SYS_CALL sub-opcode (spec §4.7). It reports
// exitRequested when SYS_EXIT was executed; the caller is responsible
// for halting the fetch-dispatch loop in that case.
func (vm *VM) syscall(ip int64, sub SyscallOp) (exitRequested bool, fault *vmerr.Fault) {
	m := vm.Machine

	switch sub {
	case SysOpen:
		modeWord, err := m.Stack.Pop(ip)
		if err != nil {
			return false, err
		}
		fileRef, err := m.Stack.Pop(ip)
		if err != nil {
			return false, err
		}
		e, ferr := vm.Heap.Get(ip, fileRef)
		if ferr != nil {
			return false, ferr
		}
		path := cString(e.Bytes())
		fd := vm.FDs.Open(path, byte(modeWord))
		trace.Debugf("SYS_OPEN %q mode=%c -> fd=%d", path, byte(modeWord), fd)
		return false, vm.pushInt(ip, int32(fd))

	case SysRead:
		// Stack top → bottom: fd, size, localIdx (spec §4.7 table).
		fdWord, err := m.Stack.Pop(ip)
		if err != nil {
			return false, err
		}
		sizeWord, err := m.Stack.Pop(ip)
		if err != nil {
			return false, err
		}
		localIdx, err := m.Stack.Pop(ip)
		if err != nil {
			return false, err
		}
		size := int(sizeWord.Int32())
		ref, ferr := vm.Heap.CreateArray(ip, charType, size)
		if ferr != nil {
			return false, ferr
		}
		if err := m.StoreLocal(ip, int(localIdx.Int32()), ref); err != nil {
			return false, err
		}
		e, ferr := vm.Heap.Get(ip, ref)
		if ferr != nil {
			return false, ferr
		}
		n := vm.FDs.Read(int(fdWord.Int32()), e.Bytes())
		trace.Debugf("SYS_READ fd=%d size=%d -> n=%d", int32(fdWord), size, n)
		return false, vm.pushInt(ip, int32(n))

	case SysWrite:
		// Stack top → bottom: fd, size, localIdx (spec §4.7 table).
		fdWord, err := m.Stack.Pop(ip)
		if err != nil {
			return false, err
		}
		sizeWord, err := m.Stack.Pop(ip)
		if err != nil {
			return false, err
		}
		localIdx, err := m.Stack.Pop(ip)
		if err != nil {
			return false, err
		}
		ref, err := m.LoadLocal(ip, int(localIdx.Int32()))
		if err != nil {
			return false, err
		}
		e, ferr := vm.Heap.Get(ip, ref)
		if ferr != nil {
			return false, ferr
		}
		size := int(sizeWord.Int32())
		if size < 0 || size > len(e.Bytes()) {
			return false, vmerr.Bounds(vmerr.PhaseSyscall, ip, "write size", size, len(e.Bytes()))
		}
		n := vm.FDs.Write(int(fdWord.Int32()), e.Bytes()[:size])
		trace.Debugf("SYS_WRITE fd=%d size=%d -> n=%d", int32(fdWord), size, n)
		return false, vm.pushInt(ip, int32(n))

	case SysClose:
		fdWord, err := m.Stack.Pop(ip)
		if err != nil {
			return false, err
		}
		ok := vm.FDs.Close(int(fdWord.Int32()))
		result := int32(0)
		if !ok {
			result = -1
		}
		trace.Debugf("SYS_CLOSE fd=%d -> %d", int32(fdWord), result)
		return false, vm.pushInt(ip, result)

	case SysExit:
		codeWord, err := m.Stack.Pop(ip)
		if err != nil {
			return false, err
		}
		vm.exitCode = int(codeWord.Int32())
		trace.Debugf("SYS_EXIT code=%d", vm.exitCode)
		return true, nil

	default:
		return false, vmerr.New(vmerr.PhaseSyscall, vmerr.KindUnknownOpcode).IP(ip).
			Detail("sub-opcode 0x%02x", byte(sub)).Build()
	}
}
