package frame

import (
	"github.com/corevm/stackvm/vm/vmerr"
	"github.com/corevm/stackvm/vm/word"
)

// Machine owns the operand stack, locals, frame pointer, and the
// transient args-to-pop counter that connects a CALL/INVOKEVIRTUAL site
// to its matching RET (spec §4.5, glossary "args_to_pop").
type Machine struct {
	Stack     *Stack
	Locals    []word.Word
	FP        int
	argsToPop int
}

// NewMachine creates a frame machine with locals sized LocalsSize and
// pre-populated from globals (spec §3: "Locals ... pre-populated from
// the globals section").
func NewMachine(globals []word.Word) *Machine {
	locals := make([]word.Word, LocalsSize)
	copy(locals, globals)
	return &Machine{
		Stack:  NewStack(),
		Locals: locals,
	}
}

// Call implements the CALL/INVOKEVIRTUAL entry protocol: push the return
// IP, push the caller's FP, set the new FP to the slot holding the saved
// caller FP, and record argCount as the args-to-pop counter (spec §4.5).
// The new FP is left in m.FP.
func (m *Machine) Call(ip int64, returnIP int64, argCount int) *vmerr.Fault {
	if err := m.Stack.Push(ip, word.FromInt32(int32(returnIP))); err != nil {
		return err
	}
	if err := m.Stack.Push(ip, word.FromInt32(int32(m.FP))); err != nil {
		return err
	}
	m.FP = m.Stack.Len() - 1
	m.argsToPop = argCount
	return nil
}

// LoadArg reads LOAD_ARG k's slot, stack[FP-2-k] (spec §4.5/§4.6).
func (m *Machine) LoadArg(ip int64, k int) (word.Word, *vmerr.Fault) {
	idx := m.FP - 2 - k
	if idx < 0 {
		return 0, vmerr.Bounds(vmerr.PhaseExec, ip, "arg", k, m.FP-1)
	}
	return m.Stack.At(ip, idx)
}

// Ret implements the RET protocol (spec §4.5). halted reports a base-
// frame RET (FP == 0), which terminates execution without altering newIP.
func (m *Machine) Ret(ip int64) (newIP int64, halted bool, fault *vmerr.Fault) {
	if m.FP == 0 {
		return 0, true, nil
	}

	retIPWord, err := m.Stack.At(ip, m.FP-1)
	if err != nil {
		return 0, false, err
	}
	callerFPWord, err := m.Stack.At(ip, m.FP)
	if err != nil {
		return 0, false, err
	}

	returnValue, err := m.Stack.Pop(ip)
	if err != nil {
		return 0, false, err
	}

	// Discard the frame area (everything from the caller-FP slot down
	// through the saved return IP), leaving only the caller-pushed args.
	m.Stack.Truncate(m.FP - 1)

	for i := 0; i < m.argsToPop; i++ {
		if _, err := m.Stack.Pop(ip); err != nil {
			return 0, false, err
		}
	}
	m.argsToPop = 0

	m.FP = int(callerFPWord.Int32())
	newIP = int64(retIPWord.Int32())

	if err := m.Stack.Push(ip, returnValue); err != nil {
		return 0, false, err
	}
	return newIP, false, nil
}

// LoadLocal reads locals[idx], faulting with BoundsFault past the
// locals length (spec §4.6 LOAD).
func (m *Machine) LoadLocal(ip int64, idx int) (word.Word, *vmerr.Fault) {
	if idx < 0 || idx >= len(m.Locals) {
		return 0, vmerr.Bounds(vmerr.PhaseExec, ip, "local", idx, len(m.Locals))
	}
	return m.Locals[idx], nil
}

// StoreLocal writes locals[idx], faulting with BoundsFault past the
// locals length (spec §4.6 STORE).
func (m *Machine) StoreLocal(ip int64, idx int, v word.Word) *vmerr.Fault {
	if idx < 0 || idx >= len(m.Locals) {
		return vmerr.Bounds(vmerr.PhaseExec, ip, "local", idx, len(m.Locals))
	}
	m.Locals[idx] = v
	return nil
}
