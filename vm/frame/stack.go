// Package frame implements the operand stack, locals, and the CALL/RET/
// LOAD_ARG activation-record protocol (spec §3 Operand stack / Locals,
// §4.5 Frame Machine).
package frame

import (
	"github.com/corevm/stackvm/vm/vmerr"
	"github.com/corevm/stackvm/vm/word"
)

// MaxDepth is the fixed maximum operand-stack depth (spec §3).
const MaxDepth = 1024

// LocalsSize is the initial locals-region length (spec §3).
const LocalsSize = 256

// Stack is the LIFO operand stack, mutated through Push/Pop and, for the
// frame machine's FP-relative bookkeeping, Set/Truncate.
type Stack struct {
	cells []word.Word
}

// NewStack creates an empty operand stack.
func NewStack() *Stack {
	return &Stack{cells: make([]word.Word, 0, MaxDepth)}
}

// Len returns the current stack depth.
func (s *Stack) Len() int { return len(s.cells) }

// Push appends a Word, faulting with StackOverflow past MaxDepth.
func (s *Stack) Push(ip int64, w word.Word) *vmerr.Fault {
	if len(s.cells) >= MaxDepth {
		return vmerr.StackOverflow(ip)
	}
	s.cells = append(s.cells, w)
	return nil
}

// Pop removes and returns the top Word, faulting with StackUnderflow on
// an empty stack.
func (s *Stack) Pop(ip int64) (word.Word, *vmerr.Fault) {
	if len(s.cells) == 0 {
		return 0, vmerr.StackUnderflow(ip)
	}
	top := s.cells[len(s.cells)-1]
	s.cells = s.cells[:len(s.cells)-1]
	return top, nil
}

// Peek returns the top Word without removing it.
func (s *Stack) Peek(ip int64) (word.Word, *vmerr.Fault) {
	if len(s.cells) == 0 {
		return 0, vmerr.StackUnderflow(ip)
	}
	return s.cells[len(s.cells)-1], nil
}

// At returns the Word at the given absolute stack index (0 = bottom),
// used by the frame machine to address slots relative to FP.
func (s *Stack) At(ip int64, idx int) (word.Word, *vmerr.Fault) {
	if idx < 0 || idx >= len(s.cells) {
		return 0, vmerr.Bounds(vmerr.PhaseExec, ip, "stack", idx, len(s.cells))
	}
	return s.cells[idx], nil
}

// Set overwrites the Word at the given absolute stack index.
func (s *Stack) Set(ip int64, idx int, w word.Word) *vmerr.Fault {
	if idx < 0 || idx >= len(s.cells) {
		return vmerr.Bounds(vmerr.PhaseExec, ip, "stack", idx, len(s.cells))
	}
	s.cells[idx] = w
	return nil
}

// Truncate discards every Word at index n and above, leaving n Words.
func (s *Stack) Truncate(n int) {
	s.cells = s.cells[:n]
}

// Snapshot returns a copy of the live cells, top-last — used only by the
// debug TUI to render the stack, never by the interpreter's hot path.
func (s *Stack) Snapshot() []word.Word {
	out := make([]word.Word, len(s.cells))
	copy(out, s.cells)
	return out
}
