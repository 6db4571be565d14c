// Package vmerr provides the structured fault type used across the VM.
//
// Every fault the VM can raise, at load time or at run time, is a terminal
// *Fault rather than an ad-hoc error: the runtime never recovers from one,
// it reports it and stops (spec §7).
package vmerr

import (
	"fmt"
	"strings"
)

// Phase locates where in the VM's lifecycle a fault occurred.
type Phase string

const (
	PhaseLoad    Phase = "load"    // binary/header/class-metadata parsing
	PhaseLayout  Phase = "layout"  // field offset / v-table construction
	PhaseExec    Phase = "exec"    // instruction fetch-and-dispatch
	PhaseSyscall Phase = "syscall" // SYS_CALL bridge
)

// Kind is the spec §7 fault taxonomy. Every Kind is terminal.
type Kind string

const (
	KindInvalidBinary     Kind = "InvalidBinary"
	KindMalformedMetadata Kind = "MalformedMetadata"
	KindStackOverflow     Kind = "StackOverflow"
	KindStackUnderflow    Kind = "StackUnderflow"
	KindBoundsFault       Kind = "BoundsFault"
	KindArithmeticFault   Kind = "ArithmeticFault"
	KindUnknownOpcode     Kind = "UnknownOpcode"
	KindHostIoFault       Kind = "HostIoFault"
)

// Fault is the single structured error type every VM package constructs
// its errors through.
type Fault struct {
	Cause  error
	Detail string
	Phase  Phase
	Kind   Kind
	IP     int64 // faulting instruction pointer, -1 if not applicable
}

// Error implements the error interface.
func (f *Fault) Error() string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(string(f.Phase))
	b.WriteString("] ")
	b.WriteString(string(f.Kind))
	if f.IP >= 0 {
		fmt.Fprintf(&b, " at ip=%d", f.IP)
	}
	if f.Detail != "" {
		b.WriteString(": ")
		b.WriteString(f.Detail)
	}
	if f.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(f.Cause.Error())
		b.WriteByte(')')
	}
	return b.String()
}

// Unwrap returns the underlying cause, if any.
func (f *Fault) Unwrap() error {
	return f.Cause
}

// Is reports whether target is a *Fault with the same Kind.
func (f *Fault) Is(target error) bool {
	t, ok := target.(*Fault)
	if !ok {
		return false
	}
	return f.Kind == t.Kind
}

// Builder assembles a Fault field by field, mirroring the teacher's
// error-builder pattern.
type Builder struct {
	f Fault
}

// New starts a fault builder for the given phase and kind.
func New(phase Phase, kind Kind) *Builder {
	return &Builder{f: Fault{Phase: phase, Kind: kind, IP: -1}}
}

// IP sets the faulting instruction pointer.
func (b *Builder) IP(ip int64) *Builder {
	b.f.IP = ip
	return b
}

// Detail sets the human-readable detail message.
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.f.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.f.Detail = msg
	}
	return b
}

// Cause sets the underlying error.
func (b *Builder) Cause(err error) *Builder {
	b.f.Cause = err
	return b
}

// Build returns the constructed *Fault.
func (b *Builder) Build() *Fault {
	f := b.f
	return &f
}

// Convenience constructors used throughout the VM.

// InvalidBinary reports a load-time header/section violation.
func InvalidBinary(detail string, args ...any) *Fault {
	return New(PhaseLoad, KindInvalidBinary).Detail(detail, args...).Build()
}

// MalformedMetadata reports a class-metadata cursor or cycle violation.
func MalformedMetadata(detail string, args ...any) *Fault {
	return New(PhaseLoad, KindMalformedMetadata).Detail(detail, args...).Build()
}

// StackOverflow reports an operand-stack push past the maximum depth.
func StackOverflow(ip int64) *Fault {
	return New(PhaseExec, KindStackOverflow).IP(ip).Detail("operand stack depth exceeded").Build()
}

// StackUnderflow reports a pop from an empty operand stack.
func StackUnderflow(ip int64) *Fault {
	return New(PhaseExec, KindStackUnderflow).IP(ip).Detail("pop from empty operand stack").Build()
}

// Bounds reports an out-of-range local/field/v-table/heap/array/code index.
func Bounds(phase Phase, ip int64, what string, idx, length int) *Fault {
	return New(phase, KindBoundsFault).IP(ip).
		Detail("%s index %d out of bounds (length %d)", what, idx, length).Build()
}

// Arithmetic reports a division or modulo by zero.
func Arithmetic(ip int64, op string) *Fault {
	return New(PhaseExec, KindArithmeticFault).IP(ip).Detail("%s by zero", op).Build()
}

// UnknownOpcode reports an undefined primary or sub-opcode.
func UnknownOpcode(ip int64, opcode byte) *Fault {
	return New(PhaseExec, KindUnknownOpcode).IP(ip).Detail("opcode 0x%02x", opcode).Build()
}

// HostIO reports a syscall failure the caller has no path to observe.
func HostIO(ip int64, cause error) *Fault {
	return New(PhaseSyscall, KindHostIoFault).IP(ip).Cause(cause).Detail("host I/O operation failed").Build()
}
