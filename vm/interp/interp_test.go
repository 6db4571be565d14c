package interp

import (
	"bytes"
	"math"
	"testing"

	"github.com/corevm/stackvm/vm/class"
	"github.com/corevm/stackvm/vm/hostio"
	"github.com/corevm/stackvm/vm/loader"
)

func mustLoad(t *testing.T, data []byte) *loader.Program {
	t.Helper()
	p, err := loader.Load(data)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return p
}

func fakeFDs() *hostio.Table {
	return hostio.NewTable(hostio.NewOSHost(), nil, nil, nil)
}

// TestIntegerAdd is scenario S1: PUSH 3; PUSH 7; IADD; RET, expected
// terminal stack top 10.
func TestIntegerAdd(t *testing.T) {
	code := new(asm).Push(3).Push(7).IAdd().Ret().bytes()
	p := mustLoad(t, buildBinary(0, code, nil))
	vm := New(p, fakeFDs())

	code2, fault := vm.Run()
	if fault != nil {
		t.Fatalf("Run: %v", fault)
	}
	if code2 != 0 {
		t.Fatalf("exit code = %d, want 0", code2)
	}
	top, err := vm.Machine.Stack.Peek(0)
	if err != nil {
		t.Fatalf("Peek: %v", err)
	}
	if top.Int32() != 10 {
		t.Errorf("stack top = %d, want 10", top.Int32())
	}
}

// TestFunctionCall is scenario S2: a 3-argument function call summing
// its arguments, plus 3 more added after return. Expected terminal top
// 18 — commutative addition means the LOAD_ARG-to-push-order mapping
// doesn't change the result.
func TestFunctionCall(t *testing.T) {
	main := new(asm).Push(3).Push(7).Push(5)
	// sum's entry point is wherever it lands after main; compute once
	// main's prefix length is fixed below.
	mainPrefixLen := len(main.bytes())
	callInstrLen := 6 // CALL <u32><u8>
	sumOffset := uint32(mainPrefixLen + callInstrLen + len(new(asm).Push(3).bytes()) + 1 /*IADD*/ + 1 /*RET*/)

	main.Call(sumOffset, 3).Push(3).IAdd().Ret()
	sum := new(asm).LoadArg(0).LoadArg(1).IAdd().LoadArg(2).IAdd().Ret()

	code := append(main.bytes(), sum.bytes()...)
	if uint32(len(code)) < sumOffset+uint32(len(sum.bytes())) {
		t.Fatalf("computed sumOffset %d does not match assembled layout", sumOffset)
	}

	p := mustLoad(t, buildBinary(0, code, nil))
	vm := New(p, fakeFDs())

	exitCode, fault := vm.Run()
	if fault != nil {
		t.Fatalf("Run: %v", fault)
	}
	if exitCode != 0 {
		t.Fatalf("exit code = %d, want 0", exitCode)
	}
	top, err := vm.Machine.Stack.Peek(0)
	if err != nil {
		t.Fatalf("Peek: %v", err)
	}
	if top.Int32() != 18 {
		t.Errorf("stack top = %d, want 18", top.Int32())
	}
}

// TestFloatCallPipeline exercises FPUSH/FADD/FMUL/FNEG across a CALL/RET
// boundary, in the spirit of scenario S3, with operands chosen to be
// exactly representable in binary32 so the expected result needs no
// tolerance comparison.
func TestFloatCallPipeline(t *testing.T) {
	main := new(asm).
		FPush(math.Float32bits(2.0)).
		FPush(math.Float32bits(3.0)).
		FPush(math.Float32bits(4.0))
	mainPrefixLen := len(main.bytes())
	callInstrLen := 6
	fOffset := uint32(mainPrefixLen + callInstrLen + 1 /*RET*/)

	main.Call(fOffset, 3).Ret()
	// f(a=arg0=4.0, b=arg1=3.0, c=arg2=2.0) = -((a+b)*c) = -((4+3)*2) = -14
	f := new(asm).LoadArg(0).LoadArg(1).FAdd().LoadArg(2).FMul().FNeg().Ret()

	code := append(main.bytes(), f.bytes()...)
	_ = fOffset

	p := mustLoad(t, buildBinary(0, code, nil))
	vm := New(p, fakeFDs())

	exitCode, fault := vm.Run()
	if fault != nil {
		t.Fatalf("Run: %v", fault)
	}
	if exitCode != 0 {
		t.Fatalf("exit code = %d, want 0", exitCode)
	}
	top, err := vm.Machine.Stack.Peek(0)
	if err != nil {
		t.Fatalf("Peek: %v", err)
	}
	if top.Float32() != -14.0 {
		t.Errorf("stack top = %v, want -14.0", top.Float32())
	}
}

// TestObjectAndField is scenario S4: Point{x,y int fields}, NEW + STORE +
// PUTFIELD/GETFIELD + IADD. Expected terminal top 30.
func TestObjectAndField(t *testing.T) {
	code := new(asm).
		New(0).
		Store(0).
		Load(0).Push(10).PutField(0).
		Load(0).Push(20).PutField(1).
		Load(0).GetField(0).
		Load(0).GetField(1).
		IAdd().
		Ret().
		bytes()

	classes := []testClass{
		{name: "Point", superclass: -1, fields: []testField{
			{"x", byte(class.TypeINT)},
			{"y", byte(class.TypeINT)},
		}},
	}

	p := mustLoad(t, buildBinary(0, code, classes))
	vm := New(p, fakeFDs())

	exitCode, fault := vm.Run()
	if fault != nil {
		t.Fatalf("Run: %v", fault)
	}
	if exitCode != 0 {
		t.Fatalf("exit code = %d, want 0", exitCode)
	}
	top, err := vm.Machine.Stack.Peek(0)
	if err != nil {
		t.Fatalf("Peek: %v", err)
	}
	if top.Int32() != 30 {
		t.Errorf("stack top = %d, want 30", top.Int32())
	}
}

// TestVirtualDispatch is scenario S5: Derived overrides Base.foo; NEW
// Derived; INVOKEVIRTUAL 0,0 dispatches to Derived.foo. Expected
// terminal top bits(2.0).
func TestVirtualDispatch(t *testing.T) {
	main := new(asm).New(1).InvokeVirtual(0, 0).Ret()
	mainLen := len(main.bytes())

	baseFoo := new(asm).FPush(math.Float32bits(1.0)).Ret()
	baseFooOffset := uint32(mainLen)

	derivedFoo := new(asm).FPush(math.Float32bits(2.0)).Ret()
	derivedFooOffset := baseFooOffset + uint32(len(baseFoo.bytes()))

	code := append(main.bytes(), baseFoo.bytes()...)
	code = append(code, derivedFoo.bytes()...)

	classes := []testClass{
		{name: "Base", superclass: -1, methods: []testMethod{{"foo", baseFooOffset}}},
		{name: "Derived", superclass: 0, methods: []testMethod{{"foo", derivedFooOffset}}},
	}

	p := mustLoad(t, buildBinary(0, code, classes))
	vm := New(p, fakeFDs())

	exitCode, fault := vm.Run()
	if fault != nil {
		t.Fatalf("Run: %v", fault)
	}
	if exitCode != 0 {
		t.Fatalf("exit code = %d, want 0", exitCode)
	}
	top, err := vm.Machine.Stack.Peek(0)
	if err != nil {
		t.Fatalf("Peek: %v", err)
	}
	if top.Float32() != 2.0 {
		t.Errorf("stack top = %v, want 2.0", top.Float32())
	}
}

// fakeHost is an in-memory HostIO used in place of the real filesystem
// for the syscall bridge tests — a fixed set of named byte buffers,
// analogous in spirit to fstest.MapFS.
type fakeHost struct {
	files map[string]*bytes.Buffer
}

func newFakeHost() *fakeHost {
	return &fakeHost{files: make(map[string]*bytes.Buffer)}
}

func (h *fakeHost) Open(path string, mode byte) (any, error) {
	buf, ok := h.files[path]
	if !ok {
		buf = &bytes.Buffer{}
		h.files[path] = buf
	}
	if mode == 'w' {
		buf.Reset()
	}
	return buf, nil
}

func (h *fakeHost) Read(handle any, p []byte) (int, error) {
	return handle.(*bytes.Buffer).Read(p)
}

func (h *fakeHost) Write(handle any, p []byte) (int, error) {
	return handle.(*bytes.Buffer).Write(p)
}

func (h *fakeHost) Close(handle any) error { return nil }

// TestFileRoundTrip is scenario S6: write "Hello, World!" to a named
// file, then read it back and write it to stdout (fd 1).
func TestFileRoundTrip(t *testing.T) {
	const (
		filenameLocal = 0
		dataLocal     = 1
		writeFDLocal  = 2
		readFDLocal   = 3
		bufLocal      = 4
	)

	filename := "test.txt\x00"
	payload := "Hello, World!"

	a := new(asm)
	// Build the filename CHAR array into local 0.
	a.Push(int32(len(filename))).NewArray(byte(class.TypeCHAR)).Store(filenameLocal)
	for i, ch := range []byte(filename) {
		a.Load(filenameLocal).Push(int32(i)).Push(int32(ch)).AStore()
	}
	// Build the payload CHAR array into local 1.
	a.Push(int32(len(payload))).NewArray(byte(class.TypeCHAR)).Store(dataLocal)
	for i, ch := range []byte(payload) {
		a.Load(dataLocal).Push(int32(i)).Push(int32(ch)).AStore()
	}

	// SYS_OPEN('w', filename) -> fd, stored in local 2.
	a.Load(filenameLocal).Push(int32('w')).SysCall(SysOpen).Store(writeFDLocal)
	// SYS_WRITE(fd, len(payload), dataLocal): push localIdx, size, fd.
	a.Push(int32(dataLocal)).Push(int32(len(payload))).Load(writeFDLocal).SysCall(SysWrite).Pop()
	// SYS_CLOSE(fd).
	a.Load(writeFDLocal).SysCall(SysClose).Pop()

	// SYS_OPEN('r', filename) -> fd, stored in local 3.
	a.Load(filenameLocal).Push(int32('r')).SysCall(SysOpen).Store(readFDLocal)
	// SYS_READ(fd, size, bufLocal): push localIdx, size, fd.
	a.Push(int32(bufLocal)).Push(int32(len(payload))).Load(readFDLocal).SysCall(SysRead).Pop()
	// SYS_CLOSE(read fd).
	a.Load(readFDLocal).SysCall(SysClose).Pop()

	// SYS_WRITE(stdout=1, len(payload), bufLocal) to stdout.
	a.Push(int32(bufLocal)).Push(int32(len(payload))).Push(int32(1)).SysCall(SysWrite).Pop()

	// SYS_EXIT 0.
	a.Push(0).SysCall(SysExit)

	p := mustLoad(t, buildBinary(0, a.bytes(), nil))

	host := newFakeHost()
	stdout := &bytes.Buffer{}
	fds := hostio.NewTable(host, nil, stdout, nil)
	vm := New(p, fds)

	exitCode, fault := vm.Run()
	if fault != nil {
		t.Fatalf("Run: %v", fault)
	}
	if exitCode != 0 {
		t.Fatalf("exit code = %d, want 0", exitCode)
	}
	if got := stdout.String(); got != payload {
		t.Errorf("stdout = %q, want %q", got, payload)
	}
}

// TestDivisionByZeroFault confirms IDIV by zero raises a fault rather
// than panicking.
func TestDivisionByZeroFault(t *testing.T) {
	code := new(asm).Push(1).Push(0).u8(byte(IDIV)).Ret().bytes()
	p := mustLoad(t, buildBinary(0, code, nil))
	vm := New(p, fakeFDs())

	if _, fault := vm.Run(); fault == nil {
		t.Fatal("Run: want ArithmeticFault on division by zero, got nil")
	}
}

// TestStackOverflowFault confirms pushing past MaxDepth faults cleanly.
func TestStackOverflowFault(t *testing.T) {
	a := new(asm)
	for i := 0; i < 1025; i++ {
		a.Push(1)
	}
	a.Ret()

	p := mustLoad(t, buildBinary(0, a.bytes(), nil))
	vm := New(p, fakeFDs())

	if _, fault := vm.Run(); fault == nil {
		t.Fatal("Run: want StackOverflow fault, got nil")
	}
}

// TestUnknownOpcodeFault confirms an undefined primary opcode, and the
// reserved INVOKESPECIAL opcode, both fault instead of executing.
func TestUnknownOpcodeFault(t *testing.T) {
	tests := []struct {
		name string
		op   byte
	}{
		{"undefined byte", 0xFF},
		{"reserved INVOKESPECIAL", byte(INVOKESPECIAL)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code := []byte{tc.op}
			p := mustLoad(t, buildBinary(0, code, nil))
			vm := New(p, fakeFDs())
			if _, fault := vm.Run(); fault == nil {
				t.Fatalf("Run: want fault for opcode 0x%02x, got nil", tc.op)
			}
		})
	}
}
