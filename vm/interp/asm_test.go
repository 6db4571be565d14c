package interp

import "encoding/binary"

// asm is a tiny bytecode assembler used only by this package's own tests,
// so scenario tests read as instruction sequences instead of raw hex.
type asm struct {
	buf []byte
}

func (a *asm) u8(v byte) *asm  { a.buf = append(a.buf, v); return a }
func (a *asm) u16(v uint16) *asm {
	a.buf = binary.LittleEndian.AppendUint16(a.buf, v)
	return a
}
func (a *asm) u32(v uint32) *asm {
	a.buf = binary.LittleEndian.AppendUint32(a.buf, v)
	return a
}

func (a *asm) Push(v int32) *asm  { return a.u8(byte(PUSH)).u32(uint32(v)) }
func (a *asm) FPush(bits uint32) *asm { return a.u8(byte(FPUSH)).u32(bits) }
func (a *asm) Pop() *asm          { return a.u8(byte(POP)) }
func (a *asm) IAdd() *asm         { return a.u8(byte(IADD)) }
func (a *asm) FAdd() *asm         { return a.u8(byte(FADD)) }
func (a *asm) FMul() *asm         { return a.u8(byte(FMUL)) }
func (a *asm) FNeg() *asm         { return a.u8(byte(FNEG)) }
func (a *asm) Load(idx uint32) *asm  { return a.u8(byte(LOAD)).u32(idx) }
func (a *asm) Store(idx uint32) *asm { return a.u8(byte(STORE)).u32(idx) }
func (a *asm) LoadArg(k byte) *asm   { return a.u8(byte(LOAD_ARG)).u8(k) }
func (a *asm) Call(target uint32, argCount byte) *asm {
	return a.u8(byte(CALL)).u32(target).u8(argCount)
}
func (a *asm) Ret() *asm { return a.u8(byte(RET)) }
func (a *asm) New(classIdx byte) *asm      { return a.u8(byte(NEW)).u8(classIdx) }
func (a *asm) GetField(idx byte) *asm      { return a.u8(byte(GETFIELD)).u8(idx) }
func (a *asm) PutField(idx byte) *asm      { return a.u8(byte(PUTFIELD)).u8(idx) }
func (a *asm) InvokeVirtual(vtableIdx uint32, argCount byte) *asm {
	return a.u8(byte(INVOKEVIRTUAL)).u32(vtableIdx).u8(argCount)
}
func (a *asm) NewArray(elemType byte) *asm { return a.u8(byte(NEWARRAY)).u8(elemType) }
func (a *asm) AStore() *asm                { return a.u8(byte(ASTORE)) }
func (a *asm) ALoad() *asm                 { return a.u8(byte(ALOAD)) }
func (a *asm) SysCall(sub SyscallOp) *asm  { return a.u8(byte(SYS_CALL)).u8(byte(sub)) }

func (a *asm) bytes() []byte { return a.buf }

// appendName writes a 1-byte length prefix followed by the name's ASCII
// bytes, the class-metadata name convention (spec §4.1).
func appendName(buf []byte, name string) []byte {
	buf = append(buf, byte(len(name)))
	return append(buf, name...)
}

type testField struct {
	name string
	typ  byte
}

type testMethod struct {
	name   string
	offset uint32
}

type testClass struct {
	name       string
	superclass int32
	fields     []testField
	methods    []testMethod
}

func encodeClasses(classes []testClass) []byte {
	var buf []byte
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(classes)))
	for _, c := range classes {
		buf = appendName(buf, c.name)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(c.superclass))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(c.fields)))
		for _, f := range c.fields {
			buf = appendName(buf, f.name)
			buf = append(buf, f.typ)
		}
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(c.methods)))
		for _, m := range c.methods {
			buf = appendName(buf, m.name)
			buf = binary.LittleEndian.AppendUint32(buf, m.offset)
		}
	}
	return buf
}

// buildBinary lays out header|constants|globals|code|classmeta
// sequentially, matching the loader's expected section order (spec §4.1).
func buildBinary(entryPoint uint32, code []byte, classes []testClass) []byte {
	const headerSize = 44
	classBytes := encodeClasses(classes)

	constOff := uint32(headerSize)
	globalsOff := constOff
	codeOff := globalsOff
	classOff := codeOff + uint32(len(code))

	h := make([]byte, headerSize)
	copy(h[0:4], []byte{0x56, 0x4D, 0x00, 0x01})
	binary.LittleEndian.PutUint32(h[4:8], 1)
	binary.LittleEndian.PutUint32(h[8:12], entryPoint)
	binary.LittleEndian.PutUint32(h[12:16], constOff)
	binary.LittleEndian.PutUint32(h[16:20], 0)
	binary.LittleEndian.PutUint32(h[20:24], codeOff)
	binary.LittleEndian.PutUint32(h[24:28], uint32(len(code)))
	binary.LittleEndian.PutUint32(h[28:32], globalsOff)
	binary.LittleEndian.PutUint32(h[32:36], 0)
	binary.LittleEndian.PutUint32(h[36:40], classOff)
	binary.LittleEndian.PutUint32(h[40:44], uint32(len(classBytes)))

	var out []byte
	out = append(out, h...)
	out = append(out, code...)
	out = append(out, classBytes...)
	return out
}
