// Package class implements the class registry, field-offset layout engine,
// and v-table builder of the single-inheritance object model (spec §3, §4.2,
// §4.3).
package class

// FieldType is the declared type of a field, driving its storage size.
type FieldType byte

const (
	TypeINT    FieldType = iota // 4 bytes
	TypeOBJECT                  // 4 bytes, heap index
	TypeFLOAT                   // 4 bytes
	TypeCHAR                    // 1 byte
)

// Size returns the storage size in bytes for the field type, per the
// spec §3 layout invariant's {INT=4, OBJECT=4, FLOAT=4, CHAR=1} table.
func (t FieldType) Size() int {
	switch t {
	case TypeCHAR:
		return 1
	default:
		return 4
	}
}

// FieldInfo describes one declared field of a class.
type FieldInfo struct {
	Name string
	Type FieldType
}

// MethodInfo describes one declared (virtual) method of a class.
type MethodInfo struct {
	Name           string
	BytecodeOffset uint32
	IsVirtual      bool
}

// Info is the per-class metadata record: name, superclass link, fields,
// methods, computed layout, and the finalised v-table.
type Info struct {
	Name       string
	Superclass int32 // -1 = none
	Fields     []FieldInfo
	Methods    []MethodInfo

	Index int // position in the binary's class table

	// Computed by the layout engine (ComputeLayout).
	FieldOffsets []int // offset(i) for fields[i]
	ObjectSize   int   // cumulative size of all fields

	// Computed by the v-table builder (BuildAll). Nil until built.
	VTable []*MethodInfo

	vtableColor color // cycle-detection mark, see vtable.go
}

type color byte

const (
	colorWhite color = iota
	colorGrey
	colorBlack
)

// ComputeLayout fills FieldOffsets and ObjectSize per the spec §3 layout
// invariant: offset(i) is the cumulative size of fields[0..i); field
// layout is NOT inherited, each class's body covers only its own
// declared fields.
func (c *Info) ComputeLayout() {
	c.FieldOffsets = make([]int, len(c.Fields))
	off := 0
	for i, f := range c.Fields {
		c.FieldOffsets[i] = off
		off += f.Type.Size()
	}
	c.ObjectSize = off
}
