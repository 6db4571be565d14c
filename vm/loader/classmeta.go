package loader

import (
	"github.com/corevm/stackvm/vm/class"
	"github.com/corevm/stackvm/vm/loader/internal/bitreader"
	"github.com/corevm/stackvm/vm/vmerr"
)

// parseClassMetadata decodes the class-metadata section (spec §4.1):
// a u32 classCount, then per class a length-prefixed name, a signed
// superclass index, a field table, and a method table. The cursor must
// land exactly on metadata-end or the section is MalformedMetadata.
func parseClassMetadata(section []byte) ([]class.Info, *vmerr.Fault) {
	if len(section) == 0 {
		return nil, nil
	}

	r := bitreader.New(section)
	count, err := r.U32()
	if err != nil {
		return nil, vmerr.MalformedMetadata("read class count: %v", err)
	}

	classes := make([]class.Info, 0, count)
	for i := uint32(0); i < count; i++ {
		ci, ferr := parseOneClass(r, int(i))
		if ferr != nil {
			return nil, ferr
		}
		classes = append(classes, ci)
	}

	if r.Remaining() != 0 {
		return nil, vmerr.MalformedMetadata("cursor at %d, expected exactly %d bytes", r.Position(), len(section))
	}
	return classes, nil
}

func parseOneClass(r *bitreader.Reader, index int) (class.Info, *vmerr.Fault) {
	var ci class.Info
	name, err := r.Name()
	if err != nil {
		return ci, vmerr.MalformedMetadata("class %d: read name: %v", index, err)
	}
	super, err := r.I32()
	if err != nil {
		return ci, vmerr.MalformedMetadata("class %q: read superclass index: %v", name, err)
	}
	fieldCount, err := r.U32()
	if err != nil {
		return ci, vmerr.MalformedMetadata("class %q: read field count: %v", name, err)
	}

	fields := make([]class.FieldInfo, 0, fieldCount)
	for i := uint32(0); i < fieldCount; i++ {
		fname, err := r.Name()
		if err != nil {
			return ci, vmerr.MalformedMetadata("class %q: field %d: read name: %v", name, i, err)
		}
		ftype, err := r.U8()
		if err != nil {
			return ci, vmerr.MalformedMetadata("class %q: field %d: read type: %v", name, i, err)
		}
		fields = append(fields, class.FieldInfo{Name: fname, Type: class.FieldType(ftype)})
	}

	methodCount, err := r.U32()
	if err != nil {
		return ci, vmerr.MalformedMetadata("class %q: read method count: %v", name, err)
	}
	methods := make([]class.MethodInfo, 0, methodCount)
	for i := uint32(0); i < methodCount; i++ {
		mname, err := r.Name()
		if err != nil {
			return ci, vmerr.MalformedMetadata("class %q: method %d: read name: %v", name, i, err)
		}
		offset, err := r.U32()
		if err != nil {
			return ci, vmerr.MalformedMetadata("class %q: method %d: read offset: %v", name, i, err)
		}
		methods = append(methods, class.MethodInfo{Name: mname, BytecodeOffset: offset, IsVirtual: true})
	}

	ci.Name = name
	ci.Superclass = super
	ci.Fields = fields
	ci.Methods = methods
	ci.Index = index
	return ci, nil
}
