package class

import (
	"strconv"

	"github.com/corevm/stackvm/vm/vmerr"
)

// Registry holds every class loaded from the binary, addressable both by
// its position in the binary's class table (used by NEW and v-table
// construction) and by name (used by field/method identification), per
// spec §4.2.
type Registry struct {
	byIndex []*Info
	byName  map[string]*Info
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Info)}
}

// Register copies info (computing its field layout first), sets its Index
// to its registration position, and records both the index→name and
// name→Info associations.
func (r *Registry) Register(info Info) *Info {
	info.ComputeLayout()
	info.Index = len(r.byIndex)
	stored := info
	r.byIndex = append(r.byIndex, &stored)
	r.byName[stored.Name] = &stored
	return &stored
}

// ByIndex returns the class registered at the binary's class-table index i.
func (r *Registry) ByIndex(i int) (*Info, bool) {
	if i < 0 || i >= len(r.byIndex) {
		return nil, false
	}
	return r.byIndex[i], true
}

// ByName returns the class registered under name.
func (r *Registry) ByName(name string) (*Info, bool) {
	c, ok := r.byName[name]
	return c, ok
}

// Len returns the number of registered classes.
func (r *Registry) Len() int { return len(r.byIndex) }

// All returns every registered class in binary class-table order.
func (r *Registry) All() []*Info { return r.byIndex }

// Superclass resolves c's superclass, if any.
func (r *Registry) Superclass(c *Info) (*Info, bool) {
	if c.Superclass < 0 {
		return nil, false
	}
	return r.ByIndex(int(c.Superclass))
}

// RequireByIndex resolves a class index, producing a BoundsFault when out
// of range.
func (r *Registry) RequireByIndex(ip int64, idx int) (*Info, *vmerr.Fault) {
	c, ok := r.ByIndex(idx)
	if !ok {
		return nil, vmerr.Bounds(vmerr.PhaseExec, ip, "class", idx, r.Len())
	}
	return c, nil
}

// Describe renders a class's field and method layout as human-readable
// lines. This is the "reflection beyond what class metadata trivially
// exposes" the spec's Non-goals explicitly still permit (SPEC_FULL §4.2);
// it is read-only and touches nothing the interpreter depends on.
func (r *Registry) Describe(name string) ([]string, bool) {
	c, ok := r.ByName(name)
	if !ok {
		return nil, false
	}
	var lines []string
	super := "<none>"
	if sc, ok := r.Superclass(c); ok {
		super = sc.Name
	}
	lines = append(lines, "class "+c.Name+" extends "+super+" (size="+strconv.Itoa(c.ObjectSize)+")")
	for i, f := range c.Fields {
		lines = append(lines, "  field["+strconv.Itoa(i)+"] "+f.Name+" : "+fieldTypeName(f.Type)+" @ "+strconv.Itoa(c.FieldOffsets[i]))
	}
	for i, m := range c.VTable {
		lines = append(lines, "  vtable["+strconv.Itoa(i)+"] "+m.Name+" -> "+strconv.Itoa(int(m.BytecodeOffset)))
	}
	return lines, true
}

func fieldTypeName(t FieldType) string {
	switch t {
	case TypeINT:
		return "INT"
	case TypeOBJECT:
		return "OBJECT"
	case TypeFLOAT:
		return "FLOAT"
	case TypeCHAR:
		return "CHAR"
	default:
		return "?"
	}
}
