package class

import "github.com/corevm/stackvm/vm/vmerr"

// BuildAll builds the v-table for every registered class, in registration
// order, per spec §4.3: for each class with an empty v-table, first
// recursively build the superclass's v-table, then apply the override/
// append invariant from §3.
func BuildAll(r *Registry) *vmerr.Fault {
	for _, c := range r.All() {
		if c.VTable == nil {
			if err := build(r, c); err != nil {
				return err
			}
		}
	}
	return nil
}

// build constructs c.VTable, detecting superclass cycles via white/grey/
// black colour marking (spec §9 design note): a grey-on-grey encounter
// during the recursive descent is MalformedMetadata.
func build(r *Registry, c *Info) *vmerr.Fault {
	if c.vtableColor == colorGrey {
		return vmerr.MalformedMetadata("superclass cycle detected at class %q", c.Name)
	}
	if c.vtableColor == colorBlack {
		return nil
	}
	c.vtableColor = colorGrey

	var base []*MethodInfo
	if c.Superclass >= 0 {
		super, ok := r.ByIndex(int(c.Superclass))
		if !ok {
			return vmerr.MalformedMetadata("class %q has unknown superclass index %d", c.Name, c.Superclass)
		}
		if super.VTable == nil {
			if err := build(r, super); err != nil {
				return err
			}
		}
		base = append(base, super.VTable...)
	}

	vt := make([]*MethodInfo, len(base))
	copy(vt, base)

	for i := range c.Methods {
		m := &c.Methods[i]
		slot := -1
		for j, existing := range vt {
			if existing.Name == m.Name {
				slot = j
				break
			}
		}
		if slot >= 0 {
			vt[slot] = m
		} else {
			vt = append(vt, m)
		}
	}

	c.VTable = vt
	c.vtableColor = colorBlack
	return nil
}
