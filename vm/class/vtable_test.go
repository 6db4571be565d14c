package class

import "testing"

func newClass(r *Registry, name string, super int32, methods ...MethodInfo) *Info {
	return r.Register(Info{Name: name, Superclass: super, Methods: methods})
}

func TestBuildAllOverrideByName(t *testing.T) {
	r := NewRegistry()
	base := newClass(r, "Base", -1,
		MethodInfo{Name: "speak", BytecodeOffset: 10},
		MethodInfo{Name: "walk", BytecodeOffset: 20},
	)
	derived := newClass(r, "Derived", int32(base.Index),
		MethodInfo{Name: "speak", BytecodeOffset: 99},
		MethodInfo{Name: "run", BytecodeOffset: 30},
	)

	if err := BuildAll(r); err != nil {
		t.Fatalf("BuildAll: %v", err)
	}

	if len(base.VTable) != 2 {
		t.Fatalf("base vtable len = %d, want 2", len(base.VTable))
	}

	if len(derived.VTable) != 3 {
		t.Fatalf("derived vtable len = %d, want 3 (override + inherited + appended)", len(derived.VTable))
	}
	if derived.VTable[0].Name != "speak" || derived.VTable[0].BytecodeOffset != 99 {
		t.Errorf("derived.VTable[0] = %+v, want overridden speak@99", derived.VTable[0])
	}
	if derived.VTable[1].Name != "walk" || derived.VTable[1].BytecodeOffset != 20 {
		t.Errorf("derived.VTable[1] = %+v, want inherited walk@20", derived.VTable[1])
	}
	if derived.VTable[2].Name != "run" {
		t.Errorf("derived.VTable[2].Name = %q, want run appended last", derived.VTable[2].Name)
	}
}

func TestBuildAllDetectsCycle(t *testing.T) {
	r := NewRegistry()
	a := newClass(r, "A", 1)
	_ = newClass(r, "B", int32(a.Index))
	// Patch A's superclass to point at B, forming a cycle A -> B -> A.
	a.Superclass = int32(r.byIndex[1].Index)

	if err := BuildAll(r); err == nil {
		t.Fatal("BuildAll: want MalformedMetadata fault on superclass cycle, got nil")
	}
}

func TestBuildAllUnknownSuperclass(t *testing.T) {
	r := NewRegistry()
	newClass(r, "Orphan", 7)

	if err := BuildAll(r); err == nil {
		t.Fatal("BuildAll: want fault on unresolvable superclass index, got nil")
	}
}
