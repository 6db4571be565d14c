package loader

import (
	"os"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/corevm/stackvm/vm/class"
	"github.com/corevm/stackvm/vm/vmerr"
	"github.com/corevm/stackvm/vm/word"
)

// Program is the fully decoded, loaded binary: code, constants, globals,
// and a populated class Registry with finalised v-tables (spec §2 data
// flow: "the loader populates the code buffer, constants, globals ...
// and class table; the class registry computes layouts; the v-table
// builder finalises dispatch tables").
type Program struct {
	EntryPoint uint32
	Code       []byte
	constants  []word.Word
	globals    []word.Word
	Registry   *class.Registry
}

// Constants returns the read-only constant pool. The current opcode set
// never reads it (spec §3), but it must be loaded and held available for
// a producer or a future opcode to address by index.
func (p *Program) Constants() []word.Word { return p.constants }

// Globals returns the globals section, used to pre-populate the locals
// region (spec §3 Locals: "pre-populated from the globals section").
func (p *Program) Globals() []word.Word { return p.globals }

// Load parses a complete in-memory binary image into a Program.
func Load(data []byte) (*Program, *vmerr.Fault) {
	h, err := parseHeader(data)
	if err != nil {
		return nil, err
	}

	p := &Program{
		EntryPoint: h.EntryPoint,
		Code:       data[h.CodeOffset : h.CodeOffset+h.CodeSize],
		constants:  wordsOf(data[h.ConstOffset : h.ConstOffset+h.ConstSize]),
		globals:    wordsOf(data[h.GlobalsOffset : h.GlobalsOffset+h.GlobalsSize]),
	}

	classes, err := parseClassMetadata(data[h.ClassOffset : h.ClassOffset+h.ClassSize])
	if err != nil {
		return nil, err
	}

	registry := class.NewRegistry()
	for _, ci := range classes {
		registry.Register(ci)
	}
	if err := class.BuildAll(registry); err != nil {
		return nil, err
	}
	p.Registry = registry

	return p, nil
}

// LoadFile reads a binary executable from disk and loads it. Files at or
// above mmapThreshold are memory-mapped read-only instead of copied into
// a heap buffer, the way the pack's PE loader avoids a full read() for
// large inputs; smaller files are read normally since mmap's per-call
// overhead dominates below that size.
const mmapThreshold = 64 * 1024

func LoadFile(path string) (*Program, *vmerr.Fault) {
	f, oerr := os.Open(path)
	if oerr != nil {
		return nil, vmerr.InvalidBinary("open %q: %v", path, oerr)
	}
	defer f.Close()

	st, serr := f.Stat()
	if serr != nil {
		return nil, vmerr.InvalidBinary("stat %q: %v", path, serr)
	}

	if st.Size() >= mmapThreshold {
		m, merr := mmap.Map(f, mmap.RDONLY, 0)
		if merr != nil {
			return nil, vmerr.InvalidBinary("mmap %q: %v", path, merr)
		}
		// Copy out of the mapping before unmapping: Program.Code is held
		// for the VM's entire run, well past this function's return.
		data := make([]byte, len(m))
		copy(data, m)
		if uerr := m.Unmap(); uerr != nil {
			return nil, vmerr.InvalidBinary("munmap %q: %v", path, uerr)
		}
		return Load(data)
	}

	data, rerr := os.ReadFile(path)
	if rerr != nil {
		return nil, vmerr.InvalidBinary("read %q: %v", path, rerr)
	}
	return Load(data)
}

func wordsOf(b []byte) []word.Word {
	n := len(b) / 4
	out := make([]word.Word, n)
	for i := 0; i < n; i++ {
		out[i] = word.FromBytes(b[i*4 : i*4+4])
	}
	return out
}
