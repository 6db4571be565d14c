// Package vmctx assembles a loaded Program with a frame Machine, a
// Heap, and a host file-descriptor table into one runnable VM context,
// and owns its teardown (spec §5 memory policy, §6 CLI).
package vmctx

import (
	"os"

	"go.uber.org/multierr"

	"github.com/corevm/stackvm/vm/hostio"
	"github.com/corevm/stackvm/vm/interp"
	"github.com/corevm/stackvm/vm/loader"
	"github.com/corevm/stackvm/vm/vmerr"
)

// Context owns a VM's lifetime from loaded binary to teardown.
type Context struct {
	VM      *interp.VM
	Program *loader.Program
	FDs     *hostio.Table
}

// Open loads path and wires it to an os-backed host, pre-binding the
// process's own stdin/stdout/stderr to FD table slots 0/1/2 (spec §3
// file-descriptor table).
func Open(path string) (*Context, *vmerr.Fault) {
	prog, err := loader.LoadFile(path)
	if err != nil {
		return nil, err
	}

	fds := hostio.NewTable(hostio.NewOSHost(), os.Stdin, os.Stdout, os.Stderr)

	return &Context{
		VM:      interp.New(prog, fds),
		Program: prog,
		FDs:     fds,
	}, nil
}

// Run executes the loaded program to completion, returning its exit
// code and any fault that terminated it early (spec §6: "Exit code 0 on
// normal RET at base frame, the value supplied to SYS_EXIT, or 1 on any
// fault/loader failure").
func (c *Context) Run() (int, *vmerr.Fault) {
	return c.VM.Run()
}

// Close releases every resource the context acquired: host file
// descriptors above 2 still open at teardown (spec §5 memory policy).
// The heap table itself needs no release — it is a Go slice reclaimed
// by the garbage collector once the Context is no longer reachable;
// unlike the file-descriptor table, it holds no non-Go resources.
// Errors from individual descriptors are batched with multierr rather
// than reporting only the first failure; multierr is already pulled in
// transitively through zap, so this promotes it to a direct dependency
// instead of hand-rolling the same joined-error behavior.
func (c *Context) Close() error {
	var err error
	for _, cerr := range c.FDs.CloseAll() {
		err = multierr.Append(err, cerr)
	}
	return err
}
