package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/corevm/stackvm/vm/interp"
	"github.com/corevm/stackvm/vm/loader"
	"github.com/corevm/stackvm/vm/trace"
	"github.com/corevm/stackvm/vm/vmctx"
)

func main() {
	var (
		debug         bool
		disasm        bool
		traceSyscalls bool
		interactive   bool
		describeClass string
	)

	rootCmd := &cobra.Command{
		Use:   "vm <binary-file>",
		Short: "A stack-based bytecode VM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if debug || traceSyscalls {
				trace.Enable()
			}

			binPath := args[0]

			if describeClass != "" {
				return runDescribeClass(binPath, describeClass)
			}
			if disasm {
				return runDisasm(binPath)
			}
			if interactive {
				if !term.IsTerminal(int(os.Stdin.Fd())) {
					return fmt.Errorf("-i/--interactive requires a terminal on stdin")
				}
				return runInteractive(binPath)
			}
			return runExec(binPath)
		},
	}

	rootCmd.Flags().BoolVar(&debug, "debug", false, "enable the [VM DEBUG] stderr stream")
	rootCmd.Flags().BoolVar(&disasm, "disasm", false, "print the disassembly of the code segment and exit")
	rootCmd.Flags().BoolVar(&traceSyscalls, "trace-syscalls", false, "enable the [VM DEBUG] stderr stream (same stream as --debug, which includes each SYS_CALL sub-opcode and its result)")
	rootCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "step-debug the program in a TUI")
	rootCmd.Flags().StringVar(&describeClass, "describe-class", "", "print a class's field/v-table layout and exit")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runExec(path string) error {
	ctx, err := vmctx.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	code, fault := ctx.Run()
	// Close explicitly: os.Exit below would skip a deferred call.
	if cerr := ctx.Close(); cerr != nil {
		fmt.Fprintf(os.Stderr, "Error closing VM: %v\n", cerr)
	}
	if fault != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", fault)
		os.Exit(1)
	}
	os.Exit(code)
	return nil
}

func runDescribeClass(path, name string) error {
	prog, err := loader.LoadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	lines, ok := prog.Registry.Describe(name)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: no such class %q\n", name)
		os.Exit(1)
	}
	for _, l := range lines {
		fmt.Println(l)
	}
	return nil
}

func runDisasm(path string) error {
	prog, err := loader.LoadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	lines, derr := interp.Disassemble(prog.Code)
	if derr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", derr)
		os.Exit(1)
	}
	for _, l := range lines {
		fmt.Println(l)
	}
	return nil
}
