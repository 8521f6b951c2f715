// The vmdump command introspects a running corevm Program: space usage,
// live objects, a class histogram, the breakpoint table, and on-demand
// collection cycles. It is the cobra-based half of corevm's CLI surface
// (cmd/vmshell's readline REPL over vm/runtime is the other half).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyvm/corevm/arch"
	"github.com/tinyvm/corevm/internal/core"
	"github.com/tinyvm/corevm/vm/object"
	"github.com/tinyvm/corevm/vm/runtime"
)

// demoProgram builds an empty Program for vmdump to report on. A real
// deployment attaches to a live embedder's Program instead (spec.md §6);
// this command has no on-disk Program format of its own to load, since
// corevm's Program lives in one process's memory, not a core file.
func demoProgram() (*runtime.Program, error) {
	return runtime.New(arch.Host)
}

func main() {
	root := &cobra.Command{
		Use:   "vmdump",
		Short: "Inspect a corevm Program's spaces, objects, and breakpoints",
	}
	root.AddCommand(overviewCmd(), objectsCmd(), histogramCmd(), breakpointsCmd(), gcCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func overviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "overview",
		Short: "Print space sizes and process/breakpoint counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := demoProgram()
			if err != nil {
				return err
			}
			p.WriteOverview(os.Stdout)
			return nil
		},
	}
}

func objectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "objects",
		Short: "Walk every live object in new and old space",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := demoProgram()
			if err != nil {
				return err
			}
			l := object.Layout{H: p.Heap, W: p.W}
			sizeOf := func(a core.Address) int64 { return l.Size(a) * int64(p.W.PointerSize) }
			p.Heap.New().IterateObjects(sizeOf, func(a core.Address) bool {
				fmt.Printf("%v size=%d\n", a, sizeOf(a))
				return true
			})
			return nil
		},
	}
}

func histogramCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "histogram",
		Short: "Print byte totals grouped by class",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := demoProgram()
			if err != nil {
				return err
			}
			l := object.Layout{H: p.Heap, W: p.W}
			sizeOf := func(a core.Address) int64 { return l.Size(a) * int64(p.W.PointerSize) }
			byClass := map[core.Address]int64{}
			count := func(a core.Address) bool {
				byClass[l.ClassPointer(a)] += sizeOf(a)
				return true
			}
			p.Heap.New().IterateObjects(sizeOf, count)
			for class, bytes := range byClass {
				fmt.Printf("%v\t%d bytes\n", class, bytes)
			}
			return nil
		},
	}
}

func breakpointsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "breakpoints",
		Short: "Dump the breakpoint table",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := demoProgram()
			if err != nil {
				return err
			}
			p.WriteBreakpoints(os.Stdout)
			return nil
		},
	}
}

func gcCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gc [scavenge|old|program|snapshot]",
		Short: "Trigger a collection cycle and report before/after stats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := demoProgram()
			if err != nil {
				return err
			}
			switch args[0] {
			case "scavenge":
				_, err = p.CollectNewSpace()
			case "old":
				p.CollectOldSpace()
			case "program":
				_, err = p.CollectProgramSpace()
			case "snapshot":
				_, err = p.Snapshot()
			default:
				return fmt.Errorf("unknown gc target %q", args[0])
			}
			if err != nil {
				return err
			}
			p.WriteGCReport(os.Stdout)
			return nil
		},
	}
	return cmd
}
