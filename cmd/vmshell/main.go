// The vmshell command is an interactive REPL over a corevm Program's
// debugger surface: setting and clearing breakpoints, stepping, and
// listing processes and their call stacks. It plays the role the
// teacher's ogle/demo/ogler interactive debugger plays, built on the
// same chzyer/readline dependency.
package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/tinyvm/corevm/arch"
	"github.com/tinyvm/corevm/vm/process"
	"github.com/tinyvm/corevm/vm/runtime"
)

func main() {
	prog, err := runtime.New(arch.Host)
	if err != nil {
		fmt.Println("vmshell:", err)
		return
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "vmshell> ",
		HistoryFile:     "/tmp/vmshell_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Println("vmshell:", err)
		return
	}
	defer rl.Close()

	sh := &shell{prog: prog, out: rl.Stdout()}
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			fmt.Fprintln(sh.out, "vmshell:", err)
			return
		}
		sh.dispatch(strings.TrimSpace(line))
	}
}

// shell holds the REPL's view of a running Program between commands.
type shell struct {
	prog *runtime.Program
	out  io.Writer
}

func (sh *shell) dispatch(line string) {
	if line == "" {
		return
	}
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "break":
		sh.cmdBreak(args)
	case "delete":
		sh.cmdDelete(args)
	case "step":
		sh.cmdStep(args)
	case "ps":
		sh.cmdPS(args)
	case "bt":
		sh.cmdBT(args)
	case "continue":
		sh.cmdContinue(args)
	case "overview":
		sh.prog.WriteOverview(sh.out)
	case "help":
		fmt.Fprintln(sh.out, "commands: break FUNC LINE, delete ID, step on|off, ps, bt PID, continue, overview")
	default:
		fmt.Fprintf(sh.out, "unknown command %q (try help)\n", cmd)
	}
}

// cmdBreak does not resolve FUNC/LINE to a bytecode address itself —
// that mapping lives with whatever embedder loaded the program's
// functions — so it reports what it would need from the embedder rather
// than guessing at a symbol table this package has no access to.
func (sh *shell) cmdBreak(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(sh.out, "usage: break FUNC LINE")
		return
	}
	fmt.Fprintf(sh.out, "break: no symbol table attached; resolve %s:%s via the embedder's vm/session client\n", args[0], args[1])
}

func (sh *shell) cmdDelete(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(sh.out, "usage: delete ID")
		return
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Fprintln(sh.out, "delete:", err)
		return
	}
	sh.prog.Debug.DeleteBreakpoint(id)
}

func (sh *shell) cmdStep(args []string) {
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		fmt.Fprintln(sh.out, "usage: step on|off")
		return
	}
	sh.prog.Debug.SetStepping(args[0] == "on")
}

func (sh *shell) cmdPS(args []string) {
	fmt.Fprintf(sh.out, "PID\tSTATE\tTRIANGLE\n")
	sh.prog.Processes.Each(func(p *process.Process) {
		fmt.Fprintf(sh.out, "%d\t%s\t%d\n", p.ID, p.State, p.TriangleCount)
	})
}

func (sh *shell) cmdBT(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(sh.out, "usage: bt PID")
		return
	}
	pid, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Fprintln(sh.out, "bt:", err)
		return
	}
	p := sh.prog.Processes.Lookup(pid)
	if p == nil {
		fmt.Fprintf(sh.out, "no such process %d\n", pid)
		return
	}
	fmt.Fprintf(sh.out, "process %d: stack at %v\n", p.ID, p.Stack)
}

func (sh *shell) cmdContinue(args []string) {
	sh.prog.Debug.SetStepping(false)
	fmt.Fprintln(sh.out, "continuing")
}
