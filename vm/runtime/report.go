package runtime

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// WriteOverview prints a tabwriter-aligned summary of space usage and
// process counts, in the teacher's plain-text reporting style
// (cmd/viewcore/main.go's "overview" command).
func (p *Program) WriteOverview(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintf(tw, "new space\t%d bytes used\n", p.Heap.New().Used())
	fmt.Fprintf(tw, "old space\t%d bytes used\t%d capacity\n", p.Heap.Old.UsedAfterLastGC(), p.Heap.Old.Capacity())
	fmt.Fprintf(tw, "program space\t%d bytes used\n", p.CodeSpace().Used())
	fmt.Fprintf(tw, "processes\t%d live\n", p.Processes.Len())
	fmt.Fprintf(tw, "breakpoints\t%d set\t stepping=%v\n", len(p.Debug.Breakpoints()), p.Debug.IsStepping)
}

// WriteBreakpoints prints every currently-set breakpoint, one per line.
func (p *Program) WriteBreakpoints(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintf(tw, "ID\tBYTECODE INDEX\tONESHOT\tSTEPOVER\tSTACK HEIGHT\n")
	for _, bp := range p.Debug.Breakpoints() {
		fmt.Fprintf(tw, "%d\t%d\t%v\t%v\t%d\n", bp.ID, bp.BytecodeIndex, bp.OneShot, bp.HasStepOver, bp.StackHeight)
	}
}

// WriteGCReport prints before/after-style statistics for the most recent
// cycle of every collector (spec.md §8's testable properties).
func (p *Program) WriteGCReport(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	sc, old, pg := p.LastStats()
	fmt.Fprintf(tw, "scavenge\tcopied=%d\tpromoted=%d\tvisited=%d\n", sc.BytesCopied, sc.BytesPromoted, sc.ObjectsVisited)
	fmt.Fprintf(tw, "oldspace\tmode=%s\tlive=%d\tfreed=%d\n", old.Mode, old.LiveBytes, old.FreedBytes)
	fmt.Fprintf(tw, "program\tsnapshot=%v\tstacks=%d\tmoved=%d\n", pg.Snapshot, pg.NumStacks, pg.BytesMoved)
}
