// Package cli holds the pieces niccomp and nicrun share: a verbosity level
// parsed from -v/-vv, and the diagnostic-printing convention both binaries
// use (spec.md §6 "Compiler CLI"/"Interpreter CLI"). It mirrors the
// teacher repository's internal/maincmd in spirit (a small Cmd struct
// driven by mna/mainer) but each NIC binary does exactly one job, so there
// is no command dispatch table here.
package cli

import (
	"fmt"
	"io"

	"github.com/ukw100/nic/lang/diag"
)

// Verbosity distinguishes the three levels spec.md §6 allows: silent,
// -v (warnings), -vv (warnings plus a per-phase trace line).
type Verbosity int8

const (
	Quiet Verbosity = iota
	Verbose
	VeryVerbose
)

// Level resolves the verbosity implied by a pair of -v/-vv flags. -vv
// implies -v, matching the teacher's own style of flag tags layering
// (maincmd.Cmd's Help/Version are independent, but a level like this one
// needs the higher flag to dominate).
func Level(v, vv bool) Verbosity {
	if vv {
		return VeryVerbose
	}
	if v {
		return Verbose
	}
	return Quiet
}

// Trace writes a -vv-only progress line.
func Trace(w io.Writer, level Verbosity, format string, args ...any) {
	if level < VeryVerbose {
		return
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// PrintDiagnostics writes every accumulated warning at -v or above.
// Warnings are suppressed entirely at Quiet; fatal diagnostics are left to
// the caller (diag.List.Err already aggregates them into the returned
// error), so this only ever prints non-fatal ones here.
func PrintDiagnostics(w io.Writer, level Verbosity, diags diag.List) {
	if level < Verbose {
		return
	}
	for _, d := range diags.Items() {
		if d.Severity != diag.Warning {
			continue
		}
		fmt.Fprintln(w, d.String())
	}
}
