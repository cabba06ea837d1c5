// Command niccomp is NIC's compiler CLI (spec.md §6 "Compiler CLI"): it
// reads one source file, runs it through lang/compiler, and writes the
// resulting program as IR (lang/ir) to a file named by appending "ic" to
// the input path. Its flag-tagged Cmd/mainer.Parser shape is grounded on
// the teacher repository's internal/maincmd.Cmd.
package main

import (
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/ukw100/nic/internal/cli"
	"github.com/ukw100/nic/lang/compiler"
	"github.com/ukw100/nic/lang/ir"
)

const binName = "niccomp"

var (
	// placeholder values, replaced on build
	version   = "{v}"
	buildDate = "{d}"
)

type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"version"`
	V       bool `flag:"v"`
	VV      bool `flag:"vv"`

	args []string
}

func (c *Cmd) SetArgs(args []string) { c.args = args }
func (c *Cmd) SetFlags(map[string]bool) {}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) != 1 {
		return fmt.Errorf("exactly one source file must be provided")
	}
	return nil
}

var shortUsage = fmt.Sprintf(`
usage: %s [-v|-vv] <source-file>
Run '%[1]s --help' for details.
`, binName)

var longUsage = fmt.Sprintf(`usage: %s [-v|-vv] <source-file>
       %[1]s -h|--help
       %[1]s --version

Compiles a NIC source file to IR, writing <source-file>ic alongside it.

Valid flag options are:
       -h --help      Show this help and exit.
       --version      Print version and exit.
       -v             Print compiler warnings.
       -vv            Print warnings and a per-phase trace.
`, binName)

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{EnvVars: false, EnvPrefix: binName + "_"}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	level := cli.Level(c.V, c.VV)
	if err := c.run(stdio, level); err != nil {
		fmt.Fprintf(stdio.Stderr, "%s: %s\n", binName, err)
		return mainer.Failure
	}
	return mainer.Success
}

func (c *Cmd) run(stdio mainer.Stdio, level cli.Verbosity) error {
	path := c.args[0]
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	cli.Trace(stdio.Stdout, level, "%s: compiling", path)
	comp := compiler.New()
	prog, err := comp.Compile(string(src))
	cli.PrintDiagnostics(stdio.Stdout, level, comp.Diags)
	if err != nil {
		return err
	}

	outPath := path + "ic"
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outPath, err)
	}
	defer out.Close()

	cli.Trace(stdio.Stdout, level, "%s: writing IR", outPath)
	if err := ir.Write(out, prog); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	return nil
}

func main() {
	c := Cmd{BuildVersion: version, BuildDate: buildDate}
	os.Exit(int(c.Main(os.Args, mainer.CurrentStdio())))
}
