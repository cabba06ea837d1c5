// Command nicrun is NIC's interpreter CLI (spec.md §6 "Interpreter CLI"):
// it reads a compiled IR file (lang/ir) and runs it to completion on
// lang/machine, binding any trailing arguments to main's declared
// parameters. Its flag-tagged Cmd/mainer.Parser shape and SIGINT-cancels-
// via-context wiring are grounded on the teacher repository's
// internal/maincmd.Cmd and lang/machine.Thread respectively.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/ukw100/nic/internal/cli"
	"github.com/ukw100/nic/lang/ir"
	"github.com/ukw100/nic/lang/machine"
)

const binName = "nicrun"

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

	args []string
}

func (c *Cmd) SetArgs(args []string) { c.args = args }
func (c *Cmd) SetFlags(map[string]bool) {}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) < 1 {
		return errors.New("an IR file must be provided")
	}
	return nil
}

var shortUsage = fmt.Sprintf(`
usage: %s [-v] <ir-file> [arg...]
Run '%[1]s --help' for details.
`, binName)

var longUsage = fmt.Sprintf(`usage: %s [-v] <ir-file> [arg...]
       %[1]s -h|--help
       %[1]s --version

Runs a compiled NIC IR file. Trailing arguments are bound to main's
declared parameters: int parameters parse as decimal, string parameters
are taken literally; main may not declare a byte parameter.

Valid flag options are:
       -h --help      Show this help and exit.
       --version      Print version and exit.
       -v             Print a trace line before loading and before running.
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

	// nicrun has a single -v flag; it enables the trace lines, which
	// cli.Trace prints only at VeryVerbose.
	level := cli.Level(false, c.V)
	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.run(ctx, stdio, level); err != nil {
		fmt.Fprintf(stdio.Stderr, "%s: %s\n", binName, err)
		return mainer.Failure
	}
	return mainer.Success
}

func (c *Cmd) run(ctx context.Context, stdio mainer.Stdio, level cli.Verbosity) error {
	path := c.args[0]
	argv := c.args[1:]

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	cli.Trace(stdio.Stdout, level, "%s: loading IR", path)
	prog, err := ir.Read(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	th := machine.NewThread(ctx)
	th.Stdout = stdio.Stdout
	th.Stderr = stdio.Stderr

	m := machine.New(prog, th)
	cli.Trace(stdio.Stdout, level, "%s: running", path)
	return m.Run(prog.MainIdx, argv)
}

func main() {
	c := Cmd{BuildVersion: version, BuildDate: buildDate}
	os.Exit(int(c.Main(os.Args, mainer.CurrentStdio())))
}
