package agent

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Confirmer gates batch execution behind an external yes/no decision,
// used by AgentLoop's interactive mode (spec.md §4.11 step 7). It is an
// injected capability so that the core never depends on a terminal.
type Confirmer interface {
	Confirm(actions []Action) bool
}

// StdinConfirmer prints the pending actions and reads a yes/no answer
// from an input stream, mirroring the CLI's interactive confirm prompt.
type StdinConfirmer struct {
	In  io.Reader
	Out io.Writer
}

// NewStdinConfirmer returns a Confirmer reading from in and writing
// prompts to out.
func NewStdinConfirmer(in io.Reader, out io.Writer) *StdinConfirmer {
	return &StdinConfirmer{In: in, Out: out}
}

// Confirm implements Confirmer.
func (c *StdinConfirmer) Confirm(actions []Action) bool {
	fmt.Fprintln(c.Out, "\nPlanned actions:")
	for _, a := range actions {
		fmt.Fprintln(c.Out, " -", a.Brief())
	}
	fmt.Fprint(c.Out, "Execute? [y/N] ")

	line, _ := bufio.NewReader(c.In).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// AlwaysConfirm is a Confirmer that always approves, used when the run
// is non-interactive.
type AlwaysConfirm struct{}

// Confirm implements Confirmer.
func (AlwaysConfirm) Confirm(actions []Action) bool { return true }
