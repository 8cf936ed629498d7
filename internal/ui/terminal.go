package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Terminal renders prompts and notices on a text terminal.
type Terminal struct {
	In          io.Reader
	Out         io.Writer
	AssumeYes   bool
	Interactive bool
	Profile     termenv.Profile

	once   sync.Once
	reader *bufio.Reader
}

// NewTerminal wires a Terminal to the given files, detecting whether input is
// an interactive terminal and which colour profile the output supports.
func NewTerminal(in, out *os.File, assumeYes bool) *Terminal {
	return &Terminal{
		In:          in,
		Out:         out,
		AssumeYes:   assumeYes,
		Interactive: term.IsTerminal(int(in.Fd())),
		Profile:     termenv.NewOutput(out).Profile,
	}
}

// Confirm asks a y/N question. Non-interactive input declines unless
// AssumeYes is set.
func (t *Terminal) Confirm(_ context.Context, prompt string) bool {
	if t.AssumeYes {
		fmt.Fprintf(t.Out, "%s [y/N]: y (assumed)\n", prompt)
		return true
	}
	if !t.Interactive {
		fmt.Fprintf(t.Out, "%s [y/N]: declined (input is not a terminal, pass --yes)\n", prompt)
		return false
	}
	fmt.Fprintf(t.Out, "%s [y/N]: ", prompt)
	t.once.Do(func() { t.reader = bufio.NewReader(t.In) })
	line, err := t.reader.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(t.Out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// Notify prints a coloured notice.
func (t *Terminal) Notify(_ context.Context, n Notice) {
	colour := "2"
	if n.Indicator == Red {
		colour = "1"
	}
	fmt.Fprintln(t.Out, t.Profile.String(n.Message).Foreground(t.Profile.Color(colour)).String())
}

// Navigate prints the target the user should open.
func (t *Terminal) Navigate(_ context.Context, target string) {
	fmt.Fprintf(t.Out, "Open %s to continue\n", target)
}

// Print shows a message, turning the markup line breaks into newlines.
func (t *Terminal) Print(_ context.Context, msg string) {
	fmt.Fprintln(t.Out, PlainText(msg))
}

// PlainText strips the few HTML line breaks used in desk messages.
func PlainText(msg string) string {
	r := strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n")
	return r.Replace(msg)
}
