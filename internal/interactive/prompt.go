// Package interactive asks the user questions on a terminal.
package interactive

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// Response is the user's answer to a yes/no question
type Response int

const (
	ResponseYes  Response = iota // Proceed
	ResponseNo                   // Decline
	ResponseQuit                 // Abort, also returned on EOF
)

var answers = map[string]Response{
	"y":    ResponseYes,
	"yes":  ResponseYes,
	"":     ResponseNo,
	"n":    ResponseNo,
	"no":   ResponseNo,
	"q":    ResponseQuit,
	"quit": ResponseQuit,
}

// Choice is one entry of a numbered menu
type Choice struct {
	Label  string
	Detail string
}

// Prompter reads answers line by line from one input
type Prompter struct {
	out     io.Writer
	scanner *bufio.Scanner
}

// NewPrompter prompts on stdin and stdout
func NewPrompter() *Prompter {
	return NewPrompterWithIO(os.Stdin, os.Stdout)
}

// NewPrompterWithIO prompts on the given streams
func NewPrompterWithIO(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{out: out, scanner: bufio.NewScanner(in)}
}

// IsTerminal reports whether stdin is a TTY
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// readLine returns the next trimmed line. ok is false at end of input.
func (p *Prompter) readLine() (line string, ok bool) {
	if !p.scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.scanner.Text()), true
}

func (p *Prompter) prompt(format string, args ...interface{}) Response {
	_, _ = fmt.Fprintf(p.out, format+" [y/n/q] ", args...)

	line, ok := p.readLine()
	if !ok {
		return ResponseQuit
	}
	resp, known := answers[strings.ToLower(line)]
	if !known {
		_, _ = fmt.Fprintln(p.out, "Invalid response, skipping.")
		return ResponseNo
	}
	return resp
}

// ConfirmDownload asks whether to download the given version
func (p *Prompter) ConfirmDownload(current, latest string) bool {
	return p.prompt("Download %s (currently running %s)?", latest, current) == ResponseYes
}

// ConfirmRestart asks whether to install the downloaded version now. When
// declined the update is installed on the next quit.
func (p *Prompter) ConfirmRestart(version string) bool {
	if p.prompt("Update %s is ready. Install and restart now?", version) == ResponseYes {
		return true
	}
	_, _ = fmt.Fprintln(p.out, "The update will be installed when glint exits.")
	return false
}

// ConfirmOverwrite asks before replacing an existing file
func (p *Prompter) ConfirmOverwrite(path string) bool {
	return p.prompt("%s already exists. Overwrite?", path) == ResponseYes
}

// Choose prints a numbered menu and returns the index of the picked entry
func (p *Prompter) Choose(title string, choices []Choice) (int, error) {
	if len(choices) == 0 {
		return 0, fmt.Errorf("nothing to choose from")
	}

	_, _ = fmt.Fprintf(p.out, "\n%s\n", title)
	for i, c := range choices {
		_, _ = fmt.Fprintf(p.out, "  %d. %-10s - %s\n", i+1, c.Label, c.Detail)
	}
	_, _ = fmt.Fprintf(p.out, "\nSelect [1-%d]: ", len(choices))

	line, ok := p.readLine()
	if !ok {
		return 0, fmt.Errorf("no selection made")
	}
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(choices) {
		return 0, fmt.Errorf("invalid selection: %s", line)
	}
	return n - 1, nil
}
