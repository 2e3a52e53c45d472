package progress

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

const barWidth = 48

// Terminal renders a three-line block (header, bar, message) on a
// terminal, redrawing in place when the output supports cursor movement.
// On a non-TTY output it falls back to one line per step.
type Terminal struct {
	out    io.Writer
	tty    bool
	header string
	drawn  bool
}

// NewTerminal creates a renderer writing to stdout.
func NewTerminal() *Terminal {
	return &Terminal{
		out: os.Stdout,
		tty: isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()),
	}
}

// NewTerminalWriter creates a renderer writing to w. Only used with
// plain line output; in-place redraw needs a real terminal.
func NewTerminalWriter(w io.Writer) *Terminal {
	return &Terminal{out: w}
}

// SetHeader implements Observer.
func (t *Terminal) SetHeader(text string) {
	t.header = text
	if !t.tty {
		fmt.Fprintln(t.out, text)
	}
}

// SetNew implements Observer.
func (t *Terminal) SetNew() {
	t.drawn = false
	t.header = ""
}

// Update implements Observer.
func (t *Terminal) Update(percent float64, message string) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if !t.tty {
		fmt.Fprintf(t.out, "  %3.0f%% %s\n", percent, message)
		return
	}
	if t.drawn {
		// Cursor up three lines, then clear each to end of line.
		fmt.Fprint(t.out, "\033[3A")
	}
	filled := int(percent / 100 * barWidth)
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", barWidth-filled)
	fmt.Fprintf(t.out, "\033[K%s\n\033[K[%s] %3.0f%%\n\033[K%s\n", t.header, bar, percent, message)
	t.drawn = true
}

// Clear implements Observer.
func (t *Terminal) Clear() {
	if t.tty && t.drawn {
		fmt.Fprint(t.out, "\033[3A\033[K\n\033[K\n\033[K\n\033[3A")
	}
	t.drawn = false
}
