package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/soren/sotto/internal/stream"
)

var (
	pendingStyle = lipgloss.NewStyle().Faint(true)
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

// Console renders live transcription in place on a terminal: the
// confirmed text plain, the still-revisable tail dimmed, status
// messages on the same overwritten line.
type Console struct {
	mu        sync.Mutex
	writer    io.Writer
	lastWidth int
}

// NewConsole creates a console renderer. writer defaults to stdout.
func NewConsole(writer io.Writer) *Console {
	if writer == nil {
		writer = os.Stdout
	}
	return &Console{writer: writer}
}

// RenderSnapshot overwrites the live line with the current transcript.
func (c *Console) RenderSnapshot(snap *stream.Snapshot) {
	confirmed := oneLine(snap.ConfirmedText)
	full := oneLine(snap.Text)

	pending := strings.TrimSpace(strings.TrimPrefix(full, confirmed))
	line := confirmed
	if pending != "" {
		if line != "" {
			line += " "
		}
		line += pendingStyle.Render(pending)
	}
	c.overwrite(line)
}

// RenderPartial overwrites the live line with in-decode partial text,
// all of it provisional.
func (c *Console) RenderPartial(text string) {
	c.overwrite(pendingStyle.Render(oneLine(text)))
}

// Status overwrites the live line with a status message.
func (c *Console) Status(msg string) {
	c.overwrite(statusStyle.Render("[*] " + msg))
}

// Finalize replaces the live line with the final text and a newline,
// ending in-place rendering.
func (c *Console) Finalize(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearLocked()
	if text != "" {
		fmt.Fprintln(c.writer, text)
	}
	c.lastWidth = 0
}

// Info prints an informational line above the live line.
func (c *Console) Info(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearLocked()
	fmt.Fprintln(c.writer, infoStyle.Render(msg))
	c.lastWidth = 0
}

// Error prints an error line to stderr.
func (c *Console) Error(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearLocked()
	fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+msg))
	c.lastWidth = 0
}

func (c *Console) overwrite(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	width := lipgloss.Width(line)
	pad := ""
	if width < c.lastWidth {
		pad = strings.Repeat(" ", c.lastWidth-width)
	}
	fmt.Fprintf(c.writer, "\r%s%s", line, pad)
	c.lastWidth = width
}

func (c *Console) clearLocked() {
	if c.lastWidth > 0 {
		fmt.Fprintf(c.writer, "\r%s\r", strings.Repeat(" ", c.lastWidth))
	}
}

// oneLine flattens multi-line display text for the live view; final
// output keeps its line breaks.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
