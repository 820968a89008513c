package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/soren/sotto/internal/stream"
)

func TestConsoleRenderSnapshotFlattens(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.RenderSnapshot(&stream.Snapshot{
		ConfirmedText: "hello there.",
		Text:          "hello there.\nGeneral speaking",
	})

	out := buf.String()
	if !strings.Contains(out, "hello there.") {
		t.Errorf("output missing confirmed text: %q", out)
	}
	if !strings.Contains(out, "General speaking") {
		t.Errorf("output missing pending text: %q", out)
	}
	if strings.Contains(out, "\n") {
		t.Errorf("live line must not contain newlines: %q", out)
	}
}

func TestConsoleOverwritePadsShorterLines(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	long := "a long provisional line"
	c.RenderPartial(long)
	buf.Reset()
	c.Status("ok")

	// The status line is 6 visible columns; the remainder of the longer
	// line must be blanked.
	pad := strings.Repeat(" ", len(long)-len("[*] ok"))
	if !strings.Contains(buf.String(), pad) {
		t.Errorf("short line did not pad over the longer one: %q", buf.String())
	}
}

func TestConsoleFinalize(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.RenderPartial("provisional")
	c.Finalize("All done here.")

	out := buf.String()
	if !strings.HasSuffix(out, "All done here.\n") {
		t.Errorf("finalize output = %q, want trailing final text + newline", out)
	}

	buf.Reset()
	c.Finalize("")
	if strings.Contains(buf.String(), "\n") {
		t.Errorf("empty finalize printed a line: %q", buf.String())
	}
}

func TestConsoleInfoEndsLine(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.RenderPartial("in progress")
	c.Info("capture started")

	out := buf.String()
	if !strings.Contains(out, "capture started") {
		t.Errorf("output missing info text: %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Errorf("info line must end with a newline: %q", out)
	}
}
