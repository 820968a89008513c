package app

import (
	"fmt"
	"io"

	"github.com/soren/sotto/internal/audio"
)

// ListDevices prints the available capture devices.
func ListDevices(w io.Writer) error {
	devices, err := audio.ListDevices()
	if err != nil {
		return fmt.Errorf("list capture devices: %w", err)
	}

	if len(devices) == 0 {
		fmt.Fprintln(w, "No capture devices found.")
		return nil
	}

	fmt.Fprintf(w, "Capture devices (%d):\n", len(devices))
	for _, device := range devices {
		fmt.Fprintf(w, "  %s\n", device)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Select a device with --device <id or name>.")
	return nil
}
