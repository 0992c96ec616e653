package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Warning prints a warning message to standard error.
func Warning(message string) {
	fmt.Fprintln(color.Error, color.YellowString("Warning:"), message)
}

// Error prints an error message to standard error.
func Error(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
}

// Fatal prints an error message to standard error and then terminates the
// process with the given exit code (§6: 1 for a run that recorded a
// SyncError, 2 for a fatal pipeline failure or a config error).
func Fatal(err error, code int) {
	Error(err)
	os.Exit(code)
}
