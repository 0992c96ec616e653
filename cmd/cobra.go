package cmd

import (
	"github.com/spf13/cobra"
)

// Mainify wraps a non-standard Cobra entry point (one returning an error)
// into a standard Cobra entry point that terminates with exit code 1 on
// failure. It lets the entry point rely on defer-based cleanup, which
// wouldn't run if the entry point called os.Exit itself.
func Mainify(entry func(*cobra.Command, []string) error) func(*cobra.Command, []string) {
	return func(command *cobra.Command, arguments []string) {
		if err := entry(command, arguments); err != nil {
			Fatal(err, 1)
		}
	}
}
