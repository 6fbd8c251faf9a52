// Package cli implements the harness client: a cobra command tree that
// dials the daemon's unix socket, sends one protocol.Request, and prints
// the result (§4.4, §6's conceptual CLI surface).
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// exitOperationalError and exitWaitingCheckpoint are the two non-zero exit
// codes a harness invocation can report (§6): 1 for any daemon-reported or
// local operational error, 2 specifically for "the agent you asked about is
// parked on a pending checkpoint".
const (
	exitOperationalError  = 1
	exitWaitingCheckpoint = 2
)

// Execute builds the root command and runs it against os.Args, returning
// the process exit code the caller should use.
func Execute() int {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		if ec, ok := err.(exitCodeError); ok {
			return ec.code
		}
		return exitOperationalError
	}
	return 0
}

// exitCodeError lets a subcommand's RunE request a specific exit code
// (§6's code 2 for waiting_checkpoint) while still printing its message the
// way cobra prints any other error.
type exitCodeError struct {
	code int
	err  error
}

func (e exitCodeError) Error() string { return e.err.Error() }
func (e exitCodeError) Unwrap() error { return e.err }

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "harness",
		Short:         "Drive the autonomous coding harness daemon",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetErrPrefix("harness: error:")

	root.AddCommand(
		newStartCmd(),
		newListCmd(),
		newStatusCmd(),
		newStopCmd(),
		newRemoveCmd(),
		newSubscribeCmd(),
		newResolveCheckpointCmd(),
	)
	return root
}

func printErr(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "harness: "+format+"\n", args...)
}
