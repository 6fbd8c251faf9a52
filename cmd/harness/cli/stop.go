package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/speckit/harness/internal/protocol"
)

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <agent-id>",
		Short: "Cancel an agent's running subprocess",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agentID, err := parseAgentID(args[0])
			if err != nil {
				return exitCodeError{exitOperationalError, err}
			}
			if _, err := roundTrip(protocol.OpStop, protocol.AgentIDArgs{AgentID: agentID}); err != nil {
				return exitCodeError{exitOperationalError, err}
			}
			fmt.Printf("stopped agent %d\n", agentID)
			return nil
		},
	}
}
