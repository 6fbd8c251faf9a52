package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/speckit/harness/internal/protocol"
)

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <agent-id>",
		Short: "Delete an agent's record (refuses while it is running)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agentID, err := parseAgentID(args[0])
			if err != nil {
				return exitCodeError{exitOperationalError, err}
			}
			if _, err := roundTrip(protocol.OpRemove, protocol.AgentIDArgs{AgentID: agentID}); err != nil {
				return exitCodeError{exitOperationalError, err}
			}
			fmt.Printf("removed agent %d\n", agentID)
			return nil
		},
	}
}
