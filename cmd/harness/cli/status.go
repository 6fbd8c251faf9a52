package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/speckit/harness/internal/daemon"
	"github.com/speckit/harness/internal/protocol"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <agent-id>",
		Short: "Show one agent's current record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agentID, err := parseAgentID(args[0])
			if err != nil {
				return exitCodeError{exitOperationalError, err}
			}

			value, err := roundTrip(protocol.OpStatus, protocol.AgentIDArgs{AgentID: agentID})
			if err != nil {
				return exitCodeError{exitOperationalError, err}
			}
			var rec daemon.AgentRecord
			if err := json.Unmarshal(value, &rec); err != nil {
				return exitCodeError{exitOperationalError, fmt.Errorf("decode response: %w", err)}
			}

			pretty, err := json.MarshalIndent(rec, "", "  ")
			if err != nil {
				return exitCodeError{exitOperationalError, err}
			}
			fmt.Println(string(pretty))

			if rec.Status == daemon.StatusWaitingCheckpoint {
				printErr("agent %d is waiting on a pending checkpoint", agentID)
				return exitCodeError{exitWaitingCheckpoint, fmt.Errorf("agent %d is waiting on a pending checkpoint", agentID)}
			}
			return nil
		},
	}
}
