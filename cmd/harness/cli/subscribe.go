package cli

import (
	"bufio"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/speckit/harness/internal/protocol"
)

func newSubscribeCmd() *cobra.Command {
	var agentID int64

	cmd := &cobra.Command{
		Use:   "subscribe",
		Short: "Attach to the live event stream, optionally filtered to one agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := subscribeConn(agentID)
			if err != nil {
				return exitCodeError{exitOperationalError, err}
			}
			defer conn.Close()

			r := bufio.NewReader(conn)
			for {
				var ev protocol.EventFrame
				if err := protocol.ReadFrame(r, &ev); err != nil {
					if err == io.EOF {
						return nil
					}
					return exitCodeError{exitOperationalError, fmt.Errorf("read event: %w", err)}
				}
				fmt.Printf("[%s] agent=%d %s\n", ev.Event, ev.AgentID, string(ev.Payload))
			}
		},
	}

	cmd.Flags().Int64Var(&agentID, "agent-id", 0, "only show events for this agent")
	return cmd
}
