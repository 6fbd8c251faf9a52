package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/speckit/harness/internal/daemon"
	"github.com/speckit/harness/internal/protocol"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every known agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := roundTrip(protocol.OpList, nil)
			if err != nil {
				return exitCodeError{exitOperationalError, err}
			}
			var recs []daemon.AgentRecord
			if err := json.Unmarshal(value, &recs); err != nil {
				return exitCodeError{exitOperationalError, fmt.Errorf("decode response: %w", err)}
			}

			tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "AGENT_ID\tSPEC\tSTATUS\tPHASE\tLAST_EVENT_AT")
			for _, rec := range recs {
				fmt.Fprintf(tw, "%d\t%s-%s\t%s\t%s\t%s\n",
					rec.AgentID, rec.SpecSlug, rec.SpecHash, rec.Status, rec.Phase,
					rec.LastEventAt.Format("2006-01-02T15:04:05Z07:00"))
			}
			return tw.Flush()
		},
	}
}
