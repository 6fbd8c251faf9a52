package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/speckit/harness/internal/protocol"
)

func newResolveCheckpointCmd() *cobra.Command {
	var (
		checkpointID    string
		verdict         string
		modificationsJS string
		humanNotes      string
	)

	cmd := &cobra.Command{
		Use:   "resolve-checkpoint <agent-id>",
		Short: "Apply a human verdict to an agent's pending checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agentID, err := parseAgentID(args[0])
			if err != nil {
				return exitCodeError{exitOperationalError, err}
			}
			if checkpointID == "" {
				return exitCodeError{exitOperationalError, fmt.Errorf("--checkpoint-id is required")}
			}
			if verdict == "" {
				if !term.IsTerminal(int(os.Stdout.Fd())) {
					return exitCodeError{exitOperationalError, fmt.Errorf("--verdict is required when stdout is not a terminal")}
				}
				if err := promptVerdict(&verdict, &humanNotes); err != nil {
					return exitCodeError{exitOperationalError, fmt.Errorf("prompt for verdict: %w", err)}
				}
			}

			var modifications any
			if modificationsJS != "" {
				if err := json.Unmarshal([]byte(modificationsJS), &modifications); err != nil {
					return exitCodeError{exitOperationalError, fmt.Errorf("--modifications is not valid JSON: %w", err)}
				}
			}

			resolveArgs := protocol.ResolveCheckpointArgs{
				AgentID:       agentID,
				CheckpointID:  checkpointID,
				Verdict:       verdict,
				Modifications: modifications,
				HumanNotes:    humanNotes,
			}
			if _, err := roundTrip(protocol.OpResolveCheckpoint, resolveArgs); err != nil {
				return exitCodeError{exitOperationalError, err}
			}
			fmt.Printf("resolved checkpoint %s for agent %d as %s\n", checkpointID, agentID, verdict)
			return nil
		},
	}

	cmd.Flags().StringVar(&checkpointID, "checkpoint-id", "", "id of the pending checkpoint to resolve")
	cmd.Flags().StringVar(&verdict, "verdict", "", "approved, rejected, or modified")
	cmd.Flags().StringVar(&modificationsJS, "modifications", "", "JSON object of kind-specific modifications (required when verdict is modified)")
	cmd.Flags().StringVar(&humanNotes, "human-notes", "", "free-text note to attach to the resolution")

	return cmd
}

// promptVerdict interactively asks for a verdict and optional notes when
// --verdict was omitted, the way a human reviewer resolves a checkpoint at
// a terminal rather than scripting the flag.
func promptVerdict(verdict, humanNotes *string) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Checkpoint verdict").
				Options(
					huh.NewOption("approved", "approved"),
					huh.NewOption("rejected", "rejected"),
					huh.NewOption("modified", "modified"),
				).
				Value(verdict),
			huh.NewText().
				Title("Human notes (optional)").
				Value(humanNotes),
		),
	).Run()
}
